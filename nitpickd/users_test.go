package nitpickd_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nitpickhq/nitpick/nitpickd/nitpickdtest"
	"github.com/nitpickhq/nitpick/nitpicksdk"
	"github.com/nitpickhq/nitpick/testutil"
)

func TestFirstUser(t *testing.T) {
	t.Parallel()

	t.Run("BadRequest", func(t *testing.T) {
		t.Parallel()
		client := nitpickdtest.New(t, nil)
		ctx := testutil.Context(t, testutil.WaitShort)
		_, err := client.CreateFirstUser(ctx, nitpicksdk.CreateFirstUserRequest{})
		require.Error(t, err)
	})

	t.Run("AlreadyExists", func(t *testing.T) {
		t.Parallel()
		client := nitpickdtest.New(t, nil)
		_ = nitpickdtest.CreateFirstUser(t, client)
		ctx := testutil.Context(t, testutil.WaitShort)
		_, err := client.CreateFirstUser(ctx, nitpicksdk.CreateFirstUserRequest{
			Email:    "some@email.com",
			Username: "exampleuser",
			Password: "password",
		})
		var apiErr *nitpicksdk.Error
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusConflict, apiErr.StatusCode())
	})

	t.Run("Create", func(t *testing.T) {
		t.Parallel()
		client := nitpickdtest.New(t, nil)
		user := nitpickdtest.CreateFirstUser(t, client)
		require.Equal(t, nitpickdtest.FirstUserParams.Email, user.Email)
	})
}

func TestPostLogin(t *testing.T) {
	t.Parallel()

	t.Run("InvalidUser", func(t *testing.T) {
		t.Parallel()
		client := nitpickdtest.New(t, nil)
		ctx := testutil.Context(t, testutil.WaitShort)
		_, err := client.LoginWithPassword(ctx, nitpicksdk.LoginWithPasswordRequest{
			Email:    "my@email.org",
			Password: "password",
		})
		var apiErr *nitpicksdk.Error
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode())
	})

	t.Run("BadPassword", func(t *testing.T) {
		t.Parallel()
		client := nitpickdtest.New(t, nil)
		_ = nitpickdtest.CreateFirstUser(t, client)
		ctx := testutil.Context(t, testutil.WaitShort)
		_, err := client.LoginWithPassword(ctx, nitpicksdk.LoginWithPasswordRequest{
			Email:    nitpickdtest.FirstUserParams.Email,
			Password: "not-the-password",
		})
		var apiErr *nitpicksdk.Error
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode())
	})

	t.Run("Success", func(t *testing.T) {
		t.Parallel()
		client := nitpickdtest.New(t, nil)
		user := nitpickdtest.CreateFirstUser(t, client)
		ctx := testutil.Context(t, testutil.WaitShort)

		me, err := client.User(ctx)
		require.NoError(t, err)
		require.Equal(t, user.ID, me.ID)
	})
}
