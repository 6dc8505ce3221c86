// Package nitpickdtest boots an in-memory nitpickd API for tests.
package nitpickdtest

import (
	"context"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/coder/quartz"

	"github.com/nitpickhq/nitpick/cryptorand"
	"github.com/nitpickhq/nitpick/nitpickd"
	"github.com/nitpickhq/nitpick/nitpickd/database"
	"github.com/nitpickhq/nitpick/nitpickd/database/dbmem"
	"github.com/nitpickhq/nitpick/nitpickd/database/dbtime"
	"github.com/nitpickhq/nitpick/nitpicksdk"
	"github.com/nitpickhq/nitpick/testutil"
)

type Options struct {
	// Database defaults to a fresh in-memory store.
	Database database.Store

	// Clock defaults to the real clock. Tests freeze batch timestamps by
	// passing a quartz mock.
	Clock quartz.Clock
}

// New constructs a nitpicksdk client connected to an in-memory API instance.
func New(t *testing.T, options *Options) *nitpicksdk.Client {
	if options == nil {
		options = &Options{}
	}
	if options.Database == nil {
		options.Database = dbmem.New()
	}

	api := nitpickd.New(&nitpickd.Options{
		Logger:   testutil.Logger(t),
		Database: options.Database,
		Clock:    options.Clock,
	})

	srv := httptest.NewServer(api.Handler)
	t.Cleanup(srv.Close)

	serverURL, err := url.Parse(srv.URL)
	require.NoError(t, err)

	return nitpicksdk.New(serverURL)
}

var FirstUserParams = nitpicksdk.CreateFirstUserRequest{
	Email:    "testuser@nitpick.dev",
	Username: "testuser",
	Password: "testpass",
}

// CreateFirstUser creates a user with preset credentials and authenticates
// the passed in client with it.
func CreateFirstUser(t *testing.T, client *nitpicksdk.Client) nitpicksdk.User {
	user, err := client.CreateFirstUser(context.Background(), FirstUserParams)
	require.NoError(t, err)

	login, err := client.LoginWithPassword(context.Background(), nitpicksdk.LoginWithPasswordRequest{
		Email:    FirstUserParams.Email,
		Password: FirstUserParams.Password,
	})
	require.NoError(t, err)
	client.SetSessionToken(login.SessionToken)
	return user
}

// CreateAnotherUser registers and authenticates an additional user directly
// against the store, returning a client logged in as that user.
func CreateAnotherUser(t *testing.T, client *nitpicksdk.Client, db database.Store) (*nitpicksdk.Client, nitpicksdk.User) {
	ctx := context.Background()

	username, err := cryptorand.StringCharset(cryptorand.Alpha, 8)
	require.NoError(t, err)

	now := dbtime.Now()
	user, err := db.InsertUser(ctx, database.InsertUserParams{
		ID:             uuid.New(),
		Email:          username + "@nitpick.dev",
		Username:       username,
		HashedPassword: "",
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	require.NoError(t, err)

	other := nitpicksdk.New(client.URL)
	other.SetSessionToken(AuthenticateUser(t, db, user.ID))
	return other, nitpicksdk.User{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	}
}

// AuthenticateUser issues a session token for the user directly against the
// store, bypassing the login route.
func AuthenticateUser(t *testing.T, db database.Store, userID uuid.UUID) string {
	t.Helper()
	token, err := nitpickd.IssueSessionToken(context.Background(), db, userID)
	require.NoError(t, err)
	return token
}
