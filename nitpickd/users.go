package nitpickd

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nitpickhq/nitpick/cryptorand"
	"github.com/nitpickhq/nitpick/nitpickd/database"
	"github.com/nitpickhq/nitpick/nitpickd/database/dbtime"
	"github.com/nitpickhq/nitpick/nitpickd/httpapi"
	"github.com/nitpickhq/nitpick/nitpickd/httpmw"
	"github.com/nitpickhq/nitpick/nitpickd/userpassword"
	"github.com/nitpickhq/nitpick/nitpicksdk"
)

// sessionLifetime is how long a session token issued by login is valid.
const sessionLifetime = 24 * time.Hour * 7

func (api *API) postFirstUser(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req nitpicksdk.CreateFirstUserRequest
	if !httpapi.Read(ctx, rw, r, &req) {
		return
	}

	count, err := api.Database.GetUserCount(ctx)
	if err != nil {
		httpapi.InternalServerError(rw, err)
		return
	}
	if count != 0 {
		httpapi.Write(ctx, rw, http.StatusConflict, nitpicksdk.Response{
			Message: "The initial user has already been created.",
		})
		return
	}

	hashedPassword, err := userpassword.Hash(req.Password)
	if err != nil {
		httpapi.InternalServerError(rw, err)
		return
	}

	now := dbtime.Now()
	user, err := api.Database.InsertUser(ctx, database.InsertUserParams{
		ID:             uuid.New(),
		Email:          req.Email,
		Username:       req.Username,
		HashedPassword: hashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		httpapi.InternalServerError(rw, err)
		return
	}

	httpapi.Write(ctx, rw, http.StatusCreated, convertUser(user))
}

func (api *API) postLogin(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req nitpicksdk.LoginWithPasswordRequest
	if !httpapi.Read(ctx, rw, r, &req) {
		return
	}

	user, err := api.Database.GetUserByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		httpapi.InternalServerError(rw, err)
		return
	}

	// Comparing against the stored hash even when the user does not exist
	// keeps the response time uniform.
	equal, hashErr := userpassword.Compare(user.HashedPassword, req.Password)
	if hashErr != nil {
		equal = false
	}
	if errors.Is(err, sql.ErrNoRows) || !equal {
		httpapi.Write(ctx, rw, http.StatusUnauthorized, nitpicksdk.Response{
			Message: "Incorrect email or password.",
		})
		return
	}

	sessionToken, err := api.createSession(r, user.ID)
	if err != nil {
		httpapi.InternalServerError(rw, err)
		return
	}

	http.SetCookie(rw, &http.Cookie{
		Name:     httpmw.SessionTokenCookie,
		Value:    sessionToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	httpapi.Write(ctx, rw, http.StatusCreated, nitpicksdk.LoginWithPasswordResponse{
		SessionToken: sessionToken,
	})
}

// Returns the currently authenticated user.
func (api *API) getAuthenticatedUser(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := httpmw.User(r)

	httpapi.Write(ctx, rw, http.StatusOK, convertUser(user))
}

// createSession generates an API key and returns the session token
// consumed by the ExtractAPIKey middleware.
func (api *API) createSession(r *http.Request, userID uuid.UUID) (string, error) {
	return IssueSessionToken(r.Context(), api.Database, userID)
}

// IssueSessionToken inserts an API key for the user and returns the
// corresponding session token.
func IssueSessionToken(ctx context.Context, db database.Store, userID uuid.UUID) (string, error) {
	keyID, err := cryptorand.String(10)
	if err != nil {
		return "", err
	}
	keySecret, err := cryptorand.String(22)
	if err != nil {
		return "", err
	}
	hashed := sha256.Sum256([]byte(keySecret))

	now := dbtime.Now()
	_, err = db.InsertAPIKey(ctx, database.InsertAPIKeyParams{
		ID:           keyID,
		HashedSecret: hashed[:],
		UserID:       userID,
		LastUsed:     now,
		ExpiresAt:    now.Add(sessionLifetime),
		CreatedAt:    now,
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s-%s", keyID, keySecret), nil
}

func convertUser(user database.User) nitpicksdk.User {
	return nitpicksdk.User{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	}
}
