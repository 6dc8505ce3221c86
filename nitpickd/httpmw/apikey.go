package httpmw

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nitpickhq/nitpick/nitpickd/database"
	"github.com/nitpickhq/nitpick/nitpickd/database/dbtime"
	"github.com/nitpickhq/nitpick/nitpickd/httpapi"
	"github.com/nitpickhq/nitpick/nitpicksdk"
)

// SessionTokenCookie is the name of the cookie that stores the session
// token for browser requests.
const SessionTokenCookie = "nitpick_session_token"

const signedOutErrorMessage = "You are signed out or your session has expired. Please sign in again to continue."

type apiKeyContextKey struct{}

type userContextKey struct{}

// APIKey returns the API key from the ExtractAPIKey handler.
func APIKey(r *http.Request) database.APIKey {
	key, ok := r.Context().Value(apiKeyContextKey{}).(database.APIKey)
	if !ok {
		panic("developer error: ExtractAPIKey middleware not provided")
	}
	return key
}

// User returns the authenticated user from the ExtractAPIKey handler.
func User(r *http.Request) database.User {
	user, ok := r.Context().Value(userContextKey{}).(database.User)
	if !ok {
		panic("developer error: ExtractAPIKey middleware not provided")
	}
	return user
}

// APITokenFromRequest returns the session token from the request, if one
// was provided. It checks the custom header first, then the cookie.
func APITokenFromRequest(r *http.Request) string {
	token := r.Header.Get(nitpicksdk.SessionTokenHeader)
	if token != "" {
		return token
	}
	cookie, err := r.Cookie(SessionTokenCookie)
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// SplitAPIToken verifies the format of an API key and returns the split ID
// and secret. The token format is "<id>-<secret>".
func SplitAPIToken(token string) (id string, secret string, err error) {
	parts := strings.Split(token, "-")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("incorrect amount of API key parts, expected 2 got %d", len(parts))
	}
	return parts[0], parts[1], nil
}

// ExtractAPIKey requires authentication using a valid session token,
// storing the key and its user on the request context. Authentication
// failures abort the request before any other processing.
func ExtractAPIKey(db database.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := APITokenFromRequest(r)
			if token == "" {
				httpapi.Write(ctx, rw, http.StatusUnauthorized, nitpicksdk.Response{
					Message: signedOutErrorMessage,
					Detail:  fmt.Sprintf("Cookie %q or header %q must be provided.", SessionTokenCookie, nitpicksdk.SessionTokenHeader),
				})
				return
			}

			keyID, keySecret, err := SplitAPIToken(token)
			if err != nil {
				httpapi.Write(ctx, rw, http.StatusUnauthorized, nitpicksdk.Response{
					Message: signedOutErrorMessage,
					Detail:  "Invalid API key format: " + err.Error(),
				})
				return
			}

			key, err := db.GetAPIKeyByID(ctx, keyID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					httpapi.Write(ctx, rw, http.StatusUnauthorized, nitpicksdk.Response{
						Message: signedOutErrorMessage,
						Detail:  "API key is invalid.",
					})
					return
				}
				httpapi.InternalServerError(rw, err)
				return
			}

			// Checking to see if the secret is valid.
			hashedSecret := sha256.Sum256([]byte(keySecret))
			if subtle.ConstantTimeCompare(key.HashedSecret, hashedSecret[:]) != 1 {
				httpapi.Write(ctx, rw, http.StatusUnauthorized, nitpicksdk.Response{
					Message: signedOutErrorMessage,
					Detail:  "API key secret is invalid.",
				})
				return
			}

			now := dbtime.Now()
			if key.ExpiresAt.Before(now) {
				httpapi.Write(ctx, rw, http.StatusUnauthorized, nitpicksdk.Response{
					Message: signedOutErrorMessage,
					Detail:  fmt.Sprintf("API key expired at %q.", key.ExpiresAt.String()),
				})
				return
			}

			// Only update the key's LastUsed when it is stale to avoid a
			// write on every request.
			if now.Sub(key.LastUsed) > time.Hour {
				err = db.UpdateAPIKeyLastUsed(ctx, database.UpdateAPIKeyLastUsedParams{
					ID:       key.ID,
					LastUsed: now,
				})
				if err != nil {
					httpapi.InternalServerError(rw, err)
					return
				}
				key.LastUsed = now
			}

			user, err := db.GetUserByID(ctx, key.UserID)
			if err != nil {
				httpapi.InternalServerError(rw, err)
				return
			}

			ctx = context.WithValue(ctx, apiKeyContextKey{}, key)
			ctx = context.WithValue(ctx, userContextKey{}, user)
			next.ServeHTTP(rw, r.WithContext(ctx))
		})
	}
}
