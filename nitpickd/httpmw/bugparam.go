package httpmw

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nitpickhq/nitpick/nitpickd/database"
	"github.com/nitpickhq/nitpick/nitpickd/httpapi"
	"github.com/nitpickhq/nitpick/nitpicksdk"
)

type bugParamContextKey struct{}

// BugParam returns the bug from the ExtractBugParam handler.
func BugParam(r *http.Request) database.Bug {
	bug, ok := r.Context().Value(bugParamContextKey{}).(database.Bug)
	if !ok {
		panic("developer error: ExtractBugParam middleware not provided")
	}
	return bug
}

// ExtractBugParam grabs a bug from the "bug" URL parameter.
func ExtractBugParam(db database.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			bugID, err := strconv.ParseInt(chi.URLParam(r, "bug"), 10, 64)
			if err != nil {
				httpapi.Write(ctx, rw, http.StatusBadRequest, nitpicksdk.Response{
					Message: "Invalid bug ID.",
					Detail:  err.Error(),
				})
				return
			}

			bug, err := db.GetBugByID(ctx, bugID)
			if err != nil {
				if httpapi.Is404Error(err) {
					httpapi.ResourceNotFound(rw)
					return
				}
				httpapi.InternalServerError(rw, err)
				return
			}

			ctx = context.WithValue(ctx, bugParamContextKey{}, bug)
			next.ServeHTTP(rw, r.WithContext(ctx))
		})
	}
}
