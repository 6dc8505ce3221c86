// Package nitpickd contains the HTTP API for the nitpick issue tracker.
package nitpickd

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"cdr.dev/slog"
	"github.com/coder/quartz"

	"github.com/nitpickhq/nitpick/buildinfo"
	"github.com/nitpickhq/nitpick/nitpickd/database"
	"github.com/nitpickhq/nitpick/nitpickd/database/dbmetrics"
	"github.com/nitpickhq/nitpick/nitpickd/httpapi"
	"github.com/nitpickhq/nitpick/nitpickd/httpmw"
	"github.com/nitpickhq/nitpick/nitpicksdk"
)

// Options are the required parameters for the API.
type Options struct {
	Logger   slog.Logger
	Database database.Store

	// Clock provides the shared timestamp source for visit batches. Tests
	// inject a mock to freeze batch timestamps.
	Clock quartz.Clock

	// PrometheusRegistry receives database query metrics. Optional.
	PrometheusRegistry *prometheus.Registry
}

// API contains all route handlers. Only HTTP handlers should be added to
// this struct for code clarity.
type API struct {
	*Options

	Handler http.Handler
}

// New constructs the nitpick API into an HTTP handler.
func New(options *Options) *API {
	if options.Clock == nil {
		options.Clock = quartz.NewReal()
	}
	if options.PrometheusRegistry == nil {
		options.PrometheusRegistry = prometheus.NewRegistry()
	}
	options.Database = dbmetrics.New(options.Database, options.PrometheusRegistry)

	api := &API{
		Options: options,
	}

	apiKeyMiddleware := httpmw.ExtractAPIKey(options.Database)

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		httpmw.Logger(options.Logger),
	)

	r.Route("/api/v2", func(r chi.Router) {
		r.NotFound(func(rw http.ResponseWriter, r *http.Request) {
			httpapi.Write(r.Context(), rw, http.StatusNotFound, nitpicksdk.Response{
				Message: "Route not found.",
			})
		})
		r.Get("/", func(rw http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			_, err := options.Database.Ping(ctx)
			if err != nil {
				httpapi.Write(ctx, rw, http.StatusServiceUnavailable, nitpicksdk.Response{
					Message: "Database unreachable.",
					Detail:  err.Error(),
				})
				return
			}
			httpapi.Write(ctx, rw, http.StatusOK, nitpicksdk.Response{
				Message: "ready",
			})
		})

		r.Get("/buildinfo", func(rw http.ResponseWriter, r *http.Request) {
			httpapi.Write(r.Context(), rw, http.StatusOK, nitpicksdk.BuildInfoResponse{
				Version: buildinfo.Version(),
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/first", api.postFirstUser)
			r.Post("/login", api.postLogin)
			r.Group(func(r chi.Router) {
				r.Use(apiKeyMiddleware)
				r.Get("/me", api.getAuthenticatedUser)
			})
		})

		r.Route("/bugs", func(r chi.Router) {
			r.Use(apiKeyMiddleware)
			r.Post("/", api.postBug)
			r.Route("/{bug}", func(r chi.Router) {
				r.Use(httpmw.ExtractBugParam(options.Database))
				r.Get("/", api.getBug)
			})
		})

		r.Route("/bug_user_last_visit", func(r chi.Router) {
			r.Use(apiKeyMiddleware)
			r.Post("/", api.postBugUserLastVisits)
			r.Get("/", api.getBugUserLastVisits)
			r.Route("/{bug}", func(r chi.Router) {
				r.Post("/", api.postBugUserLastVisit)
				r.Get("/", api.getBugUserLastVisit)
			})
		})
	})

	api.Handler = r
	return api
}
