package cli

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/xerrors"

	// Registers the postgres driver for database/sql.
	_ "github.com/lib/pq"

	"cdr.dev/slog"
	"cdr.dev/slog/sloggers/sloghuman"
	"github.com/coder/serpent"

	"github.com/nitpickhq/nitpick/buildinfo"
	"github.com/nitpickhq/nitpick/nitpickd"
	"github.com/nitpickhq/nitpick/nitpickd/database"
	"github.com/nitpickhq/nitpick/nitpickd/database/dbmem"
	"github.com/nitpickhq/nitpick/nitpickd/database/migrations"
)

func (r *RootCmd) server() *serpent.Command {
	var (
		address           string
		postgresURL       string
		inMemory          bool
		prometheusAddress string
	)
	cmd := &serpent.Command{
		Use:   "server",
		Short: "Start the nitpick API server.",
		Options: serpent.OptionSet{
			{
				Flag:          "address",
				FlagShorthand: "a",
				Env:           "NITPICK_ADDRESS",
				Default:       "127.0.0.1:3000",
				Description:   "Address to bind the API server to.",
				Value:         serpent.StringOf(&address),
			},
			{
				Flag:        "postgres-url",
				Env:         "NITPICK_PG_CONNECTION_URL",
				Description: "URL of a PostgreSQL database to connect to.",
				Value:       serpent.StringOf(&postgresURL),
			},
			{
				Flag:        "in-memory",
				Env:         "NITPICK_IN_MEMORY",
				Description: "Run with an ephemeral in-memory database. Data is lost on exit.",
				Value:       serpent.BoolOf(&inMemory),
			},
			{
				Flag:        "prometheus-address",
				Env:         "NITPICK_PROMETHEUS_ADDRESS",
				Description: "Serve Prometheus metrics on this address. Disabled when empty.",
				Value:       serpent.StringOf(&prometheusAddress),
			},
		},
		Handler: func(inv *serpent.Invocation) error {
			ctx, stop := signal.NotifyContext(inv.Context(), os.Interrupt)
			defer stop()

			logger := slog.Make(sloghuman.Sink(inv.Stderr))
			if r.verbose {
				logger = logger.Leveled(slog.LevelDebug)
			}

			var store database.Store
			switch {
			case inMemory:
				store = dbmem.New()
			case postgresURL != "":
				sqlDB, err := sql.Open("postgres", postgresURL)
				if err != nil {
					return xerrors.Errorf("open postgres: %w", err)
				}
				defer sqlDB.Close()
				pingCtx, pingCancel := context.WithTimeout(ctx, 15*time.Second)
				defer pingCancel()
				err = sqlDB.PingContext(pingCtx)
				if err != nil {
					return xerrors.Errorf("ping postgres: %w", err)
				}
				err = migrations.Up(sqlDB)
				if err != nil {
					return xerrors.Errorf("migrate up: %w", err)
				}
				store = database.New(sqlDB)
			default:
				return xerrors.New("provide --postgres-url or run with --in-memory")
			}

			registry := prometheus.NewRegistry()
			api := nitpickd.New(&nitpickd.Options{
				Logger:             logger.Named("nitpickd"),
				Database:           store,
				PrometheusRegistry: registry,
			})

			if prometheusAddress != "" {
				closeServe := serveHandler(ctx, logger, promhttp.InstrumentMetricHandler(
					registry, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
				), prometheusAddress)
				defer closeServe()
			}

			listener, err := net.Listen("tcp", address)
			if err != nil {
				return xerrors.Errorf("listen on %q: %w", address, err)
			}
			defer listener.Close()

			server := &http.Server{
				Handler:           api.Handler,
				ReadHeaderTimeout: 10 * time.Second,
				BaseContext: func(net.Listener) context.Context {
					return ctx
				},
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Serve(listener)
			}()

			logger.Info(ctx, "started API server",
				slog.F("address", listener.Addr().String()),
				slog.F("version", buildinfo.Version()),
			)

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info(ctx, "interrupt caught, gracefully exiting")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
	return cmd
}

func serveHandler(ctx context.Context, logger slog.Logger, handler http.Handler, addr string) (closeFunc func()) {
	logger.Debug(ctx, "http server listening", slog.F("addr", addr))

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Minute,
	}
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !xerrors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "http server listen", slog.Error(err))
		}
	}()

	return func() {
		_ = srv.Close()
	}
}
