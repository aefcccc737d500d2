package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/goliatone/go-router"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-civic-auth/activitymap"
	"github.com/goliatone/go-civic-auth/api"
	"github.com/goliatone/go-civic-auth/metrics"
	"github.com/goliatone/go-civic-auth/migrations"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	logger := lgr.GetLogger("serve")

	db, err := connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if _, err := migrations.Up(ctx, db); err != nil {
			return err
		}
	}

	audit := loggers{lgr}.GetLogger("activity")
	opts := []api.Option{
		api.WithLoggerProvider(loggers{lgr}),
		api.WithActivitySink(activitymap.LogSink(audit)),
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		opts = append(opts, api.WithMetrics(m))
	}

	a, err := api.New(cfg, db, opts...)
	if err != nil {
		return err
	}

	srv := router.NewFiberAdapter(func(app *fiber.App) *fiber.App {
		app = router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
			ErrorHandler:  a.Responder.FiberErrorHandler,
		}))

		app.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(cfg.HTTP.AllowedOrigins, ","),
			AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
			AllowHeaders:     "Authorization,Content-Type,X-Request-ID",
			ExposeHeaders:    "X-Request-ID",
			AllowCredentials: true,
		}))

		if m != nil {
			app.Use(m.FiberMiddleware())
		}

		return app
	})

	srv.Router().WithLogger(lgr.GetLogger("router"))
	a.Register(srv.Router())

	var metricsSrv *http.Server
	if m != nil {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, m.Handler())
		metricsSrv = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			logger.Info("metrics listening", "addr", cfg.Metrics.Addr, "path", cfg.Metrics.Path)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTP.Addr)
		if err := srv.Serve(cfg.HTTP.Addr); err != nil {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return err
	case sig := <-waitExitSignal():
		logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics shutdown failed", "error", err)
		}
	}

	return srv.Shutdown(shutdownCtx)
}

func waitExitSignal() <-chan os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return ch
}
