package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/lohmm-traces/internal/api"
	"github.com/ashureev/lohmm-traces/internal/config"
	"github.com/ashureev/lohmm-traces/internal/corpus"
	"github.com/ashureev/lohmm-traces/internal/middleware"
	"github.com/ashureev/lohmm-traces/internal/normalize"
	"github.com/ashureev/lohmm-traces/internal/store"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func runServe(cfg *config.Config, arguments []string) int {
	flagSet := flag.NewFlagSet("serve", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var helpFlag bool
	flagSet.StringVar(&cfg.Port, "port", cfg.Port, "listen port")
	flagSet.BoolVar(&helpFlag, "help", false, "show help")

	if err := flagSet.Parse(arguments); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitInvalidInput
	}
	if helpFlag {
		fmt.Println("Usage:")
		fmt.Println("  lohmm serve [-port P]")
		return exitOK
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitInvalidInput
	}

	logger := slog.Default()
	slog.Info("Starting server", "port", cfg.Port)

	repo, err := store.NewSQLite(cfg.Store.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		return exitFailure
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		return exitFailure
	}
	slog.Info("Database connected", "path", cfg.Store.DBPath)

	runner := corpus.NewRunner(normalize.NewPipeline(cfg.Window, logger), cfg.Workers, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(cfg, repo, runner, logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			slog.Error("Server failed", "error", err)
			return exitFailure
		}
	case <-ctx.Done():
	}
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return exitFailure
	}

	slog.Info("Server stopped successfully")
	return exitOK
}

func newRouter(cfg *config.Config, repo store.Repository, runner *corpus.Runner, logger *slog.Logger) http.Handler {
	base := api.NewHandler(repo, runner, logger)

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	api.NewHealthHandler(repo).RegisterHealth(r)
	api.NewRunHandler(base).RegisterRoutes(r)
	api.NewNormalizeHandler(base).RegisterRoutes(r)

	return r
}
