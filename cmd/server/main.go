package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"todoList/internal/auth"
	"todoList/internal/config"
	"todoList/internal/crypto"
	"todoList/internal/db"
	"todoList/internal/graphql"
	grpcserver "todoList/internal/grpc"
	"todoList/internal/logger"
	"todoList/internal/metrics"
	"todoList/internal/service"
	"todoList/repository"
)

func main() {
	reset := flag.Bool("reset", false, "delete all users and todos before serving (development only)")
	rollback := flag.Bool("rollback", false, "revert the latest sqlite schema migration and exit (development only)")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadWithDefaults()
	if err != nil {
		log.Fatal("load config", "err", err)
	}

	lg, closer, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatal("init logger", "err", err)
	}
	defer closer.Close()
	lg.Info("configuration loaded", "config", cfg.String())

	if *rollback {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := rollbackSchema(ctx, cfg)
		cancel()
		if err != nil {
			lg.Error("rollback failed", "err", err)
			closer.Close()
			os.Exit(1)
		}
		lg.Warn("latest migration rolled back", "path", cfg.Storage.Path)
		return
	}

	if err := run(cfg, lg, *reset); err != nil {
		lg.Error("server stopped", "err", err)
		closer.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, lg *log.Logger, reset bool) error {
	hasher := crypto.NewBcryptHasher(cfg.Auth.BcryptCost)
	store, err := newStorage(cfg, hasher)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.Open(ctx); err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(ctx); err != nil {
			lg.Error("close storage", "err", err)
		}
	}()
	lg.Info("storage open", "backend", cfg.Storage.Backend)

	if reset {
		if err := store.ClearStorage(ctx); err != nil {
			return fmt.Errorf("reset storage: %w", err)
		}
		lg.Warn("storage cleared")
	}

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL.Duration)
	gate := auth.NewGate(tokens, store, lg.WithPrefix("gate"))
	svc := service.NewTodoService(store, tokens, hasher, lg.WithPrefix("service"))

	api, err := graphql.NewHandler(svc, gate, lg.WithPrefix("graphql"))
	if err != nil {
		return fmt.Errorf("build graphql schema: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/graphql", api)
	mux.Handle("/metrics", promhttp.Handler())
	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	httpErr := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
		close(httpErr)
	}()
	lg.Info("http server listening", "addr", cfg.HTTP.Address)

	// Start gRPC
	shutdownGRPC, err := grpcserver.StartGRPC(cfg, svc, gate, lg.WithPrefix("grpc"))
	if err != nil {
		_ = httpSrv.Close()
		return fmt.Errorf("start grpc: %w", err)
	}
	lg.Info("grpc server listening", "addr", cfg.GRPC.Address)

	// Wait for signal
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	var serveErr error
	select {
	case sig := <-sigc:
		lg.Info("shutting down", "signal", sig.String())
	case serveErr = <-httpErr:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		lg.Error("http shutdown", "err", err)
	}
	if err := shutdownGRPC(shutdownCtx); err != nil {
		lg.Error("grpc shutdown", "err", err)
	}
	return serveErr
}

// newStorage builds the configured backend wrapped with metrics.
func newStorage(cfg *config.Config, hasher crypto.PasswordHasher) (repository.Storage, error) {
	var backend repository.Storage
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		backend = repository.NewMemoryStorage(hasher, nil)
	case config.BackendSQLite:
		backend = repository.NewSQLStorage(cfg.Storage.Path, hasher)
	case config.BackendNeo4j:
		backend = repository.NewGraphStorage(repository.GraphConfig{
			URI:      cfg.Storage.Neo4j.URI,
			Username: cfg.Storage.Neo4j.User,
			Password: cfg.Storage.Neo4j.Password,
			Database: cfg.Storage.Neo4j.Database,
		}, hasher)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	return metrics.InstrumentStorage(backend, cfg.Storage.Backend), nil
}

// rollbackSchema reverts the most recent migration of the SQLite database.
func rollbackSchema(ctx context.Context, cfg *config.Config) error {
	if cfg.Storage.Backend != config.BackendSQLite {
		return fmt.Errorf("rollback needs the %s backend, configured %q", config.BackendSQLite, cfg.Storage.Backend)
	}
	d, err := db.Open(ctx, cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Storage.Path, err)
	}
	defer d.Close()
	return db.RollbackLast(ctx, d)
}
