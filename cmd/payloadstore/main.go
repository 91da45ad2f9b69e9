package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UltraSive/payload-store/internal/cleaner"
	"github.com/UltraSive/payload-store/internal/config"
	"github.com/UltraSive/payload-store/internal/datastore"
	"github.com/UltraSive/payload-store/internal/datastore/bolt"
	"github.com/UltraSive/payload-store/internal/datastore/memory"
	"github.com/UltraSive/payload-store/internal/datastore/postgres"
	"github.com/UltraSive/payload-store/internal/datastore/rocksdb"
	"github.com/UltraSive/payload-store/internal/handler"
	"github.com/UltraSive/payload-store/internal/store"
	"github.com/UltraSive/payload-store/internal/transport"
	"github.com/UltraSive/payload-store/pkg/logger"
)

func main() {
	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// --- Logger ---
	log := logger.New(logger.Options{Stdout: os.Stdout, File: cfg.LogFile})
	log.SetLogLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, log, openDatastore)
	stop()
	// run owns every deferred cleanup; Fatal exits only after they ran.
	if err != nil {
		log.Fatal("payloadstore failed", err, "backend", cfg.Backend.Kind)
	}
}

type opener func(ctx context.Context, b config.Backend) (datastore.Datastore, error)

func run(ctx context.Context, cfg *config.Config, log logger.Logger, open opener) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	// --- Datastore ---
	ds, err := open(ctx, cfg.Backend)
	if err != nil {
		return fmt.Errorf("open datastore: %w", err)
	}
	defer func() {
		if err := ds.Close(); err != nil {
			log.Warn("close datastore", "error", err.Error())
		}
	}()

	// --- Store (schema + startup sweep) ---
	st := store.New(ds, store.WithLogger(logger.NewPrefixedLogger(log, "store")))
	if err := st.Prepare(ctx); err != nil {
		return fmt.Errorf("prepare store: %w", err)
	}

	// --- Handler ---
	h := handler.New(st, log)

	// --- Unix Socket Listener (optional) ---
	var sock *transport.SocketServer
	if cfg.SocketPath != "" {
		sock = transport.NewSocketServer(h, logger.NewPrefixedLogger(log, "socket"))
		go func() {
			if err := sock.ListenAndServe(cfg.SocketPath); err != nil {
				log.Error("unix socket server error", err, "path", cfg.SocketPath)
			}
		}()
	}

	// --- HTTP Server ---
	httpSrv := &http.Server{
		Addr:              config.ListenAddr,
		Handler:           transport.NewHTTPRouter(h, transport.HTTPOptions{RateLimit: cfg.RateLimit, RateBurst: cfg.RateBurst}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("listening", "addr", config.ListenAddr, "backend", cfg.Backend.Kind)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", err)
			stop()
		}
	}()

	// --- Cleaner (only if SWEEP_INTERVAL > 0) ---
	if cfg.SweepInterval > 0 {
		go cleaner.New(st, cfg.SweepInterval, logger.NewPrefixedLogger(log, "cleaner")).Start(ctx)
	}

	// --- Wait for Interrupt ---
	<-ctx.Done()
	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err.Error())
	}
	if sock != nil {
		_ = sock.Close()
	}
	log.Info("shutdown complete")
	return nil
}

func openDatastore(ctx context.Context, b config.Backend) (datastore.Datastore, error) {
	switch b.Kind {
	case config.BackendPostgres:
		return postgres.Open(ctx, b.Target)
	case config.BackendBolt:
		return bolt.Open(b.Target)
	case config.BackendRocksDB:
		return rocksdb.NewRocksDB(b.Target)
	case config.BackendMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", b.Kind)
	}
}
