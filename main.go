package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to YAML config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config:\n%w", err)
	}

	logger, err := NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	var db *DB
	if cfg.Database.Path != "" {
		if db, err = OpenDB(cfg.Database.Path); err != nil {
			return err
		}
		defer db.Close()
		logger.Infow("database opened", "path", cfg.Database.Path)
	}

	analytics := NewAnalytics(db, logger.Named("analytics"))
	defer analytics.Stop()

	auth, err := NewAdminAuth(cfg.Admin, db, logger.Named("admin"))
	if err != nil {
		return err
	}

	world := NewWorld(logger.Named("world"))
	hub := NewHub(world, analytics, cfg.Limits, logger.Named("hub"))
	admin := NewAdmin(auth, hub, analytics, logger.Named("admin"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); world.Run(ctx) }()
	go func() { defer wg.Done(); hub.Run(ctx) }()

	server := &http.Server{Addr: cfg.Addr, Handler: SetupRoutes(hub, admin, cfg)}
	serveErr := make(chan error, 1)
	go func() {
		logger.Infow("server starting", "addr", cfg.Addr, "client_dir", cfg.ClientDir, "admin", auth.Enabled())
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			stop()
			wg.Wait()
			return fmt.Errorf("listen: %w", err)
		}
	}

	logger.Infow("shutting down")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("http shutdown", "err", err)
		server.Close()
	}
	hub.CloseAll()
	wg.Wait()
	logger.Infow("server stopped")
	return nil
}
