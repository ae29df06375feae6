package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meikuraledutech/bpmn"
	"github.com/meikuraledutech/bpmn/internal/config"
	"github.com/meikuraledutech/bpmn/postgres"
	"github.com/meikuraledutech/bpmn/sqlite"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run serves until the listener fails. Stores are closed on return.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := cfg.Logger(os.Stderr)

	var store bpmn.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		defer pool.Close()
		store = postgres.New(pool)
	} else {
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("open: %w", err)
		}
		defer s.Close()
		store = s
	}
	if err := store.CreateSchema(ctx); err != nil {
		return fmt.Errorf("schema: %w", err)
	}

	app := newApp(newServer(store, cfg.Layout, logger))
	logger.Info("bpmn: listening", "addr", cfg.HTTPAddr)
	if err := app.Listen(cfg.HTTPAddr); err != nil {
		logger.Error("bpmn: server stopped", "error", err)
		return err
	}
	return nil
}
