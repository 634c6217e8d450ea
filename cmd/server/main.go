// Package main implements the entry point for the engage API server, which
// scrapes subreddits for leads, generates responses with an LLM and
// publishes them, tracking every run as a task with live updates.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"

	"github.com/phrazzld/engage-api/internal/config"
	"github.com/phrazzld/engage-api/internal/platform/logger"
	"github.com/phrazzld/engage-api/internal/platform/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (default ./config.yaml when present)")
	migrateCmd := flag.String("migrate", "", "run a migration command (up, down, reset, status, version) and exit")
	flag.Parse()

	if err := run(context.Background(), *configPath, *migrateCmd); err != nil {
		log.Fatalf("engage-api: %v", err)
	}
}

func run(ctx context.Context, configPath, migrateCmd string) error {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	l.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("database_driver", cfg.Database.Driver),
		slog.Bool("reddit_enabled", cfg.Reddit.Enabled()),
		slog.Bool("llm_enabled", cfg.LLM.Enabled()))

	if migrateCmd != "" {
		return runMigrations(ctx, cfg, migrateCmd, l)
	}

	app, err := newApplication(ctx, cfg, l)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}

func runMigrations(ctx context.Context, cfg *config.Config, command string, l *slog.Logger) error {
	if cfg.Database.Driver != "postgres" {
		return fmt.Errorf("cannot migrate with database driver %q", cfg.Database.Driver)
	}

	db, err := postgres.Open(ctx, cfg.Database.URL, l)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			l.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}()

	return postgres.Migrate(ctx, db, command, l)
}
