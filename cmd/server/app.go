package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/engage-api/internal/broadcast"
	"github.com/phrazzld/engage-api/internal/config"
	"github.com/phrazzld/engage-api/internal/dispatch"
	"github.com/phrazzld/engage-api/internal/engage"
	"github.com/phrazzld/engage-api/internal/events"
	"github.com/phrazzld/engage-api/internal/generation"
	"github.com/phrazzld/engage-api/internal/jobs"
	"github.com/phrazzld/engage-api/internal/orchestrator"
	"github.com/phrazzld/engage-api/internal/platform/gemini"
	"github.com/phrazzld/engage-api/internal/platform/memory"
	"github.com/phrazzld/engage-api/internal/platform/postgres"
	"github.com/phrazzld/engage-api/internal/platform/reddit"
	"github.com/phrazzld/engage-api/internal/service/tasks"
	"github.com/phrazzld/engage-api/internal/store"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	taskStore       store.TaskStore
	postStore       store.PostStore
	commentStore    store.CommentStore
	completionStore store.CompletionStore

	bus          *dispatch.Bus
	emitter      *events.InMemoryEventEmitter
	hub          *broadcast.Hub
	runner       *jobs.Runner
	reaper       *tasks.Reaper
	taskService  tasks.Service
	orchestrator *orchestrator.Orchestrator
	engage       *engage.Service
}

// newApplication builds every component from cfg, registers the bus
// handlers and starts the background workers.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	if err := app.setupStores(ctx); err != nil {
		return nil, err
	}

	// Live updates: every task event is pushed to the owning agent's channels.
	app.hub = broadcast.NewHub(logger)
	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.RegisterHandler(broadcast.NewTaskEventHandler(app.hub))

	var err error
	app.taskService, err = tasks.NewService(app.taskStore, app.emitter, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	app.bus = dispatch.NewBus()
	if err := registerHandlers(app.bus, app.taskService, engage.Stores{
		Posts:    app.postStore,
		Comments: app.commentStore,
		DB:       app.db,
	}, app.completionStore, logger); err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to register bus handlers: %w", err)
	}
	app.bus.Seal()

	app.runner = jobs.NewRunner(jobs.Config{
		WorkerCount: cfg.Task.WorkerCount,
		QueueSize:   cfg.Task.QueueSize,
	}, logger)
	app.runner.Start()

	app.reaper = tasks.NewReaper(app.taskService, cfg.Task.MaxRunning, cfg.Task.ReaperInterval, logger)
	app.reaper.Start()

	pacer := orchestrator.NewPacer(cfg.Pacing.MinInterval, cfg.Pacing.RequestsPerMinute)
	app.orchestrator = orchestrator.New(app.bus, app.runner, pacer, logger)

	platform, generator, err := setupClients(ctx, cfg, logger)
	if err != nil {
		app.cleanup()
		return nil, err
	}
	app.engage = engage.NewService(app.bus, app.orchestrator, platform, generator, engage.Config{
		DefaultTargets: cfg.Reddit.DefaultTargets,
		TopLimit:       cfg.Reddit.TopLimit,
		CommentLimit:   cfg.Reddit.CommentLimit,
	}, logger)

	logger.Info("application initialized successfully")
	return app, nil
}

// setupStores picks the persistence backend named by the database driver.
func (app *application) setupStores(ctx context.Context) error {
	switch app.config.Database.Driver {
	case "memory":
		app.taskStore = memory.NewTaskStore()
		app.postStore = memory.NewPostStore()
		app.commentStore = memory.NewCommentStore()
		app.completionStore = memory.NewCompletionStore()
		app.logger.Warn("using in-memory stores; data is lost on restart")
	case "postgres":
		db, err := postgres.Open(ctx, app.config.Database.URL, app.logger)
		if err != nil {
			return err
		}
		app.db = db
		app.taskStore = postgres.NewPostgresTaskStore(db, app.logger)
		app.postStore = postgres.NewPostgresPostStore(db, app.logger)
		app.commentStore = postgres.NewPostgresCommentStore(db, app.logger)
		app.completionStore = postgres.NewPostgresCompletionStore(db, app.logger)
	default:
		return fmt.Errorf("unsupported database driver %q", app.config.Database.Driver)
	}
	return nil
}

// registerHandlers binds every command and query on bus.
func registerHandlers(
	bus *dispatch.Bus,
	taskService tasks.Service,
	posts engage.Stores,
	completions store.CompletionStore,
	logger *slog.Logger,
) error {
	if err := tasks.Register(bus, taskService); err != nil {
		return err
	}
	if err := engage.RegisterPosts(bus, posts, logger); err != nil {
		return err
	}
	return orchestrator.RegisterCompletions(bus, completions)
}

// setupClients builds the external clients that have credentials configured.
// Missing credentials leave the client nil and the flows needing it refused.
func setupClients(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
) (engage.Platform, generation.Generator, error) {
	var platform engage.Platform
	if cfg.Reddit.Enabled() {
		client, err := reddit.NewClient(cfg.Reddit, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create reddit client: %w", err)
		}
		platform = client
		logger.Info("reddit client initialized", slog.String("base_url", cfg.Reddit.BaseURL))
	} else {
		logger.Warn("reddit credentials not configured; scrape and publish are disabled")
	}

	var generator generation.Generator
	if cfg.LLM.Enabled() {
		g, err := gemini.NewGenerator(ctx, logger, cfg.LLM)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize LLM generator: %w", err)
		}
		generator = g
		logger.Info("LLM generator initialized", slog.String("model", cfg.LLM.ModelName))
	} else {
		logger.Warn("gemini API key not configured; generation is disabled")
	}

	return platform, generator, nil
}

// Run serves HTTP until ctx is cancelled or a shutdown signal arrives.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops the background workers before the hub and the database they
// report through. Jobs still queued are marked failed on the way out.
func (app *application) cleanup() {
	if app.reaper != nil {
		app.reaper.Stop()
	}
	if app.runner != nil {
		app.runner.Stop()
	}
	if app.hub != nil {
		app.hub.Close()
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}

	app.logger.Info("application shutdown completed")
}
