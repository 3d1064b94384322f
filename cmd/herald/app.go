package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	// Registers the pgx database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kanbanflow/herald/internal/api"
	"github.com/kanbanflow/herald/internal/config"
	"github.com/kanbanflow/herald/internal/dispatch"
	"github.com/kanbanflow/herald/internal/domain"
	"github.com/kanbanflow/herald/internal/permission"
	"github.com/kanbanflow/herald/internal/platform/postgres"
	"github.com/kanbanflow/herald/internal/platform/surface"
	"github.com/kanbanflow/herald/internal/queue"
	"github.com/kanbanflow/herald/internal/settings"
	"github.com/kanbanflow/herald/internal/source"
	"github.com/kanbanflow/herald/internal/worker"
)

const shutdownTimeout = 10 * time.Second

// application holds the shared dependencies so startup and shutdown stay
// in one place, torn down in reverse construction order.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	settingsService *settings.Service
	permissions     *permission.Manager
	dispatcher      *dispatch.Dispatcher
	controller      *queue.Controller
	channel         *source.WebsocketClient
	adapter         *source.Adapter
	workerRouter    *worker.Router
	httpServer      *http.Server
}

// newApplication wires the pipeline together:
// channel adapter → queue controller → dispatcher → surface, with the
// worker router alongside and the HTTP surface for settings and consent.
func newApplication(ctx context.Context, cfg *config.Config, log *slog.Logger) (*application, error) {
	app := &application{config: cfg, logger: log}

	// Preferences storage: Postgres when configured, in-memory otherwise.
	var store settings.Store
	if cfg.Database.URL != "" {
		db, err := sql.Open("pgx", cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		if err := postgres.Migrate(ctx, db, log); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		app.db = db
		store = postgres.NewPreferencesStore(db)
	} else {
		log.Warn("no database configured, preferences will not survive restarts")
		store = settings.NewMemory()
	}

	settingsService, err := settings.NewService(ctx, store, cfg.Channel.UserID, log)
	if err != nil {
		return nil, err
	}
	app.settingsService = settingsService

	// Display surfaces and the background worker.
	foreground := surface.NewMemory()
	registry := worker.NewMemoryRegistry()
	app.workerRouter = worker.NewRouter(worker.Config{
		AppOrigin: originFromChannelURL(cfg.Channel.URL),
		InboxSize: cfg.Worker.InboxSize,
	}, foreground, registry, log)

	// Permission and dispatch. The platform authorizer starts unprompted;
	// consent arrives through POST /permission/request.
	initial := domain.PermissionDefault
	if !foreground.Supported() {
		initial = domain.PermissionUnsupported
	}
	authorizer := permission.NewStateAuthorizer(initial, domain.PermissionGranted)
	app.permissions = permission.NewManager(authorizer, log)

	var workerClient dispatch.WorkerClient
	if cfg.Worker.Enabled {
		workerClient = app.workerRouter
	}
	app.dispatcher = dispatch.New(app.permissions, foreground, workerClient, log)
	app.permissions.SetPresenter(app.dispatcher)

	// The queue controller and the channel feeding it.
	app.controller = queue.NewController(settingsService, app.dispatcher, queue.Config{
		DedupWindow: cfg.Notify.DedupWindow,
		Spacing:     cfg.Notify.DispatchSpacing,
		Capacity:    cfg.Notify.QueueCapacity,
	}, log)

	app.channel = source.NewWebsocketClient(source.WebsocketConfig{
		URL:              cfg.Channel.URL,
		Token:            cfg.Channel.Token,
		LivenessInterval: cfg.Notify.LivenessInterval,
	}, log)
	app.adapter = source.NewAdapter(app.channel, app.controller, cfg.Channel.UserID, log)

	app.httpServer = &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(
			api.NewSettingsHandler(settingsService, log),
			api.NewPermissionHandler(app.permissions, log),
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return app, nil
}

// Run starts every component and blocks until the context is canceled or
// the HTTP server fails, then shuts down in reverse order.
func (app *application) Run(ctx context.Context) error {
	app.workerRouter.Start()
	if err := app.workerRouter.Activate(ctx); err != nil {
		app.logger.Warn("worker activation failed, foreground delivery only",
			slog.Any("error", err))
	}

	channelCtx, stopChannel := context.WithCancel(ctx)
	defer stopChannel()
	go func() {
		if err := app.channel.Run(channelCtx); err != nil && !errors.Is(err, context.Canceled) {
			app.logger.Error("channel client stopped", slog.Any("error", err))
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		app.logger.Info("http server listening", slog.String("addr", app.httpServer.Addr))
		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		app.logger.Info("shutdown signal received")
	case err := <-serverErr:
		app.shutdown()
		return fmt.Errorf("http server failed: %w", err)
	}

	app.shutdown()
	return nil
}

// shutdown tears components down in reverse construction order: stop
// accepting HTTP requests, close the channel subscriptions, drain the
// controller, stop the worker, release the database.
func (app *application) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		app.logger.Warn("http server shutdown failed", slog.Any("error", err))
	}

	app.adapter.Close()
	app.controller.Stop()
	app.workerRouter.Stop()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Warn("database close failed", slog.Any("error", err))
		}
	}

	app.logger.Info("shutdown complete")
}

// originFromChannelURL derives the application origin from the channel
// endpoint: wss://host/path becomes https://host.
func originFromChannelURL(channelURL string) string {
	i := strings.Index(channelURL, "://")
	if i < 0 {
		return channelURL
	}

	scheme := channelURL[:i]
	rest := channelURL[i+3:]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		rest = rest[:j]
	}

	switch scheme {
	case "ws":
		return "http://" + rest
	case "wss":
		return "https://" + rest
	default:
		return scheme + "://" + rest
	}
}
