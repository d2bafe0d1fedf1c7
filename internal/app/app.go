// Package app wires the stores, the notification capability and the screens
// into one running medreminder instance.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gmsas95/medreminder/internal/account"
	"github.com/gmsas95/medreminder/internal/api"
	"github.com/gmsas95/medreminder/internal/catalog"
	"github.com/gmsas95/medreminder/internal/config"
	"github.com/gmsas95/medreminder/internal/entry"
	"github.com/gmsas95/medreminder/internal/metrics"
	"github.com/gmsas95/medreminder/internal/notify"
	"github.com/gmsas95/medreminder/internal/store"
	"github.com/gmsas95/medreminder/internal/tui"
)

type App struct {
	Config   *config.Config
	Store    *store.Store
	Logger   *zap.Logger
	Catalog  *catalog.Holder
	Accounts *account.Manager
	Outbox   *notify.Outbox
	Metrics  *metrics.Metrics
	Version  string

	dispatcher *notify.Dispatcher
}

// New builds the application. A configured catalog file that cannot be read
// is an error; without one the built-in catalog is used.
func New(cfg *config.Config, st *store.Store, logger *zap.Logger, version string) (*App, error) {
	cat := catalog.Default()
	if cfg.Form.CatalogPath != "" {
		loaded, err := catalog.Load(cfg.Form.CatalogPath)
		if err != nil {
			return nil, err
		}
		cat = loaded
	}

	return &App{
		Config:   cfg,
		Store:    st,
		Logger:   logger,
		Catalog:  catalog.NewHolder(cat),
		Accounts: account.NewManager(st, cfg.Security.JWTSecret, cfg.TokenTTL()),
		Outbox:   notify.NewOutbox(st, cfg.Notify.PermissionGranted, logger),
		Metrics:  metrics.Default(),
		Version:  version,
	}, nil
}

// WatchCatalog reloads the catalog file on change until ctx is done. It does
// nothing when no file is configured or watching is off.
func (app *App) WatchCatalog(ctx context.Context) {
	if app.Config.Form.CatalogPath == "" || !app.Config.Form.WatchCatalog {
		return
	}
	go func() {
		if err := catalog.Watch(ctx, app.Config.Form.CatalogPath, app.Catalog, app.Logger); err != nil {
			app.Logger.Warn("Catalog watcher stopped", zap.Error(err))
		}
	}()
}

// NewSession opens an entry screen for user in the configured interaction
// model and clock.
func (app *App) NewSession(ctx context.Context, user string) *entry.Session {
	loc, err := app.Config.Location()
	if err != nil {
		loc = time.Local
	}
	return entry.New(ctx, entry.Options{
		UserID:   user,
		Model:    app.Config.InteractionModel(),
		Catalog:  app.Catalog,
		Notifier: app.Outbox,
		Now:      func() time.Time { return time.Now().In(loc) },
		Logger:   app.Logger,
		Metrics:  app.Metrics,
	})
}

// StartDispatcher begins delivering due reminders.
func (app *App) StartDispatcher() error {
	deliverer, err := notify.Build(app.Config.Notify, app.Logger)
	if err != nil {
		return err
	}
	app.dispatcher = notify.NewDispatcher(notify.DispatcherConfig{
		Tick:      app.Config.Notify.Tick,
		BatchSize: app.Config.Notify.BatchSize,
		Withheld:  !app.Config.Notify.PermissionGranted,
	}, app.Store, deliverer, app.Metrics, app.Logger)
	return app.dispatcher.Start()
}

func (app *App) RunServer() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app.WatchCatalog(ctx)

	if err := app.StartDispatcher(); err != nil {
		app.Logger.Fatal("Failed to start dispatcher", zap.Error(err))
	}

	server := api.New(app.Config, api.Deps{
		Accounts: app.Accounts,
		Outbox:   app.Outbox,
		Catalog:  app.Catalog,
		Metrics:  app.Metrics,
	}, app.Logger)

	go func() {
		if err := server.Start(); err != nil {
			app.Logger.Fatal("Server error", zap.Error(err))
		}
	}()

	app.Logger.Info("Server started",
		zap.String("address", app.Config.Server.Address),
		zap.Int("port", app.Config.Server.Port),
		zap.String("url", fmt.Sprintf("http://localhost:%d", app.Config.Server.Port)),
		zap.String("interaction_model", app.Config.InteractionModel().String()),
		zap.Strings("deliverers", app.Config.Notify.Deliverers),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info("Shutting down...")

	app.dispatcher.Stop()

	if err := server.Shutdown(); err != nil {
		app.Logger.Error("Server shutdown error", zap.Error(err))
	}
}

// RunForm shows the entry screen for the signed-in user in the terminal.
// Reminders are delivered while the screen is open.
func (app *App) RunForm() error {
	user, err := app.Accounts.CurrentUser()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app.WatchCatalog(ctx)
	if err := app.StartDispatcher(); err != nil {
		return err
	}
	defer app.dispatcher.Stop()

	sub, err := tui.Run(ctx, app.NewSession(ctx, user))
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if sub != nil {
		fmt.Println(sub.Message)
	}
	return nil
}

func (app *App) Close() error {
	return app.Store.Close()
}
