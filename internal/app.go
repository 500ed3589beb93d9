// Package internal assembles the utmlens server: database, routes and
// background jobs.
package internal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"

	"utmlens/internal/config"
	"utmlens/internal/crm"
	"utmlens/internal/database"
	"utmlens/internal/jobs"
)

// syncDrainTimeout bounds how long shutdown waits for in-flight CRM syncs
// before closing the database.
const syncDrainTimeout = 10 * time.Second

// Application wraps cartridge.Application with the utmlens database manager
// and the CRM sync dispatcher shared by all handlers.
type Application struct {
	*cartridge.Application
	DBManager  *database.DBManager
	Dispatcher *crm.Dispatcher
	logger     *slog.Logger
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	return NewAppWithConfig(config.GetConfig())
}

// NewAppWithConfig creates a new application with the provided config
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	return NewAppWithRoutes(cfg, nil)
}

// NewAppWithRoutes creates a new application with custom route mounting
// function. A nil routeMount mounts the application routes.
func NewAppWithRoutes(cfg *config.Config, routeMount func(*cartridge.Server)) (*Application, error) {
	logger := cartridge.NewLogger(cfg, nil)

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	client := crm.NewClientFromConfig(cfg, logger)
	dispatcher := NewSyncDispatcher(cfg, dbManager.GetConnection(), client, logger)
	if routeMount == nil {
		routeMount = MountAppRoutes(cfg, dispatcher, client)
	}

	// Retries use their own HubSpot client and request budget
	scheduler, err := jobs.NewScheduler(dbManager, crm.NewClientFromConfig(cfg, logger), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize jobs: %w", err)
	}

	app, err := cartridge.NewApplication(cartridge.ApplicationOptions{
		Config:            cfg,
		Logger:            logger,
		DBManager:         dbManager,
		RouteMountFunc:    routeMount,
		BackgroundWorkers: []cartridge.BackgroundWorker{scheduler},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	return &Application{
		Application: app,
		DBManager:   dbManager,
		Dispatcher:  dispatcher,
		logger:      logger,
	}, nil
}

// Shutdown drains in-flight CRM syncs, then stops the server, workers and
// database.
func (a *Application) Shutdown(ctx context.Context) error {
	drainCtx, cancel := context.WithTimeout(ctx, syncDrainTimeout)
	defer cancel()

	if err := a.Dispatcher.Close(drainCtx); err != nil {
		a.logger.Warn("Shutting down with CRM syncs in flight", slog.Any("error", err))
	}
	return a.Application.Shutdown(ctx)
}
