package database

import (
	"context"
	"log/slog"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"utmlens/internal/config"
	"utmlens/internal/settings"
	"utmlens/internal/store"
)

// DBManager wraps cartridge's sqlite.Manager with the migration and seeding
// steps run at boot.
type DBManager struct {
	*sqlite.Manager
	logger *slog.Logger
}

// NewDBManager creates a new database manager using cartridge's sqlite.Manager.
func NewDBManager(cfg *config.Config, logger *slog.Logger) *DBManager {
	sqliteCfg := sqlite.Config{
		Path:         cfg.DatabaseName,
		MaxOpenConns: cfg.GetMaxOpenConns(),
		MaxIdleConns: cfg.GetMaxIdleConns(),
		Logger:       logger,
		EnableWAL:    true,
		TxImmediate:  true,
		BusyTimeout:  5000,
	}

	return &DBManager{
		Manager: sqlite.NewManager(sqliteCfg),
		logger:  logger,
	}
}

// Init initializes the database connection.
func (dm *DBManager) Init() error {
	_, err := dm.Manager.Connect()
	return err
}

// MigrateDatabase creates or updates every table.
func (dm *DBManager) MigrateDatabase() error {
	db := dm.GetConnection()
	if db == nil {
		return gorm.ErrInvalidDB
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.AutoMigrate(store.Models()...)
	})
	if err != nil {
		dm.logger.Error("Failed to auto-migrate database", slog.Any("error", err))
		return err
	}

	if err := dm.CheckpointWAL("FULL"); err != nil {
		dm.logger.Warn("Failed to checkpoint WAL after migration", slog.Any("error", err))
	}

	dm.logger.Info("Database migration completed successfully")
	return nil
}

// Bootstrap seeds the default rules, mappings and attribution settings on a
// migrated database. Existing data is left untouched.
func (dm *DBManager) Bootstrap(cfg *config.Config) error {
	db := dm.GetConnection()
	if db == nil {
		return gorm.ErrInvalidDB
	}

	if err := settings.SetupDefaultSettings(db, settings.DefaultsFromConfig(cfg)); err != nil {
		dm.logger.Error("Failed to set up default settings", slog.Any("error", err))
		return err
	}

	return store.New(db, dm.logger).SeedDefaults(context.Background())
}
