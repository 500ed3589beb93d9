// Package store binds the domain packages' storage interfaces to one gorm
// connection. Reads run on the connection directly; writes go through
// sqlite.PerformWrite so they serialize with the rest of the app.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"utmlens/internal/attribution"
	"utmlens/internal/channels"
	"utmlens/internal/costs"
	"utmlens/internal/crm"
	"utmlens/internal/metrics"
	"utmlens/internal/normalization"
	"utmlens/internal/seeder"
	"utmlens/internal/settings"
	"utmlens/internal/timeframe"
	"utmlens/internal/touchpoints"
)

// Models lists every persisted type, in migration order.
func Models() []interface{} {
	return []interface{}{
		&settings.Setting{},
		&normalization.Rule{},
		&channels.Mapping{},
		&touchpoints.Record{},
		&attribution.Event{},
		&costs.ChannelCost{},
		&crm.SyncState{},
	}
}

type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

func New(db *gorm.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *Store) write(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return sqlite.PerformWrite(s.logger, s.conn(ctx), fn)
}

// Clear removes all domain data. Settings are kept.
func (s *Store) Clear(ctx context.Context) error {
	models := Models()
	return s.write(ctx, func(tx *gorm.DB) error {
		for i := len(models) - 1; i >= 0; i-- {
			if _, ok := models[i].(*settings.Setting); ok {
				continue
			}
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(models[i]).Error; err != nil {
				return fmt.Errorf("failed to clear %T: %w", models[i], err)
			}
		}
		return nil
	})
}

func (s *Store) SeedDefaults(ctx context.Context) error {
	return seeder.SeedDefaults(s.conn(ctx), s.logger)
}

func (s *Store) ActiveNormalizationRules(ctx context.Context) ([]normalization.Rule, error) {
	return normalization.ListActiveRules(s.conn(ctx))
}

func (s *Store) ActiveSourceMappings(ctx context.Context) ([]channels.Mapping, error) {
	return channels.ListActiveMappings(s.conn(ctx))
}

func (s *Store) SaveTouchpoint(ctx context.Context, record *touchpoints.Record) error {
	return s.write(ctx, func(tx *gorm.DB) error {
		return touchpoints.CreateRecord(tx, record)
	})
}

func (s *Store) TouchpointsForContact(ctx context.Context, contactID string) ([]touchpoints.Record, error) {
	return touchpoints.ListRecordsForContact(s.conn(ctx), contactID)
}

func (s *Store) TouchpointsByIDs(ctx context.Context, ids []string) (map[string]touchpoints.Record, error) {
	return touchpoints.ListRecordsByIDs(s.conn(ctx), ids)
}

func (s *Store) DistinctTouchpointChannels(ctx context.Context) ([]string, error) {
	return touchpoints.DistinctChannels(s.conn(ctx))
}

func (s *Store) SaveAttributionEvents(ctx context.Context, events []attribution.Event) error {
	return s.write(ctx, func(tx *gorm.DB) error {
		return attribution.CreateEvents(tx, events)
	})
}

func (s *Store) AttributionEventsForContact(ctx context.Context, contactID string) ([]attribution.Event, error) {
	return attribution.ListEventsForContact(s.conn(ctx), contactID)
}

func (s *Store) ReplaceAttributionEvents(ctx context.Context, contactID string, events []attribution.Event) error {
	return s.write(ctx, func(tx *gorm.DB) error {
		removed, err := attribution.DeleteEventsForContact(tx, contactID)
		if err != nil {
			return err
		}
		if err := attribution.CreateEvents(tx, events); err != nil {
			return err
		}
		s.logger.Debug("Attribution events replaced",
			slog.String("contact_id", contactID),
			slog.Int64("removed", removed),
			slog.Int("created", len(events)))
		return nil
	})
}

func (s *Store) EventsWithin(ctx context.Context, f attribution.EventFilter) ([]attribution.Event, error) {
	return attribution.ListEvents(s.conn(ctx), f)
}

func (s *Store) CostsWithin(ctx context.Context, f costs.Filter) ([]costs.ChannelCost, error) {
	return costs.ListCosts(s.conn(ctx), f)
}

func (s *Store) DistinctCostChannels(ctx context.Context) ([]string, error) {
	return costs.DistinctChannels(s.conn(ctx))
}

func (s *Store) RecordCRMSyncAttempt(ctx context.Context, contactID string, at time.Time, syncErr error) error {
	return s.write(ctx, func(tx *gorm.DB) error {
		return crm.RecordAttempt(tx, contactID, at, syncErr)
	})
}

// RetryableCRMSyncs returns failed syncs still under maxAttempts whose last
// attempt is at or before before.
func (s *Store) RetryableCRMSyncs(ctx context.Context, maxAttempts int, before time.Time, limit int) ([]crm.SyncState, error) {
	return crm.ListRetryable(s.conn(ctx), maxAttempts, before, limit)
}

// PruneCRMSyncStates deletes up to limit successful states older than
// cutoff.
func (s *Store) PruneCRMSyncStates(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	var removed int64
	err := s.write(ctx, func(tx *gorm.DB) error {
		n, err := crm.DeleteSucceededBefore(tx, cutoff, limit)
		removed = n
		return err
	})
	return removed, err
}

// Normalizer returns an engine that reads the active rules on every call.
func (s *Store) Normalizer() *normalization.Engine {
	return normalization.NewEngine(s)
}

// Mapper returns a mapper that reads the active mappings on every call.
func (s *Store) Mapper() *channels.Mapper {
	return channels.NewMapper(s)
}

// Calculator returns an attribution calculator over this store.
func (s *Store) Calculator(clock timeframe.TimeProvider, halfLife time.Duration) *attribution.Calculator {
	return attribution.NewCalculator(s, s, clock, s.logger).WithDefaultHalfLife(halfLife)
}

// Ingestor returns the touchpoint pipeline over this store.
func (s *Store) Ingestor(dispatcher touchpoints.SyncDispatcher, clock timeframe.TimeProvider) *touchpoints.Ingestor {
	return touchpoints.NewIngestor(s.Normalizer(), s.Mapper(), s, dispatcher, clock, s.logger)
}

func (s *Store) Aggregator() *metrics.Aggregator {
	return metrics.NewAggregator(s, s.logger)
}
