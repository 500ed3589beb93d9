package jobs

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"utmlens/internal/config"
	"utmlens/internal/crm"
	"utmlens/internal/store"
	"utmlens/internal/timeframe"
)

// ConnectionProvider hands out the shared database connection.
type ConnectionProvider interface {
	GetConnection() *gorm.DB
}

const retryBatchSize = 100

// CRMRetryJob re-pushes contacts whose last CRM sync failed.
type CRMRetryJob struct {
	dbManager ConnectionProvider
	updater   crm.ContactUpdater
	logger    *slog.Logger
	cfg       *config.Config
	clock     timeframe.TimeProvider
}

func NewCRMRetryJob(dbManager ConnectionProvider, updater crm.ContactUpdater, logger *slog.Logger, cfg *config.Config, clock timeframe.TimeProvider) *CRMRetryJob {
	if clock == nil {
		clock = &timeframe.DefaultTimeProvider{}
	}
	return &CRMRetryJob{
		dbManager: dbManager,
		updater:   updater,
		logger:    logger,
		cfg:       cfg,
		clock:     clock,
	}
}

// Run retries up to one batch of failed syncs whose last attempt is at
// least one retry interval old. Individual failures are recorded by the
// syncer and do not stop the batch.
func (j *CRMRetryJob) Run() error {
	st := store.New(j.dbManager.GetConnection(), j.logger)
	syncer := crm.NewSyncer(st.Aggregator(), j.updater, st, j.clock, j.logger)
	if !syncer.Enabled() {
		return nil
	}

	ctx := context.Background()
	before := j.clock.Now(time.UTC).Add(-j.cfg.GetCRMRetryInterval())
	states, err := st.RetryableCRMSyncs(ctx, j.cfg.CRMMaxAttempts, before, retryBatchSize)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return nil
	}

	var succeeded int
	for _, state := range states {
		if err := syncer.SyncContact(ctx, state.ContactID); err != nil {
			j.logger.Warn("CRM sync retry failed",
				slog.String("contact_id", state.ContactID),
				slog.Int("attempts", state.Attempts+1),
				slog.Any("error", err))
			continue
		}
		succeeded++
	}

	j.logger.Info("CRM sync retries finished",
		slog.Int("retried", len(states)),
		slog.Int("succeeded", succeeded))
	return nil
}
