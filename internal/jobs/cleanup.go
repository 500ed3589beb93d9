package jobs

import (
	"context"
	"log/slog"
	"time"

	"utmlens/internal/config"
	"utmlens/internal/store"
	"utmlens/internal/timeframe"
)

// CleanupJob removes CRM sync states that succeeded long ago. Failed states
// are kept so the retry job and operators can still see them.
type CleanupJob struct {
	dbManager ConnectionProvider
	logger    *slog.Logger
	cfg       *config.Config
	clock     timeframe.TimeProvider
	batchSize int
	pause     time.Duration
}

func NewCleanupJob(dbManager ConnectionProvider, logger *slog.Logger, cfg *config.Config, clock timeframe.TimeProvider) *CleanupJob {
	if clock == nil {
		clock = &timeframe.DefaultTimeProvider{}
	}
	return &CleanupJob{
		dbManager: dbManager,
		logger:    logger,
		cfg:       cfg,
		clock:     clock,
		batchSize: 1000,
		pause:     100 * time.Millisecond,
	}
}

// Run deletes successful sync states older than the retention period, in
// batches.
func (j *CleanupJob) Run() error {
	retentionDays := j.cfg.SyncStateRetentionDays
	if retentionDays <= 0 {
		j.logger.Debug("Sync state cleanup disabled")
		return nil
	}
	cutoffDate := j.clock.Now(time.UTC).AddDate(0, 0, -retentionDays)
	st := store.New(j.dbManager.GetConnection(), j.logger)
	ctx := context.Background()

	j.logger.Info("Starting cleanup of old CRM sync states",
		slog.Int("retention_days", retentionDays),
		slog.Time("cutoff_date", cutoffDate))

	totalDeleted := int64(0)
	for {
		deleted, err := st.PruneCRMSyncStates(ctx, cutoffDate, j.batchSize)
		if err != nil {
			j.logger.Error("Failed to delete old CRM sync states",
				slog.Any("error", err),
				slog.Int64("deleted_so_far", totalDeleted))
			return err
		}

		totalDeleted += deleted

		if deleted < int64(j.batchSize) {
			break
		}

		// Small delay between batches to prevent database lock contention
		time.Sleep(j.pause)
	}

	j.logger.Info("Cleaned up old CRM sync states",
		slog.Int64("deleted_count", totalDeleted),
		slog.Int("retention_days", retentionDays))

	return nil
}
