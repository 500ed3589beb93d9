package crm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"utmlens/internal/metrics"
	"utmlens/internal/pkg/telemetry"
	"utmlens/internal/timeframe"
)

type SummaryProvider interface {
	ContactMetrics(ctx context.Context, contactID string) (*metrics.ContactSummary, error)
}

type ContactUpdater interface {
	Enabled() bool
	UpdateContact(ctx context.Context, contactID string, props Properties) error
}

type StateRecorder interface {
	RecordCRMSyncAttempt(ctx context.Context, contactID string, at time.Time, syncErr error) error
}

// Syncer pushes one contact's summary to the CRM and records the outcome.
type Syncer struct {
	summaries SummaryProvider
	updater   ContactUpdater
	states    StateRecorder
	clock     timeframe.TimeProvider
	logger    *slog.Logger
}

func NewSyncer(summaries SummaryProvider, updater ContactUpdater, states StateRecorder, clock timeframe.TimeProvider, logger *slog.Logger) *Syncer {
	if clock == nil {
		clock = &timeframe.DefaultTimeProvider{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{summaries: summaries, updater: updater, states: states, clock: clock, logger: logger}
}

// Enabled reports whether syncing would reach the CRM at all.
func (s *Syncer) Enabled() bool {
	return s.updater != nil && s.updater.Enabled()
}

// SyncContact builds the contact's properties and pushes them. Disabled
// syncers return nil without recording anything.
func (s *Syncer) SyncContact(ctx context.Context, contactID string) error {
	if !s.Enabled() {
		telemetry.CRMSyncs.WithLabelValues("skipped").Inc()
		return nil
	}

	syncErr := s.push(ctx, contactID)
	if err := s.states.RecordCRMSyncAttempt(ctx, contactID, s.clock.Now(time.UTC), syncErr); err != nil {
		s.logger.Error("Failed to record CRM sync state",
			slog.String("contact_id", contactID),
			slog.Any("error", err))
	}

	if syncErr != nil {
		telemetry.CRMSyncs.WithLabelValues("failure").Inc()
		return syncErr
	}
	telemetry.CRMSyncs.WithLabelValues("success").Inc()
	return nil
}

func (s *Syncer) push(ctx context.Context, contactID string) error {
	summary, err := s.summaries.ContactMetrics(ctx, contactID)
	if err != nil {
		return fmt.Errorf("failed to build contact summary: %w", err)
	}
	return s.updater.UpdateContact(ctx, contactID, BuildProperties(summary))
}
