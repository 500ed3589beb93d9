// Package touchpoints stores marketing touchpoints and runs the ingestion
// pipeline: raw parameters are normalized, classified and persisted.
package touchpoints

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"utmlens/internal/channels"
	"utmlens/internal/normalization"
	"utmlens/internal/pkg/referrers"
	"utmlens/internal/pkg/telemetry"
	"utmlens/internal/timeframe"
	"utmlens/internal/utm"
)

type Normalizer interface {
	Normalize(ctx context.Context, params utm.Params) (utm.Params, error)
}

type Classifier interface {
	MapToSource(ctx context.Context, params utm.Params) (channels.Result, error)
}

type Writer interface {
	SaveTouchpoint(ctx context.Context, record *Record) error
}

// SyncDispatcher pushes a contact's attribution summary to the CRM without
// blocking the caller.
type SyncDispatcher interface {
	Dispatch(contactID string)
}

// Input is one raw touchpoint as received from a tracking call.
type Input struct {
	Params     utm.Params
	LandingURL string
	Referrer   string
	ContactID  string
	DealID     string
	Revenue    float64
	Timestamp  time.Time
}

// Outcome is what ingestion stored, plus advisory validation of the raw
// parameters.
type Outcome struct {
	Record     *Record                        `json:"touchpoint"`
	Validation normalization.ValidationResult `json:"validation"`
	Inferred   bool                           `json:"inferred_from_referrer"`
}

type Ingestor struct {
	normalizer Normalizer
	classifier Classifier
	writer     Writer
	dispatcher SyncDispatcher
	clock      timeframe.TimeProvider
	logger     *slog.Logger
	siteHost   string
}

// NewIngestor wires the pipeline. dispatcher may be nil to disable CRM sync.
func NewIngestor(normalizer Normalizer, classifier Classifier, writer Writer, dispatcher SyncDispatcher, clock timeframe.TimeProvider, logger *slog.Logger) *Ingestor {
	if clock == nil {
		clock = &timeframe.DefaultTimeProvider{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		normalizer: normalizer,
		classifier: classifier,
		writer:     writer,
		dispatcher: dispatcher,
		clock:      clock,
		logger:     logger,
	}
}

// WithSiteHost sets the host whose referrals are treated as internal when a
// touchpoint carries no landing URL.
func (i *Ingestor) WithSiteHost(domain string) *Ingestor {
	i.siteHost = SiteHost(domain)
	return i
}

// Ingest normalizes, classifies and stores one touchpoint. Explicit
// parameters win over those found in the landing URL; when neither carries
// a source, the referrer is used to infer source and medium.
func (i *Ingestor) Ingest(ctx context.Context, in Input) (*Outcome, error) {
	raw := in.Params
	if in.LandingURL != "" {
		fromURL, err := utm.FromURL(in.LandingURL)
		if err != nil {
			return nil, err
		}
		raw = raw.Merge(fromURL)
	}

	inferred := false
	if raw.Source == "" && raw.Medium == "" {
		self := landingHost(in.LandingURL)
		if self == "" {
			self = i.siteHost
		}
		if p, ok := referrers.InferParams(in.Referrer, self); ok {
			raw = raw.Merge(p)
			inferred = true
		}
	}

	validation := normalization.Validate(raw)

	normalized, err := i.normalizer.Normalize(ctx, raw)
	if err != nil {
		return nil, err
	}

	classification, err := i.classifier.MapToSource(ctx, normalized)
	if err != nil {
		return nil, err
	}

	ts := in.Timestamp
	if ts.IsZero() {
		ts = i.clock.Now(time.UTC)
	}

	record := &Record{
		ContactID:        in.ContactID,
		DealID:           in.DealID,
		OriginalParams:   raw,
		NormalizedParams: normalized,
		Source:           classification.Source,
		SourceDetail:     classification.SourceDetail,
		Channel:          classification.Channel,
		LandingURL:       in.LandingURL,
		Referrer:         in.Referrer,
		Revenue:          in.Revenue,
		Timestamp:        ts.UTC(),
	}

	if err := i.writer.SaveTouchpoint(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save touchpoint: %w", err)
	}
	telemetry.TouchpointsIngested.WithLabelValues(record.Channel).Inc()

	i.logger.Debug("Touchpoint ingested",
		slog.String("id", record.ID),
		slog.String("contact_id", record.ContactID),
		slog.String("channel", record.Channel),
		slog.Bool("inferred", inferred))

	if record.ContactID != "" && i.dispatcher != nil {
		i.dispatcher.Dispatch(record.ContactID)
	}

	return &Outcome{Record: record, Validation: validation, Inferred: inferred}, nil
}
