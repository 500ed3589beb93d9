// Package attribution splits conversion credit across a contact's
// touchpoints using first-touch, last-touch, linear or time-decay models.
package attribution

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"utmlens/internal/pkg/telemetry"
	"utmlens/internal/timeframe"
	"utmlens/internal/touchpoints"
)

// Config selects the model for one computation. A zero HalfLife means
// the calculator's default.
type Config struct {
	Model    Model         `json:"model"`
	HalfLife time.Duration `json:"half_life"`
}

type TouchpointReader interface {
	TouchpointsForContact(ctx context.Context, contactID string) ([]touchpoints.Record, error)
}

type EventStore interface {
	SaveAttributionEvents(ctx context.Context, events []Event) error
	AttributionEventsForContact(ctx context.Context, contactID string) ([]Event, error)
	// ReplaceAttributionEvents swaps a contact's events for events in one
	// transaction. On error the previous events are left in place.
	ReplaceAttributionEvents(ctx context.Context, contactID string, events []Event) error
}

type Calculator struct {
	touchpoints     TouchpointReader
	events          EventStore
	clock           timeframe.TimeProvider
	defaultHalfLife time.Duration
	logger          *slog.Logger
}

func NewCalculator(tp TouchpointReader, events EventStore, clock timeframe.TimeProvider, logger *slog.Logger) *Calculator {
	if clock == nil {
		clock = &timeframe.DefaultTimeProvider{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{
		touchpoints:     tp,
		events:          events,
		clock:           clock,
		defaultHalfLife: DefaultHalfLife,
		logger:          logger,
	}
}

// WithDefaultHalfLife overrides the half-life used when a Config has none.
func (c *Calculator) WithDefaultHalfLife(d time.Duration) *Calculator {
	if d > 0 {
		c.defaultHalfLife = d
	}
	return c
}

// CreateAttribution credits revenue for one conversion across the contact's
// touchpoints and stores one event per touchpoint with non-zero weight.
// Each event carries the full conversion revenue; its credited share is
// revenue * weight. A contact without touchpoints yields no events.
func (c *Calculator) CreateAttribution(ctx context.Context, contactID, dealID string, revenue float64, cfg Config) ([]Event, error) {
	events, err := c.buildEvents(ctx, contactID, dealID, revenue, cfg)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return events, nil
	}

	if err := c.events.SaveAttributionEvents(ctx, events); err != nil {
		return nil, fmt.Errorf("failed to save attribution events: %w", err)
	}
	c.recordCreated(contactID, cfg.Model, events)
	return events, nil
}

// buildEvents computes the events for one conversion without storing them.
func (c *Calculator) buildEvents(ctx context.Context, contactID, dealID string, revenue float64, cfg Config) ([]Event, error) {
	if contactID == "" {
		return nil, fmt.Errorf("contact ID is required")
	}
	if _, err := ParseModel(string(cfg.Model)); err != nil {
		return nil, err
	}

	records, err := c.touchpoints.TouchpointsForContact(ctx, contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to load touchpoints: %w", err)
	}
	if len(records) == 0 {
		return []Event{}, nil
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	halfLife := cfg.HalfLife
	if halfLife <= 0 {
		halfLife = c.defaultHalfLife
	}

	now := c.clock.Now(time.UTC)
	timestamps := make([]time.Time, len(records))
	for i, r := range records {
		timestamps[i] = r.Timestamp
	}

	weights, err := Weights(cfg.Model, timestamps, now, halfLife)
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(records))
	for i, r := range records {
		if weights[i] <= 0 {
			continue
		}
		events = append(events, Event{
			ContactID:    contactID,
			DealID:       dealID,
			UTMRecordID:  r.ID,
			Channel:      r.Channel,
			Source:       r.Source,
			SourceDetail: r.SourceDetail,
			Model:        cfg.Model,
			Weight:       weights[i],
			Revenue:      revenue,
			Timestamp:    now,
		})
	}
	return events, nil
}

func (c *Calculator) recordCreated(contactID string, model Model, events []Event) {
	telemetry.AttributionEventsCreated.WithLabelValues(string(model)).Add(float64(len(events)))
	c.logger.Debug("Attribution created",
		slog.String("contact_id", contactID),
		slog.String("model", string(model)),
		slog.Int("events", len(events)))
}

// impliedConversion recovers the revenue and deal of earlier attribution
// runs: revenue is sum(revenue*weight)/sum(weight), the deal is the first
// non-empty one.
func impliedConversion(events []Event) (float64, string) {
	var weighted, total float64
	dealID := ""
	for _, e := range events {
		weighted += e.Revenue * e.Weight
		total += e.Weight
		if dealID == "" && e.DealID != "" {
			dealID = e.DealID
		}
	}
	if total == 0 {
		return 0, dealID
	}
	return weighted / total, dealID
}

// AppendRecalculatedAttribution recomputes a contact's attribution under a
// new model and adds the new events next to the existing ones. Nothing is
// deleted, so reporting over the contact counts both runs.
func (c *Calculator) AppendRecalculatedAttribution(ctx context.Context, contactID string, cfg Config) ([]Event, error) {
	existing, err := c.events.AttributionEventsForContact(ctx, contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attribution events: %w", err)
	}
	revenue, dealID := impliedConversion(existing)
	return c.CreateAttribution(ctx, contactID, dealID, revenue, cfg)
}

// ReplaceAttribution recomputes a contact's attribution under a new model
// and swaps it for the previous events in a single write. When the write
// fails the previous events survive.
func (c *Calculator) ReplaceAttribution(ctx context.Context, contactID string, cfg Config) ([]Event, error) {
	if _, err := ParseModel(string(cfg.Model)); err != nil {
		return nil, err
	}

	existing, err := c.events.AttributionEventsForContact(ctx, contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attribution events: %w", err)
	}
	revenue, dealID := impliedConversion(existing)

	events, err := c.buildEvents(ctx, contactID, dealID, revenue, cfg)
	if err != nil {
		return nil, err
	}
	if err := c.events.ReplaceAttributionEvents(ctx, contactID, events); err != nil {
		return nil, fmt.Errorf("failed to replace attribution events: %w", err)
	}
	c.recordCreated(contactID, cfg.Model, events)
	return events, nil
}
