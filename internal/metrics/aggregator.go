package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"utmlens/internal/attribution"
	"utmlens/internal/costs"
	"utmlens/internal/timeframe"
	"utmlens/internal/touchpoints"
)

type CostReader interface {
	CostsWithin(ctx context.Context, f costs.Filter) ([]costs.ChannelCost, error)
	DistinctCostChannels(ctx context.Context) ([]string, error)
}

type EventReader interface {
	EventsWithin(ctx context.Context, f attribution.EventFilter) ([]attribution.Event, error)
	AttributionEventsForContact(ctx context.Context, contactID string) ([]attribution.Event, error)
}

type TouchpointReader interface {
	TouchpointsForContact(ctx context.Context, contactID string) ([]touchpoints.Record, error)
	TouchpointsByIDs(ctx context.Context, ids []string) (map[string]touchpoints.Record, error)
	DistinctTouchpointChannels(ctx context.Context) ([]string, error)
}

// Reader is everything the aggregator reads.
type Reader interface {
	CostReader
	EventReader
	TouchpointReader
}

// Aggregator computes read-only metrics. Readers may pre-filter in storage;
// the aggregator re-applies Filter in memory so results do not depend on
// how precisely a reader filters.
type Aggregator struct {
	reader  Reader
	logger  *slog.Logger
	workers int
}

func NewAggregator(reader Reader, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{reader: reader, logger: logger, workers: 3}
}

func (a *Aggregator) costs(ctx context.Context, f Filter) ([]costs.ChannelCost, error) {
	records, err := a.reader.CostsWithin(ctx, f.costFilter())
	if err != nil {
		return nil, fmt.Errorf("failed to load channel costs: %w", err)
	}
	return records, nil
}

func (a *Aggregator) events(ctx context.Context, f Filter) ([]attribution.Event, error) {
	events, err := a.reader.EventsWithin(ctx, f.eventFilter())
	if err != nil {
		return nil, fmt.Errorf("failed to load attribution events: %w", err)
	}
	return events, nil
}

// TotalCost sums the cost records whose window lies inside f.
func (a *Aggregator) TotalCost(ctx context.Context, f Filter) (float64, error) {
	records, err := a.costs(ctx, f)
	if err != nil {
		return 0, err
	}
	return SumCost(records, f), nil
}

// TotalRevenue sums revenue*weight over the events matching f.
func (a *Aggregator) TotalRevenue(ctx context.Context, f Filter) (float64, error) {
	events, err := a.events(ctx, f)
	if err != nil {
		return 0, err
	}
	revenue, _ := SumEvents(events, f)
	return revenue, nil
}

// Conversions sums attribution weight over the events matching f.
func (a *Aggregator) Conversions(ctx context.Context, f Filter) (float64, error) {
	events, err := a.events(ctx, f)
	if err != nil {
		return 0, err
	}
	_, conversions := SumEvents(events, f)
	return conversions, nil
}

// Figures computes every derived figure for f from one read of each
// collection.
func (a *Aggregator) Figures(ctx context.Context, f Filter) (Figures, error) {
	records, err := a.costs(ctx, f)
	if err != nil {
		return Figures{}, err
	}
	events, err := a.events(ctx, f)
	if err != nil {
		return Figures{}, err
	}
	revenue, conversions := SumEvents(events, f)
	return NewFigures(SumCost(records, f), revenue, conversions), nil
}

func (a *Aggregator) CAC(ctx context.Context, f Filter) (float64, error) {
	fig, err := a.Figures(ctx, f)
	return fig.CAC, err
}

func (a *Aggregator) ROI(ctx context.Context, f Filter) (float64, error) {
	fig, err := a.Figures(ctx, f)
	return fig.ROI, err
}

func (a *Aggregator) ROAS(ctx context.Context, f Filter) (float64, error) {
	fig, err := a.Figures(ctx, f)
	return fig.ROAS, err
}

// knownChannels is the sorted union of channels seen on touchpoints and
// on cost records.
func (a *Aggregator) knownChannels(ctx context.Context) ([]string, error) {
	fromTouchpoints, err := a.reader.DistinctTouchpointChannels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list touchpoint channels: %w", err)
	}
	fromCosts, err := a.reader.DistinctCostChannels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list cost channels: %w", err)
	}

	seen := make(map[string]struct{}, len(fromTouchpoints)+len(fromCosts))
	var channels []string
	for _, list := range [][]string{fromTouchpoints, fromCosts} {
		for _, ch := range list {
			if ch == "" {
				continue
			}
			if _, ok := seen[ch]; !ok {
				seen[ch] = struct{}{}
				channels = append(channels, ch)
			}
		}
	}
	sort.Strings(channels)
	return channels, nil
}

// ChannelMetrics computes figures per known channel over period. Channels
// without cost, revenue and conversions are left out.
func (a *Aggregator) ChannelMetrics(ctx context.Context, period timeframe.Range) ([]ChannelMetrics, error) {
	channels, err := a.knownChannels(ctx)
	if err != nil {
		return nil, err
	}

	base := ForRange(period)
	records, err := a.costs(ctx, base)
	if err != nil {
		return nil, err
	}
	events, err := a.events(ctx, base)
	if err != nil {
		return nil, err
	}

	result := make([]ChannelMetrics, 0, len(channels))
	for _, ch := range channels {
		f := base.WithChannel(ch)
		revenue, conversions := SumEvents(events, f)
		fig := NewFigures(SumCost(records, f), revenue, conversions)
		if fig.IsZero() {
			continue
		}
		result = append(result, ChannelMetrics{Channel: ch, Period: period, Figures: fig})
	}
	return result, nil
}

// OverallMetrics computes figures over period across every channel.
func (a *Aggregator) OverallMetrics(ctx context.Context, period timeframe.Range) (OverallMetrics, error) {
	fig, err := a.Figures(ctx, ForRange(period))
	if err != nil {
		return OverallMetrics{}, err
	}
	return OverallMetrics{Period: period, Figures: fig}, nil
}
