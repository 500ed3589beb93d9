package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"utmlens/internal/attribution"
	"utmlens/internal/costs"
	"utmlens/internal/timeframe"
	"utmlens/internal/touchpoints"
	"utmlens/internal/utm"
)

// fakeReader returns whole collections and leaves filtering to the
// aggregator.
type fakeReader struct {
	costs       []costs.ChannelCost
	events      []attribution.Event
	touchpoints []touchpoints.Record
	err         error
}

func (f *fakeReader) CostsWithin(context.Context, costs.Filter) ([]costs.ChannelCost, error) {
	return f.costs, f.err
}

func (f *fakeReader) DistinctCostChannels(context.Context) ([]string, error) {
	var out []string
	for _, c := range f.costs {
		out = append(out, c.Channel)
	}
	return out, f.err
}

func (f *fakeReader) EventsWithin(context.Context, attribution.EventFilter) ([]attribution.Event, error) {
	return f.events, f.err
}

func (f *fakeReader) AttributionEventsForContact(_ context.Context, contactID string) ([]attribution.Event, error) {
	var out []attribution.Event
	for _, e := range f.events {
		if e.ContactID == contactID {
			out = append(out, e)
		}
	}
	return out, f.err
}

func (f *fakeReader) TouchpointsForContact(_ context.Context, contactID string) ([]touchpoints.Record, error) {
	var out []touchpoints.Record
	for _, r := range f.touchpoints {
		if r.ContactID == contactID {
			out = append(out, r)
		}
	}
	return out, f.err
}

func (f *fakeReader) TouchpointsByIDs(_ context.Context, ids []string) (map[string]touchpoints.Record, error) {
	out := make(map[string]touchpoints.Record)
	for _, id := range ids {
		for _, r := range f.touchpoints {
			if r.ID == id {
				out[id] = r
			}
		}
	}
	return out, f.err
}

func (f *fakeReader) DistinctTouchpointChannels(context.Context) ([]string, error) {
	var out []string
	for _, r := range f.touchpoints {
		out = append(out, r.Channel)
	}
	return out, f.err
}

func date(month time.Month, day int) time.Time {
	return time.Date(2024, month, day, 0, 0, 0, 0, time.UTC)
}

func march() timeframe.Range {
	return timeframe.Range{From: date(3, 1), To: date(3, 31).Add(24*time.Hour - time.Nanosecond), Label: timeframe.RangeCustom}
}

func TestRatiosGuardDivisionByZero(t *testing.T) {
	assert.Equal(t, 500.0, CAC(1000, 2))
	assert.Equal(t, 0.0, CAC(1000, 0))
	assert.Equal(t, 200.0, ROI(3000, 1000))
	assert.Equal(t, 0.0, ROI(3000, 0))
	assert.Equal(t, 4.0, ROAS(4000, 1000))
	assert.Equal(t, 0.0, ROAS(4000, 0))

	assert.True(t, NewFigures(0, 0, 0).IsZero())
	assert.False(t, NewFigures(0, 0, 0.5).IsZero())
}

func TestFigures(t *testing.T) {
	reader := &fakeReader{
		costs: []costs.ChannelCost{
			{Channel: "Paid Search", Cost: 1000, StartDate: date(3, 1), EndDate: date(3, 31)},
		},
		events: []attribution.Event{
			{Channel: "Paid Search", Weight: 1, Revenue: 1000, Timestamp: date(3, 5)},
			{Channel: "Paid Search", Weight: 1, Revenue: 3000, Timestamp: date(3, 6)},
		},
	}
	agg := NewAggregator(reader, nil)
	ctx := context.Background()
	f := ForRange(march())

	fig, err := agg.Figures(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, fig.TotalCost)
	assert.Equal(t, 4000.0, fig.TotalRevenue)
	assert.Equal(t, 2.0, fig.Conversions)
	assert.Equal(t, 500.0, fig.CAC)
	assert.Equal(t, 300.0, fig.ROI)
	assert.Equal(t, 4.0, fig.ROAS)

	cac, err := agg.CAC(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 500.0, cac)

	cac, err = agg.CAC(ctx, f.WithChannel("Email"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, cac, "no conversions means zero CAC")
}

func TestTotalCostWindowContainment(t *testing.T) {
	reader := &fakeReader{costs: []costs.ChannelCost{
		{Channel: "Email", Cost: 10, StartDate: date(3, 1), EndDate: date(3, 31)},
		{Channel: "Email", Cost: 20, StartDate: date(2, 25), EndDate: date(3, 5)},
		{Channel: "Email", Cost: 40, StartDate: date(3, 28), EndDate: date(4, 2)},
		{Channel: "Email", Source: "Mailchimp", Cost: 80, StartDate: date(3, 10), EndDate: date(3, 10)},
	}}
	agg := NewAggregator(reader, nil)
	ctx := context.Background()

	total, err := agg.TotalCost(ctx, ForRange(march()))
	require.NoError(t, err)
	assert.Equal(t, 90.0, total, "partially overlapping windows are excluded")

	f := ForRange(march())
	f.Source = "Mailchimp"
	total, err = agg.TotalCost(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 80.0, total)

	total, err = agg.TotalCost(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 150.0, total)
}

func TestRevenueAndConversionsAreWeighted(t *testing.T) {
	reader := &fakeReader{events: []attribution.Event{
		{Channel: "Email", Source: "Email", Weight: 0.25, Revenue: 400, Timestamp: date(3, 2)},
		{Channel: "Paid Search", Source: "Google Ads", Weight: 0.75, Revenue: 400, Timestamp: date(3, 2)},
		{Channel: "Email", Weight: 1, Revenue: 50, Timestamp: date(4, 2)},
	}}
	agg := NewAggregator(reader, nil)
	ctx := context.Background()

	revenue, err := agg.TotalRevenue(ctx, ForRange(march()))
	require.NoError(t, err)
	assert.InDelta(t, 400.0, revenue, 1e-9)

	conversions, err := agg.Conversions(ctx, ForRange(march()))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, conversions, 1e-9)

	conversions, err = agg.Conversions(ctx, ForRange(march()).WithChannel("Email"))
	require.NoError(t, err)
	assert.InDelta(t, 0.25, conversions, 1e-9)
}

func TestChannelMetrics(t *testing.T) {
	reader := &fakeReader{
		touchpoints: []touchpoints.Record{
			{ID: "t1", Channel: "Paid Search"},
			{ID: "t2", Channel: "Email"},
			{ID: "t3", Channel: "Referral"},
		},
		costs: []costs.ChannelCost{
			{Channel: "Paid Search", Cost: 1000, StartDate: date(3, 1), EndDate: date(3, 31)},
			{Channel: "Display", Cost: 300, StartDate: date(3, 1), EndDate: date(3, 7)},
		},
		events: []attribution.Event{
			{Channel: "Paid Search", Weight: 0.5, Revenue: 2000, Timestamp: date(3, 10)},
			{Channel: "Email", Weight: 0.5, Revenue: 2000, Timestamp: date(3, 10)},
		},
	}
	agg := NewAggregator(reader, nil)

	got, err := agg.ChannelMetrics(context.Background(), march())
	require.NoError(t, err)
	require.Len(t, got, 3, "Referral has nothing to report")

	assert.Equal(t, "Display", got[0].Channel)
	assert.Equal(t, 300.0, got[0].TotalCost)
	assert.Equal(t, -100.0, got[0].ROI)

	assert.Equal(t, "Email", got[1].Channel)
	assert.Equal(t, 1000.0, got[1].TotalRevenue)
	assert.Equal(t, 0.0, got[1].ROAS)

	assert.Equal(t, "Paid Search", got[2].Channel)
	assert.Equal(t, 2000.0, got[2].CAC)
	assert.Equal(t, 1.0, got[2].ROAS)
	assert.Equal(t, march(), got[2].Period)

	overall, err := agg.OverallMetrics(context.Background(), march())
	require.NoError(t, err)
	assert.Equal(t, 1300.0, overall.TotalCost)
	assert.Equal(t, 2000.0, overall.TotalRevenue)
	assert.Equal(t, 1.0, overall.Conversions)
}

func TestContactMetricsApportionsCAC(t *testing.T) {
	reader := &fakeReader{
		touchpoints: []touchpoints.Record{
			{ID: "t2", ContactID: "alice", Channel: "Email", Source: "Email", Timestamp: date(3, 4),
				NormalizedParams: utm.Params{Source: "email", Campaign: "spring_launch"}},
			{ID: "t1", ContactID: "alice", Channel: "Paid Search", Source: "Google Ads", Timestamp: date(3, 1)},
			{ID: "t3", ContactID: "bob", Channel: "Paid Search", Timestamp: date(3, 2)},
		},
		costs: []costs.ChannelCost{
			{Channel: "Paid Search", Cost: 900, StartDate: date(3, 1), EndDate: date(3, 31)},
			{Channel: "Email", Cost: 100, StartDate: date(3, 1), EndDate: date(3, 31)},
		},
		events: []attribution.Event{
			{ContactID: "alice", UTMRecordID: "t1", Channel: "Paid Search", Weight: 0.5, Revenue: 200},
			{ContactID: "alice", UTMRecordID: "t2", Channel: "Email", Weight: 0.5, Revenue: 200},
			{ContactID: "bob", UTMRecordID: "t3", Channel: "Paid Search", Weight: 1, Revenue: 50},
		},
	}
	agg := NewAggregator(reader, nil)

	summary, err := agg.ContactMetrics(context.Background(), "alice")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TouchpointCount)
	require.NotNil(t, summary.FirstTouch)
	assert.Equal(t, "Paid Search", summary.FirstTouch.Channel)
	assert.Equal(t, "spring_launch", summary.LastTouch.Campaign)
	assert.InDelta(t, 200.0, summary.AttributedRevenue, 1e-9)
	// Paid Search: 900 * 0.5/1.5 = 300. Email: 100 * 0.5/0.5 = 100.
	assert.InDelta(t, 400.0, summary.CAC, 1e-9)

	empty, err := agg.ContactMetrics(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.TouchpointCount)
	assert.Empty(t, empty.Touchpoints)
	assert.Nil(t, empty.FirstTouch)
	assert.Equal(t, 0.0, empty.CAC)
}

func TestTopCampaigns(t *testing.T) {
	reader := &fakeReader{
		touchpoints: []touchpoints.Record{
			{ID: "a", NormalizedParams: utm.Params{Campaign: "spring"}},
			{ID: "b", NormalizedParams: utm.Params{Campaign: "summer"}},
			{ID: "c", NormalizedParams: utm.Params{Campaign: "spring"}},
			{ID: "d"},
		},
		events: []attribution.Event{
			{UTMRecordID: "a", Weight: 0.5, Revenue: 100, Timestamp: date(3, 2)},
			{UTMRecordID: "c", Weight: 0.5, Revenue: 100, Timestamp: date(3, 2)},
			{UTMRecordID: "b", Weight: 1, Revenue: 300, Timestamp: date(3, 3)},
			{UTMRecordID: "d", Weight: 1, Revenue: 999, Timestamp: date(3, 3)},
			{UTMRecordID: "a", Weight: 1, Revenue: 999, Timestamp: date(5, 1)},
		},
	}
	agg := NewAggregator(reader, nil)

	got, err := agg.TopCampaigns(context.Background(), march(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "summer", got[0].Campaign)
	assert.Equal(t, 300.0, got[0].AttributedRevenue)
	assert.Equal(t, "spring", got[1].Campaign)
	assert.Equal(t, 100.0, got[1].AttributedRevenue)
	assert.Equal(t, 2, got[1].Touchpoints)

	limited, err := agg.TopCampaigns(context.Background(), march(), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestCard(t *testing.T) {
	reader := &fakeReader{
		touchpoints: []touchpoints.Record{
			{ID: "t1", ContactID: "alice", Channel: "Email", Timestamp: date(3, 1)},
		},
		costs: []costs.ChannelCost{
			{Channel: "Email", Cost: 50, StartDate: date(3, 1), EndDate: date(3, 2)},
		},
		events: []attribution.Event{
			{ContactID: "alice", UTMRecordID: "t1", Channel: "Email", Weight: 1, Revenue: 200, Timestamp: date(3, 3)},
		},
	}
	agg := NewAggregator(reader, nil)

	card, err := agg.Card(context.Background(), "alice", march())
	require.NoError(t, err)
	assert.Equal(t, "alice", card.ContactID)
	assert.Len(t, card.Touchpoints, 1)
	assert.Equal(t, 200.0, card.AttributedRevenue)
	assert.Equal(t, 50.0, card.CAC)
	require.Len(t, card.ChannelMetrics, 1)
	assert.Equal(t, 4.0, card.ChannelMetrics[0].ROAS)
	assert.Equal(t, 300.0, card.OverallMetrics.ROI)

	reader.err = errors.New("db closed")
	_, err = agg.Card(context.Background(), "alice", march())
	assert.ErrorContains(t, err, "db closed")
}
