package metrics

import (
	"context"
	"fmt"
	"log/slog"

	"utmlens/internal/pkg/async"
	"utmlens/internal/timeframe"
)

// Card is the payload rendered next to a contact in the CRM.
type Card struct {
	ContactID         string           `json:"contact_id"`
	Touchpoints       []Touchpoint     `json:"touchpoints"`
	AttributedRevenue float64          `json:"attributed_revenue"`
	CAC               float64          `json:"cac"`
	ChannelMetrics    []ChannelMetrics `json:"channel_metrics"`
	OverallMetrics    OverallMetrics   `json:"overall_metrics"`
}

// Card assembles the contact card, running its independent reads on the
// worker pool.
func (a *Aggregator) Card(ctx context.Context, contactID string, period timeframe.Range) (*Card, error) {
	tasks := []async.Task{
		{
			Name: "contact",
			Execute: func() (interface{}, error) {
				summary, err := a.ContactMetrics(ctx, contactID)
				if err != nil {
					a.logger.Error("Error computing contact metrics", slog.String("contact_id", contactID), slog.Any("error", err))
				}
				return summary, err
			},
		},
		{
			Name: "channels",
			Execute: func() (interface{}, error) {
				return a.ChannelMetrics(ctx, period)
			},
		},
		{
			Name: "overall",
			Execute: func() (interface{}, error) {
				return a.OverallMetrics(ctx, period)
			},
		},
	}

	results := async.NewPool(a.workers).Execute(ctx, tasks)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, name := range []string{"contact", "channels", "overall"} {
		result, ok := results[name]
		if !ok {
			return nil, fmt.Errorf("card section %s did not complete", name)
		}
		if result.Err != nil {
			return nil, fmt.Errorf("error fetching %s: %w", name, result.Err)
		}
	}

	summary := results["contact"].Data.(*ContactSummary)
	channels := results["channels"].Data.([]ChannelMetrics)
	return &Card{
		ContactID:         contactID,
		Touchpoints:       summary.Touchpoints,
		AttributedRevenue: summary.AttributedRevenue,
		CAC:               summary.CAC,
		ChannelMetrics:    channels,
		OverallMetrics:    results["overall"].Data.(OverallMetrics),
	}, nil
}
