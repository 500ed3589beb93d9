package metrics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"utmlens/internal/touchpoints"
)

// Touchpoint is the reporting view of a stored touchpoint.
type Touchpoint struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	SourceDetail string    `json:"source_detail"`
	Channel      string    `json:"channel"`
	Campaign     string    `json:"campaign,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

func viewOf(r touchpoints.Record) Touchpoint {
	return Touchpoint{
		ID:           r.ID,
		Source:       r.Source,
		SourceDetail: r.SourceDetail,
		Channel:      r.Channel,
		Campaign:     r.Campaign(),
		Timestamp:    r.Timestamp,
	}
}

// ContactSummary is what is known about one contact's journey.
type ContactSummary struct {
	ContactID         string       `json:"contact_id"`
	Touchpoints       []Touchpoint `json:"touchpoints"`
	TouchpointCount   int          `json:"touchpoint_count"`
	FirstTouch        *Touchpoint  `json:"first_touch,omitempty"`
	LastTouch         *Touchpoint  `json:"last_touch,omitempty"`
	AttributedRevenue float64      `json:"attributed_revenue"`
	CAC               float64      `json:"cac"`
}

// ContactMetrics summarizes a contact's touchpoints and attribution. CAC is
// apportioned: for each channel the contact has credit in, that channel's
// total cost times the contact's share of the channel's total weight,
// summed. An unknown contact yields an empty summary.
func (a *Aggregator) ContactMetrics(ctx context.Context, contactID string) (*ContactSummary, error) {
	records, err := a.reader.TouchpointsForContact(ctx, contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to load touchpoints: %w", err)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	summary := &ContactSummary{
		ContactID:       contactID,
		Touchpoints:     make([]Touchpoint, 0, len(records)),
		TouchpointCount: len(records),
	}
	for _, r := range records {
		summary.Touchpoints = append(summary.Touchpoints, viewOf(r))
	}
	if n := len(summary.Touchpoints); n > 0 {
		first, last := summary.Touchpoints[0], summary.Touchpoints[n-1]
		summary.FirstTouch, summary.LastTouch = &first, &last
	}

	events, err := a.reader.AttributionEventsForContact(ctx, contactID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attribution events: %w", err)
	}

	contactWeight := make(map[string]float64)
	var channels []string
	for _, e := range events {
		summary.AttributedRevenue += e.AttributedRevenue()
		if _, ok := contactWeight[e.Channel]; !ok {
			channels = append(channels, e.Channel)
		}
		contactWeight[e.Channel] += e.Weight
	}

	for _, ch := range channels {
		f := Filter{}.WithChannel(ch)

		channelCost, err := a.TotalCost(ctx, f)
		if err != nil {
			return nil, err
		}
		totalWeight, err := a.Conversions(ctx, f)
		if err != nil {
			return nil, err
		}
		if totalWeight == 0 {
			continue
		}
		summary.CAC += channelCost * contactWeight[ch] / totalWeight
	}

	return summary, nil
}
