package metrics

import (
	"context"
	"fmt"
	"sort"

	"utmlens/internal/timeframe"
)

type CampaignMetrics struct {
	Campaign          string  `json:"campaign"`
	AttributedRevenue float64 `json:"attributed_revenue"`
	Conversions       float64 `json:"conversions"`
	Touchpoints       int     `json:"touchpoints"`
}

// TopCampaigns ranks campaigns by revenue attributed within period, then
// by conversions. Events whose touchpoint carries no campaign are skipped.
// limit <= 0 returns every campaign.
func (a *Aggregator) TopCampaigns(ctx context.Context, period timeframe.Range, limit int) ([]CampaignMetrics, error) {
	f := ForRange(period)
	events, err := a.events(ctx, f)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(events))
	for _, e := range events {
		if f.MatchesEvent(e) {
			ids = append(ids, e.UTMRecordID)
		}
	}
	records, err := a.reader.TouchpointsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load touchpoints: %w", err)
	}

	byName := make(map[string]*CampaignMetrics)
	seen := make(map[string]map[string]struct{})
	for _, e := range events {
		if !f.MatchesEvent(e) {
			continue
		}
		r, ok := records[e.UTMRecordID]
		if !ok || r.Campaign() == "" {
			continue
		}
		name := r.Campaign()
		cm, ok := byName[name]
		if !ok {
			cm = &CampaignMetrics{Campaign: name}
			byName[name] = cm
			seen[name] = make(map[string]struct{})
		}
		cm.AttributedRevenue += e.AttributedRevenue()
		cm.Conversions += e.Weight
		if _, dup := seen[name][r.ID]; !dup {
			seen[name][r.ID] = struct{}{}
			cm.Touchpoints++
		}
	}

	result := make([]CampaignMetrics, 0, len(byName))
	for _, cm := range byName {
		result = append(result, *cm)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].AttributedRevenue != result[j].AttributedRevenue {
			return result[i].AttributedRevenue > result[j].AttributedRevenue
		}
		if result[i].Conversions != result[j].Conversions {
			return result[i].Conversions > result[j].Conversions
		}
		return result[i].Campaign < result[j].Campaign
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
