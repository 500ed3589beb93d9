// Package metrics derives CAC, ROI and ROAS from channel costs and
// weighted attribution events.
package metrics

import (
	"time"

	"utmlens/internal/attribution"
	"utmlens/internal/costs"
	"utmlens/internal/timeframe"
)

// Dimensions narrows a computation to one channel, source or source
// detail. Empty fields match everything.
type Dimensions struct {
	Channel      string `json:"channel,omitempty"`
	Source       string `json:"source,omitempty"`
	SourceDetail string `json:"source_detail,omitempty"`
}

// Filter bounds a computation in time. Zero Start or End leaves that side
// open.
type Filter struct {
	Start time.Time
	End   time.Time
	Dimensions
}

// ForRange builds a dimensionless filter over r.
func ForRange(r timeframe.Range) Filter {
	r = r.UTC()
	return Filter{Start: r.From, End: r.To}
}

// WithChannel returns a copy of f restricted to channel.
func (f Filter) WithChannel(channel string) Filter {
	f.Channel = channel
	return f
}

func (d Dimensions) match(channel, source, sourceDetail string) bool {
	if d.Channel != "" && d.Channel != channel {
		return false
	}
	if d.Source != "" && d.Source != source {
		return false
	}
	if d.SourceDetail != "" && d.SourceDetail != sourceDetail {
		return false
	}
	return true
}

// MatchesCost reports whether the cost window lies inside the filter range
// and its dimensions match.
func (f Filter) MatchesCost(c costs.ChannelCost) bool {
	if !f.Start.IsZero() && c.StartDate.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && c.EndDate.After(f.End) {
		return false
	}
	return f.match(c.Channel, c.Source, c.SourceDetail)
}

// MatchesEvent reports whether the event timestamp lies inside the filter
// range and its dimensions match.
func (f Filter) MatchesEvent(e attribution.Event) bool {
	if !f.Start.IsZero() && e.Timestamp.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && e.Timestamp.After(f.End) {
		return false
	}
	return f.match(e.Channel, e.Source, e.SourceDetail)
}

func (f Filter) costFilter() costs.Filter {
	return costs.Filter{From: f.Start, To: f.End, Channel: f.Channel, Source: f.Source, SourceDetail: f.SourceDetail}
}

func (f Filter) eventFilter() attribution.EventFilter {
	return attribution.EventFilter{From: f.Start, To: f.End, Channel: f.Channel, Source: f.Source, SourceDetail: f.SourceDetail}
}

// SumCost totals the costs matching f.
func SumCost(records []costs.ChannelCost, f Filter) float64 {
	var total float64
	for _, c := range records {
		if f.MatchesCost(c) {
			total += c.Cost
		}
	}
	return total
}

// SumEvents returns the attributed revenue and fractional conversions of
// the events matching f.
func SumEvents(events []attribution.Event, f Filter) (revenue, conversions float64) {
	for _, e := range events {
		if f.MatchesEvent(e) {
			revenue += e.AttributedRevenue()
			conversions += e.Weight
		}
	}
	return revenue, conversions
}

// CAC is cost per conversion, 0 without conversions.
func CAC(cost, conversions float64) float64 {
	if conversions == 0 {
		return 0
	}
	return cost / conversions
}

// ROI is profit as a percentage of cost, 0 without cost.
func ROI(revenue, cost float64) float64 {
	if cost == 0 {
		return 0
	}
	return (revenue - cost) / cost * 100
}

// ROAS is revenue per unit of spend, 0 without cost.
func ROAS(revenue, cost float64) float64 {
	if cost == 0 {
		return 0
	}
	return revenue / cost
}

// Figures are the derived totals for one slice of data.
type Figures struct {
	TotalCost    float64 `json:"total_cost"`
	TotalRevenue float64 `json:"total_revenue"`
	Conversions  float64 `json:"conversions"`
	CAC          float64 `json:"cac"`
	ROI          float64 `json:"roi"`
	ROAS         float64 `json:"roas"`
}

func NewFigures(cost, revenue, conversions float64) Figures {
	return Figures{
		TotalCost:    cost,
		TotalRevenue: revenue,
		Conversions:  conversions,
		CAC:          CAC(cost, conversions),
		ROI:          ROI(revenue, cost),
		ROAS:         ROAS(revenue, cost),
	}
}

// IsZero reports whether the slice had no cost, revenue or conversions.
func (f Figures) IsZero() bool {
	return f.TotalCost == 0 && f.TotalRevenue == 0 && f.Conversions == 0
}

type ChannelMetrics struct {
	Channel string          `json:"channel"`
	Period  timeframe.Range `json:"period"`
	Figures
}

type OverallMetrics struct {
	Period timeframe.Range `json:"period"`
	Figures
}
