package timeframe

import (
	"fmt"
	"time"
)

// RangeLabel represents the available time range options
type RangeLabel string

const (
	RangeToday        RangeLabel = "today"
	RangeYesterday    RangeLabel = "yesterday"
	RangeLast7Days    RangeLabel = "last_7_days"
	RangeLast30Days   RangeLabel = "last_30_days"
	RangeMonthToDate  RangeLabel = "month_to_date"
	RangeLastMonth    RangeLabel = "last_month"
	RangeYearToDate   RangeLabel = "year_to_date"
	RangeLast12Months RangeLabel = "last_12_months"
	RangeAllTime      RangeLabel = "all_time"
	RangeCustom       RangeLabel = "custom"
)

// TimeProvider is the clock used by everything that stamps or windows time.
type TimeProvider interface {
	Now(loc *time.Location) time.Time
}

// DefaultTimeProvider uses the system clock.
type DefaultTimeProvider struct{}

func (p *DefaultTimeProvider) Now(loc *time.Location) time.Time {
	return time.Now().In(loc)
}

// FixedTimeProvider always returns the same instant. Used by tests and by
// the CLI's --at flag.
type FixedTimeProvider struct {
	At time.Time
}

func (p *FixedTimeProvider) Now(loc *time.Location) time.Time {
	return p.At.In(loc)
}

// Range is a closed time window. A zero From or To leaves that side
// unbounded.
type Range struct {
	From  time.Time  `json:"from"`
	To    time.Time  `json:"to"`
	Label RangeLabel `json:"label"`
}

// AllTime is the unbounded range.
func AllTime() Range {
	return Range{Label: RangeAllTime}
}

// Contains reports whether t lies within the range, bounds included.
func (r Range) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// UTC returns the range with both bounds converted to UTC.
func (r Range) UTC() Range {
	if !r.From.IsZero() {
		r.From = r.From.UTC()
	}
	if !r.To.IsZero() {
		r.To = r.To.UTC()
	}
	return r
}

// Validate checks that the bounds are ordered.
func (r Range) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && r.From.After(r.To) {
		return fmt.Errorf("from must be before to")
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
}

// Resolve turns a preset label into a concrete range ending at now. The
// calendar boundaries follow now's location.
func Resolve(label RangeLabel, now time.Time) (Range, error) {
	today := startOfDay(now)
	r := Range{To: now, Label: label}

	switch label {
	case RangeToday:
		r.From = today
	case RangeYesterday:
		r.From = today.AddDate(0, 0, -1)
		r.To = endOfDay(r.From)
	case RangeLast7Days:
		r.From = today.AddDate(0, 0, -7)
	case RangeLast30Days:
		r.From = today.AddDate(0, 0, -30)
	case RangeMonthToDate:
		r.From = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	case RangeLastMonth:
		firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		r.From = firstOfMonth.AddDate(0, -1, 0)
		r.To = firstOfMonth.Add(-time.Nanosecond)
	case RangeYearToDate:
		r.From = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	case RangeLast12Months:
		r.From = today.AddDate(-1, 0, 0)
	case RangeAllTime:
		return AllTime(), nil
	default:
		return Range{}, fmt.Errorf("unknown range: %q", label)
	}
	return r, nil
}
