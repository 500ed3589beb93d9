package timeframe

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

type ParserParams struct {
	Range    string
	FromDate string
	ToDate   string
	Tz       string
}

type Parser struct {
	timeProvider TimeProvider
	fallback     RangeLabel
}

// NewParser builds a parser that resolves an empty range to fallback.
func NewParser(fallback RangeLabel, timeProvider ...TimeProvider) *Parser {
	var provider TimeProvider = &DefaultTimeProvider{}
	if len(timeProvider) > 0 && timeProvider[0] != nil {
		provider = timeProvider[0]
	}
	return &Parser{timeProvider: provider, fallback: fallback}
}

// Parse resolves a request's range parameters. Explicit from/to dates
// (YYYY-MM-DD, inclusive) take precedence over a preset label.
func (p *Parser) Parse(params ParserParams) (Range, error) {
	tz := params.Tz
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Range{}, fmt.Errorf("error loading timezone: %w", err)
	}
	now := p.timeProvider.Now(loc)

	if params.FromDate != "" || params.ToDate != "" || RangeLabel(params.Range) == RangeCustom {
		return p.parseCustomDateRange(params, loc)
	}

	label := RangeLabel(params.Range)
	if label == "" {
		label = p.fallback
	}
	r, err := Resolve(label, now)
	if err != nil {
		return Range{}, err
	}
	return r.UTC(), nil
}

func (p *Parser) parseCustomDateRange(params ParserParams, loc *time.Location) (Range, error) {
	r := Range{Label: RangeCustom}

	if params.FromDate != "" {
		from, err := time.ParseInLocation(dateLayout, params.FromDate, loc)
		if err != nil {
			return Range{}, fmt.Errorf("invalid 'from' date: %w", err)
		}
		r.From = from
	}
	if params.ToDate != "" {
		to, err := time.ParseInLocation(dateLayout, params.ToDate, loc)
		if err != nil {
			return Range{}, fmt.Errorf("invalid 'to' date: %w", err)
		}
		r.To = endOfDay(to)
	}

	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r.UTC(), nil
}
