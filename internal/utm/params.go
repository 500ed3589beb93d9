// Package utm holds the campaign tracking parameter value type shared by
// normalization, channel mapping and touchpoint ingestion.
package utm

import (
	"fmt"
	"net/url"
	"strings"
)

// Field identifies one of the five tracking parameters.
type Field string

const (
	FieldSource   Field = "utm_source"
	FieldMedium   Field = "utm_medium"
	FieldCampaign Field = "utm_campaign"
	FieldTerm     Field = "utm_term"
	FieldContent  Field = "utm_content"
)

// Fields returns every field in canonical order.
func Fields() []Field {
	return []Field{FieldSource, FieldMedium, FieldCampaign, FieldTerm, FieldContent}
}

// IsValid reports whether f is one of the known tracking fields.
func (f Field) IsValid() bool {
	for _, known := range Fields() {
		if f == known {
			return true
		}
	}
	return false
}

// ParseField converts a raw field name into a Field.
func ParseField(raw string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(raw)))
	if !f.IsValid() {
		return "", fmt.Errorf("unknown utm field: %q", raw)
	}
	return f, nil
}

// Params is a set of tracking parameters. An empty string means the
// parameter is absent.
type Params struct {
	Source   string `json:"utm_source,omitempty" yaml:"utm_source,omitempty"`
	Medium   string `json:"utm_medium,omitempty" yaml:"utm_medium,omitempty"`
	Campaign string `json:"utm_campaign,omitempty" yaml:"utm_campaign,omitempty"`
	Term     string `json:"utm_term,omitempty" yaml:"utm_term,omitempty"`
	Content  string `json:"utm_content,omitempty" yaml:"utm_content,omitempty"`
}

// Get returns the value stored for f.
func (p Params) Get(f Field) string {
	switch f {
	case FieldSource:
		return p.Source
	case FieldMedium:
		return p.Medium
	case FieldCampaign:
		return p.Campaign
	case FieldTerm:
		return p.Term
	case FieldContent:
		return p.Content
	}
	return ""
}

// With returns a copy of p with f set to value.
func (p Params) With(f Field, value string) Params {
	switch f {
	case FieldSource:
		p.Source = value
	case FieldMedium:
		p.Medium = value
	case FieldCampaign:
		p.Campaign = value
	case FieldTerm:
		p.Term = value
	case FieldContent:
		p.Content = value
	}
	return p
}

// IsEmpty reports whether no parameter is present.
func (p Params) IsEmpty() bool {
	return p == Params{}
}

// Merge fills the absent fields of p from other.
func (p Params) Merge(other Params) Params {
	for _, f := range Fields() {
		if p.Get(f) == "" && other.Get(f) != "" {
			p = p.With(f, other.Get(f))
		}
	}
	return p
}

// FromValues extracts the tracking parameters from a parsed query string.
func FromValues(values url.Values) Params {
	var p Params
	for _, f := range Fields() {
		if v := strings.TrimSpace(values.Get(string(f))); v != "" {
			p = p.With(f, v)
		}
	}
	return p
}

// FromURL extracts the tracking parameters from a landing page URL.
func FromURL(rawURL string) (Params, error) {
	if rawURL == "" {
		return Params{}, nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Params{}, fmt.Errorf("failed to parse landing url: %w", err)
	}
	return FromValues(parsed.Query()), nil
}
