// Package channels maps canonical tracking parameters onto the
// source / source detail / channel taxonomy.
package channels

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"utmlens/internal/utm"
)

// Channel names produced by the heuristic fallback.
const (
	ChannelOrganicSearch = "Organic Search"
	ChannelOrganicSocial = "Organic Social"
	ChannelPaidSearch    = "Paid Search"
	ChannelPaidSocial    = "Paid Social"
	ChannelEmail         = "Email"
	ChannelSocial        = "Social"
	ChannelDirect        = "Direct"
	ChannelReferral      = "Referral"
	ChannelOther         = "Other"
)

// MappingSource supplies the currently active mappings.
type MappingSource interface {
	ActiveSourceMappings(ctx context.Context) ([]Mapping, error)
}

// Result is the classification of one set of parameters. Mapping is nil
// when the heuristic fallback produced the result.
type Result struct {
	Source       string   `json:"source"`
	SourceDetail string   `json:"source_detail"`
	Channel      string   `json:"channel"`
	Mapping      *Mapping `json:"matched_mapping"`
}

type Mapper struct {
	mappings MappingSource
}

func NewMapper(mappings MappingSource) *Mapper {
	return &Mapper{mappings: mappings}
}

// MapToSource returns the first active mapping that matches params, or the
// heuristic fallback when none does.
func (m *Mapper) MapToSource(ctx context.Context, params utm.Params) (Result, error) {
	mappings, err := m.mappings.ActiveSourceMappings(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load source mappings: %w", err)
	}
	return Resolve(mappings, params), nil
}

// Resolve is MapToSource over an explicit mapping list.
func Resolve(mappings []Mapping, params utm.Params) Result {
	ordered := make([]Mapping, len(mappings))
	copy(ordered, mappings)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		return ordered[i].ID < ordered[j].ID
	})

	source := strings.ToLower(params.Source)
	medium := strings.ToLower(params.Medium)

	for i := range ordered {
		mapping := ordered[i]
		if !WildcardMatch(mapping.UTMSource, source) {
			continue
		}
		if mapping.UTMMedium != "" && !WildcardMatch(mapping.UTMMedium, medium) {
			continue
		}
		return Result{
			Source:       mapping.Source,
			SourceDetail: mapping.SourceDetail,
			Channel:      mapping.Channel,
			Mapping:      &mapping,
		}
	}

	return Fallback(params)
}

// WildcardMatch reports whether value matches pattern as a whole, where
// "*" matches any run of characters. Comparison is case-insensitive.
func WildcardMatch(pattern, value string) bool {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	re, err := regexp.Compile("(?i)^" + strings.Join(parts, ".*") + "$")
	if err != nil {
		return false
	}
	return re.MatchString(value)
}

var socialSources = map[string]bool{
	"facebook":  true,
	"twitter":   true,
	"linkedin":  true,
	"instagram": true,
}

// Fallback infers a channel from substrings of the source and medium. The
// checks run in a fixed order and the first hit wins.
func Fallback(params utm.Params) Result {
	source := strings.ToLower(params.Source)
	medium := strings.ToLower(params.Medium)
	isSearchEngine := strings.Contains(source, "google") || strings.Contains(source, "bing")

	var channel string
	switch {
	case strings.Contains(medium, "organic"):
		channel = ChannelOrganicSocial
		if isSearchEngine {
			channel = ChannelOrganicSearch
		}
	case strings.Contains(medium, "paid") || strings.Contains(medium, "cpc") || strings.Contains(medium, "ppc"):
		channel = ChannelPaidSocial
		if isSearchEngine {
			channel = ChannelPaidSearch
		}
	case strings.Contains(medium, "email") || strings.Contains(source, "email"):
		channel = ChannelEmail
	case strings.Contains(medium, "social") || socialSources[source]:
		channel = ChannelSocial
	case source == "direct" || (source == "" && medium == ""):
		channel = ChannelDirect
	case strings.Contains(medium, "referral"):
		channel = ChannelReferral
	default:
		channel = ChannelOther
	}

	return Result{
		Source:       DisplayName(params.Source),
		SourceDetail: DisplayName(params.Medium),
		Channel:      channel,
	}
}

// DisplayName title-cases a raw token: "google_ads" becomes "Google Ads".
// Empty tokens read as "Unknown".
func DisplayName(token string) string {
	if token == "" {
		token = "unknown"
	}
	segments := strings.FieldsFunc(token, func(r rune) bool {
		return r == '_' || r == '-'
	})
	if len(segments) == 0 {
		segments = []string{"unknown"}
	}

	caser := cases.Title(language.AmericanEnglish)
	for i, s := range segments {
		segments[i] = caser.String(s)
	}
	return strings.Join(segments, " ")
}
