package normalization

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"utmlens/internal/utm"
)

type staticRules struct {
	rules []Rule
	err   error
	calls int
}

func (s *staticRules) ActiveNormalizationRules(context.Context) ([]Rule, error) {
	s.calls++
	return s.rules, s.err
}

func TestNormalizeAppliesRulesAndCleans(t *testing.T) {
	source := &staticRules{rules: []Rule{
		{ID: 1, Field: utm.FieldSource, MatchType: MatchExact, MatchValue: "fb", NormalizedValue: "facebook", Priority: 10},
		{ID: 2, Field: utm.FieldMedium, MatchType: MatchExact, MatchValue: "cpc", NormalizedValue: "paid", Priority: 10},
	}}
	engine := NewEngine(source)

	got, err := engine.Normalize(context.Background(), utm.Params{
		Source:   "FB",
		Medium:   " CPC ",
		Campaign: "Spring  Sale 2024!",
	})
	require.NoError(t, err)

	assert.Equal(t, utm.Params{Source: "facebook", Medium: "paid", Campaign: "spring_sale_2024"}, got)
}

func TestNormalizeLoadsRulesEveryCall(t *testing.T) {
	source := &staticRules{}
	engine := NewEngine(source)

	got, err := engine.Normalize(context.Background(), utm.Params{Source: "fb"})
	require.NoError(t, err)
	assert.Equal(t, "fb", got.Source)

	source.rules = []Rule{{ID: 1, Field: utm.FieldSource, MatchType: MatchExact, MatchValue: "fb", NormalizedValue: "facebook"}}
	got, err = engine.Normalize(context.Background(), utm.Params{Source: "fb"})
	require.NoError(t, err)
	assert.Equal(t, "facebook", got.Source)
	assert.Equal(t, 2, source.calls)
}

func defaultRules() []Rule {
	return []Rule{
		{ID: 1, Field: utm.FieldSource, MatchType: MatchExact, MatchValue: "fb", NormalizedValue: "facebook", Priority: 10},
		{ID: 2, Field: utm.FieldSource, MatchType: MatchExact, MatchValue: "ig", NormalizedValue: "instagram", Priority: 10},
		{ID: 3, Field: utm.FieldSource, MatchType: MatchExact, MatchValue: "tw", NormalizedValue: "twitter", Priority: 10},
		{ID: 4, Field: utm.FieldSource, MatchType: MatchExact, MatchValue: "li", NormalizedValue: "linkedin", Priority: 10},
		{ID: 5, Field: utm.FieldMedium, MatchType: MatchExact, MatchValue: "cpc", NormalizedValue: "paid", Priority: 10},
		{ID: 6, Field: utm.FieldMedium, MatchType: MatchExact, MatchValue: "ppc", NormalizedValue: "paid", Priority: 10},
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	engine := NewEngine(&staticRules{rules: defaultRules()})
	ctx := context.Background()

	tests := []struct {
		name string
		in   utm.Params
	}{
		{"canonical", utm.Params{Source: "facebook", Medium: "paid", Campaign: "summer_sale_2024"}},
		{"aliases", utm.Params{Source: "FB", Medium: "CPC", Campaign: "Summer Sale 2024"}},
		{"punctuation", utm.Params{Source: "google!@#", Medium: "organic"}},
		{"whitespace", utm.Params{Source: "  LinkedIn ", Medium: "ppc", Content: "Hero  Banner", Term: "crm tools"}},
		{"hyphens kept", utm.Params{Source: "ig", Campaign: "black-friday_2024"}},
		{"empty", utm.Params{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			once, err := engine.Normalize(ctx, tt.in)
			require.NoError(t, err)
			twice, err := engine.Normalize(ctx, once)
			require.NoError(t, err)
			assert.Equal(t, once, twice)
		})
	}

	canonical := utm.Params{Source: "facebook", Medium: "paid", Campaign: "summer_sale_2024"}
	got, err := engine.Normalize(ctx, canonical)
	require.NoError(t, err)
	assert.Equal(t, canonical, got)
}

func TestNormalizePropagatesSourceError(t *testing.T) {
	engine := NewEngine(&staticRules{err: errors.New("boom")})
	_, err := engine.Normalize(context.Background(), utm.Params{Source: "x"})
	assert.ErrorContains(t, err, "boom")
}

func TestApplyOrderAndRefire(t *testing.T) {
	t.Run("higher priority runs first and later rules see rewritten value", func(t *testing.T) {
		rules := []Rule{
			{ID: 1, Field: utm.FieldSource, MatchType: MatchExact, MatchValue: "facebook", NormalizedValue: "meta", Priority: 1},
			{ID: 2, Field: utm.FieldSource, MatchType: MatchExact, MatchValue: "fb", NormalizedValue: "facebook", Priority: 5},
		}
		got := Apply(rules, utm.Params{Source: "fb"})
		assert.Equal(t, "meta", got.Source)
	})

	t.Run("ties are broken by id", func(t *testing.T) {
		rules := []Rule{
			{ID: 7, Field: utm.FieldSource, MatchType: MatchContains, MatchValue: "goo", NormalizedValue: "second", Priority: 3},
			{ID: 3, Field: utm.FieldSource, MatchType: MatchContains, MatchValue: "goo", NormalizedValue: "first", Priority: 3},
		}
		got := Apply(rules, utm.Params{Source: "google"})
		assert.Equal(t, "first", got.Source, "id 3 rewrites to 'first', then id 7 no longer matches")
	})

	t.Run("absent fields are skipped", func(t *testing.T) {
		rules := []Rule{{ID: 1, Field: utm.FieldTerm, MatchType: MatchRegex, MatchValue: ".*", NormalizedValue: "x"}}
		got := Apply(rules, utm.Params{Source: "google"})
		assert.Equal(t, "", got.Term)
	})

	t.Run("input is not mutated", func(t *testing.T) {
		rules := []Rule{{ID: 1, Field: utm.FieldSource, MatchType: MatchExact, MatchValue: "fb", NormalizedValue: "facebook"}}
		in := utm.Params{Source: "fb"}
		_ = Apply(rules, in)
		assert.Equal(t, "fb", in.Source)
	})
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name      string
		matchType MatchType
		pattern   string
		value     string
		want      bool
	}{
		{"exact is case-insensitive", MatchExact, "FB", "fb", true},
		{"exact requires full value", MatchExact, "fb", "fbx", false},
		{"contains", MatchContains, "Goog", "www.google.com", true},
		{"starts with", MatchStartsWith, "news", "Newsletter", true},
		{"starts with miss", MatchStartsWith, "letter", "newsletter", false},
		{"ends with", MatchEndsWith, "ads", "GoogleAds", true},
		{"regex", MatchRegex, `^g(oogle)?$`, "G", true},
		{"regex is case-insensitive", MatchRegex, `^google$`, "GOOGLE", true},
		{"invalid regex never matches", MatchRegex, `([a-z`, "abc", false},
		{"unknown match type", MatchType("fuzzy"), "a", "a", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := Rule{MatchType: tt.matchType, MatchValue: tt.pattern}
			assert.Equal(t, tt.want, Matches(rule, tt.value))
		})
	}
}

func TestTestRule(t *testing.T) {
	rule := Rule{MatchType: MatchExact, MatchValue: "li", NormalizedValue: "linkedin"}

	matched, result := TestRule(rule, "LI")
	assert.True(t, matched)
	assert.Equal(t, "linkedin", result)

	matched, result = TestRule(rule, "twitter")
	assert.False(t, matched)
	assert.Equal(t, "twitter", result)
}

func TestCleanValue(t *testing.T) {
	tests := map[string]string{
		"  Google Ads  ":     "google_ads",
		"Spring\t\nSale":     "spring_sale",
		"black-friday_2024":  "black-friday_2024",
		"50% off + shipping": "50_off__shipping",
		"Ünïcode":            "ncode",
		"!!!":                "",
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanValue(in), "CleanValue(%q)", in)
	}
}

func TestCleanDropsEmptyFields(t *testing.T) {
	got := Clean(utm.Params{Source: "google", Medium: "???", Content: "Hero Banner"})
	assert.Equal(t, utm.Params{Source: "google", Content: "hero_banner"}, got)
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		res := Validate(utm.Params{Source: "google", Medium: "cpc"})
		assert.True(t, res.IsValid)
		assert.Empty(t, res.Issues)
	})

	t.Run("missing source", func(t *testing.T) {
		res := Validate(utm.Params{Medium: "cpc"})
		assert.False(t, res.IsValid)
		assert.Equal(t, []string{"utm_source is missing"}, res.Issues)
	})

	t.Run("short source and encoded characters", func(t *testing.T) {
		res := Validate(utm.Params{Source: "g", Campaign: "spring%20sale", Term: "a+b"})
		assert.False(t, res.IsValid)
		assert.Equal(t, []string{
			"utm_source is shorter than 2 characters",
			"utm_campaign contains encoded characters",
			"utm_term contains encoded characters",
		}, res.Issues)
	})

	t.Run("source length counts characters", func(t *testing.T) {
		res := Validate(utm.Params{Source: "é"})
		assert.False(t, res.IsValid)
		assert.Equal(t, []string{"utm_source is shorter than 2 characters"}, res.Issues)

		assert.True(t, Validate(utm.Params{Source: "éé"}).IsValid)
	})
}
