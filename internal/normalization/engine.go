// Package normalization rewrites raw tracking parameters into canonical
// values using ordered, user-editable rules.
package normalization

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"utmlens/internal/utm"
)

// RuleSource supplies the currently active rules.
type RuleSource interface {
	ActiveNormalizationRules(ctx context.Context) ([]Rule, error)
}

// Engine applies normalization rules to tracking parameters.
type Engine struct {
	rules RuleSource
}

func NewEngine(rules RuleSource) *Engine {
	return &Engine{rules: rules}
}

// Normalize folds every active rule over params, then cleans each present
// field. Rules are loaded on every call so edits apply immediately.
//
// Rules do not stop at the first match: each one sees the value left by
// the rules before it, so a lower-priority rule may fire again on an
// already rewritten value.
func (e *Engine) Normalize(ctx context.Context, params utm.Params) (utm.Params, error) {
	rules, err := e.rules.ActiveNormalizationRules(ctx)
	if err != nil {
		return utm.Params{}, fmt.Errorf("failed to load normalization rules: %w", err)
	}
	return Clean(Apply(rules, params)), nil
}

// Apply runs rules over params in evaluation order without cleaning.
func Apply(rules []Rule, params utm.Params) utm.Params {
	ordered := make([]Rule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		return ordered[i].ID < ordered[j].ID
	})

	for _, rule := range ordered {
		value := params.Get(rule.Field)
		if value == "" {
			continue
		}
		if Matches(rule, value) {
			params = params.With(rule.Field, rule.NormalizedValue)
		}
	}
	return params
}

// TestRule evaluates a single rule against value.
func TestRule(rule Rule, value string) (bool, string) {
	if Matches(rule, value) {
		return true, rule.NormalizedValue
	}
	return false, value
}

// Matches compares value with the rule pattern, case-insensitively. An
// invalid regex never matches.
func Matches(rule Rule, value string) bool {
	v := strings.ToLower(value)
	pattern := strings.ToLower(rule.MatchValue)

	switch rule.MatchType {
	case MatchExact:
		return v == pattern
	case MatchContains:
		return strings.Contains(v, pattern)
	case MatchStartsWith:
		return strings.HasPrefix(v, pattern)
	case MatchEndsWith:
		return strings.HasSuffix(v, pattern)
	case MatchRegex:
		re, err := regexp.Compile("(?i)" + rule.MatchValue)
		if err != nil {
			return false
		}
		return re.MatchString(value)
	}
	return false
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	disallowed    = regexp.MustCompile(`[^a-z0-9_-]`)
)

// CleanValue lowercases and trims v, collapses whitespace runs into "_" and
// strips every character outside [a-z0-9_-].
func CleanValue(v string) string {
	v = strings.TrimSpace(strings.ToLower(v))
	v = whitespaceRun.ReplaceAllString(v, "_")
	return disallowed.ReplaceAllString(v, "")
}

// Clean applies CleanValue to every present field. Fields that end up
// empty are dropped.
func Clean(params utm.Params) utm.Params {
	var out utm.Params
	for _, f := range utm.Fields() {
		if v := params.Get(f); v != "" {
			out = out.With(f, CleanValue(v))
		}
	}
	return out
}

// ValidationResult lists advisory issues found in raw parameters.
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Issues  []string `json:"issues"`
}

// Validate reports common tagging mistakes. It never blocks ingestion.
func Validate(params utm.Params) ValidationResult {
	issues := []string{}

	switch {
	case params.Source == "":
		issues = append(issues, "utm_source is missing")
	case utf8.RuneCountInString(params.Source) < 2:
		issues = append(issues, "utm_source is shorter than 2 characters")
	}

	for _, f := range utm.Fields() {
		if v := params.Get(f); strings.ContainsAny(v, "%+") {
			issues = append(issues, fmt.Sprintf("%s contains encoded characters", f))
		}
	}

	return ValidationResult{IsValid: len(issues) == 0, Issues: issues}
}
