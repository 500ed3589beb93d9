package seeder

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/karloscodes/cartridge/sqlite"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"utmlens/internal/attribution"
	"utmlens/internal/channels"
	"utmlens/internal/costs"
	"utmlens/internal/normalization"
	"utmlens/internal/touchpoints"
	"utmlens/internal/utm"
)

//go:embed defaults.yaml
var defaultsFile []byte

type ruleSpec struct {
	Field           utm.Field               `yaml:"field"`
	MatchType       normalization.MatchType `yaml:"match_type"`
	MatchValue      string                  `yaml:"match_value"`
	NormalizedValue string                  `yaml:"normalized_value"`
	Priority        int                     `yaml:"priority"`
}

type mappingSpec struct {
	UTMSource    string `yaml:"utm_source"`
	UTMMedium    string `yaml:"utm_medium"`
	Source       string `yaml:"source"`
	SourceDetail string `yaml:"source_detail"`
	Channel      string `yaml:"channel"`
	Priority     int    `yaml:"priority"`
}

type defaults struct {
	Rules    []ruleSpec    `yaml:"rules"`
	Mappings []mappingSpec `yaml:"mappings"`
}

func loadDefaults() (*defaults, error) {
	var d defaults
	if err := yaml.Unmarshal(defaultsFile, &d); err != nil {
		return nil, fmt.Errorf("failed to parse seed defaults: %w", err)
	}
	return &d, nil
}

// DefaultRules returns the baseline normalization rules, all active.
func DefaultRules() ([]normalization.Rule, error) {
	d, err := loadDefaults()
	if err != nil {
		return nil, err
	}
	rules := make([]normalization.Rule, 0, len(d.Rules))
	for _, r := range d.Rules {
		rules = append(rules, normalization.Rule{
			Field:           r.Field,
			MatchType:       r.MatchType,
			MatchValue:      r.MatchValue,
			NormalizedValue: r.NormalizedValue,
			Priority:        r.Priority,
			IsActive:        true,
		})
	}
	return rules, nil
}

// DefaultMappings returns the baseline source mappings, all active.
func DefaultMappings() ([]channels.Mapping, error) {
	d, err := loadDefaults()
	if err != nil {
		return nil, err
	}
	mappings := make([]channels.Mapping, 0, len(d.Mappings))
	for _, m := range d.Mappings {
		mappings = append(mappings, channels.Mapping{
			UTMSource:    m.UTMSource,
			UTMMedium:    m.UTMMedium,
			Source:       m.Source,
			SourceDetail: m.SourceDetail,
			Channel:      m.Channel,
			Priority:     m.Priority,
			IsActive:     true,
		})
	}
	return mappings, nil
}

// SeedDefaults installs the baseline rules and mappings. Each collection is
// only seeded while empty, so running it again is a no-op.
func SeedDefaults(db *gorm.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	rules, err := DefaultRules()
	if err != nil {
		return err
	}
	mappings, err := DefaultMappings()
	if err != nil {
		return err
	}

	var seededRules, seededMappings int
	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&normalization.Rule{}).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			for i := range rules {
				if err := normalization.CreateRule(tx, &rules[i]); err != nil {
					return fmt.Errorf("failed to seed rule %q: %w", rules[i].MatchValue, err)
				}
			}
			seededRules = len(rules)
		}

		if err := tx.Model(&channels.Mapping{}).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			for i := range mappings {
				if err := channels.CreateMapping(tx, &mappings[i]); err != nil {
					return fmt.Errorf("failed to seed mapping %q: %w", mappings[i].UTMSource, err)
				}
			}
			seededMappings = len(mappings)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to seed defaults: %w", err)
	}

	logger.Info("Default rules and mappings seeded",
		slog.Int("rules", seededRules),
		slog.Int("mappings", seededMappings))
	return nil
}

// TouchpointIngestor stores one raw touchpoint.
type TouchpointIngestor interface {
	Ingest(ctx context.Context, in touchpoints.Input) (*touchpoints.Outcome, error)
}

// ConversionRecorder credits a conversion across a contact's touchpoints.
type ConversionRecorder interface {
	CreateAttribution(ctx context.Context, contactID, dealID string, revenue float64, cfg attribution.Config) ([]attribution.Event, error)
}

// Seeder generates demo journeys, conversions and channel spend so that
// the metrics endpoints have something to show.
type Seeder struct {
	DB           *gorm.DB
	Ingestor     TouchpointIngestor
	Attributor   ConversionRecorder
	Logger       *slog.Logger
	ContactCount int
	Now          time.Time
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, ingestor TouchpointIngestor, attributor ConversionRecorder, logger *slog.Logger, contactCount int) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		DB:           db,
		Ingestor:     ingestor,
		Attributor:   attributor,
		Logger:       logger,
		ContactCount: contactCount,
		Now:          time.Now().UTC(),
	}
}

// Summary counts what one Run created.
type Summary struct {
	Contacts    int `json:"contacts"`
	Touchpoints int `json:"touchpoints"`
	Conversions int `json:"conversions"`
	Costs       int `json:"costs"`
}

var demoCampaigns = []utm.Params{
	{Source: "google", Medium: "cpc", Campaign: "brand_search"},
	{Source: "google", Medium: "cpc", Campaign: "competitor_terms"},
	{Source: "google", Medium: "organic"},
	{Source: "fb", Medium: "paid", Campaign: "spring_launch"},
	{Source: "facebook", Medium: "organic"},
	{Source: "li", Medium: "paid", Campaign: "abm_q2"},
	{Source: "email", Medium: "newsletter", Campaign: "weekly_digest"},
	{Source: "ig", Medium: "social", Campaign: "creator_collab"},
	{Source: "direct"},
}

var demoReferrers = []string{
	"https://www.google.com/search?q=utm+attribution",
	"https://news.ycombinator.com/item?id=4242",
	"https://www.reddit.com/r/marketing/",
	"https://mail.google.com/mail/u/0",
}

var demoSpend = map[string]float64{
	channels.ChannelPaidSearch: 4200,
	channels.ChannelPaidSocial: 3100,
	channels.ChannelEmail:      350,
}

// Run creates ContactCount contacts, each with a journey of one to five
// touchpoints over the last 30 days. About a quarter of them convert.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	s.Logger.Info("Seeding demo data...", slog.Int("contacts", s.ContactCount))

	summary := &Summary{}
	for i := 0; i < s.ContactCount; i++ {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		contactID := fmt.Sprintf("demo-%04d", i+1)
		created, err := s.seedJourney(ctx, contactID)
		if err != nil {
			return summary, fmt.Errorf("failed to seed journey for %s: %w", contactID, err)
		}
		summary.Contacts++
		summary.Touchpoints += created

		if rand.Float64() < 0.25 {
			revenue := float64(rand.IntN(45)+5) * 100
			if _, err := s.Attributor.CreateAttribution(ctx, contactID, "deal-"+contactID, revenue, attribution.Config{Model: attribution.ModelLinear}); err != nil {
				return summary, fmt.Errorf("failed to attribute %s: %w", contactID, err)
			}
			summary.Conversions++
		}
	}

	n, err := s.seedCosts()
	if err != nil {
		return summary, err
	}
	summary.Costs = n

	s.Logger.Info("Demo seeding completed",
		slog.Int("contacts", summary.Contacts),
		slog.Int("touchpoints", summary.Touchpoints),
		slog.Int("conversions", summary.Conversions),
		slog.Duration("elapsed", time.Since(start)))
	return summary, nil
}

func (s *Seeder) seedJourney(ctx context.Context, contactID string) (int, error) {
	steps := rand.IntN(5) + 1
	baseTime := s.Now.Add(-time.Duration(rand.IntN(30*24*60*60)) * time.Second)
	created := 0

	for step := 0; step < steps; step++ {
		ts := baseTime.Add(time.Duration(step*rand.IntN(36)+step) * time.Hour)
		if ts.After(s.Now) {
			ts = s.Now
		}

		in := touchpoints.Input{ContactID: contactID, Timestamp: ts}
		if rand.Float64() < 0.15 {
			// untagged visit, channel comes from the referrer
			in.Referrer = demoReferrers[rand.IntN(len(demoReferrers))]
		} else {
			in.Params = demoCampaigns[rand.IntN(len(demoCampaigns))]
		}

		if _, err := s.Ingestor.Ingest(ctx, in); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// seedCosts records one monthly spend entry per paid channel covering the
// current calendar month.
func (s *Seeder) seedCosts() (int, error) {
	monthStart := time.Date(s.Now.Year(), s.Now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0).Add(-time.Second)

	created := 0
	err := sqlite.PerformWrite(s.Logger, s.DB, func(tx *gorm.DB) error {
		for channel, spend := range demoSpend {
			c := &costs.ChannelCost{
				Channel:   channel,
				Cost:      spend,
				Period:    costs.PeriodMonthly,
				StartDate: monthStart,
				EndDate:   monthEnd,
			}
			if err := costs.CreateCost(tx, c); err != nil {
				return fmt.Errorf("failed to seed cost for %s: %w", channel, err)
			}
			created++
		}
		return nil
	})
	return created, err
}
