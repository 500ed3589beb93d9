package seeder_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"utmlens/internal/channels"
	"utmlens/internal/costs"
	"utmlens/internal/normalization"
	"utmlens/internal/seeder"
	"utmlens/internal/testsupport"
	"utmlens/internal/touchpoints"
	"utmlens/internal/utm"
)

func TestDefaultRules(t *testing.T) {
	rules, err := seeder.DefaultRules()
	require.NoError(t, err)
	require.Len(t, rules, 6)

	byValue := make(map[string]normalization.Rule)
	for _, r := range rules {
		assert.Equal(t, normalization.MatchExact, r.MatchType)
		assert.Equal(t, 10, r.Priority)
		assert.True(t, r.IsActive)
		byValue[r.MatchValue] = r
	}
	assert.Equal(t, "facebook", byValue["fb"].NormalizedValue)
	assert.Equal(t, utm.FieldSource, byValue["li"].Field)
	assert.Equal(t, utm.FieldMedium, byValue["ppc"].Field)
	assert.Equal(t, "paid", byValue["cpc"].NormalizedValue)
}

func TestDefaultMappings(t *testing.T) {
	mappings, err := seeder.DefaultMappings()
	require.NoError(t, err)
	require.Len(t, mappings, 7)

	got := channels.Resolve(mappings, utm.Params{Source: "email", Medium: "newsletter"})
	assert.Equal(t, "Email", got.Source)
	assert.Equal(t, "Newsletter", got.SourceDetail)
	assert.Equal(t, channels.ChannelEmail, got.Channel)

	got = channels.Resolve(mappings, utm.Params{Source: "linkedin", Medium: "paid"})
	assert.Equal(t, "LinkedIn Ads", got.Source)
	assert.Equal(t, channels.ChannelPaidSocial, got.Channel)

	got = channels.Resolve(mappings, utm.Params{Source: "direct"})
	assert.Equal(t, 1, got.Mapping.Priority)
}

func TestSeedDefaults(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()

	require.NoError(t, seeder.SeedDefaults(db, logger))
	require.NoError(t, seeder.SeedDefaults(db, logger))

	rules, err := normalization.ListRules(db)
	require.NoError(t, err)
	assert.Len(t, rules, 6)

	mappings, err := channels.ListMappings(db)
	require.NoError(t, err)
	assert.Len(t, mappings, 7)
}

func TestSeederRun(t *testing.T) {
	st := testsupport.SetupTestStore(t)
	clock := testsupport.FixedClock(2026, time.May, 15, 12)

	s := seeder.NewSeeder(st.DB(), st.Ingestor(nil, clock), st.Calculator(clock, 0), testsupport.GetLogger(), 12)
	s.Now = clock.At

	summary, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 12, summary.Contacts)
	assert.GreaterOrEqual(t, summary.Touchpoints, 12)
	assert.LessOrEqual(t, summary.Touchpoints, 60)
	assert.Equal(t, 3, summary.Costs)

	records, err := touchpoints.ListRecords(st.DB(), touchpoints.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, records, summary.Touchpoints)
	for _, r := range records {
		assert.False(t, r.Timestamp.After(clock.At))
		assert.NotEmpty(t, r.Channel)
	}

	spend, err := costs.ListCosts(st.DB(), costs.Filter{})
	require.NoError(t, err)
	require.Len(t, spend, 3)
	assert.Equal(t, time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC), spend[0].StartDate.UTC())
}

func TestSeederRunStopsOnCancel(t *testing.T) {
	st := testsupport.SetupTestStore(t)
	s := seeder.NewSeeder(st.DB(), st.Ingestor(nil, nil), st.Calculator(nil, 0), testsupport.GetLogger(), 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, summary.Contacts)
}
