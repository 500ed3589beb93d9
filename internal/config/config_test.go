package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetConfigDefaults(t *testing.T) {
	t.Setenv("UTMLENS_ENV", Test)
	Reset()
	t.Cleanup(Reset)

	cfg := GetConfig()
	assert.Equal(t, "utmlens", cfg.AppName)
	assert.True(t, cfg.IsTest())
	assert.Equal(t, "linear", cfg.DefaultAttributionModel)
	assert.Equal(t, 7.0, cfg.TimeDecayHalfLifeDays)
	assert.False(t, cfg.HubSpotEnabled())
	assert.Equal(t, 10*time.Second, cfg.GetHubSpotTimeout())
	assert.Equal(t, 1, cfg.GetMaxOpenConns())
	assert.Equal(t, "storage/utmlens-test.db", cfg.GetDatabasePath())
}

func TestGetConfigDefaultsToDevelopment(t *testing.T) {
	t.Setenv("UTMLENS_ENV", "")
	Reset()
	t.Cleanup(Reset)

	cfg := GetConfig()
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 10, cfg.GetMaxOpenConns())
	assert.Equal(t, "", cfg.Domain)
}

func TestGetConfigFromEnvironment(t *testing.T) {
	t.Setenv("UTMLENS_ENV", Test)
	t.Setenv("UTMLENS_DOMAIN", "shop.example.com")
	t.Setenv("UTMLENS_HUBSPOT_TOKEN", "pat-123")
	t.Setenv("UTMLENS_DEFAULT_ATTRIBUTION_MODEL", "time_decay")
	t.Setenv("UTMLENS_TIME_DECAY_HALF_LIFE_DAYS", "3.5")
	t.Setenv("UTMLENS_CRM_RETRY_INTERVAL_SECONDS", "60")
	Reset()
	t.Cleanup(Reset)

	cfg := GetConfig()
	assert.True(t, cfg.HubSpotEnabled())
	assert.Equal(t, "shop.example.com", cfg.Domain)
	assert.Equal(t, "time_decay", cfg.DefaultAttributionModel)
	assert.Equal(t, 3.5, cfg.TimeDecayHalfLifeDays)
	assert.Equal(t, time.Minute, cfg.GetCRMRetryInterval())
}
