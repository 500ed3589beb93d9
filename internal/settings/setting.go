package settings

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"utmlens/internal/attribution"
	"utmlens/internal/config"
)

// Setting represents a configuration item in the database
type Setting struct {
	ID        uint      `gorm:"primaryKey"`
	Key       string    `gorm:"uniqueIndex;not null"`
	Value     string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:milli"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:milli"`
}

// Attribution settings keys
const (
	KeyDefaultAttributionModel = "default_attribution_model"
	KeyTimeDecayHalfLifeDays   = "time_decay_half_life_days"
)

// AttributionDefaults are the model and half-life used when a request does
// not name its own.
type AttributionDefaults struct {
	Model        attribution.Model `json:"model"`
	HalfLifeDays float64           `json:"half_life_days"`
}

// DefaultsFromConfig returns the configured attribution defaults.
func DefaultsFromConfig(cfg *config.Config) AttributionDefaults {
	return AttributionDefaults{
		Model:        attribution.Model(cfg.DefaultAttributionModel),
		HalfLifeDays: cfg.TimeDecayHalfLifeDays,
	}
}

// HalfLife converts HalfLifeDays into a duration.
func (d AttributionDefaults) HalfLife() time.Duration {
	return time.Duration(d.HalfLifeDays * float64(24*time.Hour))
}

// Config builds the calculator configuration for these defaults.
func (d AttributionDefaults) Config() attribution.Config {
	return attribution.Config{Model: d.Model, HalfLife: d.HalfLife()}
}

// Validate checks the model name and that the half-life is positive.
func (d AttributionDefaults) Validate() error {
	if _, err := attribution.ParseModel(string(d.Model)); err != nil {
		return err
	}
	if d.HalfLifeDays <= 0 {
		return fmt.Errorf("half-life must be positive, got %v days", d.HalfLifeDays)
	}
	return nil
}

// SetupDefaultSettings initializes default settings in the database.
// Existing values are left untouched.
func SetupDefaultSettings(dbConn *gorm.DB, defaults AttributionDefaults) error {
	if err := defaults.Validate(); err != nil {
		return fmt.Errorf("invalid attribution defaults: %w", err)
	}

	settings := []Setting{
		{Key: KeyDefaultAttributionModel, Value: string(defaults.Model)},
		{Key: KeyTimeDecayHalfLifeDays, Value: formatDays(defaults.HalfLifeDays)},
	}
	return sqlite.PerformWrite(slog.Default(), dbConn, func(tx *gorm.DB) error {
		for _, setting := range settings {
			err := tx.Exec(`
                INSERT INTO settings (key, value, created_at, updated_at)
                VALUES (?, ?, ?, ?)
                ON CONFLICT(key) DO NOTHING
            `, setting.Key, setting.Value, time.Now().UTC(), time.Now().UTC()).Error
			if err != nil {
				slog.Default().Error("Failed to upsert setting", slog.String("key", setting.Key), slog.Any("error", err))
				return fmt.Errorf("failed to upsert setting %s: %w", setting.Key, err)
			}
		}
		return nil
	})
}

// GetSetting retrieves a setting value from the database
func GetSetting(dbConn *gorm.DB, key string) (string, error) {
	var setting Setting
	result := dbConn.Where("key = ?", key).First(&setting)

	if result.Error != nil {
		return "", result.Error
	}

	return setting.Value, nil
}

// UpdateSetting updates a setting in the database using a transaction
func UpdateSetting(dbConn *gorm.DB, key string, value string) error {
	return dbConn.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Setting{}).Where("key = ?", key).Update("value", value)
		if result.Error != nil {
			return fmt.Errorf("failed to update setting: %w", result.Error)
		}

		// If no rows were affected, the setting might not exist - try to create it
		if result.RowsAffected == 0 {
			setting := Setting{
				Key:   key,
				Value: value,
			}
			if err := tx.Create(&setting).Error; err != nil {
				return fmt.Errorf("failed to create setting: %w", err)
			}
		}
		return nil
	})
}

// CreateOrUpdateSetting creates a new setting or updates an existing one
func CreateOrUpdateSetting(dbConn *gorm.DB, key string, value string) error {
	var count int64
	if err := dbConn.Model(&Setting{}).Where("key = ?", key).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check if setting exists: %w", err)
	}

	if count > 0 {
		return UpdateSetting(dbConn, key, value)
	}
	setting := Setting{
		Key:   key,
		Value: value,
	}
	if err := dbConn.Create(&setting).Error; err != nil {
		return fmt.Errorf("failed to create setting: %w", err)
	}
	return nil
}

func formatDays(days float64) string {
	return strconv.FormatFloat(days, 'f', -1, 64)
}

// GetAttributionDefaults reads the stored defaults. Missing or unparsable
// values fall back to the corresponding field of fallback.
func GetAttributionDefaults(db *gorm.DB, fallback AttributionDefaults) (AttributionDefaults, error) {
	out := fallback

	if raw, err := GetSetting(db, KeyDefaultAttributionModel); err == nil {
		if model, err := attribution.ParseModel(strings.TrimSpace(raw)); err == nil {
			out.Model = model
		}
	} else if err != gorm.ErrRecordNotFound {
		return fallback, fmt.Errorf("failed to read %s: %w", KeyDefaultAttributionModel, err)
	}

	if raw, err := GetSetting(db, KeyTimeDecayHalfLifeDays); err == nil {
		if days, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil && days > 0 {
			out.HalfLifeDays = days
		}
	} else if err != gorm.ErrRecordNotFound {
		return fallback, fmt.Errorf("failed to read %s: %w", KeyTimeDecayHalfLifeDays, err)
	}

	return out, nil
}

// SaveAttributionDefaults validates and stores the defaults.
func SaveAttributionDefaults(db *gorm.DB, d AttributionDefaults) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if err := CreateOrUpdateSetting(db, KeyDefaultAttributionModel, string(d.Model)); err != nil {
		return fmt.Errorf("failed to save default attribution model: %w", err)
	}
	if err := CreateOrUpdateSetting(db, KeyTimeDecayHalfLifeDays, formatDays(d.HalfLifeDays)); err != nil {
		return fmt.Errorf("failed to save time-decay half-life: %w", err)
	}
	return nil
}

// SettingResponse represents a setting key-value pair for API responses
type SettingResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// GetAllSettingsForDisplay retrieves all settings with sensitive values
// masked for display
func GetAllSettingsForDisplay(db *gorm.DB) ([]SettingResponse, error) {
	var allSettings []Setting
	if err := db.Order("key ASC").Find(&allSettings).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch settings: %w", err)
	}

	result := make([]SettingResponse, 0, len(allSettings))
	for _, setting := range allSettings {
		value := setting.Value
		if strings.HasSuffix(setting.Key, "_token") && value != "" {
			value = strings.Repeat("*", len(value))
		}
		result = append(result, SettingResponse{
			Key:   setting.Key,
			Value: value,
		})
	}
	return result, nil
}
