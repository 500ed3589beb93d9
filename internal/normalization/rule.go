package normalization

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"utmlens/internal/utm"
)

// MatchType selects how a rule compares its pattern to a parameter value.
type MatchType string

const (
	MatchExact      MatchType = "exact"
	MatchContains   MatchType = "contains"
	MatchRegex      MatchType = "regex"
	MatchStartsWith MatchType = "startsWith"
	MatchEndsWith   MatchType = "endsWith"
)

// ValidMatchTypes returns all valid match types
func ValidMatchTypes() []MatchType {
	return []MatchType{MatchExact, MatchContains, MatchRegex, MatchStartsWith, MatchEndsWith}
}

// IsValidMatchType checks if the given match type is valid
func IsValidMatchType(m MatchType) bool {
	for _, valid := range ValidMatchTypes() {
		if m == valid {
			return true
		}
	}
	return false
}

// Rule rewrites one tracking field to a canonical value when it matches.
type Rule struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Field           utm.Field `gorm:"not null;size:32" json:"field"`
	MatchType       MatchType `gorm:"not null;size:20" json:"match_type"`
	MatchValue      string    `gorm:"not null;size:255" json:"match_value"`
	NormalizedValue string    `gorm:"not null;size:255" json:"normalized_value"`
	Priority        int       `gorm:"not null;index:idx_normalization_rules_active_priority" json:"priority"`
	IsActive        bool      `gorm:"not null;index:idx_normalization_rules_active_priority" json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Rule) TableName() string {
	return "normalization_rules"
}

// ValidateRule rejects unknown fields or match types and empty values.
func ValidateRule(rule *Rule) error {
	if !rule.Field.IsValid() {
		return fmt.Errorf("invalid field: %q", rule.Field)
	}
	if !IsValidMatchType(rule.MatchType) {
		return fmt.Errorf("invalid match type: %q", rule.MatchType)
	}
	if rule.MatchValue == "" {
		return fmt.Errorf("match value is required")
	}
	if rule.NormalizedValue == "" {
		return fmt.Errorf("normalized value is required")
	}
	return nil
}

// CreateRule validates and inserts a new rule.
func CreateRule(db *gorm.DB, rule *Rule) error {
	if err := ValidateRule(rule); err != nil {
		return err
	}

	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	return db.Create(rule).Error
}

// GetRuleByID retrieves a rule by ID
func GetRuleByID(db *gorm.DB, id uint) (*Rule, error) {
	var rule Rule
	if err := db.First(&rule, id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListRules returns every rule in evaluation order.
func ListRules(db *gorm.DB) ([]Rule, error) {
	var rules []Rule
	err := db.Order("priority DESC").Order("id ASC").Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// ListActiveRules returns the active rules in evaluation order: descending
// priority, ties broken by insertion order.
func ListActiveRules(db *gorm.DB) ([]Rule, error) {
	var rules []Rule
	err := db.Where("is_active = ?", true).
		Order("priority DESC").
		Order("id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// UpdateRule saves every mutable column of an existing rule.
func UpdateRule(db *gorm.DB, rule *Rule) error {
	if rule.ID == 0 {
		return fmt.Errorf("rule ID is required")
	}
	if err := ValidateRule(rule); err != nil {
		return err
	}

	rule.UpdatedAt = time.Now().UTC()

	result := db.Model(rule).
		Select("field", "match_type", "match_value", "normalized_value", "priority", "is_active", "updated_at").
		Updates(rule)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteRule deletes a rule by ID
func DeleteRule(db *gorm.DB, id uint) error {
	result := db.Delete(&Rule{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
