package channels

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Mapping classifies a (utm_source, utm_medium) pattern pair into the
// business taxonomy. Patterns may contain "*" wildcards; an empty
// UTMMedium matches any medium.
type Mapping struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UTMSource    string    `gorm:"not null;size:255" json:"utm_source"`
	UTMMedium    string    `gorm:"size:255" json:"utm_medium,omitempty"`
	Source       string    `gorm:"not null;size:255" json:"source"`
	SourceDetail string    `gorm:"size:255" json:"source_detail"`
	Channel      string    `gorm:"not null;size:100" json:"channel"`
	Priority     int       `gorm:"not null;index:idx_source_mappings_active_priority" json:"priority"`
	IsActive     bool      `gorm:"not null;index:idx_source_mappings_active_priority" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Mapping) TableName() string {
	return "source_mappings"
}

// ValidateMapping reports the first missing required column.
func ValidateMapping(m *Mapping) error {
	if m.UTMSource == "" {
		return fmt.Errorf("utm source pattern is required")
	}
	if m.Source == "" {
		return fmt.Errorf("source is required")
	}
	if m.Channel == "" {
		return fmt.Errorf("channel is required")
	}
	return nil
}

// CreateMapping validates and inserts a new mapping.
func CreateMapping(db *gorm.DB, m *Mapping) error {
	if err := ValidateMapping(m); err != nil {
		return err
	}

	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	return db.Create(m).Error
}

// GetMappingByID retrieves a mapping by ID
func GetMappingByID(db *gorm.DB, id uint) (*Mapping, error) {
	var m Mapping
	if err := db.First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMappings returns every mapping in evaluation order.
func ListMappings(db *gorm.DB) ([]Mapping, error) {
	var mappings []Mapping
	if err := db.Order("priority DESC").Order("id ASC").Find(&mappings).Error; err != nil {
		return nil, err
	}
	return mappings, nil
}

// ListActiveMappings returns active mappings by descending priority, ties
// broken by insertion order.
func ListActiveMappings(db *gorm.DB) ([]Mapping, error) {
	var mappings []Mapping
	err := db.Where("is_active = ?", true).
		Order("priority DESC").
		Order("id ASC").
		Find(&mappings).Error
	if err != nil {
		return nil, err
	}
	return mappings, nil
}

// UpdateMapping saves every mutable column of an existing mapping.
func UpdateMapping(db *gorm.DB, m *Mapping) error {
	if m.ID == 0 {
		return fmt.Errorf("mapping ID is required")
	}
	if err := ValidateMapping(m); err != nil {
		return err
	}

	m.UpdatedAt = time.Now().UTC()

	result := db.Model(m).
		Select("utm_source", "utm_medium", "source", "source_detail", "channel", "priority", "is_active", "updated_at").
		Updates(m)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteMapping deletes a mapping by ID
func DeleteMapping(db *gorm.DB, id uint) error {
	result := db.Delete(&Mapping{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
