// Package costs stores marketing spend per channel and period.
package costs

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Period is the billing granularity of a cost record.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// DefaultCurrency is applied to records created without one.
const DefaultCurrency = "USD"

// ValidPeriods returns all valid periods
func ValidPeriods() []Period {
	return []Period{PeriodDaily, PeriodWeekly, PeriodMonthly}
}

// IsValidPeriod checks if the given period is valid
func IsValidPeriod(p Period) bool {
	for _, valid := range ValidPeriods() {
		if p == valid {
			return true
		}
	}
	return false
}

// ChannelCost is spend on a channel, optionally narrowed to a source and
// source detail, over the inclusive window [StartDate, EndDate].
type ChannelCost struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Channel      string    `gorm:"not null;size:100;index:idx_channel_costs_channel_window" json:"channel"`
	Source       string    `gorm:"size:255" json:"source,omitempty"`
	SourceDetail string    `gorm:"size:255" json:"source_detail,omitempty"`
	Cost         float64   `gorm:"not null" json:"cost"`
	Period       Period    `gorm:"not null;size:20" json:"period"`
	StartDate    time.Time `gorm:"not null;index:idx_channel_costs_channel_window" json:"start_date"`
	EndDate      time.Time `gorm:"not null;index:idx_channel_costs_channel_window" json:"end_date"`
	Currency     string    `gorm:"not null;size:3" json:"currency"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (ChannelCost) TableName() string {
	return "channel_costs"
}

// Filter narrows ListCosts. A cost matches when its whole window lies
// inside [From, To]; zero bounds are open. Empty dimensions match all.
type Filter struct {
	From         time.Time
	To           time.Time
	Channel      string
	Source       string
	SourceDetail string
}

// Prepare validates c and applies its defaults.
func Prepare(c *ChannelCost) error {
	if c.Channel == "" {
		return fmt.Errorf("channel is required")
	}
	if c.Cost < 0 {
		return fmt.Errorf("cost must not be negative")
	}
	if c.Period == "" {
		c.Period = PeriodMonthly
	}
	if !IsValidPeriod(c.Period) {
		return fmt.Errorf("invalid period: %s", c.Period)
	}
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return fmt.Errorf("start and end dates are required")
	}
	if c.StartDate.After(c.EndDate) {
		return fmt.Errorf("start date must not be after end date")
	}
	if c.Currency == "" {
		c.Currency = DefaultCurrency
	}
	c.StartDate = c.StartDate.UTC()
	c.EndDate = c.EndDate.UTC()
	return nil
}

// CreateCost validates and inserts a cost record.
func CreateCost(db *gorm.DB, c *ChannelCost) error {
	if err := Prepare(c); err != nil {
		return err
	}

	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	return db.Create(c).Error
}

// GetCostByID retrieves a cost record by ID
func GetCostByID(db *gorm.DB, id uint) (*ChannelCost, error) {
	var c ChannelCost
	if err := db.First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCosts returns the cost records matching f, oldest window first.
func ListCosts(db *gorm.DB, f Filter) ([]ChannelCost, error) {
	query := db.Model(&ChannelCost{})
	if !f.From.IsZero() {
		query = query.Where("start_date >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		query = query.Where("end_date <= ?", f.To.UTC())
	}
	if f.Channel != "" {
		query = query.Where("channel = ?", f.Channel)
	}
	if f.Source != "" {
		query = query.Where("source = ?", f.Source)
	}
	if f.SourceDetail != "" {
		query = query.Where("source_detail = ?", f.SourceDetail)
	}

	var records []ChannelCost
	if err := query.Order("start_date ASC").Order("id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// DistinctChannels returns every channel that has spend recorded.
func DistinctChannels(db *gorm.DB) ([]string, error) {
	var channels []string
	err := db.Model(&ChannelCost{}).Distinct().Order("channel ASC").Pluck("channel", &channels).Error
	if err != nil {
		return nil, err
	}
	return channels, nil
}

// UpdateCost saves every mutable column of an existing cost record.
func UpdateCost(db *gorm.DB, c *ChannelCost) error {
	if c.ID == 0 {
		return fmt.Errorf("cost ID is required")
	}
	if err := Prepare(c); err != nil {
		return err
	}

	c.UpdatedAt = time.Now().UTC()

	result := db.Model(c).
		Select("channel", "source", "source_detail", "cost", "period", "start_date", "end_date", "currency", "updated_at").
		Updates(c)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteCost deletes a cost record by ID
func DeleteCost(db *gorm.DB, id uint) error {
	result := db.Delete(&ChannelCost{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
