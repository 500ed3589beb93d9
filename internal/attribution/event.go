package attribution

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Model is a multi-touch credit assignment strategy.
type Model string

const (
	ModelFirstTouch Model = "first_touch"
	ModelLastTouch  Model = "last_touch"
	ModelLinear     Model = "linear"
	ModelTimeDecay  Model = "time_decay"
)

// ValidModels returns all supported attribution models
func ValidModels() []Model {
	return []Model{ModelFirstTouch, ModelLastTouch, ModelLinear, ModelTimeDecay}
}

// ParseModel converts a raw model name into a Model.
func ParseModel(raw string) (Model, error) {
	for _, m := range ValidModels() {
		if Model(raw) == m {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown attribution model: %q", raw)
}

// Event is the share of one conversion credited to one touchpoint.
type Event struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	ContactID    string    `gorm:"not null;size:64;index" json:"contact_id"`
	DealID       string    `gorm:"size:64" json:"deal_id,omitempty"`
	UTMRecordID  string    `gorm:"column:utm_record_id;not null;size:36" json:"utm_record_id"`
	Channel      string    `gorm:"not null;size:100;index:idx_attribution_events_channel_time" json:"channel"`
	Source       string    `gorm:"size:255" json:"source"`
	SourceDetail string    `gorm:"size:255" json:"source_detail"`
	Model        Model     `gorm:"column:attribution_model;not null;size:20" json:"attribution_model"`
	Weight       float64   `gorm:"column:attribution_weight;not null" json:"attribution_weight"`
	Revenue      float64   `gorm:"not null;default:0" json:"revenue"`
	Timestamp    time.Time `gorm:"not null;index:idx_attribution_events_channel_time" json:"timestamp"`
}

// TableName specifies the table name for GORM
func (Event) TableName() string {
	return "attribution_events"
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// AttributedRevenue is the revenue credited to this touchpoint.
func (e Event) AttributedRevenue() float64 {
	return e.Revenue * e.Weight
}

// EventFilter narrows ListEvents. Zero values are ignored.
type EventFilter struct {
	From         time.Time
	To           time.Time
	Channel      string
	Source       string
	SourceDetail string
}

// CreateEvents inserts events in one statement.
func CreateEvents(db *gorm.DB, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	for i := range events {
		events[i].Timestamp = events[i].Timestamp.UTC()
	}
	return db.Create(&events).Error
}

// ListEventsForContact returns a contact's events oldest first.
func ListEventsForContact(db *gorm.DB, contactID string) ([]Event, error) {
	var events []Event
	err := db.Where("contact_id = ?", contactID).
		Order("timestamp ASC").
		Order("rowid ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ListEvents returns the events matching f.
func ListEvents(db *gorm.DB, f EventFilter) ([]Event, error) {
	query := db.Model(&Event{})
	if !f.From.IsZero() {
		query = query.Where("timestamp >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		query = query.Where("timestamp <= ?", f.To.UTC())
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

	var events []Event
	if err := query.Order("timestamp ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// DeleteEventsForContact removes every event credited to a contact.
func DeleteEventsForContact(db *gorm.DB, contactID string) (int64, error) {
	result := db.Where("contact_id = ?", contactID).Delete(&Event{})
	return result.RowsAffected, result.Error
}
