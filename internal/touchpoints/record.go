package touchpoints

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"utmlens/internal/utm"
)

// Record is one stored marketing touchpoint. Records are append-only.
type Record struct {
	ID               string     `gorm:"primaryKey;size:36" json:"id"`
	ContactID        string     `gorm:"size:64;index:idx_utm_records_contact_time" json:"contact_id,omitempty"`
	DealID           string     `gorm:"size:64" json:"deal_id,omitempty"`
	OriginalParams   utm.Params `gorm:"serializer:json" json:"original_params"`
	NormalizedParams utm.Params `gorm:"serializer:json" json:"normalized_params"`
	Source           string     `gorm:"not null;size:255" json:"source"`
	SourceDetail     string     `gorm:"size:255" json:"source_detail"`
	Channel          string     `gorm:"not null;size:100;index" json:"channel"`
	LandingURL       string     `gorm:"size:2048" json:"landing_url,omitempty"`
	Referrer         string     `gorm:"size:2048" json:"referrer,omitempty"`
	Revenue          float64    `gorm:"not null;default:0" json:"revenue"`
	Timestamp        time.Time  `gorm:"not null;index:idx_utm_records_contact_time" json:"timestamp"`
	CreatedAt        time.Time  `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Record) TableName() string {
	return "utm_records"
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (r *Record) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Campaign is the normalized campaign name, if any.
func (r Record) Campaign() string {
	return r.NormalizedParams.Campaign
}

// ListFilter narrows ListRecords. Zero values are ignored.
type ListFilter struct {
	ContactID string
	Channel   string
	From      time.Time
	To        time.Time
	Limit     int
}

// CreateRecord inserts a touchpoint.
func CreateRecord(db *gorm.DB, r *Record) error {
	if r.Channel == "" {
		return fmt.Errorf("touchpoint channel is required")
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("touchpoint timestamp is required")
	}
	r.Timestamp = r.Timestamp.UTC()
	r.CreatedAt = time.Now().UTC()
	return db.Create(r).Error
}

// GetRecordByID retrieves a touchpoint by ID
func GetRecordByID(db *gorm.DB, id string) (*Record, error) {
	var r Record
	if err := db.Where("id = ?", id).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRecordsForContact returns a contact's touchpoints oldest first. Equal
// timestamps keep insertion order.
func ListRecordsForContact(db *gorm.DB, contactID string) ([]Record, error) {
	var records []Record
	err := db.Where("contact_id = ?", contactID).
		Order("timestamp ASC").
		Order("created_at ASC").
		Order("rowid ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ListRecordsByIDs returns the touchpoints with the given IDs, keyed by ID.
func ListRecordsByIDs(db *gorm.DB, ids []string) (map[string]Record, error) {
	out := make(map[string]Record, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var records []Record
	if err := db.Where("id IN ?", ids).Find(&records).Error; err != nil {
		return nil, err
	}
	for _, r := range records {
		out[r.ID] = r
	}
	return out, nil
}

// ListRecords returns touchpoints newest first.
func ListRecords(db *gorm.DB, f ListFilter) ([]Record, error) {
	query := db.Model(&Record{})
	if f.ContactID != "" {
		query = query.Where("contact_id = ?", f.ContactID)
	}
	if f.Channel != "" {
		query = query.Where("channel = ?", f.Channel)
	}
	if !f.From.IsZero() {
		query = query.Where("timestamp >= ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		query = query.Where("timestamp <= ?", f.To.UTC())
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}

	var records []Record
	if err := query.Order("timestamp DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// DistinctChannels returns every channel that has at least one touchpoint.
func DistinctChannels(db *gorm.DB) ([]string, error) {
	var names []string
	err := db.Model(&Record{}).
		Distinct().
		Where("channel <> ''").
		Order("channel ASC").
		Pluck("channel", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}
