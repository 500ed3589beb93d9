package crm

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// SyncState tracks the last CRM push for a contact.
type SyncState struct {
	ContactID     string     `gorm:"primaryKey;size:64" json:"contact_id"`
	Attempts      int        `gorm:"not null;default:0" json:"attempts"`
	Succeeded     bool       `gorm:"not null;index:idx_crm_sync_states_status" json:"succeeded"`
	LastAttemptAt time.Time  `gorm:"not null;index:idx_crm_sync_states_status" json:"last_attempt_at"`
	LastSyncedAt  *time.Time `json:"last_synced_at,omitempty"`
	LastError     string     `gorm:"size:1000" json:"last_error,omitempty"`
}

// TableName specifies the table name for GORM
func (SyncState) TableName() string {
	return "crm_sync_states"
}

// RecordAttempt stores the outcome of a sync. A successful attempt resets
// the attempt counter.
func RecordAttempt(db *gorm.DB, contactID string, at time.Time, syncErr error) error {
	if contactID == "" {
		return fmt.Errorf("contact ID is required")
	}
	at = at.UTC()

	var state SyncState
	err := db.Where("contact_id = ?", contactID).First(&state).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	isNew := errors.Is(err, gorm.ErrRecordNotFound)

	state.ContactID = contactID
	state.LastAttemptAt = at
	if syncErr != nil {
		msg := syncErr.Error()
		if len(msg) > 1000 {
			msg = msg[:1000]
		}
		state.Attempts++
		state.Succeeded = false
		state.LastError = msg
	} else {
		state.Attempts = 0
		state.Succeeded = true
		state.LastError = ""
		state.LastSyncedAt = &at
	}

	if isNew {
		return db.Create(&state).Error
	}
	return db.Model(&state).
		Select("attempts", "succeeded", "last_attempt_at", "last_synced_at", "last_error").
		Updates(&state).Error
}

// GetSyncState retrieves the sync state of a contact
func GetSyncState(db *gorm.DB, contactID string) (*SyncState, error) {
	var state SyncState
	if err := db.Where("contact_id = ?", contactID).First(&state).Error; err != nil {
		return nil, err
	}
	return &state, nil
}

// ListRetryable returns failed states with fewer than maxAttempts attempts
// whose last attempt is not after before, oldest first.
func ListRetryable(db *gorm.DB, maxAttempts int, before time.Time, limit int) ([]SyncState, error) {
	query := db.Where("succeeded = ? AND attempts < ? AND last_attempt_at <= ?", false, maxAttempts, before.UTC()).
		Order("last_attempt_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var states []SyncState
	if err := query.Find(&states).Error; err != nil {
		return nil, err
	}
	return states, nil
}

// DeleteSucceededBefore removes up to limit successful states last synced
// before cutoff and returns how many were removed.
func DeleteSucceededBefore(db *gorm.DB, cutoff time.Time, limit int) (int64, error) {
	sub := db.Model(&SyncState{}).
		Select("contact_id").
		Where("succeeded = ? AND last_attempt_at < ?", true, cutoff.UTC()).
		Limit(limit)
	result := db.Where("contact_id IN (?)", sub).Delete(&SyncState{})
	return result.RowsAffected, result.Error
}
