package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification kinds
const (
	NotificationKindPINChanged = "pin_changed"
)

// Notification statuses
const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
)

// MaxNotificationAttempts caps delivery retries before a row is parked as failed.
const MaxNotificationAttempts = 3

// Notification is an outbox row for best-effort side-channel messages.
// The primary mutation that enqueues one never waits on delivery; the
// notifier worker drains pending rows at least once.
type Notification struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RecipientID uuid.UUID `gorm:"type:uuid;not null;index" json:"recipient_id"`
	Kind        string    `gorm:"not null" json:"kind"`
	Subject     string    `gorm:"not null" json:"subject"`
	Body        string    `gorm:"type:text" json:"body"`

	Status   string     `gorm:"default:'pending';index" json:"status"` // pending, sent, failed
	Attempts int        `gorm:"default:0" json:"attempts"`
	SentAt   *time.Time `json:"sent_at,omitempty"`
	LastErr  string     `json:"last_err,omitempty"`

	// Relations
	Recipient User `json:"-"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
