package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OutboxKind string

const (
	OutboxKindEmail OutboxKind = "email"
	OutboxKindEvent OutboxKind = "event"
)

type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusSent       OutboxStatus = "sent"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// OutboxMessage is a side effect recorded in the same transaction as the
// write that caused it and delivered later by the dispatcher.
type OutboxMessage struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	Kind          OutboxKind     `gorm:"type:varchar(16);not null" json:"kind"`
	ComplaintID   *uuid.UUID     `gorm:"column:pengaduan_id;type:uuid" json:"pengaduan_id"`
	Recipient     string         `gorm:"type:varchar(255)" json:"recipient"`
	Subject       string         `gorm:"type:text" json:"subject"`
	Payload       datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`
	Status        OutboxStatus   `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	Attempts      int            `gorm:"not null;default:0" json:"attempts"`
	LastError     *string        `gorm:"type:text" json:"last_error"`
	NextAttemptAt time.Time      `gorm:"not null" json:"next_attempt_at"`
	ClaimedAt     *time.Time     `json:"claimed_at"`
	SentAt        *time.Time     `json:"sent_at"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (OutboxMessage) TableName() string {
	return "notification_outbox"
}

func (m *OutboxMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// EmailPayload is the payload of an email outbox message.
type EmailPayload struct {
	HTML string `json:"html"`
}

// EventPayload is the payload of an event outbox message.
type EventPayload struct {
	Action      string          `json:"action"`
	ComplaintID uuid.UUID       `json:"pengaduan_id"`
	Code        string          `json:"kode_pengaduan"`
	Status      ComplaintStatus `json:"status"`
	Timestamp   time.Time       `json:"timestamp"`
	Data        map[string]any  `json:"payload,omitempty"`
}
