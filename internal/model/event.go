package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// workflow_events: append-only audit trail of accepted transitions.
type WorkflowEvent struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	AppointmentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_workflow_events_seq"`
	// 1-based, strictly increasing per appointment.
	Sequence int64 `gorm:"not null;uniqueIndex:idx_workflow_events_seq"`

	FromStatus AppointmentStatus `gorm:"type:varchar(32)"`
	ToStatus   AppointmentStatus `gorm:"type:varchar(32);not null"`

	ChangedBy     uuid.UUID `gorm:"type:uuid;not null"`
	ChangedByRole Role      `gorm:"type:varchar(32);not null"`
	ChangedAt     time.Time `gorm:"not null;index"`

	Reason string `gorm:"type:text"`
	Notes  string `gorm:"type:text"`
}

func (e *WorkflowEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Outbox event type.
type EventType string

const (
	EventAppointmentCreated      EventType = "appointment.created.v1"
	EventAppointmentTransitioned EventType = "appointment.transitioned.v1"
	EventTechnicianAssigned      EventType = "appointment.technician_assigned.v1"
	EventRefundRequested         EventType = "appointment.refund_requested.v1"
	EventSideEffectFailed        EventType = "appointment.side_effect_failed.v1"
)

// outbox_events: notifications waiting to be published.
type OutboxEvent struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	EventType   EventType `gorm:"type:varchar(64);not null;index"`
	AggregateID uuid.UUID `gorm:"type:uuid;not null;index"`
	Payload     datatypes.JSON

	CreatedAt   time.Time  `gorm:"not null;index"`
	PublishedAt *time.Time `gorm:"index"`
	Attempts    int        `gorm:"not null;default:0"`
	LastError   string     `gorm:"type:text"`
}

func (e *OutboxEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return nil
}
