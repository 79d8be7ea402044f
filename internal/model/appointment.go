package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Priority of an appointment in the workshop queue.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ScheduledTimeLayout is the wall-clock format of Appointment.ScheduledTime.
const ScheduledTimeLayout = "15:04"

// appointments
type Appointment struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	// Human readable number, e.g. SC-20261017-4F2A9C.
	AppointmentNumber string `gorm:"type:varchar(32);not null;uniqueIndex"`

	CustomerID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	VehicleID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	TechnicianID *uuid.UUID `gorm:"type:uuid;index"`
	SlotID       *uuid.UUID `gorm:"type:uuid;index"`

	ScheduledDate datatypes.Date `gorm:"not null;index"`
	ScheduledTime string         `gorm:"type:varchar(5);not null"`
	// ScheduledStart = ScheduledDate + ScheduledTime, kept for range queries.
	ScheduledStart      time.Time `gorm:"not null;index"`
	EstimatedCompletion time.Time `gorm:"not null"`
	ActualStart         *time.Time
	ActualCompletion    *time.Time

	Status   AppointmentStatus `gorm:"type:varchar(32);not null;index"`
	Priority Priority          `gorm:"type:varchar(16);not null;default:'normal'"`
	// Version is bumped on every accepted transition; updates are conditional on it.
	Version int64 `gorm:"not null;default:0"`

	// Minor currency units.
	TotalAmount int64  `gorm:"not null;default:0"`
	DepositPaid bool   `gorm:"not null;default:false"`
	PaymentRef  string `gorm:"type:varchar(128)"`

	CustomerNotes string `gorm:"type:text"`

	CancelRequest CancelRequest `gorm:"embedded;embeddedPrefix:cancel_"`
	PartsShortage PartsShortage `gorm:"embedded;embeddedPrefix:parts_"`
	Reschedule    Reschedule    `gorm:"embedded;embeddedPrefix:reschedule_"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Services []AppointmentService `gorm:"foreignKey:AppointmentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	History  []WorkflowEvent      `gorm:"foreignKey:AppointmentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// CancelRequest holds the cancellation sub-flow data.
type CancelRequest struct {
	Reason            string     `gorm:"type:text"`
	RequestedBy       *uuid.UUID `gorm:"type:uuid"`
	RequestedAt       *time.Time
	RefundPercentage  int   `gorm:"not null;default:0"`
	RefundAmount      int64 `gorm:"not null;default:0"`
	ApprovedAt        *time.Time
	RefundProcessedAt *time.Time
}

// PartsShortage holds what was reported missing for the repair.
type PartsShortage struct {
	// JSON array of PartLine.
	InsufficientParts     datatypes.JSON
	ReportedBy            *uuid.UUID `gorm:"type:uuid"`
	ReportedAt            *time.Time
	EstimatedPartsArrival *time.Time
}

// PartLine is one missing part in a shortage report.
type PartLine struct {
	PartNumber   string `json:"partNumber"`
	Name         string `json:"name"`
	RequiredQty  int    `json:"requiredQty"`
	AvailableQty int    `json:"availableQty"`
}

// Reschedule records the outcome of a reschedule decision.
type Reschedule struct {
	RescheduledTo  *time.Time
	CustomerAgreed bool `gorm:"not null;default:false"`
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// HasTechnician reports whether a technician is assigned.
func (a *Appointment) HasTechnician() bool {
	return a.TechnicianID != nil && *a.TechnicianID != uuid.Nil
}

// AssignedTo reports whether the appointment is assigned to technicianID.
func (a *Appointment) AssignedTo(technicianID uuid.UUID) bool {
	return a.HasTechnician() && *a.TechnicianID == technicianID
}

// Duration is the planned length of the work.
func (a *Appointment) Duration() time.Duration {
	if a.EstimatedCompletion.IsZero() || !a.EstimatedCompletion.After(a.ScheduledStart) {
		return 0
	}
	return a.EstimatedCompletion.Sub(a.ScheduledStart)
}

// appointment_services: ordered line items of an appointment.
type AppointmentService struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	AppointmentID uuid.UUID `gorm:"type:uuid;not null;index"`
	ServiceID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Position      int       `gorm:"not null;default:0"`
	Quantity      int       `gorm:"not null;default:1"`
	// Unit price at booking time, minor currency units.
	Price       int64 `gorm:"not null"`
	DurationMin int   `gorm:"not null"`
}

func (s *AppointmentService) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// TotalDuration sums duration×quantity over the line items.
func TotalDuration(items []AppointmentService) time.Duration {
	var total time.Duration
	for _, it := range items {
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		total += time.Duration(it.DurationMin*qty) * time.Minute
	}
	return total
}

// TotalPrice sums price×quantity over the line items.
func TotalPrice(items []AppointmentService) int64 {
	var total int64
	for _, it := range items {
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		total += it.Price * int64(qty)
	}
	return total
}

// ComposeStart joins a calendar date and an "HH:MM" wall-clock time in loc.
func ComposeStart(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.Parse(ScheduledTimeLayout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid scheduled time %q: %w", clock, err)
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc), nil
}

// EstimateCompletion returns start + Σ(duration×quantity).
func EstimateCompletion(start time.Time, items []AppointmentService) time.Time {
	return start.Add(TotalDuration(items))
}
