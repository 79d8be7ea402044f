package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Slot capacity status.
type SlotStatus string

const (
	SlotStatusAvailable       SlotStatus = "available"
	SlotStatusPartiallyBooked SlotStatus = "partially_booked"
	SlotStatusFull            SlotStatus = "full"
)

// slots
type Slot struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	Date      datatypes.Date `gorm:"not null;index"`
	StartTime time.Time      `gorm:"not null;index"`
	EndTime   time.Time      `gorm:"not null"`

	Capacity    int        `gorm:"not null"`
	BookedCount int        `gorm:"not null;default:0"`
	Status      SlotStatus `gorm:"type:varchar(32);not null;default:'available';index"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// Roster of technicians able to work in this window.
	Technicians []SlotTechnician `gorm:"foreignKey:SlotID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (s *Slot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Remaining is the number of free booking seats.
func (s *Slot) Remaining() int {
	if s.BookedCount >= s.Capacity {
		return 0
	}
	return s.Capacity - s.BookedCount
}

// RosterEntry returns the sub-ledger row of technicianID, if listed.
func (s *Slot) RosterEntry(technicianID uuid.UUID) (*SlotTechnician, bool) {
	for i := range s.Technicians {
		if s.Technicians[i].TechnicianID == technicianID {
			return &s.Technicians[i], true
		}
	}
	return nil, false
}

// slot_technicians: per-technician sub-ledger of a slot.
type SlotTechnician struct {
	SlotID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	TechnicianID uuid.UUID `gorm:"type:uuid;primaryKey;index"`

	CurrentWorkload int `gorm:"not null;default:0"`
	MaxCapacity     int `gorm:"not null;default:1"`

	// Filled from appointments referencing this slot and technician; not stored.
	AppointmentIDs []uuid.UUID `gorm:"-"`
}
