package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TechnicianAvailability is the self-reported availability of a technician.
type TechnicianAvailability string

const (
	AvailabilityAvailable TechnicianAvailability = "available"
	AvailabilityBusy      TechnicianAvailability = "busy"
	AvailabilityOnBreak   TechnicianAvailability = "on_break"
	AvailabilityOffDuty   TechnicianAvailability = "off_duty"
	AvailabilityOnLeave   TechnicianAvailability = "on_leave"
)

// TechnicianProfile: technician working in the service center.
// Linked to the users table through UserID.
type TechnicianProfile struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	DisplayName string    `gorm:"type:varchar(255);not null"`

	AvailabilityStatus TechnicianAvailability `gorm:"type:varchar(32);not null;default:'available';index"`

	// Derived counter; the source of truth is the set of active appointments.
	WorkloadCurrent  int `gorm:"not null;default:0"`
	WorkloadCapacity int `gorm:"not null;default:4"`

	CustomerRating float64 `gorm:"not null;default:0"`
	CompletedJobs  int     `gorm:"not null;default:0"`
	Efficiency     float64 `gorm:"not null;default:0"`

	// Working shift as wall clock "HH:MM" in TimeZone.
	WorkStart string `gorm:"type:varchar(5);not null;default:'08:00'"`
	WorkEnd   string `gorm:"type:varchar(5);not null;default:'17:00'"`
	// JSON array of weekday numbers (0 = Sunday).
	WorkDays datatypes.JSON
	TimeZone string `gorm:"type:varchar(64);not null;default:'UTC'"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Skills []TechnicianSkill `gorm:"foreignKey:TechnicianID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (t *TechnicianProfile) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Weekdays decodes WorkDays. An empty value means Monday to Friday.
func (t *TechnicianProfile) Weekdays() []time.Weekday {
	if len(t.WorkDays) == 0 {
		return []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	}
	var raw []int
	if err := json.Unmarshal(t.WorkDays, &raw); err != nil {
		return nil
	}
	days := make([]time.Weekday, 0, len(raw))
	for _, d := range raw {
		if d >= 0 && d <= 6 {
			days = append(days, time.Weekday(d))
		}
	}
	return days
}

// SetWeekdays encodes days into WorkDays.
func (t *TechnicianProfile) SetWeekdays(days ...time.Weekday) {
	raw := make([]int, 0, len(days))
	for _, d := range days {
		raw = append(raw, int(d))
	}
	b, _ := json.Marshal(raw)
	t.WorkDays = datatypes.JSON(b)
}

// Location returns the technician's time zone, UTC when unknown.
func (t *TechnicianProfile) Location() *time.Location {
	if t.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(t.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WorkloadPercentage is current/capacity in percent, 100 when capacity is unset.
func (t *TechnicianProfile) WorkloadPercentage() float64 {
	if t.WorkloadCapacity <= 0 {
		return 100
	}
	pct := float64(t.WorkloadCurrent) / float64(t.WorkloadCapacity) * 100
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

// technician_skills
type TechnicianSkill struct {
	TechnicianID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	ServiceCategory string    `gorm:"type:varchar(64);primaryKey"`
	// 1..5
	ProficiencyLevel      int  `gorm:"not null;default:1"`
	CertificationRequired bool `gorm:"not null;default:false"`
}
