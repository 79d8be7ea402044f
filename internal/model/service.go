package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// services: service catalog (maintenance, battery diagnostics, ...).
type Service struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	Name        string `gorm:"type:varchar(255);not null"`
	Description string `gorm:"type:text"`
	// Matched against TechnicianSkill.ServiceCategory.
	Category string `gorm:"type:varchar(64);not null;index"`

	// In minutes.
	DurationMin int `gorm:"not null"`
	// Minor currency units.
	Price int64 `gorm:"not null;default:0"`

	IsActive bool `gorm:"not null;default:true;index"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *Service) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
