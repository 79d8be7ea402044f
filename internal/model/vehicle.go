package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// vehicles
type Vehicle struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	OwnerID uuid.UUID `gorm:"type:uuid;not null;index"`

	VIN   string `gorm:"type:varchar(32);uniqueIndex"`
	Make  string `gorm:"type:varchar(64)"`
	Model string `gorm:"type:varchar(64)"`
	Year  int
	// Usable battery capacity, kWh.
	BatteryCapacity float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (v *Vehicle) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
