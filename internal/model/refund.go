package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// refund_ledger: reversal entries; the original payment is never mutated.
type RefundLedgerEntry struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	AppointmentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	PaymentRef    string    `gorm:"type:varchar(128)"`

	OriginalAmount   int64 `gorm:"not null"`
	RefundPercentage int   `gorm:"not null"`
	RefundAmount     int64 `gorm:"not null"`

	Reason    string    `gorm:"type:text"`
	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (r *RefundLedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
