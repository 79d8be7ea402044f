package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
)

type RefundRepository interface {
	// Create appends a ledger entry; one per appointment.
	Create(ctx context.Context, entry *model.RefundLedgerEntry) error
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.RefundLedgerEntry, error)
}

type GormRefundRepository struct {
	db *gorm.DB
}

func NewGormRefundRepository(db *gorm.DB) *GormRefundRepository {
	return &GormRefundRepository{db: db}
}

func (r *GormRefundRepository) Create(ctx context.Context, entry *model.RefundLedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *GormRefundRepository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.RefundLedgerEntry, error) {
	var e model.RefundLedgerEntry
	if err := r.db.WithContext(ctx).First(&e, "appointment_id = ?", appointmentID).Error; err != nil {
		return nil, notFound(err, "refund", appointmentID)
	}
	return &e, nil
}
