package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/apperr"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
)

type SlotRepository interface {
	// Create stores a slot with its technician roster.
	Create(ctx context.Context, slot *model.Slot) error
	// GetByID loads a slot with its roster and the appointments booked per technician.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error)
	// FindCovering returns the slot whose window contains at.
	FindCovering(ctx context.Context, at time.Time) (*model.Slot, error)
	// ListRange lists slots starting in [from, to).
	ListRange(ctx context.Context, from, to time.Time) ([]model.Slot, error)
	// Reserve takes one booking seat; it never exceeds capacity.
	Reserve(ctx context.Context, id uuid.UUID) error
	// Release frees one booking seat; the counter never goes below zero.
	Release(ctx context.Context, id uuid.UUID) error
	// ClaimTechnicianSeat takes one seat of the technician in the slot roster.
	ClaimTechnicianSeat(ctx context.Context, slotID, technicianID uuid.UUID) error
	// ReleaseTechnicianSeat frees one seat of the technician in the slot roster.
	ReleaseTechnicianSeat(ctx context.Context, slotID, technicianID uuid.UUID) error
}

type GormSlotRepository struct {
	db *gorm.DB
}

func NewGormSlotRepository(db *gorm.DB) *GormSlotRepository {
	return &GormSlotRepository{db: db}
}

func (r *GormSlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	return r.db.WithContext(ctx).Create(slot).Error
}

func (r *GormSlotRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	var slot model.Slot
	if err := r.db.WithContext(ctx).Preload("Technicians").First(&slot, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "slot", id)
	}
	if err := r.fillRosterAppointments(ctx, &slot); err != nil {
		return nil, err
	}
	return &slot, nil
}

// fillRosterAppointments derives SlotTechnician.AppointmentIDs from the
// non-terminal appointments booked into the slot.
func (r *GormSlotRepository) fillRosterAppointments(ctx context.Context, slot *model.Slot) error {
	if len(slot.Technicians) == 0 {
		return nil
	}

	var rows []struct {
		ID           uuid.UUID
		TechnicianID uuid.UUID
	}
	err := r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Select("id, technician_id").
		Where("slot_id = ? AND technician_id IS NOT NULL", slot.ID).
		Where("status NOT IN ?", []model.AppointmentStatus{
			model.StatusCompleted, model.StatusCancelled, model.StatusNoShow, model.StatusRescheduled,
		}).
		Order("scheduled_start ASC").
		Scan(&rows).Error
	if err != nil {
		return err
	}

	for _, row := range rows {
		if entry, ok := slot.RosterEntry(row.TechnicianID); ok {
			entry.AppointmentIDs = append(entry.AppointmentIDs, row.ID)
		}
	}
	return nil
}

func (r *GormSlotRepository) FindCovering(ctx context.Context, at time.Time) (*model.Slot, error) {
	var slot model.Slot
	err := r.db.WithContext(ctx).
		Preload("Technicians").
		Where("start_time <= ? AND end_time > ?", at.UTC(), at.UTC()).
		Order("start_time DESC").
		First(&slot).Error
	if err != nil {
		return nil, notFound(err, "slot", uuid.Nil)
	}
	return &slot, nil
}

func (r *GormSlotRepository) ListRange(ctx context.Context, from, to time.Time) ([]model.Slot, error) {
	var slots []model.Slot
	err := r.db.WithContext(ctx).
		Preload("Technicians").
		Where("start_time >= ? AND start_time < ?", from.UTC(), to.UTC()).
		Order("start_time ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *GormSlotRepository) Reserve(ctx context.Context, id uuid.UUID) error {
	// The right-hand sides see the row before the update.
	res := r.db.WithContext(ctx).
		Model(&model.Slot{}).
		Where("id = ? AND booked_count < capacity", id).
		Updates(map[string]any{
			"booked_count": gorm.Expr("booked_count + 1"),
			"status": gorm.Expr("CASE WHEN booked_count + 1 >= capacity THEN ? ELSE ? END",
				model.SlotStatusFull, model.SlotStatusPartiallyBooked),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var slot model.Slot
	if err := r.db.WithContext(ctx).First(&slot, "id = ?", id).Error; err != nil {
		return notFound(err, "slot", id)
	}
	return &apperr.ResourceUnavailableError{
		Resource:  "slot",
		ID:        id.String(),
		Remaining: slot.Remaining(),
		Err:       apperr.ErrSlotUnavailable,
	}
}

func (r *GormSlotRepository) Release(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Slot{}).
		Where("id = ? AND booked_count > 0", id).
		Updates(map[string]any{
			"booked_count": gorm.Expr("booked_count - 1"),
			"status": gorm.Expr("CASE WHEN booked_count - 1 <= 0 THEN ? ELSE ? END",
				model.SlotStatusAvailable, model.SlotStatusPartiallyBooked),
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *GormSlotRepository) ClaimTechnicianSeat(ctx context.Context, slotID, technicianID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&model.SlotTechnician{}).
		Where("slot_id = ? AND technician_id = ? AND current_workload < max_capacity", slotID, technicianID).
		Update("current_workload", gorm.Expr("current_workload + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &apperr.ResourceUnavailableError{
			Resource: "slot technician",
			ID:       technicianID.String(),
			Err:      apperr.ErrTechnicianUnavailable,
		}
	}
	return nil
}

func (r *GormSlotRepository) ReleaseTechnicianSeat(ctx context.Context, slotID, technicianID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.SlotTechnician{}).
		Where("slot_id = ? AND technician_id = ? AND current_workload > 0", slotID, technicianID).
		Update("current_workload", gorm.Expr("current_workload - 1")).Error
}
