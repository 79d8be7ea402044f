package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
)

type AppointmentRepository interface {
	// Create stores the appointment with its line items and history.
	Create(ctx context.Context, appt *model.Appointment) error
	// GetByID loads the appointment with its line items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	// ApplyTransition persists a state change guarded by the previous version
	// and appends its history event.
	ApplyTransition(ctx context.Context, appt *model.Appointment, previousVersion int64, event *model.WorkflowEvent) error
	// UpdateGuarded writes columns only if the appointment is still at version.
	UpdateGuarded(ctx context.Context, id uuid.UUID, version int64, columns map[string]any) error
	// ListForTechnician lists the technician's appointments starting in [from, to).
	ListForTechnician(ctx context.Context, technicianID uuid.UUID, from, to time.Time, statuses []model.AppointmentStatus) ([]model.Appointment, error)
	// ListHistory returns the workflow events of an appointment in sequence order.
	ListHistory(ctx context.Context, id uuid.UUID) ([]model.WorkflowEvent, error)
	// ListByCustomer lists the customer's appointments, newest first.
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]model.Appointment, int64, error)
}

type GormAppointmentRepository struct {
	db *gorm.DB
}

func NewGormAppointmentRepository(db *gorm.DB) *GormAppointmentRepository {
	return &GormAppointmentRepository{db: db}
}

func (r *GormAppointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	return r.db.WithContext(ctx).Create(appt).Error
}

func (r *GormAppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var a model.Appointment
	err := r.db.WithContext(ctx).
		Preload("Services", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&a, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "appointment", id)
	}
	return &a, nil
}

func (r *GormAppointmentRepository) ApplyTransition(
	ctx context.Context,
	appt *model.Appointment,
	previousVersion int64,
	event *model.WorkflowEvent,
) error {
	if err := r.UpdateGuarded(ctx, appt.ID, previousVersion, mutableColumns(appt)); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("append workflow event: %w", err)
	}
	return nil
}

func (r *GormAppointmentRepository) UpdateGuarded(
	ctx context.Context,
	id uuid.UUID,
	version int64,
	columns map[string]any,
) error {
	columns["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Where("id = ? AND version = ?", id, version).
		Updates(columns)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleVersion
	}
	return nil
}

// mutableColumns lists everything the workflow may change on an appointment.
func mutableColumns(a *model.Appointment) map[string]any {
	return map[string]any{
		"status":                        a.Status,
		"version":                       a.Version,
		"technician_id":                 a.TechnicianID,
		"actual_start":                  a.ActualStart,
		"actual_completion":             a.ActualCompletion,
		"deposit_paid":                  a.DepositPaid,
		"payment_ref":                   a.PaymentRef,
		"cancel_reason":                 a.CancelRequest.Reason,
		"cancel_requested_by":           a.CancelRequest.RequestedBy,
		"cancel_requested_at":           a.CancelRequest.RequestedAt,
		"cancel_refund_percentage":      a.CancelRequest.RefundPercentage,
		"cancel_refund_amount":          a.CancelRequest.RefundAmount,
		"cancel_approved_at":            a.CancelRequest.ApprovedAt,
		"cancel_refund_processed_at":    a.CancelRequest.RefundProcessedAt,
		"parts_insufficient_parts":      a.PartsShortage.InsufficientParts,
		"parts_reported_by":             a.PartsShortage.ReportedBy,
		"parts_reported_at":             a.PartsShortage.ReportedAt,
		"parts_estimated_parts_arrival": a.PartsShortage.EstimatedPartsArrival,
		"reschedule_rescheduled_to":     a.Reschedule.RescheduledTo,
		"reschedule_customer_agreed":    a.Reschedule.CustomerAgreed,
	}
}

func (r *GormAppointmentRepository) ListForTechnician(
	ctx context.Context,
	technicianID uuid.UUID,
	from, to time.Time,
	statuses []model.AppointmentStatus,
) ([]model.Appointment, error) {
	var appts []model.Appointment
	q := r.db.WithContext(ctx).
		Where("technician_id = ?", technicianID).
		Where("scheduled_start >= ? AND scheduled_start < ?", from.UTC(), to.UTC())
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	if err := q.Order("scheduled_start ASC").Find(&appts).Error; err != nil {
		return nil, err
	}
	return appts, nil
}

func (r *GormAppointmentRepository) ListHistory(ctx context.Context, id uuid.UUID) ([]model.WorkflowEvent, error) {
	var events []model.WorkflowEvent
	err := r.db.WithContext(ctx).
		Where("appointment_id = ?", id).
		Order("sequence ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *GormAppointmentRepository) ListByCustomer(
	ctx context.Context,
	customerID uuid.UUID,
	limit, offset int,
) ([]model.Appointment, int64, error) {
	var (
		appts []model.Appointment
		total int64
	)

	q := r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Where("customer_id = ?", customerID)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}

	if err := q.Order("scheduled_start DESC").Find(&appts).Error; err != nil {
		return nil, 0, err
	}

	return appts, total, nil
}
