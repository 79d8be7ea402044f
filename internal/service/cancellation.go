package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/apperr"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/refund"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/workflow"
)

// CancellationReceipt is returned to the caller of RequestCancellation.
type CancellationReceipt struct {
	AppointmentID    uuid.UUID
	Status           model.AppointmentStatus
	RefundPercentage int
	RefundAmount     int64
	HoursLeft        float64
	RequestedAt      time.Time
}

// cancellationDecision applies the notice tiers while the appointment has not
// started. Once work has begun, a cancellation only comes out of a parts
// shortage and is refunded in full.
func (s *AppointmentService) cancellationDecision(appt *model.Appointment, role model.Role, now time.Time) (refund.Decision, error) {
	switch appt.Status {
	case model.StatusPending, model.StatusConfirmed:
		return s.policy.Check(appt.ScheduledStart, now, role)
	}
	return refund.Decision{
		CanCancel:        true,
		Reason:           "cancelled during parts shortage",
		RefundPercentage: 100,
		HoursLeft:        appt.ScheduledStart.Sub(now).Hours(),
	}, nil
}

// CancellationPolicy previews what RequestCancellation would decide now.
func (s *AppointmentService) CancellationPolicy(ctx context.Context, id uuid.UUID, actor workflow.Actor) (refund.Decision, error) {
	appt, err := s.GetAppointment(ctx, id, actor)
	if err != nil {
		return refund.Decision{}, err
	}
	if !workflow.Allowed(appt.Status, model.StatusCancelRequested, actor.Role) {
		return refund.Decision{
			Reason:    "appointment cannot be cancelled in status " + string(appt.Status),
			HoursLeft: appt.ScheduledStart.Sub(s.now()).Hours(),
		}, nil
	}
	d, _ := s.cancellationDecision(appt, actor.Role, s.now())
	return d, nil
}

// RequestCancellation moves the appointment to cancel_requested and fixes the
// refund percentage at request time.
func (s *AppointmentService) RequestCancellation(
	ctx context.Context,
	id uuid.UUID,
	reason string,
	actor workflow.Actor,
) (*CancellationReceipt, error) {
	if reason == "" {
		return nil, apperr.Validation(apperr.ErrInvalidInput, "reason", "is required")
	}
	appt, err := s.TransitionAppointment(ctx, id, model.StatusCancelRequested, actor, reason, "")
	if err != nil {
		return nil, err
	}
	receipt := &CancellationReceipt{
		AppointmentID:    appt.ID,
		Status:           appt.Status,
		RefundPercentage: appt.CancelRequest.RefundPercentage,
		RefundAmount:     appt.CancelRequest.RefundAmount,
		HoursLeft:        appt.ScheduledStart.Sub(s.now()).Hours(),
	}
	if appt.CancelRequest.RequestedAt != nil {
		receipt.RequestedAt = *appt.CancelRequest.RequestedAt
	}
	return receipt, nil
}

// ApproveCancellation accepts a pending cancellation request.
func (s *AppointmentService) ApproveCancellation(ctx context.Context, id uuid.UUID, actor workflow.Actor, notes string) (*model.Appointment, error) {
	return s.TransitionAppointment(ctx, id, model.StatusCancelApproved, actor, "cancellation approved", notes)
}

// ProcessRefund closes an approved cancellation and records the refund.
func (s *AppointmentService) ProcessRefund(ctx context.Context, id uuid.UUID, actor workflow.Actor) (*model.Appointment, error) {
	ctx, done := s.start(ctx, "process_refund", id)
	target := model.StatusCancelled
	appt, err := s.mutate(ctx, id, string(target), actor, func(appt *model.Appointment, now time.Time) (*workflow.Result, error) {
		if appt.Status != model.StatusCancelApproved {
			return nil, &apperr.InvalidTransitionError{
				From:   string(appt.Status),
				To:     string(target),
				Role:   string(actor.Role),
				Reason: "refund requires an approved cancellation",
				Err:    apperr.ErrInvalidTransition,
			}
		}
		return workflow.Transition(appt, target, actor, "refund processed", "", now)
	})
	done(err)
	return appt, err
}

// Refund returns the ledger entry of a cancelled appointment.
func (s *AppointmentService) Refund(ctx context.Context, id uuid.UUID, actor workflow.Actor) (*model.RefundLedgerEntry, error) {
	if _, err := s.GetAppointment(ctx, id, actor); err != nil {
		return nil, err
	}
	return s.store.Refunds.GetByAppointment(ctx, id)
}
