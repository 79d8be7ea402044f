package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/apperr"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/payments"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/workflow"
)

// ErrPaymentsDisabled is returned when no pending-payment store is configured.
var ErrPaymentsDisabled = errors.New("deposit payments are disabled")

// StartDepositPayment opens a deposit for a pending appointment and returns
// the reference the gateway must send back.
func (s *AppointmentService) StartDepositPayment(ctx context.Context, id uuid.UUID, actor workflow.Actor) (*payments.PendingPayment, error) {
	if s.payments == nil {
		return nil, ErrPaymentsDisabled
	}
	ctx, done := s.start(ctx, "start_deposit", id)
	p, err := s.startDeposit(ctx, id, actor)
	done(err)
	return p, err
}

func (s *AppointmentService) startDeposit(ctx context.Context, id uuid.UUID, actor workflow.Actor) (*payments.PendingPayment, error) {
	appt, err := s.GetAppointment(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if actor.Role == model.RoleTechnician {
		return nil, apperr.Validation(apperr.ErrForbidden, "role", "technicians cannot take payments")
	}
	if appt.Status != model.StatusPending || appt.DepositPaid {
		return nil, &apperr.InvalidTransitionError{
			From:   string(appt.Status),
			To:     string(model.StatusConfirmed),
			Role:   string(actor.Role),
			Reason: "deposit can only be paid for an unpaid pending appointment",
			Err:    apperr.ErrInvalidTransition,
		}
	}

	p := &payments.PendingPayment{
		TxnRef:        payments.NewTxnRef(appt.AppointmentNumber),
		AppointmentID: appt.ID,
		CustomerID:    appt.CustomerID,
		Amount:        appt.TotalAmount,
	}
	if err := s.payments.Save(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("deposit payment started", "appointment_id", appt.ID, "txn_ref", p.TxnRef, "amount", p.Amount)
	return p, nil
}

// ConfirmDepositPayment handles the gateway callback. A successful payment
// marks the deposit paid and confirms the appointment as the system actor.
// The reference is consumed either way, so a replayed callback is rejected.
func (s *AppointmentService) ConfirmDepositPayment(ctx context.Context, txnRef string, success bool) (*model.Appointment, error) {
	if s.payments == nil {
		return nil, ErrPaymentsDisabled
	}
	p, err := s.payments.Consume(ctx, txnRef)
	if errors.Is(err, payments.ErrPendingNotFound) {
		return nil, apperr.Validation(apperr.ErrNotFound, "txn_ref", "unknown or expired payment reference")
	}
	if err != nil {
		return nil, err
	}
	if !success {
		s.logger.Warn("deposit payment failed", "appointment_id", p.AppointmentID, "txn_ref", txnRef)
		return s.store.Appointments.GetByID(ctx, p.AppointmentID)
	}

	ctx, done := s.start(ctx, "confirm_deposit", p.AppointmentID)
	appt, err := s.mutate(ctx, p.AppointmentID, string(model.StatusConfirmed), workflow.System, func(appt *model.Appointment, now time.Time) (*workflow.Result, error) {
		res, err := workflow.Transition(appt, model.StatusConfirmed, workflow.System, "deposit paid", "payment "+txnRef, now)
		if err != nil {
			return nil, err
		}
		appt.DepositPaid = true
		appt.PaymentRef = txnRef
		return res, nil
	})
	done(err)
	if err != nil {
		s.logger.Error("paid deposit could not confirm appointment",
			"appointment_id", p.AppointmentID, "txn_ref", txnRef, "amount", p.Amount, "err", err)
		if errors.Is(err, apperr.ErrTechnicianConflict) {
			// The money is in; keep the appointment pending but paid so staff
			// can reassign and confirm it.
			if merr := s.markDepositPaid(ctx, p.AppointmentID, txnRef); merr != nil {
				s.logger.Error("failed to record paid deposit", "appointment_id", p.AppointmentID, "txn_ref", txnRef, "err", merr)
			}
		}
	}
	return appt, err
}

func (s *AppointmentService) markDepositPaid(ctx context.Context, id uuid.UUID, txnRef string) error {
	appt, err := s.store.Appointments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.store.Appointments.UpdateGuarded(ctx, id, appt.Version, map[string]any{
		"deposit_paid": true,
		"payment_ref":  txnRef,
	})
}
