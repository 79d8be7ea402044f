package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/apperr"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/metrics"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/payments"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/refund"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/repository"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/scheduling"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/workflow"
)

// PaymentStore keeps deposits between checkout and the gateway callback.
type PaymentStore interface {
	Save(ctx context.Context, p *payments.PendingPayment) error
	Consume(ctx context.Context, ref string) (*payments.PendingPayment, error)
	TTL() time.Duration
}

type Options struct {
	RefundPolicy              refund.Policy
	EnforceTechnicianWorkload bool
	// Capacity of generated slots when the request leaves it out.
	DefaultSlotCapacity int
	// Location of the service center; wall-clock booking times are read in it.
	Location *time.Location
	Payments PaymentStore
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Now      func() time.Time
}

// AppointmentService drives appointments through their lifecycle and owns
// slot and technician allocation.
type AppointmentService struct {
	store           *repository.Store
	policy          refund.Policy
	enforceWorkload bool
	slotCapacity    int
	loc             *time.Location
	payments        PaymentStore
	metrics         *metrics.Metrics
	logger          *slog.Logger
	tracer          trace.Tracer
	now             func() time.Time
}

func NewAppointmentService(store *repository.Store, opts Options) *AppointmentService {
	if len(opts.RefundPolicy.Tiers) == 0 {
		opts.RefundPolicy = refund.DefaultPolicy()
	}
	if opts.DefaultSlotCapacity <= 0 {
		opts.DefaultSlotCapacity = 1
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &AppointmentService{
		store:           store,
		policy:          opts.RefundPolicy,
		enforceWorkload: opts.EnforceTechnicianWorkload,
		slotCapacity:    opts.DefaultSlotCapacity,
		loc:             opts.Location,
		payments:        opts.Payments,
		metrics:         opts.Metrics,
		logger:          opts.Logger,
		tracer:          otel.Tracer("evservice.internal.service"),
		now:             opts.Now,
	}
}

// engine binds conflict detection to the given store, so checks made inside a
// transaction see its uncommitted rows.
func (s *AppointmentService) engine(st *repository.Store) *scheduling.Engine {
	return scheduling.NewEngine(scheduling.NewConflictDetector(st.Appointments), s.enforceWorkload)
}

func (s *AppointmentService) start(ctx context.Context, op string, id uuid.UUID) (context.Context, func(err error)) {
	begin := time.Now()
	ctx, span := s.tracer.Start(ctx, "appointment."+op)
	if id != uuid.Nil {
		span.SetAttributes(attribute.String("appointment.id", id.String()))
	}
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
		s.metrics.ObserveLatency(op, time.Since(begin).Seconds())
	}
}

// GetAppointment loads an appointment visible to actor.
func (s *AppointmentService) GetAppointment(ctx context.Context, id uuid.UUID, actor workflow.Actor) (*model.Appointment, error) {
	appt, err := s.store.Appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canView(appt, actor); err != nil {
		return nil, err
	}
	return appt, nil
}

// ListHistory returns the workflow events of an appointment in order.
func (s *AppointmentService) ListHistory(ctx context.Context, id uuid.UUID, actor workflow.Actor) ([]model.WorkflowEvent, error) {
	appt, err := s.GetAppointment(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	events, err := s.store.Appointments.ListHistory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	if replayed, rerr := workflow.Replay(events); rerr != nil || replayed != appt.Status {
		s.logger.Warn("appointment history does not replay to its status",
			"appointment_id", id, "status", appt.Status, "replayed", replayed, "err", rerr)
	}
	return events, nil
}

func canView(appt *model.Appointment, actor workflow.Actor) error {
	switch actor.Role {
	case model.RoleCustomer:
		if appt.CustomerID != actor.ID {
			return apperr.Validation(apperr.ErrForbidden, "appointment", "belongs to another customer")
		}
	case model.RoleStaff, model.RoleAdmin, model.RoleSystem, model.RoleTechnician:
	default:
		return apperr.Validation(apperr.ErrForbidden, "role", string(actor.Role))
	}
	return nil
}

// TransitionAppointment moves an appointment to target on behalf of actor.
func (s *AppointmentService) TransitionAppointment(
	ctx context.Context,
	id uuid.UUID,
	target model.AppointmentStatus,
	actor workflow.Actor,
	reason, notes string,
) (*model.Appointment, error) {
	ctx, done := s.start(ctx, "transition", id)
	appt, err := s.mutate(ctx, id, string(target), actor, func(appt *model.Appointment, now time.Time) (*workflow.Result, error) {
		if err := workflow.Check(appt, target, actor); err != nil {
			return nil, err
		}
		if err := s.prepare(appt, target, actor, reason, now); err != nil {
			return nil, err
		}
		return workflow.Transition(appt, target, actor, reason, notes, now)
	})
	done(err)
	return appt, err
}

// prepare fills the sub-records a target status needs before the move.
func (s *AppointmentService) prepare(appt *model.Appointment, target model.AppointmentStatus, actor workflow.Actor, reason string, now time.Time) error {
	var d refund.Decision
	switch {
	case target == model.StatusCancelRequested:
		var err error
		if d, err = s.cancellationDecision(appt, actor.Role, now); err != nil {
			return err
		}
	case target == model.StatusCancelled && appt.Status != model.StatusCancelApproved:
		// Only the service center cancels directly; it refunds in full.
		d = refund.Decision{CanCancel: true, Reason: "cancelled by service center", RefundPercentage: 100}
	default:
		return nil
	}
	requestedAt := now.UTC()
	requestedBy := actor.ID
	appt.CancelRequest = model.CancelRequest{
		Reason:           reason,
		RequestedBy:      &requestedBy,
		RequestedAt:      &requestedAt,
		RefundPercentage: d.RefundPercentage,
		RefundAmount:     refund.Amount(refundBase(appt), d.RefundPercentage),
	}
	return nil
}

type mutation func(appt *model.Appointment, now time.Time) (*workflow.Result, error)

// mutate loads the appointment, applies fn and stores the outcome in one
// transaction guarded by the appointment version. Effects that reach outside
// the appointment run after commit.
func (s *AppointmentService) mutate(
	ctx context.Context,
	id uuid.UUID,
	label string,
	actor workflow.Actor,
	fn mutation,
) (*model.Appointment, error) {
	var (
		appt *model.Appointment
		res  *workflow.Result
	)
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		appt, err = tx.Appointments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		res, err = fn(appt, now)
		if err != nil {
			return err
		}
		if res.To == model.StatusConfirmed {
			if err := s.ensureTechnicianFree(ctx, tx, appt); err != nil {
				return err
			}
		}
		if err := s.applyLocalEffects(ctx, tx, appt, res, actor, now); err != nil {
			return err
		}
		if err := tx.Appointments.ApplyTransition(ctx, appt, res.PreviousVersion, &res.Event); err != nil {
			if errors.Is(err, repository.ErrStaleVersion) {
				return &apperr.InvalidTransitionError{
					From:   string(res.From),
					To:     string(res.To),
					Role:   string(actor.Role),
					Reason: "appointment was modified concurrently",
					Err:    apperr.ErrInvalidTransition,
				}
			}
			return err
		}
		return tx.Outbox.Add(ctx, model.EventAppointmentTransitioned, appt.ID, transitionPayload(appt, res))
	})
	if err != nil {
		s.metrics.ObserveRejected(label, rejectReason(err))
		return nil, err
	}

	s.metrics.ObserveTransition(string(res.From), string(res.To))
	s.logger.Info("appointment transitioned",
		"appointment_id", appt.ID,
		"from", res.From,
		"to", res.To,
		"version", appt.Version,
		"actor_id", actor.ID,
		"role", actor.Role,
	)
	s.runEffects(ctx, appt, res)
	return s.store.Appointments.GetByID(ctx, appt.ID)
}

// applyLocalEffects handles the refund effects, which are part of the
// transition itself.
func (s *AppointmentService) applyLocalEffects(
	ctx context.Context,
	tx *repository.Store,
	appt *model.Appointment,
	res *workflow.Result,
	actor workflow.Actor,
	now time.Time,
) error {
	kept := res.Effects[:0]
	for _, eff := range res.Effects {
		switch eff {
		case workflow.EffectComputeRefund:
			approvedAt := now
			appt.CancelRequest.ApprovedAt = &approvedAt
			appt.CancelRequest.RefundAmount = refund.Amount(refundBase(appt), appt.CancelRequest.RefundPercentage)
		case workflow.EffectRecordRefund:
			if err := s.recordRefund(ctx, tx, appt, actor, now); err != nil {
				return err
			}
		default:
			kept = append(kept, eff)
		}
	}
	res.Effects = kept
	return nil
}

func (s *AppointmentService) recordRefund(
	ctx context.Context,
	tx *repository.Store,
	appt *model.Appointment,
	actor workflow.Actor,
	now time.Time,
) error {
	entry := &model.RefundLedgerEntry{
		AppointmentID:    appt.ID,
		PaymentRef:       appt.PaymentRef,
		OriginalAmount:   refundBase(appt),
		RefundPercentage: appt.CancelRequest.RefundPercentage,
		RefundAmount:     appt.CancelRequest.RefundAmount,
		Reason:           appt.CancelRequest.Reason,
		CreatedBy:        actor.ID,
		CreatedAt:        now,
	}
	if err := tx.Refunds.Create(ctx, entry); err != nil {
		return fmt.Errorf("record refund: %w", err)
	}
	processedAt := now
	appt.CancelRequest.RefundProcessedAt = &processedAt

	if entry.RefundAmount == 0 {
		return nil
	}
	return tx.Outbox.Add(ctx, model.EventRefundRequested, appt.ID, map[string]any{
		"appointmentId":     appt.ID,
		"appointmentNumber": appt.AppointmentNumber,
		"paymentRef":        entry.PaymentRef,
		"originalAmount":    entry.OriginalAmount,
		"refundPercentage":  entry.RefundPercentage,
		"refundAmount":      entry.RefundAmount,
	})
}

// runEffects executes the remaining effects against the committed state.
// Failures are reported and never undo the transition.
func (s *AppointmentService) runEffects(ctx context.Context, appt *model.Appointment, res *workflow.Result) {
	for _, eff := range res.Effects {
		if err := s.runEffect(ctx, appt, eff); err != nil {
			s.reportEffectFailure(ctx, appt.ID, eff, err)
		}
	}
}

func (s *AppointmentService) runEffect(ctx context.Context, appt *model.Appointment, eff workflow.Effect) error {
	switch eff {
	case workflow.EffectReleaseSlot:
		if appt.SlotID == nil {
			return nil
		}
		if err := s.store.Slots.Release(ctx, *appt.SlotID); err != nil {
			return err
		}
		if appt.HasTechnician() {
			return s.store.Slots.ReleaseTechnicianSeat(ctx, *appt.SlotID, *appt.TechnicianID)
		}
	case workflow.EffectReleaseTechnician:
		if appt.HasTechnician() {
			return s.store.Technicians.ReleaseWorkload(ctx, *appt.TechnicianID)
		}
	case workflow.EffectCompleteTechnicianJob:
		if appt.HasTechnician() {
			return s.store.Technicians.CompleteJob(ctx, *appt.TechnicianID)
		}
	default:
		return fmt.Errorf("unhandled effect %s", eff)
	}
	return nil
}

func (s *AppointmentService) reportEffectFailure(ctx context.Context, id uuid.UUID, eff workflow.Effect, cause error) {
	s.logger.Error("side effect failed", "appointment_id", id, "effect", eff, "err", cause)
	s.metrics.ObserveSideEffectFailure(string(eff))
	err := s.store.Outbox.Add(ctx, model.EventSideEffectFailed, id, map[string]any{
		"appointmentId": id,
		"effect":        eff,
		"error":         cause.Error(),
	})
	if err != nil {
		s.logger.Error("failed to record side effect failure", "appointment_id", id, "effect", eff, "err", err)
	}
}

func transitionPayload(appt *model.Appointment, res *workflow.Result) map[string]any {
	return map[string]any{
		"appointmentId":     appt.ID,
		"appointmentNumber": appt.AppointmentNumber,
		"customerId":        appt.CustomerID,
		"from":              res.From,
		"to":                res.To,
		"sequence":          res.Event.Sequence,
		"changedBy":         res.Event.ChangedBy,
		"changedByRole":     res.Event.ChangedByRole,
		"changedAt":         res.Event.ChangedAt,
	}
}

func rejectReason(err error) string {
	var (
		verr *apperr.ValidationError
		perr *apperr.PolicyViolationError
	)
	switch {
	case errors.Is(err, apperr.ErrForbidden):
		return "forbidden"
	case errors.Is(err, apperr.ErrInvalidStatusForDecision):
		return "invalid_decision"
	case errors.Is(err, apperr.ErrInvalidTransition):
		return "invalid_transition"
	case errors.As(err, &perr):
		return "policy"
	case errors.As(err, &verr):
		return "validation"
	}
	return "error"
}

// refundBase is the amount a refund percentage applies to: what was paid.
func refundBase(appt *model.Appointment) int64 {
	if !appt.DepositPaid {
		return 0
	}
	return appt.TotalAmount
}
