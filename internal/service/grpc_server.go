package service

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	appointmentv1 "github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/api/appointment/v1"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/apperr"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/identity"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/parts"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/workflow"
)

// ActorResolver identifies the caller of an RPC.
type ActorResolver interface {
	FromContext(ctx context.Context) (workflow.Actor, error)
}

// AppointmentServer exposes AppointmentService over gRPC.
type AppointmentServer struct {
	appointmentv1.UnimplementedAppointmentServiceServer

	svc    *AppointmentService
	actors ActorResolver
	// Shared with the payment gateway; empty disables callbacks.
	callbackSecret string
	logger         *slog.Logger
}

func NewAppointmentServer(svc *AppointmentService, actors ActorResolver, callbackSecret string, logger *slog.Logger) *AppointmentServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &AppointmentServer{svc: svc, actors: actors, callbackSecret: callbackSecret, logger: logger}
}

func (s *AppointmentServer) actor(ctx context.Context) (workflow.Actor, error) {
	a, err := s.actors.FromContext(ctx)
	if err != nil {
		return workflow.Actor{}, s.toStatus(err)
	}
	return a, nil
}

func (s *AppointmentServer) CreateAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	in, err := decodeCreateInput(req)
	if err != nil {
		return nil, err
	}
	appt, err := s.svc.CreateAppointment(ctx, in, actor)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return encode(appointmentDoc(appt))
}

func (s *AppointmentServer) GetAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	id, err := requireUUID(req, "appointment_id")
	if err != nil {
		return nil, err
	}
	appt, err := s.svc.GetAppointment(ctx, id, actor)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return encode(appointmentDoc(appt))
}

func (s *AppointmentServer) ListHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	id, err := requireUUID(req, "appointment_id")
	if err != nil {
		return nil, err
	}
	events, err := s.svc.ListHistory(ctx, id, actor)
	if err != nil {
		return nil, s.toStatus(err)
	}
	items := make([]any, 0, len(events))
	for _, ev := range events {
		items = append(items, eventDoc(ev))
	}
	return encode(map[string]any{"events": items})
}

func (s *AppointmentServer) TransitionAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	id, err := requireUUID(req, "appointment_id")
	if err != nil {
		return nil, err
	}
	target, ok := model.ParseStatus(getString(req, "target_status"))
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "target_status is invalid")
	}
	appt, err := s.svc.TransitionAppointment(ctx, id, target, actor, getString(req, "reason"), getString(req, "notes"))
	if err != nil {
		return nil, s.toStatus(err)
	}
	return encode(appointmentDoc(appt))
}

func (s *AppointmentServer) AssignTechnician(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	id, err := requireUUID(req, "appointment_id")
	if err != nil {
		return nil, err
	}
	techID, err := optionalUUID(req, "technician_id")
	if err != nil {
		return nil, err
	}
	appt, err := s.svc.AssignTechnician(ctx, id, techID, getBool(req, "auto_assign"), actor)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return encode(appointmentDoc(appt))
}

func (s *AppointmentServer) RankTechnicians(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	in := RankRequest{Page: getInt(req, "page"), PageSize: getInt(req, "page_size")}
	if id, err := optionalUUID(req, "appointment_id"); err != nil {
		return nil, err
	} else if id != nil {
		in.AppointmentID = *id
	}
	if start, err := optionalTime(req, "start"); err != nil {
		return nil, err
	} else if start != nil {
		in.Start = *start
	}
	if in.ServiceIDs, err = uuidList(req, "service_ids"); err != nil {
		return nil, err
	}

	page, err := s.svc.RankTechnicians(ctx, in, actor)
	if err != nil {
		return nil, s.toStatus(err)
	}
	items := make([]any, 0, len(page.Items))
	for _, c := range page.Items {
		items = append(items, candidateDoc(c))
	}
	return encode(map[string]any{
		"candidates": items,
		"page":       page.Page,
		"page_size":  page.PageSize,
		"total":      page.Total,
		"has_next":   page.HasNext,
	})
}

func (s *AppointmentServer) GetCancellationPolicy(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	id, err := requireUUID(req, "appointment_id")
	if err != nil {
		return nil, err
	}
	d, err := s.svc.CancellationPolicy(ctx, id, actor)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return encode(map[string]any{
		"can_cancel":        d.CanCancel,
		"reason":            d.Reason,
		"refund_percentage": d.RefundPercentage,
		"hours_left":        d.HoursLeft,
	})
}

func (s *AppointmentServer) RequestCancellation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	id, err := requireUUID(req, "appointment_id")
	if err != nil {
		return nil, err
	}
	r, err := s.svc.RequestCancellation(ctx, id, getString(req, "reason"), actor)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return encode(map[string]any{
		"appointment_id":    r.AppointmentID.String(),
		"status":            string(r.Status),
		"refund_percentage": r.RefundPercentage,
		"refund_amount":     r.RefundAmount,
		"hours_left":        r.HoursLeft,
		"requested_at":      formatTime(r.RequestedAt),
	})
}

func (s *AppointmentServer) ApproveCancellation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	id, err := requireUUID(req, "appointment_id")
	if err != nil {
		return nil, err
	}
	appt, err := s.svc.ApproveCancellation(ctx, id, actor, getString(req, "notes"))
	if err != nil {
		return nil, s.toStatus(err)
	}
	return encode(appointmentDoc(appt))
}

func (s *AppointmentServer) ProcessRefund(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	id, err := requireUUID(req, "appointment_id")
	if err != nil {
		return nil, err
	}
	appt, err := s.svc.ProcessRefund(ctx, id, actor)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return encode(appointmentDoc(appt))
}

func (s *AppointmentServer) ReportPartsShortage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	id, err := requireUUID(req, "appointment_id")
	if err != nil {
		return nil, err
	}
	eta, err := optionalTime(req, "estimated_arrival")
	if err != nil {
		return nil, err
	}
	lines, err := partLines(req, "parts")
	if err != nil {
		return nil, err
	}
	appt, err := s.svc.ReportPartsShortage(ctx, id, lines, eta, actor, getString(req, "notes"))
	if err != nil {
		return nil, s.toStatus(err)
	}
	return encode(appointmentDoc(appt))
}

func (s *AppointmentServer) HandlePartsDecision(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	id, err := requireUUID(req, "appointment_id")
	if err != nil {
		return nil, err
	}
	var p parts.Payload
	if p.EstimatedArrival, err = optionalTime(req, "estimated_arrival"); err != nil {
		return nil, err
	}
	if p.NewDate, err = optionalTime(req, "new_date"); err != nil {
		return nil, err
	}
	p.CustomerAgreed = getBool(req, "customer_agreed")
	p.Reason = getString(req, "reason")
	p.Notes = getString(req, "notes")

	appt, err := s.svc.HandlePartsDecision(ctx, id, getString(req, "decision"), p, actor)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return encode(appointmentDoc(appt))
}

func (s *AppointmentServer) GenerateSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	in, err := decodeGenerateSlots(req)
	if err != nil {
		return nil, err
	}
	slots, err := s.svc.GenerateSlots(ctx, in, actor)
	if err != nil {
		return nil, s.toStatus(err)
	}
	items := make([]any, 0, len(slots))
	for i := range slots {
		items = append(items, slotDoc(&slots[i]))
	}
	return encode(map[string]any{"slots": items})
}

func (s *AppointmentServer) StartDepositPayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	id, err := requireUUID(req, "appointment_id")
	if err != nil {
		return nil, err
	}
	p, err := s.svc.StartDepositPayment(ctx, id, actor)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return encode(map[string]any{
		"txn_ref":        p.TxnRef,
		"appointment_id": p.AppointmentID.String(),
		"amount":         p.Amount,
		"expires_at":     formatTime(p.ExpiresAt),
	})
}

// ConfirmDepositPayment is the payment gateway callback. The gateway proves
// itself with the shared callback secret and acts as the system.
func (s *AppointmentServer) ConfirmDepositPayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if _, err := identity.SystemFromContext(ctx, s.callbackSecret); err != nil {
		return nil, s.toStatus(err)
	}
	ref := getString(req, "txn_ref")
	if ref == "" {
		return nil, status.Error(codes.InvalidArgument, "txn_ref is required")
	}
	appt, err := s.svc.ConfirmDepositPayment(ctx, ref, getBool(req, "success"))
	if err != nil {
		return nil, s.toStatus(err)
	}
	return encode(appointmentDoc(appt))
}

// toStatus maps core errors to gRPC codes. Unknown errors are logged and
// reported as Internal without details.
func (s *AppointmentServer) toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}

	var (
		verr *apperr.ValidationError
		terr *apperr.InvalidTransitionError
		rerr *apperr.ResourceUnavailableError
		perr *apperr.PolicyViolationError
	)
	switch {
	case errors.Is(err, identity.ErrMissingActor):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, ErrPaymentsDisabled):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, apperr.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrServiceNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.As(err, &rerr),
		errors.Is(err, apperr.ErrNoEligibleTechnician),
		errors.Is(err, apperr.ErrTechnicianConflict):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.As(err, &terr), errors.As(err, &perr):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.As(err, &verr):
		return status.Error(codes.InvalidArgument, err.Error())
	}
	s.logger.Error("unexpected error", "err", err)
	return status.Error(codes.Internal, "internal error")
}
