package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/apperr"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/parts"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/workflow"
)

// ReportPartsShortage stops the repair for missing parts.
func (s *AppointmentService) ReportPartsShortage(
	ctx context.Context,
	id uuid.UUID,
	lines []model.PartLine,
	eta *time.Time,
	actor workflow.Actor,
	notes string,
) (*model.Appointment, error) {
	ctx, done := s.start(ctx, "report_parts_shortage", id)
	appt, err := s.mutate(ctx, id, string(model.StatusPartsInsufficient), actor, func(appt *model.Appointment, now time.Time) (*workflow.Result, error) {
		return parts.ReportShortage(appt, lines, eta, actor, notes, now)
	})
	done(err)
	return appt, err
}

// HandlePartsDecision resolves a shortage with one of the parts decisions.
func (s *AppointmentService) HandlePartsDecision(
	ctx context.Context,
	id uuid.UUID,
	decision string,
	payload parts.Payload,
	actor workflow.Actor,
) (*model.Appointment, error) {
	d, ok := parts.ParseDecision(decision)
	if !ok {
		return nil, apperr.Validation(apperr.ErrInvalidInput, "decision", decision)
	}

	ctx, done := s.start(ctx, "parts_decision", id)
	appt, err := s.mutate(ctx, id, "decision:"+string(d), actor, func(appt *model.Appointment, now time.Time) (*workflow.Result, error) {
		target, err := parts.Target(appt, d, actor)
		if err != nil {
			return nil, err
		}
		if err := workflow.Check(appt, target, actor); err != nil {
			return nil, err
		}
		reason := payload.Reason
		if reason == "" {
			reason = "parts decision: " + string(d)
		}
		if err := s.prepare(appt, target, actor, reason, now); err != nil {
			return nil, err
		}
		return parts.Apply(appt, d, payload, actor, now)
	})
	done(err)
	return appt, err
}
