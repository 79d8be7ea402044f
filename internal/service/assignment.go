package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/apperr"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/calendar"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/capacity"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/repository"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/scheduling"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/workflow"
)

// Statuses in which the technician of an appointment may still change.
var assignableStatuses = map[model.AppointmentStatus]bool{
	model.StatusPending:           true,
	model.StatusConfirmed:         true,
	model.StatusCustomerArrived:   true,
	model.StatusReceptionCreated:  true,
	model.StatusReceptionApproved: true,
}

// AssignTechnician sets the technician of an appointment, either the given
// one or the best ranked eligible one when autoAssign is set. The previous
// technician, if any, gets its workload back.
func (s *AppointmentService) AssignTechnician(
	ctx context.Context,
	id uuid.UUID,
	technicianID *uuid.UUID,
	autoAssign bool,
	actor workflow.Actor,
) (*model.Appointment, error) {
	ctx, done := s.start(ctx, "assign", id)
	appt, err := s.assignTechnician(ctx, id, technicianID, autoAssign, actor)
	done(err)
	if err != nil {
		s.metrics.ObserveAssignment(autoAssign, assignmentResult(err))
		return nil, err
	}
	s.metrics.ObserveAssignment(autoAssign, "assigned")
	return appt, nil
}

func (s *AppointmentService) assignTechnician(
	ctx context.Context,
	id uuid.UUID,
	technicianID *uuid.UUID,
	autoAssign bool,
	actor workflow.Actor,
) (*model.Appointment, error) {
	if err := requireStaff(actor, "assignment"); err != nil {
		return nil, err
	}
	if !autoAssign && (technicianID == nil || *technicianID == uuid.Nil) {
		return nil, apperr.Validation(apperr.ErrInvalidInput, "technician_id", "required unless auto assign is set")
	}

	var (
		appt     *model.Appointment
		previous *uuid.UUID
		changed  bool
	)
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		appt, err = tx.Appointments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !assignableStatuses[appt.Status] {
			return &apperr.InvalidTransitionError{
				From:   string(appt.Status),
				To:     string(appt.Status),
				Role:   string(actor.Role),
				Reason: "technician cannot change in this status",
				Err:    apperr.ErrInvalidTransition,
			}
		}

		var slot *model.Slot
		if appt.SlotID != nil {
			if slot, err = tx.Slots.GetByID(ctx, *appt.SlotID); err != nil {
				return err
			}
		}
		req, err := s.requestFor(ctx, tx, appt)
		if err != nil {
			return err
		}

		var tech *model.TechnicianProfile
		if autoAssign {
			tech, err = s.pickTechnician(ctx, tx, slot, req)
		} else {
			tech, err = s.checkTechnician(ctx, tx, slot, *technicianID, req)
		}
		if err != nil {
			return err
		}
		if appt.AssignedTo(tech.ID) {
			return nil
		}

		if appt.HasTechnician() {
			prev := *appt.TechnicianID
			previous = &prev
			if err := tx.Technicians.ReleaseWorkload(ctx, prev); err != nil {
				return fmt.Errorf("release previous technician: %w", err)
			}
			if slot != nil {
				if err := tx.Slots.ReleaseTechnicianSeat(ctx, slot.ID, prev); err != nil {
					return fmt.Errorf("release previous seat: %w", err)
				}
			}
		}
		if err := s.claimTechnician(ctx, tx, slot, tech.ID); err != nil {
			return err
		}

		// Assignment is not a status change, so the version stays and the
		// guard only rejects a concurrent transition.
		err = tx.Appointments.UpdateGuarded(ctx, appt.ID, appt.Version, map[string]any{"technician_id": tech.ID})
		if errors.Is(err, repository.ErrStaleVersion) {
			return &apperr.InvalidTransitionError{
				From:   string(appt.Status),
				To:     string(appt.Status),
				Role:   string(actor.Role),
				Reason: "appointment was modified concurrently",
				Err:    apperr.ErrInvalidTransition,
			}
		}
		if err != nil {
			return err
		}
		appt.TechnicianID = &tech.ID
		changed = true

		return tx.Outbox.Add(ctx, model.EventTechnicianAssigned, appt.ID, map[string]any{
			"appointmentId":        appt.ID,
			"appointmentNumber":    appt.AppointmentNumber,
			"technicianId":         tech.ID,
			"previousTechnicianId": previous,
			"auto":                 autoAssign,
			"scheduledStart":       appt.ScheduledStart,
		})
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.logger.Info("technician assigned",
			"appointment_id", appt.ID,
			"technician_id", appt.TechnicianID,
			"previous_technician_id", previous,
			"auto", autoAssign,
		)
	}
	return s.store.Appointments.GetByID(ctx, id)
}

// requestFor describes the job of an existing appointment for scoring.
func (s *AppointmentService) requestFor(ctx context.Context, st *repository.Store, appt *model.Appointment) (scheduling.Request, error) {
	ids := make([]uuid.UUID, 0, len(appt.Services))
	for _, it := range appt.Services {
		ids = append(ids, it.ServiceID)
	}
	catalog, err := st.Services.ListByIDs(ctx, ids)
	if err != nil {
		return scheduling.Request{}, fmt.Errorf("load services: %w", err)
	}
	return scheduling.Request{
		Start:         appt.ScheduledStart,
		Duration:      appt.Duration(),
		Categories:    categoriesOf(catalog),
		AppointmentID: appt.ID,
	}, nil
}

func categoriesOf(catalog []model.Service) []string {
	var out []string
	seen := map[string]bool{}
	for _, svc := range catalog {
		if !seen[svc.Category] {
			seen[svc.Category] = true
			out = append(out, svc.Category)
		}
	}
	return out
}

// candidates lists working technicians, restricted to the slot roster when
// the slot has one.
func candidates(ctx context.Context, st *repository.Store, slot *model.Slot) ([]model.TechnicianProfile, error) {
	techs, err := st.Technicians.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list technicians: %w", err)
	}
	if slot == nil || len(slot.Technicians) == 0 {
		return techs, nil
	}
	out := techs[:0]
	for _, t := range techs {
		if capacity.TechnicianAvailableInSlot(slot, t.ID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *AppointmentService) pickTechnician(
	ctx context.Context,
	tx *repository.Store,
	slot *model.Slot,
	req scheduling.Request,
) (*model.TechnicianProfile, error) {
	techs, err := candidates(ctx, tx, slot)
	if err != nil {
		return nil, err
	}
	best, err := s.engine(tx).Select(ctx, techs, req)
	if err != nil {
		return nil, err
	}
	return &best.Technician, nil
}

func (s *AppointmentService) checkTechnician(
	ctx context.Context,
	tx *repository.Store,
	slot *model.Slot,
	technicianID uuid.UUID,
	req scheduling.Request,
) (*model.TechnicianProfile, error) {
	tech, err := tx.Technicians.GetByID(ctx, technicianID)
	if err != nil {
		return nil, err
	}
	if slot != nil && len(slot.Technicians) > 0 && !capacity.TechnicianAvailableInSlot(slot, tech.ID) {
		return nil, fmt.Errorf("not rostered or full in slot: %w", &apperr.ResourceUnavailableError{
			Resource: "slot technician",
			ID:       tech.ID.String(),
			Err:      apperr.ErrTechnicianUnavailable,
		})
	}
	if err := s.engine(tx).CheckEligible(ctx, tech, req); err != nil {
		return nil, err
	}
	return tech, nil
}

// claimTechnician takes one unit of the technician's workload and, when the
// technician is rostered in the slot, one of its seats there.
func (s *AppointmentService) claimTechnician(ctx context.Context, tx *repository.Store, slot *model.Slot, technicianID uuid.UUID) error {
	if err := tx.Technicians.ClaimWorkload(ctx, technicianID, s.enforceWorkload); err != nil {
		return err
	}
	if slot == nil {
		return nil
	}
	if _, listed := slot.RosterEntry(technicianID); !listed {
		return nil
	}
	return tx.Slots.ClaimTechnicianSeat(ctx, slot.ID, technicianID)
}

// RankRequest selects the job to rank technicians for: an existing
// appointment, or a start time and a set of services.
type RankRequest struct {
	AppointmentID uuid.UUID
	Start         time.Time
	ServiceIDs    []uuid.UUID
	Page          int
	PageSize      int
}

// ensureTechnicianFree re-runs conflict detection when an appointment starts
// to block its technician's time. Pending bookings do not block each other,
// so two of them may hold the same window until one is confirmed.
func (s *AppointmentService) ensureTechnicianFree(ctx context.Context, tx *repository.Store, appt *model.Appointment) error {
	if !appt.HasTechnician() {
		return nil
	}
	window := scheduling.CommitmentFor(appt).Window
	busy, err := scheduling.NewConflictDetector(tx.Appointments).HasConflict(ctx, *appt.TechnicianID, window.Start, window.End, appt.ID)
	if err != nil {
		return err
	}
	if busy {
		return fmt.Errorf("technician %s: %w", *appt.TechnicianID, apperr.ErrTechnicianConflict)
	}
	return nil
}

// RankTechnicians previews the eligible technicians for a job, best first.
func (s *AppointmentService) RankTechnicians(
	ctx context.Context,
	in RankRequest,
	actor workflow.Actor,
) (calendar.Page[scheduling.Candidate], error) {
	ctx, done := s.start(ctx, "rank", in.AppointmentID)
	page, err := s.rankTechnicians(ctx, in, actor)
	done(err)
	return page, err
}

func (s *AppointmentService) rankTechnicians(
	ctx context.Context,
	in RankRequest,
	actor workflow.Actor,
) (calendar.Page[scheduling.Candidate], error) {
	var empty calendar.Page[scheduling.Candidate]
	if err := requireStaff(actor, "ranking"); err != nil {
		return empty, err
	}

	var (
		req  scheduling.Request
		slot *model.Slot
	)
	if in.AppointmentID != uuid.Nil {
		appt, err := s.store.Appointments.GetByID(ctx, in.AppointmentID)
		if err != nil {
			return empty, err
		}
		if req, err = s.requestFor(ctx, s.store, appt); err != nil {
			return empty, err
		}
		if appt.SlotID != nil {
			if slot, err = s.store.Slots.GetByID(ctx, *appt.SlotID); err != nil {
				return empty, err
			}
		}
	} else {
		if in.Start.IsZero() {
			return empty, apperr.Validation(apperr.ErrInvalidInput, "start", "appointment id or start is required")
		}
		catalog, err := s.store.Services.ListByIDs(ctx, in.ServiceIDs)
		if err != nil {
			return empty, fmt.Errorf("load services: %w", err)
		}
		if len(catalog) != len(uniqueIDs(in.ServiceIDs)) {
			return empty, apperr.Validation(apperr.ErrServiceNotFound, "service_ids", "unknown service")
		}
		var minutes int
		for _, svc := range catalog {
			minutes += svc.DurationMin
		}
		req = scheduling.Request{
			Start:      in.Start,
			Duration:   time.Duration(minutes) * time.Minute,
			Categories: categoriesOf(catalog),
		}
	}

	techs, err := candidates(ctx, s.store, slot)
	if err != nil {
		return empty, err
	}
	ranked, err := s.engine(s.store).Rank(ctx, techs, req)
	if err != nil {
		return empty, err
	}
	return calendar.Paginate(ranked, in.Page, in.PageSize), nil
}

func uniqueIDs(ids []uuid.UUID) map[uuid.UUID]struct{} {
	out := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func requireStaff(actor workflow.Actor, policy string) error {
	if actor.Role == model.RoleStaff || actor.Role == model.RoleAdmin {
		return nil
	}
	return &apperr.PolicyViolationError{
		Policy:       policy,
		RequiredRole: string(model.RoleStaff),
		Err:          apperr.ErrForbidden,
	}
}
