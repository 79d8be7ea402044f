// Package workflow is the appointment state machine.
//
// Transition validates one move against the adjacency table, applies it to the
// in-memory appointment and returns the history event plus the side effects
// the caller has to run once the change is stored.
package workflow

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/apperr"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   uuid.UUID
	Role model.Role
	// TechnicianID is the technician profile of a technician actor. When
	// empty, ID is compared with the assigned technician.
	TechnicianID uuid.UUID
}

func (a Actor) technicianRef() uuid.UUID {
	if a.TechnicianID != uuid.Nil {
		return a.TechnicianID
	}
	return a.ID
}

// System is the actor used by automated callbacks.
var System = Actor{ID: uuid.Nil, Role: model.RoleSystem}

// Result describes an accepted transition.
type Result struct {
	From            model.AppointmentStatus
	To              model.AppointmentStatus
	PreviousVersion int64
	Event           model.WorkflowEvent
	// Effects not yet applied; Local effects are already on the appointment.
	Effects []Effect
}

// Transition moves appt to target on behalf of actor.
//
// On failure it returns an *apperr.InvalidTransitionError and appt is left
// unchanged. Role and ownership failures also match apperr.ErrForbidden.
func Transition(
	appt *model.Appointment,
	target model.AppointmentStatus,
	actor Actor,
	reason, notes string,
	now time.Time,
) (*Result, error) {
	from := appt.Status
	if err := Check(appt, target, actor); err != nil {
		return nil, err
	}

	now = now.UTC()
	res := &Result{
		From:            from,
		To:              target,
		PreviousVersion: appt.Version,
	}

	for _, eff := range effectsFor(from, target) {
		switch eff {
		case EffectStampStart:
			if appt.ActualStart == nil {
				appt.ActualStart = &now
			}
		case EffectStampFinish:
			appt.ActualCompletion = &now
		default:
			res.Effects = append(res.Effects, eff)
		}
	}

	appt.Status = target
	appt.Version++

	res.Event = model.WorkflowEvent{
		AppointmentID: appt.ID,
		Sequence:      appt.Version,
		FromStatus:    from,
		ToStatus:      target,
		ChangedBy:     actor.ID,
		ChangedByRole: actor.Role,
		ChangedAt:     now,
		Reason:        reason,
		Notes:         notes,
	}
	return res, nil
}

// Check validates a transition without applying it.
func Check(appt *model.Appointment, target model.AppointmentStatus, actor Actor) error {
	from := appt.Status
	fail := func(cause error, reason string) error {
		return &apperr.InvalidTransitionError{
			From:   string(from),
			To:     string(target),
			Role:   string(actor.Role),
			Reason: reason,
			Err:    cause,
		}
	}

	if !target.Valid() {
		return fail(apperr.ErrInvalidTransition, "unknown target status")
	}
	if !actor.Role.Valid() {
		return fail(apperr.ErrForbidden, "unknown role")
	}
	roles, ok := adjacency[from][target]
	if !ok {
		return fail(apperr.ErrInvalidTransition, "")
	}
	if !containsRole(roles, actor.Role) {
		return fail(apperr.ErrForbidden, "role not allowed for this transition")
	}

	switch actor.Role {
	case model.RoleCustomer:
		if appt.CustomerID != actor.ID {
			return fail(apperr.ErrForbidden, "appointment belongs to another customer")
		}
	case model.RoleTechnician:
		if !appt.AssignedTo(actor.technicianRef()) {
			return fail(apperr.ErrForbidden, "technician is not assigned to the appointment")
		}
	}
	return nil
}

// Initial returns the first history event of a freshly booked appointment.
func Initial(appt *model.Appointment, actor Actor, notes string, now time.Time) model.WorkflowEvent {
	return model.WorkflowEvent{
		AppointmentID: appt.ID,
		Sequence:      1,
		ToStatus:      appt.Status,
		ChangedBy:     actor.ID,
		ChangedByRole: actor.Role,
		ChangedAt:     now.UTC(),
		Reason:        "booked",
		Notes:         notes,
	}
}

// Replay folds a history in sequence order and returns the status it leads
// to. Every step must be a legal edge for the recorded role.
func Replay(events []model.WorkflowEvent) (model.AppointmentStatus, error) {
	if len(events) == 0 {
		return "", fmt.Errorf("replay: empty history")
	}

	first := events[0]
	if first.Sequence != 1 || first.FromStatus != "" {
		return "", fmt.Errorf("replay: history must start with the booking event")
	}
	if first.ToStatus != model.StatusPending && first.ToStatus != model.StatusConfirmed {
		return "", fmt.Errorf("replay: booking event leads to %s", first.ToStatus)
	}

	current := first.ToStatus
	for i, ev := range events[1:] {
		want := int64(i + 2)
		if ev.Sequence != want {
			return "", fmt.Errorf("replay: sequence %d, want %d", ev.Sequence, want)
		}
		if ev.FromStatus != current {
			return "", fmt.Errorf("replay: event %d starts from %s, current is %s", ev.Sequence, ev.FromStatus, current)
		}
		if !Allowed(ev.FromStatus, ev.ToStatus, ev.ChangedByRole) {
			return "", fmt.Errorf("replay: event %d: %w", ev.Sequence, &apperr.InvalidTransitionError{
				From: string(ev.FromStatus),
				To:   string(ev.ToStatus),
				Role: string(ev.ChangedByRole),
			})
		}
		current = ev.ToStatus
	}
	return current, nil
}

func containsRole(roles []model.Role, role model.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
