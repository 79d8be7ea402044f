package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/apperr"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
)

var testNow = time.Date(2026, 10, 20, 8, 0, 0, 0, time.UTC)

func newAppointment(status model.AppointmentStatus) (*model.Appointment, Actor, Actor) {
	customer := Actor{ID: uuid.New(), Role: model.RoleCustomer}
	tech := Actor{ID: uuid.New(), Role: model.RoleTechnician}
	techID := tech.ID
	return &model.Appointment{
		ID:           uuid.New(),
		CustomerID:   customer.ID,
		TechnicianID: &techID,
		Status:       status,
		Version:      1,
	}, customer, tech
}

func staff() Actor { return Actor{ID: uuid.New(), Role: model.RoleStaff} }
func admin() Actor { return Actor{ID: uuid.New(), Role: model.RoleAdmin} }

func TestTransition_HappyPath(t *testing.T) {
	appt, _, tech := newAppointment(model.StatusPending)

	steps := []struct {
		to    model.AppointmentStatus
		actor Actor
	}{
		{model.StatusConfirmed, staff()},
		{model.StatusCustomerArrived, staff()},
		{model.StatusReceptionCreated, staff()},
		{model.StatusReceptionApproved, staff()},
		{model.StatusInProgress, tech},
		{model.StatusQualityCheck, tech},
		{model.StatusReadyForPickup, staff()},
		{model.StatusCompleted, staff()},
	}

	history := []model.WorkflowEvent{Initial(appt, staff(), "", testNow)}
	for _, st := range steps {
		res, err := Transition(appt, st.to, st.actor, "", "", testNow)
		if err != nil {
			t.Fatalf("transition to %s: %v", st.to, err)
		}
		if res.Event.Sequence != appt.Version {
			t.Fatalf("expected sequence %d, got %d", appt.Version, res.Event.Sequence)
		}
		history = append(history, res.Event)
	}

	if appt.Status != model.StatusCompleted {
		t.Fatalf("expected completed, got %s", appt.Status)
	}
	if appt.ActualStart == nil || appt.ActualCompletion == nil {
		t.Fatalf("expected start and finish stamps")
	}

	replayed, err := Replay(history)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replayed != appt.Status {
		t.Fatalf("replay gave %s, want %s", replayed, appt.Status)
	}
}

func TestTransition_ClosureOverAllPairs(t *testing.T) {
	roles := []model.Role{model.RoleCustomer, model.RoleStaff, model.RoleTechnician, model.RoleAdmin, model.RoleSystem}

	for _, from := range model.AllStatuses {
		for _, to := range model.AllStatuses {
			for _, role := range roles {
				appt, customer, tech := newAppointment(from)
				actor := Actor{ID: uuid.New(), Role: role}
				switch role {
				case model.RoleCustomer:
					actor = customer
				case model.RoleTechnician:
					actor = tech
				}

				_, err := Transition(appt, to, actor, "", "", testNow)
				legal := Allowed(from, to, role)
				if legal && err != nil {
					t.Fatalf("%s -> %s as %s: unexpected error %v", from, to, role, err)
				}
				if !legal {
					if err == nil {
						t.Fatalf("%s -> %s as %s: expected rejection", from, to, role)
					}
					if !errors.Is(err, apperr.ErrInvalidTransition) {
						t.Fatalf("%s -> %s as %s: expected ErrInvalidTransition, got %v", from, to, role, err)
					}
					if appt.Status != from || appt.Version != 1 {
						t.Fatalf("%s -> %s as %s: appointment mutated on failure", from, to, role)
					}
				}
			}
		}
	}
}

func TestTransition_TerminalStatusesHaveNoExits(t *testing.T) {
	for _, s := range model.AllStatuses {
		if s.Terminal() && len(Next(s)) != 0 {
			t.Fatalf("terminal status %s has exits %v", s, Next(s))
		}
	}
}

func TestTransition_SameStatusRejected(t *testing.T) {
	appt, _, _ := newAppointment(model.StatusConfirmed)

	_, err := Transition(appt, model.StatusConfirmed, admin(), "", "", testNow)
	if !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestTransition_CustomerOwnership(t *testing.T) {
	appt, owner, _ := newAppointment(model.StatusConfirmed)
	stranger := Actor{ID: uuid.New(), Role: model.RoleCustomer}

	_, err := Transition(appt, model.StatusCancelRequested, stranger, "", "", testNow)
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign customer, got %v", err)
	}

	if _, err := Transition(appt, model.StatusCancelRequested, owner, "changed plans", "", testNow); err != nil {
		t.Fatalf("owner cancel request: %v", err)
	}
}

func TestTransition_TechnicianMustBeAssigned(t *testing.T) {
	appt, _, assigned := newAppointment(model.StatusReceptionApproved)
	other := Actor{ID: uuid.New(), Role: model.RoleTechnician}

	_, err := Transition(appt, model.StatusInProgress, other, "", "", testNow)
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	res, err := Transition(appt, model.StatusInProgress, assigned, "", "", testNow)
	if err != nil {
		t.Fatalf("assigned technician: %v", err)
	}
	if len(res.Effects) != 0 {
		t.Fatalf("expected no external effects, got %v", res.Effects)
	}
}

func TestTransition_CustomerCannotConfirm(t *testing.T) {
	appt, owner, _ := newAppointment(model.StatusPending)

	_, err := Transition(appt, model.StatusConfirmed, owner, "", "", testNow)
	var ite *apperr.InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if ite.From != "pending" || ite.To != "confirmed" || ite.Role != "customer" {
		t.Fatalf("unexpected error fields: %+v", ite)
	}
}

func TestTransition_SideEffects(t *testing.T) {
	tests := []struct {
		from model.AppointmentStatus
		to   model.AppointmentStatus
		want []Effect
	}{
		{model.StatusConfirmed, model.StatusCancelled, []Effect{EffectComputeRefund, EffectReleaseSlot, EffectReleaseTechnician, EffectRecordRefund}},
		{model.StatusConfirmed, model.StatusNoShow, []Effect{EffectReleaseSlot, EffectReleaseTechnician}},
		{model.StatusCancelRequested, model.StatusCancelApproved, []Effect{EffectComputeRefund}},
		{model.StatusCancelApproved, model.StatusCancelled, []Effect{EffectReleaseSlot, EffectReleaseTechnician, EffectRecordRefund}},
		{model.StatusReadyForPickup, model.StatusCompleted, []Effect{EffectCompleteTechnicianJob}},
	}

	for _, tt := range tests {
		appt, _, _ := newAppointment(tt.from)
		res, err := Transition(appt, tt.to, admin(), "", "", testNow)
		if err != nil {
			t.Fatalf("%s -> %s: %v", tt.from, tt.to, err)
		}
		if len(res.Effects) != len(tt.want) {
			t.Fatalf("%s -> %s: effects %v, want %v", tt.from, tt.to, res.Effects, tt.want)
		}
		for i := range tt.want {
			if res.Effects[i] != tt.want[i] {
				t.Fatalf("%s -> %s: effects %v, want %v", tt.from, tt.to, res.Effects, tt.want)
			}
		}
	}
}

func TestReplay_RejectsGapsAndIllegalSteps(t *testing.T) {
	appt, _, _ := newAppointment(model.StatusPending)
	first := Initial(appt, staff(), "", testNow)

	gap := []model.WorkflowEvent{first, {
		Sequence: 3, FromStatus: model.StatusPending, ToStatus: model.StatusConfirmed, ChangedByRole: model.RoleStaff,
	}}
	if _, err := Replay(gap); err == nil {
		t.Fatalf("expected error on sequence gap")
	}

	illegal := []model.WorkflowEvent{first, {
		Sequence: 2, FromStatus: model.StatusPending, ToStatus: model.StatusCompleted, ChangedByRole: model.RoleAdmin,
	}}
	if _, err := Replay(illegal); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}
