// Package parts handles the branch of the workflow entered when a repair
// cannot continue because parts are missing.
package parts

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/apperr"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/workflow"
)

// Decision is how the service center resolves a shortage.
type Decision string

const (
	DecisionWait           Decision = "wait"
	DecisionProceedWithout Decision = "proceed_without"
	DecisionReschedule     Decision = "reschedule"
	DecisionCancel         Decision = "cancel"
	DecisionResumeWork     Decision = "resume_work"
	DecisionRequestParts   Decision = "request_parts"
)

type rule struct {
	from []model.AppointmentStatus
	to   model.AppointmentStatus
}

var rules = map[Decision]rule{
	DecisionWait: {
		from: []model.AppointmentStatus{model.StatusPartsInsufficient, model.StatusPartsRequested},
		to:   model.StatusWaitingForParts,
	},
	DecisionProceedWithout: {
		from: []model.AppointmentStatus{model.StatusPartsInsufficient},
		to:   model.StatusInProgress,
	},
	DecisionReschedule: {
		from: []model.AppointmentStatus{model.StatusPartsInsufficient, model.StatusWaitingForParts},
		to:   model.StatusRescheduled,
	},
	DecisionCancel: {
		from: []model.AppointmentStatus{model.StatusPartsInsufficient, model.StatusWaitingForParts},
		to:   model.StatusCancelRequested,
	},
	DecisionResumeWork: {
		from: []model.AppointmentStatus{model.StatusWaitingForParts, model.StatusPartsRequested},
		to:   model.StatusInProgress,
	},
	DecisionRequestParts: {
		from: []model.AppointmentStatus{model.StatusPartsInsufficient},
		to:   model.StatusPartsRequested,
	},
}

// ParseDecision converts a raw string into a Decision.
func ParseDecision(s string) (Decision, bool) {
	d := Decision(s)
	_, ok := rules[d]
	return d, ok
}

// Payload carries the optional data of a decision.
type Payload struct {
	// ETA of the parts for wait.
	EstimatedArrival *time.Time
	// New date for reschedule; required.
	NewDate        *time.Time
	CustomerAgreed bool
	Reason         string
	Notes          string
}

// Target returns the status a decision leads to from the appointment's
// current status, or an *apperr.InvalidTransitionError wrapping
// apperr.ErrInvalidStatusForDecision.
func Target(appt *model.Appointment, d Decision, actor workflow.Actor) (model.AppointmentStatus, error) {
	r, ok := rules[d]
	if !ok {
		return "", apperr.Validation(apperr.ErrInvalidInput, "decision", fmt.Sprintf("unknown decision %q", d))
	}
	for _, s := range r.from {
		if s == appt.Status {
			return r.to, nil
		}
	}
	return "", &apperr.InvalidTransitionError{
		From:   string(appt.Status),
		To:     string(r.to),
		Role:   string(actor.Role),
		Reason: fmt.Sprintf("decision %s not allowed from %s", d, appt.Status),
		Err:    apperr.ErrInvalidStatusForDecision,
	}
}

// Apply runs decision d on appt through the state machine and records the
// decision data on the appointment.
func Apply(
	appt *model.Appointment,
	d Decision,
	p Payload,
	actor workflow.Actor,
	now time.Time,
) (*workflow.Result, error) {
	target, err := Target(appt, d, actor)
	if err != nil {
		return nil, err
	}
	if d == DecisionReschedule && (p.NewDate == nil || p.NewDate.IsZero()) {
		return nil, apperr.Validation(apperr.ErrInvalidInput, "new_date", "required for reschedule")
	}

	reason := p.Reason
	if reason == "" {
		reason = "parts decision: " + string(d)
	}
	res, err := workflow.Transition(appt, target, actor, reason, p.Notes, now)
	if err != nil {
		return nil, err
	}

	switch d {
	case DecisionWait:
		if p.EstimatedArrival != nil {
			eta := p.EstimatedArrival.UTC()
			appt.PartsShortage.EstimatedPartsArrival = &eta
		}
	case DecisionReschedule:
		to := p.NewDate.UTC()
		appt.Reschedule = model.Reschedule{RescheduledTo: &to, CustomerAgreed: p.CustomerAgreed}
	}
	return res, nil
}

// ReportShortage moves an appointment under repair to parts_insufficient and
// stores the missing parts.
func ReportShortage(
	appt *model.Appointment,
	lines []model.PartLine,
	eta *time.Time,
	actor workflow.Actor,
	notes string,
	now time.Time,
) (*workflow.Result, error) {
	if appt.Status != model.StatusInProgress && appt.Status != model.StatusReceptionApproved {
		return nil, &apperr.InvalidTransitionError{
			From:   string(appt.Status),
			To:     string(model.StatusPartsInsufficient),
			Role:   string(actor.Role),
			Reason: "shortage can only be reported during reception or repair",
			Err:    apperr.ErrInvalidStatusForDecision,
		}
	}
	if len(lines) == 0 {
		return nil, apperr.Validation(apperr.ErrInvalidInput, "parts", "at least one part is required")
	}
	for _, l := range lines {
		if l.Name == "" && l.PartNumber == "" {
			return nil, apperr.Validation(apperr.ErrInvalidInput, "parts", "part name or number is required")
		}
		if l.RequiredQty <= 0 || l.AvailableQty < 0 || l.AvailableQty >= l.RequiredQty {
			return nil, apperr.Validation(apperr.ErrInvalidInput, "parts", fmt.Sprintf("part %s is not short", l.Name))
		}
	}

	raw, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("encode parts: %w", err)
	}

	res, err := workflow.Transition(appt, model.StatusPartsInsufficient, actor, "parts shortage", notes, now)
	if err != nil {
		return nil, err
	}

	reportedAt := now.UTC()
	reporter := actor.ID
	appt.PartsShortage = model.PartsShortage{
		InsufficientParts: datatypes.JSON(raw),
		ReportedBy:        &reporter,
		ReportedAt:        &reportedAt,
	}
	if eta != nil {
		e := eta.UTC()
		appt.PartsShortage.EstimatedPartsArrival = &e
	}
	return res, nil
}

// Lines decodes the reported shortage of appt.
func Lines(appt *model.Appointment) ([]model.PartLine, error) {
	if len(appt.PartsShortage.InsufficientParts) == 0 {
		return nil, nil
	}
	var lines []model.PartLine
	if err := json.Unmarshal(appt.PartsShortage.InsufficientParts, &lines); err != nil {
		return nil, fmt.Errorf("decode parts: %w", err)
	}
	return lines, nil
}
