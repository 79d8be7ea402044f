package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/calendar"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
)

// DefaultJobLength is assumed for commitments without an estimated completion.
const DefaultJobLength = 60 * time.Minute

// CommitmentLookback bounds how long before a window an overlapping job may
// have started. Jobs are never planned longer than this.
const CommitmentLookback = 24 * time.Hour

// ConflictStatuses are the statuses that occupy a technician's time.
var ConflictStatuses = []model.AppointmentStatus{model.StatusConfirmed, model.StatusInProgress}

// Commitment is the time a technician has promised to one appointment.
type Commitment struct {
	AppointmentID uuid.UUID
	Window        calendar.TimeRange
}

// CommitmentFor derives the busy window of an appointment.
func CommitmentFor(a *model.Appointment) Commitment {
	end := a.EstimatedCompletion
	if end.IsZero() || !end.After(a.ScheduledStart) {
		end = a.ScheduledStart.Add(DefaultJobLength)
	}
	return Commitment{
		AppointmentID: a.ID,
		Window:        calendar.TimeRange{Start: a.ScheduledStart, End: end},
	}
}

// Conflicts returns the commitments overlapping window (half-open), skipping
// excludeID. Jobs running past midnight count on both days.
func Conflicts(window calendar.TimeRange, existing []Commitment, excludeID uuid.UUID) []Commitment {
	var out []Commitment
	for _, c := range existing {
		if excludeID != uuid.Nil && c.AppointmentID == excludeID {
			continue
		}
		if window.Overlaps(c.Window) {
			out = append(out, c)
		}
	}
	return out
}

// CommitmentSource lists a technician's appointments in [from, to) having one
// of the given statuses.
type CommitmentSource interface {
	ListForTechnician(
		ctx context.Context,
		technicianID uuid.UUID,
		from, to time.Time,
		statuses []model.AppointmentStatus,
	) ([]model.Appointment, error)
}

// ConflictDetector answers whether a technician is already busy in a window.
type ConflictDetector struct {
	source CommitmentSource
}

func NewConflictDetector(source CommitmentSource) *ConflictDetector {
	return &ConflictDetector{source: source}
}

// HasConflict reports whether technicianID has a confirmed or in-progress
// appointment overlapping [start, end), ignoring excludeID. The scan starts
// CommitmentLookback before start, so it does not depend on any time zone.
func (d *ConflictDetector) HasConflict(
	ctx context.Context,
	technicianID uuid.UUID,
	start, end time.Time,
	excludeID uuid.UUID,
) (bool, error) {
	window, err := calendar.NewTimeRange(start, end)
	if err != nil {
		return false, err
	}

	appts, err := d.source.ListForTechnician(ctx, technicianID, start.Add(-CommitmentLookback), end, ConflictStatuses)
	if err != nil {
		return false, fmt.Errorf("list technician appointments: %w", err)
	}

	existing := make([]Commitment, 0, len(appts))
	for i := range appts {
		existing = append(existing, CommitmentFor(&appts[i]))
	}
	return len(Conflicts(window, existing, excludeID)) > 0, nil
}
