package scheduling

import (
	"time"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
)

// Reasons returned by IsAvailableForAppointment.
const (
	ReasonStatus    = "technician status does not accept work"
	ReasonWorkDay   = "outside technician working days"
	ReasonWorkHours = "outside technician working hours"
	ReasonWorkload  = "technician workload at capacity"
)

// IsAvailableForAppointment checks a technician against a job window:
// availability status, working day and shift, and workload capacity when
// enforceWorkload is set. The returned reason is empty when available.
func IsAvailableForAppointment(
	tech *model.TechnicianProfile,
	start time.Time,
	duration time.Duration,
	enforceWorkload bool,
) (bool, string) {
	switch tech.AvailabilityStatus {
	case model.AvailabilityAvailable, model.AvailabilityBusy:
	default:
		return false, ReasonStatus
	}

	loc := tech.Location()
	localStart := start.In(loc)

	if !worksOn(tech.Weekdays(), localStart.Weekday()) {
		return false, ReasonWorkDay
	}

	shiftStart, errStart := model.ComposeStart(localStart, tech.WorkStart, loc)
	shiftEnd, errEnd := model.ComposeStart(localStart, tech.WorkEnd, loc)
	if errStart != nil || errEnd != nil {
		return false, ReasonWorkHours
	}
	if localStart.Before(shiftStart) || localStart.Add(duration).After(shiftEnd) {
		return false, ReasonWorkHours
	}

	if enforceWorkload && tech.WorkloadCurrent >= tech.WorkloadCapacity {
		return false, ReasonWorkload
	}
	return true, ""
}

func worksOn(days []time.Weekday, d time.Weekday) bool {
	for _, wd := range days {
		if wd == d {
			return true
		}
	}
	return false
}
