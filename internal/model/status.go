package model

// AppointmentStatus is the workflow state of an appointment.
type AppointmentStatus string

const (
	StatusPending           AppointmentStatus = "pending"
	StatusConfirmed         AppointmentStatus = "confirmed"
	StatusCustomerArrived   AppointmentStatus = "customer_arrived"
	StatusReceptionCreated  AppointmentStatus = "reception_created"
	StatusReceptionApproved AppointmentStatus = "reception_approved"
	StatusInProgress        AppointmentStatus = "in_progress"
	StatusPartsInsufficient AppointmentStatus = "parts_insufficient"
	StatusWaitingForParts   AppointmentStatus = "waiting_for_parts"
	StatusPartsRequested    AppointmentStatus = "parts_requested"
	StatusQualityCheck      AppointmentStatus = "quality_check"
	StatusReadyForPickup    AppointmentStatus = "ready_for_pickup"
	StatusCompleted         AppointmentStatus = "completed"
	StatusCancelled         AppointmentStatus = "cancelled"
	StatusNoShow            AppointmentStatus = "no_show"
	StatusRescheduled       AppointmentStatus = "rescheduled"
	StatusCancelRequested   AppointmentStatus = "cancel_requested"
	StatusCancelApproved    AppointmentStatus = "cancel_approved"
)

// AllStatuses lists every status in workflow order.
var AllStatuses = []AppointmentStatus{
	StatusPending,
	StatusConfirmed,
	StatusCustomerArrived,
	StatusReceptionCreated,
	StatusReceptionApproved,
	StatusInProgress,
	StatusPartsInsufficient,
	StatusWaitingForParts,
	StatusPartsRequested,
	StatusQualityCheck,
	StatusReadyForPickup,
	StatusCompleted,
	StatusCancelled,
	StatusNoShow,
	StatusRescheduled,
	StatusCancelRequested,
	StatusCancelApproved,
}

// Valid reports whether s is part of the status enumeration.
func (s AppointmentStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal statuses are kept for audit and refund history and never change again.
func (s AppointmentStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow, StatusRescheduled:
		return true
	}
	return false
}

// ParseStatus converts a raw string into an AppointmentStatus.
func ParseStatus(s string) (AppointmentStatus, bool) {
	st := AppointmentStatus(s)
	return st, st.Valid()
}
