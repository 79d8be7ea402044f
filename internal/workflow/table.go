package workflow

import "github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"

var (
	staffSide      = []model.Role{model.RoleStaff, model.RoleAdmin}
	staffOrSystem  = []model.Role{model.RoleStaff, model.RoleAdmin, model.RoleSystem}
	customerSide   = []model.Role{model.RoleCustomer, model.RoleAdmin}
	anyBooker      = []model.Role{model.RoleCustomer, model.RoleStaff, model.RoleAdmin}
	technicianSide = []model.Role{model.RoleTechnician, model.RoleAdmin}
	workshop       = []model.Role{model.RoleTechnician, model.RoleStaff, model.RoleAdmin}
)

// adjacency lists, for every status, the statuses it may move to and the roles
// allowed to drive each edge. Anything not listed is illegal.
var adjacency = map[model.AppointmentStatus]map[model.AppointmentStatus][]model.Role{
	model.StatusPending: {
		model.StatusConfirmed:       staffOrSystem,
		model.StatusCancelRequested: customerSide,
		model.StatusCancelled:       staffSide,
		model.StatusRescheduled:     anyBooker,
	},
	model.StatusConfirmed: {
		model.StatusCustomerArrived: staffSide,
		model.StatusCancelRequested: customerSide,
		model.StatusCancelled:       staffSide,
		model.StatusNoShow:          staffSide,
		model.StatusRescheduled:     anyBooker,
	},
	model.StatusCustomerArrived: {
		model.StatusReceptionCreated: staffSide,
		model.StatusCancelled:        staffSide,
	},
	model.StatusReceptionCreated: {
		model.StatusReceptionApproved: staffSide,
		model.StatusCancelled:         staffSide,
	},
	model.StatusReceptionApproved: {
		model.StatusInProgress:        technicianSide,
		model.StatusPartsInsufficient: workshop,
	},
	model.StatusInProgress: {
		model.StatusPartsInsufficient: workshop,
		model.StatusQualityCheck:      technicianSide,
		model.StatusCompleted:         technicianSide,
	},
	model.StatusQualityCheck: {
		model.StatusReadyForPickup: staffSide,
		model.StatusInProgress:     staffSide,
		model.StatusCompleted:      staffSide,
	},
	model.StatusReadyForPickup: {
		model.StatusCompleted: staffSide,
	},
	model.StatusPartsInsufficient: {
		model.StatusWaitingForParts: staffSide,
		model.StatusInProgress:      staffSide,
		model.StatusRescheduled:     staffSide,
		model.StatusPartsRequested:  staffSide,
		model.StatusCancelRequested: anyBooker,
	},
	model.StatusPartsRequested: {
		model.StatusWaitingForParts: staffSide,
		model.StatusInProgress:      workshop,
	},
	model.StatusWaitingForParts: {
		model.StatusInProgress:      workshop,
		model.StatusRescheduled:     staffSide,
		model.StatusCancelRequested: anyBooker,
	},
	model.StatusCancelRequested: {
		model.StatusCancelApproved: staffSide,
	},
	model.StatusCancelApproved: {
		model.StatusCancelled: staffOrSystem,
	},
}

// Effect is work triggered by an accepted transition.
type Effect string

const (
	// Applied to the appointment record inside Transition.
	EffectStampStart  Effect = "stamp_start"
	EffectStampFinish Effect = "stamp_finish"

	// Executed by the caller. Refund effects belong to the transition's
	// transaction, the others run after it is stored.
	EffectReleaseSlot           Effect = "release_slot"
	EffectReleaseTechnician     Effect = "release_technician"
	EffectCompleteTechnicianJob Effect = "complete_technician_job"
	EffectComputeRefund         Effect = "compute_refund"
	EffectRecordRefund          Effect = "record_refund"
)

// Local reports whether the effect only touches the appointment record.
func (e Effect) Local() bool {
	return e == EffectStampStart || e == EffectStampFinish
}

func effectsFor(from, to model.AppointmentStatus) []Effect {
	switch to {
	case model.StatusInProgress:
		return []Effect{EffectStampStart}
	case model.StatusCompleted:
		return []Effect{EffectStampFinish, EffectCompleteTechnicianJob}
	case model.StatusCancelApproved:
		return []Effect{EffectComputeRefund}
	case model.StatusCancelled:
		if from == model.StatusCancelApproved {
			return []Effect{EffectReleaseSlot, EffectReleaseTechnician, EffectRecordRefund}
		}
		// Direct cancellation by the service center skips the request and
		// approval steps, so the refund is computed here.
		return []Effect{EffectComputeRefund, EffectReleaseSlot, EffectReleaseTechnician, EffectRecordRefund}
	case model.StatusNoShow, model.StatusRescheduled:
		return []Effect{EffectReleaseSlot, EffectReleaseTechnician}
	}
	return nil
}

// Next returns the statuses reachable from s, in workflow order.
func Next(s model.AppointmentStatus) []model.AppointmentStatus {
	edges := adjacency[s]
	out := make([]model.AppointmentStatus, 0, len(edges))
	for _, candidate := range model.AllStatuses {
		if _, ok := edges[candidate]; ok {
			out = append(out, candidate)
		}
	}
	return out
}

// RolesFor returns the roles allowed to drive from -> to, nil when the edge
// does not exist.
func RolesFor(from, to model.AppointmentStatus) []model.Role {
	return adjacency[from][to]
}

// Allowed reports whether role may drive from -> to, ignoring ownership.
func Allowed(from, to model.AppointmentStatus, role model.Role) bool {
	return containsRole(adjacency[from][to], role)
}
