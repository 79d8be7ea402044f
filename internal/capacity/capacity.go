// Package capacity holds the slot accounting rules shared by the in-memory
// model and the SQL statements of the slot repository.
package capacity

import (
	"github.com/google/uuid"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/apperr"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
)

// StatusFor derives the slot status from its counters.
func StatusFor(booked, capacity int) model.SlotStatus {
	switch {
	case booked <= 0:
		return model.SlotStatusAvailable
	case booked >= capacity:
		return model.SlotStatusFull
	default:
		return model.SlotStatusPartiallyBooked
	}
}

// Reserve takes one seat of slot. It fails with a ResourceUnavailableError
// when the slot is already full; the slot is left untouched in that case.
func Reserve(slot *model.Slot) error {
	if slot.BookedCount >= slot.Capacity {
		return &apperr.ResourceUnavailableError{
			Resource:  "slot",
			ID:        slot.ID.String(),
			Remaining: slot.Remaining(),
			Err:       apperr.ErrSlotUnavailable,
		}
	}
	slot.BookedCount++
	slot.Status = StatusFor(slot.BookedCount, slot.Capacity)
	return nil
}

// Release frees one seat of slot. The counter never goes below zero.
func Release(slot *model.Slot) {
	if slot.BookedCount > 0 {
		slot.BookedCount--
	}
	slot.Status = StatusFor(slot.BookedCount, slot.Capacity)
}

// TechnicianAvailableInSlot reports whether technicianID is on the slot roster
// and still has a free seat in it.
func TechnicianAvailableInSlot(slot *model.Slot, technicianID uuid.UUID) bool {
	entry, ok := slot.RosterEntry(technicianID)
	if !ok {
		return false
	}
	return entry.CurrentWorkload < entry.MaxCapacity
}

// Consistent reports whether the slot counters satisfy 0 <= booked <= capacity
// and the stored status matches them.
func Consistent(slot *model.Slot) bool {
	if slot.BookedCount < 0 || slot.BookedCount > slot.Capacity {
		return false
	}
	return slot.Status == StatusFor(slot.BookedCount, slot.Capacity)
}
