package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/apperr"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/calendar"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/repository"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/workflow"
)

type GenerateSlotsInput struct {
	// Only the calendar day is used, read in Date's own location.
	Date time.Time
	// Wall clock "HH:MM" bounds of the working window.
	From       string
	To         string
	SlotLength time.Duration
	// Zero uses the configured default.
	Capacity int
	// Roster of every generated slot.
	TechnicianIDs []uuid.UUID
	// Seats per technician per slot.
	PerTechnician int
}

// GenerateSlots splits a working window of a day into fixed-length slots.
// Windows overlapping an existing slot are skipped.
func (s *AppointmentService) GenerateSlots(ctx context.Context, in GenerateSlotsInput, actor workflow.Actor) ([]model.Slot, error) {
	if err := requireStaff(actor, "slot generation"); err != nil {
		return nil, err
	}
	if in.Capacity == 0 {
		in.Capacity = s.slotCapacity
	}
	if in.Capacity < 0 {
		return nil, apperr.Validation(apperr.ErrInvalidInput, "capacity", "must be positive")
	}
	if in.PerTechnician <= 0 {
		in.PerTechnician = 1
	}

	day := in.Date
	from, err := model.ComposeStart(day, in.From, s.loc)
	if err != nil {
		return nil, apperr.Validation(apperr.ErrInvalidInput, "from", err.Error())
	}
	to, err := model.ComposeStart(day, in.To, s.loc)
	if err != nil {
		return nil, apperr.Validation(apperr.ErrInvalidInput, "to", err.Error())
	}
	window, err := calendar.NewTimeRange(from, to)
	if err != nil {
		return nil, apperr.Validation(apperr.ErrInvalidInput, "to", err.Error())
	}
	ranges, err := calendar.SplitToTimeSlots(window, in.SlotLength, 0)
	if err != nil {
		return nil, apperr.Validation(apperr.ErrInvalidInput, "slot_length", err.Error())
	}

	var created []model.Slot
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		for _, id := range in.TechnicianIDs {
			if _, err := tx.Technicians.GetByID(ctx, id); err != nil {
				return err
			}
		}

		dayStart := calendar.DateOnly(from)
		existing, err := tx.Slots.ListRange(ctx, dayStart, dayStart.AddDate(0, 0, 1))
		if err != nil {
			return fmt.Errorf("list slots: %w", err)
		}
		taken := make([]calendar.TimeRange, 0, len(existing))
		for _, sl := range existing {
			taken = append(taken, calendar.TimeRange{Start: sl.StartTime, End: sl.EndTime})
		}

		for _, r := range ranges {
			if overlap, _ := calendar.HasOverlap(r, taken, false); overlap {
				continue
			}
			slot := model.Slot{
				Date:      dateOf(r.Start),
				StartTime: r.Start.UTC(),
				EndTime:   r.End.UTC(),
				Capacity:  in.Capacity,
				Status:    model.SlotStatusAvailable,
			}
			for _, id := range in.TechnicianIDs {
				slot.Technicians = append(slot.Technicians, model.SlotTechnician{TechnicianID: id, MaxCapacity: in.PerTechnician})
			}
			if err := tx.Slots.Create(ctx, &slot); err != nil {
				return fmt.Errorf("create slot %s: %w", calendar.FormatWindow(r, s.loc), err)
			}
			created = append(created, slot)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("slots generated", "date", day.Format(time.DateOnly), "created", len(created), "requested", len(ranges))
	return created, nil
}
