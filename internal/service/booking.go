package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/apperr"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/capacity"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/repository"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/scheduling"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/workflow"
)

// ServiceLine is one requested catalog service.
type ServiceLine struct {
	ServiceID uuid.UUID
	Quantity  int
}

type CreateAppointmentInput struct {
	// Defaults to the actor for customers; required when staff books.
	CustomerID uuid.UUID
	VehicleID  uuid.UUID
	Services   []ServiceLine
	// Calendar day of the visit, read in its own location.
	ScheduledDate time.Time
	// Wall clock "HH:MM" in the service center location.
	ScheduledTime string
	// Preferred technician. Ignored when AutoAssign is set.
	TechnicianID *uuid.UUID
	AutoAssign   bool
	Priority     model.Priority
	Notes        string
	// Paid at the counter; only staff may book an appointment as prepaid.
	Prepaid    bool
	PaymentRef string
}

// CreateAppointment books an appointment: it validates the vehicle and the
// services, takes a seat in the covering slot, optionally assigns a
// technician and stores the appointment in pending (confirmed when prepaid).
func (s *AppointmentService) CreateAppointment(
	ctx context.Context,
	in CreateAppointmentInput,
	actor workflow.Actor,
) (*model.Appointment, error) {
	ctx, done := s.start(ctx, "create", uuid.Nil)
	appt, err := s.createAppointment(ctx, in, actor)
	done(err)
	return appt, err
}

func (s *AppointmentService) createAppointment(
	ctx context.Context,
	in CreateAppointmentInput,
	actor workflow.Actor,
) (*model.Appointment, error) {
	customerID, err := bookingCustomer(in, actor)
	if err != nil {
		return nil, err
	}
	priority, err := parsePriority(in.Priority)
	if err != nil {
		return nil, err
	}

	vehicle, err := s.store.Vehicles.GetByID(ctx, in.VehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle.OwnerID != customerID {
		return nil, apperr.Validation(apperr.ErrVehicleNotOwned, "vehicle_id", in.VehicleID.String())
	}

	items, categories, err := s.lineItems(ctx, in.Services)
	if err != nil {
		return nil, err
	}

	now := s.now()
	start, err := model.ComposeStart(in.ScheduledDate, in.ScheduledTime, s.loc)
	if err != nil {
		return nil, apperr.Validation(apperr.ErrInvalidInput, "scheduled_time", err.Error())
	}
	if !start.After(now) {
		return nil, apperr.Validation(apperr.ErrInvalidInput, "scheduled_date", "must be in the future")
	}

	appt := &model.Appointment{
		ID:                  uuid.New(),
		AppointmentNumber:   newAppointmentNumber(now.In(s.loc)),
		CustomerID:          customerID,
		VehicleID:           vehicle.ID,
		ScheduledDate:       dateOf(start),
		ScheduledTime:       in.ScheduledTime,
		ScheduledStart:      start.UTC(),
		EstimatedCompletion: model.EstimateCompletion(start, items).UTC(),
		Status:              model.StatusPending,
		Priority:            priority,
		Version:             1,
		TotalAmount:         model.TotalPrice(items),
		CustomerNotes:       in.Notes,
		Services:            items,
	}
	if in.Prepaid {
		if !actor.Role.IsStaffSide() {
			return nil, apperr.Validation(apperr.ErrForbidden, "prepaid", "only staff can book prepaid appointments")
		}
		appt.Status = model.StatusConfirmed
		appt.DepositPaid = true
		appt.PaymentRef = in.PaymentRef
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		slot, err := s.reserveSlot(ctx, tx, start)
		if err != nil {
			return err
		}
		appt.SlotID = &slot.ID

		req := scheduling.Request{
			Start:         appt.ScheduledStart,
			Duration:      appt.Duration(),
			Categories:    categories,
			AppointmentID: appt.ID,
		}
		var tech *model.TechnicianProfile
		switch {
		case in.AutoAssign:
			tech, err = s.pickTechnician(ctx, tx, slot, req)
		case in.TechnicianID != nil:
			tech, err = s.checkTechnician(ctx, tx, slot, *in.TechnicianID, req)
		}
		if err != nil {
			return err
		}
		if tech != nil {
			if err := s.claimTechnician(ctx, tx, slot, tech.ID); err != nil {
				return err
			}
			appt.TechnicianID = &tech.ID
		}

		appt.History = []model.WorkflowEvent{workflow.Initial(appt, actor, in.Notes, now)}
		if err := tx.Appointments.Create(ctx, appt); err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}
		return tx.Outbox.Add(ctx, model.EventAppointmentCreated, appt.ID, map[string]any{
			"appointmentId":       appt.ID,
			"appointmentNumber":   appt.AppointmentNumber,
			"customerId":          appt.CustomerID,
			"status":              appt.Status,
			"scheduledStart":      appt.ScheduledStart,
			"estimatedCompletion": appt.EstimatedCompletion,
			"technicianId":        appt.TechnicianID,
			"totalAmount":         appt.TotalAmount,
		})
	})
	if err != nil {
		var rerr *apperr.ResourceUnavailableError
		if errors.As(err, &rerr) && errors.Is(err, apperr.ErrSlotUnavailable) {
			s.metrics.ObserveReservation(false)
		}
		if in.AutoAssign || in.TechnicianID != nil {
			s.metrics.ObserveAssignment(in.AutoAssign, assignmentResult(err))
		}
		return nil, err
	}

	s.metrics.ObserveReservation(true)
	if appt.HasTechnician() {
		s.metrics.ObserveAssignment(in.AutoAssign, "assigned")
	}
	s.logger.Info("appointment created",
		"appointment_id", appt.ID,
		"number", appt.AppointmentNumber,
		"status", appt.Status,
		"scheduled_start", appt.ScheduledStart,
		"technician_id", appt.TechnicianID,
	)
	return s.store.Appointments.GetByID(ctx, appt.ID)
}

func bookingCustomer(in CreateAppointmentInput, actor workflow.Actor) (uuid.UUID, error) {
	switch actor.Role {
	case model.RoleCustomer:
		if in.CustomerID != uuid.Nil && in.CustomerID != actor.ID {
			return uuid.Nil, apperr.Validation(apperr.ErrForbidden, "customer_id", "customers book for themselves")
		}
		return actor.ID, nil
	case model.RoleStaff, model.RoleAdmin:
		if in.CustomerID == uuid.Nil {
			return uuid.Nil, apperr.Validation(apperr.ErrInvalidInput, "customer_id", "is required")
		}
		return in.CustomerID, nil
	}
	return uuid.Nil, apperr.Validation(apperr.ErrForbidden, "role", string(actor.Role)+" cannot book appointments")
}

func parsePriority(p model.Priority) (model.Priority, error) {
	switch p {
	case "":
		return model.PriorityNormal, nil
	case model.PriorityLow, model.PriorityNormal, model.PriorityHigh, model.PriorityUrgent:
		return p, nil
	}
	return "", apperr.Validation(apperr.ErrInvalidInput, "priority", string(p))
}

// lineItems resolves the requested services into priced line items, in
// request order, and returns their categories.
func (s *AppointmentService) lineItems(ctx context.Context, lines []ServiceLine) ([]model.AppointmentService, []string, error) {
	if len(lines) == 0 {
		return nil, nil, apperr.Validation(apperr.ErrInvalidInput, "services", "at least one service is required")
	}
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ServiceID)
	}
	catalog, err := s.store.Services.ListByIDs(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load services: %w", err)
	}
	byID := make(map[uuid.UUID]model.Service, len(catalog))
	for _, svc := range catalog {
		byID[svc.ID] = svc
	}

	items := make([]model.AppointmentService, 0, len(lines))
	var categories []string
	seen := map[string]bool{}
	for i, l := range lines {
		svc, ok := byID[l.ServiceID]
		if !ok || !svc.IsActive {
			return nil, nil, apperr.Validation(apperr.ErrServiceNotFound, "services", l.ServiceID.String())
		}
		qty := l.Quantity
		if qty <= 0 {
			qty = 1
		}
		items = append(items, model.AppointmentService{
			ServiceID:   svc.ID,
			Position:    i,
			Quantity:    qty,
			Price:       svc.Price,
			DurationMin: svc.DurationMin,
		})
		if !seen[svc.Category] {
			seen[svc.Category] = true
			categories = append(categories, svc.Category)
		}
	}
	return items, categories, nil
}

// reserveSlot takes one seat in the slot covering start.
func (s *AppointmentService) reserveSlot(ctx context.Context, tx *repository.Store, start time.Time) (*model.Slot, error) {
	slot, err := tx.Slots.FindCovering(ctx, start)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, &apperr.ResourceUnavailableError{Resource: "slot", ID: start.UTC().Format(time.RFC3339), Err: apperr.ErrSlotUnavailable}
		}
		return nil, err
	}
	if ok, reason := validateBookingSlot(slot, start); !ok {
		return nil, fmt.Errorf("%s: %w", reason, &apperr.ResourceUnavailableError{
			Resource:  "slot",
			ID:        slot.ID.String(),
			Remaining: slot.Remaining(),
			Err:       apperr.ErrSlotUnavailable,
		})
	}
	if err := tx.Slots.Reserve(ctx, slot.ID); err != nil {
		return nil, err
	}
	return slot, nil
}

// validateBookingSlot reports whether a booking starting at start can take a
// seat in slot, and why not.
func validateBookingSlot(slot *model.Slot, start time.Time) (bool, string) {
	if !slot.EndTime.After(slot.StartTime) {
		return false, "invalid slot time range"
	}
	if start.Before(slot.StartTime) || !start.Before(slot.EndTime) {
		return false, "start is outside the slot"
	}
	if capacity.StatusFor(slot.BookedCount, slot.Capacity) == model.SlotStatusFull {
		return false, "slot is full"
	}
	return true, ""
}

// dateOf keeps the calendar day of t as seen in its own location.
func dateOf(t time.Time) datatypes.Date {
	y, m, d := t.Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func newAppointmentNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("SC-%s-%s", at.Format("20060102"), suffix)
}

func assignmentResult(err error) string {
	switch {
	case errors.Is(err, apperr.ErrNoEligibleTechnician):
		return "no_candidate"
	case errors.Is(err, apperr.ErrTechnicianConflict):
		return "conflict"
	case errors.Is(err, apperr.ErrTechnicianUnavailable):
		return "unavailable"
	}
	return "error"
}
