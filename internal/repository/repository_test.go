package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/apperr"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := model.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewStore(db)
}

func seedSlot(t *testing.T, s *Store, capacity int, roster ...uuid.UUID) *model.Slot {
	t.Helper()
	start := time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)
	slot := &model.Slot{
		Date:      datatypes.Date(start),
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
		Capacity:  capacity,
		Status:    model.SlotStatusAvailable,
	}
	for _, id := range roster {
		slot.Technicians = append(slot.Technicians, model.SlotTechnician{TechnicianID: id, MaxCapacity: 1})
	}
	if err := s.Slots.Create(context.Background(), slot); err != nil {
		t.Fatalf("seed slot: %v", err)
	}
	return slot
}

func TestSlotRepository_CapacityTwoScenario(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	slot := seedSlot(t, s, 2)

	if err := s.Slots.Reserve(ctx, slot.ID); err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	got, _ := s.Slots.GetByID(ctx, slot.ID)
	if got.Status != model.SlotStatusPartiallyBooked || got.BookedCount != 1 {
		t.Fatalf("after first reserve: %+v", got)
	}

	if err := s.Slots.Reserve(ctx, slot.ID); err != nil {
		t.Fatalf("second reserve: %v", err)
	}
	got, _ = s.Slots.GetByID(ctx, slot.ID)
	if got.Status != model.SlotStatusFull {
		t.Fatalf("expected full, got %s", got.Status)
	}

	err := s.Slots.Reserve(ctx, slot.ID)
	var rue *apperr.ResourceUnavailableError
	if !errors.As(err, &rue) || !errors.Is(err, apperr.ErrSlotUnavailable) {
		t.Fatalf("expected ResourceUnavailableError, got %v", err)
	}
	if rue.Remaining != 0 {
		t.Fatalf("expected remaining 0, got %d", rue.Remaining)
	}

	if err := s.Slots.Release(ctx, slot.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	got, _ = s.Slots.GetByID(ctx, slot.ID)
	if got.Status != model.SlotStatusPartiallyBooked || got.BookedCount != 1 {
		t.Fatalf("after release: %+v", got)
	}
}

func TestSlotRepository_ConcurrentReserveNeverExceedsCapacity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	slot := seedSlot(t, s, 3)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Slots.Reserve(ctx, slot.ID); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if success != 3 {
		t.Fatalf("expected 3 successful reservations, got %d", success)
	}
	got, err := s.Slots.GetByID(ctx, slot.ID)
	if err != nil {
		t.Fatalf("get slot: %v", err)
	}
	if got.BookedCount != 3 || got.Status != model.SlotStatusFull {
		t.Fatalf("unexpected slot state %+v", got)
	}
}

func TestSlotRepository_ReleaseFlooredAtZero(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	slot := seedSlot(t, s, 1)

	if err := s.Slots.Release(ctx, slot.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	got, _ := s.Slots.GetByID(ctx, slot.ID)
	if got.BookedCount != 0 || got.Status != model.SlotStatusAvailable {
		t.Fatalf("unexpected slot state %+v", got)
	}
}

func TestSlotRepository_TechnicianSeat(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	techID := uuid.New()
	slot := seedSlot(t, s, 3, techID)

	if err := s.Slots.ClaimTechnicianSeat(ctx, slot.ID, techID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := s.Slots.ClaimTechnicianSeat(ctx, slot.ID, techID); !errors.Is(err, apperr.ErrTechnicianUnavailable) {
		t.Fatalf("expected ErrTechnicianUnavailable, got %v", err)
	}
	if err := s.Slots.ReleaseTechnicianSeat(ctx, slot.ID, techID); err != nil {
		t.Fatalf("release seat: %v", err)
	}
	got, _ := s.Slots.GetByID(ctx, slot.ID)
	entry, ok := got.RosterEntry(techID)
	if !ok || entry.CurrentWorkload != 0 {
		t.Fatalf("unexpected roster entry %+v", entry)
	}
}

func TestSlotRepository_FindCovering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	slot := seedSlot(t, s, 2)

	got, err := s.Slots.FindCovering(ctx, slot.StartTime.Add(30*time.Minute))
	if err != nil || got.ID != slot.ID {
		t.Fatalf("expected slot %s, got %v err %v", slot.ID, got, err)
	}
	if _, err := s.Slots.FindCovering(ctx, slot.EndTime); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("slot end is exclusive, got %v", err)
	}
}

func seedAppointment(t *testing.T, s *Store, techID *uuid.UUID, status model.AppointmentStatus, start time.Time) *model.Appointment {
	t.Helper()
	a := &model.Appointment{
		AppointmentNumber:   "SC-" + uuid.NewString()[:8],
		CustomerID:          uuid.New(),
		VehicleID:           uuid.New(),
		TechnicianID:        techID,
		ScheduledDate:       datatypes.Date(start),
		ScheduledTime:       start.Format(model.ScheduledTimeLayout),
		ScheduledStart:      start,
		EstimatedCompletion: start.Add(time.Hour),
		Status:              status,
		Version:             1,
		History: []model.WorkflowEvent{{
			Sequence: 1, ToStatus: status, ChangedBy: uuid.New(), ChangedByRole: model.RoleStaff, ChangedAt: start,
		}},
	}
	if err := s.Appointments.Create(context.Background(), a); err != nil {
		t.Fatalf("seed appointment: %v", err)
	}
	return a
}

func TestAppointmentRepository_ApplyTransitionGuardsVersion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedAppointment(t, s, nil, model.StatusPending, time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC))

	a.Status = model.StatusConfirmed
	a.Version = 2
	ev := &model.WorkflowEvent{
		AppointmentID: a.ID, Sequence: 2, FromStatus: model.StatusPending, ToStatus: model.StatusConfirmed,
		ChangedBy: uuid.New(), ChangedByRole: model.RoleStaff, ChangedAt: time.Now().UTC(),
	}
	err := s.Transaction(ctx, func(tx *Store) error {
		return tx.Appointments.ApplyTransition(ctx, a, 1, ev)
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	stale := &model.WorkflowEvent{
		AppointmentID: a.ID, Sequence: 2, FromStatus: model.StatusPending, ToStatus: model.StatusCancelled,
		ChangedBy: uuid.New(), ChangedByRole: model.RoleStaff, ChangedAt: time.Now().UTC(),
	}
	a.Status = model.StatusCancelled
	err = s.Transaction(ctx, func(tx *Store) error {
		return tx.Appointments.ApplyTransition(ctx, a, 1, stale)
	})
	if !errors.Is(err, ErrStaleVersion) {
		t.Fatalf("expected ErrStaleVersion, got %v", err)
	}

	got, err := s.Appointments.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.StatusConfirmed || got.Version != 2 {
		t.Fatalf("unexpected stored appointment: status=%s version=%d", got.Status, got.Version)
	}
	history, _ := s.Appointments.ListHistory(ctx, a.ID)
	if len(history) != 2 || history[1].ToStatus != model.StatusConfirmed {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestAppointmentRepository_ListForTechnician(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	techID := uuid.New()
	day := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

	seedAppointment(t, s, &techID, model.StatusConfirmed, day.Add(9*time.Hour))
	seedAppointment(t, s, &techID, model.StatusCancelled, day.Add(11*time.Hour))
	seedAppointment(t, s, &techID, model.StatusConfirmed, day.Add(33*time.Hour))

	got, err := s.Appointments.ListForTechnician(ctx, techID, day, day.AddDate(0, 0, 1),
		[]model.AppointmentStatus{model.StatusConfirmed, model.StatusInProgress})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 appointment, got %d", len(got))
	}
}

func TestAppointmentRepository_GetByIDNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Appointments.GetByID(context.Background(), uuid.New()); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTechnicianRepository_Workload(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tech := &model.TechnicianProfile{UserID: uuid.New(), DisplayName: "Linh", WorkloadCapacity: 1}
	if err := s.Technicians.Create(ctx, tech); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.Technicians.ClaimWorkload(ctx, tech.ID, true); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := s.Technicians.ClaimWorkload(ctx, tech.ID, true); !errors.Is(err, apperr.ErrTechnicianUnavailable) {
		t.Fatalf("expected ErrTechnicianUnavailable, got %v", err)
	}
	if err := s.Technicians.ClaimWorkload(ctx, tech.ID, false); err != nil {
		t.Fatalf("claim without enforcement: %v", err)
	}
	if err := s.Technicians.CompleteJob(ctx, tech.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got, _ := s.Technicians.GetByID(ctx, tech.ID)
	if got.WorkloadCurrent != 1 || got.CompletedJobs != 1 {
		t.Fatalf("unexpected counters: workload=%d completed=%d", got.WorkloadCurrent, got.CompletedJobs)
	}
}

func TestOutboxRepository_Lifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	aggregate := uuid.New()

	if err := s.Outbox.Add(ctx, model.EventAppointmentCreated, aggregate, map[string]string{"status": "pending"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	events, err := s.Outbox.FetchUnpublished(ctx, 10)
	if err != nil || len(events) != 1 {
		t.Fatalf("expected one event, got %d err %v", len(events), err)
	}

	if err := s.Outbox.MarkFailed(ctx, events[0].ID, "broker down"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if err := s.Outbox.MarkPublished(ctx, []uuid.UUID{events[0].ID}, time.Now()); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	events, _ = s.Outbox.FetchUnpublished(ctx, 10)
	if len(events) != 0 {
		t.Fatalf("expected no unpublished events, got %d", len(events))
	}
}
