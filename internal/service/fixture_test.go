package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/repository"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/workflow"
)

// Tuesday 20.10.2026, 09:00 UTC.
var bookingDay = time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	store    *repository.Store
	svc      *AppointmentService
	clock    *testClock
	loc      *time.Location
	customer workflow.Actor
	staff    workflow.Actor
	vehicle  *model.Vehicle
	battery  *model.Service // 30 min
	brakes   *model.Service // 45 min
	slot     *model.Slot
}

func newFixture(t *testing.T, opts ...func(*Options)) *fixture {
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

	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		store: repository.NewStore(db),
		clock: &testClock{now: time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)},
	}

	o := Options{
		EnforceTechnicianWorkload: true,
		Logger:                    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:                       f.clock.Now,
	}
	for _, fn := range opts {
		fn(&o)
	}
	f.loc = time.UTC
	if o.Location != nil {
		f.loc = o.Location
	}
	f.svc = NewAppointmentService(f.store, o)

	f.customer = f.user(model.RoleCustomer)
	f.staff = f.user(model.RoleStaff)

	f.vehicle = &model.Vehicle{OwnerID: f.customer.ID, VIN: "5YJ3E1EA7KF000001", Make: "Tesla", Model: "Model 3", Year: 2019}
	if err := f.store.Vehicles.Create(f.ctx, f.vehicle); err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}
	f.battery = f.service("Battery diagnostics", "battery", 30, 40000)
	f.brakes = f.service("Brake service", "brakes", 45, 60000)
	f.slot = f.addSlot(9, 2, 2)
	return f
}

func (f *fixture) user(role model.Role) workflow.Actor {
	f.t.Helper()
	u := &model.User{Email: uuid.NewString() + "@example.com", DisplayName: string(role), Role: role, Active: true}
	if err := f.store.Users.Create(f.ctx, u); err != nil {
		f.t.Fatalf("seed user: %v", err)
	}
	return workflow.Actor{ID: u.ID, Role: role}
}

func (f *fixture) service(name, category string, minutes int, price int64) *model.Service {
	f.t.Helper()
	svc := &model.Service{Name: name, Category: category, DurationMin: minutes, Price: price, IsActive: true}
	if err := f.store.Services.Create(f.ctx, svc); err != nil {
		f.t.Fatalf("seed service: %v", err)
	}
	return svc
}

// addSlot seeds a slot on the booking day, starting at hour in the center's location.
func (f *fixture) addSlot(hour, hours, capacity int, roster ...uuid.UUID) *model.Slot {
	f.t.Helper()
	start := time.Date(bookingDay.Year(), bookingDay.Month(), bookingDay.Day(), hour, 0, 0, 0, f.loc)
	slot := &model.Slot{
		Date:      dateOf(start),
		StartTime: start.UTC(),
		EndTime:   start.Add(time.Duration(hours) * time.Hour).UTC(),
		Capacity:  capacity,
		Status:    model.SlotStatusAvailable,
	}
	for _, id := range roster {
		slot.Technicians = append(slot.Technicians, model.SlotTechnician{TechnicianID: id, MaxCapacity: 1})
	}
	if err := f.store.Slots.Create(f.ctx, slot); err != nil {
		f.t.Fatalf("seed slot: %v", err)
	}
	return slot
}

// technician creates a technician working every day 08:00-17:00 in the
// center's location.
func (f *fixture) technician(name string, rating float64, skills map[string]int) workflow.Actor {
	f.t.Helper()
	return f.shiftTechnician(name, rating, skills, "08:00", "17:00")
}

func (f *fixture) shiftTechnician(name string, rating float64, skills map[string]int, from, to string) workflow.Actor {
	f.t.Helper()
	actor := f.user(model.RoleTechnician)
	profile := &model.TechnicianProfile{
		UserID:             actor.ID,
		DisplayName:        name,
		AvailabilityStatus: model.AvailabilityAvailable,
		WorkloadCapacity:   4,
		CustomerRating:     rating,
		Efficiency:         80,
		WorkStart:          from,
		WorkEnd:            to,
		TimeZone:           f.loc.String(),
	}
	profile.SetWeekdays(time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday)
	for category, level := range skills {
		profile.Skills = append(profile.Skills, model.TechnicianSkill{ServiceCategory: category, ProficiencyLevel: level})
	}
	if err := f.store.Technicians.Create(f.ctx, profile); err != nil {
		f.t.Fatalf("seed technician: %v", err)
	}
	actor.TechnicianID = profile.ID
	return actor
}

func (f *fixture) input(clock string) CreateAppointmentInput {
	return CreateAppointmentInput{
		VehicleID:     f.vehicle.ID,
		Services:      []ServiceLine{{ServiceID: f.battery.ID}, {ServiceID: f.brakes.ID}},
		ScheduledDate: bookingDay,
		ScheduledTime: clock,
	}
}

func (f *fixture) book(in CreateAppointmentInput, actor workflow.Actor) *model.Appointment {
	f.t.Helper()
	appt, err := f.svc.CreateAppointment(f.ctx, in, actor)
	if err != nil {
		f.t.Fatalf("create appointment: %v", err)
	}
	return appt
}

// bookPrepaid books a confirmed, paid appointment at 09:00 through staff.
func (f *fixture) bookPrepaid(tech *workflow.Actor) *model.Appointment {
	f.t.Helper()
	in := f.input("09:00")
	in.CustomerID = f.customer.ID
	in.Prepaid = true
	in.PaymentRef = "COUNTER-1"
	if tech != nil {
		in.TechnicianID = &tech.TechnicianID
	}
	return f.book(in, f.staff)
}

func (f *fixture) move(id uuid.UUID, actor workflow.Actor, targets ...model.AppointmentStatus) *model.Appointment {
	f.t.Helper()
	var appt *model.Appointment
	for _, target := range targets {
		var err error
		appt, err = f.svc.TransitionAppointment(f.ctx, id, target, actor, "", "")
		if err != nil {
			f.t.Fatalf("transition to %s: %v", target, err)
		}
	}
	return appt
}

func (f *fixture) outboxTypes() []model.EventType {
	f.t.Helper()
	events, err := f.store.Outbox.FetchUnpublished(f.ctx, 100)
	if err != nil {
		f.t.Fatalf("fetch outbox: %v", err)
	}
	out := make([]model.EventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.EventType)
	}
	return out
}

func (f *fixture) reloadSlot(id uuid.UUID) *model.Slot {
	f.t.Helper()
	slot, err := f.store.Slots.GetByID(f.ctx, id)
	if err != nil {
		f.t.Fatalf("load slot: %v", err)
	}
	return slot
}

func (f *fixture) reloadTechnician(id uuid.UUID) *model.TechnicianProfile {
	f.t.Helper()
	tech, err := f.store.Technicians.GetByID(f.ctx, id)
	if err != nil {
		f.t.Fatalf("load technician: %v", err)
	}
	return tech
}

func containsEvent(types []model.EventType, want model.EventType) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}
