package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories bound to one connection or transaction.
type Store struct {
	db *gorm.DB

	Appointments AppointmentRepository
	Slots        SlotRepository
	Technicians  TechnicianRepository
	Services     ServiceRepository
	Vehicles     VehicleRepository
	Users        UserRepository
	Refunds      RefundRepository
	Outbox       OutboxRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:           db,
		Appointments: NewGormAppointmentRepository(db),
		Slots:        NewGormSlotRepository(db),
		Technicians:  NewGormTechnicianRepository(db),
		Services:     NewGormServiceRepository(db),
		Vehicles:     NewGormVehicleRepository(db),
		Users:        NewGormUserRepository(db),
		Refunds:      NewGormRefundRepository(db),
		Outbox:       NewGormOutboxRepository(db),
	}
}

// Transaction runs fn with a Store bound to a single database transaction.
// Returning an error from fn rolls everything back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// Ping checks the underlying connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
