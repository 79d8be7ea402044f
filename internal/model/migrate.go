package model

import "gorm.io/gorm"

// AutoMigrate migrates every entity of the service-center core.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Vehicle{},
		&Service{},
		&TechnicianProfile{},
		&TechnicianSkill{},
		&Slot{},
		&SlotTechnician{},
		&Appointment{},
		&AppointmentService{},
		&WorkflowEvent{},
		&RefundLedgerEntry{},
		&OutboxEvent{},
	)
}
