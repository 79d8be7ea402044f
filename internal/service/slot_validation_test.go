package service

import (
	"testing"
	"time"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
)

func testSlot(booked, capacity int) *model.Slot {
	return &model.Slot{
		StartTime:   time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC),
		EndTime:     time.Date(2026, 10, 20, 11, 0, 0, 0, time.UTC),
		Capacity:    capacity,
		BookedCount: booked,
	}
}

func TestValidateBookingSlot_OK(t *testing.T) {
	ok, reason := validateBookingSlot(testSlot(1, 2), time.Date(2026, 10, 20, 10, 30, 0, 0, time.UTC))
	if !ok {
		t.Fatalf("expected valid, got reason=%q", reason)
	}
	if reason != "" {
		t.Fatalf("expected empty reason, got %q", reason)
	}
}

func TestValidateBookingSlot_InvalidRange(t *testing.T) {
	slot := testSlot(0, 2)
	slot.EndTime = slot.StartTime

	ok, reason := validateBookingSlot(slot, slot.StartTime)
	if ok {
		t.Fatalf("expected invalid")
	}
	if reason != "invalid slot time range" {
		t.Fatalf("expected reason %q, got %q", "invalid slot time range", reason)
	}
}

func TestValidateBookingSlot_Full(t *testing.T) {
	ok, reason := validateBookingSlot(testSlot(2, 2), time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC))
	if ok {
		t.Fatalf("expected invalid")
	}
	if reason != "slot is full" {
		t.Fatalf("expected reason %q, got %q", "slot is full", reason)
	}
}

func TestValidateBookingSlot_StartOutside(t *testing.T) {
	cases := []time.Time{
		time.Date(2026, 10, 20, 8, 59, 0, 0, time.UTC),
		// The end of the slot is exclusive.
		time.Date(2026, 10, 20, 11, 0, 0, 0, time.UTC),
	}
	for _, start := range cases {
		ok, reason := validateBookingSlot(testSlot(0, 2), start)
		if ok {
			t.Fatalf("expected invalid for %s", start)
		}
		if reason != "start is outside the slot" {
			t.Fatalf("expected reason %q, got %q", "start is outside the slot", reason)
		}
	}
}

func TestNewAppointmentNumber(t *testing.T) {
	n := newAppointmentNumber(time.Date(2026, 10, 17, 23, 0, 0, 0, time.UTC))
	if len(n) != len("SC-20261017-XXXXXX") || n[:12] != "SC-20261017-" {
		t.Fatalf("unexpected appointment number %q", n)
	}
}
