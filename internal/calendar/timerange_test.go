package calendar

import (
	"testing"
	"time"
)

func mustTime(t *testing.T, year int, month time.Month, day, hour, min int) time.Time {
	t.Helper()
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func equalTimeRangeSlices(a, b []TimeRange) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Start.Equal(b[i].Start) || !a[i].End.Equal(b[i].End) {
			return false
		}
	}
	return true
}

func TestNewTimeRange_Invalid(t *testing.T) {
	if _, err := NewTimeRange(time.Time{}, time.Time{}); err != ErrInvalidTimeRange {
		t.Fatalf("expected ErrInvalidTimeRange, got %v", err)
	}
	start := mustTime(t, 2026, 1, 1, 10, 0)
	if _, err := NewTimeRange(start, start.Add(-time.Minute)); err != ErrInvalidTimeRange {
		t.Fatalf("expected ErrInvalidTimeRange for reversed bounds, got %v", err)
	}
	if _, err := NewTimeRange(start, start); err != nil {
		t.Fatalf("zero-length range must be accepted, got %v", err)
	}
}

func TestSplitToTimeSlots_Basic(t *testing.T) {
	tr := TimeRange{Start: mustTime(t, 2026, 1, 1, 10, 0), End: mustTime(t, 2026, 1, 1, 12, 0)}

	slots, err := SplitToTimeSlots(tr, 30*time.Minute, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []TimeRange{
		{Start: mustTime(t, 2026, 1, 1, 10, 0), End: mustTime(t, 2026, 1, 1, 10, 30)},
		{Start: mustTime(t, 2026, 1, 1, 10, 30), End: mustTime(t, 2026, 1, 1, 11, 0)},
		{Start: mustTime(t, 2026, 1, 1, 11, 0), End: mustTime(t, 2026, 1, 1, 11, 30)},
		{Start: mustTime(t, 2026, 1, 1, 11, 30), End: mustTime(t, 2026, 1, 1, 12, 0)},
	}
	if !equalTimeRangeSlices(slots, expected) {
		t.Fatalf("expected %+v, got %+v", expected, slots)
	}
}

func TestSplitToTimeSlots_TailDropped(t *testing.T) {
	tr := TimeRange{Start: mustTime(t, 2026, 1, 1, 10, 0), End: mustTime(t, 2026, 1, 1, 11, 10)}

	slots, err := SplitToTimeSlots(tr, 30*time.Minute, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
}

func TestSplitToTimeSlots_AlignMinutes(t *testing.T) {
	tr := TimeRange{Start: mustTime(t, 2026, 1, 1, 10, 10), End: mustTime(t, 2026, 1, 1, 11, 40)}

	slots, err := SplitToTimeSlots(tr, 30*time.Minute, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if !slots[0].Start.Equal(mustTime(t, 2026, 1, 1, 10, 30)) {
		t.Fatalf("expected first slot to start at 10:30, got %v", slots[0].Start)
	}
}

func TestSplitToTimeSlots_InvalidDuration(t *testing.T) {
	tr := TimeRange{Start: mustTime(t, 2026, 1, 1, 10, 0), End: mustTime(t, 2026, 1, 1, 11, 0)}
	if _, err := SplitToTimeSlots(tr, 0, 0); err != ErrSlotDuration {
		t.Fatalf("expected ErrSlotDuration, got %v", err)
	}
}

func TestHasOverlap_BackToBackIsNotOverlap(t *testing.T) {
	newRange := TimeRange{Start: mustTime(t, 2026, 1, 1, 10, 0), End: mustTime(t, 2026, 1, 1, 11, 0)}
	existing := []TimeRange{
		{Start: mustTime(t, 2026, 1, 1, 11, 0), End: mustTime(t, 2026, 1, 1, 12, 0)},
	}

	if has, conflicts := HasOverlap(newRange, existing, false); has {
		t.Fatalf("expected no overlap, got conflicts: %+v", conflicts)
	}
	if has, _ := HasOverlap(newRange, existing, true); !has {
		t.Fatalf("expected overlap in inclusive mode")
	}
}

func TestHasOverlap_OverlapFound(t *testing.T) {
	newRange := TimeRange{Start: mustTime(t, 2026, 1, 1, 10, 30), End: mustTime(t, 2026, 1, 1, 11, 30)}
	existing := []TimeRange{
		{Start: mustTime(t, 2026, 1, 1, 9, 0), End: mustTime(t, 2026, 1, 1, 10, 0)},
		{Start: mustTime(t, 2026, 1, 1, 11, 0), End: mustTime(t, 2026, 1, 1, 12, 0)},
	}

	has, conflicts := HasOverlap(newRange, existing, false)
	if !has {
		t.Fatalf("expected overlap, got none")
	}
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}
}

func TestOverlaps_ZeroLengthNeverOverlaps(t *testing.T) {
	at := mustTime(t, 2026, 1, 1, 10, 30)
	zero := TimeRange{Start: at, End: at}
	busy := TimeRange{Start: mustTime(t, 2026, 1, 1, 10, 0), End: mustTime(t, 2026, 1, 1, 11, 0)}

	if zero.Overlaps(busy) || busy.Overlaps(zero) {
		t.Fatalf("zero-length range must not overlap")
	}
}

func TestFormatWindow(t *testing.T) {
	tr := TimeRange{Start: mustTime(t, 2026, 10, 20, 9, 0), End: mustTime(t, 2026, 10, 20, 10, 15)}
	if got, want := FormatWindow(tr, time.UTC), "Tue 20.10.2026, 09:00-10:15"; got != want {
		t.Fatalf("FormatWindow = %q, want %q", got, want)
	}
}

func TestPaginate_Basic(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
	page := Paginate(items, 1, 5)

	if len(page.Items) != 5 {
		t.Fatalf("expected 5 items on page 1, got %d", len(page.Items))
	}
	if page.HasPrev || !page.HasNext {
		t.Fatalf("unexpected prev/next: %+v", page)
	}
	if page.Total != len(items) {
		t.Fatalf("expected Total=%d, got %d", len(items), page.Total)
	}
}

func TestPaginate_LastPage(t *testing.T) {
	page := Paginate([]int{1, 2, 3, 4, 5, 6}, 2, 4)

	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items on last page, got %d", len(page.Items))
	}
	if !page.HasPrev || page.HasNext {
		t.Fatalf("unexpected prev/next: %+v", page)
	}
}

func TestPaginate_Empty(t *testing.T) {
	var items []int
	page := Paginate(items, 1, 10)

	if len(page.Items) != 0 {
		t.Fatalf("expected 0 items, got %d", len(page.Items))
	}
	if page.HasNext || page.HasPrev {
		t.Fatalf("expected no prev/next for empty list")
	}
}
