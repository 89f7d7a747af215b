package schedule

import (
	"testing"
	"time"
)

func mustWindow(t *testing.T, start, end string) Window {
	t.Helper()
	w, err := ParseWindow(start, end)
	if err != nil {
		t.Fatalf("ParseWindow(%s, %s): %v", start, end, err)
	}
	return w
}

func TestBuildDayGridCoversWindowWithoutGaps(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	w := mustWindow(t, "09:00", "17:00")

	slots, err := BuildDayGrid(date, w, 15, nil)
	if err != nil {
		t.Fatalf("BuildDayGrid: %v", err)
	}

	if len(slots) != 32 {
		t.Fatalf("expected 32 fifteen-minute slots between 09:00 and 17:00, got %d", len(slots))
	}
	if slots[0].Value != "09:00" {
		t.Fatalf("expected first slot 09:00, got %s", slots[0].Value)
	}
	if slots[len(slots)-1].Value != "16:45" {
		t.Fatalf("expected last slot 16:45, got %s", slots[len(slots)-1].Value)
	}
	for i := 1; i < len(slots); i++ {
		if !slots[i].Start.Equal(slots[i-1].End) {
			t.Fatalf("gap between slot %d and %d", i-1, i)
		}
	}
	for _, s := range slots {
		if !s.Available {
			t.Fatalf("slot %s unexpectedly unavailable with empty taken set", s.Value)
		}
	}
}

func TestBuildDayGridDropsPartialTrailingSlot(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	w := mustWindow(t, "09:00", "10:10")

	slots, err := BuildDayGrid(date, w, 15, nil)
	if err != nil {
		t.Fatalf("BuildDayGrid: %v", err)
	}
	// 09:00..10:10 fits four full 15-minute slots; the 10-minute remainder is dropped.
	if len(slots) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(slots))
	}
	if got := slots[len(slots)-1].Value; got != "09:45" {
		t.Fatalf("expected final slot 09:45, got %s", got)
	}
}

func TestBuildDayGridMarksTakenSlots(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	w := mustWindow(t, "09:00", "10:00")

	taken := map[string]bool{"09:15": true, "09:45": true}
	slots, err := BuildDayGrid(date, w, 15, taken)
	if err != nil {
		t.Fatalf("BuildDayGrid: %v", err)
	}

	want := map[string]bool{"09:00": true, "09:15": false, "09:30": true, "09:45": false}
	for _, s := range slots {
		if s.Available != want[s.Value] {
			t.Fatalf("slot %s availability = %v, want %v", s.Value, s.Available, want[s.Value])
		}
	}
}

func TestBuildDayGridDisplayLabels(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	w := mustWindow(t, "14:00", "14:30")

	slots, err := BuildDayGrid(date, w, 30, nil)
	if err != nil {
		t.Fatalf("BuildDayGrid: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("expected a single slot, got %d", len(slots))
	}
	if slots[0].Value != "14:00" || slots[0].Label != "02:00 PM" {
		t.Fatalf("unexpected labels value=%s label=%s", slots[0].Value, slots[0].Label)
	}
}

func TestBuildDayGridRejectsBadDuration(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	w := mustWindow(t, "09:00", "17:00")
	if _, err := BuildDayGrid(date, w, 0, nil); err == nil {
		t.Fatal("expected error for zero slot duration")
	}
}

func TestParseWindowRejectsInvertedWindow(t *testing.T) {
	if _, err := ParseWindow("17:00", "09:00"); err == nil {
		t.Fatal("expected error for inverted window")
	}
}

func TestValidSlotValue(t *testing.T) {
	cases := map[string]bool{
		"09:00": true,
		"23:59": true,
		"24:00": false,
		"9am":   false,
		"":      false,
	}
	for value, want := range cases {
		if got := ValidSlotValue(value); got != want {
			t.Fatalf("ValidSlotValue(%q) = %v, want %v", value, got, want)
		}
	}
}
