package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultSlotMinutes is the consultation slot length used when no override is configured.
const DefaultSlotMinutes = 15

// Slot is one bookable window within a doctor's day.
type Slot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Value     string    `json:"value"`
	Label     string    `json:"label"`
	Available bool      `json:"available"`
}

// Window is a doctor's daily consultation window, e.g. 09:00-17:00.
type Window struct {
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
}

// ParseWindow builds a Window from "HH:MM" start and end clock values.
func ParseWindow(start, end string) (Window, error) {
	sh, sm, err := parseClock(start)
	if err != nil {
		return Window{}, fmt.Errorf("schedule: invalid window start %q: %w", start, err)
	}
	eh, em, err := parseClock(end)
	if err != nil {
		return Window{}, fmt.Errorf("schedule: invalid window end %q: %w", end, err)
	}
	w := Window{StartHour: sh, StartMinute: sm, EndHour: eh, EndMinute: em}
	if !w.valid() {
		return Window{}, fmt.Errorf("schedule: window end %s not after start %s", end, start)
	}
	return w, nil
}

func (w Window) valid() bool {
	return w.EndHour*60+w.EndMinute > w.StartHour*60+w.StartMinute
}

// BuildDayGrid produces the ordered, gap-free slot sequence for one calendar day.
// Availability is decided purely by the supplied taken set; no storage is consulted.
// A trailing window remainder shorter than slotMinutes is not offered.
func BuildDayGrid(date time.Time, w Window, slotMinutes int, taken map[string]bool) ([]Slot, error) {
	if slotMinutes <= 0 {
		return nil, fmt.Errorf("schedule: slot minutes must be positive, got %d", slotMinutes)
	}

	loc := date.Location()
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	cursor := day.Add(time.Duration(w.StartHour)*time.Hour + time.Duration(w.StartMinute)*time.Minute)
	end := day.Add(time.Duration(w.EndHour)*time.Hour + time.Duration(w.EndMinute)*time.Minute)
	step := time.Duration(slotMinutes) * time.Minute

	var slots []Slot
	for !cursor.Add(step).After(end) {
		value := cursor.Format("15:04")
		slots = append(slots, Slot{
			Start:     cursor,
			End:       cursor.Add(step),
			Value:     value,
			Label:     cursor.Format("03:04 PM"),
			Available: !taken[value],
		})
		cursor = cursor.Add(step)
	}
	return slots, nil
}

// NormalizeDate truncates a timestamp to day granularity in its location.
func NormalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ValidSlotValue reports whether value is a canonical "HH:MM" slot label.
func ValidSlotValue(value string) bool {
	_, _, err := parseClock(value)
	return err == nil
}

func parseClock(value string) (hour, minute int, err error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM")
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad hour: %w", err)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad minute: %w", err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("out of range")
	}
	return hour, minute, nil
}
