// Package maintenance decides whether alerting for a check is suppressed.
package maintenance

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"deadman/api/model"
)

var dayAbbrev = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Window is one recurring UTC window: a weekday set and a [Start, End)
// time-of-day range in minutes since midnight.
type Window struct {
	Days  [7]bool
	Start int
	End   int
}

// ParseWindow parses "<days>:<HH:MM>-<HH:MM>" where days is daily,
// weekdays, weekends or a comma list of three-letter day names. The end may
// be 24:00. Windows that end at or before their start are rejected; an
// overnight span is written as two windows.
func ParseWindow(s string) (Window, error) {
	var w Window
	daysPart, timePart, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return w, fmt.Errorf("maintenance window %q: missing ':' after days", s)
	}

	switch d := strings.ToLower(strings.TrimSpace(daysPart)); d {
	case "daily":
		for i := range w.Days {
			w.Days[i] = true
		}
	case "weekdays":
		for i := time.Monday; i <= time.Friday; i++ {
			w.Days[i] = true
		}
	case "weekends":
		w.Days[time.Saturday] = true
		w.Days[time.Sunday] = true
	default:
		for _, name := range strings.Split(d, ",") {
			wd, ok := dayAbbrev[strings.TrimSpace(name)]
			if !ok {
				return w, fmt.Errorf("maintenance window %q: unknown day %q", s, name)
			}
			w.Days[wd] = true
		}
	}

	startStr, endStr, ok := strings.Cut(timePart, "-")
	if !ok {
		return w, fmt.Errorf("maintenance window %q: expected HH:MM-HH:MM", s)
	}
	var err error
	if w.Start, err = parseClock(startStr, false); err != nil {
		return w, fmt.Errorf("maintenance window %q: %w", s, err)
	}
	if w.End, err = parseClock(endStr, true); err != nil {
		return w, fmt.Errorf("maintenance window %q: %w", s, err)
	}
	if w.End <= w.Start {
		return w, fmt.Errorf("maintenance window %q: end must be after start", s)
	}
	return w, nil
}

const endOfDay = 24 * 60

// parseClock returns minutes since midnight. 24:00 is accepted only as an
// end time so a window can run to midnight.
func parseClock(s string, end bool) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err == nil && h == 24 && mm == "00" && end {
		return endOfDay, nil
	}
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// Contains reports whether t (converted to UTC) falls inside the window.
func (w Window) Contains(t time.Time) bool {
	t = t.UTC()
	if !w.Days[t.Weekday()] {
		return false
	}
	m := t.Hour()*60 + t.Minute()
	return m >= w.Start && m < w.End
}

// ParseSchedule parses one or more windows separated by ';'.
func ParseSchedule(schedule string) ([]Window, error) {
	var windows []Window
	for _, part := range strings.Split(schedule, ";") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		w, err := ParseWindow(part)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, nil
}

// InSchedule reports whether t is inside any window of schedule. Invalid
// schedules never suppress.
func InSchedule(schedule string, t time.Time) bool {
	windows, err := ParseSchedule(schedule)
	if err != nil {
		return false
	}
	for _, w := range windows {
		if w.Contains(t) {
			return true
		}
	}
	return false
}

// Suppressed ORs the check's one-time window with its recurring schedule.
func Suppressed(c *model.Check, t time.Time) bool {
	if c.InOneTimeMaintenance(t) {
		return true
	}
	return c.MaintSchedule != "" && InSchedule(c.MaintSchedule, t)
}
