package cronexpr

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"deadman/api/model"
)

const (
	minute = 60
	hour   = 60 * minute
	day    = 24 * hour
	week   = 7 * day
	month  = 30 * day
	year   = 365 * day
)

const (
	maxSimulatedMinutes = 400000
	maxSimulatedRuns    = 10
)

// simulationStart is a fixed Monday so simulated gaps are reproducible.
var simulationStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

var weekdayNames = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
var monthNames = []string{"", "Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Approximate parses expr and returns its approximate run period, a
// suggested grace and a human description.
func Approximate(expr string) model.CronResult {
	s, err := Parse(expr)
	if err != nil {
		return model.CronResult{Valid: false, Error: err.Error()}
	}
	period, desc := s.Period()
	return model.CronResult{
		Valid:                true,
		PeriodSeconds:        period,
		GraceSeconds:         SuggestedGrace(period),
		Description:          desc,
		NormalizedExpression: s.Expr,
	}
}

// SuggestedGrace is 20% of the period clamped to [60, 3600] seconds.
func SuggestedGrace(period int) int {
	g := period / 5
	if g < model.MinGrace {
		return model.MinGrace
	}
	if g > model.MaxGrace {
		return model.MaxGrace
	}
	return g
}

// Period returns the approximate seconds between runs. Common shapes are
// computed directly; everything else is simulated.
func (s *Schedule) Period() (int, string) {
	if p, desc, ok := s.closedForm(); ok {
		return p, desc
	}
	p := s.simulate()
	return p, "Custom schedule, runs about every " + formatSeconds(p)
}

func (s *Schedule) closedForm() (int, string, bool) {
	openDays := s.domAll() && s.monthAll() && s.weekdayAll()
	oneMinute := len(s.Minutes) == 1
	oneHour := len(s.Hours) == 1
	at := ""
	if oneMinute && oneHour {
		at = fmt.Sprintf("%02d:%02d", s.Hours[0], s.Minutes[0])
	}

	switch {
	// every N minutes / several times per hour
	case openDays && s.hourAll() && len(s.Minutes) > 1:
		if gap, ok := evenGap(s.Minutes, minuteField.size()); ok {
			if gap == 1 {
				return minute, "Every minute", true
			}
			return gap * minute, fmt.Sprintf("Every %d minutes", gap), true
		}
		gap := median(cyclicGaps(s.Minutes, minuteField.size()))
		return gap * minute, fmt.Sprintf("%d times per hour at minutes %s", len(s.Minutes), joinInts(s.Minutes)), true

	// every N hours
	case openDays && oneMinute && len(s.Hours) > 1:
		gap, ok := evenGap(s.Hours, hourField.size())
		if !ok {
			return 0, "", false
		}
		if gap == 1 {
			return hour, fmt.Sprintf("Every hour at minute %d", s.Minutes[0]), true
		}
		return gap * hour, fmt.Sprintf("Every %d hours at minute %d", gap, s.Minutes[0]), true

	// once daily
	case openDays && oneMinute && oneHour:
		return day, "Daily at " + at, true

	// once weekly / N times weekly
	case s.domAll() && s.monthAll() && !s.weekdayAll() && oneMinute && oneHour:
		if len(s.Weekdays) == 1 {
			return week, fmt.Sprintf("Weekly on %s at %s", weekdayNames[s.Weekdays[0]], at), true
		}
		gap := median(cyclicGaps(s.Weekdays, dowField.size()))
		return gap * day, fmt.Sprintf("At %s on %s", at, joinWeekdays(s.Weekdays)), true

	// once monthly
	case len(s.Days) == 1 && s.monthAll() && s.weekdayAll() && oneMinute && oneHour:
		return month, fmt.Sprintf("Monthly on day %d at %s", s.Days[0], at), true

	// once yearly
	case len(s.Days) == 1 && len(s.Months) == 1 && s.weekdayAll() && oneMinute && oneHour:
		return year, fmt.Sprintf("Yearly on %s %d at %s", monthNames[s.Months[0]], s.Days[0], at), true
	}
	return 0, "", false
}

// simulate walks forward minute by minute from a fixed instant and returns
// the median gap between the first runs it finds.
func (s *Schedule) simulate() int {
	var runs []time.Time
	t := simulationStart
	for i := 0; i < maxSimulatedMinutes && len(runs) < maxSimulatedRuns; i++ {
		if s.Matches(t) {
			runs = append(runs, t)
		}
		t = t.Add(time.Minute)
	}
	if len(runs) < 2 {
		return day
	}

	gaps := make([]int, 0, len(runs)-1)
	for i := 1; i < len(runs); i++ {
		gaps = append(gaps, int(runs[i].Sub(runs[i-1])/time.Second))
	}
	return median(gaps)
}

// Matches reports whether the schedule fires at the minute containing t (UTC).
func (s *Schedule) Matches(t time.Time) bool {
	t = t.UTC()
	return s.minutes.has(t.Minute()) &&
		s.hours.has(t.Hour()) &&
		s.months.has(int(t.Month())) &&
		s.dayMatches(t)
}

// dayMatches applies cron's day rule: when both day-of-month and
// day-of-week are restricted, either one matching is enough; when only one
// is restricted, only that one is checked.
func (s *Schedule) dayMatches(t time.Time) bool {
	domRestricted := !s.domAll()
	dowRestricted := !s.weekdayAll()
	domOK := s.days.has(t.Day())
	dowOK := s.weekdays.has(int(t.Weekday()))

	switch {
	case domRestricted && dowRestricted:
		return domOK || dowOK
	case domRestricted:
		return domOK
	case dowRestricted:
		return dowOK
	default:
		return true
	}
}

// evenGap reports the common step of a sorted value list whose spacing is
// uniform including the wrap-around into the next cycle.
func evenGap(values []int, cycle int) (int, bool) {
	if len(values) < 2 {
		return 0, false
	}
	gap := values[1] - values[0]
	for i := 2; i < len(values); i++ {
		if values[i]-values[i-1] != gap {
			return 0, false
		}
	}
	if values[0]+cycle-values[len(values)-1] != gap {
		return 0, false
	}
	return gap, true
}

func cyclicGaps(values []int, cycle int) []int {
	gaps := make([]int, 0, len(values))
	for i := 1; i < len(values); i++ {
		gaps = append(gaps, values[i]-values[i-1])
	}
	return append(gaps, values[0]+cycle-values[len(values)-1])
}

func median(values []int) int {
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ",")
}

func joinWeekdays(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = weekdayNames[v][:3]
	}
	return strings.Join(parts, ", ")
}

func formatSeconds(sec int) string {
	switch {
	case sec%day == 0:
		return plural(sec/day, "day")
	case sec%hour == 0:
		return plural(sec/hour, "hour")
	case sec%minute == 0:
		return plural(sec/minute, "minute")
	default:
		return plural(sec, "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
