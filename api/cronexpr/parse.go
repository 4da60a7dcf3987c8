// Package cronexpr turns 5-field cron schedules into an expected
// period/grace pair for heartbeat checks.
package cronexpr

import (
	"fmt"
	"strconv"
	"strings"
)

type fieldSpec struct {
	name  string
	min   int
	max   int
	names map[string]int
}

var (
	minuteField = fieldSpec{name: "minute", min: 0, max: 59}
	hourField   = fieldSpec{name: "hour", min: 0, max: 23}
	domField    = fieldSpec{name: "day-of-month", min: 1, max: 31}
	monthField  = fieldSpec{name: "month", min: 1, max: 12, names: map[string]int{
		"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
		"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
	}}
	dowField = fieldSpec{name: "day-of-week", min: 0, max: 6, names: map[string]int{
		"sun": 0, "mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6,
	}}
)

var aliases = map[string]string{
	"@hourly":   "0 * * * *",
	"@daily":    "0 0 * * *",
	"@midnight": "0 0 * * *",
	"@weekly":   "0 0 * * 0",
	"@monthly":  "0 0 1 * *",
	"@yearly":   "0 0 1 1 *",
	"@annually": "0 0 1 1 *",
}

// bitset holds the legal values of one field; every domain fits in 64 bits.
type bitset uint64

func (b bitset) has(v int) bool { return b&(1<<uint(v)) != 0 }

// Schedule is a cron expression expanded to explicit value sets.
type Schedule struct {
	Expr     string
	Minutes  []int
	Hours    []int
	Days     []int
	Months   []int
	Weekdays []int

	minutes, hours, days, months, weekdays bitset
}

// Parse expands expr, which is either a named alias or five
// whitespace-separated fields. Any malformed or out-of-range token
// invalidates the whole expression.
func Parse(expr string) (*Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("expression is empty")
	}
	if strings.HasPrefix(expr, "@") {
		expanded, ok := aliases[strings.ToLower(expr)]
		if !ok {
			return nil, fmt.Errorf("unknown alias %q", expr)
		}
		expr = expanded
	}

	tokens := strings.Fields(expr)
	if len(tokens) != 5 {
		return nil, fmt.Errorf("expected 5 fields, got %d", len(tokens))
	}

	s := &Schedule{Expr: strings.Join(tokens, " ")}
	var err error
	if s.Minutes, s.minutes, err = expandField(tokens[0], minuteField); err != nil {
		return nil, err
	}
	if s.Hours, s.hours, err = expandField(tokens[1], hourField); err != nil {
		return nil, err
	}
	if s.Days, s.days, err = expandField(tokens[2], domField); err != nil {
		return nil, err
	}
	if s.Months, s.months, err = expandField(tokens[3], monthField); err != nil {
		return nil, err
	}
	if s.Weekdays, s.weekdays, err = expandField(tokens[4], dowField); err != nil {
		return nil, err
	}
	return s, nil
}

func expandField(tok string, f fieldSpec) ([]int, bitset, error) {
	var set bitset
	for _, part := range strings.Split(tok, ",") {
		if part == "" {
			return nil, 0, fmt.Errorf("%s: empty list element in %q", f.name, tok)
		}

		rangePart, stepPart, hasStep := strings.Cut(part, "/")
		step := 1
		if hasStep {
			n, err := strconv.Atoi(stepPart)
			if err != nil || n <= 0 {
				return nil, 0, fmt.Errorf("%s: invalid step %q", f.name, stepPart)
			}
			step = n
		}

		var lo, hi int
		switch {
		case rangePart == "*":
			lo, hi = f.min, f.max
		case strings.Contains(rangePart, "-"):
			a, b, _ := strings.Cut(rangePart, "-")
			var err error
			if lo, err = f.value(a); err != nil {
				return nil, 0, err
			}
			if hi, err = f.value(b); err != nil {
				return nil, 0, err
			}
			if lo > hi {
				return nil, 0, fmt.Errorf("%s: range %q is reversed", f.name, rangePart)
			}
		default:
			v, err := f.value(rangePart)
			if err != nil {
				return nil, 0, err
			}
			lo, hi = v, v
			if hasStep {
				hi = f.max
			}
		}

		for v := lo; v <= hi; v += step {
			set |= 1 << uint(v)
		}
	}

	var values []int
	for v := f.min; v <= f.max; v++ {
		if set.has(v) {
			values = append(values, v)
		}
	}
	return values, set, nil
}

func (f fieldSpec) value(tok string) (int, error) {
	if f.names != nil {
		if v, ok := f.names[strings.ToLower(tok)]; ok {
			return v, nil
		}
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid value %q", f.name, tok)
	}
	if v < f.min || v > f.max {
		return 0, fmt.Errorf("%s: value %d out of range %d-%d", f.name, v, f.min, f.max)
	}
	return v, nil
}

func (f fieldSpec) size() int { return f.max - f.min + 1 }

func (s *Schedule) minuteAll() bool  { return len(s.Minutes) == minuteField.size() }
func (s *Schedule) hourAll() bool    { return len(s.Hours) == hourField.size() }
func (s *Schedule) domAll() bool     { return len(s.Days) == domField.size() }
func (s *Schedule) monthAll() bool   { return len(s.Months) == monthField.size() }
func (s *Schedule) weekdayAll() bool { return len(s.Weekdays) == dowField.size() }
