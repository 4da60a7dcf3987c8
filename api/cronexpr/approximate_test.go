package cronexpr

import (
	"strings"
	"testing"
	"time"
)

func TestApproximatePeriods(t *testing.T) {
	tests := []struct {
		expr   string
		period int
	}{
		{"* * * * *", 60},
		{"*/5 * * * *", 300},
		{"*/15 * * * *", 900},
		{"0,30 * * * *", 1800},
		{"0 * * * *", 3600},
		{"@hourly", 3600},
		{"0 */6 * * *", 21600},
		{"0 0 * * *", 86400},
		{"@daily", 86400},
		{"@midnight", 86400},
		{"30 2 * * *", 86400},
		{"0 9 * * 1-5", 86400},
		{"0 9 * * mon-fri", 86400},
		{"0 0 * * 0", 604800},
		{"@weekly", 604800},
		{"0 0 1 * *", 2592000},
		{"@monthly", 2592000},
		{"0 0 1 1 *", 31536000},
		{"@yearly", 31536000},
		{"*/5 9-17 * * *", 300},
		{"0 9,17 * * *", 28800},
		{"0 */5 * * *", 18000},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			r := Approximate(tt.expr)
			if !r.Valid {
				t.Fatalf("Approximate(%q) invalid: %s", tt.expr, r.Error)
			}
			if r.PeriodSeconds != tt.period {
				t.Errorf("PeriodSeconds = %d, want %d (%s)", r.PeriodSeconds, tt.period, r.Description)
			}
		})
	}
}

func TestApproximateInvalid(t *testing.T) {
	for _, expr := range []string{
		"",
		"60 * * * *",
		"* 24 * * *",
		"* * 0 * *",
		"* * 32 * *",
		"* * * 13 *",
		"* * * * 7",
		"*/0 * * * *",
		"5-1 * * * *",
		"* * * *",
		"* * * * * *",
		"a * * * *",
		"1,,2 * * * *",
		"@fortnightly",
	} {
		r := Approximate(expr)
		if r.Valid {
			t.Errorf("Approximate(%q) should be invalid, got period %d", expr, r.PeriodSeconds)
		}
		if r.Error == "" {
			t.Errorf("Approximate(%q) missing error message", expr)
		}
	}
}

func TestNormalizedExpression(t *testing.T) {
	tests := map[string]string{
		"@daily":            "0 0 * * *",
		"@WEEKLY":           "0 0 * * 0",
		"  */5   *  * * * ": "*/5 * * * *",
		"0 9 * * 1-5":       "0 9 * * 1-5",
	}
	for in, want := range tests {
		r := Approximate(in)
		if r.NormalizedExpression != want {
			t.Errorf("Approximate(%q).NormalizedExpression = %q, want %q", in, r.NormalizedExpression, want)
		}
	}
}

func TestSuggestedGrace(t *testing.T) {
	tests := []struct{ period, grace int }{
		{60, 60},
		{300, 60},
		{1800, 360},
		{3600, 720},
		{86400, 3600},
		{604800, 3600},
	}
	for _, tt := range tests {
		if got := SuggestedGrace(tt.period); got != tt.grace {
			t.Errorf("SuggestedGrace(%d) = %d, want %d", tt.period, got, tt.grace)
		}
	}
}

func TestDescriptions(t *testing.T) {
	tests := map[string]string{
		"*/5 * * * *": "Every 5 minutes",
		"0 * * * *":   "Every hour at minute 0",
		"30 2 * * *":  "Daily at 02:30",
		"0 9 * * 1-5": "At 09:00 on Mon, Tue, Wed, Thu, Fri",
		"0 0 * * 0":   "Weekly on Sunday at 00:00",
		"0 0 1 1 *":   "Yearly on Jan 1 at 00:00",
	}
	for expr, want := range tests {
		if got := Approximate(expr).Description; got != want {
			t.Errorf("Description(%q) = %q, want %q", expr, got, want)
		}
	}

	if got := Approximate("*/5 9-17 * * *").Description; !strings.HasPrefix(got, "Custom schedule") {
		t.Errorf("simulated description = %q", got)
	}
}

func TestExpandField(t *testing.T) {
	tests := []struct {
		tok  string
		f    fieldSpec
		want []int
	}{
		{"*/20", minuteField, []int{0, 20, 40}},
		{"10-20/5", minuteField, []int{10, 15, 20}},
		{"50/5", minuteField, []int{50, 55}},
		{"1,3,5", hourField, []int{1, 3, 5}},
		{"3,1,1", hourField, []int{1, 3}},
		{"jan,MAR", monthField, []int{1, 3}},
		{"sat-sun", dowField, nil},
	}
	for _, tt := range tests {
		got, _, err := expandField(tt.tok, tt.f)
		if tt.want == nil {
			if err == nil {
				t.Errorf("expandField(%q) should fail (reversed range), got %v", tt.tok, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("expandField(%q): %v", tt.tok, err)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("expandField(%q) = %v, want %v", tt.tok, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("expandField(%q) = %v, want %v", tt.tok, got, tt.want)
				break
			}
		}
	}
}

func TestDayMatchesEitherWhenBothRestricted(t *testing.T) {
	s, err := Parse("0 0 13 * 5")
	if err != nil {
		t.Fatal(err)
	}

	friday := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)      // Friday the 5th
	saturday13 := time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC) // Saturday the 13th
	saturday := time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)

	if !s.dayMatches(friday) {
		t.Error("Friday should match on day-of-week alone")
	}
	if !s.dayMatches(saturday13) {
		t.Error("the 13th should match on day-of-month alone")
	}
	if s.dayMatches(saturday) {
		t.Error("Saturday the 6th matches neither field")
	}
}

func TestDayMatchesOnlyRestrictedField(t *testing.T) {
	dom, _ := Parse("0 0 13 * *")
	if dom.dayMatches(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)) {
		t.Error("unrestricted day-of-week must not widen a day-of-month schedule")
	}
	if !dom.dayMatches(time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC)) {
		t.Error("the 13th should match")
	}

	dow, _ := Parse("0 0 * * 5")
	if dow.dayMatches(time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC)) {
		t.Error("unrestricted day-of-month must not widen a day-of-week schedule")
	}
}

func TestSimulationUsesOrSemantics(t *testing.T) {
	// 1st of the month or any Monday: mostly weekly runs.
	r := Approximate("0 0 1 * 1")
	if !r.Valid {
		t.Fatal(r.Error)
	}
	if r.PeriodSeconds != 604800 {
		t.Errorf("PeriodSeconds = %d, want 604800", r.PeriodSeconds)
	}
}

func TestSimulationFallsBackToOneDay(t *testing.T) {
	never := &Schedule{}
	if got := never.simulate(); got != day {
		t.Errorf("simulate() with no runs = %d, want %d", got, day)
	}
}

func TestMedian(t *testing.T) {
	if got := median([]int{3, 1, 2}); got != 2 {
		t.Errorf("median odd = %d", got)
	}
	if got := median([]int{5, 55}); got != 30 {
		t.Errorf("median even = %d", got)
	}
}
