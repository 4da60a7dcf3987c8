package validate

import (
	"testing"
	"time"

	"deadman/api/model"
)

func minimalCheck() *model.Check {
	return &model.Check{Name: "nightly backup", Period: 86400, Grace: 3600}
}

func TestMinimalValidCheck(t *testing.T) {
	r := Check(minimalCheck())
	if !r.Valid() {
		t.Errorf("expected valid, got %d errors: %+v", r.Errors, r.Findings)
	}
}

func TestPeriodOutOfRange(t *testing.T) {
	for _, p := range []int{0, 59, 604801} {
		c := minimalCheck()
		c.Period = p
		assertHasCheck(t, Check(c), "check.period.range")
	}
}

func TestGraceOutOfRange(t *testing.T) {
	for _, g := range []int{59, 3601} {
		c := minimalCheck()
		c.Grace = g
		assertHasCheck(t, Check(c), "check.grace.range")
	}
}

func TestCronOverridesPeriodAndGrace(t *testing.T) {
	c := minimalCheck()
	c.Period, c.Grace = 0, 0
	c.CronExpression = "  */5 * * * * "
	r := Check(c)
	if !r.Valid() {
		t.Fatalf("expected valid, got %+v", r.Findings)
	}
	if c.Period != 300 || c.Grace != 60 {
		t.Errorf("period=%d grace=%d, want 300/60", c.Period, c.Grace)
	}
	if c.CronExpression != "*/5 * * * *" {
		t.Errorf("expression = %q", c.CronExpression)
	}
	assertHasCheck(t, r, "cron.applied")
}

func TestInvalidCron(t *testing.T) {
	c := minimalCheck()
	c.CronExpression = "60 * * * *"
	assertHasCheck(t, Check(c), "cron.invalid")
}

func TestCronPeriodTooLong(t *testing.T) {
	c := minimalCheck()
	c.CronExpression = "@monthly"
	r := Check(c)
	assertHasCheck(t, r, "cron.period.range")
	if c.Period != 86400 {
		t.Errorf("rejected cron must not coerce period, got %d", c.Period)
	}
}

func TestMaintenanceSchedule(t *testing.T) {
	c := minimalCheck()
	c.MaintSchedule = "weekends:02:00-06:00;mon:01:00-02:00"
	if r := Check(c); !r.Valid() {
		t.Errorf("expected valid, got %+v", r.Findings)
	}

	c.MaintSchedule = "daily:04:00-02:00"
	assertHasCheck(t, Check(c), "maintenance.schedule.invalid")
}

func TestOneTimeWindow(t *testing.T) {
	start := time.Date(2026, 1, 5, 2, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	c := minimalCheck()
	c.MaintStart = &start
	assertHasCheck(t, Check(c), "maintenance.window.partial")

	c.MaintStart, c.MaintEnd = &end, &start
	assertHasCheck(t, Check(c), "maintenance.window.order")
}

func TestEmptyNameWarns(t *testing.T) {
	c := minimalCheck()
	c.Name = "  "
	r := Check(c)
	if !r.Valid() || r.Warnings != 1 {
		t.Errorf("errors=%d warnings=%d", r.Errors, r.Warnings)
	}
	assertHasCheck(t, r, "check.name.empty")
}

func TestTags(t *testing.T) {
	c := minimalCheck()
	c.Tags = []string{"prod", ""}
	assertHasCheck(t, Check(c), "check.tags.format")
}

func TestChannel(t *testing.T) {
	tests := []struct {
		ch    model.Channel
		check string
	}{
		{model.Channel{Kind: model.ChannelEmail, Target: "ops@example.com"}, ""},
		{model.Channel{Kind: model.ChannelWebhook, Target: ""}, "channel.target.required"},
		{model.Channel{Kind: model.ChannelSlack, Target: "not-a-url"}, "channel.target.invalid"},
		{model.Channel{Kind: "sms", Target: "+15550100"}, "channel.target.invalid"},
	}
	for _, tt := range tests {
		r := Channel(&tt.ch)
		if tt.check == "" {
			if !r.Valid() {
				t.Errorf("%+v: expected valid, got %+v", tt.ch, r.Findings)
			}
			continue
		}
		assertHasCheck(t, r, tt.check)
	}
}

func assertHasCheck(t *testing.T, r *model.ValidationResult, check string) {
	t.Helper()
	for _, f := range r.Findings {
		if f.Check == check {
			return
		}
	}
	t.Errorf("expected finding %q, got %+v", check, r.Findings)
}
