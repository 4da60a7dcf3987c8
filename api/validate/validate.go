package validate

import (
	"fmt"
	"strings"

	"deadman/api/cronexpr"
	"deadman/api/maintenance"
	"deadman/api/model"
	"deadman/api/notify"
)

const (
	maxNameLen = 200
	maxTags    = 20
	maxTagLen  = 50
)

// Check validates a check's owner-editable configuration. When a cron
// expression is present it replaces period and grace with the
// approximator's result, and normalizes the expression.
func Check(c *model.Check) *model.ValidationResult {
	r := &model.ValidationResult{}
	checkName(c, r)
	applyCron(c, r)
	checkSchedule(c, r)
	checkMaintenance(c, r)
	checkTags(c, r)
	return r
}

func checkName(c *model.Check, r *model.ValidationResult) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		r.Add(model.ValidationFinding{
			Check:    "check.name.empty",
			Severity: model.SeverityWarning,
			Message:  "check has no name; alerts will show its id",
			Field:    "name",
		})
	} else if len(c.Name) > maxNameLen {
		r.Add(model.ValidationFinding{
			Check:    "check.name.length",
			Severity: model.SeverityError,
			Message:  fmt.Sprintf("name must be at most %d characters", maxNameLen),
			Field:    "name",
		})
	}
}

func applyCron(c *model.Check, r *model.ValidationResult) {
	c.CronExpression = strings.TrimSpace(c.CronExpression)
	if c.CronExpression == "" {
		return
	}
	res := cronexpr.Approximate(c.CronExpression)
	if !res.Valid {
		r.Add(model.ValidationFinding{
			Check:    "cron.invalid",
			Severity: model.SeverityError,
			Message:  fmt.Sprintf("invalid cron expression %q: %s", c.CronExpression, res.Error),
			Field:    "cronExpression",
		})
		return
	}
	if res.PeriodSeconds < model.MinPeriod || res.PeriodSeconds > model.MaxPeriod {
		r.Add(model.ValidationFinding{
			Check:    "cron.period.range",
			Severity: model.SeverityError,
			Message: fmt.Sprintf("cron expression %q runs about every %ds; supported periods are %d-%d seconds",
				c.CronExpression, res.PeriodSeconds, model.MinPeriod, model.MaxPeriod),
			Field: "cronExpression",
		})
		return
	}
	c.CronExpression = res.NormalizedExpression
	c.Period = res.PeriodSeconds
	c.Grace = res.GraceSeconds
	r.Add(model.ValidationFinding{
		Check:    "cron.applied",
		Severity: model.SeverityInfo,
		Message:  fmt.Sprintf("%s: period %ds, grace %ds", res.Description, res.PeriodSeconds, res.GraceSeconds),
		Field:    "cronExpression",
	})
}

func checkSchedule(c *model.Check, r *model.ValidationResult) {
	if c.Period < model.MinPeriod || c.Period > model.MaxPeriod {
		r.Add(model.ValidationFinding{
			Check:    "check.period.range",
			Severity: model.SeverityError,
			Message:  fmt.Sprintf("period must be between %d and %d seconds, got %d", model.MinPeriod, model.MaxPeriod, c.Period),
			Field:    "period",
		})
	}
	if c.Grace < model.MinGrace || c.Grace > model.MaxGrace {
		r.Add(model.ValidationFinding{
			Check:    "check.grace.range",
			Severity: model.SeverityError,
			Message:  fmt.Sprintf("grace must be between %d and %d seconds, got %d", model.MinGrace, model.MaxGrace, c.Grace),
			Field:    "grace",
		})
	}
}

func checkMaintenance(c *model.Check, r *model.ValidationResult) {
	c.MaintSchedule = strings.TrimSpace(c.MaintSchedule)
	if c.MaintSchedule != "" {
		if _, err := maintenance.ParseSchedule(c.MaintSchedule); err != nil {
			r.Add(model.ValidationFinding{
				Check:    "maintenance.schedule.invalid",
				Severity: model.SeverityError,
				Message:  err.Error(),
				Field:    "maintSchedule",
			})
		}
	}

	switch {
	case (c.MaintStart == nil) != (c.MaintEnd == nil):
		r.Add(model.ValidationFinding{
			Check:    "maintenance.window.partial",
			Severity: model.SeverityError,
			Message:  "maintStart and maintEnd must be set together",
			Field:    "maintEnd",
		})
	case c.MaintStart != nil && !c.MaintEnd.After(*c.MaintStart):
		r.Add(model.ValidationFinding{
			Check:    "maintenance.window.order",
			Severity: model.SeverityError,
			Message:  "maintEnd must be after maintStart",
			Field:    "maintEnd",
		})
	}
}

func checkTags(c *model.Check, r *model.ValidationResult) {
	if len(c.Tags) > maxTags {
		r.Add(model.ValidationFinding{
			Check:    "check.tags.count",
			Severity: model.SeverityError,
			Message:  fmt.Sprintf("at most %d tags are allowed", maxTags),
			Field:    "tags",
		})
	}
	for _, tag := range c.Tags {
		if tag == "" || len(tag) > maxTagLen {
			r.Add(model.ValidationFinding{
				Check:    "check.tags.format",
				Severity: model.SeverityError,
				Message:  fmt.Sprintf("tag %q must be 1-%d characters", tag, maxTagLen),
				Field:    "tags",
			})
		}
	}
}

// Channel validates a notification channel's kind and target.
func Channel(ch *model.Channel) *model.ValidationResult {
	r := &model.ValidationResult{}
	ch.Target = strings.TrimSpace(ch.Target)
	if ch.Target == "" {
		r.Add(model.ValidationFinding{
			Check:    "channel.target.required",
			Severity: model.SeverityError,
			Message:  "target is required",
			Field:    "target",
		})
		return r
	}
	if _, err := notify.ParseTarget(ch.Kind, ch.Target, ""); err != nil {
		r.Add(model.ValidationFinding{
			Check:    "channel.target.invalid",
			Severity: model.SeverityError,
			Message:  err.Error(),
			Field:    "target",
		})
	}
	return r
}
