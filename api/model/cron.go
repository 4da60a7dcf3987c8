package model

// CronResult is the approximation of a cron schedule as a period/grace pair.
type CronResult struct {
	Valid                bool   `json:"valid"`
	PeriodSeconds        int    `json:"periodSeconds,omitempty"`
	GraceSeconds         int    `json:"graceSeconds,omitempty"`
	Description          string `json:"description,omitempty"`
	NormalizedExpression string `json:"normalizedExpression,omitempty"`
	Error                string `json:"error,omitempty"`
}
