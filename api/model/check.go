package model

import "time"

type CheckStatus string

const (
	CheckNew    CheckStatus = "new"
	CheckUp     CheckStatus = "up"
	CheckDown   CheckStatus = "down"
	CheckPaused CheckStatus = "paused"
)

const (
	MinPeriod = 60
	MaxPeriod = 604800
	MinGrace  = 60
	MaxGrace  = 3600
)

// Check is a monitored job and its expected-heartbeat configuration.
// NextExpectedAt is only ever derived from LastPingAt + Period by ping ingestion.
type Check struct {
	ID             string      `json:"id"`
	UserID         string      `json:"userId"`
	Name           string      `json:"name"`
	Period         int         `json:"period"`
	Grace          int         `json:"grace"`
	CronExpression string      `json:"cronExpression,omitempty"`
	Status         CheckStatus `json:"status"`
	LastPingAt     *time.Time  `json:"lastPingAt,omitempty"`
	NextExpectedAt *time.Time  `json:"nextExpectedAt,omitempty"`
	PingCount      int64       `json:"pingCount"`
	AlertCount     int64       `json:"alertCount"`
	LastAlertAt    *time.Time  `json:"lastAlertAt,omitempty"`
	Tags           []string    `json:"tags"`
	GroupName      string      `json:"groupName,omitempty"`
	MaintStart     *time.Time  `json:"maintStart,omitempty"`
	MaintEnd       *time.Time  `json:"maintEnd,omitempty"`
	MaintSchedule  string      `json:"maintSchedule,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// Deadline is the instant after which the check is overdue, or nil when
// the check has never been pinged.
func (c *Check) Deadline() *time.Time {
	if c.NextExpectedAt == nil {
		return nil
	}
	d := c.NextExpectedAt.Add(time.Duration(c.Grace) * time.Second)
	return &d
}

// InOneTimeMaintenance reports whether t falls inside the check's one-time
// [MaintStart, MaintEnd] window.
func (c *Check) InOneTimeMaintenance(t time.Time) bool {
	if c.MaintStart == nil || c.MaintEnd == nil {
		return false
	}
	return !t.Before(*c.MaintStart) && !t.After(*c.MaintEnd)
}

// CheckConfig is the short-lived projection of a check kept in the fast cache.
type CheckConfig struct {
	ID     string      `json:"id"`
	UserID string      `json:"userId"`
	Period int         `json:"period"`
	Grace  int         `json:"grace"`
	Status CheckStatus `json:"status"`
}

func (c *Check) Config() CheckConfig {
	return CheckConfig{
		ID:     c.ID,
		UserID: c.UserID,
		Period: c.Period,
		Grace:  c.Grace,
		Status: c.Status,
	}
}
