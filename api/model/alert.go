package model

import "time"

type AlertType string

const (
	AlertDown     AlertType = "down"
	AlertRecovery AlertType = "recovery"
)

type AlertStatus string

const (
	AlertSent   AlertStatus = "sent"
	AlertFailed AlertStatus = "failed"
)

const MaxAlertRetries = 3

// Alert records one delivery attempt per (check, channel) pair per state
// transition. Only the retry subsystem mutates it after insertion.
type Alert struct {
	ID          int64       `json:"id"`
	CheckID     string      `json:"checkId"`
	ChannelID   *string     `json:"channelId,omitempty"`
	Kind        ChannelKind `json:"kind"`
	Target      string      `json:"target"`
	Type        AlertType   `json:"type"`
	Status      AlertStatus `json:"status"`
	Error       *string     `json:"error,omitempty"`
	RetryCount  int         `json:"retryCount"`
	NextRetryAt *time.Time  `json:"nextRetryAt,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Terminal reports whether no further delivery attempts will be made.
func (a *Alert) Terminal() bool {
	return a.Status == AlertSent || a.RetryCount >= MaxAlertRetries || (a.Status == AlertFailed && a.NextRetryAt == nil)
}
