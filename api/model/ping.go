package model

import "time"

type PingType string

const (
	PingSuccess PingType = "success"
	PingStart   PingType = "start"
	PingFail    PingType = "fail"
)

// Ping is an append-only liveness signal recorded against a check.
type Ping struct {
	ID         int64     `json:"id"`
	CheckID    string    `json:"checkId"`
	Type       PingType  `json:"type"`
	SourceIP   string    `json:"sourceIp"`
	DurationMs *int64    `json:"durationMs,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Signal is an inbound ping as seen by the HTTP edge, before any lookup.
type Signal struct {
	CheckID   string
	Type      PingType
	Timestamp time.Time
	SourceIP  string
}
