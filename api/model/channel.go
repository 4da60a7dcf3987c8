package model

import "time"

type ChannelKind string

const (
	ChannelEmail   ChannelKind = "email"
	ChannelWebhook ChannelKind = "webhook"
	ChannelSlack   ChannelKind = "slack"
)

type Channel struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	Kind      ChannelKind `json:"kind"`
	Target    string      `json:"target"`
	IsDefault bool        `json:"isDefault"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Account is the subset of the owning account the engine needs: where to
// fall back to when no channel resolves and how to sign outbound webhooks.
type Account struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	SigningSecret string `json:"-"`
}
