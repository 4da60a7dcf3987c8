package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"deadman/api/hub"
	"deadman/api/model"
	"deadman/api/signing"
	"deadman/api/store"
)

// FirstRetryDelay is when a failed webhook or slack delivery is first retried.
const FirstRetryDelay = 30 * time.Second

type Store interface {
	InsertAlert(ctx context.Context, a *model.Alert) error
	ResolveChannels(ctx context.Context, checkID, userID string) ([]model.Channel, error)
	GetAccount(ctx context.Context, id string) (*model.Account, error)
}

type Broadcaster interface {
	Broadcast(evt hub.Event)
}

type Dispatcher struct {
	Store     Store
	Mailer    Mailer
	HTTP      *http.Client
	Hub       Broadcaster
	Log       *zap.Logger
	PublicURL string
	// Timeout bounds each delivery, whatever the channel kind.
	Timeout time.Duration
	Now     func() time.Time
}

func NewDispatcher(st Store, mailer Mailer, timeout time.Duration, bc Broadcaster, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		Store:  st,
		Mailer: mailer,
		HTTP:    &http.Client{Timeout: timeout},
		Hub:     bc,
		Log:     log,
		Timeout: timeout,
		Now:     time.Now,
	}
}

// Notify announces a transition on every channel the check resolves to,
// falling back to the owner's email when none do. One channel failing
// does not stop the others; only resolution errors are returned.
func (d *Dispatcher) Notify(ctx context.Context, check model.Check, typ model.AlertType) error {
	var secret, email string
	acct, err := d.Store.GetAccount(ctx, check.UserID)
	switch {
	case err == nil:
		secret, email = acct.SigningSecret, acct.Email
	case errors.Is(err, store.ErrNotFound):
	default:
		return fmt.Errorf("load account %s: %w", check.UserID, err)
	}

	channels, err := d.Store.ResolveChannels(ctx, check.ID, check.UserID)
	if err != nil {
		return fmt.Errorf("resolve channels for %s: %w", check.ID, err)
	}
	if len(channels) == 0 {
		if email == "" {
			d.Log.Warn("notify: no channels and no account email", zap.String("check_id", check.ID))
			return nil
		}
		channels = []model.Channel{{UserID: check.UserID, Kind: model.ChannelEmail, Target: email}}
	}

	for _, ch := range channels {
		if _, err := d.Dispatch(ctx, check, ch, secret, typ); err != nil {
			d.Log.Error("notify: dispatch failed",
				zap.String("check_id", check.ID),
				zap.String("channel_id", ch.ID),
				zap.String("kind", string(ch.Kind)),
				zap.Error(err),
			)
		}
	}
	return nil
}

// Dispatch delivers one message to one channel and records the attempt.
// A delivery failure is recorded on the alert, not returned; the error is
// reserved for failing to record it.
func (d *Dispatcher) Dispatch(ctx context.Context, check model.Check, ch model.Channel, secret string, typ model.AlertType) (*model.Alert, error) {
	now := d.Now()
	alert := &model.Alert{
		CheckID: check.ID,
		Kind:    ch.Kind,
		Target:  ch.Target,
		Type:    typ,
	}
	if ch.ID != "" {
		id := ch.ID
		alert.ChannelID = &id
	}

	var deliveryErr error
	target, err := ParseTarget(ch.Kind, ch.Target, secret)
	if err != nil {
		deliveryErr = err
	} else {
		deliveryErr = d.Deliver(ctx, target, Event{Type: typ, Check: check, At: now})
	}

	if deliveryErr == nil {
		alert.Status = model.AlertSent
	} else {
		msg := deliveryErr.Error()
		alert.Status = model.AlertFailed
		alert.Error = &msg
		if target != nil && retryable(target) {
			next := now.Add(FirstRetryDelay)
			alert.NextRetryAt = &next
		}
	}

	if err := d.Store.InsertAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("record alert: %w", err)
	}
	d.announce(alert)
	return alert, nil
}

func (d *Dispatcher) announce(a *model.Alert) {
	if d.Hub == nil {
		return
	}
	typ := hub.EventAlertSent
	if a.Status == model.AlertFailed {
		typ = hub.EventAlertFailed
	}
	d.Hub.Broadcast(hub.Event{Type: typ, CheckID: a.CheckID, Payload: a})
}

func retryable(t Target) bool {
	switch t.(type) {
	case WebhookTarget, SlackTarget:
		return true
	default:
		return false
	}
}

// Deliver formats and sends a single message.
func (d *Dispatcher) Deliver(ctx context.Context, target Target, evt Event) error {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}
	switch t := target.(type) {
	case EmailTarget:
		if d.Mailer == nil {
			return ErrNoTransport
		}
		return d.Mailer.Send(ctx, t.Address, emailBody(evt, d.PublicURL))
	case WebhookTarget:
		body, err := webhookBody(evt)
		if err != nil {
			return err
		}
		headers := map[string]string{}
		if t.Secret != "" {
			headers[signing.Header] = signing.Sign(body, t.Secret)
		}
		return d.post(ctx, t.URL, body, headers)
	case SlackTarget:
		body, err := slackBody(evt)
		if err != nil {
			return err
		}
		return d.post(ctx, t.URL, body, nil)
	default:
		return fmt.Errorf("unsupported target %T", target)
	}
}

func (d *Dispatcher) post(ctx context.Context, url string, body []byte, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "deadman")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := d.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("endpoint returned HTTP %d", resp.StatusCode)
	}
	return nil
}
