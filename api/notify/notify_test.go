package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"deadman/api/model"
	"deadman/api/signing"
	"deadman/api/store"
)

var t0 = time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	mu       sync.Mutex
	alerts   []*model.Alert
	channels []model.Channel
	account  *model.Account
	nextID   int64

	due     []store.PendingRetry
	sent    []int64
	retried map[int64]retryUpdate
}

type retryUpdate struct {
	count int
	next  *time.Time
	err   string
}

func (f *fakeStore) InsertAlert(_ context.Context, a *model.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	a.ID = f.nextID
	f.alerts = append(f.alerts, a)
	return nil
}

func (f *fakeStore) ResolveChannels(context.Context, string, string) ([]model.Channel, error) {
	return f.channels, nil
}

func (f *fakeStore) GetAccount(context.Context, string) (*model.Account, error) {
	if f.account == nil {
		return nil, store.ErrNotFound
	}
	return f.account, nil
}

func (f *fakeStore) DueRetries(context.Context, time.Time, int) ([]store.PendingRetry, error) {
	return f.due, nil
}

func (f *fakeStore) MarkAlertSent(_ context.Context, id int64) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeStore) MarkAlertRetry(_ context.Context, id int64, count int, next *time.Time, msg string) error {
	if f.retried == nil {
		f.retried = map[int64]retryUpdate{}
	}
	f.retried[id] = retryUpdate{count: count, next: next, err: msg}
	return nil
}

type fakeMailer struct {
	to   []string
	msgs []EmailMessage
	err  error
}

func (m *fakeMailer) Send(_ context.Context, to string, msg EmailMessage) error {
	m.to = append(m.to, to)
	m.msgs = append(m.msgs, msg)
	return m.err
}

func newDispatcher(st *fakeStore, mailer Mailer) *Dispatcher {
	d := NewDispatcher(st, mailer, 5*time.Second, nil, zap.NewNop())
	d.Now = func() time.Time { return t0 }
	return d
}

func testCheck() model.Check {
	last := t0.Add(-10 * time.Minute)
	return model.Check{ID: "c1", UserID: "u1", Name: "backup", Period: 300, Grace: 60, Status: model.CheckDown, LastPingAt: &last}
}

func TestWebhookSignedPayload(t *testing.T) {
	var (
		gotBody []byte
		gotSig  string
		gotCT   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get(signing.Header)
		gotCT = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	st := &fakeStore{}
	d := newDispatcher(st, nil)
	ch := model.Channel{ID: "ch1", Kind: model.ChannelWebhook, Target: srv.URL}

	a, err := d.Dispatch(context.Background(), testCheck(), ch, "s3cret", model.AlertDown)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if a.Status != model.AlertSent || a.NextRetryAt != nil {
		t.Errorf("alert = %+v, want sent", a)
	}
	if gotCT != "application/json" {
		t.Errorf("Content-Type = %q", gotCT)
	}
	if !signing.Verify(gotBody, "s3cret", gotSig) {
		t.Errorf("signature %q does not verify", gotSig)
	}

	var p map[string]interface{}
	if err := json.Unmarshal(gotBody, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p["event"] != "check.down" {
		t.Errorf("event = %v", p["event"])
	}
	if _, ok := p["retry"]; ok {
		t.Error("first delivery must not carry retry")
	}
	check := p["check"].(map[string]interface{})
	if check["id"] != "c1" || check["status"] != "down" || check["period"] != float64(300) {
		t.Errorf("check = %v", check)
	}
	if _, ok := check["last_ping_at"]; !ok {
		t.Error("missing last_ping_at")
	}
}

func TestWebhookUnsignedWithoutSecret(t *testing.T) {
	var sig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sig = r.Header.Get(signing.Header)
	}))
	defer srv.Close()

	d := newDispatcher(&fakeStore{}, nil)
	ch := model.Channel{ID: "ch1", Kind: model.ChannelWebhook, Target: srv.URL}
	if _, err := d.Dispatch(context.Background(), testCheck(), ch, "", model.AlertRecovery); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if sig != "" {
		t.Errorf("signature header set without secret: %q", sig)
	}
}

func TestWebhookFailureSchedulesRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	st := &fakeStore{}
	d := newDispatcher(st, nil)
	ch := model.Channel{ID: "ch1", Kind: model.ChannelSlack, Target: srv.URL}

	a, err := d.Dispatch(context.Background(), testCheck(), ch, "", model.AlertDown)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if a.Status != model.AlertFailed || a.RetryCount != 0 {
		t.Errorf("alert = %+v", a)
	}
	if a.NextRetryAt == nil || !a.NextRetryAt.Equal(t0.Add(30*time.Second)) {
		t.Errorf("next_retry_at = %v, want t0+30s", a.NextRetryAt)
	}
	if a.Error == nil {
		t.Error("error should be recorded")
	}
}

func TestWebhookTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	d := newDispatcher(&fakeStore{}, nil)
	d.HTTP.Timeout = 50 * time.Millisecond
	ch := model.Channel{ID: "ch1", Kind: model.ChannelWebhook, Target: srv.URL}

	a, err := d.Dispatch(context.Background(), testCheck(), ch, "", model.AlertDown)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if a.Status != model.AlertFailed {
		t.Errorf("status = %s, want failed", a.Status)
	}
}

func TestEmailFailureIsTerminal(t *testing.T) {
	st := &fakeStore{}
	mailer := &fakeMailer{err: errors.New("relay refused")}
	d := newDispatcher(st, mailer)
	ch := model.Channel{ID: "ch1", Kind: model.ChannelEmail, Target: "ops@example.com"}

	a, err := d.Dispatch(context.Background(), testCheck(), ch, "", model.AlertDown)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if a.Status != model.AlertFailed || a.NextRetryAt != nil {
		t.Errorf("email failure should be terminal: %+v", a)
	}
	if !a.Terminal() {
		t.Error("Terminal() = false")
	}
}

func TestEmailBodies(t *testing.T) {
	mailer := &fakeMailer{}
	d := newDispatcher(&fakeStore{}, mailer)
	d.PublicURL = "https://deadman.example.com"
	ch := model.Channel{ID: "ch1", Kind: model.ChannelEmail, Target: "Ops <ops@example.com>"}

	if _, err := d.Dispatch(context.Background(), testCheck(), ch, "", model.AlertRecovery); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(mailer.msgs) != 1 || mailer.to[0] != "ops@example.com" {
		t.Fatalf("sent = %v", mailer.to)
	}
	msg := mailer.msgs[0]
	if msg.Subject != "[UP] backup has recovered" {
		t.Errorf("subject = %q", msg.Subject)
	}
	if msg.Text == "" || msg.HTML == "" {
		t.Error("both plain and html bodies are required")
	}
}

func TestNotifyFallsBackToAccountEmail(t *testing.T) {
	st := &fakeStore{account: &model.Account{ID: "u1", Email: "owner@example.com"}}
	mailer := &fakeMailer{}
	d := newDispatcher(st, mailer)

	if err := d.Notify(context.Background(), testCheck(), model.AlertDown); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(mailer.to) != 1 || mailer.to[0] != "owner@example.com" {
		t.Errorf("mailed %v, want owner@example.com", mailer.to)
	}
	if len(st.alerts) != 1 || st.alerts[0].ChannelID != nil {
		t.Errorf("alerts = %+v", st.alerts)
	}
}

func TestNotifyIsolatesChannels(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ok.Close()

	st := &fakeStore{channels: []model.Channel{
		{ID: "bad", Kind: model.ChannelWebhook, Target: "not a url"},
		{ID: "good", Kind: model.ChannelWebhook, Target: ok.URL},
	}}
	d := newDispatcher(st, nil)

	if err := d.Notify(context.Background(), testCheck(), model.AlertDown); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(st.alerts) != 2 {
		t.Fatalf("got %d alerts, want 2", len(st.alerts))
	}
	if st.alerts[0].Status != model.AlertFailed || st.alerts[1].Status != model.AlertSent {
		t.Errorf("statuses = %s, %s", st.alerts[0].Status, st.alerts[1].Status)
	}
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		kind    model.ChannelKind
		target  string
		wantErr bool
	}{
		{model.ChannelEmail, "ops@example.com", false},
		{model.ChannelEmail, "nope", true},
		{model.ChannelWebhook, "https://example.com/hook", false},
		{model.ChannelWebhook, "ftp://example.com", true},
		{model.ChannelSlack, "https://hooks.slack.com/services/x", false},
		{model.ChannelSlack, "hooks.slack.com", true},
		{"pager", "x", true},
	}
	for _, tt := range tests {
		target, err := ParseTarget(tt.kind, tt.target, "")
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTarget(%s, %q) err = %v, wantErr %v", tt.kind, tt.target, err, tt.wantErr)
			continue
		}
		if err == nil && target.Kind() != tt.kind {
			t.Errorf("Kind() = %s, want %s", target.Kind(), tt.kind)
		}
	}
}

func TestSlackPayload(t *testing.T) {
	body, err := slackBody(Event{Type: model.AlertDown, Check: testCheck(), At: t0, Retry: 2})
	if err != nil {
		t.Fatalf("slackBody: %v", err)
	}
	var p slackPayload
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Text != "backup is DOWN" || len(p.Blocks) != 3 || p.Blocks[0].Type != "header" {
		t.Errorf("payload = %+v", p)
	}
}
