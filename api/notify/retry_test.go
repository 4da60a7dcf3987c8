package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"deadman/api/model"
	"deadman/api/store"
)

func TestBackoff(t *testing.T) {
	want := []time.Duration{30 * time.Second, 120 * time.Second, 480 * time.Second}
	for i, w := range want {
		if got := Backoff(i); got != w {
			t.Errorf("Backoff(%d) = %v, want %v", i, got, w)
		}
	}
}

func newRetrier(st *fakeStore) *Retrier {
	return &Retrier{
		Store:      st,
		Dispatcher: newDispatcher(st, nil),
		BatchSize:  50,
		Log:        zap.NewNop(),
		Now:        func() time.Time { return t0 },
	}
}

func pending(id int64, url string, count int) store.PendingRetry {
	return store.PendingRetry{
		Alert: model.Alert{ID: id, CheckID: "c1", Kind: model.ChannelWebhook, Target: url,
			Type: model.AlertDown, Status: model.AlertFailed, RetryCount: count},
		Check: testCheck(),
	}
}

func TestRetrySuccessMarksSent(t *testing.T) {
	var retry float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var p map[string]interface{}
		_ = json.Unmarshal(body, &p)
		retry, _ = p["retry"].(float64)
	}))
	defer srv.Close()

	st := &fakeStore{due: []store.PendingRetry{pending(7, srv.URL, 1)}}
	n, err := newRetrier(st).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n != 1 || len(st.sent) != 1 || st.sent[0] != 7 {
		t.Errorf("delivered=%d sent=%v", n, st.sent)
	}
	if retry != 2 {
		t.Errorf("payload retry = %v, want 2", retry)
	}
}

func TestRetryBackoffProgression(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	st := &fakeStore{due: []store.PendingRetry{
		pending(1, srv.URL, 0),
		pending(2, srv.URL, 1),
		pending(3, srv.URL, 2),
	}}
	if _, err := newRetrier(st).RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	u1 := st.retried[1]
	if u1.count != 1 || u1.next == nil || !u1.next.Equal(t0.Add(120*time.Second)) {
		t.Errorf("alert 1 = %+v, want count 1 next t0+120s", u1)
	}
	u2 := st.retried[2]
	if u2.count != 2 || u2.next == nil || !u2.next.Equal(t0.Add(480*time.Second)) {
		t.Errorf("alert 2 = %+v, want count 2 next t0+480s", u2)
	}
	u3 := st.retried[3]
	if u3.count != model.MaxAlertRetries || u3.next != nil || u3.err == "" {
		t.Errorf("alert 3 = %+v, want terminal", u3)
	}
}

func TestRetryAnnouncesAlertState(t *testing.T) {
	var payload struct {
		Event string `json:"event"`
		Check struct {
			Status string `json:"status"`
		} `json:"check"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}))
	defer srv.Close()

	// the check recovered after the down alert failed
	p := pending(9, srv.URL, 0)
	p.Check.Status = model.CheckUp
	st := &fakeStore{due: []store.PendingRetry{p}}

	if _, err := newRetrier(st).RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if payload.Event != "check.down" || payload.Check.Status != "down" {
		t.Errorf("payload event=%q status=%q, want check.down/down", payload.Event, payload.Check.Status)
	}
}
