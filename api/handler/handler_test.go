package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"deadman/api/config"
	"deadman/api/health"
	"deadman/api/model"
	"deadman/api/store"
)

type memStore struct {
	mu       sync.Mutex
	checks   map[string]*model.Check
	channels map[string]*model.Channel
	links    map[[2]string]bool
	accounts map[string]*model.Account
}

func newMemStore() *memStore {
	return &memStore{
		checks:   map[string]*model.Check{},
		channels: map[string]*model.Channel{},
		links:    map[[2]string]bool{},
		accounts: map[string]*model.Account{},
	}
}

func (m *memStore) InsertCheck(_ context.Context, c *model.Check) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.checks[c.ID] = &cp
	return nil
}

func (m *memStore) GetCheck(_ context.Context, id string) (*model.Check, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.checks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) ListChecks(_ context.Context, userID string) ([]model.Check, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Check
	for _, c := range m.checks {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memStore) UpdateCheckConfig(_ context.Context, c *model.Check) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.checks[c.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *c
	m.checks[c.ID] = &cp
	return nil
}

func (m *memStore) DeleteCheck(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.checks[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.checks, id)
	return nil
}

func (m *memStore) setStatus(id string, s model.CheckStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.checks[id]
	if !ok {
		return store.ErrNotFound
	}
	c.Status = s
	if s == model.CheckNew {
		c.NextExpectedAt = nil
	}
	return nil
}

func (m *memStore) PauseCheck(_ context.Context, id string) error {
	return m.setStatus(id, model.CheckPaused)
}

func (m *memStore) ResumeCheck(_ context.Context, id string) error {
	return m.setStatus(id, model.CheckNew)
}

func (m *memStore) ListPings(context.Context, string, int) ([]model.Ping, error) { return nil, nil }

func (m *memStore) ListAlerts(context.Context, string, int) ([]model.Alert, error) { return nil, nil }

func (m *memStore) InsertChannel(_ context.Context, ch *model.Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ch
	m.channels[ch.ID] = &cp
	return nil
}

func (m *memStore) ListChannels(_ context.Context, userID string) ([]model.Channel, error) {
	var out []model.Channel
	for _, ch := range m.channels {
		if ch.UserID == userID {
			out = append(out, *ch)
		}
	}
	return out, nil
}

func (m *memStore) DeleteChannel(_ context.Context, id string) error {
	if _, ok := m.channels[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.channels, id)
	return nil
}

func (m *memStore) LinkChannel(_ context.Context, checkID, channelID string) error {
	if _, ok := m.channels[channelID]; !ok {
		return store.ErrNotFound
	}
	m.links[[2]string{checkID, channelID}] = true
	return nil
}

func (m *memStore) UnlinkChannel(_ context.Context, checkID, channelID string) error {
	k := [2]string{checkID, channelID}
	if !m.links[k] {
		return store.ErrNotFound
	}
	delete(m.links, k)
	return nil
}

func (m *memStore) UpsertAccount(_ context.Context, a *model.Account) error {
	cp := *a
	m.accounts[a.ID] = &cp
	return nil
}

type recIngestor struct {
	mu      sync.Mutex
	signals []model.Signal
}

func (r *recIngestor) Go(sig model.Signal) {
	r.mu.Lock()
	r.signals = append(r.signals, sig)
	r.mu.Unlock()
}

type recCache struct {
	invalidated []string
}

func (c *recCache) Get(context.Context, string) (*model.CheckConfig, error) {
	return nil, errors.New("unused")
}
func (c *recCache) Set(context.Context, model.CheckConfig) error { return nil }
func (c *recCache) Invalidate(_ context.Context, id string) error {
	c.invalidated = append(c.invalidated, id)
	return nil
}
func (c *recCache) Healthy(context.Context) error { return nil }

type testEnv struct {
	router http.Handler
	db     *memStore
	ingest *recIngestor
	cache  *recCache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{db: newMemStore(), ingest: &recIngestor{}, cache: &recCache{}}
	poller := &health.Poller{
		Log:    zap.NewNop(),
		Probes: []health.Probe{{Name: "postgres", Check: func(context.Context) error { return nil }}},
	}
	cfg := &config.Config{StartedAt: time.Now().Add(-time.Minute)}
	h := New(env.db, env.cache, env.ingest, nil, poller, cfg, zap.NewNop())
	r := chi.NewRouter()
	h.Mount(r, "test")
	env.router = r
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "203.0.113.7:51234"
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestPingAlwaysOK(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		method string
		path   string
		typ    model.PingType
	}{
		{"GET", "/ping/abc", model.PingSuccess},
		{"POST", "/ping/abc", model.PingSuccess},
		{"HEAD", "/ping/abc", model.PingSuccess},
		{"GET", "/ping/abc/start", model.PingStart},
		{"PUT", "/ping/abc/fail", model.PingFail},
	}
	for _, tt := range tests {
		w := env.do(t, tt.method, tt.path, nil)
		if w.Code != http.StatusOK {
			t.Errorf("%s %s: got %d, want 200", tt.method, tt.path, w.Code)
		}
	}

	if len(env.ingest.signals) != len(tests) {
		t.Fatalf("got %d signals, want %d", len(env.ingest.signals), len(tests))
	}
	for i, tt := range tests {
		sig := env.ingest.signals[i]
		if sig.Type != tt.typ || sig.CheckID != "abc" || sig.SourceIP != "203.0.113.7" {
			t.Errorf("signal %d = %+v", i, sig)
		}
	}
}

func TestCreateCheckWithCron(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, "POST", "/api/checks", map[string]interface{}{
		"userId":         "u1",
		"name":           "hourly export",
		"cronExpression": "0 * * * *",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("got %d: %s", w.Code, w.Body.String())
	}
	var c model.Check
	if err := json.NewDecoder(w.Body).Decode(&c); err != nil {
		t.Fatal(err)
	}
	if c.Period != 3600 || c.Grace != 720 || c.Status != model.CheckNew {
		t.Errorf("check = %+v", c)
	}
	if _, err := uuid.Parse(c.ID); err != nil {
		t.Errorf("id %q is not a uuid", c.ID)
	}
}

func TestCreateCheckValidation(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, "POST", "/api/checks", map[string]interface{}{
		"userId": "u1",
		"name":   "too fast",
		"period": 30,
		"grace":  60,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", w.Code)
	}
	var body struct {
		Error    string                    `json:"error"`
		Findings []model.ValidationFinding `json:"findings"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Error == "" || len(body.Findings) == 0 || body.Findings[0].Check != "check.period.range" {
		t.Errorf("body = %+v", body)
	}
	if len(env.db.checks) != 0 {
		t.Error("invalid check must not be stored")
	}
}

func TestCheckLifecycle(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, "POST", "/api/checks", map[string]interface{}{
		"userId": "u1", "name": "backup", "period": 300, "grace": 60,
	})
	var c model.Check
	json.NewDecoder(w.Body).Decode(&c)

	if w := env.do(t, "GET", "/api/checks/"+c.ID, nil); w.Code != http.StatusOK {
		t.Errorf("get: %d", w.Code)
	}
	if w := env.do(t, "PUT", "/api/checks/"+c.ID, map[string]interface{}{
		"name": "backup", "period": 600, "grace": 120,
	}); w.Code != http.StatusOK {
		t.Errorf("update: %d %s", w.Code, w.Body.String())
	}
	if env.db.checks[c.ID].Period != 600 {
		t.Errorf("period = %d after update", env.db.checks[c.ID].Period)
	}

	if w := env.do(t, "POST", "/api/checks/"+c.ID+"/pause", nil); w.Code != http.StatusOK {
		t.Errorf("pause: %d", w.Code)
	}
	if env.db.checks[c.ID].Status != model.CheckPaused {
		t.Errorf("status = %s", env.db.checks[c.ID].Status)
	}
	if w := env.do(t, "POST", "/api/checks/"+c.ID+"/resume", nil); w.Code != http.StatusOK {
		t.Errorf("resume: %d", w.Code)
	}
	if env.db.checks[c.ID].Status != model.CheckNew {
		t.Errorf("status = %s", env.db.checks[c.ID].Status)
	}

	if w := env.do(t, "DELETE", "/api/checks/"+c.ID, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete: %d", w.Code)
	}
	if len(env.cache.invalidated) != 4 {
		t.Errorf("cache invalidations = %v, want one per mutation", env.cache.invalidated)
	}

	if w := env.do(t, "GET", "/api/checks/"+c.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("get deleted: %d", w.Code)
	}
}

func TestInvalidCheckID(t *testing.T) {
	env := newTestEnv(t)
	if w := env.do(t, "GET", "/api/checks/not-a-uuid", nil); w.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400", w.Code)
	}
}

func TestListChecksRequiresUser(t *testing.T) {
	env := newTestEnv(t)
	if w := env.do(t, "GET", "/api/checks", nil); w.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400", w.Code)
	}
	w := env.do(t, "GET", "/api/checks?userId=nobody", nil)
	if w.Code != http.StatusOK || w.Body.String() != "[]\n" {
		t.Errorf("got %d %q", w.Code, w.Body.String())
	}
}

func TestChannels(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, "POST", "/api/channels", map[string]interface{}{
		"userId": "u1", "kind": "sms", "target": "+15550100",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown kind: got %d, want 400", w.Code)
	}

	w = env.do(t, "POST", "/api/channels", map[string]interface{}{
		"userId": "u1", "kind": "webhook", "target": "https://example.com/hook", "isDefault": true,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var ch model.Channel
	json.NewDecoder(w.Body).Decode(&ch)

	w = env.do(t, "POST", "/api/checks", map[string]interface{}{
		"userId": "u1", "name": "backup", "period": 300, "grace": 60,
	})
	var c model.Check
	json.NewDecoder(w.Body).Decode(&c)

	if w := env.do(t, "PUT", "/api/checks/"+c.ID+"/channels/"+ch.ID, nil); w.Code != http.StatusNoContent {
		t.Errorf("link: %d", w.Code)
	}
	if w := env.do(t, "DELETE", "/api/checks/"+c.ID+"/channels/"+ch.ID, nil); w.Code != http.StatusNoContent {
		t.Errorf("unlink: %d", w.Code)
	}
	if w := env.do(t, "DELETE", "/api/channels/"+ch.ID, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete: %d", w.Code)
	}
}

func TestParseCron(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, "POST", "/api/cron/parse", map[string]string{"expression": "*/5 * * * *"})
	if w.Code != http.StatusOK {
		t.Fatalf("got %d", w.Code)
	}
	var res model.CronResult
	json.NewDecoder(w.Body).Decode(&res)
	if !res.Valid || res.PeriodSeconds != 300 || res.GraceSeconds != 60 {
		t.Errorf("result = %+v", res)
	}

	w = env.do(t, "POST", "/api/cron/parse", map[string]string{"expression": "60 * * * *"})
	json.NewDecoder(w.Body).Decode(&res)
	if w.Code != http.StatusOK || res.Valid || res.Error == "" {
		t.Errorf("invalid: %d %+v", w.Code, res)
	}
}

func TestPutAccount(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, "PUT", "/api/accounts/u1", map[string]string{"email": "ops@example.com", "signingSecret": "s"})
	if w.Code != http.StatusOK {
		t.Fatalf("got %d", w.Code)
	}
	if a := env.db.accounts["u1"]; a == nil || a.SigningSecret != "s" {
		t.Errorf("account = %+v", a)
	}
	if bytes.Contains(w.Body.Bytes(), []byte(`"s"`)) {
		t.Error("response must not echo the signing secret")
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, "GET", "/api/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d", w.Code)
	}
	var body map[string]interface{}
	json.NewDecoder(w.Body).Decode(&body)
	if body["status"] != "healthy" {
		t.Errorf("status = %v", body["status"])
	}
	if up, _ := body["uptimeSeconds"].(float64); up < 59 {
		t.Errorf("uptimeSeconds = %v", body["uptimeSeconds"])
	}
}

func TestJobsWithoutScheduler(t *testing.T) {
	env := newTestEnv(t)
	if w := env.do(t, "GET", "/api/jobs", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("got %d, want 503", w.Code)
	}
}
