package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type Check struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	Name           string     `json:"name"`
	Period         int        `json:"period"`
	Grace          int        `json:"grace"`
	CronExpression string     `json:"cronExpression,omitempty"`
	Status         string     `json:"status"`
	LastPingAt     *time.Time `json:"lastPingAt,omitempty"`
	NextExpectedAt *time.Time `json:"nextExpectedAt,omitempty"`
	PingCount      int64      `json:"pingCount"`
	AlertCount     int64      `json:"alertCount"`
	LastAlertAt    *time.Time `json:"lastAlertAt,omitempty"`
	Tags           []string   `json:"tags"`
	GroupName      string     `json:"groupName,omitempty"`
	MaintSchedule  string     `json:"maintSchedule,omitempty"`
}

type Ping struct {
	ID         int64     `json:"id"`
	Type       string    `json:"type"`
	SourceIP   string    `json:"sourceIp"`
	DurationMs *int64    `json:"durationMs,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Alert struct {
	ID          int64      `json:"id"`
	CheckID     string     `json:"checkId"`
	Kind        string     `json:"kind"`
	Target      string     `json:"target"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	Error       *string    `json:"error,omitempty"`
	RetryCount  int        `json:"retryCount"`
	NextRetryAt *time.Time `json:"nextRetryAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type CronResult struct {
	Valid                bool   `json:"valid"`
	PeriodSeconds        int    `json:"periodSeconds,omitempty"`
	GraceSeconds         int    `json:"graceSeconds,omitempty"`
	Description          string `json:"description,omitempty"`
	NormalizedExpression string `json:"normalizedExpression,omitempty"`
	Error                string `json:"error,omitempty"`
}

type Component struct {
	Name      string `json:"name"`
	Healthy   bool   `json:"healthy"`
	Optional  bool   `json:"optional,omitempty"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latencyMs"`
}

type HealthStatus struct {
	Status        string      `json:"status"`
	Services      []Component `json:"services"`
	StartedAt     string      `json:"startedAt"`
	UptimeSeconds int64       `json:"uptimeSeconds"`
}

type Job struct {
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	NextRunAt *time.Time `json:"nextRunAt,omitempty"`
	LastRunAt *time.Time `json:"lastRunAt,omitempty"`
	LastError string     `json:"lastError,omitempty"`
	Runs      int64      `json:"runs"`
}

// Health accepts a 503 because the body still reports per-service state.
func (c *Client) Health() (*HealthStatus, error) {
	var h HealthStatus
	code, err := c.do(http.MethodGet, "/api/health", nil, &h)
	if err != nil && code != http.StatusServiceUnavailable {
		return nil, err
	}
	return &h, nil
}

func (c *Client) Version() (string, error) {
	var v struct {
		Version string `json:"version"`
	}
	if err := c.get("/api/version", &v); err != nil {
		return "", err
	}
	return v.Version, nil
}

func (c *Client) ListChecks(userID string) ([]Check, error) {
	var checks []Check
	err := c.get("/api/checks?userId="+url.QueryEscape(userID), &checks)
	return checks, err
}

func (c *Client) GetCheck(id string) (*Check, error) {
	var check Check
	if err := c.get("/api/checks/"+url.PathEscape(id), &check); err != nil {
		return nil, err
	}
	return &check, nil
}

func (c *Client) ListPings(id string, limit int) ([]Ping, error) {
	var pings []Ping
	err := c.get(fmt.Sprintf("/api/checks/%s/pings?limit=%d", url.PathEscape(id), limit), &pings)
	return pings, err
}

func (c *Client) ListAlerts(id string, limit int) ([]Alert, error) {
	var alerts []Alert
	err := c.get(fmt.Sprintf("/api/checks/%s/alerts?limit=%d", url.PathEscape(id), limit), &alerts)
	return alerts, err
}

func (c *Client) Pause(id string) (*Check, error) {
	var check Check
	if err := c.post("/api/checks/"+url.PathEscape(id)+"/pause", nil, &check); err != nil {
		return nil, err
	}
	return &check, nil
}

func (c *Client) Resume(id string) (*Check, error) {
	var check Check
	if err := c.post("/api/checks/"+url.PathEscape(id)+"/resume", nil, &check); err != nil {
		return nil, err
	}
	return &check, nil
}

// ParseCron returns the server's verdict; an invalid expression is not an error.
func (c *Client) ParseCron(expr string) (*CronResult, error) {
	var res CronResult
	body := map[string]string{"expression": expr}
	if err := c.post("/api/cron/parse", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) ListJobs() ([]Job, error) {
	var jobs []Job
	err := c.get("/api/jobs", &jobs)
	return jobs, err
}

func (c *Client) TriggerJob(name string) error {
	return c.post("/api/jobs/"+url.PathEscape(name)+"/trigger", nil, nil)
}

func (c *Client) get(path string, v any) error {
	_, err := c.do(http.MethodGet, path, nil, v)
	return err
}

func (c *Client) post(path string, body, v any) error {
	_, err := c.do(http.MethodPost, path, body, v)
	return err
}

func (c *Client) do(method, path string, body, v any) (int, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, r)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		if v != nil && resp.StatusCode == http.StatusServiceUnavailable {
			_ = json.Unmarshal(b, v)
		}
		return resp.StatusCode, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if v == nil {
		return resp.StatusCode, nil
	}
	return resp.StatusCode, json.NewDecoder(resp.Body).Decode(v)
}

func (c *Client) WebSocketURL() string {
	base := c.BaseURL
	base = strings.Replace(base, "http://", "ws://", 1)
	base = strings.Replace(base, "https://", "wss://", 1)
	return base + "/ws"
}
