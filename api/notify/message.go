package notify

import (
	"encoding/json"
	"fmt"
	"html"
	"time"

	"deadman/api/model"
)

// Event is one state transition to announce.
type Event struct {
	Type  model.AlertType
	Check model.Check
	At    time.Time
	// Retry is the attempt number on redelivery, zero on first delivery.
	Retry int
}

func (e Event) name() string {
	if e.Type == model.AlertRecovery {
		return "check.up"
	}
	return "check.down"
}

type webhookCheck struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Status     string     `json:"status"`
	LastPingAt *time.Time `json:"last_ping_at"`
	Period     int        `json:"period"`
}

type webhookPayload struct {
	Event     string       `json:"event"`
	Check     webhookCheck `json:"check"`
	Timestamp time.Time    `json:"timestamp"`
	Retry     int          `json:"retry,omitempty"`
}

func webhookBody(e Event) ([]byte, error) {
	return json.Marshal(webhookPayload{
		Event: e.name(),
		Check: webhookCheck{
			ID:         e.Check.ID,
			Name:       e.Check.Name,
			Status:     string(e.Check.Status),
			LastPingAt: e.Check.LastPingAt,
			Period:     e.Check.Period,
		},
		Timestamp: e.At.UTC(),
		Retry:     e.Retry,
	})
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

func slackBody(e Event) ([]byte, error) {
	headline := fmt.Sprintf("%s is DOWN", displayName(e.Check))
	if e.Type == model.AlertRecovery {
		headline = fmt.Sprintf("%s is back UP", displayName(e.Check))
	}
	lastPing := "never"
	if e.Check.LastPingAt != nil {
		lastPing = e.Check.LastPingAt.UTC().Format(time.RFC3339)
	}
	footer := fmt.Sprintf("%s at %s", e.name(), e.At.UTC().Format(time.RFC3339))
	if e.Retry > 0 {
		footer += fmt.Sprintf(" (retry %d)", e.Retry)
	}

	return json.Marshal(slackPayload{
		Text: headline,
		Blocks: []slackBlock{
			{Type: "header", Text: &slackText{Type: "plain_text", Text: headline}},
			{Type: "section", Fields: []slackText{
				{Type: "mrkdwn", Text: "*Status:*\n" + string(e.Check.Status)},
				{Type: "mrkdwn", Text: "*Period:*\n" + formatPeriod(e.Check.Period)},
				{Type: "mrkdwn", Text: "*Last ping:*\n" + lastPing},
				{Type: "mrkdwn", Text: "*Check ID:*\n" + e.Check.ID},
			}},
			{Type: "context", Elements: []slackText{{Type: "mrkdwn", Text: footer}}},
		},
	})
}

type EmailMessage struct {
	Subject string
	Text    string
	HTML    string
}

func emailBody(e Event, publicURL string) EmailMessage {
	name := displayName(e.Check)
	subject := fmt.Sprintf("[DOWN] %s has not checked in", name)
	summary := fmt.Sprintf("%s was expected every %s and has not pinged within its grace period.",
		name, formatPeriod(e.Check.Period))
	if e.Type == model.AlertRecovery {
		subject = fmt.Sprintf("[UP] %s has recovered", name)
		summary = fmt.Sprintf("%s is pinging again.", name)
	}

	lastPing := "never"
	if e.Check.LastPingAt != nil {
		lastPing = e.Check.LastPingAt.UTC().Format(time.RFC1123)
	}
	link := ""
	if publicURL != "" {
		link = publicURL + "/checks/" + e.Check.ID
	}

	text := fmt.Sprintf("%s\n\nLast ping: %s\nEvent time: %s\n",
		summary, lastPing, e.At.UTC().Format(time.RFC1123))
	if link != "" {
		text += "\n" + link + "\n"
	}

	body := fmt.Sprintf("<p>%s</p><p>Last ping: %s<br>Event time: %s</p>",
		html.EscapeString(summary), html.EscapeString(lastPing), html.EscapeString(e.At.UTC().Format(time.RFC1123)))
	if link != "" {
		body += fmt.Sprintf(`<p><a href="%s">View check</a></p>`, html.EscapeString(link))
	}

	return EmailMessage{Subject: subject, Text: text, HTML: body}
}

func displayName(c model.Check) string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

func formatPeriod(seconds int) string {
	return (time.Duration(seconds) * time.Second).String()
}
