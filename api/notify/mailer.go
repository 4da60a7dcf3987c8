package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/wneessen/go-mail"
)

const defaultSMTPTimeout = 10 * time.Second

var ErrNoTransport = errors.New("no email transport configured")

type Mailer interface {
	Send(ctx context.Context, to string, msg EmailMessage) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// Timeout bounds a whole SMTP session, from dial to QUIT.
	Timeout time.Duration
}

// SMTPMailer delivers through a single SMTP relay. Retries are left to the
// relay. A client is built per send so concurrent deliveries never share a
// connection.
type SMTPMailer struct {
	host    string
	from    string
	timeout time.Duration
	opts    []mail.Option
}

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, ErrNoTransport
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSMTPTimeout
	}
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(timeout),
		mail.WithDialContextFunc(deadlineDialer(timeout)),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	m := &SMTPMailer{host: cfg.Host, from: cfg.From, timeout: timeout, opts: opts}
	if _, err := m.client(); err != nil {
		return nil, err
	}
	return m, nil
}

// deadlineDialer puts a hard deadline on the connection. go-mail only
// bounds the dial itself, so a relay that accepts and never greets would
// otherwise block forever.
func deadlineDialer(timeout time.Duration) mail.DialContextFunc {
	return func(ctx context.Context, network, address string) (net.Conn, error) {
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, network, address)
		if err != nil {
			return nil, err
		}
		if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

func (m *SMTPMailer) client() (*mail.Client, error) {
	c, err := mail.NewClient(m.host, m.opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return c, nil
}

func (m *SMTPMailer) Send(ctx context.Context, to string, msg EmailMessage) error {
	out := mail.NewMsg()
	if err := out.From(m.from); err != nil {
		return fmt.Errorf("from address: %w", err)
	}
	if err := out.To(to); err != nil {
		return fmt.Errorf("to address: %w", err)
	}
	out.Subject(msg.Subject)
	out.SetBodyString(mail.TypeTextPlain, msg.Text)
	out.AddAlternativeString(mail.TypeTextHTML, msg.HTML)

	c, err := m.client()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return c.DialAndSendWithContext(ctx, out)
}

// Healthy dials the relay and hangs up.
func (m *SMTPMailer) Healthy(ctx context.Context) error {
	c, err := m.client()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := c.DialWithContext(ctx); err != nil {
		return err
	}
	return c.Close()
}
