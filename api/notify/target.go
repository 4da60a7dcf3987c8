package notify

import (
	"fmt"
	"net/mail"
	"net/url"

	"deadman/api/model"
)

// Target is a resolved delivery destination. The set of implementations is
// closed: deliver switches over exactly these three types.
type Target interface {
	Kind() model.ChannelKind
	isTarget()
}

type EmailTarget struct {
	Address string
}

type WebhookTarget struct {
	URL string
	// Secret signs the body when non-empty.
	Secret string
}

type SlackTarget struct {
	URL string
}

func (EmailTarget) Kind() model.ChannelKind   { return model.ChannelEmail }
func (WebhookTarget) Kind() model.ChannelKind { return model.ChannelWebhook }
func (SlackTarget) Kind() model.ChannelKind   { return model.ChannelSlack }

func (EmailTarget) isTarget()   {}
func (WebhookTarget) isTarget() {}
func (SlackTarget) isTarget()   {}

// ParseTarget turns a stored channel kind and target string into a Target.
func ParseTarget(kind model.ChannelKind, target, secret string) (Target, error) {
	switch kind {
	case model.ChannelEmail:
		addr, err := mail.ParseAddress(target)
		if err != nil {
			return nil, fmt.Errorf("invalid email address %q: %w", target, err)
		}
		return EmailTarget{Address: addr.Address}, nil
	case model.ChannelWebhook:
		if err := validateURL(target); err != nil {
			return nil, err
		}
		return WebhookTarget{URL: target, Secret: secret}, nil
	case model.ChannelSlack:
		if err := validateURL(target); err != nil {
			return nil, err
		}
		return SlackTarget{URL: target}, nil
	default:
		return nil, fmt.Errorf("unknown channel kind %q", kind)
	}
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid url %q: must be http(s) with a host", raw)
	}
	return nil
}
