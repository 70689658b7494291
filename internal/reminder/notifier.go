package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// ErrInvalidSubjectToken is returned for a scope or kind that cannot be one NATS subject token.
var ErrInvalidSubjectToken = errors.New("invalid subject token")

// Reminder is sent once, shortly before a scheduled match.
type Reminder struct {
	Scope       string    `json:"scope"`
	MatchID     int       `json:"match_id"`
	Player1ID   string    `json:"player1_id"`
	Player2ID   string    `json:"player2_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	// RemindAt is when the reminder fires
	RemindAt time.Time `json:"remind_at"`
}

// Announcement is a tournament-wide notice such as a new round or the final result.
type Announcement struct {
	Scope   string         `json:"scope"`
	Kind    string         `json:"kind"`
	Details map[string]any `json:"details,omitempty"`
	At      time.Time      `json:"at"`
}

// Notifier delivers reminders and announcements to players. Delivery is best effort.
type Notifier interface {
	Remind(ctx context.Context, r Reminder) error
	Announce(ctx context.Context, a Announcement) error
}

// LogNotifier writes notifications to the application log. Used when no broker is configured.
type LogNotifier struct{}

func (LogNotifier) Remind(_ context.Context, r Reminder) error {
	log.Info().
		Str("scope", r.Scope).
		Int("match_id", r.MatchID).
		Str("player1_id", r.Player1ID).
		Str("player2_id", r.Player2ID).
		Time("scheduled_at", r.ScheduledAt).
		Msg("match reminder")
	return nil
}

func (LogNotifier) Announce(_ context.Context, a Announcement) error {
	log.Info().
		Str("scope", a.Scope).
		Str("kind", a.Kind).
		Interface("details", a.Details).
		Msg("tournament announcement")
	return nil
}

// Publisher is the part of *nats.Conn the notifier needs.
type Publisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATSNotifier publishes notifications as JSON on <prefix>.<scope>.reminder and
// <prefix>.<scope>.<kind> for the presentation layer to deliver.
type NATSNotifier struct {
	pub    Publisher
	prefix string
}

func NewNATSNotifier(pub Publisher, prefix string) *NATSNotifier {
	return &NATSNotifier{pub: pub, prefix: prefix}
}

// Connect dials NATS with reconnect logging.
func Connect(url string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("tourney"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

func (n *NATSNotifier) Remind(_ context.Context, r Reminder) error {
	return n.publish(r.Scope, "reminder", r)
}

func (n *NATSNotifier) Announce(_ context.Context, a Announcement) error {
	return n.publish(a.Scope, a.Kind, a)
}

func (n *NATSNotifier) publish(scope, kind string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", kind, err)
	}

	for _, token := range []string{scope, kind} {
		if token == "" || strings.ContainsAny(token, ". \t\r\n*>") {
			return fmt.Errorf("%w: %q", ErrInvalidSubjectToken, token)
		}
	}
	subject := fmt.Sprintf("%s.%s.%s", n.prefix, scope, kind)
	err = n.pub.PublishMsg(&nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Kind":  []string{kind},
			"Scope": []string{scope},
		},
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}

	log.Debug().Str("subject", subject).Msg("published notification")
	return nil
}
