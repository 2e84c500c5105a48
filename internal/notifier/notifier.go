// Package notifier delivers user-facing messages such as the budget digest.
package notifier

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

// ErrNoRecipient is returned when a message has no destination address.
var ErrNoRecipient = errors.New("notifier: message has no recipient")

// Attachment is a file sent along with a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a plain-text e-mail.
type Message struct {
	To          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Validate checks the message can be delivered.
func (m Message) Validate() error {
	for _, to := range m.To {
		if strings.TrimSpace(to) != "" {
			return nil
		}
	}
	return ErrNoRecipient
}

// Notifier sends messages. Implementations must be safe for concurrent use.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier writes messages to the log instead of delivering them.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Send implements Notifier.
func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	n.log.Info().
		Strs("to", msg.To).
		Str("subject", msg.Subject).
		Int("attachments", len(msg.Attachments)).
		Str("body", msg.Body).
		Msg("Notification")
	return nil
}

// Ensure LogNotifier implements Notifier.
var _ Notifier = (*LogNotifier)(nil)
