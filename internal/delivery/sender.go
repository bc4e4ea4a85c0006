// Package delivery sends scheduled messages through the configured
// transports and owns the bounded retry policy. Handlers never retry;
// a message that exhausts its attempts is marked failed for the
// operator reconciliation queue.
package delivery

import (
	"context"
	"errors"
)

// Channel selects the transport for one message.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// Message is one outbound payload, already rendered.
type Message struct {
	Phone   string
	Email   string
	Subject string
	Body    string
	Channel Channel
}

// Receipt identifies the provider-side record of a sent message.
type Receipt struct {
	ProviderID string
}

// Sender delivers one message over one transport.
type Sender interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}

// errTransient marks provider errors worth retrying. Permanent errors
// (bad recipient, rejected payload) fail immediately.
var errTransient = errors.New("transient delivery error")

// Transient wraps err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(errTransient, err)
}

// IsTransient reports whether err is worth a retry.
func IsTransient(err error) bool {
	return errors.Is(err, errTransient)
}
