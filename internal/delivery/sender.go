// Package delivery wraps outbound communication providers with retry and
// circuit-breaking. The provider itself (SMTP, SMS gateway) is injected.
package delivery

import (
	"context"
	"errors"
	"fmt"
)

// Channel identifies an outbound communication channel.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// ErrUnsupportedChannel is returned for channels no provider handles.
var ErrUnsupportedChannel = errors.New("unsupported communication channel")

// Message is a single outbound communication.
type Message struct {
	Channel   Channel
	Recipient string
	Subject   string // ignored for SMS
	Body      string
}

// Sender delivers a message to its recipient.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// FailureError reports a delivery that exhausted all attempts. It carries
// only the final attempt's error.
type FailureError struct {
	Attempts int
	Last     error
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("delivery failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *FailureError) Unwrap() error {
	return e.Last
}
