// Package notifier delivers built messages to a chat webhook.
//
// The webhook contract is narrow: the message travels as the JSON-encoded
// `payload` field of a form POST and the endpoint answers with the literal
// body "ok" on success. Anything else is a DeliveryError.
package notifier

import (
	"context"
	"fmt"

	"calnotify/internal/message"
)

// Notifier defines the interface for delivering one account's message.
type Notifier interface {
	Notify(ctx context.Context, webhook string, p *message.Payload) error
}

// Reason classifies a failed delivery.
type Reason string

const (
	ReasonSerialization      Reason = "serialization"
	ReasonNetwork            Reason = "network"
	ReasonEmptyResponse      Reason = "empty-response"
	ReasonUnexpectedResponse Reason = "unexpected-response"
)

// DeliveryError reports why a webhook did not accept a message.
type DeliveryError struct {
	Reason Reason
	// Status is the HTTP status code, when a response was received.
	Status int
	// Body is the (truncated) response body, when one was received.
	Body string
	Err  error
}

func (e *DeliveryError) Error() string {
	msg := "delivery failed (" + string(e.Reason) + ")"
	if e.Status != 0 {
		msg += fmt.Sprintf(": status %d", e.Status)
	}
	if e.Body != "" {
		msg += fmt.Sprintf(": body %q", e.Body)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DeliveryError) Unwrap() error { return e.Err }
