// Package messenger is the delivery collaborator boundary: resolve a
// canonical phone to a channel recipient, then send text to it.
package messenger

import (
	"context"
	"errors"
)

// ErrNotOnChannel means the phone number has no account on the messaging
// channel. Expected for a slice of customers; the dispatcher drops the
// message and moves on.
var ErrNotOnChannel = errors.New("messenger: number not on channel")

// Recipient is the opaque channel identifier a resolved phone maps to.
type Recipient string

// Messenger is what the notification pipeline needs from the channel.
// Connection management, pairing and reconnects live behind this interface.
type Messenger interface {
	// Resolve checks the phone is reachable on the channel and returns its
	// recipient handle. Returns ErrNotOnChannel when it is not.
	Resolve(ctx context.Context, phone string) (Recipient, error)

	// Send delivers one text message. A single attempt, no retries.
	Send(ctx context.Context, to Recipient, text string) error
}
