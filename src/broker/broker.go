// Package broker delivers live events to connected users. Each identity has
// at most one live channel; the latest connection replaces the previous one.
// Delivery is best effort and at most once.
package broker

import (
	"context"
	"errors"
)

var (
	ErrChannelClosed = errors.New("channel closed")
	ErrChannelFull   = errors.New("channel send queue full")
)

// Event is one server-sent event. String data is written as is, anything
// else is JSON encoded.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// ConnectedEvent is pushed to every channel right after it is registered.
var ConnectedEvent = Event{Name: "log", Data: "Connected to SSE stream"}

// Channel is the write side of one live connection. Send must not block.
type Channel interface {
	Send(ev Event) error
}

type Broker interface {
	// Connect registers ch for identity, replacing any previous channel,
	// and sends ConnectedEvent on it.
	Connect(identity string, ch Channel)
	// Disconnect removes ch if it is still the channel registered for
	// identity. Calling it more than once is harmless.
	Disconnect(identity string, ch Channel)
	// Push delivers ev to identity's channel, or drops it when the identity
	// has no live channel.
	Push(ctx context.Context, identity string, ev Event)
}
