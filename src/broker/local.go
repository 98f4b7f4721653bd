package broker

import (
	"context"
	"log/slog"
	"sync"
)

// LocalBroker keeps the live channels of this process.
type LocalBroker struct {
	mu       sync.Mutex
	channels map[string]Channel
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{channels: map[string]Channel{}}
}

// Connect makes ch the live channel of identity. A replaced channel is
// closed when it supports it, ending that stream.
func (b *LocalBroker) Connect(identity string, ch Channel) {
	b.mu.Lock()
	prev, replaced := b.channels[identity]
	b.channels[identity] = ch
	b.mu.Unlock()

	if closer, ok := prev.(interface{ Close() }); ok && replaced && prev != ch {
		closer.Close()
	}
	slog.Debug("Live channel connected", "user_id", identity, "replaced", replaced)
	if err := ch.Send(ConnectedEvent); err != nil {
		slog.Debug("Live channel rejected ack", "user_id", identity, "error", err)
	}
}

func (b *LocalBroker) Disconnect(identity string, ch Channel) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cur, ok := b.channels[identity]; ok && cur == ch {
		delete(b.channels, identity)
		slog.Debug("Live channel disconnected", "user_id", identity)
	}
}

func (b *LocalBroker) Push(_ context.Context, identity string, ev Event) {
	b.mu.Lock()
	ch, ok := b.channels[identity]
	b.mu.Unlock()
	if !ok {
		return
	}

	if err := ch.Send(ev); err != nil {
		slog.Debug("Live event dropped", "user_id", identity, "event", ev.Name, "error", err)
	}
}

// Connected reports whether identity has a live channel in this process.
func (b *LocalBroker) Connected(identity string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.channels[identity]
	return ok
}
