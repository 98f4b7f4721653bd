package broker

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// StreamChannel is a Channel backed by a small send queue that a streaming
// response drains. Send never blocks and never panics after Close.
type StreamChannel struct {
	mu     sync.Mutex
	closed bool
	events chan Event
	done   chan struct{}
}

func NewStreamChannel(queue int) *StreamChannel {
	if queue <= 0 {
		queue = 16
	}
	return &StreamChannel{
		events: make(chan Event, queue),
		done:   make(chan struct{}),
	}
}

func (c *StreamChannel) Send(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrChannelClosed
	}
	select {
	case c.events <- ev:
		return nil
	default:
		return ErrChannelFull
	}
}

func (c *StreamChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.done)
	}
}

// Done is closed once the channel is closed.
func (c *StreamChannel) Done() <-chan struct{} {
	return c.done
}

// Stream writes queued events to w until the channel is closed or a write
// fails. A comment line is written every heartbeat to keep proxies from
// timing out the connection.
func (c *StreamChannel) Stream(w *bufio.Writer, heartbeat time.Duration) error {
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return nil
		case ev := <-c.events:
			if err := WriteEvent(w, ev); err != nil {
				return err
			}
		case <-ticker.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}
	}
}

// WriteEvent writes ev in the text/event-stream format and flushes.
func WriteEvent(w *bufio.Writer, ev Event) error {
	var data string
	switch v := ev.Data.(type) {
	case string:
		data = v
	case json.RawMessage:
		data = string(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s event: %w", ev.Name, err)
		}
		data = string(raw)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data); err != nil {
		return err
	}
	return w.Flush()
}
