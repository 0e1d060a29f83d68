package notifications

import (
	"context"
	"sync"
)

// Sender attempts delivery of a notification on one channel. A nil
// error means the channel delivered; any error is recorded on the
// record as a failed attempt and never propagated to the creator.
type Sender interface {
	Send(ctx context.Context, n *Notification) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, n *Notification) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, n *Notification) error {
	return f(ctx, n)
}

// Registry maps channel identifiers to their delivery adapters. New
// channels are added by registration, not by editing the fan-out loop.
type Registry struct {
	mu      sync.RWMutex
	senders map[Channel]Sender
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{senders: make(map[Channel]Sender)}
}

// Register installs the adapter for a channel, replacing any previous
// registration. Nil senders are ignored so callers can pass the result
// of a constructor that returns nil when unconfigured.
func (r *Registry) Register(ch Channel, s Sender) {
	if s == nil {
		return
	}
	r.mu.Lock()
	r.senders[ch] = s
	r.mu.Unlock()
}

// Sender returns the adapter registered for a channel.
func (r *Registry) Sender(ch Channel) (Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.senders[ch]
	return s, ok
}

// Channels lists the channels with a registered adapter.
func (r *Registry) Channels() []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Channel, 0, len(r.senders))
	for ch := range r.senders {
		out = append(out, ch)
	}
	return out
}
