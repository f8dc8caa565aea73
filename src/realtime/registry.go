package realtime

import (
	"sort"
	"sync"
	"sync/atomic"

	"rl-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// Channel Registry
//
// Tracks which channels have at least one live subscriber, independent of
// connection state. The registry never touches the socket itself; the client
// reacts to first-subscriber / last-subscriber transitions by sending control
// frames, and replays Channels() after every reconnect.
// -----------------------------------------------------------------------------

// MessageHandler consumes one routed inbound message.
type MessageHandler func(msg *models.MInboundMessage)

// -----------------------------------------------------------------------------

// Subscription is a live (channel, handler) registration. Close releases it;
// releasing an already-released subscription is a no-op.
type Subscription struct {
	channel string
	handler MessageHandler
	id      uint64

	closed   atomic.Bool
	registry *Registry
	release  func(*Subscription)
}

// -----------------------------------------------------------------------------

// Channel returns the channel this subscription listens on.
func (s *Subscription) Channel() string {
	return s.channel
}

// -----------------------------------------------------------------------------

// Close releases the subscription. After Close returns the handler is never
// invoked again, even for frames already in flight.
func (s *Subscription) Close() {
	if s.release != nil {
		s.release(s)
	}
}

// -----------------------------------------------------------------------------

// active reports whether the subscription may still be dispatched to.
// The router checks this at dispatch time, not at receive time.
func (s *Subscription) active() bool {
	return !s.closed.Load()
}

// -----------------------------------------------------------------------------

// Registry holds the channel -> subscriptions map.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]map[uint64]*Subscription
	seq  uint64
}

// -----------------------------------------------------------------------------

func NewRegistry() *Registry {
	return &Registry{
		subs: make(map[string]map[uint64]*Subscription),
	}
}

// -----------------------------------------------------------------------------

// Add registers a handler under a channel. Reports whether this is the
// channel's first subscriber (the caller then announces interest upstream).
func (r *Registry) Add(channel string, handler MessageHandler) (*Subscription, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	sub := &Subscription{
		channel:  channel,
		handler:  handler,
		id:       r.seq,
		registry: r,
	}

	set, ok := r.subs[channel]
	if !ok {
		set = make(map[uint64]*Subscription)
		r.subs[channel] = set
	}
	set[sub.id] = sub

	return sub, len(set) == 1
}

// -----------------------------------------------------------------------------

// Remove releases a subscription. Idempotent: removing an absent or
// already-removed subscription reports removed=false and has no side effects.
// last reports whether the channel lost its final subscriber.
func (r *Registry) Remove(sub *Subscription) (removed, last bool) {
	if sub == nil {
		return false, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.subs[sub.channel]
	if !ok {
		return false, false
	}
	if _, ok := set[sub.id]; !ok {
		return false, false
	}

	delete(set, sub.id)
	sub.closed.Store(true)

	if len(set) == 0 {
		delete(r.subs, sub.channel)
		return true, true
	}
	return true, false
}

// -----------------------------------------------------------------------------

// Channels returns the sorted set of channels with at least one subscriber.
// This is what gets replayed as subscribe frames after a reconnect.
func (r *Registry) Channels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	channels := make([]string, 0, len(r.subs))
	for ch := range r.subs {
		channels = append(channels, ch)
	}
	sort.Strings(channels)
	return channels
}

// -----------------------------------------------------------------------------

// Subscribers returns a snapshot of the channel's current subscriptions.
// Dispatch re-checks each subscription's liveness before invoking it.
func (r *Registry) Subscribers(channel string) []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.subs[channel]
	if !ok {
		return nil
	}

	snapshot := make([]*Subscription, 0, len(set))
	for _, sub := range set {
		snapshot = append(snapshot, sub)
	}
	// Stable delivery order for siblings on the same channel
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].id < snapshot[j].id })
	return snapshot
}

// -----------------------------------------------------------------------------

// Count returns the number of subscriptions on a channel.
func (r *Registry) Count(channel string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[channel])
}
