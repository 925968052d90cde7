package realtime

import (
	"encoding/json"
	"sync"

	"sweetshop/internal/domain"
	applog "sweetshop/internal/log"
)

// Subscriber is a live realtime connection as the hub sees it. Send must not
// block indefinitely; a Send error means the subscriber is gone.
type Subscriber interface {
	Send(msg []byte) error
	Close()
}

// Hub fans events out to named channels of subscribers. It is constructed
// explicitly and injected wherever events are published; there is no
// package-level instance.
//
// Delivery is best effort and at most once: a subscriber whose Send fails is
// dropped from the channel on the spot, and a subscriber joining after an
// event misses it permanently.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{channels: make(map[string]map[Subscriber]struct{})}
}

// Subscribe adds sub to the channel, creating the channel on first use.
// Subscribing an already-subscribed handle is a no-op.
func (h *Hub) Subscribe(channel string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.channels[channel]
	if !ok {
		set = make(map[Subscriber]struct{})
		h.channels[channel] = set
	}
	set[sub] = struct{}{}
}

// Unsubscribe removes sub from the channel. Unsubscribing an absent handle
// is a no-op. The channel itself persists, possibly empty, for the process
// lifetime.
func (h *Hub) Unsubscribe(channel string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.channels[channel]; ok {
		delete(set, sub)
	}
}

// Publish delivers env to every current subscriber of the channel. The
// subscriber set is snapshotted under the lock before fan-out, so a
// disconnect mid-delivery cannot corrupt iteration. Each delivery is
// independent: a failing subscriber is unsubscribed and closed without
// affecting the rest.
func (h *Hub) Publish(channel string, env domain.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		applog.Error(nil, "hub.marshal.fail", err, map[string]any{"channel": channel, "type": env.Type})
		return
	}

	h.mu.RLock()
	set := h.channels[channel]
	subs := make([]Subscriber, 0, len(set))
	for sub := range set {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.Send(data); err != nil {
			h.Unsubscribe(channel, sub)
			sub.Close()
			applog.Warn(nil, "hub.subscriber.drop", map[string]any{"channel": channel, "err": err.Error()})
		}
	}
}

// Count reports the current number of subscribers on a channel.
func (h *Hub) Count(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// Shutdown closes every subscriber on every channel.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	var subs []Subscriber
	for ch, set := range h.channels {
		for sub := range set {
			subs = append(subs, sub)
		}
		h.channels[ch] = make(map[Subscriber]struct{})
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}
