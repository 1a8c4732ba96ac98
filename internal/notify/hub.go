package notify

import (
	"sync"
	"time"

	"resume-hub/internal/shared/metrics"
	"resume-hub/internal/shared/telemetry"
)

const subscriberBuffer = 16

// Subscription is one subscriber's view of an owner's event stream. C is
// closed when the subscription is cancelled or the hub shuts down.
type Subscription struct {
	C <-chan Event

	hub     *Hub
	ownerID string
	ch      chan Event
	once    sync.Once
}

// Cancel detaches the subscription and closes C.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.remove(s.ownerID, s)
		close(s.ch)
	})
}

// Hub fans events out to per-owner subscribers.
type Hub struct {
	mu     sync.Mutex
	owners map[string]map[*Subscription]struct{}
	closed bool
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{owners: make(map[string]map[*Subscription]struct{})}
}

// Subscribe attaches a new subscriber for the owner. The first event on the
// channel is a connected marker so clients can confirm the stream is live.
func (h *Hub) Subscribe(ownerID string) *Subscription {
	ch := make(chan Event, subscriberBuffer)
	sub := &Subscription{C: ch, hub: h, ownerID: ownerID, ch: ch}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.once.Do(func() { close(ch) })
		return sub
	}
	set, ok := h.owners[ownerID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.owners[ownerID] = set
	}
	set[sub] = struct{}{}
	ch <- Event{Type: TypeConnected, At: time.Now().UTC()}
	h.mu.Unlock()

	return sub
}

// Publish delivers the event to every current subscriber of the owner.
// Delivery is at-most-once: a full subscriber buffer drops the event for
// that subscriber only, never stalling the publisher or its siblings.
func (h *Hub) Publish(ownerID string, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.owners[ownerID] {
		select {
		case sub.ch <- ev:
			metrics.IncNotifyPublished()
		default:
			metrics.IncNotifyDropped()
			telemetry.Warn("notify.event_dropped", map[string]any{
				"owner_id": ownerID,
				"type":     ev.Type,
			})
		}
	}
}

// SubscriberCount reports the owner's current subscriber count.
func (h *Hub) SubscriberCount(ownerID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.owners[ownerID])
}

// Shutdown detaches and closes every subscription. Later Subscribe calls
// return an already-closed stream.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	owners := h.owners
	h.owners = make(map[string]map[*Subscription]struct{})
	h.mu.Unlock()

	for _, set := range owners {
		for sub := range set {
			sub.once.Do(func() { close(sub.ch) })
		}
	}
}

func (h *Hub) remove(ownerID string, sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.owners[ownerID]
	if !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.owners, ownerID)
	}
}
