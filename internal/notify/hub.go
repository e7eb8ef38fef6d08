// Package notify delivers notifications to interested clients. Records
// are persisted first; live delivery through the in-process hub is best
// effort and never blocks or fails the operation that produced them.
package notify

import (
	"fmt"
	"sync"

	"rgbportal/internal/domain"
)

// Channel names for the realtime feed.
func ApplicantChannel(id int64) string { return fmt.Sprintf("applicant:%d", id) }
func AdminChannel(id int64) string     { return fmt.Sprintf("admin:%d", id) }
func RoleChannel(r domain.Role) string { return "role:" + string(r) }

const subscriberBuffer = 16

// Hub is an in-process publish/subscribe fanout keyed by channel name.
// Subscribers that fall behind their buffer miss messages rather than
// stalling the publisher.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan domain.Notification]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan domain.Notification]struct{})}
}

// Subscribe registers a listener on a channel. The returned cancel func
// must be called to release the subscription.
func (h *Hub) Subscribe(channel string) (<-chan domain.Notification, func()) {
	ch := make(chan domain.Notification, subscriberBuffer)
	h.mu.Lock()
	set, ok := h.subs[channel]
	if !ok {
		set = make(map[chan domain.Notification]struct{})
		h.subs[channel] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[channel]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, channel)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish fans a notification out to every subscriber of the channel.
// Delivery is non-blocking; a full subscriber drops the message.
func (h *Hub) Publish(channel string, n domain.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[channel] {
		select {
		case ch <- n:
		default:
		}
	}
}
