package broadcast

import (
	"context"
	"sync"
)

// Hub is an in-process Router
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
	subs   map[*Subscription]struct{}
}

var _ Router = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		topics: map[string]map[*Subscription]struct{}{},
		subs:   map[*Subscription]struct{}{},
	}
}

func (h *Hub) Subscribe(topics []string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan Message, buffer)
	sub := &Subscription{C: ch, ch: ch, topics: append([]string(nil), topics...)}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	for _, topic := range sub.topics {
		set, ok := h.topics[topic]
		if !ok {
			set = map[*Subscription]struct{}{}
			h.topics[topic] = set
		}
		set[sub] = struct{}{}
	}
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes sub and closes its channel. Repeated calls are no-ops.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	_, exists := h.subs[sub]
	if exists {
		delete(h.subs, sub)
		for _, topic := range sub.topics {
			set := h.topics[topic]
			delete(set, sub)
			if len(set) == 0 {
				delete(h.topics, topic)
			}
		}
	}
	h.mu.Unlock()
	if exists {
		close(sub.ch)
	}
}

// Publish never blocks. Subscribers with a full buffer drop the message.
func (h *Hub) Publish(_ context.Context, topic string, payload []byte) error {
	h.deliver(Message{Topic: topic, Payload: payload})
	return nil
}

func (h *Hub) deliver(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.topics[msg.Topic] {
		select {
		case sub.ch <- msg:
		default:
		}
	}
}

// Close unsubscribes everyone.
func (h *Hub) Close() error {
	h.mu.RLock()
	subs := make([]*Subscription, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		h.Unsubscribe(sub)
	}
	return nil
}

// Subscribers reports how many subscriptions listen on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
