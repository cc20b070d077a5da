package broadcast

import (
	"context"

	"github.com/doodlesbykumbi/ws-lock/pkg/model"
)

// DefaultBuffer is used when Subscribe is given a non-positive buffer
const DefaultBuffer = 32

// Message is one published payload
type Message struct {
	Topic   string
	Payload []byte
}

// Subscription receives messages for a fixed set of topics. C is closed
// by Unsubscribe.
type Subscription struct {
	C      <-chan Message
	ch     chan Message
	topics []string
}

// Topics returns the topics the subscription listens on.
func (s *Subscription) Topics() []string {
	return s.topics
}

// Router routes payloads to subscribers by topic
type Router interface {
	Subscribe(topics []string, buffer int) *Subscription
	Unsubscribe(sub *Subscription)
	Publish(ctx context.Context, topic string, payload []byte) error
	Close() error
}

// Topic returns the router topic for a category
func Topic(t model.ItemType) string {
	return t.Topic()
}

// Topics maps categories to router topics.
func Topics(types []model.ItemType) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, Topic(t))
	}
	return out
}
