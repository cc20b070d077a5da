package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/doodlesbykumbi/ws-lock/pkg/model"
	"github.com/doodlesbykumbi/ws-lock/pkg/server/store"
)

// Change is the wire form of one lock state change
type Change struct {
	Item   int64 `json:"item"`
	User   int64 `json:"user"`
	Locked bool  `json:"locked"`
}

// Batch holds the changes of one category
type Batch struct {
	Category model.ItemType
	Changes  []Change
}

// GroupByCategory splits locks into one batch per category. Batches follow
// the order in which categories first appear; changes keep input order.
func GroupByCategory(locks []store.Lock) []Batch {
	var batches []Batch
	index := map[model.ItemType]int{}
	for _, l := range locks {
		i, ok := index[l.ItemType]
		if !ok {
			i = len(batches)
			index[l.ItemType] = i
			batches = append(batches, Batch{Category: l.ItemType})
		}
		batches[i].Changes = append(batches[i].Changes, Change{
			Item:   l.ItemID,
			User:   l.UserID,
			Locked: l.Locked,
		})
	}
	return batches
}

// Publisher publishes lock changes to the category topics
type Publisher struct {
	router Router
	log    zerolog.Logger
}

func NewPublisher(router Router, log zerolog.Logger) *Publisher {
	return &Publisher{router: router, log: log}
}

// PublishLocks sends one JSON array per category. A failed publish does not
// stop the remaining categories; all failures are returned joined.
func (p *Publisher) PublishLocks(ctx context.Context, locks []store.Lock) error {
	var errs []error
	for _, b := range GroupByCategory(locks) {
		payload, err := json.Marshal(b.Changes)
		if err != nil {
			errs = append(errs, fmt.Errorf("marshal %s changes: %w", b.Category, err))
			continue
		}
		topic := Topic(b.Category)
		if err := p.router.Publish(ctx, topic, payload); err != nil {
			p.log.Error().Err(err).Str("topic", topic).Msg("failed to publish lock changes")
			errs = append(errs, err)
			continue
		}
		p.log.Debug().Str("topic", topic).Int("changes", len(b.Changes)).Msg("published lock changes")
	}
	return errors.Join(errs...)
}
