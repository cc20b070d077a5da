package broadcast

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctxPing, cancel := context.WithTimeout(ctx, time.Second*2)
	defer cancel()
	if err := client.Ping(ctxPing).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// RedisRouter relays publishes between processes over Redis pub/sub. Each
// process holds one pattern subscription and re-fans messages into its
// local Hub.
type RedisRouter struct {
	*Hub
	client *redis.Client
	prefix string
	pubsub *redis.PubSub
	done   chan struct{}
	log    zerolog.Logger

	// ownsClient is set by DialRedisRouter; Close then closes client too
	ownsClient bool
}

var _ Router = (*RedisRouter)(nil)

// DialRedisRouter connects a client of its own and builds a router on it.
func DialRedisRouter(ctx context.Context, addr, password string, db int, prefix string, log zerolog.Logger) (*RedisRouter, error) {
	client, err := NewRedisClient(ctx, addr, password, db)
	if err != nil {
		return nil, err
	}
	r, err := NewRedisRouter(ctx, client, prefix, log)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	r.ownsClient = true
	return r, nil
}

// NewRedisRouter builds a router on a client the caller keeps ownership of.
func NewRedisRouter(ctx context.Context, client *redis.Client, prefix string, log zerolog.Logger) (*RedisRouter, error) {
	pubsub := client.PSubscribe(ctx, prefix+"type-*")
	// Wait for the subscription to be confirmed so publishes made right
	// after construction are not missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %stype-*: %w", prefix, err)
	}

	r := &RedisRouter{
		Hub:    NewHub(),
		client: client,
		prefix: prefix,
		pubsub: pubsub,
		done:   make(chan struct{}),
		log:    log.With().Str("component", "redis_router").Logger(),
	}
	go r.run()
	return r, nil
}

func (r *RedisRouter) run() {
	defer close(r.done)
	for msg := range r.pubsub.Channel() {
		topic := strings.TrimPrefix(msg.Channel, r.prefix)
		r.Hub.deliver(Message{Topic: topic, Payload: []byte(msg.Payload)})
	}
	r.log.Debug().Msg("redis subscription closed")
}

// Publish sends payload to every process, including this one.
func (r *RedisRouter) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := r.client.Publish(ctx, r.prefix+topic, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", topic, err)
	}
	return nil
}

func (r *RedisRouter) Close() error {
	err := r.pubsub.Close()
	<-r.done
	_ = r.Hub.Close()
	if r.ownsClient {
		err = errors.Join(err, r.client.Close())
	}
	return err
}
