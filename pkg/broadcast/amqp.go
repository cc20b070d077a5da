package broadcast

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// amqpChannel is the subset of *amqp.Channel the router uses
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPRouter relays publishes between processes over a RabbitMQ topic
// exchange. Each process consumes from its own exclusive queue bound to
// every category topic.
type AMQPRouter struct {
	*Hub
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
	done     chan struct{}
	log      zerolog.Logger
}

var _ Router = (*AMQPRouter)(nil)

// DialAMQP connects to the broker at url and starts an AMQPRouter.
func DialAMQP(url, exchange string, log zerolog.Logger) (*AMQPRouter, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to amqp broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open amqp channel: %w", err)
	}
	r, err := newAMQPRouter(ch, exchange, log)
	if err != nil {
		conn.Close()
		return nil, err
	}
	r.conn = conn
	return r, nil
}

func newAMQPRouter(ch amqpChannel, exchange string, log zerolog.Logger) (*AMQPRouter, error) {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "type-*", exchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue %s: %w", q.Name, err)
	}
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume queue %s: %w", q.Name, err)
	}

	r := &AMQPRouter{
		Hub:      NewHub(),
		ch:       ch,
		exchange: exchange,
		done:     make(chan struct{}),
		log:      log.With().Str("component", "amqp_router").Str("queue", q.Name).Logger(),
	}
	go r.run(deliveries)
	return r, nil
}

func (r *AMQPRouter) run(deliveries <-chan amqp.Delivery) {
	defer close(r.done)
	for d := range deliveries {
		r.Hub.deliver(Message{Topic: d.RoutingKey, Payload: d.Body})
	}
	r.log.Debug().Msg("amqp deliveries closed")
}

// Publish sends payload to every process, including this one.
func (r *AMQPRouter) Publish(ctx context.Context, topic string, payload []byte) error {
	err := r.ch.PublishWithContext(ctx, r.exchange, topic, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        payload,
		Timestamp:   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("amqp publish %s: %w", topic, err)
	}
	return nil
}

func (r *AMQPRouter) Close() error {
	err := r.ch.Close()
	if r.conn != nil {
		if cerr := r.conn.Close(); err == nil {
			err = cerr
		}
	}
	<-r.done
	_ = r.Hub.Close()
	return err
}
