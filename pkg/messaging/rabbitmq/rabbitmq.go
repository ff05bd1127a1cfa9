package rabbitmq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/booking-api/pkg/circuitbreaker"
	"github.com/jwalitptl/booking-api/pkg/messaging"
)

type Config struct {
	URL      string
	Exchange string
}

// Broker publishes to a durable topic exchange with the channel name as
// routing key. Each Subscribe call gets its own exclusive queue.
type Broker struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	cb       *circuitbreaker.CircuitBreaker
	logger   zerolog.Logger
	mu       sync.Mutex
}

func NewBroker(cfg Config, logger zerolog.Logger) (messaging.Broker, error) {
	if cfg.Exchange == "" {
		cfg.Exchange = "booking.events"
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	if err := channel.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	return &Broker{
		conn:     conn,
		channel:  channel,
		exchange: cfg.Exchange,
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "rabbitmq-broker",
			MaxFailures: 5,
			Timeout:     5 * time.Second,
		}),
		logger: logger.With().Str("component", "rabbitmq-broker").Logger(),
	}, nil
}

func (b *Broker) Publish(ctx context.Context, channel string, message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return b.cb.Execute(func() error {
		// amqp channels are not safe for concurrent publishing
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.channel.PublishWithContext(ctx, b.exchange, channel, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Type:         channel,
			Body:         body,
		})
	})
}

func (b *Broker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch, err := b.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	queue, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(queue.Name, channel, b.exchange, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to bind queue %s to %s: %w", queue.Name, channel, err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, queue.Name, "", false, true, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to consume %s: %w", queue.Name, err)
	}

	msgChan := make(chan []byte, 100)
	go func() {
		defer func() {
			ch.Close()
			close(msgChan)
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					b.logger.Warn().Str("routing_key", channel).Msg("delivery channel closed")
					return
				}
				select {
				case msgChan <- d.Body:
					if err := d.Ack(false); err != nil {
						b.logger.Error().Err(err).Msg("failed to ack delivery")
					}
				case <-ctx.Done():
					_ = d.Nack(false, true)
					return
				}
			}
		}
	}()

	return msgChan, nil
}

func (b *Broker) Close() error {
	if err := b.channel.Close(); err != nil && err != amqp.ErrClosed {
		b.logger.Error().Err(err).Msg("failed to close channel")
	}
	return b.conn.Close()
}
