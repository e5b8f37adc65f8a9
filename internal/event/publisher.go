// Package event publishes domain events to a RabbitMQ topic exchange so
// other services can react to finished attempts and bank replacements.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Routing keys.
const (
	AttemptFinished = "attempt.finished"
	BankReplaced    = "bank.replaced"
)

// Publisher sends one event. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
	Close()
}

// Envelope is the message body on the wire.
type Envelope struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// AttemptFinishedPayload is sent when an attempt is scored.
type AttemptFinishedPayload struct {
	AttemptID  int       `json:"attempt_id"`
	UserID     int       `json:"user_id"`
	Score      int       `json:"score"`
	Percent    int       `json:"percent"`
	Total      int       `json:"total_questions"`
	FinishedAt time.Time `json:"finished_at"`
	Reason     string    `json:"reason"`
}

// BankReplacedPayload is sent after a new question bank is stored.
type BankReplacedPayload struct {
	TotalQuestions int  `json:"total_questions"`
	QuotaTotal     int  `json:"quota_total"`
	Ready          bool `json:"ready"`
}

func encode(eventType string, payload interface{}, now time.Time) ([]byte, error) {
	return json.Marshal(Envelope{Type: eventType, OccurredAt: now.UTC(), Payload: payload})
}

// ─── RabbitMQ ───────────────────────────────────────────────────────

// RabbitPublisher publishes to a durable topic exchange using the event
// type as routing key.
type RabbitPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	log      zerolog.Logger
}

// NewRabbitPublisher dials url and declares the exchange.
func NewRabbitPublisher(url, exchange string, log zerolog.Logger) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	log.Info().Str("exchange", exchange).Msg("Connected to RabbitMQ")
	return &RabbitPublisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		log:      log.With().Str("component", "event_publisher").Logger(),
	}, nil
}

// Publish implements Publisher. amqp channels are not safe for concurrent
// publishing, so calls are serialized.
func (p *RabbitPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	body, err := encode(eventType, payload, time.Now())
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		eventType, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	p.log.Debug().Str("type", eventType).Msg("Event published")
	return nil
}

func (p *RabbitPublisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// ─── No-op ──────────────────────────────────────────────────────────

type nopPublisher struct{}

// Nop returns a Publisher that drops every event. Used when no broker is configured.
func Nop() Publisher { return nopPublisher{} }

func (nopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (nopPublisher) Close()                                             {}

// Connect returns a RabbitPublisher when url is set, Nop otherwise.
func Connect(url, exchange string, log zerolog.Logger) (Publisher, error) {
	if url == "" {
		log.Info().Msg("AMQP_URL not set, domain events disabled")
		return Nop(), nil
	}
	return NewRabbitPublisher(url, exchange, log)
}
