// Package eventrelay relays journaled ledger events to a RabbitMQ topic exchange so other parts of
// the system can follow borrows and returns.
package eventrelay

import (
	"context"
	"errors"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/bookverse/borrowledger/core"
)

const (
	DefaultExchange  = "borrowledger.events"
	routingKeyPrefix = "ledger.book."
	contentTypeJSON  = "application/json"
)

var (
	ErrDialingBroker     = errors.New("dialing the message broker failed")
	ErrDeclaringExchange = errors.New("declaring the exchange failed")
	ErrEncodingMessage   = errors.New("encoding the event message failed")
	ErrPublishingMessage = errors.New("publishing the event message failed")
)

// Channel is the part of *amqp.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Message is the body of a relayed event.
type Message struct {
	Type       string            `json:"type"`
	BookID     core.BookIDString `json:"bookId"`
	OccurredAt time.Time         `json:"occurredAt"`
	Payload    core.DomainEvent  `json:"payload"`
}

// AMQPPublisher publishes to a durable topic exchange. Failure events are not relayed.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       Channel
	exchange string
	now      func() time.Time
}

// Dial connects to url and declares the exchange.
func Dial(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Join(ErrDialingBroker, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()

		return nil, errors.Join(ErrDialingBroker, err)
	}

	publisher, err := NewAMQPPublisher(ch, exchange)
	if err != nil {
		_ = conn.Close()

		return nil, err
	}

	publisher.conn = conn

	return publisher, nil
}

// NewAMQPPublisher declares the exchange on an open channel.
func NewAMQPPublisher(ch Channel, exchange string) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, errors.Join(ErrDeclaringExchange, err)
	}

	return &AMQPPublisher{ch: ch, exchange: exchange, now: time.Now}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, events core.DomainEvents) error {
	for _, event := range events {
		if event == nil || event.IsErrorEvent() {
			continue
		}

		body, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(Message{
			Type:       event.EventType(),
			BookID:     event.ForBook(),
			OccurredAt: event.HasOccurredAt(),
			Payload:    event,
		})
		if err != nil {
			return errors.Join(ErrEncodingMessage, err)
		}

		err = p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(event), false, false, amqp.Publishing{
			ContentType:  contentTypeJSON,
			DeliveryMode: amqp.Persistent,
			Type:         event.EventType(),
			Timestamp:    p.now(),
			Body:         body,
		})
		if err != nil {
			return errors.Join(ErrPublishingMessage, err)
		}
	}

	return nil
}

// Close closes the channel and, when the publisher dialed it, the connection.
func (p *AMQPPublisher) Close() error {
	err := p.ch.Close()

	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
	}

	return err
}

// RoutingKey is ledger.book.<event>, e.g. ledger.book.borrowed for BookBorrowed.
func RoutingKey(event core.DomainEvent) string {
	return routingKeyPrefix + strings.ToLower(strings.TrimPrefix(event.EventType(), "Book"))
}

// NopPublisher drops everything. It stands in when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, core.DomainEvents) error {
	return nil
}
