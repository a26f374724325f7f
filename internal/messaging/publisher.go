package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"storefront_service/internal/domain"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type amqpPublisher struct {
	mu    sync.Mutex
	ch    channel
	conn  *amqp.Connection
	queue string
	log   *logrus.Logger
}

// NewAMQPPublisher connects to RabbitMQ and declares a durable queue that
// placed orders are published to.
func NewAMQPPublisher(uri, queue string, logger *logrus.Logger) (domain.OrderPublisher, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare %s queue: %w", queue, err)
	}
	logger.Infof("OrderPublisher: publishing orders to RabbitMQ queue %s", q.Name)

	p := newAMQPPublisher(ch, q.Name, logger)
	p.conn = conn
	return p, nil
}

func newAMQPPublisher(ch channel, queue string, logger *logrus.Logger) *amqpPublisher {
	return &amqpPublisher{ch: ch, queue: queue, log: logger}
}

func (p *amqpPublisher) Publish(ctx context.Context, order *domain.Order) error {
	body, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to encode order %s: %w", order.ID, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx,
		"",
		p.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    order.ID,
			Timestamp:    order.PlacedAt,
			Type:         "OrderPlaced",
			Body:         body,
		},
	)
	if err != nil {
		p.log.Errorf("OrderPublisher: failed to publish order %s: %v", order.ID, err)
		return fmt.Errorf("failed to publish order %s: %w", order.ID, err)
	}
	p.log.Infof("OrderPublisher: published order %s to %s", order.ID, p.queue)
	return nil
}

func (p *amqpPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// logPublisher records orders in the log only. It is used when no broker is
// configured.
type logPublisher struct {
	log *logrus.Logger
}

func NewLogPublisher(logger *logrus.Logger) domain.OrderPublisher {
	return &logPublisher{log: logger}
}

func (p *logPublisher) Publish(_ context.Context, order *domain.Order) error {
	p.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"session":  order.SessionID,
		"items":    len(order.Items),
		"total":    order.Summary.Total.String(),
	}).Info("OrderPublisher: order placed")
	return nil
}

func (p *logPublisher) Close() error { return nil }
