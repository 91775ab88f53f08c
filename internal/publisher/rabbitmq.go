package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"watchwise/internal/domain"
)

// RabbitMQ publishes assistant hand-offs and preference signals. It satisfies
// dispatcher.HandoffSink and dispatcher.PreferenceSink.
type RabbitMQ struct {
	conn                 *amqp.Connection
	channel              *amqp.Channel
	exchange             string
	handoffRoutingKey    string
	preferenceRoutingKey string
	sessionID            string
	logger               *slog.Logger
}

type Config struct {
	URL                  string
	Exchange             string
	HandoffRoutingKey    string
	PreferenceRoutingKey string
	HandoffQueue         string
	PreferenceQueue      string
	SessionID            string
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	bindings := []struct{ queue, key string }{
		{cfg.HandoffQueue, cfg.HandoffRoutingKey},
		{cfg.PreferenceQueue, cfg.PreferenceRoutingKey},
	}
	for _, b := range bindings {
		if err := declareAndBind(ch, cfg.Exchange, b.queue, b.key); err != nil {
			ch.Close()
			conn.Close()
			return nil, err
		}
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"handoff_queue", cfg.HandoffQueue,
		"preference_queue", cfg.PreferenceQueue,
	)

	return &RabbitMQ{
		conn:                 conn,
		channel:              ch,
		exchange:             cfg.Exchange,
		handoffRoutingKey:    cfg.HandoffRoutingKey,
		preferenceRoutingKey: cfg.PreferenceRoutingKey,
		sessionID:            cfg.SessionID,
		logger:               logger,
	}, nil
}

func declareAndBind(ch *amqp.Channel, exchange, queue, key string) error {
	q, err := ch.QueueDeclare(
		queue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}

	if err := ch.QueueBind(q.Name, key, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", queue, err)
	}
	return nil
}

type HandoffMessage struct {
	SessionID string         `json:"session_id"`
	Handoff   domain.Handoff `json:"handoff"`
	Timestamp time.Time      `json:"timestamp"`
}

type PreferenceMessage struct {
	SessionID string                  `json:"session_id"`
	Signal    domain.PreferenceSignal `json:"signal"`
	Timestamp time.Time               `json:"timestamp"`
}

func (r *RabbitMQ) Handoff(ctx context.Context, h domain.Handoff) error {
	msg := HandoffMessage{
		SessionID: r.sessionID,
		Handoff:   h,
		Timestamp: time.Now().UTC(),
	}
	if err := r.publish(ctx, r.handoffRoutingKey, amqp.Persistent, msg); err != nil {
		return err
	}

	r.logger.Debug("published hand-off", "ticker", h.Ticker)
	return nil
}

// Signal publishes a preference signal. Signals are advisory, so they are sent
// as transient messages.
func (r *RabbitMQ) Signal(ctx context.Context, p domain.PreferenceSignal) error {
	msg := PreferenceMessage{
		SessionID: r.sessionID,
		Signal:    p,
		Timestamp: time.Now().UTC(),
	}
	if err := r.publish(ctx, r.preferenceRoutingKey, amqp.Transient, msg); err != nil {
		return err
	}

	r.logger.Debug("published preference signal",
		"kind", p.Kind,
		"subject", p.Subject,
	)
	return nil
}

func (r *RabbitMQ) publish(ctx context.Context, routingKey string, mode uint8, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: mode,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
