package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var errOutboxClosed = errors.New("outbox closed")

// Publisher drains an Outbox into a durable topic exchange.  Each event is
// published with its type as routing key, so a push gateway can bind
// "hold.*" or "seat.update" as it needs.
type Publisher struct {
	URL      string
	Exchange string
	Log      *zap.Logger
}

// Run connects, publishes until ctx is cancelled or events is closed, and
// reconnects with exponential backoff whenever the broker goes away.  Events
// keep accumulating in the outbox while disconnected.  The event in flight
// when a connection drops is retried on the next connection.
func (p *Publisher) Run(ctx context.Context, events <-chan Event) error {
	if p.Log == nil {
		p.Log = zap.NewNop()
	}
	log := p.Log
	backoff := time.Second
	var pending *Event
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(p.URL)
		if err != nil {
			log.Warn("event-publisher: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		pending, err = p.publishLoop(ctx, conn, events, pending)
		_ = conn.Close()
		switch {
		case errors.Is(err, errOutboxClosed):
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		}
		log.Warn("event-publisher: publish loop ended; reconnecting", zap.Error(err))
	}
}

func (p *Publisher) publishLoop(ctx context.Context, conn *amqp.Connection, events <-chan Event, pending *Event) (*Event, error) {
	ch, err := conn.Channel()
	if err != nil {
		return pending, fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.ExchangeDeclare(p.Exchange, "topic", true, false, false, false, nil); err != nil {
		return pending, fmt.Errorf("exchange declare: %w", err)
	}
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))

	if pending != nil {
		if err := p.publish(ctx, ch, *pending); err != nil {
			return pending, err
		}
	}
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case amqpErr := <-closed:
			return nil, fmt.Errorf("connection closed: %v", amqpErr)
		case ev, ok := <-events:
			if !ok {
				return nil, errOutboxClosed
			}
			if err := p.publish(ctx, ch, ev); err != nil {
				return &ev, err
			}
		}
	}
}

func (p *Publisher) publish(ctx context.Context, ch *amqp.Channel, ev Event) error {
	msg, err := encode(ev)
	if err != nil {
		// Not retryable; drop it rather than wedge the loop.
		p.Log.Error("event-publisher: marshal failed", zap.String("type", ev.Type), zap.Error(err))
		return nil
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := ch.PublishWithContext(pubCtx, p.Exchange, ev.Type, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

func encode(ev Event) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.OccurredAt,
		Type:         ev.Type,
		Body:         body,
	}, nil
}
