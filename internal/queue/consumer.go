package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AuditConsumer binds a durable queue to the events exchange and appends one
// human-readable line per event to <Dir>/holds.log.
type AuditConsumer struct {
	URL      string
	Exchange string
	Queue    string
	Dir      string
	Log      *zap.Logger
}

// Run consumes until ctx is cancelled, reconnecting with backoff.  Messages
// that cannot be handled are rejected without requeue so a bad payload cannot
// spin the loop.
func (a *AuditConsumer) Run(ctx context.Context) error {
	if a.Log == nil {
		a.Log = zap.NewNop()
	}
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(a.URL)
		if err != nil {
			a.Log.Warn("hold-audit: failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
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

		err = a.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.Log.Warn("hold-audit: consume loop ended; reconnecting", zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func (a *AuditConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		a.Log.Warn("hold-audit: set QoS failed", zap.Error(err))
	}
	if err := ch.ExchangeDeclare(a.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	if _, err := ch.QueueDeclare(a.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(a.Queue, "#", a.Exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}

	msgs, err := ch.Consume(a.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := a.handleMessage(d.Body); err != nil {
				a.Log.Warn("hold-audit: handle message failed", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (a *AuditConsumer) handleMessage(body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line, err := formatAuditLine(ev)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", a.Dir, err)
	}
	f, err := os.OpenFile(filepath.Join(a.Dir, "holds.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatAuditLine(ev Event) (string, error) {
	at := ev.OccurredAt.UTC().Format(time.RFC3339)
	switch {
	case ev.Hold != nil:
		h := ev.Hold
		return fmt.Sprintf("[%s] %s | hold_id=%s | user_id=%s | slot=%s %s | tables=[%s] | expires_at=%s\n",
			at, ev.Type, h.ID, h.UserID, h.Date, h.Time, strings.Join(h.TableIDs, ","),
			h.ExpiresAt.UTC().Format(time.RFC3339)), nil
	case ev.Seat != nil:
		s := ev.Seat
		return fmt.Sprintf("[%s] %s | seat_id=%s | state=%s | user_id=%s\n",
			at, ev.Type, s.SeatID, ev.SeatState, s.UserID), nil
	default:
		return "", fmt.Errorf("event %q carries no payload", ev.Type)
	}
}
