package queue

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Outbox is a bounded channel of events.  Emit never blocks: when the buffer
// is full the event is dropped and counted.  A nil *Outbox discards.
type Outbox struct {
	ch      chan Event
	dropped atomic.Uint64
	log     *zap.Logger
}

// NewOutbox creates an outbox holding up to size undelivered events.
func NewOutbox(size int, log *zap.Logger) *Outbox {
	if size <= 0 {
		size = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Outbox{ch: make(chan Event, size), log: log}
}

// Emit queues ev for delivery.
func (o *Outbox) Emit(ev Event) {
	if o == nil {
		return
	}
	select {
	case o.ch <- ev:
	default:
		n := o.dropped.Add(1)
		o.log.Warn("event outbox full; dropping event",
			zap.String("type", ev.Type),
			zap.Uint64("dropped_total", n),
		)
	}
}

// Events is the receive side, drained by exactly one consumer.
func (o *Outbox) Events() <-chan Event { return o.ch }

// Dropped reports how many events were discarded because the buffer was full.
func (o *Outbox) Dropped() uint64 { return o.dropped.Load() }
