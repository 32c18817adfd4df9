// Package queue carries hold and seat-lock lifecycle events out of the core.
// Stores emit into an Outbox; the RabbitMQ publisher drains it so real-time
// transports can subscribe without the stores knowing about them.
package queue

import (
	"time"

	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/model"
)

// Event types.  They double as AMQP routing keys.
const (
	HoldCreated  = "hold.created"
	HoldExtended = "hold.extended"
	HoldReleased = "hold.released"
	HoldExpired  = "hold.expired"
	SeatUpdate   = "seat.update"
)

// Seat states carried by SeatUpdate events.
const (
	SeatLocked   = "LOCKED"
	SeatReleased = "RELEASED"
	SeatExpired  = "EXPIRED"
)

// Event is one lifecycle notification.  Exactly one of Hold or Seat is set;
// it is a snapshot of the record at emission time.
type Event struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Hold       *model.Hold     `json:"hold,omitempty"`
	Seat       *model.SeatLock `json:"seat,omitempty"`
	SeatState  string          `json:"seat_state,omitempty"`
}

// NewHoldEvent snapshots h under the given type.
func NewHoldEvent(typ string, h model.Hold, at time.Time) Event {
	c := h.Clone()
	return Event{Type: typ, OccurredAt: at.UTC(), Hold: &c}
}

// NewSeatEvent snapshots l with the given state.  The lock token is left
// out; subscribers only need to know the seat is taken.
func NewSeatEvent(l model.SeatLock, state string, at time.Time) Event {
	l.LockID = ""
	return Event{Type: SeatUpdate, OccurredAt: at.UTC(), Seat: &l, SeatState: state}
}
