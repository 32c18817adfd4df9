package model

import "time"

// SeatLock marks a single table as "being looked at" on the live seat map.
// LockID is the token the owner must present to release it.
type SeatLock struct {
	SeatID    string    `json:"seat_id"`
	LockID    string    `json:"lock_id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
