package model

import "time"

// Hold is a short-lived claim a guest places on a set of tables while
// completing the booking form.  A hold is owned by the user who created it
// and disappears once it is released or ExpiresAt passes.
//
// Fields:
//  ID        – random identifier returned to the client.
//  UserID    – owner of the hold.
//  Date      – calendar day of the requested slot (YYYY-MM-DD).
//  Time      – start time of the requested slot (HH:MM).
//  TableIDs  – sorted, de-duplicated table identifiers.
//  LockKey   – canonical "date|time|ids" key for the combination.
//  CreatedAt – when the hold was first placed.
//  ExpiresAt – when the hold lapses unless extended.
type Hold struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	TableIDs  []string  `json:"table_ids"`
	LockKey   string    `json:"lock_key"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Live reports whether the hold is still in force at now.
func (h Hold) Live(now time.Time) bool {
	return h.ExpiresAt.After(now)
}

// Clone returns a copy that shares no slices with h.
func (h Hold) Clone() Hold {
	h.TableIDs = append([]string(nil), h.TableIDs...)
	return h
}
