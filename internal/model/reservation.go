package model

// Reservation statuses as stored in reservations.status.  Only rows that are
// not cancelled occupy tables.
const (
	ReservationPending   = "PENDING"
	ReservationConfirmed = "CONFIRMED"
	ReservationCancelled = "CANCELLED"
)

// Reservation is the read view of a persisted booking.  Date is a calendar
// day (YYYY-MM-DD) and Time an HH:MM local start time; TableIDs lists every
// table the party was seated at, ordered by identifier.
type Reservation struct {
	ID        uint64   `json:"id"`
	Date      string   `json:"date"`
	Time      string   `json:"time"`
	PartySize int      `json:"party_size"`
	TableIDs  []string `json:"table_ids"`
	Status    string   `json:"status"`
}

// Occupies reports whether the reservation still blocks its tables.
func (r Reservation) Occupies() bool {
	return r.Status != ReservationCancelled
}
