package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/model"
)

// ReservationRepo reads confirmed bookings.  A reservation lives in
// reservations (id, reservation_date DATE, reservation_time CHAR(5),
// party_size, status) and lists its tables in reservation_tables
// (reservation_id, table_id).
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to db.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// One row per reserved table; a reservation without tables yields a single
// row with a NULL table_id.
const reservationSelect = `
	SELECT r.id,
	       DATE_FORMAT(r.reservation_date, '%Y-%m-%d'),
	       r.reservation_time,
	       r.party_size,
	       r.status,
	       rt.table_id
	FROM reservations r
	LEFT JOIN reservation_tables rt ON rt.reservation_id = r.id
	WHERE r.status <> 'CANCELLED' AND r.reservation_date = ?`

// ListReservationsForDate returns every non-cancelled reservation on date,
// ordered by start time.
func (r *ReservationRepo) ListReservationsForDate(ctx context.Context, date string) ([]model.Reservation, error) {
	q := reservationSelect + `
	ORDER BY r.reservation_time, r.id, rt.table_id`
	rows, err := r.db.QueryContext(ctx, q, date)
	if err != nil {
		return nil, fmt.Errorf("list reservations for %s: %w", date, err)
	}
	return scanReservations(rows)
}

// ListReservationsForSlot returns the non-cancelled reservations starting
// exactly at date/clock.
func (r *ReservationRepo) ListReservationsForSlot(ctx context.Context, date, clock string) ([]model.Reservation, error) {
	q := reservationSelect + ` AND r.reservation_time = ?
	ORDER BY r.id, rt.table_id`
	rows, err := r.db.QueryContext(ctx, q, date, clock)
	if err != nil {
		return nil, fmt.Errorf("list reservations for %s %s: %w", date, clock, err)
	}
	return scanReservations(rows)
}

// scanReservations folds consecutive rows of the same reservation into one.
func scanReservations(rows *sql.Rows) ([]model.Reservation, error) {
	defer rows.Close()
	out := []model.Reservation{}
	for rows.Next() {
		var (
			res   model.Reservation
			table sql.NullString
		)
		if err := rows.Scan(&res.ID, &res.Date, &res.Time, &res.PartySize, &res.Status, &table); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		if n := len(out); n == 0 || out[n-1].ID != res.ID {
			res.TableIDs = []string{}
			out = append(out, res)
		}
		if table.Valid {
			last := &out[len(out)-1]
			last.TableIDs = append(last.TableIDs, table.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
