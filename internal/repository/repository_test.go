package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMock(t *testing.T) (sqlmock.Sqlmock, *TableRepo, *ReservationRepo) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return mock, NewTableRepo(db), NewReservationRepo(db)
}

func TestListTables_ActiveOnly(t *testing.T) {
	mock, tables, _ := newMock(t)
	rows := sqlmock.NewRows([]string{"id", "capacity", "pos_x", "pos_y", "zone", "is_active"}).
		AddRow("A", 2, 0.0, 0.0, "Atrium", true).
		AddRow("B", 4, 1.5, 2.0, nil, true)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM restaurant_tables WHERE is_active = 1 ORDER BY id`)).WillReturnRows(rows)

	got, err := tables.ListTables(context.Background(), true)
	if err != nil {
		t.Fatalf("ListTables: %v", err)
	}
	if len(got) != 2 || got[0].Zone != "Atrium" || got[1].Zone != "" || got[1].Capacity != 4 {
		t.Fatalf("unexpected tables: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestGetTablesByIDs(t *testing.T) {
	mock, tables, _ := newMock(t)
	rows := sqlmock.NewRows([]string{"id", "capacity", "pos_x", "pos_y", "zone", "is_active"}).
		AddRow("C", 6, 3.0, 3.0, "Garden", true)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id IN (?,?) ORDER BY id`)).
		WithArgs("C", "Z").
		WillReturnRows(rows)

	got, err := tables.GetTablesByIDs(context.Background(), []string{"C", "Z"})
	if err != nil {
		t.Fatalf("GetTablesByIDs: %v", err)
	}
	if len(got) != 1 || got[0].ID != "C" {
		t.Fatalf("unexpected tables: %+v", got)
	}

	if got, err := tables.GetTablesByIDs(context.Background(), nil); err != nil || len(got) != 0 {
		t.Fatalf("empty ids: got %v, %v", got, err)
	}
}

func TestGetTable_NotFound(t *testing.T) {
	mock, tables, _ := newMock(t)
	mock.ExpectQuery(`FROM restaurant_tables WHERE id IN`).
		WithArgs("Q").
		WillReturnRows(sqlmock.NewRows([]string{"id", "capacity", "pos_x", "pos_y", "zone", "is_active"}))

	if _, err := tables.GetTable(context.Background(), "Q"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestListReservationsForDate(t *testing.T) {
	mock, _, reservations := newMock(t)
	rows := sqlmock.NewRows([]string{"id", "date", "time", "party_size", "status", "table_id"}).
		AddRow(7, "2025-06-01", "18:00", 4, "CONFIRMED", "A,1").
		AddRow(7, "2025-06-01", "18:00", 4, "CONFIRMED", "B").
		AddRow(9, "2025-06-01", "20:00", 2, "PENDING", nil)
	mock.ExpectQuery(`FROM reservations r`).WithArgs("2025-06-01").WillReturnRows(rows)

	got, err := reservations.ListReservationsForDate(context.Background(), "2025-06-01")
	if err != nil {
		t.Fatalf("ListReservationsForDate: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d reservations", len(got))
	}
	if len(got[0].TableIDs) != 2 || got[0].TableIDs[0] != "A,1" || got[0].TableIDs[1] != "B" {
		t.Fatalf("tables not folded per row: %+v", got[0])
	}
	if got[1].TableIDs == nil || len(got[1].TableIDs) != 0 {
		t.Fatalf("reservation without tables should have an empty list: %+v", got[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestListReservationsForSlot_WrapsErrors(t *testing.T) {
	mock, _, reservations := newMock(t)
	boom := errors.New("boom")
	mock.ExpectQuery(`AND r.reservation_time = \?`).WithArgs("2025-06-01", "19:00").WillReturnError(boom)

	_, err := reservations.ListReservationsForSlot(context.Background(), "2025-06-01", "19:00")
	if !errors.Is(err, boom) {
		t.Fatalf("want wrapped driver error, got %v", err)
	}
}
