package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/model"
)

// TableRepo reads restaurant_tables:
//
//	id VARCHAR(64) PK, capacity INT, pos_x DOUBLE, pos_y DOUBLE,
//	zone VARCHAR(64) NULL, is_active TINYINT(1)
type TableRepo struct {
	db *sql.DB
}

// NewTableRepo returns a TableRepo bound to db.
func NewTableRepo(db *sql.DB) *TableRepo { return &TableRepo{db: db} }

const tableColumns = `id, capacity, pos_x, pos_y, zone, is_active`

// ListTables returns tables ordered by id, optionally only active ones.
func (r *TableRepo) ListTables(ctx context.Context, activeOnly bool) ([]model.Table, error) {
	q := `SELECT ` + tableColumns + ` FROM restaurant_tables`
	if activeOnly {
		q += ` WHERE is_active = 1`
	}
	q += ` ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return scanTables(rows)
}

// GetTablesByIDs returns the tables among ids that exist, ordered by id.
// Unknown ids are skipped.
func (r *TableRepo) GetTablesByIDs(ctx context.Context, ids []string) ([]model.Table, error) {
	if len(ids) == 0 {
		return []model.Table{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := `SELECT ` + tableColumns + ` FROM restaurant_tables WHERE id IN (` + placeholders + `) ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("get tables: %w", err)
	}
	return scanTables(rows)
}

// GetTable returns a single table or ErrNotFound.
func (r *TableRepo) GetTable(ctx context.Context, id string) (*model.Table, error) {
	tables, err := r.GetTablesByIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, ErrNotFound
	}
	return &tables[0], nil
}

func scanTables(rows *sql.Rows) ([]model.Table, error) {
	defer rows.Close()
	tables := []model.Table{}
	for rows.Next() {
		var (
			t    model.Table
			zone sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Capacity, &t.X, &t.Y, &zone, &t.IsActive); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		t.Zone = zone.String
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tables, nil
}
