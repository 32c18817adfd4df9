// Package repository reads the restaurant's persisted tables and bookings
// from MySQL.  The hold and availability code only reads through it; writes
// belong to the table-management and booking services.
package repository

import "errors"

// ErrNotFound is returned when a lookup by ID yields no rows.
var ErrNotFound = errors.New("not found")
