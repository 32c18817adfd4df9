package model

// Table is a physical seating unit on the floor plan.  Tables are owned by
// the table-management side of the application; the hold and availability
// code only ever reads them.
//
// Fields:
//  ID       – opaque identifier (restaurant_tables.id).
//  Capacity – number of guests the table seats, always positive.
//  X, Y     – floor-plan position used to score how close tables in a
//             combination are to each other.
//  Zone     – free‑text ambience label such as "Atrium" or "Garden".
//  IsActive – inactive tables are never offered.
type Table struct {
	ID       string  `json:"id"`
	Capacity int     `json:"capacity"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Zone     string  `json:"zone,omitempty"`
	IsActive bool    `json:"is_active"`
}
