package model

// AvailabilityResult is computed per request and never persisted.
// Combos is only populated when no single free table seats the party; each
// combo lists table IDs in ascending order and combos are ranked best first.
type AvailabilityResult struct {
	Date              string     `json:"date"`
	Time              string     `json:"time"`
	PartySize         int        `json:"party_size"`
	AvailableTableIDs []string   `json:"available_table_ids"`
	HeldTableIDs      []string   `json:"held_table_ids"`
	ReservedTableIDs  []string   `json:"reserved_table_ids"`
	Combos            [][]string `json:"combos"`
}
