package availability

import (
	"math"
	"sort"
	"strings"

	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/model"
)

const (
	maxComboTables = 3
	maxCombos      = 5
)

type candidate struct {
	ids    []string // sorted
	key    string
	tables int
	extra  int
	score  float64
}

// SuggestCombos proposes up to five groupings of two or three tables whose
// combined capacity seats partySize.  Fewer tables rank first, then less
// wasted capacity, then a layout score that penalizes mixing zones and
// spreading tables apart.  It returns an empty slice when nothing fits.
func SuggestCombos(tables []model.Table, partySize int) [][]string {
	if len(tables) < 2 || partySize <= 0 {
		return [][]string{}
	}
	sorted := append([]model.Table(nil), tables...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Capacity != sorted[j].Capacity {
			return sorted[i].Capacity < sorted[j].Capacity
		}
		return sorted[i].ID < sorted[j].ID
	})

	seen := make(map[string]struct{})
	var candidates []candidate
	picked := make([]model.Table, 0, maxComboTables)

	var walk func(start, capacity int)
	walk = func(start, capacity int) {
		if len(picked) >= 2 && capacity >= partySize {
			if c := newCandidate(picked, capacity, partySize); !contains(seen, c.key) {
				seen[c.key] = struct{}{}
				candidates = append(candidates, c)
			}
		}
		if len(picked) == maxComboTables || capacity >= 2*partySize {
			return
		}
		for i := start; i < len(sorted); i++ {
			picked = append(picked, sorted[i])
			walk(i+1, capacity+sorted[i].Capacity)
			picked = picked[:len(picked)-1]
		}
	}
	walk(0, 0)

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.tables != b.tables {
			return a.tables < b.tables
		}
		if a.extra != b.extra {
			return a.extra < b.extra
		}
		if a.score != b.score {
			return a.score < b.score
		}
		return a.key < b.key
	})
	if len(candidates) > maxCombos {
		candidates = candidates[:maxCombos]
	}
	out := make([][]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.ids
	}
	return out
}

func newCandidate(picked []model.Table, capacity, partySize int) candidate {
	ids := make([]string, len(picked))
	for i, t := range picked {
		ids[i] = t.ID
	}
	sort.Strings(ids)
	extra := capacity - partySize
	return candidate{
		ids:    ids,
		key:    strings.Join(ids, ","),
		tables: len(picked),
		extra:  extra,
		score:  1000*zonePenalty(picked) + 10*float64(extra) + pairwiseDistance(picked),
	}
}

func zonePenalty(tables []model.Table) float64 {
	for _, t := range tables[1:] {
		if t.Zone != tables[0].Zone {
			return 1
		}
	}
	return 0
}

func pairwiseDistance(tables []model.Table) float64 {
	sum := 0.0
	for i := 0; i < len(tables); i++ {
		for j := i + 1; j < len(tables); j++ {
			sum += math.Hypot(tables[i].X-tables[j].X, tables[i].Y-tables[j].Y)
		}
	}
	return sum
}

func contains(set map[string]struct{}, k string) bool {
	_, ok := set[k]
	return ok
}
