package hold

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/model"
)

// backend is one place holds can live.  The store talks to the Redis backend
// while it answers and to the in-process one otherwise; both report business
// outcomes (conflict, not found) as values and reserve error for "could not
// reach the backend".
type backend interface {
	// tryCreate claims every table of h for ttl.  A non-empty result lists
	// the tables already claimed by another hold; nothing is written then.
	tryCreate(ctx context.Context, h model.Hold, ttl time.Duration) ([]string, error)
	// tryGet returns nil when no record exists.
	tryGet(ctx context.Context, id string) (*model.Hold, error)
	// tryExtend rewrites h (with its new ExpiresAt) for ttl, provided h still
	// owns all of its tables.
	tryExtend(ctx context.Context, h model.Hold, ttl time.Duration) (bool, error)
	// tryDelete removes h and whatever table claims it still owns.
	tryDelete(ctx context.Context, h model.Hold) (bool, error)
	// trySlot lists the records indexed under date/clock, expired or not.
	trySlot(ctx context.Context, date, clock string) ([]model.Hold, error)
}

// NormalizeTableIDs trims, de-duplicates and sorts ids.
func NormalizeTableIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// LockKey is the canonical identifier of a table combination at a slot.
// ids must already be normalized.
func LockKey(date, clock string, ids []string) string {
	return date + "|" + clock + "|" + strings.Join(ids, ",")
}

func slotKey(date, clock string) string { return date + "|" + clock }

func tableKey(date, clock, tableID string) string { return date + "|" + clock + "|" + tableID }
