package hold

import (
	"context"
	"sync"
	"time"

	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/model"
)

type entry struct {
	hold model.Hold
	// mirror entries are copies of records the Redis backend owns; the rest
	// were created here while Redis was unreachable.
	mirror bool
}

// memoryBackend is the in-process store.  It doubles as the cache of Redis
// records, so its claim checks run under one mutex: a create that finds a
// table free claims it before any other create can look.
type memoryBackend struct {
	mu     sync.Mutex
	holds  map[string]*entry              // hold ID → entry
	claims map[string]string              // tableKey → hold ID
	slots  map[string]map[string]struct{} // slotKey → hold IDs
	now    func() time.Time
}

func newMemoryBackend(now func() time.Time) *memoryBackend {
	return &memoryBackend{
		holds:  make(map[string]*entry),
		claims: make(map[string]string),
		slots:  make(map[string]map[string]struct{}),
		now:    now,
	}
}

func (m *memoryBackend) tryCreate(_ context.Context, h model.Hold, _ time.Duration) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var taken []string
	for _, t := range h.TableIDs {
		if owner, ok := m.claims[tableKey(h.Date, h.Time, t)]; ok {
			if e, ok := m.holds[owner]; ok && e.hold.Live(now) {
				taken = append(taken, t)
			}
		}
	}
	if len(taken) > 0 {
		return taken, nil
	}
	m.insertLocked(h, false)
	return nil, nil
}

func (m *memoryBackend) tryGet(_ context.Context, id string) (*model.Hold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.holds[id]
	if !ok {
		return nil, nil
	}
	h := e.hold.Clone()
	return &h, nil
}

func (m *memoryBackend) tryExtend(_ context.Context, h model.Hold, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.holds[h.ID]
	if !ok || !e.hold.Live(m.now()) {
		return false, nil
	}
	e.hold.ExpiresAt = h.ExpiresAt
	for _, t := range e.hold.TableIDs {
		m.claims[tableKey(e.hold.Date, e.hold.Time, t)] = e.hold.ID
	}
	return true, nil
}

func (m *memoryBackend) tryDelete(_ context.Context, h model.Hold) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.removeLocked(h.ID)
	return ok, nil
}

func (m *memoryBackend) trySlot(_ context.Context, date, clock string) ([]model.Hold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.slots[slotKey(date, clock)]
	out := make([]model.Hold, 0, len(ids))
	for id := range ids {
		if e, ok := m.holds[id]; ok {
			out = append(out, e.hold.Clone())
		}
	}
	return out, nil
}

// localClaims lists the tables of h claimed by live holds that were created
// here while Redis was unreachable.
func (m *memoryBackend) localClaims(h model.Hold) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	var taken []string
	for _, t := range h.TableIDs {
		if e := m.ownerLocked(tableKey(h.Date, h.Time, t)); e != nil && !e.mirror && e.hold.ID != h.ID && e.hold.Live(now) {
			taken = append(taken, t)
		}
	}
	return taken
}

// put caches a record read from or written to Redis, taking over its table
// claims except those held by live local-only holds.
func (m *memoryBackend) put(h model.Hold) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(h.ID)
	m.insertLocked(h.Clone(), true)
}

// remove deletes id and reports what was stored and whether it was only a
// cached copy of a Redis record.
func (m *memoryBackend) remove(id string) (h model.Hold, mirror, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.holds[id]
	if !ok {
		return model.Hold{}, false, false
	}
	m.removeLocked(id)
	return e.hold, e.mirror, true
}

// dropMirror forgets id if it is only a cached copy of a Redis record.
func (m *memoryBackend) dropMirror(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.holds[id]; ok && e.mirror {
		m.removeLocked(id)
	}
}

// syncSlot makes the cached copies for a slot match what Redis returned.
// Holds created locally during an outage are left alone.
func (m *memoryBackend) syncSlot(date, clock string, remote []model.Hold) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keep := make(map[string]struct{}, len(remote))
	for _, h := range remote {
		keep[h.ID] = struct{}{}
		m.removeLocked(h.ID)
		m.insertLocked(h.Clone(), true)
	}
	for id := range m.slots[slotKey(date, clock)] {
		if _, ok := keep[id]; ok {
			continue
		}
		if e, ok := m.holds[id]; ok && e.mirror {
			m.removeLocked(id)
		}
	}
}

// expired removes and returns every hold whose ExpiresAt is at or before now.
func (m *memoryBackend) expired(now time.Time) []model.Hold {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Hold
	for id, e := range m.holds {
		if !e.hold.Live(now) {
			out = append(out, e.hold)
			m.removeLocked(id)
		}
	}
	return out
}

func (m *memoryBackend) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.holds)
}

func (m *memoryBackend) ownerLocked(claim string) *entry {
	id, ok := m.claims[claim]
	if !ok {
		return nil
	}
	return m.holds[id]
}

func (m *memoryBackend) insertLocked(h model.Hold, mirror bool) {
	m.holds[h.ID] = &entry{hold: h, mirror: mirror}
	now := m.now()
	for _, t := range h.TableIDs {
		k := tableKey(h.Date, h.Time, t)
		if cur := m.ownerLocked(k); mirror && cur != nil && !cur.mirror && cur.hold.ID != h.ID && cur.hold.Live(now) {
			continue
		}
		m.claims[k] = h.ID
	}
	sk := slotKey(h.Date, h.Time)
	set, ok := m.slots[sk]
	if !ok {
		set = make(map[string]struct{})
		m.slots[sk] = set
	}
	set[h.ID] = struct{}{}
}

func (m *memoryBackend) removeLocked(id string) (model.Hold, bool) {
	e, ok := m.holds[id]
	if !ok {
		return model.Hold{}, false
	}
	delete(m.holds, id)
	h := e.hold
	for _, t := range h.TableIDs {
		k := tableKey(h.Date, h.Time, t)
		if m.claims[k] == id {
			delete(m.claims, k)
		}
	}
	sk := slotKey(h.Date, h.Time)
	if set, ok := m.slots[sk]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(m.slots, sk)
		}
	}
	return h, true
}
