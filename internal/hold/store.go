// Package hold implements short-lived table holds: a guest claims a set of
// tables for a slot while filling in the booking form, and no other guest can
// claim any of those tables until the hold is released or expires.
//
// Redis is the authority whenever it answers.  When it does not, the store
// degrades to an in-process map with the same semantics; mutual exclusion
// then only spans the current process.
package hold

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/model"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/queue"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/utils"
)

// Config tunes a Store.  Zero values fall back to the defaults below.
type Config struct {
	DefaultTTL     time.Duration // 5m
	MaxTTL         time.Duration // 30m
	BackendTimeout time.Duration // 300ms per Redis call
	RetryInterval  time.Duration // how long Redis is skipped after a failure; 0 retries every call
	SweepInterval  time.Duration // 1s
	KeyPrefix      string        // "hold"
	Now            func() time.Time
}

func (c Config) withDefaults() Config {
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = 5 * time.Minute
	}
	if c.MaxTTL <= 0 {
		c.MaxTTL = 30 * time.Minute
	}
	if c.MaxTTL < c.DefaultTTL {
		c.MaxTTL = c.DefaultTTL
	}
	if c.BackendTimeout <= 0 {
		c.BackendTimeout = 300 * time.Millisecond
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Second
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "hold"
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Store creates, extends, releases and lists holds.  It is safe for
// concurrent use.
type Store struct {
	remote    backend // nil when no Redis client was supplied
	local     *memoryBackend
	outbox    *queue.Outbox
	log       *zap.Logger
	cfg       Config
	downUntil atomic.Int64 // unix nanos; Redis is skipped before this instant
}

// NewStore builds a store on rdb.  rdb may be nil, in which case only the
// in-process backend is used.  Events go to outbox, which may also be nil.
func NewStore(rdb redis.UniversalClient, outbox *queue.Outbox, log *zap.Logger, cfg Config) *Store {
	cfg = cfg.withDefaults()
	s := &Store{
		local:  newMemoryBackend(cfg.Now),
		outbox: outbox,
		log:    utils.OrNop(log).Named("hold"),
		cfg:    cfg,
	}
	if rdb != nil {
		s.remote = newRedisBackend(rdb, cfg.KeyPrefix)
	}
	return s
}

func (s *Store) now() time.Time { return s.cfg.Now() }

// remoteUp is the single reachability check every operation branches on.
func (s *Store) remoteUp() bool {
	return s.remote != nil && s.now().UnixNano() >= s.downUntil.Load()
}

func (s *Store) markDown(op string, err error) {
	s.downUntil.Store(s.now().Add(s.cfg.RetryInterval).UnixNano())
	s.log.Warn("redis unavailable; using in-process holds",
		zap.String("op", op),
		zap.Error(err),
	)
}

// backendFailed records err as a Redis failure unless ctx itself is done.
// A caller that gave up says nothing about Redis, so nothing changes and the
// in-process path must not be taken; it reports false then.
func (s *Store) backendFailed(ctx context.Context, op string, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	s.markDown(op, err)
	return true
}

func (s *Store) backendCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.BackendTimeout)
}

func (s *Store) ttl(requested time.Duration) time.Duration {
	switch {
	case requested <= 0:
		return s.cfg.DefaultTTL
	case requested > s.cfg.MaxTTL:
		return s.cfg.MaxTTL
	default:
		return requested
	}
}

func (s *Store) emit(typ string, h model.Hold) {
	s.outbox.Emit(queue.NewHoldEvent(typ, h, s.now()))
}

// CreateHold claims tableIDs at date/clock for userID.  ttl ≤ 0 uses the
// default.  It returns a *ConflictError when any table is already held.
func (s *Store) CreateHold(ctx context.Context, date, clock string, tableIDs []string, userID string, ttl time.Duration) (*model.Hold, error) {
	ids := NormalizeTableIDs(tableIDs)
	if date == "" || clock == "" || userID == "" || len(ids) == 0 {
		return nil, ErrInvalidHoldParameters
	}
	if err := utils.ValidSlot(date, clock); err != nil {
		return nil, err
	}
	ttl = s.ttl(ttl)
	now := s.now()
	h := model.Hold{
		ID:        uuid.NewString(),
		UserID:    userID,
		Date:      date,
		Time:      clock,
		TableIDs:  ids,
		LockKey:   LockKey(date, clock, ids),
		CreatedAt: now.UTC(),
		ExpiresAt: now.Add(ttl).UTC(),
	}

	// Holds placed here during an outage are unknown to Redis.
	if taken := s.local.localClaims(h); len(taken) > 0 {
		return nil, &ConflictError{TableIDs: taken}
	}

	var (
		taken []string
		err   error
		done  bool
	)
	if s.remoteUp() {
		bctx, cancel := s.backendCtx(ctx)
		taken, err = s.remote.tryCreate(bctx, h, ttl)
		cancel()
		if err != nil {
			if !s.backendFailed(ctx, "create", err) {
				return nil, ctx.Err()
			}
		} else {
			done = true
			if len(taken) == 0 {
				s.local.put(h)
			}
		}
	}
	if !done {
		taken, _ = s.local.tryCreate(ctx, h, ttl)
	}
	if len(taken) > 0 {
		return nil, &ConflictError{TableIDs: taken}
	}

	s.log.Debug("hold created",
		zap.String("hold_id", h.ID),
		zap.String("lock_key", h.LockKey),
		zap.String("user_id", userID),
		zap.Time("expires_at", h.ExpiresAt),
	)
	s.emit(queue.HoldCreated, h)
	out := h.Clone()
	return &out, nil
}

// remoteGet asks Redis for id.  ok is false when Redis did not answer; the
// caller then checks ctx before falling back.
func (s *Store) remoteGet(ctx context.Context, op, id string) (h *model.Hold, ok bool) {
	bctx, cancel := s.backendCtx(ctx)
	defer cancel()
	h, err := s.remote.tryGet(bctx, id)
	if err != nil {
		s.backendFailed(ctx, op, err)
		return nil, false
	}
	return h, true
}

// GetHoldByID returns the live hold with the given ID, or nil.
func (s *Store) GetHoldByID(ctx context.Context, id string) *model.Hold {
	if id == "" {
		return nil
	}
	now := s.now()
	if s.remoteUp() {
		if h, ok := s.remoteGet(ctx, "get", id); ok {
			if h != nil && h.Live(now) {
				s.local.put(*h)
				return h
			}
			s.local.dropMirror(id)
		} else if ctx.Err() != nil {
			return nil
		}
	}
	h, _ := s.local.tryGet(ctx, id)
	if h == nil || !h.Live(now) {
		return nil
	}
	return h
}

// ReleaseHold removes the hold.  It reports whether a live hold was found;
// releasing an unknown or expired hold returns false.
func (s *Store) ReleaseHold(ctx context.Context, id string) bool {
	if id == "" {
		return false
	}
	now := s.now()
	var released *model.Hold
	answered := false
	if s.remoteUp() {
		if h, ok := s.remoteGet(ctx, "release", id); ok {
			answered = true
			if h != nil {
				bctx, cancel := s.backendCtx(ctx)
				deleted, err := s.remote.tryDelete(bctx, *h)
				cancel()
				switch {
				case err != nil:
					if !s.backendFailed(ctx, "release", err) {
						return false
					}
					answered = false
				case deleted:
					released = h
				}
			}
		} else if ctx.Err() != nil {
			return false
		}
	}
	// A cached copy Redis no longer knows about was released elsewhere.
	if h, mirror, ok := s.local.remove(id); ok && released == nil && !(answered && mirror) {
		if h.Live(now) {
			released = &h
		} else {
			s.emit(queue.HoldExpired, h)
		}
	}
	if released == nil {
		return false
	}
	s.log.Debug("hold released", zap.String("hold_id", id), zap.String("lock_key", released.LockKey))
	s.emit(queue.HoldReleased, *released)
	return true
}

// ExtendHold restarts the hold's TTL from now.  It returns nil when the hold
// is unknown or has already expired.
func (s *Store) ExtendHold(ctx context.Context, id string, ttl time.Duration) *model.Hold {
	if id == "" {
		return nil
	}
	ttl = s.ttl(ttl)
	now := s.now()
	expiresAt := now.Add(ttl).UTC()

	if s.remoteUp() {
		if h, ok := s.remoteGet(ctx, "extend", id); ok {
			if h == nil {
				s.local.dropMirror(id)
			} else {
				h.ExpiresAt = expiresAt
				bctx, cancel := s.backendCtx(ctx)
				extended, err := s.remote.tryExtend(bctx, *h, ttl)
				cancel()
				switch {
				case err != nil:
					if !s.backendFailed(ctx, "extend", err) {
						return nil
					}
				case extended:
					s.local.put(*h)
					s.logExtended(*h)
					return h
				default:
					s.local.dropMirror(id)
					return nil
				}
			}
		} else if ctx.Err() != nil {
			return nil
		}
	}

	cur, _ := s.local.tryGet(ctx, id)
	if cur == nil {
		return nil
	}
	cur.ExpiresAt = expiresAt
	if ok, _ := s.local.tryExtend(ctx, *cur, ttl); !ok {
		return nil
	}
	s.logExtended(*cur)
	return cur
}

func (s *Store) logExtended(h model.Hold) {
	s.log.Debug("hold extended", zap.String("hold_id", h.ID), zap.Time("expires_at", h.ExpiresAt))
	s.emit(queue.HoldExtended, h)
}

// ListHoldsForSlot returns the live holds for date/clock, oldest first.
// Expired entries are omitted even if they have not been swept yet.
func (s *Store) ListHoldsForSlot(ctx context.Context, date, clock string) []model.Hold {
	if s.remoteUp() {
		bctx, cancel := s.backendCtx(ctx)
		remote, err := s.remote.trySlot(bctx, date, clock)
		cancel()
		if err != nil {
			if !s.backendFailed(ctx, "list", err) {
				return nil
			}
		} else {
			s.local.syncSlot(date, clock, remote)
		}
	}

	all, _ := s.local.trySlot(ctx, date, clock)
	now := s.now()
	live := all[:0]
	for _, h := range all {
		if h.Live(now) {
			live = append(live, h)
		}
	}
	sort.Slice(live, func(i, j int) bool {
		if !live[i].CreatedAt.Equal(live[j].CreatedAt) {
			return live[i].CreatedAt.Before(live[j].CreatedAt)
		}
		return live[i].ID < live[j].ID
	})
	return live
}
