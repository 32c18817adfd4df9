// Package seatlock provides single-table locks for the live seat map: while
// a guest is looking at a table, others see it highlighted as taken.  It uses
// the same Redis-first, in-process-fallback approach as package hold with a
// single key per seat.
package seatlock

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/model"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/queue"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/utils"
)

var (
	// ErrSeatLocked is returned when another live lock holds the seat.
	ErrSeatLocked = errors.New("seat is locked")
	// ErrInvalidParameters is returned for an empty seat or user ID.
	ErrInvalidParameters = errors.New("invalid seat lock parameters")
)

// Deletes KEYS[1] only while it still holds exactly ARGV[1].
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// Config tunes a Locker.  Zero values use the defaults noted.
type Config struct {
	DefaultTTL     time.Duration // 30s
	MaxTTL         time.Duration // 5m
	BackendTimeout time.Duration // 300ms
	RetryInterval  time.Duration
	KeyPrefix      string // "seatlock"
	Now            func() time.Time
}

// Locker hands out per-seat lock tokens.
type Locker struct {
	rdb       redis.UniversalClient
	outbox    *queue.Outbox
	log       *zap.Logger
	cfg       Config
	downUntil atomic.Int64

	mu    sync.Mutex
	local map[string]model.SeatLock
}

// New builds a Locker.  rdb and outbox may be nil.
func New(rdb redis.UniversalClient, outbox *queue.Outbox, log *zap.Logger, cfg Config) *Locker {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 30 * time.Second
	}
	if cfg.MaxTTL <= 0 {
		cfg.MaxTTL = 5 * time.Minute
	}
	if cfg.MaxTTL < cfg.DefaultTTL {
		cfg.MaxTTL = cfg.DefaultTTL
	}
	if cfg.BackendTimeout <= 0 {
		cfg.BackendTimeout = 300 * time.Millisecond
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "seatlock"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Locker{
		rdb:    rdb,
		outbox: outbox,
		log:    utils.OrNop(log).Named("seatlock"),
		cfg:    cfg,
		local:  make(map[string]model.SeatLock),
	}
}

func (l *Locker) key(seatID string) string { return l.cfg.KeyPrefix + ":" + seatID }

func (l *Locker) remoteUp() bool {
	return l.rdb != nil && l.cfg.Now().UnixNano() >= l.downUntil.Load()
}

func (l *Locker) markDown(op string, err error) {
	l.downUntil.Store(l.cfg.Now().Add(l.cfg.RetryInterval).UnixNano())
	l.log.Warn("redis unavailable; using in-process seat locks", zap.String("op", op), zap.Error(err))
}

// backendFailed marks Redis down for err and reports true, unless ctx is
// already done: the caller gave up and must not fall back.
func (l *Locker) backendFailed(ctx context.Context, op string, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	l.markDown(op, err)
	return true
}

// Lock claims seatID for userID.  ttl ≤ 0 uses the default.
func (l *Locker) Lock(ctx context.Context, seatID, userID string, ttl time.Duration) (*model.SeatLock, error) {
	if seatID == "" || userID == "" {
		return nil, ErrInvalidParameters
	}
	switch {
	case ttl <= 0:
		ttl = l.cfg.DefaultTTL
	case ttl > l.cfg.MaxTTL:
		ttl = l.cfg.MaxTTL
	}
	token, err := utils.RandomHex(16)
	if err != nil {
		return nil, err
	}
	now := l.cfg.Now()
	lock := model.SeatLock{SeatID: seatID, LockID: token, UserID: userID, ExpiresAt: now.Add(ttl).UTC()}

	if l.localLive(seatID, now) != nil {
		return nil, ErrSeatLocked
	}

	if l.remoteUp() {
		payload, err := json.Marshal(lock)
		if err != nil {
			return nil, err
		}
		bctx, cancel := context.WithTimeout(ctx, l.cfg.BackendTimeout)
		ok, err := l.rdb.SetNX(bctx, l.key(seatID), payload, ttl).Result()
		cancel()
		if err == nil {
			if !ok {
				return nil, ErrSeatLocked
			}
			l.emit(lock, queue.SeatLocked)
			return &lock, nil
		}
		if !l.backendFailed(ctx, "lock", err) {
			return nil, ctx.Err()
		}
	}

	l.mu.Lock()
	if cur, ok := l.local[seatID]; ok && cur.ExpiresAt.After(now) {
		l.mu.Unlock()
		return nil, ErrSeatLocked
	}
	l.local[seatID] = lock
	l.mu.Unlock()
	l.emit(lock, queue.SeatLocked)
	return &lock, nil
}

// Release frees seatID if lockID is the token it was locked with.
func (l *Locker) Release(ctx context.Context, seatID, lockID string) bool {
	if seatID == "" || lockID == "" {
		return false
	}
	if l.remoteUp() {
		bctx, cancel := context.WithTimeout(ctx, l.cfg.BackendTimeout)
		lock, raw, err := l.remoteGet(bctx, seatID)
		if err == nil && lock != nil && lock.LockID == lockID {
			var n int64
			n, err = releaseScript.Run(bctx, l.rdb, []string{l.key(seatID)}, raw).Int64()
			if err == nil && n == 1 {
				cancel()
				l.emit(*lock, queue.SeatReleased)
				return true
			}
		}
		cancel()
		if err != nil && !l.backendFailed(ctx, "release", err) {
			return false
		}
	}

	l.mu.Lock()
	cur, ok := l.local[seatID]
	if !ok || cur.LockID != lockID {
		l.mu.Unlock()
		return false
	}
	delete(l.local, seatID)
	l.mu.Unlock()
	if !cur.ExpiresAt.After(l.cfg.Now()) {
		l.emit(cur, queue.SeatExpired)
		return false
	}
	l.emit(cur, queue.SeatReleased)
	return true
}

// Get returns the live lock on seatID, or nil.
func (l *Locker) Get(ctx context.Context, seatID string) *model.SeatLock {
	locks := l.List(ctx, []string{seatID})
	if len(locks) == 0 {
		return nil
	}
	return &locks[0]
}

// List returns the live locks among seatIDs, in input order.
func (l *Locker) List(ctx context.Context, seatIDs []string) []model.SeatLock {
	if len(seatIDs) == 0 {
		return nil
	}
	now := l.cfg.Now()
	found := make(map[string]model.SeatLock, len(seatIDs))

	if l.remoteUp() {
		keys := make([]string, len(seatIDs))
		for i, id := range seatIDs {
			keys[i] = l.key(id)
		}
		bctx, cancel := context.WithTimeout(ctx, l.cfg.BackendTimeout)
		vals, err := l.rdb.MGet(bctx, keys...).Result()
		cancel()
		if err != nil {
			if !l.backendFailed(ctx, "list", err) {
				return nil
			}
		} else {
			for _, v := range vals {
				s, ok := v.(string)
				if !ok {
					continue
				}
				var lock model.SeatLock
				if json.Unmarshal([]byte(s), &lock) == nil && lock.ExpiresAt.After(now) {
					found[lock.SeatID] = lock
				}
			}
		}
	}

	out := make([]model.SeatLock, 0, len(found))
	for _, id := range seatIDs {
		if lock, ok := found[id]; ok {
			out = append(out, lock)
			continue
		}
		if lock := l.localLive(id, now); lock != nil {
			out = append(out, *lock)
		}
	}
	return out
}

func (l *Locker) remoteGet(ctx context.Context, seatID string) (*model.SeatLock, string, error) {
	raw, err := l.rdb.Get(ctx, l.key(seatID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	var lock model.SeatLock
	if err := json.Unmarshal([]byte(raw), &lock); err != nil {
		return nil, "", nil
	}
	return &lock, raw, nil
}

// localLive returns the in-process lock on seatID if it is still live,
// purging it when it has lapsed.
func (l *Locker) localLive(seatID string, now time.Time) *model.SeatLock {
	l.mu.Lock()
	cur, ok := l.local[seatID]
	if ok && !cur.ExpiresAt.After(now) {
		delete(l.local, seatID)
	}
	l.mu.Unlock()
	if !ok {
		return nil
	}
	if !cur.ExpiresAt.After(now) {
		l.emit(cur, queue.SeatExpired)
		return nil
	}
	return &cur
}

func (l *Locker) emit(lock model.SeatLock, state string) {
	l.outbox.Emit(queue.NewSeatEvent(lock, state, l.cfg.Now()))
}
