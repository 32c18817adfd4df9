package hold

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/queue"
)

// Run sweeps expired holds out of the in-process store every SweepInterval
// until ctx is done.  Start it once per store.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep emits hold.expired for every cached hold past its ExpiresAt.  A hold
// another process extended in Redis is re-cached instead of expired.
func (s *Store) sweep(ctx context.Context) int {
	now := s.now()
	expired := 0
	for _, h := range s.local.expired(now) {
		if s.remoteUp() {
			if rh, ok := s.remoteGet(ctx, "sweep", h.ID); ok && rh != nil && rh.Live(now) {
				s.local.put(*rh)
				continue
			}
		}
		expired++
		s.log.Debug("hold expired", zap.String("hold_id", h.ID), zap.String("lock_key", h.LockKey))
		s.emit(queue.HoldExpired, h)
	}
	return expired
}
