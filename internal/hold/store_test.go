package hold

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/queue"
	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/utils"
)

const (
	testDate = "2025-06-01"
	testTime = "19:00"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newLocalStore(t *testing.T, clock *fakeClock) (*Store, *queue.Outbox) {
	t.Helper()
	out := queue.NewOutbox(64, nil)
	return NewStore(nil, out, nil, Config{DefaultTTL: time.Minute, Now: clock.Now}), out
}

func newRedisStore(t *testing.T, mr *miniredis.Miniredis, clock *fakeClock) (*Store, *queue.Outbox) {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	out := queue.NewOutbox(64, nil)
	return NewStore(rdb, out, nil, Config{DefaultTTL: time.Minute, BackendTimeout: time.Second, Now: clock.Now}), out
}

func drain(o *queue.Outbox) []string {
	var types []string
	for {
		select {
		case ev := <-o.Events():
			types = append(types, ev.Type)
		default:
			return types
		}
	}
}

func TestCreateHold_RejectsInvalidParameters(t *testing.T) {
	s, out := newLocalStore(t, newFakeClock())
	ctx := context.Background()

	cases := []struct {
		name        string
		date, clock string
		ids         []string
		user        string
		want        error
	}{
		{"no date", "", testTime, []string{"A"}, "u1", ErrInvalidHoldParameters},
		{"no time", testDate, "", []string{"A"}, "u1", ErrInvalidHoldParameters},
		{"no tables", testDate, testTime, nil, "u1", ErrInvalidHoldParameters},
		{"blank tables", testDate, testTime, []string{" ", ""}, "u1", ErrInvalidHoldParameters},
		{"no user", testDate, testTime, []string{"A"}, "", ErrInvalidHoldParameters},
		{"malformed date", "01/06/2025", testTime, []string{"A"}, "u1", utils.ErrMalformedTimeInput},
		{"malformed time", testDate, "7pm", []string{"A"}, "u1", utils.ErrMalformedTimeInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, err := s.CreateHold(ctx, tc.date, tc.clock, tc.ids, tc.user, 0)
			if !errors.Is(err, tc.want) || h != nil {
				t.Fatalf("got (%v, %v), want error %v", h, err, tc.want)
			}
		})
	}
	if s.local.size() != 0 || len(drain(out)) != 0 {
		t.Fatal("rejected requests must not touch state or emit events")
	}
}

func TestCreateHold_SameTablesConflict(t *testing.T) {
	s, out := newLocalStore(t, newFakeClock())
	ctx := context.Background()

	first, err := s.CreateHold(ctx, testDate, testTime, []string{"B", "A", "A"}, "user1", 0)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if got := first.LockKey; got != "2025-06-01|19:00|A,B" {
		t.Fatalf("lock key = %q", got)
	}

	_, err = s.CreateHold(ctx, testDate, testTime, []string{"A", "B"}, "user2", 0)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("second create: want ErrConflict, got %v", err)
	}
	if got := drain(out); len(got) != 1 || got[0] != queue.HoldCreated {
		t.Fatalf("events = %v, want only hold.created", got)
	}
}

func TestCreateHold_OverlappingTablesConflict(t *testing.T) {
	s, _ := newLocalStore(t, newFakeClock())
	ctx := context.Background()

	if _, err := s.CreateHold(ctx, testDate, testTime, []string{"A", "B"}, "user1", 0); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := s.CreateHold(ctx, testDate, testTime, []string{"B", "C"}, "user2", 0)
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("want *ConflictError, got %v", err)
	}
	if len(ce.TableIDs) != 1 || ce.TableIDs[0] != "B" {
		t.Fatalf("conflicting tables = %v, want [B]", ce.TableIDs)
	}

	if _, err := s.CreateHold(ctx, testDate, "21:00", []string{"B", "C"}, "user2", 0); err != nil {
		t.Fatalf("other slot should be free: %v", err)
	}
}

func TestReleaseHold_Idempotent(t *testing.T) {
	s, out := newLocalStore(t, newFakeClock())
	ctx := context.Background()

	h, err := s.CreateHold(ctx, testDate, testTime, []string{"A"}, "user1", 0)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !s.ReleaseHold(ctx, h.ID) {
		t.Fatal("first release should report true")
	}
	if s.ReleaseHold(ctx, h.ID) {
		t.Fatal("second release should report false")
	}
	if s.ReleaseHold(ctx, "missing") {
		t.Fatal("unknown hold should report false")
	}
	if _, err := s.CreateHold(ctx, testDate, testTime, []string{"A"}, "user2", 0); err != nil {
		t.Fatalf("released tables should be free: %v", err)
	}
	got := drain(out)
	want := []string{queue.HoldCreated, queue.HoldReleased, queue.HoldCreated}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestHold_ExpiresAfterTTL(t *testing.T) {
	clock := newFakeClock()
	s, out := newLocalStore(t, clock)
	ctx := context.Background()

	h, err := s.CreateHold(ctx, testDate, testTime, []string{"A"}, "user1", 10*time.Second)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := s.ListHoldsForSlot(ctx, testDate, testTime); len(got) != 1 {
		t.Fatalf("live holds = %d, want 1", len(got))
	}

	clock.Advance(10*time.Second + time.Millisecond)
	if got := s.ListHoldsForSlot(ctx, testDate, testTime); len(got) != 0 {
		t.Fatalf("expired hold still listed: %+v", got)
	}
	if s.GetHoldByID(ctx, h.ID) != nil {
		t.Fatal("expired hold still returned by id")
	}
	if s.ExtendHold(ctx, h.ID, 0) != nil {
		t.Fatal("expired hold must not be extended")
	}
	if _, err := s.CreateHold(ctx, testDate, testTime, []string{"A"}, "user2", 0); err != nil {
		t.Fatalf("expired claim should not block: %v", err)
	}

	drain(out)
	if n := s.sweep(ctx); n != 1 {
		t.Fatalf("sweep expired %d holds, want 1", n)
	}
	if got := drain(out); len(got) != 1 || got[0] != queue.HoldExpired {
		t.Fatalf("events = %v, want [hold.expired]", got)
	}
}

func TestExtendHold_ResetsExpiry(t *testing.T) {
	clock := newFakeClock()
	s, _ := newLocalStore(t, clock)
	ctx := context.Background()

	h, err := s.CreateHold(ctx, testDate, testTime, []string{"A"}, "user1", 10*time.Second)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	clock.Advance(6 * time.Second)
	ext := s.ExtendHold(ctx, h.ID, 10*time.Second)
	if ext == nil {
		t.Fatal("extend returned nil")
	}
	if want := clock.Now().Add(10 * time.Second); !ext.ExpiresAt.Equal(want) {
		t.Fatalf("expires_at = %v, want %v", ext.ExpiresAt, want)
	}
	if !ext.ExpiresAt.After(h.ExpiresAt) {
		t.Fatal("extension should move expiry later")
	}

	clock.Advance(6 * time.Second) // past the original expiry
	if s.GetHoldByID(ctx, h.ID) == nil {
		t.Fatal("extended hold should still be live")
	}
	if n := s.sweep(ctx); n != 0 {
		t.Fatalf("sweep expired %d holds, want 0", n)
	}
}

func TestCreateHold_TTLIsClamped(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(nil, nil, nil, Config{DefaultTTL: time.Minute, MaxTTL: 2 * time.Minute, Now: clock.Now})
	h, err := s.CreateHold(context.Background(), testDate, testTime, []string{"A"}, "user1", time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := h.ExpiresAt.Sub(clock.Now()); got != 2*time.Minute {
		t.Fatalf("ttl = %v, want 2m", got)
	}
}

func TestCreateHold_ConcurrentLocal(t *testing.T) {
	s, _ := newLocalStore(t, newFakeClock())
	assertSingleWinner(t, s)
}

func TestCreateHold_ConcurrentRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	s, _ := newRedisStore(t, mr, newFakeClock())
	assertSingleWinner(t, s)
}

func assertSingleWinner(t *testing.T, s *Store) {
	t.Helper()
	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateHold(context.Background(), testDate, testTime, []string{"A", "B"}, "user", 0)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrConflict):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 || conflicts.Load() != 31 {
		t.Fatalf("wins=%d conflicts=%d, want 1 and 31", wins.Load(), conflicts.Load())
	}
}

func TestRedis_SharedAcrossProcesses(t *testing.T) {
	mr := miniredis.RunT(t)
	clock := newFakeClock()
	a, _ := newRedisStore(t, mr, clock)
	b, outB := newRedisStore(t, mr, clock)
	ctx := context.Background()

	h, err := a.CreateHold(ctx, testDate, testTime, []string{"A", "B"}, "user1", 0)
	if err != nil {
		t.Fatalf("create on a: %v", err)
	}
	if _, err := b.CreateHold(ctx, testDate, testTime, []string{"B"}, "user2", 0); !errors.Is(err, ErrConflict) {
		t.Fatalf("create on b: want conflict, got %v", err)
	}

	listed := b.ListHoldsForSlot(ctx, testDate, testTime)
	if len(listed) != 1 || listed[0].ID != h.ID {
		t.Fatalf("b lists %+v, want hold %s", listed, h.ID)
	}

	if !b.ReleaseHold(ctx, h.ID) {
		t.Fatal("release through b should succeed")
	}
	if got := drain(outB); len(got) != 1 || got[0] != queue.HoldReleased {
		t.Fatalf("b events = %v", got)
	}
	if a.GetHoldByID(ctx, h.ID) != nil {
		t.Fatal("a still sees a hold released elsewhere")
	}
	if a.ReleaseHold(ctx, h.ID) {
		t.Fatal("a must not report releasing a hold already gone from redis")
	}
	if mr.Exists("hold:table:2025-06-01:19:00:A") {
		t.Fatal("table claim left behind in redis")
	}
}

func TestRedis_TTLAndSweepReArm(t *testing.T) {
	mr := miniredis.RunT(t)
	clock := newFakeClock()
	a, outA := newRedisStore(t, mr, clock)
	b, _ := newRedisStore(t, mr, clock)
	ctx := context.Background()

	h, err := a.CreateHold(ctx, testDate, testTime, []string{"A"}, "user1", 10*time.Second)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	clock.Advance(5 * time.Second)
	mr.FastForward(5 * time.Second)
	if b.ExtendHold(ctx, h.ID, 30*time.Second) == nil {
		t.Fatal("extend through b failed")
	}

	clock.Advance(6 * time.Second)
	mr.FastForward(6 * time.Second)
	drain(outA)
	if n := a.sweep(ctx); n != 0 {
		t.Fatalf("a expired a hold b extended (%d)", n)
	}
	if got := a.GetHoldByID(ctx, h.ID); got == nil || !got.ExpiresAt.Equal(clock.Now().Add(24*time.Second)) {
		t.Fatalf("a should see b's extension, got %+v", got)
	}

	clock.Advance(25 * time.Second)
	mr.FastForward(25 * time.Second)
	if n := a.sweep(ctx); n != 1 {
		t.Fatalf("sweep expired %d, want 1", n)
	}
	if got := drain(outA); len(got) != 1 || got[0] != queue.HoldExpired {
		t.Fatalf("events = %v, want [hold.expired]", got)
	}
	if got := b.ListHoldsForSlot(ctx, testDate, testTime); len(got) != 0 {
		t.Fatalf("redis still lists %+v", got)
	}
}

func TestRedis_FallbackWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	t.Cleanup(func() { _ = rdb.Close() })
	s := NewStore(rdb, nil, nil, Config{DefaultTTL: time.Minute, BackendTimeout: 100 * time.Millisecond, Now: newFakeClock().Now})
	ctx := context.Background()

	h, err := s.CreateHold(ctx, testDate, testTime, []string{"A"}, "user1", 0)
	if err != nil {
		t.Fatalf("create should degrade, got %v", err)
	}
	if _, err := s.CreateHold(ctx, testDate, testTime, []string{"A"}, "user2", 0); !errors.Is(err, ErrConflict) {
		t.Fatalf("fallback must still exclude, got %v", err)
	}
	if got := s.ListHoldsForSlot(ctx, testDate, testTime); len(got) != 1 {
		t.Fatalf("fallback list = %d holds", len(got))
	}
	if s.ExtendHold(ctx, h.ID, 0) == nil {
		t.Fatal("fallback extend failed")
	}
	if !s.ReleaseHold(ctx, h.ID) {
		t.Fatal("fallback release failed")
	}
}

func TestRedis_FallbackHoldSurvivesRecovery(t *testing.T) {
	mr := miniredis.RunT(t)
	clock := newFakeClock()
	s, _ := newRedisStore(t, mr, clock)
	ctx := context.Background()

	// Simulate an outage: redis is skipped for the next ten seconds.
	s.cfg.RetryInterval = 10 * time.Second
	s.markDown("test", errors.New("connection refused"))

	h, err := s.CreateHold(ctx, testDate, testTime, []string{"A"}, "user1", 0)
	if err != nil {
		t.Fatalf("create during outage: %v", err)
	}
	if mr.Exists("hold:rec:" + h.ID) {
		t.Fatal("hold written to redis while marked down")
	}

	clock.Advance(11 * time.Second)
	if !s.remoteUp() {
		t.Fatal("redis should be retried after the retry interval")
	}
	if got := s.GetHoldByID(ctx, h.ID); got == nil {
		t.Fatal("local hold lost after redis recovered")
	}
	if got := s.ListHoldsForSlot(ctx, testDate, testTime); len(got) != 1 || got[0].ID != h.ID {
		t.Fatalf("list after recovery = %+v", got)
	}
}

func TestRedis_FallbackHoldBlocksAfterRecovery(t *testing.T) {
	mr := miniredis.RunT(t)
	clock := newFakeClock()
	s, _ := newRedisStore(t, mr, clock)
	ctx := context.Background()

	s.cfg.RetryInterval = 10 * time.Second
	s.markDown("test", errors.New("connection refused"))
	h, err := s.CreateHold(ctx, testDate, testTime, []string{"A"}, "user1", 0)
	if err != nil {
		t.Fatalf("create during outage: %v", err)
	}

	clock.Advance(11 * time.Second)
	var conflict *ConflictError
	if _, err := s.CreateHold(ctx, testDate, testTime, []string{"A", "B"}, "user2", 0); !errors.As(err, &conflict) {
		t.Fatalf("want conflict with the outage hold, got %v", err)
	}
	if len(conflict.TableIDs) != 1 || conflict.TableIDs[0] != "A" {
		t.Fatalf("conflict tables = %v, want [A]", conflict.TableIDs)
	}
	if mr.Exists("hold:table:2025-06-01:19:00:B") {
		t.Fatal("rejected create left a claim in redis")
	}
	if got := s.ListHoldsForSlot(ctx, testDate, testTime); len(got) != 1 || got[0].ID != h.ID {
		t.Fatalf("list after recovery = %+v", got)
	}

	// Once the outage hold is gone the table is free again.
	if !s.ReleaseHold(ctx, h.ID) {
		t.Fatal("release outage hold")
	}
	if _, err := s.CreateHold(ctx, testDate, testTime, []string{"A"}, "user2", 0); err != nil {
		t.Fatalf("create after release: %v", err)
	}
}

func TestRedis_CanceledCallerDoesNotFallBack(t *testing.T) {
	mr := miniredis.RunT(t)
	clock := newFakeClock()
	a, outA := newRedisStore(t, mr, clock)
	b, _ := newRedisStore(t, mr, clock)
	a.cfg.RetryInterval = time.Minute
	b.cfg.RetryInterval = time.Minute

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.CreateHold(canceled, testDate, testTime, []string{"A"}, "user1", 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if !a.remoteUp() {
		t.Fatal("a canceled caller must not mark redis down")
	}
	if a.local.size() != 0 || len(drain(outA)) != 0 {
		t.Fatal("canceled create must leave no local hold and emit nothing")
	}

	ctx := context.Background()
	h, err := b.CreateHold(ctx, testDate, testTime, []string{"A"}, "user2", 0)
	if err != nil {
		t.Fatalf("create on b: %v", err)
	}
	if _, err := a.CreateHold(ctx, testDate, testTime, []string{"A"}, "user1", 0); !errors.Is(err, ErrConflict) {
		t.Fatalf("a must see b's hold, got %v", err)
	}

	if a.GetHoldByID(canceled, h.ID) != nil || a.ReleaseHold(canceled, h.ID) || a.ExtendHold(canceled, h.ID, 0) != nil {
		t.Fatal("canceled reads and writes must report nothing")
	}
	if a.ListHoldsForSlot(canceled, testDate, testTime) != nil {
		t.Fatal("canceled list must report nothing")
	}
	if !a.remoteUp() {
		t.Fatal("redis marked down by a canceled caller")
	}
	if !mr.Exists("hold:rec:" + h.ID) {
		t.Fatal("canceled release touched the redis record")
	}
}
