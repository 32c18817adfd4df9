package hold

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hgarg1/GPT-Codex-Hotel-sub000/internal/model"
)

// Keys for a hold: KEYS[1] record, KEYS[2] slot index, KEYS[3..] one claim
// per table whose value is the hold ID.
var createScript = redis.NewScript(`
	local taken = {}
	for i = 3, #KEYS do
		if redis.call('EXISTS', KEYS[i]) == 1 then
			table.insert(taken, i - 2)
		end
	end
	if #taken > 0 then
		return taken
	end
	for i = 3, #KEYS do
		redis.call('SET', KEYS[i], ARGV[1], 'PX', ARGV[3])
	end
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
	redis.call('SADD', KEYS[2], ARGV[1])
	if redis.call('PTTL', KEYS[2]) < tonumber(ARGV[3]) then
		redis.call('PEXPIRE', KEYS[2], ARGV[3])
	end
	return {}
`)

var extendScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 0 then
		return 0
	end
	for i = 3, #KEYS do
		if redis.call('GET', KEYS[i]) ~= ARGV[1] then
			return 0
		end
	end
	for i = 3, #KEYS do
		redis.call('PEXPIRE', KEYS[i], ARGV[3])
	end
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
	if redis.call('PTTL', KEYS[2]) < tonumber(ARGV[3]) then
		redis.call('PEXPIRE', KEYS[2], ARGV[3])
	end
	return 1
`)

var releaseScript = redis.NewScript(`
	local existed = redis.call('DEL', KEYS[1])
	for i = 3, #KEYS do
		if redis.call('GET', KEYS[i]) == ARGV[1] then
			redis.call('DEL', KEYS[i])
		end
	end
	redis.call('SREM', KEYS[2], ARGV[1])
	return existed
`)

type redisBackend struct {
	rdb    redis.UniversalClient
	prefix string
}

func newRedisBackend(rdb redis.UniversalClient, prefix string) *redisBackend {
	if prefix == "" {
		prefix = "hold"
	}
	return &redisBackend{rdb: rdb, prefix: prefix}
}

func (b *redisBackend) recordKey(id string) string { return b.prefix + ":rec:" + id }

func (b *redisBackend) slotKey(date, clock string) string {
	return b.prefix + ":slot:" + date + ":" + clock
}

func (b *redisBackend) keys(h model.Hold) []string {
	keys := make([]string, 0, len(h.TableIDs)+2)
	keys = append(keys, b.recordKey(h.ID), b.slotKey(h.Date, h.Time))
	for _, t := range h.TableIDs {
		keys = append(keys, b.prefix+":table:"+h.Date+":"+h.Time+":"+t)
	}
	return keys
}

func (b *redisBackend) tryCreate(ctx context.Context, h model.Hold, ttl time.Duration) ([]string, error) {
	payload, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("marshal hold: %w", err)
	}
	res, err := createScript.Run(ctx, b.rdb, b.keys(h), h.ID, payload, ttl.Milliseconds()).Result()
	if err != nil {
		return nil, err
	}
	idx, ok := res.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected create result %T", res)
	}
	taken := make([]string, 0, len(idx))
	for _, v := range idx {
		n, ok := v.(int64)
		if !ok || n < 1 || int(n) > len(h.TableIDs) {
			return nil, fmt.Errorf("unexpected create result element %v", v)
		}
		taken = append(taken, h.TableIDs[n-1])
	}
	return taken, nil
}

func (b *redisBackend) tryGet(ctx context.Context, id string) (*model.Hold, error) {
	raw, err := b.rdb.Get(ctx, b.recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var h model.Hold
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("decode hold %s: %w", id, err)
	}
	return &h, nil
}

func (b *redisBackend) tryExtend(ctx context.Context, h model.Hold, ttl time.Duration) (bool, error) {
	payload, err := json.Marshal(h)
	if err != nil {
		return false, fmt.Errorf("marshal hold: %w", err)
	}
	n, err := extendScript.Run(ctx, b.rdb, b.keys(h), h.ID, payload, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (b *redisBackend) tryDelete(ctx context.Context, h model.Hold) (bool, error) {
	n, err := releaseScript.Run(ctx, b.rdb, b.keys(h), h.ID).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// trySlot reads the slot index and the records it points to.  Index entries
// whose record has already expired are pruned on the way.
func (b *redisBackend) trySlot(ctx context.Context, date, clock string) ([]model.Hold, error) {
	sk := b.slotKey(date, clock)
	ids, err := b.rdb.SMembers(ctx, sk).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	recKeys := make([]string, len(ids))
	for i, id := range ids {
		recKeys[i] = b.recordKey(id)
	}
	vals, err := b.rdb.MGet(ctx, recKeys...).Result()
	if err != nil {
		return nil, err
	}
	holds := make([]model.Hold, 0, len(vals))
	var stale []interface{}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var h model.Hold
		if err := json.Unmarshal([]byte(s), &h); err != nil {
			stale = append(stale, ids[i])
			continue
		}
		holds = append(holds, h)
	}
	if len(stale) > 0 {
		_ = b.rdb.SRem(ctx, sk, stale...).Err()
	}
	return holds, nil
}
