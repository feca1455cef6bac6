// Package redisstore keeps verification state in Redis so multiple
// process instances share one ledger and one request history.
package redisstore

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/open-rails/otpkit/core"
)

const (
	keyCode     = "otp:code:"
	keyCooldown = "otp:cd:"
	keyHistory  = "otp:hist:"
)

// Code entries outlive their logical expiry by this much so a late verify
// still observes EXPIRED instead of NOT_FOUND. Redis reclaims them after.
const expiredGrace = 10 * time.Minute

// issueScript is the whole send-side admission decision, evaluated
// atomically server-side: cooldown check, window prune + count, entry
// write, cooldown stamp, history append.
//
//	KEYS[1] code key, KEYS[2] cooldown key, KEYS[3] history zset
//	ARGV[1] now ms, ARGV[2] cooldown ms, ARGV[3] window ms,
//	ARGV[4] ceiling, ARGV[5] entry json, ARGV[6] entry px,
//	ARGV[7] history member
var issueScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
  return 'COOLDOWN_ACTIVE'
end
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', KEYS[3], 0, '(' .. (now - window))
if redis.call('ZCARD', KEYS[3]) >= tonumber(ARGV[4]) then
  return 'RATE_LIMITED'
end
redis.call('SET', KEYS[1], ARGV[5], 'PX', ARGV[6])
redis.call('SET', KEYS[2], '1', 'PX', ARGV[2])
redis.call('ZADD', KEYS[3], now, ARGV[7])
redis.call('PEXPIRE', KEYS[3], ARGV[3])
return 'OK'
`)

// Store is a Redis-backed core.Store. Atomicity per phone comes from the
// single-script admission path; cross-phone operations touch disjoint keys.
type Store struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) BeginIssue(ctx context.Context, phone string, entry core.Entry, pol core.IssuePolicy, now time.Time) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	entryPX := entry.ExpiresAt.Sub(now) + expiredGrace
	member := strconv.FormatInt(now.UnixNano(), 10) + ":" + entry.Token

	res, err := issueScript.Run(ctx, s.rdb,
		[]string{keyCode + phone, keyCooldown + phone, keyHistory + phone},
		now.UnixMilli(),
		pol.Cooldown.Milliseconds(),
		pol.RateWindow.Milliseconds(),
		pol.RateCeiling,
		payload,
		entryPX.Milliseconds(),
		member,
	).Text()
	if err != nil {
		return err
	}
	switch res {
	case "OK":
		return nil
	case "COOLDOWN_ACTIVE":
		return core.NewError(core.KindCooldownActive)
	case "RATE_LIMITED":
		return core.NewError(core.KindRateLimited)
	}
	return core.NewError(core.Kind(res))
}

func (s *Store) Get(ctx context.Context, phone string) (core.Entry, bool, error) {
	b, err := s.rdb.Get(ctx, keyCode+phone).Bytes()
	if err == redis.Nil {
		return core.Entry{}, false, nil
	}
	if err != nil {
		return core.Entry{}, false, err
	}
	var entry core.Entry
	if err := json.Unmarshal(b, &entry); err != nil {
		return core.Entry{}, false, err
	}
	return entry, true, nil
}

// Remove drops the entry and its cooldown stamp, so a consumed code does
// not block the next send the way a fresh unconsumed one would.
func (s *Store) Remove(ctx context.Context, phone string) error {
	return s.rdb.Del(ctx, keyCode+phone, keyCooldown+phone).Err()
}

// PurgeExpired is a no-op: every key carries its own TTL.
func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}
