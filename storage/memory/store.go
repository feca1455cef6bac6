// Package memorystore keeps verification state in process memory. It is
// only correct for single-instance deployments; multi-instance setups
// must use the Redis store.
package memorystore

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/open-rails/otpkit/core"
)

const shardCount = 32

// History entries for phones that never send again are dropped by the
// sweep once older than this.
const historyRetention = time.Hour

type shard struct {
	mu      sync.Mutex
	entries map[string]core.Entry
	history map[string][]time.Time
}

// Store is a sharded in-memory core.Store. Each phone maps to one shard,
// so operations on different phones rarely contend and operations on the
// same phone are serialized by the shard mutex.
type Store struct {
	shards [shardCount]*shard
}

func New() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i] = &shard{
			entries: make(map[string]core.Entry),
			history: make(map[string][]time.Time),
		}
	}
	return s
}

func (s *Store) shardFor(phone string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(phone))
	return s.shards[h.Sum32()%shardCount]
}

// BeginIssue performs the cooldown check, the window count, the entry
// write and the history append under one shard lock.
func (s *Store) BeginIssue(ctx context.Context, phone string, entry core.Entry, pol core.IssuePolicy, now time.Time) error {
	_ = ctx
	sh := s.shardFor(phone)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if cur, ok := sh.entries[phone]; ok && now.Sub(cur.IssuedAt) < pol.Cooldown {
		return core.NewError(core.KindCooldownActive)
	}

	// Prune, then count. Boundary timestamps are inside the window.
	hist := sh.history[phone][:0:0]
	for _, ts := range sh.history[phone] {
		if now.Sub(ts) <= pol.RateWindow {
			hist = append(hist, ts)
		}
	}
	if len(hist) >= pol.RateCeiling {
		sh.history[phone] = hist
		return core.NewError(core.KindRateLimited)
	}

	sh.entries[phone] = entry
	sh.history[phone] = append(hist, now)
	return nil
}

func (s *Store) Get(ctx context.Context, phone string) (core.Entry, bool, error) {
	_ = ctx
	sh := s.shardFor(phone)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	entry, ok := sh.entries[phone]
	return entry, ok, nil
}

func (s *Store) Remove(ctx context.Context, phone string) error {
	_ = ctx
	sh := s.shardFor(phone)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.entries, phone)
	return nil
}

// PurgeExpired reclaims entries past their expiry and history older than
// the retention horizon. Expiry decisions for verification stay with the
// caller; this only frees memory.
func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	_ = ctx
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for phone, entry := range sh.entries {
			if now.After(entry.ExpiresAt) {
				delete(sh.entries, phone)
				removed++
			}
		}
		for phone, hist := range sh.history {
			kept := hist[:0:0]
			for _, ts := range hist {
				if now.Sub(ts) <= historyRetention {
					kept = append(kept, ts)
				}
			}
			if len(kept) == 0 {
				delete(sh.history, phone)
			} else {
				sh.history[phone] = kept
			}
		}
		sh.mu.Unlock()
	}
	return removed, nil
}
