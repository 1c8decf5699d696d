package speech

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"sync"
	"time"

	"checkin-calls/internal/calls"
	"checkin-calls/internal/observability"
)

// CacheConfig tunes the audio cache. Zero values take the defaults.
type CacheConfig struct {
	TTL           time.Duration // default 5m
	MaxEntries    int           // default 50
	MaxBytes      int           // per clip; default 5 MiB
	SweepInterval time.Duration // default 1m

	Now     func() time.Time
	Metrics *observability.Metrics
}

func (c CacheConfig) withDefaults() CacheConfig {
	out := c
	if out.TTL <= 0 {
		out.TTL = 5 * time.Minute
	}
	if out.MaxEntries <= 0 {
		out.MaxEntries = 50
	}
	if out.MaxBytes <= 0 {
		out.MaxBytes = 5 * 1024 * 1024
	}
	if out.SweepInterval <= 0 {
		out.SweepInterval = time.Minute
	}
	if out.Now == nil {
		out.Now = time.Now
	}
	return out
}

// maxOneShot bounds how many oversize clips wait to be fetched.
const maxOneShot = 4

type entry struct {
	audio     []byte
	expiresAt time.Time
}

// Cache holds synthesized audio for a short time so the telephony provider can
// fetch it by URL.
//
// Entries are evicted oldest-inserted first when the cache is full and lazily
// on read once expired. Clips larger than MaxBytes are never cached; they are
// parked in a one-shot slot that serves them exactly once.
//
// Returned audio slices are shared and must not be modified.
type Cache struct {
	cfg CacheConfig

	mu      sync.Mutex
	entries map[string]entry
	order   []string // insertion order, oldest first
	oneShot map[string]entry
}

func NewCache(cfg CacheConfig) *Cache {
	return &Cache{
		cfg:     cfg.withDefaults(),
		entries: map[string]entry{},
		oneShot: map[string]entry{},
	}
}

// Key is the deterministic identifier of a clip.
func Key(text string, voice calls.Voice) string {
	sum := sha256.Sum256([]byte(text + "\x00" + string(voice)))
	return "audio_" + string(voice) + "_" + hex.EncodeToString(sum[:])[:16]
}

func (c *Cache) Get(text string, voice calls.Voice) ([]byte, bool) {
	return c.Lookup(Key(text, voice))
}

// Lookup returns a cached clip by key. Expired entries are dropped on the way.
func (c *Cache) Lookup(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.cfg.Now().Before(e.expiresAt) {
		c.removeLocked(key)
		c.cfg.Metrics.ObserveEviction("expired", 1)
		c.cfg.Metrics.SetCacheEntries(len(c.entries))
		return nil, false
	}
	return e.audio, true
}

// Fetch is Lookup plus the one-shot slot; a one-shot clip is gone after it is served.
func (c *Cache) Fetch(key string) ([]byte, bool) {
	if audio, ok := c.Lookup(key); ok {
		return audio, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.oneShot[key]
	if !ok {
		return nil, false
	}
	delete(c.oneShot, key)
	if !c.cfg.Now().Before(e.expiresAt) {
		return nil, false
	}
	return e.audio, true
}

// Put stores audio and returns its key.
func (c *Cache) Put(text string, voice calls.Voice, audio []byte) string {
	key := Key(text, voice)
	now := c.cfg.Now()
	e := entry{audio: audio, expiresAt: now.Add(c.cfg.TTL)}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(audio) > c.cfg.MaxBytes {
		c.putOneShotLocked(key, e)
		return key
	}

	if _, ok := c.entries[key]; ok {
		c.removeLocked(key)
	} else if len(c.entries) >= c.cfg.MaxEntries && len(c.order) > 0 {
		c.removeLocked(c.order[0])
		c.cfg.Metrics.ObserveEviction("capacity", 1)
	}
	c.entries[key] = e
	c.order = append(c.order, key)
	c.cfg.Metrics.SetCacheEntries(len(c.entries))
	return key
}

func (c *Cache) putOneShotLocked(key string, e entry) {
	if _, ok := c.oneShot[key]; !ok && len(c.oneShot) >= maxOneShot {
		var (
			oldest    string
			oldestExp time.Time
		)
		for k, v := range c.oneShot {
			if oldest == "" || v.expiresAt.Before(oldestExp) {
				oldest, oldestExp = k, v.expiresAt
			}
		}
		delete(c.oneShot, oldest)
	}
	c.oneShot[key] = e
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep drops every expired entry and returns how many were removed.
func (c *Cache) Sweep() int {
	now := c.cfg.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, k := range slices.Clone(c.order) {
		if !now.Before(c.entries[k].expiresAt) {
			c.removeLocked(k)
			removed++
		}
	}
	for k, e := range c.oneShot {
		if !now.Before(e.expiresAt) {
			delete(c.oneShot, k)
		}
	}
	c.cfg.Metrics.ObserveEviction("expired", removed)
	c.cfg.Metrics.SetCacheEntries(len(c.entries))
	return removed
}

// Run sweeps on every tick until ctx is done.
func (c *Cache) Run(ctx context.Context) {
	t := time.NewTicker(c.cfg.SweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Sweep()
		}
	}
}

func (c *Cache) removeLocked(key string) {
	delete(c.entries, key)
	if i := slices.Index(c.order, key); i >= 0 {
		c.order = slices.Delete(c.order, i, i+1)
	}
}
