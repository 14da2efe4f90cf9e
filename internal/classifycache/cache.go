// Package classifycache is an optional result cache for the
// classification engine, keyed by a hash of the measured step metrics.
// It is not part of the classification semantics themselves — spec.md's
// classify_step is a pure function of its input, so two identical
// measurements always produce an identical result, which is exactly what
// makes memoizing them here a correctness-neutral performance layer.
package classifycache

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"ntcstep/internal/engine"
	"ntcstep/internal/stepmetrics"
)

const (
	keyPrefix    = "ntcstep:classify:"
	defaultTTL   = 24 * time.Hour
	cleanupEvery = 5 * time.Minute
)

// Key is the cache lookup key for one measured step: an xxhash digest of
// its twelve metrics, so identical geometry always maps to the same slot
// regardless of which residues produced it.
type Key uint64

// KeyForMetrics hashes a stepmetrics.Metrics value into a Key. The byte
// encoding is internal to this package and not a stable wire format.
func KeyForMetrics(m stepmetrics.Metrics) Key {
	var buf [8 * 12]byte
	for i, v := range m.Torsions {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	binary.LittleEndian.PutUint64(buf[9*8:], math.Float64bits(m.CC))
	binary.LittleEndian.PutUint64(buf[10*8:], math.Float64bits(m.NN))
	binary.LittleEndian.PutUint64(buf[11*8:], math.Float64bits(m.Mu))
	return Key(xxhash.Sum64(buf[:]))
}

type entry struct {
	step      engine.ClassifiedStep
	expiresAt int64 // unix millis, 0 = never
}

// Cache memoizes ClassifiedStep results by Key, backed by Redis when
// configured and reachable, falling back to an in-memory map otherwise —
// the same fallback shape the teacher's session manager uses for
// collaboration state.
type Cache struct {
	redis    *redis.Client
	useRedis bool

	mu      sync.RWMutex
	entries map[Key]entry

	ctx context.Context
	ttl time.Duration
}

// New builds a Cache. redisAddr == "" skips Redis entirely and runs
// purely in-memory; a non-empty address that fails to ping also falls
// back to in-memory, logged but non-fatal.
func New(redisAddr, redisPassword string, redisDB int) *Cache {
	c := &Cache{
		entries: make(map[Key]entry),
		ctx:     context.Background(),
		ttl:     defaultTTL,
	}

	if redisAddr == "" {
		log.Println("[classifycache] Redis not configured, using in-memory cache")
		return c
	}

	c.redis = redis.NewClient(&redis.Options{Addr: redisAddr, Password: redisPassword, DB: redisDB})
	if err := c.redis.Ping(c.ctx).Err(); err != nil {
		log.Printf("[classifycache] Redis connection failed: %v (falling back to in-memory)", err)
		c.redis = nil
		return c
	}
	log.Printf("[classifycache] connected to Redis at %s", redisAddr)
	c.useRedis = true
	go c.cleanupExpired()
	return c
}

// Get returns a cached classification for key, if present and unexpired.
func (c *Cache) Get(key Key) (engine.ClassifiedStep, bool) {
	if c.useRedis {
		step, ok := c.getFromRedis(key)
		if ok {
			return step, true
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return engine.ClassifiedStep{}, false
	}
	if e.expiresAt > 0 && e.expiresAt < time.Now().UnixMilli() {
		return engine.ClassifiedStep{}, false
	}
	return e.step, true
}

// Put stores step under key with the cache's default TTL.
func (c *Cache) Put(key Key, step engine.ClassifiedStep) {
	expiresAt := time.Now().Add(c.ttl).UnixMilli()

	c.mu.Lock()
	c.entries[key] = entry{step: step, expiresAt: expiresAt}
	c.mu.Unlock()

	if c.useRedis {
		if err := c.putToRedis(key, step); err != nil {
			log.Printf("[classifycache] redis put failed, in-memory copy is still authoritative: %v", err)
		}
	}
}

func redisKey(key Key) string {
	return fmt.Sprintf("%s%x", keyPrefix, uint64(key))
}

func (c *Cache) putToRedis(key Key, step engine.ClassifiedStep) error {
	data, err := json.Marshal(step)
	if err != nil {
		return fmt.Errorf("marshal cached step: %w", err)
	}
	return c.redis.Set(c.ctx, redisKey(key), data, c.ttl).Err()
}

func (c *Cache) getFromRedis(key Key) (engine.ClassifiedStep, bool) {
	data, err := c.redis.Get(c.ctx, redisKey(key)).Bytes()
	if err != nil {
		return engine.ClassifiedStep{}, false
	}
	var step engine.ClassifiedStep
	if err := json.Unmarshal(data, &step); err != nil {
		return engine.ClassifiedStep{}, false
	}
	return step, true
}

func (c *Cache) cleanupExpired() {
	ticker := time.NewTicker(cleanupEvery)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now().UnixMilli()
		c.mu.Lock()
		for k, e := range c.entries {
			if e.expiresAt > 0 && e.expiresAt < now {
				delete(c.entries, k)
			}
		}
		c.mu.Unlock()
	}
}

// Len reports the number of live in-memory entries (Redis-backed entries
// are not counted; they expire server-side).
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close releases the cache's Redis connection, if any.
func (c *Cache) Close() error {
	if c.useRedis && c.redis != nil {
		return c.redis.Close()
	}
	return nil
}
