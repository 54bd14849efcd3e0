package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"axon-core/internal/domain/entity"
)

type cacheEntry struct {
	resp      *entity.GenerationResponse
	createdAt time.Time
}

// MemoryCache is a mutex-serialized response cache with a fixed TTL and a
// bounded FIFO capacity. Expired entries are dropped lazily on read; they
// are never served past their TTL.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	order   []string // insertion order, oldest first
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryCache(maxSize int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*cacheEntry),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Fingerprint derives the deterministic cache key for a generation request.
// Struct field order makes the JSON encoding canonical, so any difference
// in model, conversation or options yields a different key.
func Fingerprint(model string, messages []entity.Message, opts entity.GenerationOptions) string {
	payload := struct {
		Model    string                   `json:"model"`
		Messages []entity.Message         `json:"messages"`
		Options  entity.GenerationOptions `json:"options"`
	}{model, messages, opts}

	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func (c *MemoryCache) Get(fingerprint string) (*entity.GenerationResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[fingerprint]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.createdAt) >= c.ttl {
		c.remove(fingerprint)
		return nil, false
	}
	return e.resp, true
}

func (c *MemoryCache) Put(fingerprint string, resp *entity.GenerationResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[fingerprint]; exists {
		c.entries[fingerprint] = &cacheEntry{resp: resp, createdAt: c.now()}
		return
	}

	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		c.remove(c.order[0])
	}

	c.entries[fingerprint] = &cacheEntry{resp: resp, createdAt: c.now()}
	c.order = append(c.order, fingerprint)
}

func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	c.order = nil
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// remove expects the lock to be held.
func (c *MemoryCache) remove(fingerprint string) {
	delete(c.entries, fingerprint)
	for i, fp := range c.order {
		if fp == fingerprint {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
