package generator

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
)

// Fingerprint normalizes a prompt (lowercased, whitespace-collapsed) and
// hashes it into a stable cache key. Identical prompts modulo case and
// spacing share one key.
func Fingerprint(prompt string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(prompt)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:16])
}

// CacheStats is an introspection snapshot of a result cache
type CacheStats struct {
	Entries  int   `json:"entries"`
	Capacity int   `json:"capacity"`
	Hits     int64 `json:"hits"`
}

// ResultCache stores assembled generation results keyed by prompt
// fingerprint. Implementations must be safe for concurrent use.
type ResultCache interface {
	Get(key string) (*GenerationResult, bool)
	Set(key string, result *GenerationResult)
	Len() int
	Clear()
	Stats() CacheStats
}

// fifoCache is a bounded in-memory cache evicting in insertion order.
// Eviction is deliberately FIFO, not recency-based: the oldest-inserted
// fingerprint goes first regardless of how often it was read.
type fifoCache struct {
	capacity int
	entries  map[string]*GenerationResult
	order    []string
	hits     int64
	mu       sync.Mutex
	onEvict  func()
}

// NewFIFOCache creates a bounded insertion-order cache. Capacity below 1
// is clamped to 1.
func NewFIFOCache(capacity int) ResultCache {
	return NewFIFOCacheWithHook(capacity, nil)
}

// NewFIFOCacheWithHook is NewFIFOCache with a callback invoked on each
// capacity eviction
func NewFIFOCacheWithHook(capacity int, onEvict func()) ResultCache {
	if capacity < 1 {
		capacity = 1
	}
	return &fifoCache{
		capacity: capacity,
		entries:  make(map[string]*GenerationResult),
		onEvict:  onEvict,
	}
}

func (c *fifoCache) Get(key string) (*GenerationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.hits++
	return res.Clone(), true
}

func (c *fifoCache) Set(key string, result *GenerationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		// Overwrite keeps the original insertion position
		c.entries[key] = result.Clone()
		return
	}

	if len(c.entries) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
		if c.onEvict != nil {
			c.onEvict()
		}
	}

	c.entries[key] = result.Clone()
	c.order = append(c.order, key)
}

func (c *fifoCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *fifoCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*GenerationResult)
	c.order = nil
}

func (c *fifoCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Entries:  len(c.entries),
		Capacity: c.capacity,
		Hits:     c.hits,
	}
}
