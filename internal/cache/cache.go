package cache

import (
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/DougGuttenberg/halacha-helper/internal/domain"
)

const (
	// DefaultTTL is how long a cached answer stays valid.
	DefaultTTL = 30 * time.Minute
	// DefaultCapacity bounds the number of entries; on overflow the
	// oldest-inserted entry is evicted (insertion order, not LRU).
	DefaultCapacity = 100
)

type entry struct {
	key        string
	insertedAt time.Time
	result     *domain.AskResponse
}

// ResponseCache maps normalized question text to a previously computed final
// answer. Safe for concurrent use. The clock is injected so tests can drive
// expiry deterministically.
type ResponseCache struct {
	mu       sync.Mutex
	entries  map[string]*entry
	order    []string // insertion order, oldest first
	ttl      time.Duration
	capacity int
	now      func() time.Time
}

func New(ttl time.Duration, capacity int, now func() time.Time) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if now == nil {
		now = time.Now
	}
	return &ResponseCache{
		entries:  make(map[string]*entry),
		ttl:      ttl,
		capacity: capacity,
		now:      now,
	}
}

// Get returns the cached answer for a question, or nil. An expired entry is
// treated as absent and evicted.
func (c *ResponseCache) Get(question string) *domain.AskResponse {
	key := Normalize(question)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	if c.now().Sub(e.insertedAt) > c.ttl {
		c.remove(key)
		return nil
	}
	return e.result
}

// Set stores an answer under the normalized question. Overwriting an
// existing key refreshes its insertion time.
func (c *ResponseCache) Set(question string, result *domain.AskResponse) {
	key := Normalize(question)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.remove(key)
	}
	for len(c.entries) >= c.capacity && len(c.order) > 0 {
		c.remove(c.order[0])
	}
	c.entries[key] = &entry{key: key, insertedAt: c.now(), result: result}
	c.order = append(c.order, key)
}

// Len reports the current number of entries, expired or not.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// remove deletes a key from both the map and the order slice.
// Caller must hold mu.
func (c *ResponseCache) remove(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Normalize derives the cache key: lower-cased, trimmed, punctuation
// stripped, inner whitespace collapsed.
func Normalize(question string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range strings.TrimSpace(strings.ToLower(question)) {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			// dropped
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}
