// Package cache provides LRU caching for compiled query artifacts: regular
// expressions and scope predicate programs.
package cache

import (
	"container/list"
	"regexp"
	"sync"

	"github.com/expr-lang/expr/vm"
)

// Cache is a generic LRU cache interface.
type Cache[K comparable, V any] interface {
	// Get retrieves a value from the cache.
	Get(key K) (V, bool)

	// Put stores a value in the cache.
	Put(key K, value V)

	// Remove removes a value from the cache.
	Remove(key K)

	// Clear removes all entries from the cache.
	Clear()

	// Len returns the number of entries in the cache.
	Len() int

	// Stats returns cache statistics.
	Stats() Stats
}

// Stats contains cache statistics.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
	MaxSize   int
}

// Config contains cache configuration options.
type Config struct {
	// MaxSize is the maximum number of entries (0 = unlimited).
	MaxSize int

	// OnEvict is called when an entry is evicted.
	OnEvict func(key, value interface{})
}

// DefaultConfig returns a default cache configuration. A document session
// compiles at most a handful of distinct patterns; 256 is generous.
func DefaultConfig() Config {
	return Config{
		MaxSize: 256,
		OnEvict: nil,
	}
}

// entry represents a cache entry.
type entry[K comparable, V any] struct {
	key   K
	value V
}

// lruCache is a thread-safe LRU cache implementation.
type lruCache[K comparable, V any] struct {
	mu        sync.RWMutex
	config    Config
	entries   map[K]*list.Element
	evictList *list.List
	stats     Stats
}

// NewLRUCache creates a new LRU cache with the given configuration.
func NewLRUCache[K comparable, V any](config Config) Cache[K, V] {
	if config.MaxSize < 0 {
		config.MaxSize = 0
	}

	return &lruCache[K, V]{
		config:    config,
		entries:   make(map[K]*list.Element),
		evictList: list.New(),
	}
}

// Get retrieves a value from the cache.
func (c *lruCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}

	// Move to front (most recently used)
	c.evictList.MoveToFront(ent)
	c.stats.Hits++
	return ent.Value.(*entry[K, V]).value, true
}

// Put stores a value in the cache.
func (c *lruCache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Check if entry already exists
	if ent, ok := c.entries[key]; ok {
		c.evictList.MoveToFront(ent)
		ent.Value.(*entry[K, V]).value = value
		return
	}

	ent := c.evictList.PushFront(&entry[K, V]{key: key, value: value})
	c.entries[key] = ent

	// Evict oldest entry if necessary
	if c.config.MaxSize > 0 && c.evictList.Len() > c.config.MaxSize {
		c.removeOldest()
	}
}

// Remove removes a value from the cache.
func (c *lruCache[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.entries[key]; ok {
		c.removeElement(ent)
	}
}

// Clear removes all entries from the cache.
func (c *lruCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*list.Element)
	c.evictList.Init()
	c.stats.Size = 0
}

// Len returns the number of entries in the cache.
func (c *lruCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.evictList.Len()
}

// Stats returns cache statistics.
func (c *lruCache[K, V]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.stats
	s.Size = c.evictList.Len()
	s.MaxSize = c.config.MaxSize
	return s
}

// removeOldest removes the oldest entry from the cache.
func (c *lruCache[K, V]) removeOldest() {
	ent := c.evictList.Back()
	if ent != nil {
		c.removeElement(ent)
		c.stats.Evictions++
	}
}

// removeElement removes an element from the cache.
func (c *lruCache[K, V]) removeElement(ent *list.Element) {
	c.evictList.Remove(ent)
	e := ent.Value.(*entry[K, V])
	delete(c.entries, e.key)

	if c.config.OnEvict != nil {
		c.config.OnEvict(e.key, e.value)
	}
}

// PatternCache is a specialized cache for compiled regular expressions,
// keyed by pattern source.
type PatternCache struct {
	cache Cache[string, *regexp.Regexp]
}

// NewPatternCache creates a pattern cache with the given configuration.
func NewPatternCache(config Config) *PatternCache {
	return &PatternCache{cache: NewLRUCache[string, *regexp.Regexp](config)}
}

// NewDefaultPatternCache creates a pattern cache with default configuration.
func NewDefaultPatternCache() *PatternCache {
	return NewPatternCache(DefaultConfig())
}

// Get retrieves a compiled pattern.
func (c *PatternCache) Get(src string) (*regexp.Regexp, bool) {
	return c.cache.Get(src)
}

// Put stores a compiled pattern.
func (c *PatternCache) Put(src string, re *regexp.Regexp) {
	c.cache.Put(src, re)
}

// Stats returns cache statistics.
func (c *PatternCache) Stats() Stats {
	return c.cache.Stats()
}

// ProgramCache is a specialized cache for compiled predicate programs,
// keyed by expression source.
type ProgramCache struct {
	cache Cache[string, *vm.Program]
}

// NewProgramCache creates a program cache with the given configuration.
func NewProgramCache(config Config) *ProgramCache {
	return &ProgramCache{cache: NewLRUCache[string, *vm.Program](config)}
}

// NewDefaultProgramCache creates a program cache with default configuration.
func NewDefaultProgramCache() *ProgramCache {
	return NewProgramCache(DefaultConfig())
}

// Get retrieves a compiled program.
func (c *ProgramCache) Get(src string) (*vm.Program, bool) {
	return c.cache.Get(src)
}

// Put stores a compiled program.
func (c *ProgramCache) Put(src string, program *vm.Program) {
	c.cache.Put(src, program)
}

// Stats returns cache statistics.
func (c *ProgramCache) Stats() Stats {
	return c.cache.Stats()
}
