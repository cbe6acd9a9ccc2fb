package cache

import (
	"regexp"
	"testing"
)

func TestLRUBasics(t *testing.T) {
	c := NewLRUCache[string, int](Config{MaxSize: 2})

	c.Put("a", 1)
	c.Put("b", 2)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v", v, ok)
	}

	// "b" is now the oldest; adding "c" evicts it.
	c.Put("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Error("expected b evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should survive, it was used most recently")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}

	stats := c.Stats()
	if stats.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", stats.Evictions)
	}
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
}

func TestLRUPutExistingUpdates(t *testing.T) {
	c := NewLRUCache[string, int](DefaultConfig())
	c.Put("k", 1)
	c.Put("k", 2)
	if v, _ := c.Get("k"); v != 2 {
		t.Errorf("Get = %d, want 2", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestLRUOnEvict(t *testing.T) {
	var evicted []interface{}
	c := NewLRUCache[string, string](Config{
		MaxSize: 1,
		OnEvict: func(key, value interface{}) { evicted = append(evicted, key) },
	})
	c.Put("first", "x")
	c.Put("second", "y")
	if len(evicted) != 1 || evicted[0] != "first" {
		t.Errorf("evicted = %v", evicted)
	}
}

func TestLRUClear(t *testing.T) {
	c := NewLRUCache[int, int](DefaultConfig())
	c.Put(1, 1)
	c.Put(2, 2)
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len = %d after Clear", c.Len())
	}
	if _, ok := c.Get(1); ok {
		t.Error("Get after Clear should miss")
	}
}

func TestPatternCache(t *testing.T) {
	c := NewDefaultPatternCache()
	if _, ok := c.Get(`\d+`); ok {
		t.Fatal("unexpected hit on empty cache")
	}
	re := regexp.MustCompile(`\d+`)
	c.Put(`\d+`, re)
	got, ok := c.Get(`\d+`)
	if !ok || got != re {
		t.Errorf("Get = %v, %v", got, ok)
	}
	if s := c.Stats(); s.Hits != 1 || s.Misses != 1 {
		t.Errorf("stats = %+v", s)
	}
}
