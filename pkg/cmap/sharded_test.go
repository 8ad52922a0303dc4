package cmap

import (
	"fmt"
	"sync"
	"testing"
)

func TestMap_BasicOperations(t *testing.T) {
	m := New[string, int]()

	m.Set("a", 1)
	m.Set("b", 2)

	if v, ok := m.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v, want 1, true", v, ok)
	}
	if !m.Has("b") {
		t.Error("Has(b) = false, want true")
	}
	if m.Has("missing") {
		t.Error("Has(missing) = true, want false")
	}
	if got := m.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}

	m.Delete("a")
	if m.Has("a") {
		t.Error("Has(a) after Delete = true, want false")
	}

	m.Clear()
	if got := m.Count(); got != 0 {
		t.Errorf("Count() after Clear = %d, want 0", got)
	}
}

func TestMap_GetOrSet(t *testing.T) {
	m := New[string, int]()

	v, existed := m.GetOrSet("k", 1)
	if existed || v != 1 {
		t.Errorf("GetOrSet(new) = %d, %v, want 1, false", v, existed)
	}

	v, existed = m.GetOrSet("k", 99)
	if !existed || v != 1 {
		t.Errorf("GetOrSet(existing) = %d, %v, want 1, true", v, existed)
	}
}

func TestMap_SetIfAbsent(t *testing.T) {
	m := New[string, int]()

	if !m.SetIfAbsent("k", 1) {
		t.Error("SetIfAbsent(new) = false, want true")
	}
	if m.SetIfAbsent("k", 2) {
		t.Error("SetIfAbsent(existing) = true, want false")
	}
	if v, _ := m.Get("k"); v != 1 {
		t.Errorf("Get(k) = %d, want 1 (original value kept)", v)
	}
}

func TestMap_Pop(t *testing.T) {
	m := New[string, int]()
	m.Set("k", 7)

	v, ok := m.Pop("k")
	if !ok || v != 7 {
		t.Errorf("Pop(k) = %d, %v, want 7, true", v, ok)
	}
	if _, ok := m.Pop("k"); ok {
		t.Error("second Pop(k) should report missing")
	}
}

func TestMap_Range(t *testing.T) {
	m := New[string, int]()
	for i := 0; i < 10; i++ {
		m.Set(fmt.Sprintf("k%d", i), i)
	}

	seen := 0
	m.Range(func(_ string, _ int) bool {
		seen++
		return true
	})
	if seen != 10 {
		t.Errorf("Range visited %d items, want 10", seen)
	}

	// Early stop.
	seen = 0
	m.Range(func(_ string, _ int) bool {
		seen++
		return seen < 3
	})
	if seen != 3 {
		t.Errorf("Range with early stop visited %d, want 3", seen)
	}
}

func TestMap_KeysValues(t *testing.T) {
	m := New[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)

	if got := len(m.Keys()); got != 2 {
		t.Errorf("len(Keys()) = %d, want 2", got)
	}
	if got := len(m.Values()); got != 2 {
		t.Errorf("len(Values()) = %d, want 2", got)
	}
}

func TestNewWithShards_InvalidCount(t *testing.T) {
	// Non-power-of-2 falls back to the default.
	m := NewWithShards[string, int](7)
	if got := len(m.shards); got != DefaultShardCount {
		t.Errorf("shard count = %d, want %d", got, DefaultShardCount)
	}
}

func TestMap_ConcurrentAccess(t *testing.T) {
	m := New[int, int]()
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := g*100 + i
				m.Set(key, i)
				m.Get(key)
			}
		}(g)
	}
	wg.Wait()

	if got := m.Count(); got != 800 {
		t.Errorf("Count() = %d, want 800", got)
	}
}
