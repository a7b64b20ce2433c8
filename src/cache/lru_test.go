package cache

import (
	"testing"
	"time"
)

func BenchmarkLRU_Set(b *testing.B) {
	c := NewLRU[string](1000, 5*time.Minute)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Set(HashKey([]byte(string(rune(i)))), "value")
	}
}

func TestLRU_Basic(t *testing.T) {
	c := NewLRU[int](3, time.Hour)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	if val, ok := c.Get("a"); !ok || val != 1 {
		t.Errorf("expected 1, got %v", val)
	}

	// "b" is now the least recently used.
	c.Set("d", 4)

	if _, ok := c.Get("b"); ok {
		t.Error("expected 'b' to be evicted")
	}
	if c.Len() != 3 {
		t.Errorf("expected cache length 3, got %d", c.Len())
	}
}

func TestLRU_TTL(t *testing.T) {
	c := NewLRU[string](10, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }

	c.Set("key", "value")
	if _, ok := c.Get("key"); !ok {
		t.Fatal("expected key to be present")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("key"); ok {
		t.Fatal("expected key to expire")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be removed on access, len=%d", c.Len())
	}
}

func TestLRU_ZeroTTLNeverExpires(t *testing.T) {
	c := NewLRU[string](2, 0)
	now := time.Unix(0, 0)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	now = now.Add(24 * time.Hour)
	if v, ok := c.Get("k"); !ok || v != "v" {
		t.Fatalf("Get() = %q, %v", v, ok)
	}
}

func TestLRU_UpdateMovesToFront(t *testing.T) {
	c := NewLRU[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected 'b' to be evicted after 'a' was refreshed")
	}
	if v, _ := c.Get("a"); v != 10 {
		t.Fatalf("expected updated value 10, got %d", v)
	}
}

func TestLRU_LenCountsUntouchedExpired(t *testing.T) {
	c := NewLRU[int](4, time.Minute)
	now := time.Unix(0, 0)
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	c.Set("b", 2)

	now = now.Add(2 * time.Minute)
	if c.Len() != 2 {
		t.Fatalf("Len() = %d before touching expired entries", c.Len())
	}
	c.Get("a")
	if c.Len() != 1 {
		t.Fatalf("Len() = %d after Get removed an expired entry", c.Len())
	}
}

func TestHashKeySeparatesParts(t *testing.T) {
	if HashKey([]byte("ab"), []byte("c")) == HashKey([]byte("a"), []byte("bc")) {
		t.Fatal("HashKey must not collide on shifted boundaries")
	}
	if HashKey([]byte("x")) != HashKey([]byte("x")) {
		t.Fatal("HashKey must be deterministic")
	}
}
