package cache

import (
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	c, err := New[string](time.Minute)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	c.Set("key1", "value1")
	c.Wait()

	got, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected cache hit for key1")
	}
	if got != "value1" {
		t.Errorf("expected %q, got %q", "value1", got)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("expected cache miss for missing key")
	}
}

func TestCacheNoExpiry(t *testing.T) {
	c, err := New[int](0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	c.Set("forever", 42)
	c.Wait()

	got, ok := c.Get("forever")
	if !ok || got != 42 {
		t.Errorf("expected 42, got %d (hit=%v)", got, ok)
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	c, err := New[string](50 * time.Millisecond)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	c.Set("shortlived", "value")
	c.Wait()

	if _, ok := c.Get("shortlived"); !ok {
		t.Fatal("expected hit before TTL expiry")
	}

	time.Sleep(150 * time.Millisecond)

	if _, ok := c.Get("shortlived"); ok {
		t.Error("expected miss after TTL expiry")
	}
}

func TestCacheDelete(t *testing.T) {
	c, err := New[string](time.Minute)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	c.Set("key1", "value1")
	c.Wait()

	c.Delete("key1")
	c.Wait()

	if _, ok := c.Get("key1"); ok {
		t.Error("expected miss after delete")
	}
}

func TestCacheFlush(t *testing.T) {
	c, err := New[string](time.Minute)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	c.Set("key1", "value1")
	c.Set("key2", "value2")
	c.Wait()

	c.Flush()

	if _, ok := c.Get("key1"); ok {
		t.Error("expected miss after flush")
	}
	if _, ok := c.Get("key2"); ok {
		t.Error("expected miss after flush")
	}
}

func TestCachePing(t *testing.T) {
	c, err := New[string](time.Minute)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	if err := c.Ping(); err != nil {
		t.Errorf("expected healthy ping, got %v", err)
	}
}
