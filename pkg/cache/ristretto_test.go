package cache

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestCache(t *testing.T) *RistrettoCache {
	t.Helper()

	logger, _ := zap.NewDevelopment()
	c, err := NewRistrettoCache(&RistrettoConfig{
		MaxItems: 100,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	rc := c.(*RistrettoCache)
	t.Cleanup(rc.Close)
	return rc
}

func TestRistrettoCache_SetGet(t *testing.T) {
	c := newTestCache(t)

	if ok := c.Set("topic:42", "value", time.Minute); !ok {
		t.Fatal("set rejected")
	}
	c.Wait()

	got, found := c.Get("topic:42")
	if !found {
		t.Fatal("expected hit")
	}
	if got.(string) != "value" {
		t.Errorf("got %v", got)
	}
}

func TestRistrettoCache_Miss(t *testing.T) {
	c := newTestCache(t)

	if _, found := c.Get("absent"); found {
		t.Error("expected miss")
	}
}

func TestRistrettoCache_Delete(t *testing.T) {
	c := newTestCache(t)

	c.Set("k", 1, time.Minute)
	c.Wait()
	c.Delete("k")
	c.Wait()

	if _, found := c.Get("k"); found {
		t.Error("expected miss after delete")
	}
}

func TestRistrettoCache_TTLExpiry(t *testing.T) {
	c := newTestCache(t)

	c.Set("short", 1, 10*time.Millisecond)
	c.Wait()
	time.Sleep(50 * time.Millisecond)

	if _, found := c.Get("short"); found {
		t.Error("expected entry to expire")
	}
}
