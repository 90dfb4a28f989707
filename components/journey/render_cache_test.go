package journey

import (
	"errors"
	"testing"
	"time"
)

func TestChartCacheGetOrRender(t *testing.T) {
	cache := NewChartCache(time.Minute)

	renders := 0
	render := func() (string, error) {
		renders++
		return "<div>chart</div>", nil
	}

	html, err := cache.GetOrRender("funnel:empty", render)
	if err != nil {
		t.Fatalf("GetOrRender returned error: %v", err)
	}
	if html != "<div>chart</div>" {
		t.Fatalf("unexpected html: %q", html)
	}

	if _, err := cache.GetOrRender("funnel:empty", render); err != nil {
		t.Fatalf("GetOrRender returned error: %v", err)
	}
	if renders != 1 {
		t.Fatalf("expected a single render, got %d", renders)
	}
}

func TestChartCacheRenderErrorsAreNotCached(t *testing.T) {
	cache := NewChartCache(time.Minute)
	boom := errors.New("render failed")

	if _, err := cache.GetOrRender("k", func() (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Fatalf("expected render error, got %v", err)
	}
	html, err := cache.GetOrRender("k", func() (string, error) { return "ok", nil })
	if err != nil || html != "ok" {
		t.Fatalf("expected retry after failed render, got %q %v", html, err)
	}
}

func TestChartCacheExpiry(t *testing.T) {
	cache := NewChartCache(time.Nanosecond)
	if _, err := cache.GetOrRender("k", func() (string, error) { return "v1", nil }); err != nil {
		t.Fatalf("GetOrRender returned error: %v", err)
	}
	time.Sleep(2 * time.Millisecond)

	html, err := cache.GetOrRender("k", func() (string, error) { return "v2", nil })
	if err != nil {
		t.Fatalf("GetOrRender returned error: %v", err)
	}
	if html != "v2" {
		t.Fatalf("expected re-render after expiry, got %q", html)
	}
}

func TestChartCacheFlush(t *testing.T) {
	cache := NewChartCache(time.Minute)
	if _, err := cache.GetOrRender("k", func() (string, error) { return "v1", nil }); err != nil {
		t.Fatalf("GetOrRender returned error: %v", err)
	}
	cache.Flush()
	if _, ok := cache.get("k"); ok {
		t.Fatal("expected empty cache after flush")
	}

	// Nil receiver is a no-op so services without a cache stay safe.
	var nilCache *ChartCache
	nilCache.Flush()
	if html, err := nilCache.GetOrRender("k", func() (string, error) { return "v", nil }); err != nil || html != "v" {
		t.Fatalf("nil cache must pass renders through, got %q %v", html, err)
	}
}

func TestConfigHash(t *testing.T) {
	if got := configHash(nil); got != "empty" {
		t.Fatalf("expected sentinel for empty config, got %q", got)
	}
	a := configHash(map[string]any{"days": 30, "theme": "dark"})
	b := configHash(map[string]any{"theme": "dark", "days": 30})
	if a != b {
		t.Fatal("expected deterministic hash regardless of key order")
	}
	if c := configHash(map[string]any{"days": 7}); c == a {
		t.Fatal("expected distinct hash for distinct config")
	}
}
