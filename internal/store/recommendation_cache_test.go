package store

import (
	"context"
	"testing"
	"time"

	"trade-advisor/internal/engine"
	"trade-advisor/internal/profile"
	"trade-advisor/internal/signal"
)

func testRec(symbol string, style profile.Style) *engine.Recommendation {
	return &engine.Recommendation{
		ID:     "rec-1",
		Symbol: symbol,
		Style:  style,
		Action: signal.ActionBuy,
	}
}

func TestCacheMemoryFallbackPutGet(t *testing.T) {
	c := NewRecommendationCache(nil, time.Minute, nil)
	ctx := context.Background()

	rec := testRec("BTCUSDT", profile.StyleBalanced)
	c.Put(ctx, rec)

	got := c.Get(ctx, "BTCUSDT", profile.StyleBalanced)
	if got == nil {
		t.Fatal("expected cached recommendation")
	}
	if got.ID != rec.ID || got.Symbol != rec.Symbol {
		t.Errorf("cached recommendation mismatch: %+v", got)
	}
}

func TestCacheKeyIsPerSymbolAndStyle(t *testing.T) {
	c := NewRecommendationCache(nil, time.Minute, nil)
	ctx := context.Background()

	c.Put(ctx, testRec("BTCUSDT", profile.StyleBalanced))

	if c.Get(ctx, "ETHUSDT", profile.StyleBalanced) != nil {
		t.Error("different symbol must miss")
	}
	if c.Get(ctx, "BTCUSDT", profile.StyleSwing) != nil {
		t.Error("different style must miss")
	}
}

func TestCacheMemoryExpiry(t *testing.T) {
	c := NewRecommendationCache(nil, time.Millisecond, nil)
	ctx := context.Background()

	c.Put(ctx, testRec("BTCUSDT", profile.StyleBalanced))
	time.Sleep(5 * time.Millisecond)

	if c.Get(ctx, "BTCUSDT", profile.StyleBalanced) != nil {
		t.Error("expired entry must not be served")
	}
}

func TestCacheMiss(t *testing.T) {
	c := NewRecommendationCache(nil, time.Minute, nil)
	if c.Get(context.Background(), "BTCUSDT", profile.StyleBalanced) != nil {
		t.Error("expected nil on a cold cache")
	}
}
