package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"trade-advisor/internal/signal"
)

type stubSource struct {
	name  string
	delay time.Duration
	err   error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Signal(ctx context.Context, symbol, timeframe string) (signal.StrategySignal, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return signal.StrategySignal{}, ctx.Err()
		}
	}
	if s.err != nil {
		return signal.StrategySignal{}, s.err
	}
	return signal.StrategySignal{
		StrategyName: s.name,
		Timeframe:    timeframe,
		Signal:       signal.ActionBuy,
		Confidence:   0.7,
		Strength:     0.6,
	}, nil
}

func TestCollectFansOutAcrossSourcesAndTimeframes(t *testing.T) {
	c := New(time.Second, nil)
	c.Register(&stubSource{name: "alpha"})
	c.Register(&stubSource{name: "beta"})

	signals := c.Collect(context.Background(), "BTCUSDT", []string{"1h", "4h"})

	if len(signals) != 4 {
		t.Fatalf("expected 4 signals, got %d", len(signals))
	}
	// Deterministic order: strategy name, then timeframe.
	want := []struct{ name, tf string }{
		{"alpha", "1h"}, {"alpha", "4h"}, {"beta", "1h"}, {"beta", "4h"},
	}
	for i, w := range want {
		if signals[i].StrategyName != w.name || signals[i].Timeframe != w.tf {
			t.Errorf("position %d: expected %s/%s, got %s/%s", i, w.name, w.tf, signals[i].StrategyName, signals[i].Timeframe)
		}
	}
}

func TestCollectExcludesFailingSource(t *testing.T) {
	c := New(time.Second, nil)
	c.Register(&stubSource{name: "healthy"})
	c.Register(&stubSource{name: "broken", err: errors.New("feed down")})

	signals := c.Collect(context.Background(), "BTCUSDT", []string{"1h"})

	if len(signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(signals))
	}
	if signals[0].StrategyName != "healthy" {
		t.Errorf("expected the healthy source, got %s", signals[0].StrategyName)
	}
}

func TestCollectExcludesTimedOutSource(t *testing.T) {
	c := New(20*time.Millisecond, nil)
	c.Register(&stubSource{name: "fast"})
	c.Register(&stubSource{name: "slow", delay: 500 * time.Millisecond})

	start := time.Now()
	signals := c.Collect(context.Background(), "BTCUSDT", []string{"1h"})
	elapsed := time.Since(start)

	if len(signals) != 1 || signals[0].StrategyName != "fast" {
		t.Fatalf("expected only the fast source, got %d signals", len(signals))
	}
	if elapsed > 400*time.Millisecond {
		t.Errorf("slow source must be cut off by the timeout, took %v", elapsed)
	}
}

func TestCollectNoSources(t *testing.T) {
	c := New(time.Second, nil)

	signals := c.Collect(context.Background(), "BTCUSDT", []string{"1h"})

	if len(signals) != 0 {
		t.Errorf("expected no signals, got %d", len(signals))
	}
}

func TestRegisterUnregister(t *testing.T) {
	c := New(time.Second, nil)
	c.Register(&stubSource{name: "alpha"})
	c.Register(&stubSource{name: "beta"})
	c.Unregister("alpha")

	names := c.SourceNames()
	if len(names) != 1 || names[0] != "beta" {
		t.Errorf("expected [beta], got %v", names)
	}
}
