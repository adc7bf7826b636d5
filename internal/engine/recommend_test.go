package engine

import (
	"testing"
	"time"

	"trade-advisor/internal/levels"
	"trade-advisor/internal/profile"
	"trade-advisor/internal/signal"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	registry, err := profile.NewRegistry()
	if err != nil {
		t.Fatalf("default registry failed: %v", err)
	}
	e := New(registry, levels.NewDetector(levels.DefaultConfig()), RiskTargetConfig{}, nil)
	e.newID = func() string { return "test-id" }
	e.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func daySignal(action signal.Action, confidence, strength float64) signal.StrategySignal {
	return signal.StrategySignal{
		StrategyName: "momentum",
		Timeframe:    "1h",
		Signal:       action,
		Confidence:   confidence,
		Strength:     strength,
		EntryRange:   signal.EntryRange{Min: 99.5, Max: 100.5},
		RiskTargets:  signal.RiskTargets{StopLoss: 97, TakeProfit: 106},
	}
}

func TestRecommendBuyFlow(t *testing.T) {
	e := testEngine(t)

	rec, err := e.Recommend(Input{
		Symbol: "BTCUSDT",
		Style:  profile.StyleDayTrading,
		Signals: []signal.StrategySignal{
			daySignal(signal.ActionBuy, 0.8, 0.9),
			daySignal(signal.ActionBuy, 0.7, 0.8),
		},
		Candles: steadyCandles(120),
		Capital: 10000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.ID != "test-id" {
		t.Errorf("expected injected id, got %q", rec.ID)
	}
	if !rec.GeneratedAt.Equal(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("expected injected timestamp, got %v", rec.GeneratedAt)
	}
	if rec.Action != signal.ActionBuy {
		t.Fatalf("expected BUY, got %s", rec.Action)
	}
	entryMid := rec.EntryRange.Mid()
	if rec.StopLoss >= entryMid {
		t.Errorf("stop %.4f must sit below entry %.4f", rec.StopLoss, entryMid)
	}
	if rec.TakeProfit <= entryMid {
		t.Errorf("take profit %.4f must sit above entry %.4f", rec.TakeProfit, entryMid)
	}
	if rec.RiskRewardRatio <= 0 {
		t.Errorf("expected positive risk/reward, got %.4f", rec.RiskRewardRatio)
	}
	if rec.PositionSizeUnits <= 0 {
		t.Errorf("expected position sizing with capital supplied, got %.4f units", rec.PositionSizeUnits)
	}
	if len(rec.PreTradeChecklist) != 5 {
		t.Errorf("expected 5 checklist items, got %d", len(rec.PreTradeChecklist))
	}
	for _, item := range rec.PreTradeChecklist {
		if item.Checked {
			t.Errorf("checklist item %q must default unchecked", item.Name)
		}
	}
	if rec.Justification == "" {
		t.Error("expected a justification")
	}
	if len(rec.StrategyDetails) != 2 {
		t.Errorf("expected 2 strategy details, got %d", len(rec.StrategyDetails))
	}
}

func TestRecommendDeterministicModuloIdentity(t *testing.T) {
	e := testEngine(t)
	input := Input{
		Symbol: "ETHUSDT",
		Style:  profile.StyleDayTrading,
		Signals: []signal.StrategySignal{
			daySignal(signal.ActionBuy, 0.8, 0.9),
			daySignal(signal.ActionSell, 0.4, 0.5),
		},
		Candles: steadyCandles(120),
		Capital: 5000,
	}

	first, err := e.Recommend(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := e.Recommend(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.Action != second.Action ||
		first.SignalConsensus != second.SignalConsensus ||
		first.Confidence != second.Confidence ||
		first.StopLoss != second.StopLoss ||
		first.TakeProfit != second.TakeProfit ||
		first.PositionSizeUnits != second.PositionSizeUnits {
		t.Error("identical input snapshots must produce identical recommendations")
	}
}

func TestRecommendAllNeutralYieldsWellFormedHold(t *testing.T) {
	e := testEngine(t)

	rec, err := e.Recommend(Input{
		Symbol: "BTCUSDT",
		Style:  profile.StyleBalanced,
		Signals: []signal.StrategySignal{
			daySignal(signal.ActionHold, 0.9, 0.8),
			daySignal(signal.ActionHold, 0.7, 0.6),
		},
		Candles: steadyCandles(120),
		Capital: 10000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.Action != signal.ActionHold {
		t.Fatalf("expected HOLD, got %s", rec.Action)
	}
	if rec.Confidence != 0 || rec.SignalConsensus != 0 {
		t.Errorf("neutral HOLD must carry zero consensus and confidence, got %.4f/%.4f", rec.SignalConsensus, rec.Confidence)
	}
	if rec.EntryRange.Width() != 0 || rec.EntryRange.Mid() != 100 {
		t.Errorf("expected zero-width band at last close, got [%.4f, %.4f]", rec.EntryRange.Min, rec.EntryRange.Max)
	}
	if rec.StopLoss != 0 || rec.TakeProfit != 0 {
		t.Errorf("HOLD must not carry a bracket, got stop %.4f tp %.4f", rec.StopLoss, rec.TakeProfit)
	}
	if rec.Justification == "" {
		t.Error("HOLD still needs a justification")
	}
	if len(rec.PreTradeChecklist) != 5 {
		t.Errorf("HOLD still carries the checklist, got %d items", len(rec.PreTradeChecklist))
	}
}

func TestRecommendEmptySignalsYieldsHold(t *testing.T) {
	e := testEngine(t)

	rec, err := e.Recommend(Input{
		Symbol:  "BTCUSDT",
		Style:   profile.StyleSwing,
		Candles: steadyCandles(120),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Action != signal.ActionHold {
		t.Errorf("expected HOLD, got %s", rec.Action)
	}
}

func TestRecommendDropsMalformedSignals(t *testing.T) {
	e := testEngine(t)

	bad := daySignal(signal.ActionBuy, 1.5, 0.9) // confidence out of range
	good := daySignal(signal.ActionSell, 0.8, 0.8)

	rec, err := e.Recommend(Input{
		Symbol:  "BTCUSDT",
		Style:   profile.StyleDayTrading,
		Signals: []signal.StrategySignal{bad, good},
		Candles: steadyCandles(120),
		Capital: 10000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The malformed BUY is dropped; only the SELL survives.
	if rec.Action != signal.ActionSell {
		t.Errorf("expected SELL from the surviving signal, got %s", rec.Action)
	}
	if len(rec.StrategyDetails) != 1 {
		t.Errorf("dropped signal must not appear in details, got %d", len(rec.StrategyDetails))
	}
}

func TestRecommendNoCapitalSkipsSizing(t *testing.T) {
	e := testEngine(t)

	rec, err := e.Recommend(Input{
		Symbol: "BTCUSDT",
		Style:  profile.StyleDayTrading,
		Signals: []signal.StrategySignal{
			daySignal(signal.ActionBuy, 0.8, 0.9),
		},
		Candles: steadyCandles(120),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.PositionSizeUnits != 0 {
		t.Errorf("expected sizing skipped, got %.4f units", rec.PositionSizeUnits)
	}
	warned := false
	for _, w := range rec.Warnings {
		if w == "no capital supplied, position sizing skipped" {
			warned = true
		}
	}
	if !warned {
		t.Error("expected a skipped-sizing warning")
	}
}

func TestRecommendUnknownStyle(t *testing.T) {
	e := testEngine(t)

	_, err := e.Recommend(Input{
		Symbol: "BTCUSDT",
		Style:  profile.Style("scalping"),
	})
	if err == nil {
		t.Fatal("expected error for unknown style")
	}
}
