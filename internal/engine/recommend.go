package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"trade-advisor/internal/levels"
	"trade-advisor/internal/logging"
	"trade-advisor/internal/market"
	"trade-advisor/internal/profile"
	"trade-advisor/internal/signal"
)

// ChecklistItem is one entry of the fixed pre-trade checklist. Items
// default unchecked; enforcement is a downstream concern.
type ChecklistItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Checked     bool   `json:"checked"`
}

// SupportResistanceSummary condenses the level analysis for the audit trail.
type SupportResistanceSummary struct {
	NearestSupport    *levels.Level `json:"nearest_support,omitempty"`
	NearestResistance *levels.Level `json:"nearest_resistance,omitempty"`
	SupportCount      int           `json:"support_count"`
	ResistanceCount   int           `json:"resistance_count"`
}

// Recommendation is the engine's sole output: one actionable call per
// cycle, a pure function of the input snapshot. Field names are stable for
// contract testing.
type Recommendation struct {
	ID          string        `json:"id"`
	Symbol      string        `json:"symbol"`
	Style       profile.Style `json:"style"`
	GeneratedAt time.Time     `json:"timestamp"`

	Action          signal.Action     `json:"action"`
	Confidence      float64           `json:"confidence"`
	SignalConsensus float64           `json:"signal_consensus"`
	EntryRange      signal.EntryRange `json:"entry_range"`

	StopLoss            float64 `json:"stop_loss"`
	TakeProfit          float64 `json:"take_profit"`
	RiskRewardRatio     float64 `json:"risk_reward_ratio"`
	BestAchievableRatio bool    `json:"best_achievable_ratio,omitempty"`

	PositionSizeUnits float64 `json:"position_size_units"`
	PositionSizePct   float64 `json:"position_size_pct"`

	StrategyDetails   []StrategyDetail         `json:"strategy_details"`
	SupportResistance SupportResistanceSummary `json:"support_resistance_summary"`
	PreTradeChecklist []ChecklistItem          `json:"pre_trade_checklist"`
	Justification     string                   `json:"justification"`
	Warnings          []string                 `json:"warnings,omitempty"`
}

// Input is the immutable snapshot one cycle runs on.
type Input struct {
	Symbol  string
	Style   profile.Style
	Signals []signal.StrategySignal
	Candles []market.Candle

	// Capital is the account capital the risk budget applies to. When
	// zero, sizing is skipped and a warning is attached.
	Capital float64

	// HistoricalAccuracy optionally nudges confidence within a fixed
	// bound; nil disables the nudge.
	HistoricalAccuracy *float64
}

// Engine collapses per-strategy signals into one recommendation. It holds
// no mutable state between cycles; invocations are independent and safe to
// run concurrently per (symbol, style).
type Engine struct {
	registry *profile.Registry
	detector *levels.Detector
	riskAgg  *RiskTargetAggregator
	log      *logging.Logger

	newID func() string
	now   func() time.Time
}

// New creates an engine.
func New(registry *profile.Registry, detector *levels.Detector, riskCfg RiskTargetConfig, log *logging.Logger) *Engine {
	if log == nil {
		log = logging.Nop()
	}
	return &Engine{
		registry: registry,
		detector: detector,
		riskAgg:  NewRiskTargetAggregator(riskCfg, log),
		log:      log.WithComponent("engine"),
		newID:    func() string { return uuid.New().String() },
		now:      time.Now,
	}
}

// Recommend runs one aggregation cycle. Malformed signals are dropped and
// logged; an empty or all-neutral surviving set yields a well-formed HOLD
// recommendation. Contract violations and configuration errors surface to
// the caller.
func (e *Engine) Recommend(input Input) (*Recommendation, error) {
	tf, rp, err := e.registry.Resolve(input.Style)
	if err != nil {
		return nil, err
	}

	valid, dropped := signal.FilterValid(input.Signals)
	for _, dropErr := range dropped {
		e.log.Warn("dropping malformed signal", "symbol", input.Symbol, "error", dropErr)
	}

	currentPrice := market.LastClose(input.Candles)
	analysis := e.detector.Detect(input.Candles)

	consensus := CalculateConsensus(valid, tf, e.registry.Dampening(), input.HistoricalAccuracy)

	rec := &Recommendation{
		ID:                e.newID(),
		Symbol:            input.Symbol,
		Style:             input.Style,
		GeneratedAt:       e.now().UTC(),
		Action:            consensus.Action,
		Confidence:        consensus.Confidence,
		SignalConsensus:   consensus.SignalConsensus,
		StrategyDetails:   consensus.Details,
		SupportResistance: summarizeLevels(analysis),
		PreTradeChecklist: defaultChecklist(),
	}

	if consensus.Action == signal.ActionHold {
		rec.EntryRange = signal.EntryRange{Min: currentPrice, Max: currentPrice}
		rec.Justification = holdJustification(consensus, len(input.Signals), len(dropped))
		e.log.Info("recommendation generated",
			"symbol", input.Symbol,
			"style", string(input.Style),
			"action", string(rec.Action),
			"consensus", rec.SignalConsensus)
		return rec, nil
	}

	rec.EntryRange = AggregateEntryRange(valid, consensus.Action, currentPrice)

	targets, err := e.riskAgg.Aggregate(valid, consensus.Action, rec.EntryRange, input.Candles, analysis, rp)
	if err != nil {
		return nil, err
	}
	rec.StopLoss = targets.StopLoss
	rec.TakeProfit = targets.TakeProfit
	rec.RiskRewardRatio = targets.RiskRewardRatio
	rec.BestAchievableRatio = targets.BestAchievable
	rec.Warnings = append(rec.Warnings, targets.Notes...)

	if input.Capital > 0 {
		size, err := CalculatePositionSize(input.Capital, rp.MaxRiskPercent, rec.EntryRange.Mid(), targets.StopLoss, rp.MaxPositionPercent)
		if err != nil {
			return nil, err
		}
		rec.PositionSizeUnits = size.Units
		rec.PositionSizePct = size.Percent
		if size.Clamped {
			rec.Warnings = append(rec.Warnings, "position size clamped to profile maximum")
		}
	} else {
		rec.Warnings = append(rec.Warnings, "no capital supplied, position sizing skipped")
	}

	rec.Justification = actionJustification(rec, consensus, targets, analysis)

	e.log.Info("recommendation generated",
		"symbol", input.Symbol,
		"style", string(input.Style),
		"action", string(rec.Action),
		"consensus", rec.SignalConsensus,
		"confidence", rec.Confidence,
		"risk_reward", rec.RiskRewardRatio)

	return rec, nil
}

func summarizeLevels(analysis *levels.Analysis) SupportResistanceSummary {
	return SupportResistanceSummary{
		NearestSupport:    analysis.Nearest(levels.LevelSupport),
		NearestResistance: analysis.Nearest(levels.LevelResistance),
		SupportCount:      len(analysis.Support),
		ResistanceCount:   len(analysis.Resistance),
	}
}

// defaultChecklist returns the fixed pre-trade checklist, all unchecked.
func defaultChecklist() []ChecklistItem {
	return []ChecklistItem{
		{Name: "risk_budget_confirmed", Description: "Loss at stop fits the account risk budget", Required: true},
		{Name: "bracket_orders_prepared", Description: "Stop-loss and take-profit orders staged with the entry", Required: true},
		{Name: "higher_timeframe_reviewed", Description: "No conflicting structure on the next timeframe up", Required: false},
		{Name: "news_calendar_checked", Description: "No imminent high-impact events for the symbol", Required: false},
		{Name: "liquidity_checked", Description: "Spread and depth acceptable for the intended size", Required: false},
	}
}

func holdJustification(consensus ConsensusResult, total, dropped int) string {
	switch {
	case total == 0:
		return "HOLD: no strategy signals available this cycle"
	case dropped == total:
		return fmt.Sprintf("HOLD: all %d signals failed validation", total)
	case consensus.ActiveCount == 0:
		return fmt.Sprintf("HOLD: all %d contributing strategies are neutral; neutrality is uncertainty, not agreement", len(consensus.Details))
	default:
		return fmt.Sprintf("HOLD: buy and sell pressure tied across %d active strategies", consensus.ActiveCount)
	}
}

func actionJustification(rec *Recommendation, consensus ConsensusResult, targets *AggregatedRiskTargets, analysis *levels.Analysis) string {
	s := fmt.Sprintf("%s: %d/%d active strategies agree, consensus %.0f%%, confidence %.0f%%, RR %.2f",
		rec.Action, consensus.AgreeingCount, consensus.ActiveCount,
		rec.SignalConsensus*100, rec.Confidence*100, rec.RiskRewardRatio)
	if targets.BestAchievable {
		s += " (best achievable below profile minimum)"
	}
	if sup := analysis.Nearest(levels.LevelSupport); sup != nil {
		s += fmt.Sprintf(", nearest support %.8g", sup.Price)
	}
	if res := analysis.Nearest(levels.LevelResistance); res != nil {
		s += fmt.Sprintf(", nearest resistance %.8g", res.Price)
	}
	return s
}
