package engine

import (
	"fmt"
	"math"

	"trade-advisor/internal/indicators"
	"trade-advisor/internal/levels"
	"trade-advisor/internal/logging"
	"trade-advisor/internal/market"
	"trade-advisor/internal/profile"
	"trade-advisor/internal/signal"
)

// AggregatedRiskTargets is the synthesized stop-loss/take-profit bracket
// with its audit trail.
type AggregatedRiskTargets struct {
	StopLoss               float64  `json:"stop_loss"`
	TakeProfit             float64  `json:"take_profit"`
	RiskRewardRatio        float64  `json:"risk_reward_ratio"`
	ContributingStrategies []string `json:"contributing_strategies"`

	// BestAchievable flags a ratio below the profile minimum that could
	// not be extended further within the ATR ceiling.
	BestAchievable bool `json:"best_achievable,omitempty"`

	ATR   float64  `json:"atr"`
	Notes []string `json:"notes,omitempty"`
}

// RiskTargetConfig tunes the risk target aggregation.
type RiskTargetConfig struct {
	ATRPeriod         int     `json:"atr_period"`          // default 14
	StrongLevelMin    float64 `json:"strong_level_min"`    // min S/R strength to adjust around
	LevelBufferATR    float64 `json:"level_buffer_atr"`    // buffer past a level, in ATRs
	ATRFallbackFactor float64 `json:"atr_fallback_factor"` // ATR substitute as fraction of price
}

// DefaultRiskTargetConfig returns the production parameters.
func DefaultRiskTargetConfig() RiskTargetConfig {
	return RiskTargetConfig{
		ATRPeriod:         14,
		StrongLevelMin:    0.6,
		LevelBufferATR:    0.1,
		ATRFallbackFactor: 0.01,
	}
}

// RiskTargetAggregator synthesizes a defensible stop/target bracket from
// per-strategy suggestions, volatility, and support/resistance structure.
type RiskTargetAggregator struct {
	cfg RiskTargetConfig
	log *logging.Logger
}

// NewRiskTargetAggregator creates an aggregator. Zero-value config fields
// fall back to defaults.
func NewRiskTargetAggregator(cfg RiskTargetConfig, log *logging.Logger) *RiskTargetAggregator {
	def := DefaultRiskTargetConfig()
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = def.ATRPeriod
	}
	if cfg.StrongLevelMin <= 0 {
		cfg.StrongLevelMin = def.StrongLevelMin
	}
	if cfg.LevelBufferATR <= 0 {
		cfg.LevelBufferATR = def.LevelBufferATR
	}
	if cfg.ATRFallbackFactor <= 0 {
		cfg.ATRFallbackFactor = def.ATRFallbackFactor
	}
	if log == nil {
		log = logging.Nop()
	}
	return &RiskTargetAggregator{cfg: cfg, log: log.WithComponent("risk_targets")}
}

// Aggregate builds the bracket for a non-HOLD action. It returns a
// ContractViolationError when the final bracket breaks an invariant; that
// is surfaced, never coerced.
func (a *RiskTargetAggregator) Aggregate(
	signals []signal.StrategySignal,
	action signal.Action,
	entry signal.EntryRange,
	candles []market.Candle,
	analysis *levels.Analysis,
	rp *profile.RiskProfile,
) (*AggregatedRiskTargets, error) {
	if action == signal.ActionHold {
		return nil, fmt.Errorf("risk targets undefined for HOLD")
	}

	dir := 1.0
	if action == signal.ActionSell {
		dir = -1.0
	}

	entryPrice := entry.Mid()
	if entryPrice <= 0 {
		return nil, fmt.Errorf("non-positive entry price %.8f", entryPrice)
	}

	out := &AggregatedRiskTargets{}

	atr := indicators.CalculateATR(candles, a.cfg.ATRPeriod)
	if atr == 0 {
		atr = entryPrice * a.cfg.ATRFallbackFactor
		out.Notes = append(out.Notes, "insufficient candles for ATR, using price fraction fallback")
	}
	out.ATR = atr

	stop, takeProfit := a.aggregateTargets(signals, action, out)
	minStop := rp.ATRStopMultiple * atr

	// The volatility stop measures from the entry midpoint but must never
	// land inside the entry band itself.
	floorStop := entryPrice - dir*minStop
	if edge := bandEdge(entry, dir); dir*(floorStop-edge) > 0 {
		floorStop = edge
	}

	// A stop on the wrong side of entry is an unusable suggestion; fall
	// back to the volatility stop.
	if stop == 0 || dir*(entryPrice-stop) <= 0 {
		stop = floorStop
		out.Notes = append(out.Notes, "no usable aggregated stop, derived from ATR")
	}

	// Volatility floor: widen the stop away from entry, never shrink the
	// reward side.
	if math.Abs(entryPrice-stop) < minStop {
		stop = floorStop
		out.Notes = append(out.Notes, fmt.Sprintf("stop widened to %.2f ATR floor", rp.ATRStopMultiple))
	}

	stopDist := math.Abs(entryPrice - stop)

	if takeProfit == 0 || dir*(takeProfit-entryPrice) <= 0 {
		takeProfit = entryPrice + dir*rp.MinRiskReward*stopDist
		out.Notes = append(out.Notes, "no usable aggregated take profit, derived from min risk/reward")
	}

	// Hide the stop behind a strong level sitting between entry and the
	// candidate stop, keeping the volatility floor intact.
	if analysis != nil {
		if lvl := analysis.StrongestBetween(stop, entryPrice, a.cfg.StrongLevelMin); lvl != nil {
			buffer := atr * a.cfg.LevelBufferATR
			adjusted := lvl.Price - dir*buffer
			if math.Abs(entryPrice-adjusted) >= minStop {
				stop = adjusted
				stopDist = math.Abs(entryPrice - stop)
				out.Notes = append(out.Notes, fmt.Sprintf("stop moved beyond %s at %.8f", lvl.LevelType, lvl.Price))
			}
		}
	}

	// Extend the take profit toward the profile minimum ratio, capped at
	// the ATR sanity ceiling. A ceiling hit reports the achievable ratio
	// instead of fabricating success.
	reward := dir * (takeProfit - entryPrice)
	if reward/stopDist < rp.MinRiskReward {
		desired := entryPrice + dir*rp.MinRiskReward*stopDist
		ceiling := entryPrice + dir*rp.TakeProfitATRCeiling*atr
		extended := desired
		if dir*(desired-ceiling) > 0 {
			extended = ceiling
			out.BestAchievable = true
			out.Notes = append(out.Notes, "take profit capped at ATR ceiling below min risk/reward")
		}
		// Never shrink the reward already on the table.
		if dir*(extended-takeProfit) > 0 {
			takeProfit = extended
		}
	}

	// Pull the take profit to just short of an opposing strong level,
	// unless that would breach the minimum ratio; then the level is
	// overridden and the override logged.
	if analysis != nil {
		if lvl := analysis.StrongestBetween(entryPrice, takeProfit, a.cfg.StrongLevelMin); lvl != nil {
			buffer := atr * a.cfg.LevelBufferATR
			pulled := lvl.Price - dir*buffer
			if dir*(pulled-entryPrice)/stopDist >= rp.MinRiskReward {
				takeProfit = pulled
				out.Notes = append(out.Notes, fmt.Sprintf("take profit pulled short of %s at %.8f", lvl.LevelType, lvl.Price))
			} else {
				out.Notes = append(out.Notes, fmt.Sprintf("%s at %.8f overridden: pulling take profit would breach min risk/reward", lvl.LevelType, lvl.Price))
				a.log.Warn("strong level overridden to preserve min risk/reward",
					"level_type", string(lvl.LevelType),
					"level_price", lvl.Price,
					"level_strength", lvl.Strength,
					"take_profit", takeProfit)
			}
		}
	}

	out.StopLoss = stop
	out.TakeProfit = takeProfit
	out.RiskRewardRatio = dir * (takeProfit - entryPrice) / math.Abs(entryPrice-stop)

	if err := a.validate(out, action, entryPrice, entry); err != nil {
		return nil, err
	}
	return out, nil
}

// bandEdge returns the stop-side boundary of the entry band: the low edge
// for a long, the high edge for a short.
func bandEdge(entry signal.EntryRange, dir float64) float64 {
	if dir > 0 {
		return entry.Min
	}
	return entry.Max
}

// aggregateTargets computes the confidence×strength weighted mean of the
// per-signal stop/target suggestions matching the action. Absent targets
// (zero prices) do not contribute.
func (a *RiskTargetAggregator) aggregateTargets(
	signals []signal.StrategySignal,
	action signal.Action,
	out *AggregatedRiskTargets,
) (stop, takeProfit float64) {
	var stopSum, stopWeight, tpSum, tpWeight float64
	for _, s := range signals {
		if s.Signal != action {
			continue
		}
		w := s.Confidence * s.Strength
		if w == 0 {
			continue
		}
		contributed := false
		if s.RiskTargets.StopLoss > 0 {
			stopSum += s.RiskTargets.StopLoss * w
			stopWeight += w
			contributed = true
		}
		if s.RiskTargets.TakeProfit > 0 {
			tpSum += s.RiskTargets.TakeProfit * w
			tpWeight += w
			contributed = true
		}
		if contributed {
			out.ContributingStrategies = append(out.ContributingStrategies, s.StrategyName)
		}
	}
	if stopWeight > 0 {
		stop = stopSum / stopWeight
	}
	if tpWeight > 0 {
		takeProfit = tpSum / tpWeight
	}
	return stop, takeProfit
}

// validate enforces the bracket contract: stop and target on the correct
// side of entry, neither inside the entry range, positive ratio.
func (a *RiskTargetAggregator) validate(out *AggregatedRiskTargets, action signal.Action, entryPrice float64, entry signal.EntryRange) error {
	dir := 1.0
	if action == signal.ActionSell {
		dir = -1.0
	}

	if dir*(entryPrice-out.StopLoss) <= 0 {
		return &ContractViolationError{
			Invariant: "stop loss on correct side of entry",
			Detail:    fmt.Sprintf("action=%s entry=%.8f stop=%.8f", action, entryPrice, out.StopLoss),
		}
	}
	if dir*(out.TakeProfit-entryPrice) <= 0 {
		return &ContractViolationError{
			Invariant: "take profit on correct side of entry",
			Detail:    fmt.Sprintf("action=%s entry=%.8f take_profit=%.8f", action, entryPrice, out.TakeProfit),
		}
	}
	if entry.Contains(out.StopLoss) {
		return &ContractViolationError{
			Invariant: "stop loss outside entry range",
			Detail:    fmt.Sprintf("stop=%.8f range=[%.8f, %.8f]", out.StopLoss, entry.Min, entry.Max),
		}
	}
	if entry.Contains(out.TakeProfit) {
		return &ContractViolationError{
			Invariant: "take profit outside entry range",
			Detail:    fmt.Sprintf("take_profit=%.8f range=[%.8f, %.8f]", out.TakeProfit, entry.Min, entry.Max),
		}
	}
	if out.RiskRewardRatio <= 0 {
		return &ContractViolationError{
			Invariant: "positive risk/reward ratio",
			Detail:    fmt.Sprintf("ratio=%.4f", out.RiskRewardRatio),
		}
	}
	return nil
}
