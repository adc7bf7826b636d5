package engine

import (
	"math"

	"trade-advisor/internal/profile"
	"trade-advisor/internal/signal"
)

// AccuracyBoostCeiling bounds the historical-accuracy confidence nudge.
const AccuracyBoostCeiling = 0.05

// StrategyDetail reports one signal's contribution to the recommendation.
// Weight is the signal's normalized share; details always sum to ~1.
type StrategyDetail struct {
	StrategyName string        `json:"strategy_name"`
	Timeframe    string        `json:"timeframe"`
	Signal       signal.Action `json:"signal"`
	Weight       float64       `json:"weight"`
	Confidence   float64       `json:"confidence"`
	Strength     float64       `json:"strength"`
	Reason       string        `json:"reason,omitempty"`
}

// ConsensusResult is the output of the consensus and confidence stage.
type ConsensusResult struct {
	Action          signal.Action    `json:"action"`
	SignalConsensus float64          `json:"signal_consensus"`
	Confidence      float64          `json:"confidence"`
	BuyRatio        float64          `json:"buy_ratio"`
	SellRatio       float64          `json:"sell_ratio"`
	ActiveWeight    float64          `json:"active_weight"`
	HoldWeight      float64          `json:"hold_weight"`
	TotalWeight     float64          `json:"total_weight"`
	ActiveCount     int              `json:"active_count"`
	AgreeingCount   int              `json:"agreeing_count"`
	Details         []StrategyDetail `json:"details"`
}

// CalculateConsensus turns weighted signals into an action, a consensus
// score, and a calibrated confidence. An all-neutral or empty signal set is
// uncertainty, not agreement: it yields HOLD with consensus and confidence
// both zero. historicalAccuracy, when non-nil, applies a bounded nudge
// after all caps.
func CalculateConsensus(
	signals []signal.StrategySignal,
	tf *profile.TimeframeProfile,
	damp profile.NeutralDampening,
	historicalAccuracy *float64,
) ConsensusResult {
	res := ConsensusResult{Action: signal.ActionHold}

	weights := make([]float64, len(signals))
	confWeights := make([]float64, len(signals))
	var buyWeight, sellWeight, holdWeight float64
	for i, s := range signals {
		w := tf.Weight(s.Timeframe) * s.Confidence * s.Strength
		weights[i] = w
		confWeights[i] = tf.Weight(s.Timeframe) * s.Strength
		switch s.Signal {
		case signal.ActionBuy:
			buyWeight += w
		case signal.ActionSell:
			sellWeight += w
		default:
			holdWeight += w
		}
		if s.Signal != signal.ActionHold {
			res.ActiveCount++
		}
	}

	activeWeight := buyWeight + sellWeight
	totalWeight := activeWeight + holdWeight

	res.ActiveWeight = activeWeight
	res.HoldWeight = holdWeight
	res.TotalWeight = totalWeight
	res.Details = buildDetails(signals, weights, totalWeight)

	// No directional weight at all: explicit uncertainty, never 1.0.
	if activeWeight == 0 {
		return res
	}

	// Dampen the neutral mass so hold-heavy sets cannot read as agreement.
	neutralBaseRatio := holdWeight / totalWeight
	neutralWeightFactor := math.Max(
		neutralBaseRatio*damp.HoldWeightScale,
		math.Min(neutralBaseRatio, damp.HoldWeightFloor),
	)
	weightedHold := holdWeight * neutralWeightFactor
	effectiveTotal := activeWeight + weightedHold

	res.BuyRatio = buyWeight / effectiveTotal
	res.SellRatio = sellWeight / effectiveTotal
	rawConsensus := math.Max(res.BuyRatio, res.SellRatio)

	activeShare := activeWeight / totalWeight
	if holdWeight > activeWeight {
		consensus := rawConsensus * activeShare
		maxConsensus := damp.MaxConsensusSlope*activeShare + damp.MaxConsensusBase
		res.SignalConsensus = clamp(consensus, 0, maxConsensus)
	} else {
		res.SignalConsensus = clamp(rawConsensus, 0, 1)
	}

	switch {
	case res.BuyRatio > res.SellRatio:
		res.Action = signal.ActionBuy
	case res.SellRatio > res.BuyRatio:
		res.Action = signal.ActionSell
	default:
		// Perfect directional tie is conflict, not conviction.
		res.Action = signal.ActionHold
		return res
	}

	res.Confidence, res.AgreeingCount = calibrateConfidence(signals, confWeights, res.Action, res.SignalConsensus, historicalAccuracy)
	return res
}

// calibrateConfidence bounds confidence by its contributors: the weighted
// mean confidence of agreeing signals, capped at the best individual
// agreeing confidence and at mean+1 sigma of all active confidences. The
// mean is weighted by timeframe weight and strength only; weighting by
// confidence as well would let a signal discount its own vote, so raising
// a weak contributor's confidence could lower the aggregate. The
// historical-accuracy nudge applies last and never breaches the caps.
func calibrateConfidence(
	signals []signal.StrategySignal,
	confWeights []float64,
	action signal.Action,
	consensus float64,
	historicalAccuracy *float64,
) (float64, int) {
	var weightedConf, agreeWeight, maxAgreeConf float64
	agreeing := 0
	var activeConfs []float64

	for i, s := range signals {
		if s.Signal != signal.ActionHold {
			activeConfs = append(activeConfs, s.Confidence)
		}
		if s.Signal != action {
			continue
		}
		agreeing++
		weightedConf += s.Confidence * confWeights[i]
		agreeWeight += confWeights[i]
		if s.Confidence > maxAgreeConf {
			maxAgreeConf = s.Confidence
		}
	}

	if agreeing == 0 || agreeWeight == 0 {
		return 0, 0
	}

	confidence := consensus * (weightedConf / agreeWeight)

	ceiling := maxAgreeConf
	if sigmaCap, ok := meanPlusSigma(activeConfs); ok && sigmaCap < ceiling {
		ceiling = sigmaCap
	}
	confidence = clamp(confidence, 0, ceiling)

	if historicalAccuracy != nil {
		confidence = clamp(confidence+BoundedBoost(confidence, *historicalAccuracy), 0, ceiling)
	}

	return clamp(confidence, 0, 1), agreeing
}

// BoundedBoost converts a historical accuracy score in [0,1] into a
// confidence delta with a fixed ceiling. 0.5 is neutral; scores above it
// nudge confidence up, below it down, never by more than the ceiling.
func BoundedBoost(baseConfidence, historicalScore float64) float64 {
	delta := (clamp(historicalScore, 0, 1) - 0.5) * 2 * AccuracyBoostCeiling
	return clamp(delta, -AccuracyBoostCeiling, AccuracyBoostCeiling)
}

// buildDetails normalizes per-signal weights into shares summing to 1.
// When every raw weight is zero, shares fall back to equal split so the
// audit trail still accounts for all signals.
func buildDetails(signals []signal.StrategySignal, weights []float64, totalWeight float64) []StrategyDetail {
	if len(signals) == 0 {
		return nil
	}
	details := make([]StrategyDetail, len(signals))
	for i, s := range signals {
		share := 0.0
		if totalWeight > 0 {
			share = weights[i] / totalWeight
		} else {
			share = 1.0 / float64(len(signals))
		}
		details[i] = StrategyDetail{
			StrategyName: s.StrategyName,
			Timeframe:    s.Timeframe,
			Signal:       s.Signal,
			Weight:       share,
			Confidence:   s.Confidence,
			Strength:     s.Strength,
			Reason:       s.Reason,
		}
	}
	return details
}

// meanPlusSigma returns mean + one population standard deviation.
func meanPlusSigma(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))

	return mean + math.Sqrt(variance), true
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
