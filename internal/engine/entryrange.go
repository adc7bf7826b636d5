package engine

import (
	"trade-advisor/internal/signal"
)

// AggregateEntryRange computes the weighted entry band over signals that
// match the winning action. Weight is confidence × strength; timeframe
// weights are deliberately excluded so a strategy's own entry pricing is
// judged only by how sure it is. With no matching signals the band
// collapses to zero width at the current price.
func AggregateEntryRange(signals []signal.StrategySignal, action signal.Action, currentPrice float64) signal.EntryRange {
	var minSum, maxSum, weightSum float64

	for _, s := range signals {
		if s.Signal != action {
			continue
		}
		if s.EntryRange.Min == 0 && s.EntryRange.Max == 0 {
			continue
		}
		w := s.Confidence * s.Strength
		if w == 0 {
			continue
		}
		minSum += s.EntryRange.Min * w
		maxSum += s.EntryRange.Max * w
		weightSum += w
	}

	if weightSum == 0 {
		return signal.EntryRange{Min: currentPrice, Max: currentPrice}
	}

	r := signal.EntryRange{
		Min: minSum / weightSum,
		Max: maxSum / weightSum,
	}
	if r.Min > r.Max {
		r.Min, r.Max = r.Max, r.Min
	}
	return r
}
