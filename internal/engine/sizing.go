package engine

import (
	"fmt"
	"math"
)

// PositionSize is the computed trade size for a risk budget.
type PositionSize struct {
	Units    float64 `json:"units"`
	Notional float64 `json:"notional"`
	Percent  float64 `json:"percent"`

	// Clamped reports that the profile's max position cap shrank the size.
	// Clamping only reduces units; the bracket is never altered to fit.
	Clamped bool `json:"clamped,omitempty"`
}

// CalculatePositionSize converts the stop distance and risk budget into a
// trade size. riskPercent and maxPositionPercent are whole percentages
// (2.0 = 2%). A zero entry-to-stop distance is a validation failure, never
// a silent default.
func CalculatePositionSize(capital, riskPercent, entryPrice, stopLoss, maxPositionPercent float64) (*PositionSize, error) {
	if capital <= 0 {
		return nil, fmt.Errorf("non-positive capital %.2f", capital)
	}
	if entryPrice <= 0 {
		return nil, fmt.Errorf("non-positive entry price %.8f", entryPrice)
	}
	if riskPercent <= 0 {
		return nil, fmt.Errorf("non-positive risk percent %.4f", riskPercent)
	}

	stopDistance := math.Abs(entryPrice - stopLoss)
	if stopDistance == 0 {
		return nil, ErrZeroStopDistance
	}

	riskAmount := capital * (riskPercent / 100)
	units := riskAmount / stopDistance
	notional := units * entryPrice
	percent := (notional / capital) * 100

	size := &PositionSize{Units: units, Notional: notional, Percent: percent}

	if maxPositionPercent > 0 && percent > maxPositionPercent {
		scale := maxPositionPercent / percent
		size.Units *= scale
		size.Notional *= scale
		size.Percent = maxPositionPercent
		size.Clamped = true
	}

	return size, nil
}
