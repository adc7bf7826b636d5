package signal

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Action is a strategy's directional call for one timeframe.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Valid reports whether the action is one of BUY, SELL, HOLD.
func (a Action) Valid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionHold:
		return true
	}
	return false
}

// EntryRange is the price band a strategy considers reasonable for entry.
type EntryRange struct {
	Min float64 `json:"min" validate:"gte=0"`
	Max float64 `json:"max" validate:"gte=0"`
}

// Width returns the band width.
func (r EntryRange) Width() float64 {
	return r.Max - r.Min
}

// Mid returns the band midpoint.
func (r EntryRange) Mid() float64 {
	return (r.Min + r.Max) / 2
}

// Contains reports whether price falls strictly inside the band.
// Zero-width bands contain nothing.
func (r EntryRange) Contains(price float64) bool {
	return price > r.Min && price < r.Max
}

// RiskTargets is a strategy's suggested stop-loss / take-profit pair.
type RiskTargets struct {
	StopLoss   float64 `json:"stop_loss" validate:"gte=0"`
	TakeProfit float64 `json:"take_profit" validate:"gte=0"`
}

// StrategySignal is one strategy's output for one timeframe. Produced
// externally each cycle, immutable and read-only to the engine.
type StrategySignal struct {
	StrategyName string      `json:"strategy_name" validate:"required"`
	Timeframe    string      `json:"timeframe" validate:"required"`
	Signal       Action      `json:"signal" validate:"required"`
	Strength     float64     `json:"strength" validate:"gte=0,lte=1"`
	Confidence   float64     `json:"confidence" validate:"gte=0,lte=1"`
	EntryRange   EntryRange  `json:"entry_range"`
	RiskTargets  RiskTargets `json:"risk_targets"`
	Reason       string      `json:"reason"`
}

var validate = validator.New()

// Validate checks the signal's contract: required fields present, action
// recognized, strength and confidence in [0,1]. Callers drop signals
// failing validation and continue with the rest.
func (s StrategySignal) Validate() error {
	if !s.Signal.Valid() {
		return fmt.Errorf("signal %q: unknown action %q", s.StrategyName, s.Signal)
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("signal %q: %w", s.StrategyName, err)
	}
	if s.EntryRange.Min > s.EntryRange.Max && s.EntryRange.Max > 0 {
		return fmt.Errorf("signal %q: inverted entry range [%.8f, %.8f]", s.StrategyName, s.EntryRange.Min, s.EntryRange.Max)
	}
	return nil
}

// FilterValid returns the signals passing Validate, plus the errors for
// the ones dropped.
func FilterValid(signals []StrategySignal) ([]StrategySignal, []error) {
	valid := make([]StrategySignal, 0, len(signals))
	var dropped []error
	for _, s := range signals {
		if err := s.Validate(); err != nil {
			dropped = append(dropped, err)
			continue
		}
		valid = append(valid, s)
	}
	return valid, dropped
}
