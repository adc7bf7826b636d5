package profile

import (
	"fmt"
)

// Style identifies a trading style profile.
type Style string

const (
	StyleDayTrading Style = "day_trading"
	StyleBalanced   Style = "balanced"
	StyleSwing      Style = "swing"
	StyleLongTerm   Style = "long_term"
)

// TimeframeProfile maps each timeframe a style cares about to a positive
// weight. Loaded once and immutable per cycle.
type TimeframeProfile struct {
	Style   Style              `json:"style"`
	Name    string             `json:"name"`
	Weights map[string]float64 `json:"weights"`
}

// Weight returns the weight for a timeframe, or 0 when the style does not
// track it.
func (p *TimeframeProfile) Weight(timeframe string) float64 {
	return p.Weights[timeframe]
}

// RiskProfile bundles the risk parameters for a trading style.
type RiskProfile struct {
	Style Style `json:"style"`

	// ATRStopMultiple scales ATR(14) into the minimum stop distance.
	ATRStopMultiple float64 `json:"atr_stop_multiple"`

	// MinRiskReward is the floor for take-profit extension.
	MinRiskReward float64 `json:"min_risk_reward"`

	// TakeProfitATRCeiling caps how far (in ATRs from entry) the take
	// profit may be pushed while chasing MinRiskReward.
	TakeProfitATRCeiling float64 `json:"take_profit_atr_ceiling"`

	// MaxRiskPercent is the share of capital risked between entry and stop.
	MaxRiskPercent float64 `json:"max_risk_percent"`

	// MaxPositionPercent caps position notional as a share of capital.
	MaxPositionPercent float64 `json:"max_position_percent"`
}

// NeutralDampening holds the constants that keep neutral-heavy signal sets
// from reading as agreement. Empirically chosen; exposed as configuration
// rather than hardcoded.
type NeutralDampening struct {
	// HoldWeightScale scales the neutral base ratio into the hold weight
	// factor.
	HoldWeightScale float64 `json:"hold_weight_scale"`

	// HoldWeightFloor bounds the minimum contribution of the neutral mass.
	HoldWeightFloor float64 `json:"hold_weight_floor"`

	// MaxConsensusSlope and MaxConsensusBase define the consensus ceiling
	// when neutrals dominate: slope*(active/total) + base.
	MaxConsensusSlope float64 `json:"max_consensus_slope"`
	MaxConsensusBase  float64 `json:"max_consensus_base"`
}

// DefaultNeutralDampening returns the production constants.
func DefaultNeutralDampening() NeutralDampening {
	return NeutralDampening{
		HoldWeightScale:   0.3,
		HoldWeightFloor:   0.15,
		MaxConsensusSlope: 0.5,
		MaxConsensusBase:  0.3,
	}
}

// defaultTimeframeProfiles returns the built-in style weight maps. Shorter
// styles lean on intraday timeframes, longer styles on daily and weekly.
func defaultTimeframeProfiles() map[Style]*TimeframeProfile {
	return map[Style]*TimeframeProfile{
		StyleDayTrading: {
			Style: StyleDayTrading,
			Name:  "Day Trading",
			Weights: map[string]float64{
				"5m":  0.15,
				"15m": 0.30,
				"1h":  0.35,
				"4h":  0.20,
			},
		},
		StyleBalanced: {
			Style: StyleBalanced,
			Name:  "Balanced",
			Weights: map[string]float64{
				"15m": 0.15,
				"1h":  0.30,
				"4h":  0.30,
				"1d":  0.25,
			},
		},
		StyleSwing: {
			Style: StyleSwing,
			Name:  "Swing Trading",
			Weights: map[string]float64{
				"1h": 0.15,
				"4h": 0.35,
				"1d": 0.35,
				"1w": 0.15,
			},
		},
		StyleLongTerm: {
			Style: StyleLongTerm,
			Name:  "Long Term",
			Weights: map[string]float64{
				"4h": 0.10,
				"1d": 0.40,
				"1w": 0.35,
				"1M": 0.15,
			},
		},
	}
}

// defaultRiskProfiles returns the built-in risk parameter bundles.
func defaultRiskProfiles() map[Style]*RiskProfile {
	return map[Style]*RiskProfile{
		StyleDayTrading: {
			Style:                StyleDayTrading,
			ATRStopMultiple:      1.0,
			MinRiskReward:        1.5,
			TakeProfitATRCeiling: 5.0,
			MaxRiskPercent:       1.0,
			MaxPositionPercent:   5.0,
		},
		StyleBalanced: {
			Style:                StyleBalanced,
			ATRStopMultiple:      1.2,
			MinRiskReward:        1.8,
			TakeProfitATRCeiling: 5.0,
			MaxRiskPercent:       1.5,
			MaxPositionPercent:   10.0,
		},
		StyleSwing: {
			Style:                StyleSwing,
			ATRStopMultiple:      1.5,
			MinRiskReward:        2.0,
			TakeProfitATRCeiling: 5.0,
			MaxRiskPercent:       2.0,
			MaxPositionPercent:   15.0,
		},
		StyleLongTerm: {
			Style:                StyleLongTerm,
			ATRStopMultiple:      2.0,
			MinRiskReward:        2.5,
			TakeProfitATRCeiling: 5.0,
			MaxRiskPercent:       2.0,
			MaxPositionPercent:   20.0,
		},
	}
}

// Registry resolves trading styles to their timeframe and risk profiles.
// Validation happens once at construction; lookups never fail for styles
// the registry was built with.
type Registry struct {
	timeframes map[Style]*TimeframeProfile
	risk       map[Style]*RiskProfile
	dampening  NeutralDampening
}

// NewRegistry builds a registry from the built-in profiles.
func NewRegistry() (*Registry, error) {
	return NewRegistryWith(defaultTimeframeProfiles(), defaultRiskProfiles(), DefaultNeutralDampening())
}

// NewRegistryWith builds a registry from explicit profile maps, validating
// every entry up front. Configuration errors fail here, not per cycle.
func NewRegistryWith(
	timeframes map[Style]*TimeframeProfile,
	risk map[Style]*RiskProfile,
	dampening NeutralDampening,
) (*Registry, error) {
	if len(timeframes) == 0 {
		return nil, fmt.Errorf("no timeframe profiles configured")
	}

	for style, tp := range timeframes {
		if len(tp.Weights) == 0 {
			return nil, fmt.Errorf("profile %q has no timeframe weights", style)
		}
		for tf, w := range tp.Weights {
			if w <= 0 {
				return nil, fmt.Errorf("profile %q has non-positive weight %.4f for timeframe %q", style, w, tf)
			}
		}
		if _, ok := risk[style]; !ok {
			return nil, fmt.Errorf("profile %q has no risk parameters", style)
		}
	}

	for style, rp := range risk {
		if rp.ATRStopMultiple <= 0 {
			return nil, fmt.Errorf("risk profile %q has non-positive ATR stop multiple", style)
		}
		if rp.MinRiskReward <= 0 {
			return nil, fmt.Errorf("risk profile %q has non-positive min risk/reward", style)
		}
		if rp.MaxRiskPercent <= 0 || rp.MaxRiskPercent > 100 {
			return nil, fmt.Errorf("risk profile %q has max risk percent %.2f outside (0, 100]", style, rp.MaxRiskPercent)
		}
		if rp.MaxPositionPercent <= 0 || rp.MaxPositionPercent > 100 {
			return nil, fmt.Errorf("risk profile %q has max position percent %.2f outside (0, 100]", style, rp.MaxPositionPercent)
		}
	}

	if dampening.HoldWeightScale <= 0 || dampening.HoldWeightFloor <= 0 {
		return nil, fmt.Errorf("neutral dampening constants must be positive")
	}

	return &Registry{
		timeframes: timeframes,
		risk:       risk,
		dampening:  dampening,
	}, nil
}

// Resolve returns the timeframe and risk profiles for a style.
func (r *Registry) Resolve(style Style) (*TimeframeProfile, *RiskProfile, error) {
	tp, ok := r.timeframes[style]
	if !ok {
		return nil, nil, fmt.Errorf("unknown trading style %q", style)
	}
	rp := r.risk[style]
	return tp, rp, nil
}

// Dampening returns the neutral dampening constants.
func (r *Registry) Dampening() NeutralDampening {
	return r.dampening
}

// Styles returns the configured styles.
func (r *Registry) Styles() []Style {
	styles := make([]Style, 0, len(r.timeframes))
	for s := range r.timeframes {
		styles = append(styles, s)
	}
	return styles
}

// ValidateStyle validates a trading style string.
func ValidateStyle(style string) (Style, bool) {
	switch Style(style) {
	case StyleDayTrading, StyleBalanced, StyleSwing, StyleLongTerm:
		return Style(style), true
	default:
		return "", false
	}
}
