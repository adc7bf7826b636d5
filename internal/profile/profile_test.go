package profile

import (
	"math"
	"testing"
)

func TestDefaultRegistryResolvesAllStyles(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("default registry failed: %v", err)
	}

	for _, style := range []Style{StyleDayTrading, StyleBalanced, StyleSwing, StyleLongTerm} {
		tp, rp, err := registry.Resolve(style)
		if err != nil {
			t.Errorf("resolve %s: %v", style, err)
			continue
		}
		if len(tp.Weights) == 0 {
			t.Errorf("%s has no timeframe weights", style)
		}
		sum := 0.0
		for _, w := range tp.Weights {
			sum += w
		}
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("%s weights sum to %.4f, expected 1.0", style, sum)
		}
		if rp.MinRiskReward <= 0 || rp.ATRStopMultiple <= 0 {
			t.Errorf("%s has degenerate risk parameters: %+v", style, rp)
		}
	}
}

func TestResolveUnknownStyle(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("default registry failed: %v", err)
	}
	if _, _, err := registry.Resolve(Style("scalping")); err == nil {
		t.Error("expected error for unknown style")
	}
}

func TestTimeframeWeightUnknownIsZero(t *testing.T) {
	tp := &TimeframeProfile{Weights: map[string]float64{"1h": 0.5}}
	if w := tp.Weight("2h"); w != 0 {
		t.Errorf("unknown timeframe must weigh 0, got %.4f", w)
	}
	if w := tp.Weight("1h"); w != 0.5 {
		t.Errorf("expected 0.5, got %.4f", w)
	}
}

func TestRegistryFailsFastOnBadConfig(t *testing.T) {
	goodTF := defaultTimeframeProfiles()
	goodRisk := defaultRiskProfiles()
	damp := DefaultNeutralDampening()

	cases := []struct {
		name  string
		tf    map[Style]*TimeframeProfile
		risk  map[Style]*RiskProfile
		dampC NeutralDampening
	}{
		{
			name:  "no profiles",
			tf:    map[Style]*TimeframeProfile{},
			risk:  goodRisk,
			dampC: damp,
		},
		{
			name: "empty weights",
			tf: map[Style]*TimeframeProfile{
				StyleBalanced: {Style: StyleBalanced, Weights: map[string]float64{}},
			},
			risk:  goodRisk,
			dampC: damp,
		},
		{
			name: "non-positive weight",
			tf: map[Style]*TimeframeProfile{
				StyleBalanced: {Style: StyleBalanced, Weights: map[string]float64{"1h": -0.5}},
			},
			risk:  goodRisk,
			dampC: damp,
		},
		{
			name: "missing risk profile",
			tf: map[Style]*TimeframeProfile{
				Style("custom"): {Style: Style("custom"), Weights: map[string]float64{"1h": 1.0}},
			},
			risk:  goodRisk,
			dampC: damp,
		},
		{
			name: "risk percent over 100",
			tf:   goodTF,
			risk: func() map[Style]*RiskProfile {
				bad := defaultRiskProfiles()
				bad[StyleBalanced].MaxRiskPercent = 150
				return bad
			}(),
			dampC: damp,
		},
		{
			name:  "zero dampening constants",
			tf:    goodTF,
			risk:  goodRisk,
			dampC: NeutralDampening{},
		},
	}

	for _, c := range cases {
		if _, err := NewRegistryWith(c.tf, c.risk, c.dampC); err == nil {
			t.Errorf("%s: expected construction error, got nil", c.name)
		}
	}
}

func TestValidateStyle(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"day_trading", true},
		{"balanced", true},
		{"swing", true},
		{"long_term", true},
		{"scalping", false},
		{"", false},
		{"DAY_TRADING", false},
	}
	for _, c := range cases {
		if _, ok := ValidateStyle(c.in); ok != c.ok {
			t.Errorf("ValidateStyle(%q) = %v, expected %v", c.in, ok, c.ok)
		}
	}
}

func TestStylesListsAllConfigured(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("default registry failed: %v", err)
	}
	if got := len(registry.Styles()); got != 4 {
		t.Errorf("expected 4 styles, got %d", got)
	}
}
