package levels

import (
	"math"
	"sort"

	"trade-advisor/internal/indicators"
	"trade-advisor/internal/market"
)

// LevelType classifies a level relative to current price.
type LevelType string

const (
	LevelSupport    LevelType = "support"
	LevelResistance LevelType = "resistance"
)

// Level is a merged support/resistance level derived from recent history.
// Recomputed per cycle; never persisted by the core.
type Level struct {
	Price     float64   `json:"price"`
	Strength  float64   `json:"strength"`
	LevelType LevelType `json:"level_type"`
	Touches   int       `json:"touches"`
	LastTouch int64     `json:"last_touch"`
	Methods   []string  `json:"methods"`
}

// Analysis is the detector output: levels split by side of current price,
// each side sorted by distance from it.
type Analysis struct {
	CurrentPrice float64 `json:"current_price"`
	Support      []Level `json:"support"`
	Resistance   []Level `json:"resistance"`
}

// Nearest returns the closest level on the given side, or nil.
func (a *Analysis) Nearest(t LevelType) *Level {
	switch t {
	case LevelSupport:
		if len(a.Support) > 0 {
			return &a.Support[0]
		}
	case LevelResistance:
		if len(a.Resistance) > 0 {
			return &a.Resistance[0]
		}
	}
	return nil
}

// StrongestBetween returns the strongest level strictly between lo and hi
// with at least minStrength, or nil.
func (a *Analysis) StrongestBetween(lo, hi, minStrength float64) *Level {
	if lo > hi {
		lo, hi = hi, lo
	}
	var best *Level
	for _, side := range [][]Level{a.Support, a.Resistance} {
		for i := range side {
			l := &side[i]
			if l.Price <= lo || l.Price >= hi || l.Strength < minStrength {
				continue
			}
			if best == nil || l.Strength > best.Strength {
				best = l
			}
		}
	}
	return best
}

// Config holds detector tuning parameters.
type Config struct {
	PivotWindow      int     // centered extrema window, candles each side
	FractalWindows   []int   // confirmation windows for fractal detection
	VolumeBins       int     // price bins for the volume profile
	VolumePercentile float64 // bin volume percentile threshold (0-1)
	MAPeriods        []int   // moving average periods for confluence zones
	MergeTolerance   float64 // merge band as a fraction of price
	TouchTolerance   float64 // touch band as a fraction of price
}

// DefaultConfig returns the production detector parameters.
func DefaultConfig() Config {
	return Config{
		PivotWindow:      5,
		FractalWindows:   []int{2, 3, 5},
		VolumeBins:       24,
		VolumePercentile: 0.70,
		MAPeriods:        []int{20, 50, 100},
		MergeTolerance:   0.003,
		TouchTolerance:   0.003,
	}
}

// Detector derives support/resistance levels from an OHLCV window using
// pivot extrema, fractals, the volume profile, and MA confluence.
type Detector struct {
	cfg Config
}

// NewDetector creates a detector. Zero-value fields fall back to defaults.
func NewDetector(cfg Config) *Detector {
	def := DefaultConfig()
	if cfg.PivotWindow <= 0 {
		cfg.PivotWindow = def.PivotWindow
	}
	if len(cfg.FractalWindows) == 0 {
		cfg.FractalWindows = def.FractalWindows
	}
	if cfg.VolumeBins <= 0 {
		cfg.VolumeBins = def.VolumeBins
	}
	if cfg.VolumePercentile <= 0 || cfg.VolumePercentile >= 1 {
		cfg.VolumePercentile = def.VolumePercentile
	}
	if len(cfg.MAPeriods) == 0 {
		cfg.MAPeriods = def.MAPeriods
	}
	if cfg.MergeTolerance <= 0 {
		cfg.MergeTolerance = def.MergeTolerance
	}
	if cfg.TouchTolerance <= 0 {
		cfg.TouchTolerance = def.TouchTolerance
	}
	return &Detector{cfg: cfg}
}

// candidate is a raw level emitted by a single detection method.
type candidate struct {
	price    float64
	strength float64
	method   string
}

// Detect runs all four methods over the window, merges nearby candidates,
// scores them by touches, and splits the result around the current price.
func (d *Detector) Detect(candles []market.Candle) *Analysis {
	current := market.LastClose(candles)
	analysis := &Analysis{CurrentPrice: current}
	if len(candles) == 0 {
		return analysis
	}

	var cands []candidate
	cands = append(cands, d.pivotCandidates(candles)...)
	cands = append(cands, d.fractalCandidates(candles)...)
	cands = append(cands, d.volumeProfileCandidates(candles)...)
	cands = append(cands, d.maConfluenceCandidates(candles)...)

	merged := d.merge(cands, candles)

	for _, l := range merged {
		if l.Price < current {
			l.LevelType = LevelSupport
			analysis.Support = append(analysis.Support, l)
		} else if l.Price > current {
			l.LevelType = LevelResistance
			analysis.Resistance = append(analysis.Resistance, l)
		}
	}

	sort.Slice(analysis.Support, func(i, j int) bool {
		return current-analysis.Support[i].Price < current-analysis.Support[j].Price
	})
	sort.Slice(analysis.Resistance, func(i, j int) bool {
		return analysis.Resistance[i].Price-current < analysis.Resistance[j].Price-current
	})

	return analysis
}

// pivotCandidates finds local extrema over a centered window. More recent
// pivots score higher.
func (d *Detector) pivotCandidates(candles []market.Candle) []candidate {
	w := d.cfg.PivotWindow
	n := len(candles)
	if n < 2*w+1 {
		return nil
	}

	var out []candidate
	for i := w; i < n-w; i++ {
		isHigh := true
		isLow := true
		for j := i - w; j <= i+w; j++ {
			if j == i {
				continue
			}
			if candles[j].High >= candles[i].High {
				isHigh = false
			}
			if candles[j].Low <= candles[i].Low {
				isLow = false
			}
			if !isHigh && !isLow {
				break
			}
		}

		recency := float64(i) / float64(n-1)
		strength := 0.4 + 0.5*recency

		if isHigh {
			out = append(out, candidate{price: candles[i].High, strength: strength, method: "pivot"})
		}
		if isLow {
			out = append(out, candidate{price: candles[i].Low, strength: strength, method: "pivot"})
		}
	}
	return out
}

// fractalCandidates finds highs/lows confirmed across multiple window
// sizes. Strength rises with the number of confirming windows.
func (d *Detector) fractalCandidates(candles []market.Candle) []candidate {
	n := len(candles)
	highConfirms := make(map[int]int)
	lowConfirms := make(map[int]int)

	for _, w := range d.cfg.FractalWindows {
		if n < 2*w+1 {
			continue
		}
		for i := w; i < n-w; i++ {
			isHigh := true
			isLow := true
			for j := i - w; j <= i+w; j++ {
				if j == i {
					continue
				}
				if candles[j].High >= candles[i].High {
					isHigh = false
				}
				if candles[j].Low <= candles[i].Low {
					isLow = false
				}
			}
			if isHigh {
				highConfirms[i]++
			}
			if isLow {
				lowConfirms[i]++
			}
		}
	}

	var out []candidate
	for i, count := range highConfirms {
		strength := math.Min(0.3+0.2*float64(count), 1.0)
		out = append(out, candidate{price: candles[i].High, strength: strength, method: "fractal"})
	}
	for i, count := range lowConfirms {
		strength := math.Min(0.3+0.2*float64(count), 1.0)
		out = append(out, candidate{price: candles[i].Low, strength: strength, method: "fractal"})
	}
	return out
}

// volumeProfileCandidates bins traded volume by typical price and emits the
// bins above the configured percentile.
func (d *Detector) volumeProfileCandidates(candles []market.Candle) []candidate {
	if len(candles) < d.cfg.VolumeBins {
		return nil
	}

	minPrice := candles[0].Low
	maxPrice := candles[0].High
	for _, c := range candles {
		if c.Low < minPrice {
			minPrice = c.Low
		}
		if c.High > maxPrice {
			maxPrice = c.High
		}
	}
	if maxPrice <= minPrice {
		return nil
	}

	binSize := (maxPrice - minPrice) / float64(d.cfg.VolumeBins)
	bins := make([]float64, d.cfg.VolumeBins)
	for _, c := range candles {
		typical := (c.High + c.Low + c.Close) / 3
		idx := int((typical - minPrice) / binSize)
		if idx >= d.cfg.VolumeBins {
			idx = d.cfg.VolumeBins - 1
		}
		if idx < 0 {
			idx = 0
		}
		bins[idx] += c.Volume
	}

	sorted := make([]float64, len(bins))
	copy(sorted, bins)
	sort.Float64s(sorted)
	threshold := sorted[int(float64(len(sorted)-1)*d.cfg.VolumePercentile)]

	maxVol := sorted[len(sorted)-1]
	if maxVol == 0 {
		return nil
	}

	var out []candidate
	for i, vol := range bins {
		if vol < threshold || vol == 0 {
			continue
		}
		center := minPrice + (float64(i)+0.5)*binSize
		out = append(out, candidate{price: center, strength: vol / maxVol, method: "volume_profile"})
	}
	return out
}

// maConfluenceCandidates emits zones where two or more moving averages
// cluster within the merge tolerance.
func (d *Detector) maConfluenceCandidates(candles []market.Candle) []candidate {
	var mas []float64
	for _, period := range d.cfg.MAPeriods {
		if sma := indicators.CalculateSMA(candles, period); sma > 0 {
			mas = append(mas, sma)
		}
		if ema := indicators.CalculateEMA(candles, period); ema > 0 {
			mas = append(mas, ema)
		}
	}
	if len(mas) < 2 {
		return nil
	}

	sort.Float64s(mas)

	var out []candidate
	i := 0
	for i < len(mas) {
		j := i + 1
		sum := mas[i]
		for j < len(mas) && mas[j]-mas[i] <= mas[i]*d.cfg.MergeTolerance {
			sum += mas[j]
			j++
		}
		count := j - i
		if count >= 2 {
			strength := math.Min(0.3+0.2*float64(count), 1.0)
			out = append(out, candidate{price: sum / float64(count), strength: strength, method: "ma_confluence"})
		}
		i = j
	}
	return out
}

// merge groups candidates within the tolerance band, averages the method
// strengths, and scales the result by how often price has touched the zone.
func (d *Detector) merge(cands []candidate, candles []market.Candle) []Level {
	if len(cands) == 0 {
		return nil
	}

	sort.Slice(cands, func(i, j int) bool { return cands[i].price < cands[j].price })

	var out []Level
	i := 0
	for i < len(cands) {
		j := i + 1
		for j < len(cands) && cands[j].price-cands[i].price <= cands[i].price*d.cfg.MergeTolerance {
			j++
		}
		group := cands[i:j]

		priceSum := 0.0
		strengthSum := 0.0
		methods := make(map[string]bool)
		for _, c := range group {
			priceSum += c.price * c.strength
			strengthSum += c.strength
			methods[c.method] = true
		}
		if strengthSum == 0 {
			i = j
			continue
		}
		price := priceSum / strengthSum
		meanStrength := strengthSum / float64(len(group))

		touches, lastTouch := d.countTouches(price, candles)
		final := meanStrength * math.Log1p(float64(touches))
		if final > 1 {
			final = 1
		}

		methodNames := make([]string, 0, len(methods))
		for m := range methods {
			methodNames = append(methodNames, m)
		}
		sort.Strings(methodNames)

		out = append(out, Level{
			Price:     price,
			Strength:  final,
			Touches:   touches,
			LastTouch: lastTouch,
			Methods:   methodNames,
		})
		i = j
	}
	return out
}

// countTouches counts candles whose range comes within the touch tolerance
// of the level, and returns the close time of the latest touch.
func (d *Detector) countTouches(price float64, candles []market.Candle) (int, int64) {
	band := price * d.cfg.TouchTolerance
	touches := 0
	var lastTouch int64
	for _, c := range candles {
		if c.Low-band <= price && price <= c.High+band {
			touches++
			if c.CloseTime > lastTouch {
				lastTouch = c.CloseTime
			}
		}
	}
	return touches, lastTouch
}
