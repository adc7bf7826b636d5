package market

import "fmt"

// Candle represents a single OHLCV bar. Windows are produced and
// gap-checked by the market-data layer; this package only consumes them.
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	CloseTime int64   `json:"close_time"`
}

// LastClose returns the close of the most recent candle, or 0 for an
// empty window.
func LastClose(candles []Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	return candles[len(candles)-1].Close
}

// ValidateWindow checks that a candle window is usable: non-empty,
// at least minLen candles, positive prices, high >= low.
func ValidateWindow(candles []Candle, minLen int) error {
	if len(candles) < minLen {
		return fmt.Errorf("candle window too short: have %d, need %d", len(candles), minLen)
	}
	for i, c := range candles {
		if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
			return fmt.Errorf("candle %d has non-positive price", i)
		}
		if c.High < c.Low {
			return fmt.Errorf("candle %d has high %.8f below low %.8f", i, c.High, c.Low)
		}
	}
	return nil
}
