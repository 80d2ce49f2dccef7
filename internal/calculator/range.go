package calculator

import (
	"errors"
	"math"
)

// CalculateRange returns the highest of highs and the lowest of lows.
// NaN entries (missing cells) are ignored.
func CalculateRange(highs, lows []float64) (high, low float64, err error) {
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, h := range highs {
		if !math.IsNaN(h) && h > high {
			high = h
		}
	}
	for _, l := range lows {
		if !math.IsNaN(l) && l < low {
			low = l
		}
	}
	if math.IsInf(high, -1) || math.IsInf(low, 1) {
		return 0, 0, errors.New("no prices to scan")
	}
	return high, low, nil
}
