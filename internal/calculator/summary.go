package calculator

import (
	"math"

	"github.com/go-gota/gota/dataframe"

	"AssetKeeper/internal/model"
)

// Summarize computes headline statistics for a price table. Columns that
// are missing are skipped: a file with only Date and Close still gets a
// close-based summary. High/Low fall back to Close.
func Summarize(df *dataframe.DataFrame) model.Summary {
	s := model.Summary{}
	if df == nil || df.Err != nil {
		return s
	}
	s.Rows = df.Nrow()
	names := map[string]bool{}
	for _, n := range df.Names() {
		names[n] = true
	}

	if names[model.ColDate] && s.Rows > 0 {
		dates := df.Col(model.ColDate).Records()
		s.First = dates[0]
		s.Last = dates[len(dates)-1]
	}
	if !names[model.ColClose] {
		return s
	}

	closes := dropNaN(df.Col(model.ColClose).Float())
	if len(closes) == 0 {
		return s
	}
	s.LastClose = closes[len(closes)-1]

	highs, lows := closes, closes
	if names[model.ColHigh] {
		highs = df.Col(model.ColHigh).Float()
	}
	if names[model.ColLow] {
		lows = df.Col(model.ColLow).Float()
	}
	if h, l, err := CalculateRange(highs, lows); err == nil {
		s.High, s.Low = h, l
	}
	if sma, err := CalculateSMA(closes, 20); err == nil {
		s.SMA20 = sma
	}
	if rsi, err := CalculateRSI(closes, 14); err == nil {
		s.RSI14 = rsi
	}
	return s
}

func dropNaN(values []float64) []float64 {
	out := values[:0:0]
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
