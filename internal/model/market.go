package model

import "time"

// Standard column names of a price table.
const (
	ColDate   = "Date"
	ColOpen   = "Open"
	ColHigh   = "High"
	ColLow    = "Low"
	ColClose  = "Close"
	ColVolume = "Volume"
)

// PriceColumns lists the columns produced by remote providers, in order.
var PriceColumns = []string{ColDate, ColOpen, ColHigh, ColLow, ColClose, ColVolume}

// DateLayout is the layout used for the Date column.
const DateLayout = "2006-01-02"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Interval is the bar size requested from a provider.
type Interval string

const (
	Daily   Interval = "1d"
	Weekly  Interval = "1wk"
	Monthly Interval = "1mo"
)

// HistoryRequest describes a historical price query.
// Zero Start or End means the bound is open.
type HistoryRequest struct {
	Symbol   string
	Start    time.Time
	End      time.Time
	Interval Interval
}

// Contains reports whether t falls inside the inclusive date range of the request.
func (r HistoryRequest) Contains(t time.Time) bool {
	day := truncateDay(t)
	if !r.Start.IsZero() && day.Before(truncateDay(r.Start)) {
		return false
	}
	if !r.End.IsZero() && day.After(truncateDay(r.End)) {
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Summary holds headline statistics of a loaded price table.
type Summary struct {
	Rows      int
	First     string
	Last      string
	LastClose float64
	High      float64
	Low       float64
	SMA20     float64
	RSI14     float64
}
