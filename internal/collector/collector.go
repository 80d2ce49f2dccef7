package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/sirupsen/logrus"

	"AssetKeeper/internal/logger"
	"AssetKeeper/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	Bars  []model.OHLCV
	Err   error
	Calls []model.HistoryRequest
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(_ context.Context, req model.HistoryRequest) ([]model.OHLCV, error) {
	m.Calls = append(m.Calls, req)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Bars != nil {
		return m.Bars, nil
	}
	return generateMockBars(m.Price, req), nil
}

// generateMockBars yields one bar per weekday in the request range,
// or the last 22 weekdays when the range is open.
func generateMockBars(basePrice float64, req model.HistoryRequest) []model.OHLCV {
	end := req.End
	if end.IsZero() {
		end = time.Now().UTC()
	}
	start := req.Start
	if start.IsZero() {
		start = end.AddDate(0, 0, -31)
	}
	var bars []model.OHLCV
	i := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		p := basePrice * (1 + float64(i)*0.001)
		bars = append(bars, model.OHLCV{
			Time:   d,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		})
		i++
	}
	return bars
}

// Collector turns bars from a Fetcher into price tables.
type Collector struct {
	Fetcher Fetcher
	log     logrus.FieldLogger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher) *Collector {
	return &Collector{
		Fetcher: fetcher,
		log:     logger.WithComponent("collector").WithField("source", fetcher.Name()),
	}
}

// FetchTable fetches bars for the request and returns them as a table
// with the model.PriceColumns columns, limited to the inclusive date range.
func (c *Collector) FetchTable(ctx context.Context, req model.HistoryRequest) (*dataframe.DataFrame, error) {
	c.log.WithField("ticker", req.Symbol).Info("loading started")
	bars, err := c.Fetcher.FetchBars(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Fetcher.Name(), err)
	}

	inRange := bars[:0:0]
	for _, b := range bars {
		if req.Contains(b.Time) {
			inRange = append(inRange, b)
		}
	}
	if len(inRange) == 0 {
		return nil, fmt.Errorf("%s: no bars for %s in requested range", c.Fetcher.Name(), req.Symbol)
	}

	df := BarsToTable(inRange)
	if df.Err != nil {
		return nil, fmt.Errorf("build table: %w", df.Err)
	}
	c.log.WithFields(logrus.Fields{"ticker": req.Symbol, "rows": df.Nrow()}).Debug("loading finished")
	return &df, nil
}

// BarsToTable converts bars into a data frame with one row per bar.
func BarsToTable(bars []model.OHLCV) dataframe.DataFrame {
	dates := make([]string, len(bars))
	opens := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		dates[i] = b.Time.UTC().Format(model.DateLayout)
		opens[i] = b.Open
		highs[i] = b.High
		lows[i] = b.Low
		closes[i] = b.Close
		volumes[i] = b.Volume
	}
	return dataframe.New(
		series.New(dates, series.String, model.ColDate),
		series.New(opens, series.Float, model.ColOpen),
		series.New(highs, series.Float, model.ColHigh),
		series.New(lows, series.Float, model.ColLow),
		series.New(closes, series.Float, model.ColClose),
		series.New(volumes, series.Float, model.ColVolume),
	)
}
