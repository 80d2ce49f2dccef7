package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	pio "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"AssetKeeper/internal/model"
)

// PolygonFetcher implements Fetcher using Polygon.io aggregates.
type PolygonFetcher struct {
	client *pio.Client
}

var _ Fetcher = (*PolygonFetcher)(nil)

func NewPolygonFetcher(apiKey string) *PolygonFetcher {
	return &PolygonFetcher{client: pio.New(apiKey)}
}

func (p *PolygonFetcher) Name() string { return "polygon" }

func polygonTimespan(interval model.Interval) (models.Timespan, error) {
	switch interval {
	case model.Daily, "":
		return models.Day, nil
	case model.Weekly:
		return models.Week, nil
	case model.Monthly:
		return models.Month, nil
	}
	return "", fmt.Errorf("polygon: unsupported interval %q", interval)
}

func (p *PolygonFetcher) FetchBars(ctx context.Context, req model.HistoryRequest) ([]model.OHLCV, error) {
	timespan, err := polygonTimespan(req.Interval)
	if err != nil {
		return nil, err
	}

	to := req.End
	if to.IsZero() {
		to = time.Now()
	}
	from := req.Start
	if from.IsZero() {
		from = to.AddDate(0, -1, 0)
	}

	params := models.ListAggsParams{
		Ticker:     strings.ToUpper(req.Symbol),
		Multiplier: 1,
		Timespan:   timespan,
		From:       models.Millis(from),
		To:         models.Millis(to),
	}.WithOrder(models.Asc).WithLimit(50000).WithAdjusted(true)

	var bars []model.OHLCV
	iter := p.client.ListAggs(ctx, params)
	for iter.Next() {
		i := iter.Item()
		bars = append(bars, model.OHLCV{
			Time:   time.Time(i.Timestamp).UTC(),
			Open:   i.Open,
			High:   i.High,
			Low:    i.Low,
			Close:  i.Close,
			Volume: i.Volume,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("polygon aggs: %w", err)
	}
	return bars, nil
}
