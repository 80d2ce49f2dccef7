package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"AssetKeeper/internal/model"
)

// VsTraderFetcher implements Fetcher using the vstrader REST API.
type VsTraderFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewVsTraderFetcher creates a new fetcher with optional proxy support.
func NewVsTraderFetcher(baseURL, apiKey, proxyURL string, timeout time.Duration) *VsTraderFetcher {
	return &VsTraderFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL, timeout),
	}
}

func (f *VsTraderFetcher) Name() string { return "vstrader" }

// vsBar is the expected JSON shape from the vstrader API.
type vsBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func (f *VsTraderFetcher) endpoint(kind string, req model.HistoryRequest) string {
	q := url.Values{}
	q.Set("symbol", strings.ToUpper(req.Symbol))
	if !req.Start.IsZero() {
		q.Set("from", req.Start.Format(model.DateLayout))
	}
	if !req.End.IsZero() {
		q.Set("to", req.End.Format(model.DateLayout))
	}
	return fmt.Sprintf("%s/api/v1/bars/%s?%s", f.BaseURL, kind, q.Encode())
}

func (f *VsTraderFetcher) FetchBars(ctx context.Context, req model.HistoryRequest) ([]model.OHLCV, error) {
	if f.BaseURL == "" {
		return nil, fmt.Errorf("vstrader base URL is not set")
	}
	switch req.Interval {
	case model.Weekly:
		// Try weekly endpoint first; if API only provides daily, aggregate internally.
		bars, err := f.fetchBars(ctx, f.endpoint("weekly", req))
		if err != nil {
			dailyBars, dailyErr := f.fetchBars(ctx, f.endpoint("daily", req))
			if dailyErr != nil {
				return nil, fmt.Errorf("weekly fetch failed: %w; daily fallback also failed: %w", err, dailyErr)
			}
			return aggregateDailyToWeekly(dailyBars), nil
		}
		return bars, nil
	case model.Daily, "":
		return f.fetchBars(ctx, f.endpoint("daily", req))
	default:
		return nil, fmt.Errorf("vstrader: unsupported interval %q", req.Interval)
	}
}

func (f *VsTraderFetcher) fetchBars(ctx context.Context, endpoint string) ([]model.OHLCV, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, string(body))
	}
	var vsBars []vsBar
	if err := json.NewDecoder(resp.Body).Decode(&vsBars); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	bars := make([]model.OHLCV, len(vsBars))
	for i, vb := range vsBars {
		bars[i] = model.OHLCV{
			Time:   time.Unix(vb.Timestamp, 0).UTC(),
			Open:   vb.Open,
			High:   vb.High,
			Low:    vb.Low,
			Close:  vb.Close,
			Volume: vb.Volume,
		}
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// aggregateDailyToWeekly converts daily bars into weekly bars (Mon-Fri).
func aggregateDailyToWeekly(daily []model.OHLCV) []model.OHLCV {
	if len(daily) == 0 {
		return nil
	}
	var weekly []model.OHLCV
	week := daily[0]

	for _, d := range daily[1:] {
		year, isoWeek := d.Time.ISOWeek()
		cy, cw := week.Time.ISOWeek()
		if year != cy || isoWeek != cw {
			weekly = append(weekly, week)
			week = d
			continue
		}
		if d.High > week.High {
			week.High = d.High
		}
		if d.Low < week.Low {
			week.Low = d.Low
		}
		week.Close = d.Close
		week.Volume += d.Volume
	}
	return append(weekly, week)
}
