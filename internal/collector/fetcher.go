package collector

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"AssetKeeper/internal/model"
)

// Fetcher defines the interface for fetching historical bars.
type Fetcher interface {
	FetchBars(ctx context.Context, req model.HistoryRequest) ([]model.OHLCV, error)
	Name() string
}

func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
