package collector

import (
	"fmt"
	"strings"
	"time"
)

// Settings selects and configures a Fetcher.
type Settings struct {
	Provider string
	BaseURL  string
	APIKey   string
	Proxy    string
	Timeout  time.Duration
}

// NewFetcher builds the Fetcher named by s.Provider. An empty name picks
// vstrader when a base URL is set and Yahoo otherwise.
func NewFetcher(s Settings) (Fetcher, error) {
	name := strings.TrimSpace(strings.ToLower(s.Provider))
	if name == "" {
		if s.BaseURL != "" {
			name = "vstrader"
		} else {
			name = "yahoo"
		}
	}

	switch name {
	case "yahoo":
		return NewYahooFetcher(s.BaseURL, s.Proxy, s.Timeout), nil
	case "vstrader":
		if s.BaseURL == "" {
			return nil, fmt.Errorf("vstrader provider requires base_url")
		}
		return NewVsTraderFetcher(s.BaseURL, s.APIKey, s.Proxy, s.Timeout), nil
	case "polygon":
		if s.APIKey == "" {
			return nil, fmt.Errorf("polygon provider requires api_key")
		}
		return NewPolygonFetcher(s.APIKey), nil
	case "mock":
		return &MockFetcher{Price: 100}, nil
	default:
		return nil, fmt.Errorf("unknown data provider %q", s.Provider)
	}
}
