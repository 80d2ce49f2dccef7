package notifier

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AssetKeeper/internal/model"
)

func TestFormatSummary(t *testing.T) {
	text := FormatSummary("S&P <500>", model.Summary{
		Rows: 13, First: "2020-09-01", Last: "2020-09-18",
		LastClose: 106.84, High: 137.98, Low: 103.1, SMA20: math.NaN(), RSI14: 41.237,
	})
	assert.Contains(t, text, "S&amp;P &lt;500&gt;")
	assert.Contains(t, text, "13 rows")
	assert.Contains(t, text, "2020-09-01 → 2020-09-18")
	assert.Contains(t, text, "Last close: 106.84")
	assert.Contains(t, text, "SMA20: n/a | RSI14: 41.24")
}

func TestFormatRefreshReport(t *testing.T) {
	at := time.Date(2020, 9, 21, 22, 0, 0, 0, time.UTC)
	text := FormatRefreshReport(at, []string{"Apple", "Microsoft"}, []string{"Ghost: does not exist"})
	assert.Contains(t, text, "2020-09-21 22:00")
	assert.Contains(t, text, "2 loaded: Apple, Microsoft")
	assert.Contains(t, text, "1 failed")
	assert.Contains(t, text, "• Ghost: does not exist")

	empty := FormatRefreshReport(at, nil, nil)
	assert.Contains(t, empty, "0 loaded")
	assert.NotContains(t, empty, "failed")
}

func TestNewPicksNoopWithoutCredentials(t *testing.T) {
	assert.IsType(t, Noop{}, New("", "chat", ""))
	assert.IsType(t, Noop{}, New("token", "", ""))
	assert.IsType(t, &TelegramNotifier{}, New("token", "chat", ""))
	assert.NoError(t, Noop{}.Send(context.Background(), "ignored"))
}

func TestTelegramSendRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottoken/sendMessage", r.URL.Path)
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "42", payload["chat_id"])
		assert.Equal(t, "HTML", payload["parse_mode"])
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("token", "42", "")
	n.BaseURL = srv.URL
	n.backoff = func(int) time.Duration { return time.Millisecond }

	require.NoError(t, n.Send(context.Background(), "hello"))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestTelegramSendGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("token", "42", "")
	n.BaseURL = srv.URL
	n.MaxRetries = 1
	n.backoff = func(int) time.Duration { return time.Millisecond }

	err := n.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
