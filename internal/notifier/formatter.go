package notifier

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"AssetKeeper/internal/model"
)

// FormatSummary renders the digest of one loaded table.
func FormatSummary(name string, s model.Summary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>%s</b> | %d rows\n", html.EscapeString(name), s.Rows))
	if s.First != "" || s.Last != "" {
		b.WriteString(fmt.Sprintf("Range: %s → %s\n", s.First, s.Last))
	}
	b.WriteString(fmt.Sprintf("Last close: %s\n", formatNum(s.LastClose)))
	b.WriteString(fmt.Sprintf("High/Low: %s / %s\n", formatNum(s.High), formatNum(s.Low)))
	b.WriteString(fmt.Sprintf("SMA20: %s | RSI14: %s\n", formatNum(s.SMA20), formatNum(s.RSI14)))
	return b.String()
}

// FormatRefreshReport renders the outcome of one refresh pass.
func FormatRefreshReport(at time.Time, succeeded, failed []string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔄 <b>AssetKeeper refresh</b> | %s\n\n", at.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("✅ %d loaded", len(succeeded)))
	if len(succeeded) > 0 {
		b.WriteString(": " + html.EscapeString(strings.Join(succeeded, ", ")))
	}
	b.WriteString("\n")
	if len(failed) > 0 {
		b.WriteString(fmt.Sprintf("❌ %d failed:\n", len(failed)))
		for _, f := range failed {
			b.WriteString("  • " + html.EscapeString(f) + "\n")
		}
	}
	return b.String()
}

func formatNum(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}
