package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"FinGate/internal/domain/models"
)

const (
	DefaultMaxContextChars = 2400
	DefaultMaxHeadlines    = 5
)

// ContextInput is everything the assistant prompt is built from.
type ContextInput struct {
	AssetKind    models.AssetKind
	Symbol       string
	Timeframe    models.Timeframe
	Points       []models.PricePoint
	News         []models.NewsArticle
	IsStale      bool
	IsSynthetic  bool
	Now          time.Time
	MaxChars     int
	MaxHeadlines int
}

// BuildContext renders a bounded plain-text digest of price and news data.
func BuildContext(in ContextInput) string {
	if in.MaxChars <= 0 {
		in.MaxChars = DefaultMaxContextChars
	}
	if in.MaxHeadlines <= 0 {
		in.MaxHeadlines = DefaultMaxHeadlines
	}
	if in.Now.IsZero() {
		in.Now = time.Now()
	}

	var b strings.Builder
	symbol := in.Symbol
	if symbol == "" {
		symbol = "(unspecified)"
	}
	fmt.Fprintf(&b, "Asset: %s (%s)\n", symbol, in.AssetKind)
	fmt.Fprintf(&b, "Timeframe: %s\n", in.Timeframe)
	fmt.Fprintf(&b, "Data: %s\n", DataLabel(in.IsStale, in.IsSynthetic))

	if s, ok := Summarize(in.Points, in.Timeframe); ok {
		fmt.Fprintf(&b, "Price: %s | Range: %s - %s | Change: %+.2f%% | Trend: %s | Volatility: %.2f%%\n",
			formatPrice(s.Current), formatPrice(s.Low), formatPrice(s.High), s.ChangePct, s.Trend, s.Volatility*100)
	} else {
		b.WriteString("Price: no chart data\n")
	}
	if lv, ok := SupportResistance(in.Points); ok {
		fmt.Fprintf(&b, "Support: %s | Resistance: %s\n", formatPrice(lv.Support), formatPrice(lv.Resistance))
	}

	if len(in.News) > 0 {
		sent := AggregateSentiment(in.News)
		if sent.Score != nil {
			fmt.Fprintf(&b, "News sentiment: %s (%.2f)\n", sent.Label, *sent.Score)
		} else {
			fmt.Fprintf(&b, "News sentiment: %s\n", sent.Label)
		}
		b.WriteString("Headlines:\n")
		for _, a := range recentHeadlines(in.News, in.MaxHeadlines) {
			fmt.Fprintf(&b, "%s %s (%s, %s)\n", Glyph(a.SentimentScore), strings.TrimSpace(a.Title), sourceOf(a), RelativeAge(in.Now, a.PublishedAt))
		}
	}

	return truncate(b.String(), in.MaxChars)
}

// DataLabel describes data authenticity for prompts and offline answers.
func DataLabel(stale, synthetic bool) string {
	switch {
	case synthetic:
		return "SYNTHETIC placeholder, not real market data"
	case stale:
		return "cached, may be out of date"
	default:
		return "live"
	}
}

// Glyph marks a headline's sentiment: ▲ bullish, ▼ bearish, ● neutral, ○ unscored.
func Glyph(score *float64) string {
	if score == nil {
		return "○"
	}
	switch LabelFor(*score) {
	case models.SentimentBullish:
		return "▲"
	case models.SentimentBearish:
		return "▼"
	default:
		return "●"
	}
}

// RelativeAge formats how long ago t was relative to now.
func RelativeAge(now, t time.Time) string {
	if t.IsZero() {
		return "date unknown"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	default:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	}
}

func recentHeadlines(news []models.NewsArticle, limit int) []models.NewsArticle {
	sorted := make([]models.NewsArticle, len(news))
	copy(sorted, news)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PublishedAt.After(sorted[j].PublishedAt)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func sourceOf(a models.NewsArticle) string {
	if a.Source == "" {
		return "unknown source"
	}
	return a.Source
}

func formatPrice(v float64) string {
	if v != 0 && v < 1 && v > -1 {
		return fmt.Sprintf("%.6f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

// FormatPrice renders a price with precision suited to its magnitude.
func FormatPrice(v float64) string { return formatPrice(v) }

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}
