// Package normalize maps raw provider rows onto the canonical price series.
package normalize

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"FinGate/internal/domain/models"
)

// RawCandle is one provider row before parsing. Fields hold whatever the
// provider sent: float64, json.Number, numeric strings or nil.
type RawCandle struct {
	Time   time.Time
	Open   interface{}
	High   interface{}
	Low    interface{}
	Close  interface{}
	Volume interface{}
}

// RawScalar is one price-only observation.
type RawScalar struct {
	Time  time.Time
	Value interface{}
}

// ParseNumber accepts numbers and numeric strings. Empty strings, "." and
// "null" (used by some providers for missing values) are rejected.
func ParseNumber(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return 0, false
		}
		f = d.InexactFloat64()
	case string:
		s := strings.TrimSpace(n)
		switch strings.ToLower(s) {
		case "", ".", "null", "none", "n/a", "-":
			return 0, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return 0, false
		}
		f = d.InexactFloat64()
	case *float64:
		if n == nil {
			return 0, false
		}
		f = *n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Candles parses rows into an ascending series. Rows without a usable close
// are dropped; rows sharing a timestamp keep the last one supplied.
// HasFullOHLC is true only when every kept row carried open, high and low.
func Candles(rows []RawCandle) models.Series {
	points := make([]models.PricePoint, 0, len(rows))
	full := true
	for _, r := range rows {
		if r.Time.IsZero() {
			continue
		}
		c, ok := ParseNumber(r.Close)
		if !ok {
			continue
		}
		p := models.PricePoint{Timestamp: r.Time.UTC(), Close: c}
		if v, ok := ParseNumber(r.Open); ok {
			p.Open = models.Float(v)
		}
		if v, ok := ParseNumber(r.High); ok {
			p.High = models.Float(v)
		}
		if v, ok := ParseNumber(r.Low); ok {
			p.Low = models.Float(v)
		}
		if p.Open == nil || p.High == nil || p.Low == nil {
			full = false
		}
		if v, ok := ParseNumber(r.Volume); ok && v > 0 {
			p.Volume = v
		}
		points = append(points, p)
	}
	points = sortDedupe(points)
	return models.Series{Points: points, HasFullOHLC: full && len(points) > 0}
}

// Scalars builds a degenerate OHLC series (open=high=low=close) from
// price-only observations.
func Scalars(rows []RawScalar) models.Series {
	points := make([]models.PricePoint, 0, len(rows))
	for _, r := range rows {
		if r.Time.IsZero() {
			continue
		}
		v, ok := ParseNumber(r.Value)
		if !ok {
			continue
		}
		points = append(points, models.PricePoint{
			Timestamp: r.Time.UTC(),
			Open:      models.Float(v),
			High:      models.Float(v),
			Low:       models.Float(v),
			Close:     v,
		})
	}
	return models.Series{Points: sortDedupe(points), HasFullOHLC: false}
}

// Ordered returns a copy of points sorted by timestamp, keeping the last
// point for each timestamp.
func Ordered(points []models.PricePoint) []models.PricePoint {
	if len(points) == 0 {
		return points
	}
	out := make([]models.PricePoint, len(points))
	copy(out, points)
	return sortDedupe(out)
}

func sortDedupe(points []models.PricePoint) []models.PricePoint {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	out := points[:0]
	for _, p := range points {
		if n := len(out); n > 0 && out[n-1].Timestamp.Equal(p.Timestamp) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}

var timeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02",
	"20060102T150405",
	"20060102T1504",
	"2006-01-02 15:04:05",
}

// ParseTimestamp accepts RFC3339, plain dates, compact provider stamps and
// unix seconds or milliseconds.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
		return UnixAuto(n), true
	}
	return time.Time{}, false
}

// UnixAuto interprets n as seconds, or milliseconds when it is too large to be seconds.
func UnixAuto(n int64) time.Time {
	if n > 1e11 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}

// Trim drops points before since.
func Trim(s models.Series, since time.Time) models.Series {
	i := sort.Search(len(s.Points), func(i int) bool {
		return !s.Points[i].Timestamp.Before(since)
	})
	return models.Series{Points: s.Points[i:], HasFullOHLC: s.HasFullOHLC}
}

// QuoteFromSeries derives a quote from the last two points.
func QuoteFromSeries(s models.Series) (models.Quote, bool) {
	last, ok := s.Last()
	if !ok {
		return models.Quote{}, false
	}
	q := models.Quote{Price: last.Close, AsOf: last.Timestamp}
	if len(s.Points) >= 2 {
		prev := s.Points[len(s.Points)-2].Close
		q.AbsoluteChange = round(last.Close-prev, 6)
		if prev != 0 {
			q.PercentChange = round((last.Close-prev)/prev*100, 4)
		}
	}
	return q, true
}

func round(v float64, places int) float64 {
	return decimal.NewFromFloat(v).Round(int32(places)).InexactFloat64()
}

// ArticleID derives a stable id for providers that do not supply one.
func ArticleID(url, title string) string {
	key := url
	if key == "" {
		key = title
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}
