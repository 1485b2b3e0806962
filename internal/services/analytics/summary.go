package analytics

import (
	"math"
	"time"

	"FinGate/internal/domain/models"
	"FinGate/internal/services/features"
)

const trendThresholdPct = 1.0

type Trend string

const (
	TrendUp       Trend = "up"
	TrendDown     Trend = "down"
	TrendSideways Trend = "sideways"
)

// ChartSummary is the numeric digest of a series.
type ChartSummary struct {
	Points      int       `json:"points"`
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	Current     float64   `json:"current"`
	Low         float64   `json:"low"`
	High        float64   `json:"high"`
	ChangePct   float64   `json:"changePct"`
	Trend       Trend     `json:"trend"`
	Volatility  float64   `json:"volatility"` // stddev/mean of closes
	RealizedVol float64   `json:"realizedVol,omitempty"`
}

// Summarize computes the chart summary. ok is false for an empty series.
func Summarize(points []models.PricePoint, tf models.Timeframe) (ChartSummary, bool) {
	if len(points) == 0 {
		return ChartSummary{}, false
	}
	first, last := points[0], points[len(points)-1]
	s := ChartSummary{
		Points:  len(points),
		From:    first.Timestamp,
		To:      last.Timestamp,
		Current: last.Close,
		Low:     math.Inf(1),
		High:    math.Inf(-1),
	}
	for _, p := range points {
		s.Low = math.Min(s.Low, p.LowOrClose())
		s.High = math.Max(s.High, p.HighOrClose())
	}
	if first.Close != 0 {
		s.ChangePct = roundTo((last.Close-first.Close)/first.Close*100, 2)
	}
	switch {
	case s.ChangePct > trendThresholdPct:
		s.Trend = TrendUp
	case s.ChangePct < -trendThresholdPct:
		s.Trend = TrendDown
	default:
		s.Trend = TrendSideways
	}

	mean, std := features.MeanStd(features.Closes(points))
	if mean != 0 {
		s.Volatility = roundTo(std/mean, 6)
	}
	rets := features.ComputeLogReturns(points)
	s.RealizedVol = roundTo(features.RealizedVolatility(rets, len(rets), features.BarsPerYearForTF(tf)), 6)
	return s, true
}
