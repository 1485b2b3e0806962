package analytics

import (
	"math"

	"FinGate/internal/domain/models"
)

const (
	levelWindow    = 20
	minLevelPoints = 5
	fallbackBand   = 0.05
)

// Levels holds support and resistance prices.
type Levels struct {
	Support    float64 `json:"support"`
	Resistance float64 `json:"resistance"`
}

// SupportResistance scans the last 20 points (all when fewer): support is the
// lowest low (close when low is missing), resistance the highest high. Series
// shorter than five points use a band of 5% around the latest close instead.
func SupportResistance(points []models.PricePoint) (Levels, bool) {
	if len(points) == 0 {
		return Levels{}, false
	}
	if len(points) < minLevelPoints {
		last := points[len(points)-1].Close
		return Levels{
			Support:    roundTo(last*(1-fallbackBand), 6),
			Resistance: roundTo(last*(1+fallbackBand), 6),
		}, true
	}

	window := points
	if len(window) > levelWindow {
		window = window[len(window)-levelWindow:]
	}
	lv := Levels{Support: math.Inf(1), Resistance: math.Inf(-1)}
	for _, p := range window {
		lv.Support = math.Min(lv.Support, p.LowOrClose())
		lv.Resistance = math.Max(lv.Resistance, p.HighOrClose())
	}
	return lv, true
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
