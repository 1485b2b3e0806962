// Package synthetic produces reproducible placeholder series for when no live
// or cached data exists. Output is identical for the same symbol and
// timeframe within one clock hour.
package synthetic

import (
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"FinGate/internal/domain/models"
)

type shape struct {
	points   int
	interval time.Duration
}

var shapes = map[models.Timeframe]shape{
	models.TF1D: {points: 78, interval: 5 * time.Minute},
	models.TF1W: {points: 168, interval: time.Hour},
	models.TF1M: {points: 30, interval: 24 * time.Hour},
	models.TF3M: {points: 90, interval: 24 * time.Hour},
	models.TF1Y: {points: 52, interval: 7 * 24 * time.Hour},
}

type profile struct {
	anchor     float64 // used for symbols missing from anchors
	dailyVol   float64
	baseVolume float64
}

var profiles = map[models.AssetKind]profile{
	models.AssetStock:  {anchor: 100, dailyVol: 0.015, baseVolume: 2_000_000},
	models.AssetOil:    {anchor: 75, dailyVol: 0.02, baseVolume: 300_000},
	models.AssetMetal:  {anchor: 2000, dailyVol: 0.009, baseVolume: 50_000},
	models.AssetCrypto: {anchor: 1, dailyVol: 0.035, baseVolume: 10_000},
}

var defaultAnchors = map[string]float64{
	"stock:AAPL":   190,
	"stock:MSFT":   420,
	"stock:GOOGL":  170,
	"stock:AMZN":   185,
	"stock:NVDA":   120,
	"stock:TSLA":   250,
	"stock:META":   500,
	"stock:SPY":    560,
	"oil:WTI":      75,
	"oil:BRENT":    80,
	"metal:XAU":    2400,
	"metal:GOLD":   2400,
	"metal:XAG":    29,
	"metal:SILVER": 29,
	"metal:XPT":    980,
	"metal:XPD":    1000,
	"crypto:BTC":   65000,
	"crypto:ETH":   3200,
	"crypto:SOL":   150,
	"crypto:XRP":   0.55,
	"crypto:DOGE":  0.15,
}

// Option configures Generator.
type Option func(*Generator)

// WithClock overrides the clock used for hour bucketing.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// WithAnchor sets the end price for a symbol.
func WithAnchor(kind models.AssetKind, symbol string, price float64) Option {
	return func(g *Generator) {
		g.anchors[anchorKey(kind, symbol)] = price
	}
}

// Generator builds seeded random-walk series.
type Generator struct {
	now     func() time.Time
	anchors map[string]float64
}

func New(opts ...Option) *Generator {
	g := &Generator{now: time.Now, anchors: make(map[string]float64, len(defaultAnchors))}
	for k, v := range defaultAnchors {
		g.anchors[k] = v
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Anchor returns the reference price used for symbol.
func (g *Generator) Anchor(kind models.AssetKind, symbol string) float64 {
	if v, ok := g.anchors[anchorKey(kind, symbol)]; ok {
		return v
	}
	if p, ok := profiles[kind]; ok {
		return p.anchor
	}
	return 100
}

// Series returns the synthetic series for the current hour bucket.
func (g *Generator) Series(kind models.AssetKind, symbol string, tf models.Timeframe) models.Series {
	sh, ok := shapes[tf]
	if !ok {
		sh = shapes[models.TF1M]
	}
	prof, ok := profiles[kind]
	if !ok {
		prof = profiles[models.AssetStock]
	}

	now := g.now().UTC()
	end := now.Truncate(time.Hour)
	seed := Seed(symbol, tf, now)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	stepVol := prof.dailyVol * math.Sqrt(sh.interval.Hours()/24)
	anchor := g.Anchor(kind, symbol)
	floor := anchor * 0.05

	// walk[n] is the anchor; earlier values are derived backward
	walk := make([]float64, sh.points+1)
	walk[sh.points] = anchor
	for i := sh.points - 1; i >= 0; i-- {
		v := walk[i+1] / (1 + rng.NormFloat64()*stepVol)
		if v < floor || math.IsNaN(v) || math.IsInf(v, 0) {
			v = floor
		}
		walk[i] = v
	}

	points := make([]models.PricePoint, sh.points)
	for i := 0; i < sh.points; i++ {
		open, cls := walk[i], walk[i+1]
		hi := math.Max(open, cls) * (1 + rng.Float64()*stepVol*0.5)
		lo := math.Min(open, cls) * (1 - rng.Float64()*stepVol*0.5)
		vol := math.Round(prof.baseVolume * (0.5 + rng.Float64()))
		points[i] = models.PricePoint{
			Timestamp: end.Add(-time.Duration(sh.points-1-i) * sh.interval),
			Open:      models.Float(roundPrice(open)),
			High:      models.Float(roundPrice(hi)),
			Low:       models.Float(roundPrice(lo)),
			Close:     roundPrice(cls),
			Volume:    vol,
		}
	}
	return models.Series{Points: points, HasFullOHLC: true}
}

// Seed combines a stable hash of symbol and timeframe with the hour bucket of now.
func Seed(symbol string, tf models.Timeframe, now time.Time) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToUpper(symbol) + ":" + string(tf)))
	return h.Sum64() + uint64(now.Unix()/3600)
}

func anchorKey(kind models.AssetKind, symbol string) string {
	return string(kind) + ":" + strings.ToUpper(strings.TrimSpace(symbol))
}

func roundPrice(v float64) float64 {
	places := 2.0
	if v < 1 {
		places = 6
	}
	p := math.Pow(10, places)
	return math.Round(v*p) / p
}
