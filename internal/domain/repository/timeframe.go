package repository

import (
	"strings"

	"FinGate/internal/domain/models"
)

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf models.Timeframe) bool {
	switch tf {
	case models.TF1D, models.TF1W, models.TF1M, models.TF3M, models.TF1Y:
		return true
	default:
		return false
	}
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() models.Timeframe { return models.TF1M }

// NormalizeTimeframe converts raw string to a valid timeframe (or default).
func NormalizeTimeframe(s string) models.Timeframe {
	if s == "" {
		return DefaultTimeframe()
	}
	tf := models.Timeframe(strings.ToUpper(strings.TrimSpace(s)))
	if IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}

// IsIntraday reports whether tf requests sub-daily candles.
func IsIntraday(tf models.Timeframe) bool {
	return tf == models.TF1D || tf == models.TF1W
}

// CoarserTimeframe returns the free-tier compatible timeframe to retry with
// after an intraday request is refused. ok is false when tf is already coarse.
func CoarserTimeframe(tf models.Timeframe) (models.Timeframe, bool) {
	if IsIntraday(tf) {
		return models.TF1M, true
	}
	return tf, false
}

// NormalizeSymbol upper-cases and trims a ticker or code.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
