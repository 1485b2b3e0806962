package analytics

import "FinGate/internal/domain/models"

const sentimentThreshold = 0.1

// LabelFor maps a score onto bullish, bearish or neutral.
func LabelFor(score float64) models.SentimentLabel {
	switch {
	case score > sentimentThreshold:
		return models.SentimentBullish
	case score < -sentimentThreshold:
		return models.SentimentBearish
	default:
		return models.SentimentNeutral
	}
}

// AggregateSentiment averages every non-nil article score.
func AggregateSentiment(articles []models.NewsArticle) models.SentimentSummary {
	sum, n := 0.0, 0
	for _, a := range articles {
		if a.SentimentScore == nil {
			continue
		}
		sum += *a.SentimentScore
		n++
	}
	if n == 0 {
		return models.SentimentSummary{Label: models.SentimentNeutral}
	}
	mean := roundTo(sum/float64(n), 4)
	return models.SentimentSummary{Score: &mean, Label: LabelFor(mean)}
}
