package alphavantage

import (
	"context"

	"FinGate/internal/domain/models"
)

// Commodities exposes the crude oil functions as a candle provider.
type Commodities struct{ *Client }

func (c Commodities) FetchCandles(ctx context.Context, symbol string, tf models.Timeframe) (models.Series, error) {
	return c.FetchCommodity(ctx, symbol, tf)
}

// Equities exposes the stock time series as a candle provider.
type Equities struct{ *Client }

func (e Equities) FetchCandles(ctx context.Context, symbol string, tf models.Timeframe) (models.Series, error) {
	return e.FetchEquity(ctx, symbol, tf)
}

// FetchQuote derives a quote from the daily series.
func (e Equities) FetchQuote(ctx context.Context, symbol string) (models.Quote, error) {
	s, err := e.FetchEquity(ctx, symbol, models.TF1M)
	if err != nil {
		return models.Quote{}, err
	}
	return quoteOf(e.Client, s)
}
