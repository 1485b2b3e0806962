package models

import "strings"

// Requests for the market HTTP endpoints.

type CandlesRequest struct {
	AssetKind     string `query:"assetKind" json:"assetKind" validate:"required,oneof=stock oil metal crypto"`
	Symbol        string `query:"symbol" json:"symbol" validate:"required,symbol"`
	Timeframe     string `query:"timeframe" json:"timeframe" default:"1M" validate:"oneof=1D 1W 1M 3M 1Y"`
	WithSentiment bool   `query:"withSentiment" json:"withSentiment"`
}

type QuoteRequest struct {
	AssetKind string `query:"assetKind" json:"assetKind" validate:"required,oneof=stock oil metal crypto"`
	Symbol    string `query:"symbol" json:"symbol" validate:"required,symbol"`
}

type NewsRequest struct {
	AssetKind string `query:"assetKind" json:"assetKind" validate:"required,oneof=stock oil metal crypto"`
	Symbol    string `query:"symbol" json:"symbol" validate:"omitempty,symbol"`
	Limit     int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=50"`
}

type InvalidateRequest struct {
	AssetKind string `query:"assetKind" json:"assetKind" validate:"required,oneof=stock oil metal crypto"`
	Symbol    string `query:"symbol" json:"symbol" validate:"required,symbol"`
	Timeframe string `query:"timeframe" json:"timeframe" validate:"omitempty,oneof=1D 1W 1M 3M 1Y"`
}

// AssistantRequest carries an optional client-side snapshot of chart and news
// data. When ChartData is empty and SymbolOrCode is set, the server loads it.
// IsStale and IsSynthetic echo the metadata the snapshot was served with.
type AssistantRequest struct {
	AssetKind    string        `json:"assetKind" validate:"required,oneof=stock oil metal crypto"`
	SymbolOrCode string        `json:"symbolOrCode" validate:"omitempty,symbol"`
	Timeframe    string        `json:"timeframe" default:"1M" validate:"oneof=1D 1W 1M 3M 1Y"`
	ChartData    []PricePoint  `json:"chartData" validate:"max=2000"`
	IsStale      bool          `json:"isStale"`
	IsSynthetic  bool          `json:"isSynthetic"`
	News         []NewsArticle `json:"news" validate:"max=100"`
	Question     string        `json:"question" validate:"required,min=1,max=1000"`
}

func (r *CandlesRequest) Normalize() {
	r.AssetKind = strings.ToLower(strings.TrimSpace(r.AssetKind))
	r.Symbol = strings.ToUpper(strings.TrimSpace(r.Symbol))
	r.Timeframe = strings.ToUpper(strings.TrimSpace(r.Timeframe))
}

func (r *QuoteRequest) Normalize() {
	r.AssetKind = strings.ToLower(strings.TrimSpace(r.AssetKind))
	r.Symbol = strings.ToUpper(strings.TrimSpace(r.Symbol))
}

func (r *NewsRequest) Normalize() {
	r.AssetKind = strings.ToLower(strings.TrimSpace(r.AssetKind))
	r.Symbol = strings.ToUpper(strings.TrimSpace(r.Symbol))
}

func (r *InvalidateRequest) Normalize() {
	r.AssetKind = strings.ToLower(strings.TrimSpace(r.AssetKind))
	r.Symbol = strings.ToUpper(strings.TrimSpace(r.Symbol))
	r.Timeframe = strings.ToUpper(strings.TrimSpace(r.Timeframe))
}

func (r *AssistantRequest) Normalize() {
	r.AssetKind = strings.ToLower(strings.TrimSpace(r.AssetKind))
	r.SymbolOrCode = strings.ToUpper(strings.TrimSpace(r.SymbolOrCode))
	r.Timeframe = strings.ToUpper(strings.TrimSpace(r.Timeframe))
	r.Question = strings.TrimSpace(r.Question)
}
