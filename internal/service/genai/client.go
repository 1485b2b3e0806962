// Package genai calls the Gemini generateContent endpoint.
package genai

import (
	"context"
	"strings"

	"FinGate/internal/domain/models"
	"FinGate/internal/service/upstream"
	xhttp "FinGate/pkg/http"
)

const (
	ProviderName   = "genai"
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-1.5-flash"
)

// Option configures Client.
type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(h *xhttp.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithModel(m string) Option {
	return func(c *Client) {
		if m != "" {
			c.model = m
		}
	}
}

// WithDecoding fixes the sampling parameters sent on every call.
func WithDecoding(temperature float64, maxOutputTokens int) Option {
	return func(c *Client) {
		c.temperature = temperature
		c.maxTokens = maxOutputTokens
	}
}

type Client struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	http        *xhttp.Client
	caller      *upstream.Caller
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:      apiKey,
		baseURL:     DefaultBaseURL,
		model:       DefaultModel,
		temperature: 0.3,
		maxTokens:   512,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.caller = upstream.NewCaller(ProviderName, c.baseURL,
		upstream.WithClient(c.http),
		upstream.WithHeader("x-goog-api-key", apiKey),
		// Gemini reports quota exhaustion as 429 RESOURCE_EXHAUSTED and bad keys as 400
		upstream.WithStatusTable(upstream.DefaultStatusTable.With(upstream.StatusTable{
			400: models.KindUnauthorized,
		})),
	)
	return c
}

func (c *Client) Name() string { return ProviderName }

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Generate sends one single-turn prompt and returns the concatenated text.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	if !c.Configured() {
		return "", c.caller.Errorf(models.KindUnauthorized, "api key not configured")
	}
	req := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     c.temperature,
			MaxOutputTokens: c.maxTokens,
		},
	}
	if system != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}

	var resp generateResponse
	if err := c.caller.PostJSON(ctx, "/models/"+c.model+":generateContent", nil, req, &resp); err != nil {
		return "", err
	}
	if resp.PromptFeedback.BlockReason != "" {
		return "", c.caller.Errorf(models.KindNoData, "prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			b.WriteString(p.Text)
		}
		if b.Len() > 0 {
			break
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", c.caller.Errorf(models.KindNoData, "empty candidates")
	}
	return text, nil
}
