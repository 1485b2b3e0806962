package api

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"FinGate/internal/domain/models"
	"FinGate/internal/service/metrics"
	"FinGate/internal/usecase"
	xhttp "FinGate/pkg/http"
	xlogger "FinGate/pkg/logger"
)

const SessionHeader = "X-Session-ID"

// MarketService is the read side served by the API.
type MarketService interface {
	Candles(ctx context.Context, p usecase.CandlesParams) *usecase.CandlesResult
	Quote(ctx context.Context, p usecase.QuoteParams) *usecase.QuoteResult
	News(ctx context.Context, p usecase.NewsParams) *usecase.NewsResult
	Invalidate(ctx context.Context, kind models.AssetKind, symbol string, tf models.Timeframe) error
}

type AssistantService interface {
	Ask(ctx context.Context, p usecase.AskParams) (*usecase.Answer, error)
}

// QuestionLimiter is a keyed token bucket.
type QuestionLimiter interface {
	Allow(key string, capacity, refillPerSec float64) bool
}

// MarketEchoHandler serves candles, quotes, news, the assistant and cache
// invalidation.
type MarketEchoHandler struct {
	logger           *xlogger.Logger
	market           MarketService
	assistant        AssistantService
	limiter          QuestionLimiter
	questionsPerHour int
}

func NewMarketEchoHandler(logger *xlogger.Logger, market MarketService, assistant AssistantService, limiter QuestionLimiter, questionsPerHour int) *MarketEchoHandler {
	if questionsPerHour <= 0 {
		questionsPerHour = 10
	}
	metrics.Register()
	return &MarketEchoHandler{
		logger:           logger,
		market:           market,
		assistant:        assistant,
		limiter:          limiter,
		questionsPerHour: questionsPerHour,
	}
}

func (h *MarketEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/candles", h.Candles)
	g.GET("/quote", h.Quote)
	g.GET("/news", h.News)
	g.POST("/assistant", h.Assistant)
	g.DELETE("/cache", h.Invalidate)
}

func (h *MarketEchoHandler) Candles(c echo.Context) error {
	defer metrics.Observe("candles", time.Now())
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "candles", verr)
	}
	res := h.market.Candles(c.Request().Context(), usecase.CandlesParams{
		AssetKind:     models.AssetKind(req.AssetKind),
		Symbol:        req.Symbol,
		Timeframe:     models.Timeframe(req.Timeframe),
		WithSentiment: req.WithSentiment,
	})
	cacheControl(c, res.Metadata)
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketEchoHandler) Quote(c echo.Context) error {
	defer metrics.Observe("quote", time.Now())
	req := &models.QuoteRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "quote", verr)
	}
	res := h.market.Quote(c.Request().Context(), usecase.QuoteParams{
		AssetKind: models.AssetKind(req.AssetKind),
		Symbol:    req.Symbol,
	})
	cacheControl(c, res.Metadata)
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketEchoHandler) News(c echo.Context) error {
	defer metrics.Observe("news", time.Now())
	req := &models.NewsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "news", verr)
	}
	res := h.market.News(c.Request().Context(), usecase.NewsParams{
		AssetKind: models.AssetKind(req.AssetKind),
		Symbol:    req.Symbol,
		Limit:     req.Limit,
	})
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketEchoHandler) Assistant(c echo.Context) error {
	defer metrics.Observe("assistant", time.Now())
	req := &models.AssistantRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "assistant", verr)
	}

	session := c.Request().Header.Get(SessionHeader)
	if session == "" {
		session = c.RealIP()
	}
	perHour := float64(h.questionsPerHour)
	if !h.limiter.Allow("question:"+session, perHour, perHour/3600) {
		metrics.QuestionsRejected.Inc()
		return h.fail(c, "assistant", xhttp.TooManyRequestsError("ERR_QUESTION_RATE_LIMIT", "Question limit reached, try again later"))
	}

	ans, err := h.assistant.Ask(c.Request().Context(), usecase.AskParams{
		AssetKind:   models.AssetKind(req.AssetKind),
		Symbol:      req.SymbolOrCode,
		Timeframe:   models.Timeframe(req.Timeframe),
		ChartData:   req.ChartData,
		News:        req.News,
		Question:    req.Question,
		IsStale:     req.IsStale,
		IsSynthetic: req.IsSynthetic,
	})
	if err != nil {
		h.logger.Error("api.assistant ask_error", xlogger.Error(err))
		return h.fail(c, "assistant", err)
	}
	return xhttp.SuccessResponse(c, ans)
}

func (h *MarketEchoHandler) Invalidate(c echo.Context) error {
	req := &models.InvalidateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return h.badRequest(c, "invalidate", verr)
	}
	err := h.market.Invalidate(c.Request().Context(), models.AssetKind(req.AssetKind), req.Symbol, models.Timeframe(req.Timeframe))
	if err != nil {
		h.logger.Error("api.cache invalidate_error", xlogger.Error(err))
		return h.fail(c, "invalidate", xhttp.InternalError("Cache invalidation failed").WithError(err))
	}
	return xhttp.NoContentResponse(c)
}

func (h *MarketEchoHandler) badRequest(c echo.Context, endpoint string, verr []xhttp.ValidationError) error {
	metrics.APIErrors.WithLabelValues(endpoint, "ERR_BAD_REQUEST").Inc()
	return xhttp.BadRequestResponse(c, verr)
}

func (h *MarketEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	appErr := toAppError(err)
	metrics.APIErrors.WithLabelValues(endpoint, appErr.Code).Inc()
	return xhttp.AppErrorResponse(c, appErr)
}

// toAppError maps provider failures that reach the HTTP layer onto their
// status class.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, models.ErrRateLimited):
		return xhttp.TooManyRequestsError("ERR_UPSTREAM_RATE_LIMITED", "Upstream rate limit reached").WithError(err)
	case errors.Is(err, models.ErrUnauthorized):
		return xhttp.UnauthorizedError("Upstream credentials rejected").WithError(err)
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}

// cacheControl lets clients reuse healthy responses briefly; degraded ones are
// not cached downstream.
func cacheControl(c echo.Context, md models.SeriesMetadata) {
	if md.Degraded() {
		c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
		return
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
}
