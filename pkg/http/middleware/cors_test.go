package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func serveCORS(cfg CORSConfig, method, origin string) *httptest.ResponseRecorder {
	e := echo.New()
	e.Use(CORS(cfg))
	e.GET("/api/quote", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.OPTIONS("/api/quote", func(c echo.Context) error { return c.NoContent(http.StatusMethodNotAllowed) })

	req := httptest.NewRequest(method, "/api/quote", nil)
	if origin != "" {
		req.Header.Set(echo.HeaderOrigin, origin)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCORS(t *testing.T) {
	cfg := CORSConfig{
		AllowOrigins:  []string{"https://app.example.com"},
		AllowMethods:  []string{http.MethodGet},
		AllowHeaders:  []string{"X-Session-ID"},
		ExposeHeaders: []string{echo.HeaderCacheControl},
		MaxAge:        10 * time.Minute,
	}

	t.Run("allowed origin is echoed", func(t *testing.T) {
		rec := serveCORS(cfg, http.MethodGet, "https://app.example.com")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "https://app.example.com", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
		assert.Equal(t, echo.HeaderCacheControl, rec.Header().Get(echo.HeaderAccessControlExposeHeaders))
		assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods))
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		rec := serveCORS(cfg, http.MethodOptions, "https://app.example.com")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "GET", rec.Header().Get(echo.HeaderAccessControlAllowMethods))
		assert.Equal(t, "X-Session-ID", rec.Header().Get(echo.HeaderAccessControlAllowHeaders))
		assert.Equal(t, "600", rec.Header().Get(echo.HeaderAccessControlMaxAge))
	})

	t.Run("other origin gets no headers", func(t *testing.T) {
		rec := serveCORS(cfg, http.MethodGet, "https://evil.example.com")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	})

	t.Run("wildcard", func(t *testing.T) {
		rec := serveCORS(CORSConfig{AllowOrigins: []string{"*"}}, http.MethodGet, "")
		assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	})
}
