package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSocialAction(t *testing.T) {
	before := testutil.ToFloat64(socialActions.WithLabelValues("vouch", "added"))
	RecordSocialAction("vouch", "added")
	assert.Equal(t, before+1, testutil.ToFloat64(socialActions.WithLabelValues("vouch", "added")))
}

func TestMiddlewareCountsByRoute(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/api/posts/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/api/boom", func(c echo.Context) error {
		return errors.New("boom")
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/posts/:id", "200"))
	req := httptest.NewRequest(http.MethodGet, "/api/posts/123", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/posts/:id", "200")))

	before = testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/boom", "500"))
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/boom", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/boom", "500")))
}

func TestHandlerServesRegistry(t *testing.T) {
	RecordPostCreated()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "marketplace_content_posts_created_total")
}
