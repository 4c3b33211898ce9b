package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRemoteAddr = "1.2.3.4:1234"

func TestRateLimiterAllowsRequestsUnderLimit(t *testing.T) {
	e := echo.New()
	mw := newRateLimiter(rateLimitPolicy{name: "test", ratePerSecond: 10, burst: 3})

	handler := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = testRemoteAddr
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler(c)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiterBlocksExcessiveRequests(t *testing.T) {
	e := echo.New()
	mw := newRateLimiter(rateLimitPolicy{name: "test", ratePerSecond: 0.01, burst: 1})

	handler := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	// First request: allowed (burst)
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = testRemoteAddr
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := handler(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Second request: blocked
	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = testRemoteAddr
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	err = handler(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "rate limit exceeded", resp["error"])
	assert.Equal(t, "test", resp["policy"])
	assert.Equal(t, "100", rec.Header().Get("Retry-After"))
}

func TestRateLimiterDifferentIPsAreIndependent(t *testing.T) {
	e := echo.New()
	mw := newRateLimiter(rateLimitPolicy{name: "test", ratePerSecond: 0.01, burst: 1})

	handler := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	// First IP uses its burst
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = testRemoteAddr
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := handler(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Second IP still has its own burst
	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "5.6.7.8:5678"
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	err = handler(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	// First IP is now blocked
	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = testRemoteAddr
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	err = handler(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimiterKeysByUserBeforeIP(t *testing.T) {
	e := echo.New()
	mw := newRateLimiter(rateLimitPolicy{name: "test", ratePerSecond: 0.01, burst: 1})

	handler := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	call := func(userID uuid.UUID) int {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = testRemoteAddr
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Set("userID", userID)
		require.NoError(t, handler(c))
		return rec.Code
	}

	alice, bob := uuid.New(), uuid.New()

	// Same IP, different users: each has its own bucket
	assert.Equal(t, http.StatusOK, call(alice))
	assert.Equal(t, http.StatusOK, call(bob))
	assert.Equal(t, http.StatusTooManyRequests, call(alice))
}

func TestRateLimiterWritesOnlyIgnoresReads(t *testing.T) {
	e := echo.New()
	mw := newRateLimiter(rateLimitPolicy{name: "write", ratePerSecond: 0.01, burst: 1, writesOnly: true})

	handler := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	call := func(method string) int {
		req := httptest.NewRequest(method, "/api/capsules", nil)
		req.RemoteAddr = testRemoteAddr
		rec := httptest.NewRecorder()
		require.NoError(t, handler(e.NewContext(req, rec)))
		return rec.Code
	}

	for range 5 {
		assert.Equal(t, http.StatusOK, call(http.MethodGet))
	}
	assert.Equal(t, http.StatusOK, call(http.MethodPost))
	assert.Equal(t, http.StatusTooManyRequests, call(http.MethodPost))
	assert.Equal(t, http.StatusOK, call(http.MethodGet))
}

func TestRateLimitPolicies(t *testing.T) {
	assert.False(t, apiReadPolicy.writesOnly)
	assert.True(t, apiWritePolicy.writesOnly)
	assert.Less(t, apiWritePolicy.ratePerSecond, apiReadPolicy.ratePerSecond)
	assert.Equal(t, "5", apiWritePolicy.retryAfter())
}

func TestRoutes_WriteBudgetIsSeparateFromReads(t *testing.T) {
	srv := newTestServer(t)
	user := uuid.New().String()

	request := func(method string) int {
		req := httptest.NewRequest(method, "/api/capsules", strings.NewReader(`{}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(userIDHeader, user)
		return serve(srv, req).Code
	}

	for range apiWritePolicy.burst {
		assert.NotEqual(t, http.StatusTooManyRequests, request(http.MethodPost))
	}
	assert.Equal(t, http.StatusTooManyRequests, request(http.MethodPost))
	assert.Equal(t, http.StatusOK, request(http.MethodGet))
}
