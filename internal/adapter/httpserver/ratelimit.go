package httpserver

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const rateLimiterExpiry = 5 * time.Minute

// rateLimitPolicy is a token bucket kept per caller. A writes-only policy
// ignores GET and HEAD so browsing capsules never spends the budget for
// creating capsules or answering questions.
type rateLimitPolicy struct {
	name          string
	ratePerSecond float64
	burst         int
	writesOnly    bool
}

var (
	apiReadPolicy  = rateLimitPolicy{name: "api", ratePerSecond: 5, burst: 20}
	apiWritePolicy = rateLimitPolicy{name: "api-write", ratePerSecond: 0.2, burst: 5, writesOnly: true}
)

// retryAfter is the number of whole seconds until one token is available again.
func (p rateLimitPolicy) retryAfter() string {
	if p.ratePerSecond <= 0 {
		return "60"
	}
	return strconv.Itoa(int(math.Ceil(1 / p.ratePerSecond)))
}

// newRateLimiter limits requests per authenticated user, falling back to the client IP.
func newRateLimiter(p rateLimitPolicy) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(p.ratePerSecond),
			Burst:     p.burst,
			ExpiresIn: rateLimiterExpiry,
		},
	)
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			if !p.writesOnly {
				return false
			}
			method := c.Request().Method
			return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
		},
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if userID, ok := c.Get("userID").(uuid.UUID); ok {
				return "user:" + userID.String(), nil
			}
			return "ip:" + c.RealIP(), nil
		},
		Store: store,
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			c.Response().Header().Set("Retry-After", p.retryAfter())
			return c.JSON(http.StatusTooManyRequests, map[string]string{
				"error":  "rate limit exceeded",
				"policy": p.name,
			})
		},
	})
}
