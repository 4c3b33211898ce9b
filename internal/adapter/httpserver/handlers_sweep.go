package httpserver

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/timecapsule/internal/app"
	apperrors "github.com/pscheid92/timecapsule/internal/platform/errors"
)

type sweepErrorResponse struct {
	CapsuleID string `json:"capsule_id"`
	Step      string `json:"step"`
	Error     string `json:"error"`
}

type sweepResponse struct {
	TotalDue      int                  `json:"total_due"`
	RevealedCount int                  `json:"revealed_count"`
	SkippedCount  int                  `json:"skipped_count"`
	Errors        []sweepErrorResponse `json:"errors"`
}

// requireSweepToken guards the sweep trigger used by external schedulers.
// Without a configured token the endpoint is closed.
func (s *Server) requireSweepToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		expected := s.config.SweepToken
		if expected == "" {
			return apperrors.NotFoundError("sweep trigger is not enabled")
		}

		token, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			return apperrors.UnauthorizedError("invalid sweep token")
		}
		return next(c)
	}
}

func (s *Server) handleSweep(c echo.Context) error {
	report, err := s.sweeper.Run(c.Request().Context())
	if err != nil {
		return apperrors.InternalError("reveal sweep failed", err)
	}

	if err := c.JSON(http.StatusOK, toSweepResponse(report)); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func toSweepResponse(report *app.SweepReport) sweepResponse {
	resp := sweepResponse{
		TotalDue:      report.TotalDue,
		RevealedCount: report.RevealedCount,
		SkippedCount:  report.SkippedCount,
		Errors:        make([]sweepErrorResponse, 0, len(report.Errors)),
	}
	for _, e := range report.Errors {
		resp.Errors = append(resp.Errors, sweepErrorResponse{
			CapsuleID: e.CapsuleID.String(),
			Step:      e.Step,
			Error:     e.Err.Error(),
		})
	}
	return resp
}
