package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/timecapsule/internal/platform/version"
	"golang.org/x/sync/errgroup"
)

const (
	startupProbeTimeout   = 2 * time.Second
	readinessProbeTimeout = 5 * time.Second
)

// HealthCheck is a named dependency probe, such as the record store or the cache.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

const checkOK = "ok"

type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// sweepHealthResponse describes the latest reveal sweep run by this process.
type sweepHealthResponse struct {
	Status    string     `json:"status"`
	Scheduled bool       `json:"scheduled"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	Due       int        `json:"due"`
	Revealed  int        `json:"revealed"`
	Errors    int        `json:"errors"`
	Error     string     `json:"error,omitempty"`
}

const (
	sweepStatusPending  = "pending"
	sweepStatusOK       = "ok"
	sweepStatusDegraded = "degraded"
	sweepStatusFailing  = "failing"
)

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/startup", s.handleStartup)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/health/sweep", s.handleSweepHealth)
	s.echo.GET("/version", s.handleVersion)
}

func (s *Server) handleStartup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), startupProbeTimeout)
	defer cancel()

	return s.writeReadiness(c, s.runHealthChecks(ctx))
}

func (s *Server) handleLiveness(c echo.Context) error {
	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).Seconds(),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write liveness response: %w", err)
	}
	return nil
}

func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessProbeTimeout)
	defer cancel()

	return s.writeReadiness(c, s.runHealthChecks(ctx))
}

// runHealthChecks probes every dependency in parallel and returns "ok" or the
// error text per check name.
func (s *Server) runHealthChecks(ctx context.Context) map[string]string {
	results := make([]string, len(s.healthChecks))

	var g errgroup.Group
	for i, hc := range s.healthChecks {
		g.Go(func() error {
			if err := hc.Check(ctx); err != nil {
				slog.WarnContext(ctx, "Health check failed", "check", hc.Name, "error", err)
				results[i] = err.Error()
				return nil
			}
			results[i] = checkOK
			return nil
		})
	}
	_ = g.Wait()

	checks := make(map[string]string, len(results))
	for i, hc := range s.healthChecks {
		checks[hc.Name] = results[i]
	}
	return checks
}

func (s *Server) writeReadiness(c echo.Context, checks map[string]string) error {
	code, response := http.StatusOK, readinessResponse{Status: "ready", Checks: checks}
	for _, result := range checks {
		if result != checkOK {
			code, response.Status = http.StatusServiceUnavailable, "unhealthy"
			break
		}
	}

	if err := c.JSON(code, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

// handleSweepHealth reports the latest reveal sweep. Only a sweep that could not
// query due capsules is unhealthy; per-capsule failures degrade it.
func (s *Server) handleSweepHealth(c echo.Context) error {
	code := http.StatusOK
	response := sweepHealthResponse{Status: sweepStatusPending, Scheduled: s.config.SweepEnabled}

	if status, ok := s.sweeper.LastStatus(); ok {
		finished := status.FinishedAt
		response.LastRunAt = &finished

		switch {
		case status.Err != nil:
			code = http.StatusServiceUnavailable
			response.Status = sweepStatusFailing
			response.Error = status.Err.Error()
		case len(status.Report.Errors) > 0:
			response.Status = sweepStatusDegraded
		default:
			response.Status = sweepStatusOK
		}

		if status.Report != nil {
			response.Due = status.Report.TotalDue
			response.Revealed = status.Report.RevealedCount
			response.Errors = len(status.Report.Errors)
		}
	}

	if err := c.JSON(code, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleVersion(c echo.Context) error {
	if err := c.JSON(http.StatusOK, version.Get()); err != nil {
		return fmt.Errorf("failed to write version response: %w", err)
	}
	return nil
}
