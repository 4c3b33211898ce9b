package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/timecapsule/internal/app"
	"github.com/pscheid92/timecapsule/internal/domain"
	"github.com/pscheid92/timecapsule/internal/platform/config"
)

type capsuleService interface {
	Create(ctx context.Context, req app.CreateCapsuleRequest) (*domain.Capsule, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]app.CapsuleView, error)
	Get(ctx context.Context, ownerID, capsuleID uuid.UUID) (*app.CapsuleView, error)
	Delete(ctx context.Context, ownerID, capsuleID uuid.UUID) error
	Journey(ctx context.Context, ownerID, capsuleID uuid.UUID) (*app.Journey, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, email, displayName string) (*domain.User, error)
}

type questionnaireEngine interface {
	NextPrompt(ctx context.Context, ownerID uuid.UUID) (*app.Prompt, error)
	Submit(ctx context.Context, req app.SubmitResponseRequest) (*domain.Response, error)
}

type revealSweeper interface {
	Run(ctx context.Context) (*app.SweepReport, error)
	LastStatus() (app.SweepStatus, bool)
}

// Services bundles what the HTTP layer calls into. Media may be nil, in which
// case uploads are rejected.
type Services struct {
	Capsules      capsuleService
	Questionnaire questionnaireEngine
	Sweeper       revealSweeper
	Media         domain.MediaStore
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	capsules      capsuleService
	questionnaire questionnaireEngine
	sweeper       revealSweeper
	media         domain.MediaStore

	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, services Services, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:          e,
		config:        cfg,
		capsules:      services.Capsules,
		questionnaire: services.Questionnaire,
		sweeper:       services.Sweeper,
		media:         services.Media,
		healthChecks:  healthChecks,
		startTime:     time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
