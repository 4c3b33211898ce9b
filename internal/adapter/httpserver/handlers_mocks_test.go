package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/timecapsule/internal/app"
	"github.com/pscheid92/timecapsule/internal/domain"
	"github.com/pscheid92/timecapsule/internal/platform/config"
)

// --- Mock capsule service ---

type mockCapsuleService struct {
	createFn        func(ctx context.Context, req app.CreateCapsuleRequest) (*domain.Capsule, error)
	listFn          func(ctx context.Context, ownerID uuid.UUID) ([]app.CapsuleView, error)
	getFn           func(ctx context.Context, ownerID, capsuleID uuid.UUID) (*app.CapsuleView, error)
	deleteFn        func(ctx context.Context, ownerID, capsuleID uuid.UUID) error
	journeyFn       func(ctx context.Context, ownerID, capsuleID uuid.UUID) (*app.Journey, error)
	updateProfileFn func(ctx context.Context, userID uuid.UUID, email, displayName string) (*domain.User, error)
}

func (m *mockCapsuleService) Create(ctx context.Context, req app.CreateCapsuleRequest) (*domain.Capsule, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockCapsuleService) List(ctx context.Context, ownerID uuid.UUID) ([]app.CapsuleView, error) {
	if m.listFn != nil {
		return m.listFn(ctx, ownerID)
	}
	return nil, nil
}

func (m *mockCapsuleService) Get(ctx context.Context, ownerID, capsuleID uuid.UUID) (*app.CapsuleView, error) {
	if m.getFn != nil {
		return m.getFn(ctx, ownerID, capsuleID)
	}
	return nil, domain.ErrCapsuleNotFound
}

func (m *mockCapsuleService) Delete(ctx context.Context, ownerID, capsuleID uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, ownerID, capsuleID)
	}
	return nil
}

func (m *mockCapsuleService) Journey(ctx context.Context, ownerID, capsuleID uuid.UUID) (*app.Journey, error) {
	if m.journeyFn != nil {
		return m.journeyFn(ctx, ownerID, capsuleID)
	}
	return nil, domain.ErrCapsuleNotFound
}

func (m *mockCapsuleService) UpdateProfile(ctx context.Context, userID uuid.UUID, email, displayName string) (*domain.User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, userID, email, displayName)
	}
	return nil, errors.New("not implemented")
}

// --- Mock questionnaire ---

type mockQuestionnaire struct {
	nextPromptFn func(ctx context.Context, ownerID uuid.UUID) (*app.Prompt, error)
	submitFn     func(ctx context.Context, req app.SubmitResponseRequest) (*domain.Response, error)
}

func (m *mockQuestionnaire) NextPrompt(ctx context.Context, ownerID uuid.UUID) (*app.Prompt, error) {
	if m.nextPromptFn != nil {
		return m.nextPromptFn(ctx, ownerID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockQuestionnaire) Submit(ctx context.Context, req app.SubmitResponseRequest) (*domain.Response, error) {
	if m.submitFn != nil {
		return m.submitFn(ctx, req)
	}
	return nil, errors.New("not implemented")
}

// --- Mock sweeper ---

type mockSweeper struct {
	runFn  func(ctx context.Context) (*app.SweepReport, error)
	status *app.SweepStatus
	calls  int
}

func (m *mockSweeper) LastStatus() (app.SweepStatus, bool) {
	if m.status == nil {
		return app.SweepStatus{}, false
	}
	return *m.status, true
}

func (m *mockSweeper) Run(ctx context.Context) (*app.SweepReport, error) {
	m.calls++
	if m.runFn != nil {
		return m.runFn(ctx)
	}
	return &app.SweepReport{}, nil
}

// --- Mock media store ---

type mockMediaStore struct {
	putFn func(ctx context.Context, ownerID uuid.UUID, filename, contentType string, body io.Reader) (string, error)
}

func (m *mockMediaStore) Put(ctx context.Context, ownerID uuid.UUID, filename, contentType string, body io.Reader) (string, error) {
	if m.putFn != nil {
		return m.putFn(ctx, ownerID, filename, contentType, body)
	}
	return "", errors.New("not implemented")
}

// --- Test helpers ---

func newTestServer(t *testing.T, opts ...func(*Server)) *Server {
	t.Helper()

	srv := &Server{
		echo:          echo.New(),
		config:        &config.Config{Port: "0"},
		capsules:      &mockCapsuleService{},
		questionnaire: &mockQuestionnaire{},
		sweeper:       &mockSweeper{},
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.registerRoutes()

	return srv
}

func withCapsules(svc capsuleService) func(*Server) {
	return func(s *Server) {
		s.capsules = svc
	}
}

func withQuestionnaire(q questionnaireEngine) func(*Server) {
	return func(s *Server) {
		s.questionnaire = q
	}
}

func withSweeper(sw revealSweeper) func(*Server) {
	return func(s *Server) {
		s.sweeper = sw
	}
}

func withMedia(m domain.MediaStore) func(*Server) {
	return func(s *Server) {
		s.media = m
	}
}

func withSweepToken(token string) func(*Server) {
	return func(s *Server) {
		s.config.SweepToken = token
	}
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

// callHandler wraps a handler with error middleware, matching production behavior
func callHandler(handler echo.HandlerFunc, c echo.Context) error {
	return ErrorHandlingMiddleware()(handler)(c)
}

// newAuthedContext builds a context for userID as requireUser would leave it.
func newAuthedContext(srv *Server, method, target, body string, userID uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)
	c.Set("userID", userID)
	return c, rec
}

// serve routes a request through the full middleware stack.
func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}
