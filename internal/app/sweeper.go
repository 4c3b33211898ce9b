package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/timecapsule/internal/domain"
	"github.com/pscheid92/timecapsule/internal/metrics"
	"github.com/pscheid92/timecapsule/internal/platform/correlation"
	"github.com/pscheid92/timecapsule/internal/reflection"
	"golang.org/x/sync/errgroup"
)

// Sweep steps, used in CapsuleError and metrics labels.
const (
	StepReveal        = "reveal"
	StepResolveOwner  = "resolve_owner"
	StepLoadResponses = "load_responses"
	StepNotify        = "notify"
)

// CapsuleError records why one capsule could not be fully processed by a sweep.
type CapsuleError struct {
	CapsuleID uuid.UUID
	Step      string
	Err       error
}

func (e CapsuleError) Error() string {
	return fmt.Sprintf("capsule %s: %s: %v", e.CapsuleID, e.Step, e.Err)
}

func (e CapsuleError) Unwrap() error { return e.Err }

// SweepReport summarises one sweep. Skipped counts due capsules another sweep revealed first.
type SweepReport struct {
	TotalDue      int
	RevealedCount int
	SkippedCount  int
	Errors        []CapsuleError
}

// SweepStatus is the outcome of the latest sweep run by a RevealSweeper.
// Report is nil when Err is set.
type SweepStatus struct {
	FinishedAt time.Time
	Report     *SweepReport
	Err        error
}

// RevealSweeper reveals due capsules and notifies their owners. It is safe to run
// concurrently with itself: each capsule is claimed by a conditional update and only
// the claiming sweep notifies.
type RevealSweeper struct {
	capsules    domain.CapsuleRepository
	responses   domain.ResponseRepository
	users       domain.UserRepository
	notifier    domain.NotificationSender
	clock       clockwork.Clock
	concurrency int

	mu   sync.Mutex
	last *SweepStatus
}

func NewRevealSweeper(capsules domain.CapsuleRepository, responses domain.ResponseRepository, users domain.UserRepository, notifier domain.NotificationSender, clock clockwork.Clock, concurrency int) *RevealSweeper {
	if concurrency < 1 {
		concurrency = 1
	}
	return &RevealSweeper{
		capsules:    capsules,
		responses:   responses,
		users:       users,
		notifier:    notifier,
		clock:       clock,
		concurrency: concurrency,
	}
}

// Run performs one sweep. Only a failure to query due capsules is returned as an
// error; per-capsule failures are collected in the report.
func (s *RevealSweeper) Run(ctx context.Context) (*SweepReport, error) {
	report, err := s.sweep(ctx)

	s.mu.Lock()
	s.last = &SweepStatus{FinishedAt: s.clock.Now(), Report: report, Err: err}
	s.mu.Unlock()

	return report, err
}

// LastStatus returns the outcome of the latest sweep, or false before the first one.
func (s *RevealSweeper) LastStatus() (SweepStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return SweepStatus{}, false
	}
	return *s.last, true
}

func (s *RevealSweeper) sweep(ctx context.Context) (*SweepReport, error) {
	if _, ok := correlation.ID(ctx); !ok {
		ctx = correlation.WithID(ctx, correlation.NewSweepID())
	}

	start := s.clock.Now()
	defer func() { metrics.SweepDuration.Observe(s.clock.Since(start).Seconds()) }()

	due, err := s.capsules.ListDue(ctx, start)
	if err != nil {
		metrics.SweepRunsTotal.WithLabelValues("store_error").Inc()
		return nil, fmt.Errorf("failed to list due capsules: %w", err)
	}

	report := &SweepReport{TotalDue: len(due)}
	if len(due) == 0 {
		metrics.SweepRunsTotal.WithLabelValues("ok").Inc()
		slog.DebugContext(ctx, "Sweep: no capsules due")
		return report, nil
	}
	metrics.CapsulesDueTotal.Add(float64(len(due)))

	outcomes := make([]capsuleOutcome, len(due))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, c := range due {
		g.Go(func() error {
			outcomes[i] = s.process(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		switch {
		case o.revealed:
			report.RevealedCount++
		case o.claimLost:
			report.SkippedCount++
		}
		if o.err != nil {
			report.Errors = append(report.Errors, *o.err)
		}
	}

	metrics.SweepRunsTotal.WithLabelValues("ok").Inc()
	slog.InfoContext(ctx, "Sweep finished",
		"due", report.TotalDue,
		"revealed", report.RevealedCount,
		"skipped", report.SkippedCount,
		"errors", len(report.Errors),
	)
	return report, nil
}

type capsuleOutcome struct {
	revealed  bool
	claimLost bool
	err       *CapsuleError
}

// process flips and then notifies a single capsule. The steps for one capsule are sequential.
func (s *RevealSweeper) process(ctx context.Context, c *domain.Capsule) capsuleOutcome {
	fail := func(step string, err error) *CapsuleError {
		metrics.CapsuleErrorsTotal.WithLabelValues(step).Inc()
		slog.ErrorContext(ctx, "Sweep: capsule step failed", "capsule_id", c.ID, "step", step, "error", err)
		return &CapsuleError{CapsuleID: c.ID, Step: step, Err: err}
	}

	claimed, err := s.capsules.MarkRevealed(ctx, c.ID, s.clock.Now())
	if err != nil {
		return capsuleOutcome{err: fail(StepReveal, err)}
	}
	if !claimed {
		metrics.RevealClaimsLostTotal.Inc()
		slog.DebugContext(ctx, "Sweep: capsule already revealed by another sweep", "capsule_id", c.ID)
		return capsuleOutcome{claimLost: true}
	}
	metrics.CapsulesRevealedTotal.Inc()

	owner, err := s.users.GetByID(ctx, c.OwnerID)
	if err != nil {
		return capsuleOutcome{revealed: true, err: fail(StepResolveOwner, err)}
	}

	responses, err := s.responses.ListByCapsule(ctx, c.ID)
	if err != nil {
		return capsuleOutcome{revealed: true, err: fail(StepLoadResponses, err)}
	}

	notification := domain.RevealNotification{
		Recipient:   owner.Email,
		DisplayName: owner.DisplayName,
		CapsuleID:   c.ID,
		RevealAt:    c.RevealAt,
		Summary:     reflection.Summarize(c, responses),
	}
	if err := s.notifier.Send(ctx, notification); err != nil {
		metrics.NotificationsTotal.WithLabelValues("error").Inc()
		return capsuleOutcome{revealed: true, err: fail(StepNotify, err)}
	}

	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	slog.InfoContext(ctx, "Capsule revealed", "capsule_id", c.ID, "owner_id", c.OwnerID, "dominant_sentiment", notification.Summary.DominantSentiment)
	return capsuleOutcome{revealed: true}
}
