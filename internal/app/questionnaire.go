package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/timecapsule/internal/domain"
	"github.com/pscheid92/timecapsule/internal/metrics"
	apperrors "github.com/pscheid92/timecapsule/internal/platform/errors"
	"github.com/pscheid92/timecapsule/internal/reflection"
)

const maxResponseLength = 5000

// PromptState is the outcome of a questionnaire visit.
type PromptState string

const (
	PromptReady            PromptState = "prompt"
	PromptAlreadyAnswered  PromptState = "already_answered"
	PromptNoActiveCapsules PromptState = "no_active_capsules"
	PromptNoSlotToday      PromptState = "no_slot_today"
)

var promptMessages = map[PromptState]string{
	PromptAlreadyAnswered:  "You've already answered today's reflection question. Come back tomorrow!",
	PromptNoActiveCapsules: "Create a time capsule to start receiving reflection questions.",
	PromptNoSlotToday:      "No reflection question is scheduled for today. Check back later!",
}

// Prompt is what the questionnaire shows for one visit. Capsule fields are only
// set when State is PromptReady.
type Prompt struct {
	State        PromptState
	Message      string
	CapsuleID    uuid.UUID
	Question     string
	QuestionDate time.Time
	Ordinal      int
}

// QuestionnaireEngine decides whether a user gets a reflection question today and records answers.
type QuestionnaireEngine struct {
	capsules   domain.CapsuleRepository
	responses  domain.ResponseRepository
	classifier domain.SentimentClassifier
	clock      clockwork.Clock
	loc        *time.Location
	horizon    time.Duration
}

// NewQuestionnaireEngine creates the engine. Calendar days are evaluated in loc.
func NewQuestionnaireEngine(capsules domain.CapsuleRepository, responses domain.ResponseRepository, classifier domain.SentimentClassifier, clock clockwork.Clock, loc *time.Location, horizon time.Duration) *QuestionnaireEngine {
	return &QuestionnaireEngine{
		capsules:   capsules,
		responses:  responses,
		classifier: classifier,
		clock:      clock,
		loc:        loc,
		horizon:    horizon,
	}
}

func terminal(state PromptState) *Prompt {
	metrics.PromptsTotal.WithLabelValues(string(state)).Inc()
	return &Prompt{State: state, Message: promptMessages[state]}
}

// NextPrompt runs the visit state machine for ownerID at the current time.
func (e *QuestionnaireEngine) NextPrompt(ctx context.Context, ownerID uuid.UUID) (*Prompt, error) {
	now := e.clock.Now()

	answered, err := e.answeredToday(ctx, ownerID, now)
	if err != nil {
		return nil, err
	}
	if answered {
		return terminal(PromptAlreadyAnswered), nil
	}

	active, err := e.capsules.ListActiveByOwner(ctx, ownerID, now, now.Add(e.horizon))
	if err != nil {
		return nil, fmt.Errorf("failed to list active capsules: %w", err)
	}
	if len(active) == 0 {
		return terminal(PromptNoActiveCapsules), nil
	}

	today := reflection.Day(now, e.loc)
	for _, c := range active {
		if !e.slotToday(c, today) {
			continue
		}

		ordinal, err := e.responses.CountByCapsule(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count responses: %w", err)
		}

		metrics.PromptsTotal.WithLabelValues(string(PromptReady)).Inc()
		return &Prompt{
			State:        PromptReady,
			CapsuleID:    c.ID,
			Question:     reflection.SelectQuestion(domain.LabelOf(c.InitialSentiment), ordinal),
			QuestionDate: today,
			Ordinal:      ordinal,
		}, nil
	}

	return terminal(PromptNoSlotToday), nil
}

type SubmitResponseRequest struct {
	OwnerID      uuid.UUID
	CapsuleID    uuid.UUID
	ResponseText string
}

// Submit records an answer to today's question for the capsule. Every check made
// by NextPrompt is repeated here; the store's uniqueness on (capsule, date) settles races.
func (e *QuestionnaireEngine) Submit(ctx context.Context, req SubmitResponseRequest) (*domain.Response, error) {
	text := strings.TrimSpace(req.ResponseText)
	if text == "" {
		return nil, apperrors.ValidationError("response text is required").WithField("field", "response_text")
	}
	if utf8.RuneCountInString(text) > maxResponseLength {
		return nil, apperrors.ValidationError("response is too long").
			WithField("field", "response_text").
			WithField("max_length", maxResponseLength)
	}

	now := e.clock.Now()
	capsule, err := e.capsules.GetByID(ctx, req.CapsuleID)
	if errors.Is(err, domain.ErrCapsuleNotFound) || (err == nil && capsule.OwnerID != req.OwnerID) {
		return nil, domain.ErrCapsuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get capsule: %w", err)
	}
	if domain.IsEffectivelyRevealed(capsule, now) {
		return nil, domain.ErrCapsuleRevealed
	}

	today := reflection.Day(now, e.loc)
	if !e.slotToday(capsule, today) {
		return nil, apperrors.ValidationError("no reflection question is due for this capsule today").WithField("capsule_id", capsule.ID.String())
	}

	answered, err := e.answeredToday(ctx, req.OwnerID, now)
	if err != nil {
		return nil, err
	}
	if answered {
		metrics.ResponsesTotal.WithLabelValues("duplicate").Inc()
		return nil, domain.ErrDuplicateResponse
	}

	ordinal, err := e.responses.CountByCapsule(ctx, capsule.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count responses: %w", err)
	}

	var sentiment *domain.Sentiment
	if longEnoughToClassify(text) {
		sentiment = classifyBestEffort(ctx, e.classifier, text)
	}

	response := &domain.Response{
		ID:                uuid.New(),
		CapsuleID:         capsule.ID,
		OwnerID:           req.OwnerID,
		QuestionText:      reflection.SelectQuestion(domain.LabelOf(capsule.InitialSentiment), ordinal),
		QuestionDate:      today,
		ResponseText:      text,
		ResponseSentiment: sentiment,
		CreatedAt:         now,
	}

	if err := e.responses.Create(ctx, response); err != nil {
		if errors.Is(err, domain.ErrDuplicateResponse) {
			metrics.ResponsesTotal.WithLabelValues("duplicate").Inc()
			return nil, err
		}
		metrics.ResponsesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to save response: %w", err)
	}

	metrics.ResponsesTotal.WithLabelValues("saved").Inc()
	slog.InfoContext(ctx, "Reflection response saved", "capsule_id", capsule.ID, "question_date", today.Format(time.DateOnly), "sentiment", domain.LabelOf(sentiment))
	return response, nil
}

func (e *QuestionnaireEngine) answeredToday(ctx context.Context, ownerID uuid.UUID, now time.Time) (bool, error) {
	start, end := reflection.DayBounds(now, e.loc)
	answered, err := e.responses.ExistsForOwnerBetween(ctx, ownerID, start, end)
	if err != nil {
		return false, fmt.Errorf("failed to check today's responses: %w", err)
	}
	return answered, nil
}

func (e *QuestionnaireEngine) slotToday(c *domain.Capsule, today time.Time) bool {
	schedule := reflection.GenerateSchedule(c.CreatedAt, c.RevealAt, domain.LabelOf(c.InitialSentiment))
	return reflection.SlotOn(schedule, today, e.loc)
}
