package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
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

const (
	maxMessageLength = 10000
	maxMediaRefs     = 10
)

// NegativeSentimentPrompt is shown to the owner before a negative capsule is sealed.
const NegativeSentimentPrompt = "Your message seems to carry a heavy tone. Do you still want to seal it in your time capsule?"

// CapsuleService handles the owner-facing capsule lifecycle: creation, listing,
// deletion and the post-reveal journey view.
type CapsuleService struct {
	capsules   domain.CapsuleRepository
	responses  domain.ResponseRepository
	users      domain.UserRepository
	classifier domain.SentimentClassifier
	clock      clockwork.Clock
	horizon    time.Duration
}

// NewCapsuleService creates the capsule service. classifier may be nil, in which
// case capsules are stored without sentiment.
func NewCapsuleService(capsules domain.CapsuleRepository, responses domain.ResponseRepository, users domain.UserRepository, classifier domain.SentimentClassifier, clock clockwork.Clock, horizon time.Duration) *CapsuleService {
	return &CapsuleService{
		capsules:   capsules,
		responses:  responses,
		users:      users,
		classifier: classifier,
		clock:      clock,
		horizon:    horizon,
	}
}

type CreateCapsuleRequest struct {
	OwnerID   uuid.UUID
	Message   string
	RevealAt  time.Time
	MediaRefs []string
	// Confirmer approves sealing a capsule whose message reads as negative.
	// A nil Confirmer declines.
	Confirmer domain.Confirmer
}

// CapsuleView is a capsule as its owner may see it at a given moment. Message and
// media stay sealed until the capsule is effectively revealed.
type CapsuleView struct {
	domain.Capsule
	Revealed bool
}

// Journey is the reflection history of a revealed capsule.
type Journey struct {
	Capsule   CapsuleView
	Summary   domain.TrendSummary
	Responses []*domain.Response
}

func (s *CapsuleService) Create(ctx context.Context, req CreateCapsuleRequest) (*domain.Capsule, error) {
	now := s.clock.Now()
	if err := s.validateCreate(req, now); err != nil {
		return nil, err
	}

	sentiment := classifyBestEffort(ctx, s.classifier, req.Message)
	if domain.LabelOf(sentiment) == domain.SentimentNegative {
		if req.Confirmer == nil || !req.Confirmer.Confirm(ctx, NegativeSentimentPrompt) {
			slog.InfoContext(ctx, "Capsule creation not confirmed after negative sentiment", "owner_id", req.OwnerID)
			return nil, domain.ErrCreationCancelled
		}
	}

	capsule := &domain.Capsule{
		ID:               uuid.New(),
		OwnerID:          req.OwnerID,
		Message:          req.Message,
		MediaRefs:        req.MediaRefs,
		CreatedAt:        now,
		RevealAt:         req.RevealAt,
		InitialSentiment: sentiment,
	}
	if err := s.capsules.Create(ctx, capsule); err != nil {
		return nil, fmt.Errorf("failed to create capsule: %w", err)
	}

	metrics.CapsulesCreatedTotal.WithLabelValues(string(domain.LabelOf(sentiment))).Inc()
	slog.InfoContext(ctx, "Capsule created", "capsule_id", capsule.ID, "owner_id", capsule.OwnerID, "reveal_at", capsule.RevealAt, "sentiment", domain.LabelOf(sentiment))
	return capsule, nil
}

func (s *CapsuleService) validateCreate(req CreateCapsuleRequest, now time.Time) error {
	if strings.TrimSpace(req.Message) == "" && len(req.MediaRefs) == 0 {
		return apperrors.ValidationError("a message or at least one media attachment is required").WithField("field", "message")
	}
	if utf8.RuneCountInString(req.Message) > maxMessageLength {
		return apperrors.ValidationError("message is too long").
			WithField("field", "message").
			WithField("max_length", maxMessageLength)
	}
	if len(req.MediaRefs) > maxMediaRefs {
		return apperrors.ValidationError("too many media attachments").
			WithField("field", "media_refs").
			WithField("max_items", maxMediaRefs)
	}
	for _, ref := range req.MediaRefs {
		if u, err := url.Parse(ref); err != nil || u.Scheme == "" || u.Host == "" {
			return apperrors.ValidationError("media reference must be an absolute URL").WithField("field", "media_refs")
		}
	}

	if !req.RevealAt.After(now) {
		return apperrors.ValidationError("reveal date must be in the future").WithField("field", "reveal_at")
	}
	if req.RevealAt.After(now.Add(s.horizon)) {
		days := int(s.horizon / (24 * time.Hour))
		return apperrors.ValidationError(fmt.Sprintf("reveal date must be within %d days", days)).
			WithField("field", "reveal_at").
			WithField("max_days", days)
	}
	return nil
}

// List returns the owner's capsules, newest first.
func (s *CapsuleService) List(ctx context.Context, ownerID uuid.UUID) ([]CapsuleView, error) {
	capsules, err := s.capsules.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list capsules: %w", err)
	}

	now := s.clock.Now()
	views := make([]CapsuleView, 0, len(capsules))
	for _, c := range capsules {
		views = append(views, viewOf(c, now))
	}
	return views, nil
}

// Get returns one of the owner's capsules. Capsules owned by someone else are reported as not found.
func (s *CapsuleService) Get(ctx context.Context, ownerID, capsuleID uuid.UUID) (*CapsuleView, error) {
	c, err := s.ownedCapsule(ctx, ownerID, capsuleID)
	if err != nil {
		return nil, err
	}
	view := viewOf(c, s.clock.Now())
	return &view, nil
}

func (s *CapsuleService) Delete(ctx context.Context, ownerID, capsuleID uuid.UUID) error {
	if err := s.capsules.Delete(ctx, capsuleID, ownerID); err != nil {
		if errors.Is(err, domain.ErrCapsuleNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete capsule: %w", err)
	}
	slog.InfoContext(ctx, "Capsule deleted", "capsule_id", capsuleID, "owner_id", ownerID)
	return nil
}

// Journey summarises the reflections collected for a revealed capsule.
func (s *CapsuleService) Journey(ctx context.Context, ownerID, capsuleID uuid.UUID) (*Journey, error) {
	c, err := s.ownedCapsule(ctx, ownerID, capsuleID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if !domain.IsEffectivelyRevealed(c, now) {
		return nil, domain.ErrCapsuleNotRevealed
	}

	responses, err := s.responses.ListByCapsule(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}

	return &Journey{
		Capsule:   viewOf(c, now),
		Summary:   reflection.Summarize(c, responses),
		Responses: responses,
	}, nil
}

// UpdateProfile records where reveal notifications for the user are sent.
func (s *CapsuleService) UpdateProfile(ctx context.Context, userID uuid.UUID, email, displayName string) (*domain.User, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, apperrors.ValidationError("email address is invalid").WithField("field", "email")
	}

	user, err := s.users.Upsert(ctx, userID, addr.Address, strings.TrimSpace(displayName))
	if err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}
	return user, nil
}

func (s *CapsuleService) ownedCapsule(ctx context.Context, ownerID, capsuleID uuid.UUID) (*domain.Capsule, error) {
	c, err := s.capsules.GetByID(ctx, capsuleID)
	if errors.Is(err, domain.ErrCapsuleNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get capsule: %w", err)
	}
	if c.OwnerID != ownerID {
		return nil, domain.ErrCapsuleNotFound
	}
	return c, nil
}

func viewOf(c *domain.Capsule, now time.Time) CapsuleView {
	view := CapsuleView{Capsule: *c, Revealed: domain.IsEffectivelyRevealed(c, now)}
	if !view.Revealed {
		view.Message = ""
		view.MediaRefs = nil
	}
	return view
}
