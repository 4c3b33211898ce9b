package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pscheid92/timecapsule/internal/domain"
)

// --- Mock implementations ---

type mockCapsuleRepo struct {
	createFn            func(ctx context.Context, c *domain.Capsule) error
	getByIDFn           func(ctx context.Context, capsuleID uuid.UUID) (*domain.Capsule, error)
	listByOwnerFn       func(ctx context.Context, ownerID uuid.UUID) ([]*domain.Capsule, error)
	listActiveByOwnerFn func(ctx context.Context, ownerID uuid.UUID, after, until time.Time) ([]*domain.Capsule, error)
	listDueFn           func(ctx context.Context, now time.Time) ([]*domain.Capsule, error)
	markRevealedFn      func(ctx context.Context, capsuleID uuid.UUID, now time.Time) (bool, error)
	deleteFn            func(ctx context.Context, capsuleID, ownerID uuid.UUID) error
}

func (m *mockCapsuleRepo) Create(ctx context.Context, c *domain.Capsule) error {
	if m.createFn != nil {
		return m.createFn(ctx, c)
	}
	return errors.New("not implemented")
}

func (m *mockCapsuleRepo) GetByID(ctx context.Context, capsuleID uuid.UUID) (*domain.Capsule, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, capsuleID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockCapsuleRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Capsule, error) {
	if m.listByOwnerFn != nil {
		return m.listByOwnerFn(ctx, ownerID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockCapsuleRepo) ListActiveByOwner(ctx context.Context, ownerID uuid.UUID, after, until time.Time) ([]*domain.Capsule, error) {
	if m.listActiveByOwnerFn != nil {
		return m.listActiveByOwnerFn(ctx, ownerID, after, until)
	}
	return nil, errors.New("not implemented")
}

func (m *mockCapsuleRepo) ListDue(ctx context.Context, now time.Time) ([]*domain.Capsule, error) {
	if m.listDueFn != nil {
		return m.listDueFn(ctx, now)
	}
	return nil, errors.New("not implemented")
}

func (m *mockCapsuleRepo) MarkRevealed(ctx context.Context, capsuleID uuid.UUID, now time.Time) (bool, error) {
	if m.markRevealedFn != nil {
		return m.markRevealedFn(ctx, capsuleID, now)
	}
	return false, errors.New("not implemented")
}

func (m *mockCapsuleRepo) Delete(ctx context.Context, capsuleID, ownerID uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, capsuleID, ownerID)
	}
	return errors.New("not implemented")
}

type mockResponseRepo struct {
	createFn                func(ctx context.Context, r *domain.Response) error
	listByCapsuleFn         func(ctx context.Context, capsuleID uuid.UUID) ([]*domain.Response, error)
	countByCapsuleFn        func(ctx context.Context, capsuleID uuid.UUID) (int, error)
	existsForOwnerBetweenFn func(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (bool, error)
}

func (m *mockResponseRepo) Create(ctx context.Context, r *domain.Response) error {
	if m.createFn != nil {
		return m.createFn(ctx, r)
	}
	return errors.New("not implemented")
}

func (m *mockResponseRepo) ListByCapsule(ctx context.Context, capsuleID uuid.UUID) ([]*domain.Response, error) {
	if m.listByCapsuleFn != nil {
		return m.listByCapsuleFn(ctx, capsuleID)
	}
	return nil, nil
}

func (m *mockResponseRepo) CountByCapsule(ctx context.Context, capsuleID uuid.UUID) (int, error) {
	if m.countByCapsuleFn != nil {
		return m.countByCapsuleFn(ctx, capsuleID)
	}
	return 0, nil
}

func (m *mockResponseRepo) ExistsForOwnerBetween(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (bool, error) {
	if m.existsForOwnerBetweenFn != nil {
		return m.existsForOwnerBetweenFn(ctx, ownerID, from, to)
	}
	return false, nil
}

type mockUserRepo struct {
	getByIDFn func(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	upsertFn  func(ctx context.Context, userID uuid.UUID, email, displayName string) (*domain.User, error)
}

func (m *mockUserRepo) GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, userID)
	}
	return &domain.User{ID: userID, Email: "owner@example.com", DisplayName: "Owner"}, nil
}

func (m *mockUserRepo) Upsert(ctx context.Context, userID uuid.UUID, email, displayName string) (*domain.User, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, userID, email, displayName)
	}
	return nil, errors.New("not implemented")
}

type mockClassifier struct {
	analyzeFn func(ctx context.Context, text string) (domain.Sentiment, error)
	calls     int
}

func (m *mockClassifier) Analyze(ctx context.Context, text string) (domain.Sentiment, error) {
	m.calls++
	if m.analyzeFn != nil {
		return m.analyzeFn(ctx, text)
	}
	return domain.Sentiment{}, domain.ErrClassifierUnavailable
}

func classifierReturning(label domain.SentimentLabel) *mockClassifier {
	return &mockClassifier{analyzeFn: func(context.Context, string) (domain.Sentiment, error) {
		return domain.Sentiment{Label: label, Score: 0.9}, nil
	}}
}

type mockNotifier struct {
	mu     sync.Mutex
	sendFn func(ctx context.Context, n domain.RevealNotification) error
	sent   []domain.RevealNotification
}

func (m *mockNotifier) Send(ctx context.Context, n domain.RevealNotification) error {
	if m.sendFn != nil {
		if err := m.sendFn(ctx, n); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return nil
}

func (m *mockNotifier) getSent() []domain.RevealNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.RevealNotification, len(m.sent))
	copy(out, m.sent)
	return out
}

type confirmFunc func(ctx context.Context, prompt string) bool

func (f confirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }
