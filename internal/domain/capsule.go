package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Capsule struct {
	ID               uuid.UUID
	OwnerID          uuid.UUID
	Message          string
	MediaRefs        []string
	CreatedAt        time.Time
	RevealAt         time.Time
	IsRevealed       bool
	RevealedAt       *time.Time
	InitialSentiment *Sentiment
}

// IsEffectivelyRevealed reports whether the capsule's content may be shown at now.
// The stored flag lags the reveal time until the next sweep, so both are consulted.
func IsEffectivelyRevealed(c *Capsule, now time.Time) bool {
	return c.IsRevealed || !now.Before(c.RevealAt)
}

type CapsuleRepository interface {
	Create(ctx context.Context, c *Capsule) error
	GetByID(ctx context.Context, capsuleID uuid.UUID) (*Capsule, error)
	// ListByOwner returns all of the owner's capsules, newest first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Capsule, error)
	// ListActiveByOwner returns unrevealed capsules with after < revealAt <= until, newest first.
	ListActiveByOwner(ctx context.Context, ownerID uuid.UUID, after, until time.Time) ([]*Capsule, error)
	// ListDue returns unrevealed capsules whose revealAt is at or before now.
	ListDue(ctx context.Context, now time.Time) ([]*Capsule, error)
	// MarkRevealed flips isRevealed only if it is still false and revealAt <= now.
	// It reports false when no row was changed.
	MarkRevealed(ctx context.Context, capsuleID uuid.UUID, now time.Time) (bool, error)
	Delete(ctx context.Context, capsuleID, ownerID uuid.UUID) error
}
