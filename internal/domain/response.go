package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Response is one answered reflection question. QuestionDate is the calendar
// date of the schedule slot, stored as midnight UTC.
type Response struct {
	ID                uuid.UUID
	CapsuleID         uuid.UUID
	OwnerID           uuid.UUID
	QuestionText      string
	QuestionDate      time.Time
	ResponseText      string
	ResponseSentiment *Sentiment
	CreatedAt         time.Time
}

type ResponseRepository interface {
	// Create returns ErrDuplicateResponse when the capsule already has a response for QuestionDate.
	Create(ctx context.Context, r *Response) error
	// ListByCapsule returns responses ordered by QuestionDate ascending.
	ListByCapsule(ctx context.Context, capsuleID uuid.UUID) ([]*Response, error)
	CountByCapsule(ctx context.Context, capsuleID uuid.UUID) (int, error)
	// ExistsForOwnerBetween reports whether the owner created any response in [from, to).
	ExistsForOwnerBetween(ctx context.Context, ownerID uuid.UUID, from, to time.Time) (bool, error)
}
