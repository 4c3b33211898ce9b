package domain

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

type SentimentCounts struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// TrendSummary is the reflection journey computed when a capsule is revealed.
type TrendSummary struct {
	DominantSentiment SentimentLabel  `json:"dominant_sentiment"`
	InitialSentiment  SentimentLabel  `json:"initial_sentiment"`
	Narrative         string          `json:"narrative"`
	PositiveNote      string          `json:"positive_note"`
	Counts            SentimentCounts `json:"sentiment_counts"`
	ResponseCount     int             `json:"response_count"`
}

type RevealNotification struct {
	Recipient   string
	DisplayName string
	CapsuleID   uuid.UUID
	RevealAt    time.Time
	Summary     TrendSummary
}

type NotificationSender interface {
	Send(ctx context.Context, n RevealNotification) error
}

// Confirmer asks the capsule owner to approve a step before it proceeds.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

type MediaStore interface {
	// Put stores body and returns the URL under which it can be retrieved.
	Put(ctx context.Context, ownerID uuid.UUID, filename, contentType string, body io.Reader) (string, error)
}
