package domain

import (
	"context"
	"strings"
)

type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

// SentimentLabels lists every label in tie-break preference order.
var SentimentLabels = []SentimentLabel{SentimentPositive, SentimentNeutral, SentimentNegative}

// ParseSentimentLabel maps free-form classifier output to a label.
// Anything unrecognised is neutral.
func ParseSentimentLabel(s string) SentimentLabel {
	switch SentimentLabel(strings.ToLower(strings.TrimSpace(s))) {
	case SentimentPositive:
		return SentimentPositive
	case SentimentNegative:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

type Sentiment struct {
	Label SentimentLabel `json:"label"`
	Score float64        `json:"score"`
}

// LabelOf returns the label of s, or neutral when no sentiment was recorded.
func LabelOf(s *Sentiment) SentimentLabel {
	if s == nil {
		return SentimentNeutral
	}
	return ParseSentimentLabel(string(s.Label))
}

// SentimentClassifier turns free text into a sentiment. Implementations return
// ErrClassifierUnavailable (wrapped) when the backing model cannot be reached.
type SentimentClassifier interface {
	Analyze(ctx context.Context, text string) (Sentiment, error)
}
