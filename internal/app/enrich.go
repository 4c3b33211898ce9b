package app

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/pscheid92/timecapsule/internal/domain"
)

// minResponseLength is the trimmed length a response must exceed before it is classified.
const minResponseLength = 10

// classifyBestEffort returns nil when there is nothing to classify or the classifier fails.
// A missing sentiment never blocks the write that asked for it.
func classifyBestEffort(ctx context.Context, classifier domain.SentimentClassifier, text string) *domain.Sentiment {
	if classifier == nil || strings.TrimSpace(text) == "" {
		return nil
	}

	sentiment, err := classifier.Analyze(ctx, strings.TrimSpace(text))
	if err != nil {
		slog.WarnContext(ctx, "Sentiment classification failed, continuing without sentiment", "error", err)
		return nil
	}
	sentiment.Label = domain.ParseSentimentLabel(string(sentiment.Label))
	return &sentiment
}

func longEnoughToClassify(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) > minResponseLength
}
