package sentiment

import (
	"context"
	"log/slog"

	"github.com/pscheid92/timecapsule/internal/domain"
)

// FallbackClassifier asks primary first and answers from fallback when primary fails.
type FallbackClassifier struct {
	primary  domain.SentimentClassifier
	fallback domain.SentimentClassifier
}

var _ domain.SentimentClassifier = (*FallbackClassifier)(nil)

func NewFallbackClassifier(primary, fallback domain.SentimentClassifier) *FallbackClassifier {
	return &FallbackClassifier{primary: primary, fallback: fallback}
}

func (c *FallbackClassifier) Analyze(ctx context.Context, text string) (domain.Sentiment, error) {
	s, err := c.primary.Analyze(ctx, text)
	if err == nil {
		return s, nil
	}
	slog.WarnContext(ctx, "Primary sentiment classifier failed, using fallback", "error", err)
	return c.fallback.Analyze(ctx, text)
}
