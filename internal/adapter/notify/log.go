package notify

import (
	"context"
	"log/slog"

	"github.com/pscheid92/timecapsule/internal/domain"
)

// LogSender writes reveal notifications to the log instead of delivering them.
// Used when no email API key is configured.
type LogSender struct{}

var _ domain.NotificationSender = LogSender{}

func (LogSender) Send(ctx context.Context, n domain.RevealNotification) error {
	slog.InfoContext(ctx, "Reveal notification (not delivered)",
		"capsule_id", n.CapsuleID,
		"recipient", n.Recipient,
		"reveal_at", n.RevealAt,
		"dominant_sentiment", n.Summary.DominantSentiment,
		"response_count", n.Summary.ResponseCount,
	)
	return nil
}

// NewSender returns an EmailSender, or a LogSender when no API key is configured.
func NewSender(cfg EmailConfig) domain.NotificationSender {
	if cfg.APIKey == "" {
		return LogSender{}
	}
	return NewEmailSender(cfg)
}
