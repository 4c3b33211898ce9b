package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/pscheid92/timecapsule/internal/domain"
	"github.com/pscheid92/timecapsule/internal/platform/breaker"
	"github.com/pscheid92/timecapsule/internal/platform/retry"
)

const (
	httpCallTimeout    = 10 * time.Second
	maxErrorBodyLength = 512
	breakerComponent   = "email"
	revealDateLayout   = "January 2, 2006"
)

// EmailConfig configures an EmailSender.
type EmailConfig struct {
	Endpoint string
	APIKey   string
	From     string
	AppURL   string
	Location *time.Location
	Retry    retry.Policy
}

// DefaultRetryPolicy retries transient email API failures a few times.
func DefaultRetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:      3,
		InitialBackoff:   time.Second,
		RateLimitBackoff: 5 * time.Second,
		MaxBackoff:       10 * time.Second,
	}
}

// EmailSender delivers reveal notifications through a transactional email API
// that accepts {from, to, subject, html, text} JSON (Resend-compatible).
type EmailSender struct {
	cfg    EmailConfig
	client *http.Client
	cb     circuitbreaker.CircuitBreaker[any]
}

var _ domain.NotificationSender = (*EmailSender)(nil)

func NewEmailSender(cfg EmailConfig) *EmailSender {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry = DefaultRetryPolicy()
	}
	return &EmailSender{
		cfg:    cfg,
		client: &http.Client{Timeout: httpCallTimeout},
		cb:     breaker.New(breakerComponent, breaker.DefaultDelay),
	}
}

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

type emailView struct {
	Name       string
	RevealDate string
	CapsuleURL string
	Summary    domain.TrendSummary
}

func (s *EmailSender) Send(ctx context.Context, n domain.RevealNotification) error {
	if strings.TrimSpace(n.Recipient) == "" {
		return fmt.Errorf("capsule %s: owner has no email address", n.CapsuleID)
	}

	text, html, err := render(s.viewOf(n))
	if err != nil {
		return err
	}
	body, err := json.Marshal(emailRequest{
		From:    s.cfg.From,
		To:      []string{n.Recipient},
		Subject: revealSubject,
		HTML:    html,
		Text:    text,
	})
	if err != nil {
		return fmt.Errorf("failed to encode email: %w", err)
	}

	p := s.cfg.Retry
	p.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.WarnContext(ctx, "Reveal email failed, retrying", "capsule_id", n.CapsuleID, "attempt", attempt, "backoff_seconds", backoff.Seconds(), "error", err)
	}

	if err := retry.DoVoid(ctx, p, classifyEmailError, func() error { return s.post(ctx, body) }); err != nil {
		return fmt.Errorf("failed to send reveal email: %w", err)
	}

	slog.InfoContext(ctx, "Reveal email sent", "capsule_id", n.CapsuleID)
	return nil
}

func (s *EmailSender) viewOf(n domain.RevealNotification) emailView {
	return emailView{
		Name:       greetingName(n.DisplayName, n.Recipient),
		RevealDate: n.RevealAt.In(s.cfg.Location).Format(revealDateLayout),
		CapsuleURL: strings.TrimRight(s.cfg.AppURL, "/") + "/capsules",
		Summary:    n.Summary,
	}
}

func (s *EmailSender) post(ctx context.Context, body []byte) error {
	if !s.cb.TryAcquirePermit() {
		return fmt.Errorf("email circuit breaker open: %w", circuitbreaker.ErrOpen)
	}

	err := s.doPost(ctx, body)
	if err != nil {
		s.cb.RecordError(err)
		return err
	}
	s.cb.RecordSuccess()
	return nil
}

func (s *EmailSender) doPost(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLength))
		return &retry.StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// classifyEmailError gives up at once while the breaker is open.
func classifyEmailError(err error) retry.Action {
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return retry.Stop
	}
	return retry.ClassifyStatus(err)
}

func render(v emailView) (text, html string, err error) {
	var tb, hb bytes.Buffer
	if err := revealTextTemplate.Execute(&tb, v); err != nil {
		return "", "", fmt.Errorf("failed to render text email: %w", err)
	}
	if err := revealHTMLTemplate.Execute(&hb, v); err != nil {
		return "", "", fmt.Errorf("failed to render html email: %w", err)
	}
	return tb.String(), hb.String(), nil
}

// greetingName prefers the display name, then the local part of the address.
func greetingName(displayName, email string) string {
	if name := strings.TrimSpace(displayName); name != "" {
		return name
	}
	if local, _, ok := strings.Cut(email, "@"); ok && local != "" {
		return local
	}
	return "there"
}
