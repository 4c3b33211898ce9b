package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/pscheid92/timecapsule/internal/domain"
	"github.com/pscheid92/timecapsule/internal/metrics"
	"github.com/pscheid92/timecapsule/internal/platform/breaker"
	"github.com/pscheid92/timecapsule/internal/platform/retry"
)

const (
	maxInputRunes      = 2000
	httpCallTimeout    = 10 * time.Second
	maxErrorBodyLength = 512
	breakerComponent   = "sentiment"
)

// HTTPClassifier calls a hosted classification model speaking the Hugging Face
// inference format: {"inputs": text} in, [[{"label", "score"}, ...]] out.
type HTTPClassifier struct {
	endpoint string
	apiKey   string
	client   *http.Client
	cb       circuitbreaker.CircuitBreaker[any]
}

var _ domain.SentimentClassifier = (*HTTPClassifier)(nil)

func NewHTTPClassifier(endpoint, apiKey string) *HTTPClassifier {
	return &HTTPClassifier{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: httpCallTimeout},
		cb:       breaker.New(breakerComponent, breaker.DefaultDelay),
	}
}

type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Analyze classifies text. Any failure, including an open breaker, is reported
// as domain.ErrClassifierUnavailable.
func (c *HTTPClassifier) Analyze(ctx context.Context, text string) (domain.Sentiment, error) {
	if !c.cb.TryAcquirePermit() {
		metrics.ClassificationsTotal.WithLabelValues("http", "breaker_open").Inc()
		return domain.Sentiment{}, fmt.Errorf("%w: %w", domain.ErrClassifierUnavailable, circuitbreaker.ErrOpen)
	}

	start := time.Now()
	s, err := c.classify(ctx, truncateRunes(strings.TrimSpace(text), maxInputRunes))
	metrics.ClassifierDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		c.cb.RecordError(err)
		metrics.ClassificationsTotal.WithLabelValues("http", "error").Inc()
		return domain.Sentiment{}, fmt.Errorf("%w: %w", domain.ErrClassifierUnavailable, err)
	}
	c.cb.RecordSuccess()
	metrics.ClassificationsTotal.WithLabelValues("http", string(s.Label)).Inc()
	return s, nil
}

func (c *HTTPClassifier) classify(ctx context.Context, text string) (domain.Sentiment, error) {
	body, err := json.Marshal(inferenceRequest{Inputs: text})
	if err != nil {
		return domain.Sentiment{}, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Sentiment{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Sentiment{}, fmt.Errorf("classification request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Sentiment{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.Sentiment{}, &retry.StatusError{StatusCode: resp.StatusCode, Body: truncateRunes(string(raw), maxErrorBodyLength)}
	}

	scores, err := decodeScores(raw)
	if err != nil {
		return domain.Sentiment{}, err
	}
	return topLabel(scores)
}

// decodeScores accepts both the nested [[...]] shape and a flat [...] list.
func decodeScores(raw []byte) ([]labelScore, error) {
	var nested [][]labelScore
	if err := json.Unmarshal(raw, &nested); err == nil {
		if len(nested) == 0 {
			return nil, nil
		}
		return nested[0], nil
	}

	var flat []labelScore
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("failed to decode classification response: %w", err)
	}
	return flat, nil
}

func topLabel(scores []labelScore) (domain.Sentiment, error) {
	if len(scores) == 0 {
		return domain.Sentiment{}, fmt.Errorf("classification response contained no labels")
	}

	best := scores[0]
	for _, s := range scores[1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	return domain.Sentiment{
		Label: domain.ParseSentimentLabel(strings.ToLower(best.Label)),
		Score: best.Score,
	}, nil
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
