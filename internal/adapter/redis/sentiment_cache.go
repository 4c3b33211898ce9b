package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pscheid92/timecapsule/internal/domain"
	"github.com/pscheid92/timecapsule/internal/metrics"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const sentimentKeyPrefix = "sentiment:v1:"

// CachingClassifier memoises classifier results in Redis, keyed by a digest of
// the text. Concurrent lookups for the same text share one upstream call. Redis
// failures fall through to the wrapped classifier.
type CachingClassifier struct {
	rdb   goredis.Cmdable
	next  domain.SentimentClassifier
	ttl   time.Duration
	group singleflight.Group
}

var _ domain.SentimentClassifier = (*CachingClassifier)(nil)

func NewCachingClassifier(rdb goredis.Cmdable, next domain.SentimentClassifier, ttl time.Duration) *CachingClassifier {
	return &CachingClassifier{rdb: rdb, next: next, ttl: ttl}
}

func sentimentKey(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return sentimentKeyPrefix + hex.EncodeToString(sum[:])
}

func (c *CachingClassifier) Analyze(ctx context.Context, text string) (domain.Sentiment, error) {
	key := sentimentKey(text)

	if s, ok := c.lookup(ctx, key); ok {
		return s, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		s, err := c.next.Analyze(ctx, text)
		if err != nil {
			return nil, err
		}
		c.store(ctx, key, s)
		return s, nil
	})
	if err != nil {
		return domain.Sentiment{}, err
	}
	return v.(domain.Sentiment), nil
}

func (c *CachingClassifier) lookup(ctx context.Context, key string) (domain.Sentiment, bool) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		metrics.SentimentCacheTotal.WithLabelValues("miss").Inc()
		return domain.Sentiment{}, false
	}
	if err != nil {
		metrics.SentimentCacheTotal.WithLabelValues("error").Inc()
		slog.WarnContext(ctx, "Sentiment cache read failed", "error", err)
		return domain.Sentiment{}, false
	}

	var s domain.Sentiment
	if err := json.Unmarshal(raw, &s); err != nil {
		metrics.SentimentCacheTotal.WithLabelValues("error").Inc()
		slog.WarnContext(ctx, "Sentiment cache entry corrupt", "key", key, "error", err)
		return domain.Sentiment{}, false
	}
	s.Label = domain.ParseSentimentLabel(string(s.Label))

	metrics.SentimentCacheTotal.WithLabelValues("hit").Inc()
	return s, true
}

func (c *CachingClassifier) store(ctx context.Context, key string, s domain.Sentiment) {
	raw, err := json.Marshal(s)
	if err != nil {
		slog.WarnContext(ctx, "Sentiment cache encode failed", "error", fmt.Errorf("marshal sentiment: %w", err))
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		metrics.SentimentCacheTotal.WithLabelValues("error").Inc()
		slog.WarnContext(ctx, "Sentiment cache write failed", "error", err)
	}
}
