package sentiment

import (
	"context"
	"strings"
	"unicode"

	"github.com/pscheid92/timecapsule/internal/domain"
	"github.com/pscheid92/timecapsule/internal/metrics"
)

var (
	positiveWords = wordSet("happy", "good", "great", "excellent", "wonderful", "joy", "pleased", "delighted", "glad")
	negativeWords = wordSet("sad", "bad", "terrible", "awful", "unhappy", "disappointed", "upset", "angry", "depressed")
)

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// KeywordClassifier counts known positive and negative words. It never fails.
type KeywordClassifier struct{}

var _ domain.SentimentClassifier = KeywordClassifier{}

func (KeywordClassifier) Analyze(_ context.Context, text string) (domain.Sentiment, error) {
	s := classifyKeywords(text)
	metrics.ClassificationsTotal.WithLabelValues("keyword", string(s.Label)).Inc()
	return s, nil
}

func classifyKeywords(text string) domain.Sentiment {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})

	var pos, neg int
	for _, w := range words {
		if _, ok := positiveWords[w]; ok {
			pos++
		}
		if _, ok := negativeWords[w]; ok {
			neg++
		}
	}

	total := float64(pos + neg)
	switch {
	case pos > neg:
		return domain.Sentiment{Label: domain.SentimentPositive, Score: 0.5 + float64(pos)/total*0.5}
	case neg > pos:
		return domain.Sentiment{Label: domain.SentimentNegative, Score: 0.5 + float64(neg)/total*0.5}
	default:
		return domain.Sentiment{Label: domain.SentimentNeutral, Score: 0.5}
	}
}
