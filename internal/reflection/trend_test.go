package reflection

import (
	"testing"

	"github.com/google/uuid"
	"github.com/pscheid92/timecapsule/internal/domain"
	"github.com/stretchr/testify/assert"
)

func responsesWith(labels ...domain.SentimentLabel) []*domain.Response {
	out := make([]*domain.Response, 0, len(labels))
	for i, label := range labels {
		r := &domain.Response{ID: uuid.New(), QuestionDate: days(i)}
		if label != "" {
			r.ResponseSentiment = &domain.Sentiment{Label: label, Score: 0.9}
		}
		out = append(out, r)
	}
	return out
}

func capsuleWith(initial domain.SentimentLabel) *domain.Capsule {
	c := &domain.Capsule{ID: uuid.New(), CreatedAt: day0, RevealAt: days(30)}
	if initial != "" {
		c.InitialSentiment = &domain.Sentiment{Label: initial, Score: 0.8}
	}
	return c
}

func TestSummarize_NoResponses(t *testing.T) {
	for _, initial := range domain.SentimentLabels {
		got := Summarize(capsuleWith(initial), nil)

		assert.Equal(t, noReflectionsNarrative, got.Narrative)
		assert.Equal(t, domain.SentimentNeutral, got.DominantSentiment)
		assert.Equal(t, initial, got.InitialSentiment)
		assert.Equal(t, 0, got.ResponseCount)
	}
}

func TestSummarize_DominantAndCounts(t *testing.T) {
	got := Summarize(capsuleWith(domain.SentimentNegative), responsesWith(
		domain.SentimentPositive, domain.SentimentPositive, domain.SentimentNegative, domain.SentimentNeutral,
	))

	assert.Equal(t, domain.SentimentPositive, got.DominantSentiment)
	assert.Equal(t, domain.SentimentNegative, got.InitialSentiment)
	assert.Equal(t, domain.SentimentCounts{Positive: 2, Neutral: 1, Negative: 1}, got.Counts)
	assert.Equal(t, 4, got.ResponseCount)
	assert.Contains(t, got.Narrative, "remarkable shift")
}

func TestSummarize_MissingSentimentCountsAsNeutral(t *testing.T) {
	got := Summarize(capsuleWith(""), responsesWith("", "", domain.SentimentNegative, "garbage"))

	assert.Equal(t, domain.SentimentNeutral, got.DominantSentiment)
	assert.Equal(t, domain.SentimentNeutral, got.InitialSentiment)
	assert.Equal(t, 3, got.Counts.Neutral)
}

func TestSummarize_TieBreak(t *testing.T) {
	tests := []struct {
		name   string
		labels []domain.SentimentLabel
		want   domain.SentimentLabel
	}{
		{"positive beats neutral", []domain.SentimentLabel{domain.SentimentNeutral, domain.SentimentPositive}, domain.SentimentPositive},
		{"positive beats negative", []domain.SentimentLabel{domain.SentimentNegative, domain.SentimentPositive}, domain.SentimentPositive},
		{"neutral beats negative", []domain.SentimentLabel{domain.SentimentNegative, domain.SentimentNeutral}, domain.SentimentNeutral},
		{"three-way tie", []domain.SentimentLabel{domain.SentimentNegative, domain.SentimentNeutral, domain.SentimentPositive}, domain.SentimentPositive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(capsuleWith(domain.SentimentNeutral), responsesWith(tt.labels...))
			assert.Equal(t, tt.want, got.DominantSentiment)
		})
	}
}

func TestSummarize_NarrativeTableComplete(t *testing.T) {
	seen := make(map[string]struct{})
	for _, initial := range domain.SentimentLabels {
		for _, dominant := range domain.SentimentLabels {
			got := Summarize(capsuleWith(initial), responsesWith(dominant))
			assert.NotEmpty(t, got.Narrative)
			seen[got.Narrative] = struct{}{}
		}
	}
	assert.Len(t, seen, 9)
}

func TestSummarize_PositiveNoteStablePerCapsule(t *testing.T) {
	c := capsuleWith(domain.SentimentPositive)
	first := Summarize(c, responsesWith(domain.SentimentPositive))
	second := Summarize(c, responsesWith(domain.SentimentNegative, domain.SentimentNegative))

	assert.Equal(t, first.PositiveNote, second.PositiveNote)
	assert.Contains(t, positiveNotes, first.PositiveNote)
}
