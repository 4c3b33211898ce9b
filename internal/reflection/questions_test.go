package reflection

import (
	"testing"

	"github.com/pscheid92/timecapsule/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectQuestion_Deterministic(t *testing.T) {
	for _, class := range domain.SentimentLabels {
		for i := range 12 {
			assert.Equal(t, SelectQuestion(class, i), SelectQuestion(class, i))
		}
	}
}

func TestSelectQuestion_WrapsAround(t *testing.T) {
	for _, class := range domain.SentimentLabels {
		assert.Equal(t, SelectQuestion(class, 0), SelectQuestion(class, bankSize))
		assert.Equal(t, SelectQuestion(class, 2), SelectQuestion(class, bankSize+2))
	}
}

func TestSelectQuestion_DistinctWithinBank(t *testing.T) {
	for _, class := range domain.SentimentLabels {
		seen := make(map[string]struct{})
		for i := range bankSize {
			seen[SelectQuestion(class, i)] = struct{}{}
		}
		assert.Len(t, seen, bankSize, "bank %s", class)
	}
}

func TestSelectQuestion_UnknownClassUsesNeutral(t *testing.T) {
	assert.Equal(t, SelectQuestion(domain.SentimentNeutral, 1), SelectQuestion("mixed", 1))
}

func TestSelectQuestion_FirstQuestions(t *testing.T) {
	assert.Equal(t, "What are you grateful for today?", SelectQuestion(domain.SentimentPositive, 0))
	assert.Equal(t, "What's a challenge you're currently facing?", SelectQuestion(domain.SentimentNegative, 0))
}

func TestLoadBanks_RejectsShortBank(t *testing.T) {
	_, err := loadBanks([]byte(`
positive: [a, b, c, d, e]
neutral: [a, b, c, d, e]
negative: [a, b]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"negative" has 2 questions`)
}

func TestLoadBanks_RejectsInvalidYAML(t *testing.T) {
	_, err := loadBanks([]byte("positive: [unterminated"))
	require.Error(t, err)
}
