package reflection

import (
	_ "embed"
	"fmt"

	"github.com/pscheid92/timecapsule/internal/domain"
	"gopkg.in/yaml.v3"
)

const bankSize = 5

//go:embed questions.yaml
var questionsYAML []byte

type questionBanks struct {
	Positive []string `yaml:"positive"`
	Neutral  []string `yaml:"neutral"`
	Negative []string `yaml:"negative"`
}

var banks = mustLoadBanks(questionsYAML)

func mustLoadBanks(data []byte) map[domain.SentimentLabel][]string {
	b, err := loadBanks(data)
	if err != nil {
		panic(err)
	}
	return b
}

func loadBanks(data []byte) (map[domain.SentimentLabel][]string, error) {
	var qb questionBanks
	if err := yaml.Unmarshal(data, &qb); err != nil {
		return nil, fmt.Errorf("failed to parse question banks: %w", err)
	}

	out := map[domain.SentimentLabel][]string{
		domain.SentimentPositive: qb.Positive,
		domain.SentimentNeutral:  qb.Neutral,
		domain.SentimentNegative: qb.Negative,
	}
	for label, bank := range out {
		if len(bank) != bankSize {
			return nil, fmt.Errorf("question bank %q has %d questions, want %d", label, len(bank), bankSize)
		}
		for i, q := range bank {
			if q == "" {
				return nil, fmt.Errorf("question bank %q: question %d is empty", label, i)
			}
		}
	}
	return out, nil
}

// SelectQuestion returns the question shown for the ordinal-th slot of a capsule
// with the given sentiment class. Ordinals past the end of the bank wrap around.
func SelectQuestion(class domain.SentimentLabel, ordinal int) string {
	bank := banks[domain.ParseSentimentLabel(string(class))]
	idx := ordinal % len(bank)
	if idx < 0 {
		idx += len(bank)
	}
	return bank[idx]
}
