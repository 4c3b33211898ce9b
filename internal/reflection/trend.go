package reflection

import (
	"hash/fnv"

	"github.com/pscheid92/timecapsule/internal/domain"
)

const (
	noReflectionsNarrative = "No reflection responses were collected during the time capsule period."
	noReflectionsNote      = "Self-reflection is a valuable practice. Consider creating more time capsules to track your emotional journey."
)

type narrativeKey struct {
	initial  domain.SentimentLabel
	dominant domain.SentimentLabel
}

var narratives = map[narrativeKey]string{
	{domain.SentimentPositive, domain.SentimentPositive}: "Throughout this period, your responses maintained a consistently positive outlook, reflecting continued optimism and good spirits.",
	{domain.SentimentNegative, domain.SentimentPositive}: "Your journey shows a remarkable shift from initial concerns to predominantly positive reflections, suggesting personal growth and emotional resilience.",
	{domain.SentimentNeutral, domain.SentimentPositive}:  "Your reflections evolved into a largely positive perspective over time, showing an upward trend in your emotional well-being.",

	{domain.SentimentPositive, domain.SentimentNegative}: "While you began with optimism, you faced some challenges during this period. Remember that emotional fluctuations are normal parts of life's journey.",
	{domain.SentimentNegative, domain.SentimentNegative}: "You've been navigating some persistent challenges. Your consistent self-reflection shows strength and commitment to self-awareness.",
	{domain.SentimentNeutral, domain.SentimentNegative}:  "Your reflections reveal some emotional challenges during this period. The practice of regular reflection itself is a powerful tool for working through difficult feelings.",

	{domain.SentimentPositive, domain.SentimentNeutral}: "Starting from a positive outlook, your journey settled into a balanced, thoughtful perspective throughout this period.",
	{domain.SentimentNegative, domain.SentimentNeutral}: "From initial concerns, your reflections show movement toward a more balanced perspective, suggesting adaptation and emotional processing.",
	{domain.SentimentNeutral, domain.SentimentNeutral}:  "Your reflections maintained a balanced, thoughtful perspective throughout this period, showing consistent emotional equilibrium.",
}

var positiveNotes = []string{
	"Remember that self-reflection is a powerful tool for personal growth. Keep nurturing this practice.",
	"Your commitment to reflection shows incredible self-awareness. This mindfulness will continue to serve you well.",
	"Every moment of reflection is a step toward greater self-understanding. You're on a meaningful journey.",
	"The insights you've gained through reflection are valuable treasures that will guide your future path.",
	"By looking inward regularly, you've demonstrated remarkable emotional intelligence and personal strength.",
}

// Summarize condenses a capsule's reflection responses into a TrendSummary.
// responses are expected in question-date order; only their sentiments matter.
func Summarize(capsule *domain.Capsule, responses []*domain.Response) domain.TrendSummary {
	initial := domain.LabelOf(capsule.InitialSentiment)

	if len(responses) == 0 {
		return domain.TrendSummary{
			DominantSentiment: domain.SentimentNeutral,
			InitialSentiment:  initial,
			Narrative:         noReflectionsNarrative,
			PositiveNote:      noReflectionsNote,
		}
	}

	var counts domain.SentimentCounts
	for _, r := range responses {
		switch domain.LabelOf(r.ResponseSentiment) {
		case domain.SentimentPositive:
			counts.Positive++
		case domain.SentimentNegative:
			counts.Negative++
		default:
			counts.Neutral++
		}
	}

	dominant := dominantLabel(counts)
	return domain.TrendSummary{
		DominantSentiment: dominant,
		InitialSentiment:  initial,
		Narrative:         narratives[narrativeKey{initial: initial, dominant: dominant}],
		PositiveNote:      positiveNoteFor(capsule),
		Counts:            counts,
		ResponseCount:     len(responses),
	}
}

// dominantLabel picks the label with the strictly highest count. Ties go to the
// label that comes first in domain.SentimentLabels (positive, neutral, negative).
func dominantLabel(c domain.SentimentCounts) domain.SentimentLabel {
	best := domain.SentimentLabels[0]
	bestCount := -1
	for _, label := range domain.SentimentLabels {
		n := countOf(c, label)
		if n > bestCount {
			best, bestCount = label, n
		}
	}
	return best
}

func countOf(c domain.SentimentCounts, label domain.SentimentLabel) int {
	switch label {
	case domain.SentimentPositive:
		return c.Positive
	case domain.SentimentNegative:
		return c.Negative
	default:
		return c.Neutral
	}
}

func positiveNoteFor(capsule *domain.Capsule) string {
	h := fnv.New32a()
	_, _ = h.Write(capsule.ID[:])
	return positiveNotes[h.Sum32()%uint32(len(positiveNotes))]
}
