package reflection

import (
	"fmt"
	"time"

	"github.com/pscheid92/timecapsule/internal/domain"
)

// Cadence describes how often and how many times reflection questions are asked.
type Cadence struct {
	FrequencyDays int
	MaxQuestions  int
}

func (c Cadence) String() string {
	return fmt.Sprintf("every %d days, up to %d questions", c.FrequencyDays, c.MaxQuestions)
}

// CadenceFor returns the cadence for a sentiment class. Negative capsules are
// checked on more often and more times.
func CadenceFor(class domain.SentimentLabel) Cadence {
	if class == domain.SentimentNegative {
		return Cadence{FrequencyDays: 3, MaxQuestions: 8}
	}
	return Cadence{FrequencyDays: 7, MaxQuestions: 4}
}

// GenerateSchedule returns the instants at which reflection questions fall due
// for a capsule. The first slot is one period after createdAt; slots never pass
// revealAt and never exceed the class cap. Periods are whole 24-hour days,
// independent of the location createdAt carries.
func GenerateSchedule(createdAt, revealAt time.Time, class domain.SentimentLabel) []time.Time {
	cadence := CadenceFor(class)
	createdAt = createdAt.UTC()

	var slots []time.Time
	for n := 1; n <= cadence.MaxQuestions; n++ {
		candidate := createdAt.AddDate(0, 0, n*cadence.FrequencyDays)
		if candidate.After(revealAt) {
			break
		}
		slots = append(slots, candidate)
	}
	return slots
}

// SlotOn reports whether schedule has a slot on the given calendar day (as returned by Day).
func SlotOn(schedule []time.Time, day time.Time, loc *time.Location) bool {
	for _, slot := range schedule {
		if Day(slot, loc).Equal(day) {
			return true
		}
	}
	return false
}
