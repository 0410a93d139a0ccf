package scoring

import (
	"math"

	"live-quiz-service/internal/domain"
)

const (
	bonusBase  = 500
	bonusFloor = 100
	bonusScale = 1000.0
)

// Closest is the number answer nearest to the correct value.
type Closest struct {
	Answer     domain.Answer
	Difference float64
}

// ClosestNumberAnswer picks the parseable answer with the smallest absolute
// difference from correct. Ties go to the earliest AnsweredAt, then the lowest id.
// It reports false when correct is not a number or no answer parses.
func ClosestNumberAnswer(correct string, answers []domain.Answer) (Closest, bool) {
	want, ok := ParseNumber(correct)
	if !ok {
		return Closest{}, false
	}

	var best Closest
	found := false
	for _, a := range answers {
		got, ok := ParseNumber(a.Answer)
		if !ok {
			continue
		}
		diff := math.Abs(got - want)
		if !found || closer(diff, a, best) {
			best = Closest{Answer: a, Difference: diff}
			found = true
		}
	}
	return best, found
}

func closer(diff float64, a domain.Answer, best Closest) bool {
	if diff != best.Difference {
		return diff < best.Difference
	}
	if !a.AnsweredAt.Equal(best.Answer.AnsweredAt) {
		return a.AnsweredAt.Before(best.Answer.AnsweredAt)
	}
	return a.ID < best.Answer.ID
}

// BonusPoints is the award for the closest wrong guess: 500 scaled down by
// difference/1000, never below 100.
func BonusPoints(difference float64) int {
	points := int(math.Round(bonusBase * (1 - difference/bonusScale)))
	if points < bonusFloor {
		return bonusFloor
	}
	return points
}
