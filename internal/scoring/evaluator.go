// Package scoring decides whether a submitted answer is correct and how many
// points it is worth. Everything here is pure: callers persist the results.
package scoring

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"live-quiz-service/internal/domain"
)

const (
	// MinPoints is awarded for a correct answer given at or after the deadline.
	MinPoints = 500
	// MaxPoints is awarded for a correct answer given instantly.
	MaxPoints = 1000
)

// Result is the outcome of evaluating one submission.
type Result struct {
	IsCorrect bool
	Points    int
}

// Evaluate scores a submitted answer against q.
func Evaluate(q domain.Question, submitted string, responseTimeMs, timeLimitMs int64) Result {
	if !IsCorrect(q.Type, q.CorrectAnswer, submitted) {
		return Result{}
	}
	return Result{IsCorrect: true, Points: SpeedPoints(responseTimeMs, timeLimitMs)}
}

// IsCorrect is the single place where question types are told apart for correctness.
func IsCorrect(qt domain.QuestionType, correct, submitted string) bool {
	switch qt {
	case domain.QuestionTrueFalse, domain.QuestionMCQ, domain.QuestionFreeText:
		return Normalize(submitted) == Normalize(correct)
	case domain.QuestionNumber:
		want, ok := ParseNumber(correct)
		if !ok {
			return false
		}
		got, ok := ParseNumber(submitted)
		return ok && got == want
	case domain.QuestionMultipleMCQ:
		want, ok := normalizedSet(correct)
		if !ok {
			return false
		}
		got, ok := normalizedSet(submitted)
		if !ok || len(got) != len(want) {
			return false
		}
		for i := range want {
			if got[i] != want[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// SpeedPoints interpolates linearly from MaxPoints at 0 ms to MinPoints at the limit.
// Overtime answers floor at MinPoints.
func SpeedPoints(responseTimeMs, timeLimitMs int64) int {
	if responseTimeMs < 0 {
		responseTimeMs = 0
	}
	ratio := 0.0
	if timeLimitMs > 0 {
		ratio = math.Max(0, 1-float64(responseTimeMs)/float64(timeLimitMs))
	}
	return int(math.Round(MinPoints + (MaxPoints-MinPoints)*ratio))
}

// Normalize decomposes s, drops combining diacritical marks (U+0300..U+036F),
// lowercases and trims it.
func Normalize(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if r >= 0x0300 && r <= 0x036f {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(strings.ToLower(b.String()))
}

// ParseNumber parses a trimmed decimal literal. NaN and infinities are rejected.
func ParseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseChoices decodes a multiple_mcq answer encoded as a JSON array of strings.
func ParseChoices(raw string) ([]string, bool) {
	var choices []string
	if err := json.Unmarshal([]byte(raw), &choices); err != nil || choices == nil {
		return nil, false
	}
	return choices, true
}

func normalizedSet(raw string) ([]string, bool) {
	choices, ok := ParseChoices(raw)
	if !ok {
		return nil, false
	}
	out := make([]string, len(choices))
	for i, c := range choices {
		out[i] = Normalize(c)
	}
	sort.Strings(out)
	return out, true
}
