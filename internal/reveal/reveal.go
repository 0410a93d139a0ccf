// Package reveal computes when the results of a running question may be shown.
package reveal

import "time"

// Audience selects which reveal threshold applies.
type Audience int

const (
	// Players see results once the time limit has elapsed.
	Players Audience = iota
	// Host sees results one second later so player submissions settle first.
	Host
)

const hostGrace = time.Second

const (
	// MaskedAnswer replaces other players' raw answers before reveal.
	MaskedAnswer = "***"
	// MaskedCorrectAnswer replaces the correct answer before reveal.
	MaskedCorrectAnswer = "???"
)

// At returns the instant results become visible to aud.
func At(startedAt time.Time, timeLimitSeconds int, aud Audience) time.Time {
	at := startedAt.Add(time.Duration(timeLimitSeconds) * time.Second)
	if aud == Host {
		at = at.Add(hostGrace)
	}
	return at
}

// IsRevealed reports whether now has reached the reveal instant. A question
// that never started is never revealed.
func IsRevealed(startedAt *time.Time, timeLimitSeconds int, aud Audience, now time.Time) bool {
	if startedAt == nil {
		return false
	}
	return !now.Before(At(*startedAt, timeLimitSeconds, aud))
}

// Elapsed is the server-measured response time since the question started, floored at zero.
func Elapsed(startedAt *time.Time, now time.Time) time.Duration {
	if startedAt == nil {
		return 0
	}
	d := now.Sub(*startedAt)
	if d < 0 {
		return 0
	}
	return d
}
