package domain

// EventKind names a push hint sent to clients watching a game.
type EventKind string

const (
	EventGameStateUpdate EventKind = "game-state-update"
	EventPlayerJoined    EventKind = "player-joined"
	EventAnswerSubmitted EventKind = "answer-submitted"
)

// Event tells subscribers of a game that they should re-poll. Payload never
// carries correctness or points.
type Event struct {
	GameID  int64          `json:"gameId"`
	Kind    EventKind      `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}
