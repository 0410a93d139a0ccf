package domain

import (
	"errors"
	"fmt"
)

// Kind groups errors by how a caller should react to them.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindPrecondition Kind = "precondition"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// Error carries a stable machine-readable Code next to a human message.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Validation builds an error for malformed input.
func Validation(message string) *Error {
	return newError(KindValidation, "validation_error", message)
}

// Validationf is Validation with formatting.
func Validationf(format string, args ...any) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

// KindOf returns the Kind of err, or KindInternal for errors outside this taxonomy.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

var (
	// ErrUserNotFound is returned when no user matches the id or email.
	ErrUserNotFound = newError(KindNotFound, "user_not_found", "User not found")
	// ErrQuizNotFound is returned when the quiz id is unknown.
	ErrQuizNotFound = newError(KindNotFound, "quiz_not_found", "Quiz not found")
	// ErrQuestionNotFound is returned when the question id is unknown.
	ErrQuestionNotFound = newError(KindNotFound, "question_not_found", "Question not found")
	// ErrGameNotFound is returned when the game id is unknown.
	ErrGameNotFound = newError(KindNotFound, "game_not_found", "Game not found")
	// ErrPINNotFound is returned when no open game holds the PIN.
	ErrPINNotFound = newError(KindNotFound, "pin_not_found", "Game not found. Please check the PIN code.")
	// ErrPlayerNotFound is returned when the player id is unknown.
	ErrPlayerNotFound = newError(KindNotFound, "player_not_found", "Player not found")
	// ErrAnswerNotFound is returned when a player has no answer for the question.
	ErrAnswerNotFound = newError(KindNotFound, "answer_not_found", "Answer not found")

	ErrAlreadyStarted      = newError(KindPrecondition, "game_already_started", "This game has already started. You cannot join now.")
	ErrGameEnded           = newError(KindPrecondition, "game_ended", "This game has already ended")
	ErrNotWaiting          = newError(KindPrecondition, "game_not_waiting", "Game has already started")
	ErrNotStarted          = newError(KindPrecondition, "game_not_started", "Game has not started yet")
	ErrNotFinished         = newError(KindPrecondition, "game_not_finished", "Only a finished game can be resumed")
	ErrNoActiveQuestion    = newError(KindPrecondition, "no_active_question", "No active question to replay or invalidate")
	ErrNotAcceptingAnswers = newError(KindPrecondition, "not_accepting_answers", "No active question to answer")
	ErrNotCurrentQuestion  = newError(KindPrecondition, "not_current_question", "Invalid question - not the current question")
	ErrAlreadyAnswered     = newError(KindPrecondition, "already_answered", "You have already answered this question")
	ErrEmptyQuiz           = newError(KindPrecondition, "quiz_has_no_questions", "Quiz must have at least one question")

	// ErrPINConflict is returned by stores when a PIN is already held by another open game.
	ErrPINConflict = newError(KindConflict, "pin_conflict", "PIN already in use")
	// ErrEmailTaken is returned by stores when a user with the same email exists.
	ErrEmailTaken = newError(KindConflict, "email_taken", "Email already registered")
	// ErrPINExhausted is returned when no free PIN could be drawn.
	ErrPINExhausted = newError(KindInternal, "pin_exhausted", "Could not allocate a free PIN")
)
