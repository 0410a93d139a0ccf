package app_test

import (
	"errors"
	"testing"
	"time"

	"live-quiz-service/internal/domain"
)

func TestSubmitAnswerGuards(t *testing.T) {
	f := newFixture(t)
	quiz, qs := f.quiz(t, trueFalse("Sky is blue", "true"), trueFalse("Fire is cold", "false"))
	game := f.game(t, quiz.ID)
	alice := f.join(t, game, "Alice")

	if _, err := f.games.SubmitAnswer(f.ctx, alice.ID, qs[0].ID, "true"); !errors.Is(err, domain.ErrNotAcceptingAnswers) {
		t.Fatalf("waiting game: expected ErrNotAcceptingAnswers, got %v", err)
	}
	f.start(t, game.ID)
	if _, err := f.games.SubmitAnswer(f.ctx, alice.ID, qs[0].ID, "true"); !errors.Is(err, domain.ErrNotAcceptingAnswers) {
		t.Fatalf("active game: expected ErrNotAcceptingAnswers, got %v", err)
	}

	f.advance(t, game.ID)
	if _, err := f.games.SubmitAnswer(f.ctx, alice.ID, qs[1].ID, "false"); !errors.Is(err, domain.ErrNotCurrentQuestion) {
		t.Fatalf("stale question: expected ErrNotCurrentQuestion, got %v", err)
	}
	if _, err := f.games.SubmitAnswer(f.ctx, 9999, qs[0].ID, "true"); !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Fatalf("unknown player: expected ErrPlayerNotFound, got %v", err)
	}

	f.submit(t, alice.ID, qs[0].ID, "true")
	if _, err := f.games.SubmitAnswer(f.ctx, alice.ID, qs[0].ID, "true"); !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("duplicate: expected ErrAlreadyAnswered, got %v", err)
	}
	if got := f.player(t, alice.ID).Score; got != 1000 {
		t.Fatalf("duplicate must not score twice, got %d", got)
	}
}

func TestSubmitAnswerHidesResultUntilReveal(t *testing.T) {
	f := newFixture(t)
	quiz, qs := f.quiz(t, trueFalse("Sky is blue", "true"))
	game := f.game(t, quiz.ID)
	alice := f.join(t, game, "Alice")
	bob := f.join(t, game, "Bob")
	f.start(t, game.ID)
	f.advance(t, game.ID)

	f.clock.Advance(3 * time.Second)
	early := f.submit(t, alice.ID, qs[0].ID, "false")
	if early.Answer.IsCorrect != nil || early.Answer.PointsEarned != nil {
		t.Fatalf("correctness leaked before reveal: %+v", early.Answer)
	}
	if early.Message != "Answer submitted!" {
		t.Fatalf("unexpected message %q", early.Message)
	}

	f.clock.Advance(9 * time.Second)
	late := f.submit(t, bob.ID, qs[0].ID, "true")
	if late.Answer.IsCorrect == nil || !*late.Answer.IsCorrect {
		t.Fatalf("expected revealed correct answer, got %+v", late.Answer)
	}
	if *late.Answer.PointsEarned != 500 {
		t.Fatalf("late correct answer must floor at 500, got %d", *late.Answer.PointsEarned)
	}
	if late.Message != "Correct!" {
		t.Fatalf("unexpected message %q", late.Message)
	}
	if late.Answer.ResponseTimeMs != 12000 {
		t.Fatalf("response time must come from the server clock, got %d", late.Answer.ResponseTimeMs)
	}
}

func TestEvaluatorTypesThroughLedger(t *testing.T) {
	f := newFixture(t)
	quiz, qs := f.quiz(t,
		domain.QuestionDraft{Text: "Capital of France", Type: domain.QuestionMCQ, CorrectAnswer: "Paris", Options: []string{"London", "Paris", "Berlin", "Madrid"}},
		domain.QuestionDraft{Text: "Primary colors", Type: domain.QuestionMultipleMCQ, CorrectAnswer: `["Red","Blue"]`, Options: []string{"Red", "Green", "Blue", "Purple"}},
		domain.QuestionDraft{Text: "City of lights", Type: domain.QuestionFreeText, CorrectAnswer: "Paris"},
	)
	game := f.game(t, quiz.ID)
	alice := f.join(t, game, "Alice")
	f.start(t, game.ID)

	answers := []string{"paris", `["blue","red"]`, "  PARIS "}
	for i, q := range qs {
		f.advance(t, game.ID)
		f.submit(t, alice.ID, q.ID, answers[i])
	}
	if got := f.player(t, alice.ID).Score; got != 3000 {
		t.Fatalf("expected three instant correct answers, got %d", got)
	}
}
