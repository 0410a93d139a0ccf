package app_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
)

var epoch = time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// pinScript hands out queued PINs first, then a deterministic sequence.
type pinScript struct {
	mu     sync.Mutex
	queued []string
	next   int
}

func (p *pinScript) Next() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queued) > 0 {
		pin := p.queued[0]
		p.queued = p.queued[1:]
		return pin, nil
	}
	p.next++
	return fmt.Sprintf("%06d", 500000+p.next), nil
}

func (p *pinScript) Queue(pins ...string) {
	p.mu.Lock()
	p.queued = append(p.queued, pins...)
	p.mu.Unlock()
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.Event
}

func (n *recordingNotifier) Notify(_ context.Context, event domain.Event) error {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
	return nil
}

func (n *recordingNotifier) Kinds() []domain.EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.EventKind, len(n.events))
	for i, e := range n.events {
		out[i] = e.Kind
	}
	return out
}

type fixture struct {
	ctx      context.Context
	store    *memory.Store
	games    *app.GameService
	catalog  *app.CatalogService
	reporter *app.Reporter
	clock    *fakeClock
	pins     *pinScript
	notes    *recordingNotifier
	userID   int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:   context.Background(),
		store: memory.NewStore(),
		clock: &fakeClock{now: epoch},
		pins:  &pinScript{},
		notes: &recordingNotifier{},
	}
	f.games = app.NewGameService(f.store,
		app.WithClock(f.clock.Now),
		app.WithPINGenerator(f.pins.Next),
		app.WithNotifier(f.notes),
	)
	f.catalog = app.NewCatalogService(f.store, nil, nil)
	f.reporter = app.NewReporter(f.store, f.store)

	user, _, err := f.catalog.FindOrCreateUser(f.ctx, "host@example.com", "")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	f.userID = user.ID
	return f
}

// quiz creates a quiz with a 10 second limit and the given questions.
func (f *fixture) quiz(t *testing.T, drafts ...domain.QuestionDraft) (domain.Quiz, []domain.Question) {
	t.Helper()
	quiz, err := f.catalog.CreateQuiz(f.ctx, app.QuizInput{UserID: f.userID, Title: "General knowledge", TimeLimit: 10})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	questions := make([]domain.Question, 0, len(drafts))
	for _, d := range drafts {
		q, err := f.catalog.CreateQuestion(f.ctx, quiz.ID, d)
		if err != nil {
			t.Fatalf("create question %q: %v", d.Text, err)
		}
		questions = append(questions, q)
	}
	return quiz, questions
}

func (f *fixture) game(t *testing.T, quizID int64) domain.Game {
	t.Helper()
	game, err := f.games.CreateGame(f.ctx, quizID)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	return game
}

func (f *fixture) join(t *testing.T, game domain.Game, name string) domain.Player {
	t.Helper()
	res, err := f.games.Join(f.ctx, game.PINCode(), name)
	if err != nil {
		t.Fatalf("join %s: %v", name, err)
	}
	return res.Player
}

func (f *fixture) start(t *testing.T, gameID int64) {
	t.Helper()
	if _, err := f.games.Start(f.ctx, gameID); err != nil {
		t.Fatalf("start: %v", err)
	}
}

func (f *fixture) advance(t *testing.T, gameID int64) app.Transition {
	t.Helper()
	tr, err := f.games.Advance(f.ctx, gameID)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	return tr
}

func (f *fixture) submit(t *testing.T, playerID, questionID int64, answer string) app.Submission {
	t.Helper()
	sub, err := f.games.SubmitAnswer(f.ctx, playerID, questionID, answer)
	if err != nil {
		t.Fatalf("submit %q: %v", answer, err)
	}
	return sub
}

func (f *fixture) player(t *testing.T, playerID int64) domain.Player {
	t.Helper()
	var p domain.Player
	err := f.store.View(f.ctx, func(ctx context.Context, r app.Repository) error {
		var err error
		p, err = r.GetPlayer(ctx, playerID)
		return err
	})
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	return p
}

func trueFalse(text, answer string) domain.QuestionDraft {
	return domain.QuestionDraft{Text: text, Type: domain.QuestionTrueFalse, CorrectAnswer: answer}
}

func number(text, answer string) domain.QuestionDraft {
	return domain.QuestionDraft{Text: text, Type: domain.QuestionNumber, CorrectAnswer: answer}
}
