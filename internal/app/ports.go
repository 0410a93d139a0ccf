package app

import (
	"context"

	"live-quiz-service/internal/domain"
)

// UserRepository persists quiz owners.
type UserRepository interface {
	GetUser(ctx context.Context, id int64) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
	DeleteUser(ctx context.Context, id int64) error
}

// QuizRepository persists quizzes.
type QuizRepository interface {
	CreateQuiz(ctx context.Context, quiz *domain.Quiz) error
	UpdateQuiz(ctx context.Context, quiz *domain.Quiz) error
	GetQuiz(ctx context.Context, id int64) (domain.Quiz, error)
	ListQuizzesByUser(ctx context.Context, userID int64) ([]domain.Quiz, error)
	DeleteQuiz(ctx context.Context, id int64) error
}

// QuestionRepository persists questions. ListQuestions returns play order.
type QuestionRepository interface {
	CreateQuestion(ctx context.Context, question *domain.Question) error
	UpdateQuestion(ctx context.Context, question *domain.Question) error
	GetQuestion(ctx context.Context, id int64) (domain.Question, error)
	ListQuestions(ctx context.Context, quizID int64) ([]domain.Question, error)
	DeleteQuestion(ctx context.Context, id int64) error
	// MaxOrderIndex returns -1 for a quiz without questions.
	MaxOrderIndex(ctx context.Context, quizID int64) (int, error)
	SetOrderIndex(ctx context.Context, questionID int64, index int) error
}

// GameRepository persists game sessions.
type GameRepository interface {
	// CreateGame and UpdateGame return domain.ErrPINConflict when another game holds the PIN.
	CreateGame(ctx context.Context, game *domain.Game) error
	UpdateGame(ctx context.Context, game *domain.Game) error
	GetGame(ctx context.Context, id int64) (domain.Game, error)
	// LockGame reads the game and holds it for the rest of the transaction.
	LockGame(ctx context.Context, id int64) (domain.Game, error)
	GetGameByPIN(ctx context.Context, pin string) (domain.Game, error)
	PINInUse(ctx context.Context, pin string) (bool, error)
	ListActiveGamesByQuiz(ctx context.Context, quizID int64) ([]domain.Game, error)
	ListGamesByOwner(ctx context.Context, userID int64) ([]domain.GameSummary, error)
}

// PlayerRepository persists players. ListPlayers orders by score desc, then join time.
type PlayerRepository interface {
	CreatePlayer(ctx context.Context, player *domain.Player) error
	GetPlayer(ctx context.Context, id int64) (domain.Player, error)
	ListPlayers(ctx context.Context, gameID int64) ([]domain.Player, error)
	AddScore(ctx context.Context, playerID int64, delta int) error
	ResetScores(ctx context.Context, gameID int64) error
}

// AnswerRepository persists the answer ledger.
type AnswerRepository interface {
	// InsertAnswer returns domain.ErrAlreadyAnswered when (player, question) already has a row.
	InsertAnswer(ctx context.Context, answer *domain.Answer) error
	GetAnswer(ctx context.Context, playerID, questionID int64) (domain.Answer, error)
	UpdateAnswerAward(ctx context.Context, answerID int64, correct bool, points int) error
	// ListAnswersForQuestion scopes to one game's players unless gameID is 0.
	ListAnswersForQuestion(ctx context.Context, gameID, questionID int64) ([]domain.Answer, error)
	ListAnswersByPlayer(ctx context.Context, playerID int64) ([]domain.Answer, error)
	DeleteRoundAnswers(ctx context.Context, gameID, questionID int64) error
	DeleteGameAnswers(ctx context.Context, gameID int64) error
}

// Repository is everything the services read and write.
type Repository interface {
	UserRepository
	QuizRepository
	QuestionRepository
	GameRepository
	PlayerRepository
	AnswerRepository
}

// Store hands out repositories. Tx is all-or-nothing; View is for reads.
type Store interface {
	Tx(ctx context.Context, fn func(ctx context.Context, r Repository) error) error
	View(ctx context.Context, fn func(ctx context.Context, r Repository) error) error
}

// GlobalStatsReader computes counts across every quiz and game.
type GlobalStatsReader interface {
	GlobalStats(ctx context.Context) (domain.GlobalStats, error)
}

// ContentCache serves quiz content for the polling read models.
type ContentCache interface {
	Content(ctx context.Context, quizID int64) (domain.QuizContent, error)
	Invalidate(ctx context.Context, quizID int64)
}

// Notifier delivers best-effort push hints. Failures are logged by callers and never roll back state.
type Notifier interface {
	Notify(ctx context.Context, event domain.Event) error
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, domain.Event) error { return nil }

// ContentLoader reads quiz content straight from a Store. Caches wrap it.
type ContentLoader struct {
	store Store
}

func NewContentLoader(store Store) *ContentLoader {
	return &ContentLoader{store: store}
}

func (l *ContentLoader) LoadContent(ctx context.Context, quizID int64) (domain.QuizContent, error) {
	var content domain.QuizContent
	err := l.store.View(ctx, func(ctx context.Context, r Repository) error {
		quiz, err := r.GetQuiz(ctx, quizID)
		if err != nil {
			return err
		}
		questions, err := r.ListQuestions(ctx, quizID)
		if err != nil {
			return err
		}
		content = domain.QuizContent{Quiz: quiz, Questions: questions}
		return nil
	})
	return content, err
}

// uncachedContent satisfies ContentCache without caching.
type uncachedContent struct {
	loader *ContentLoader
}

func (c uncachedContent) Content(ctx context.Context, quizID int64) (domain.QuizContent, error) {
	return c.loader.LoadContent(ctx, quizID)
}

func (uncachedContent) Invalidate(context.Context, int64) {}
