package app

import (
	"context"
	"errors"
	"regexp"
	"unicode/utf8"

	"go.uber.org/zap"

	"live-quiz-service/internal/domain"
)

var pinPattern = regexp.MustCompile(`^[0-9]{6}$`)

// createGameRetries bounds retries when a concurrently created game grabs the drawn PIN.
const createGameRetries = 3

// JoinResult is what a player gets back after joining.
type JoinResult struct {
	Player domain.Player `json:"player"`
	Game   JoinedGame    `json:"game"`
	Quiz   *QuizSummary  `json:"quiz"`
}

type JoinedGame struct {
	ID      int64             `json:"id"`
	Status  domain.GameStatus `json:"status"`
	PINCode string            `json:"pinCode"`
}

type QuizSummary struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	TimeLimit int    `json:"timeLimit"`
}

func summarizeQuiz(q domain.Quiz) *QuizSummary {
	return &QuizSummary{ID: q.ID, Title: q.Title, TimeLimit: q.TimeLimitSeconds()}
}

// ValidPIN reports whether pin has the 6-digit shape.
func ValidPIN(pin string) bool {
	return pinPattern.MatchString(pin)
}

// CreateGame opens a new waiting session for a quiz with at least one question.
func (s *GameService) CreateGame(ctx context.Context, quizID int64) (domain.Game, error) {
	var game domain.Game
	var err error
	for attempt := 0; attempt < createGameRetries; attempt++ {
		err = s.store.Tx(ctx, func(ctx context.Context, r Repository) error {
			if _, err := r.GetQuiz(ctx, quizID); err != nil {
				return err
			}
			questions, err := r.ListQuestions(ctx, quizID)
			if err != nil {
				return err
			}
			if len(questions) == 0 {
				return domain.ErrEmptyQuiz
			}
			pin, err := s.drawPIN(ctx, r, "")
			if err != nil {
				return err
			}
			game = domain.Game{
				QuizID:               quizID,
				PIN:                  &pin,
				Status:               domain.StatusWaiting,
				CurrentQuestionIndex: domain.NoQuestion,
				CreatedAt:            s.timestamp(),
			}
			return r.CreateGame(ctx, &game)
		})
		if !errors.Is(err, domain.ErrPINConflict) {
			break
		}
		s.logger.Debug("pin collision on create, retrying", zap.Int64("quiz_id", quizID), zap.Int("attempt", attempt+1))
	}
	if err != nil {
		return domain.Game{}, err
	}
	s.logger.Info("game created", zap.Int64("game_id", game.ID), zap.Int64("quiz_id", quizID))
	return game, nil
}

// drawPIN samples PINs until one is free. exclude is never returned.
func (s *GameService) drawPIN(ctx context.Context, r Repository, exclude string) (string, error) {
	for i := 0; i < s.pinAttempts; i++ {
		pin, err := s.newPIN()
		if err != nil {
			return "", err
		}
		if pin == exclude {
			continue
		}
		inUse, err := r.PINInUse(ctx, pin)
		if err != nil {
			return "", err
		}
		if !inUse {
			return pin, nil
		}
	}
	return "", domain.ErrPINExhausted
}

// GetGame returns a game by id.
func (s *GameService) GetGame(ctx context.Context, gameID int64) (domain.Game, error) {
	var game domain.Game
	err := s.store.View(ctx, func(ctx context.Context, r Repository) error {
		var err error
		game, err = r.GetGame(ctx, gameID)
		return err
	})
	return game, err
}

// GetGameByPIN looks up an open game. Finished games report ErrGameEnded.
func (s *GameService) GetGameByPIN(ctx context.Context, pin string) (domain.Game, error) {
	if !ValidPIN(pin) {
		return domain.Game{}, domain.Validation("PIN must be 6 digits")
	}
	var game domain.Game
	err := s.store.View(ctx, func(ctx context.Context, r Repository) error {
		var err error
		game, err = r.GetGameByPIN(ctx, pin)
		return err
	})
	if err != nil {
		return domain.Game{}, err
	}
	if game.Status == domain.StatusFinished {
		return domain.Game{}, domain.ErrGameEnded
	}
	return game, nil
}

// ListActiveGames returns the quiz's non-finished games, newest first.
func (s *GameService) ListActiveGames(ctx context.Context, quizID int64) ([]domain.Game, error) {
	var games []domain.Game
	err := s.store.View(ctx, func(ctx context.Context, r Repository) error {
		var err error
		games, err = r.ListActiveGamesByQuiz(ctx, quizID)
		return err
	})
	return games, err
}

// ListGamesByOwner returns every game of every quiz owned by userID, newest first.
func (s *GameService) ListGamesByOwner(ctx context.Context, userID int64) ([]domain.GameSummary, error) {
	var games []domain.GameSummary
	err := s.store.View(ctx, func(ctx context.Context, r Repository) error {
		var err error
		games, err = r.ListGamesByOwner(ctx, userID)
		return err
	})
	return games, err
}

// Join adds a player to the waiting game holding pin.
func (s *GameService) Join(ctx context.Context, pin, name string) (JoinResult, error) {
	if !ValidPIN(pin) {
		return JoinResult{}, domain.Validation("PIN must be 6 digits")
	}
	name = sanitizeText(name)
	if n := utf8.RuneCountInString(name); n < 1 || n > domain.MaxPlayerNameLength {
		return JoinResult{}, domain.Validationf("Player name must be between 1 and %d characters", domain.MaxPlayerNameLength)
	}

	var found domain.Game
	err := s.store.View(ctx, func(ctx context.Context, r Repository) error {
		var err error
		found, err = r.GetGameByPIN(ctx, pin)
		return err
	})
	if err != nil {
		return JoinResult{}, err
	}

	var result JoinResult
	err = s.mutate(ctx, found.ID, func(ctx context.Context, r Repository, game *domain.Game) error {
		if game.PINCode() != pin {
			return domain.ErrPINNotFound
		}
		switch game.Status {
		case domain.StatusWaiting:
		case domain.StatusFinished:
			return domain.ErrGameEnded
		default:
			return domain.ErrAlreadyStarted
		}

		player := domain.Player{GameID: game.ID, Name: name, JoinedAt: s.timestamp()}
		if err := r.CreatePlayer(ctx, &player); err != nil {
			return err
		}
		result = JoinResult{
			Player: player,
			Game:   JoinedGame{ID: game.ID, Status: game.Status, PINCode: pin},
		}
		quiz, err := r.GetQuiz(ctx, game.QuizID)
		if err == nil {
			result.Quiz = summarizeQuiz(quiz)
		} else if !errors.Is(err, domain.ErrQuizNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return JoinResult{}, err
	}

	s.notify(ctx, found.ID, domain.EventPlayerJoined, map[string]any{
		"gameId": found.ID,
		"player": map[string]any{"id": result.Player.ID, "name": result.Player.Name},
	})
	return result, nil
}
