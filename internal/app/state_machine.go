package app

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"live-quiz-service/internal/domain"
)

// Transition is the outcome of a host operation that moves between questions.
type Transition struct {
	Game           domain.Game      `json:"game"`
	Question       *domain.Question `json:"currentQuestion,omitempty"`
	QuestionNumber int              `json:"questionNumber,omitempty"`
	TotalQuestions int              `json:"totalQuestions"`
	Finished       bool             `json:"finished"`
	Players        []domain.Player  `json:"players,omitempty"`
}

// RoundResults is the host's explicit reveal of the current question.
type RoundResults struct {
	Question      domain.Question `json:"question"`
	CorrectAnswer string          `json:"correctAnswer"`
	Answers       []HostAnswer    `json:"answers"`
	Players       []domain.Player `json:"players"`
}

// Start moves a waiting game to active.
func (s *GameService) Start(ctx context.Context, gameID int64) (domain.Game, error) {
	var out domain.Game
	err := s.mutate(ctx, gameID, func(ctx context.Context, r Repository, game *domain.Game) error {
		if game.Status != domain.StatusWaiting {
			return domain.ErrNotWaiting
		}
		game.Status = domain.StatusActive
		out = *game
		return r.UpdateGame(ctx, game)
	})
	if err != nil {
		return domain.Game{}, err
	}
	s.logger.Info("game started", zap.Int64("game_id", gameID))
	s.stateChanged(ctx, gameID)
	return out, nil
}

// Advance settles the number bonus of the current question, then shows the
// next question or finishes the game after the last one.
func (s *GameService) Advance(ctx context.Context, gameID int64) (Transition, error) {
	var out Transition
	err := s.mutate(ctx, gameID, func(ctx context.Context, r Repository, game *domain.Game) error {
		switch game.Status {
		case domain.StatusWaiting:
			return domain.ErrNotStarted
		case domain.StatusFinished:
			return domain.ErrGameEnded
		}
		questions, err := r.ListQuestions(ctx, game.QuizID)
		if err != nil {
			return err
		}

		if idx := game.CurrentQuestionIndex; idx >= 0 && idx < len(questions) {
			if _, err := resolveBonus(ctx, r, game.ID, questions[idx]); err != nil {
				return err
			}
		}

		if game.CurrentQuestionIndex >= len(questions)-1 {
			finishGame(game)
			if err := r.UpdateGame(ctx, game); err != nil {
				return err
			}
			out, err = finishedTransition(ctx, r, *game, len(questions))
			return err
		}

		s.showQuestion(game, game.CurrentQuestionIndex+1)
		if err := r.UpdateGame(ctx, game); err != nil {
			return err
		}
		out = questionTransition(*game, questions)
		return nil
	})
	if err != nil {
		return Transition{}, err
	}
	s.logger.Info("game advanced",
		zap.Int64("game_id", gameID),
		zap.Int("question_index", out.Game.CurrentQuestionIndex),
		zap.Bool("finished", out.Finished),
	)
	s.stateChanged(ctx, gameID)
	return out, nil
}

// Replay re-runs the current question, or the last one of a finished game,
// after rolling back every score earned on it.
func (s *GameService) Replay(ctx context.Context, gameID int64) (Transition, error) {
	var out Transition
	err := s.mutate(ctx, gameID, func(ctx context.Context, r Repository, game *domain.Game) error {
		questions, idx, err := roundTarget(ctx, r, game)
		if err != nil {
			return err
		}
		if err := rollbackRound(ctx, r, game.ID, questions[idx].ID); err != nil {
			return err
		}
		s.showQuestion(game, idx)
		if err := r.UpdateGame(ctx, game); err != nil {
			return err
		}
		out = questionTransition(*game, questions)
		return nil
	})
	if err != nil {
		return Transition{}, err
	}
	s.logger.Info("round replayed", zap.Int64("game_id", gameID), zap.Int("question_index", out.Game.CurrentQuestionIndex))
	s.stateChanged(ctx, gameID)
	return out, nil
}

// Invalidate cancels the current round's answers and scores, then moves on as
// Advance would, without awarding the number bonus.
func (s *GameService) Invalidate(ctx context.Context, gameID int64) (Transition, error) {
	var out Transition
	err := s.mutate(ctx, gameID, func(ctx context.Context, r Repository, game *domain.Game) error {
		questions, idx, err := roundTarget(ctx, r, game)
		if err != nil {
			return err
		}
		if err := rollbackRound(ctx, r, game.ID, questions[idx].ID); err != nil {
			return err
		}

		if idx >= len(questions)-1 {
			game.CurrentQuestionIndex = idx
			finishGame(game)
			if err := r.UpdateGame(ctx, game); err != nil {
				return err
			}
			out, err = finishedTransition(ctx, r, *game, len(questions))
			return err
		}

		s.showQuestion(game, idx+1)
		if err := r.UpdateGame(ctx, game); err != nil {
			return err
		}
		out = questionTransition(*game, questions)
		return nil
	})
	if err != nil {
		return Transition{}, err
	}
	s.logger.Info("round invalidated", zap.Int64("game_id", gameID), zap.Bool("finished", out.Finished))
	s.stateChanged(ctx, gameID)
	return out, nil
}

// Finish ends a running game and frees its PIN. Scores and answers stay.
func (s *GameService) Finish(ctx context.Context, gameID int64) (Transition, error) {
	var out Transition
	err := s.mutate(ctx, gameID, func(ctx context.Context, r Repository, game *domain.Game) error {
		if game.Status == domain.StatusWaiting {
			return domain.ErrNotStarted
		}
		finishGame(game)
		if err := r.UpdateGame(ctx, game); err != nil {
			return err
		}
		questions, err := r.ListQuestions(ctx, game.QuizID)
		if err != nil {
			return err
		}
		out, err = finishedTransition(ctx, r, *game, len(questions))
		return err
	})
	if err != nil {
		return Transition{}, err
	}
	s.logger.Info("game finished", zap.Int64("game_id", gameID))
	s.stateChanged(ctx, gameID)
	return out, nil
}

// Reset rolls the whole game back to waiting: scores zeroed, answers deleted,
// no question shown. Players are kept, and so is the PIN when it is still held.
func (s *GameService) Reset(ctx context.Context, gameID int64) (domain.Game, error) {
	var out domain.Game
	err := s.mutate(ctx, gameID, func(ctx context.Context, r Repository, game *domain.Game) error {
		if err := r.ResetScores(ctx, game.ID); err != nil {
			return err
		}
		if err := r.DeleteGameAnswers(ctx, game.ID); err != nil {
			return err
		}
		if game.PIN == nil {
			pin, err := s.drawPIN(ctx, r, game.LastPIN)
			if err != nil {
				return err
			}
			game.PIN = &pin
		}
		game.Status = domain.StatusWaiting
		game.CurrentQuestionIndex = domain.NoQuestion
		game.QuestionStartedAt = nil
		out = *game
		return r.UpdateGame(ctx, game)
	})
	if err != nil {
		return domain.Game{}, err
	}
	s.logger.Info("game reset", zap.Int64("game_id", gameID))
	s.stateChanged(ctx, gameID)
	return out, nil
}

// Resume reopens a finished game for joining under a fresh PIN.
func (s *GameService) Resume(ctx context.Context, gameID int64) (domain.Game, error) {
	var out domain.Game
	err := s.mutate(ctx, gameID, func(ctx context.Context, r Repository, game *domain.Game) error {
		if game.Status != domain.StatusFinished {
			return domain.ErrNotFinished
		}
		pin, err := s.drawPIN(ctx, r, game.LastPIN)
		if err != nil {
			return err
		}
		game.PIN = &pin
		game.Status = domain.StatusWaiting
		out = *game
		return r.UpdateGame(ctx, game)
	})
	if err != nil {
		return domain.Game{}, err
	}
	s.logger.Info("game resumed", zap.Int64("game_id", gameID), zap.String("pin", out.PINCode()))
	s.stateChanged(ctx, gameID)
	return out, nil
}

// ShowResults reveals the current question to the host regardless of the timer.
func (s *GameService) ShowResults(ctx context.Context, gameID int64) (RoundResults, error) {
	var out RoundResults
	err := s.store.View(ctx, func(ctx context.Context, r Repository) error {
		game, err := r.GetGame(ctx, gameID)
		if err != nil {
			return err
		}
		questions, err := r.ListQuestions(ctx, game.QuizID)
		if err != nil {
			return err
		}
		idx := game.CurrentQuestionIndex
		if idx < 0 || idx >= len(questions) {
			return domain.ErrNoActiveQuestion
		}
		q := questions[idx]
		answers, err := r.ListAnswersForQuestion(ctx, game.ID, q.ID)
		if err != nil {
			return err
		}
		players, err := r.ListPlayers(ctx, game.ID)
		if err != nil {
			return err
		}
		out = RoundResults{
			Question:      q,
			CorrectAnswer: q.CorrectAnswer,
			Answers:       hostAnswers(answers, players, true),
			Players:       rankPlayers(players),
		}
		return nil
	})
	return out, err
}

// showQuestion makes index the active question and restarts its clock.
func (s *GameService) showQuestion(game *domain.Game, index int) {
	started := s.timestamp()
	game.CurrentQuestionIndex = index
	game.QuestionStartedAt = &started
	game.Status = domain.StatusQuestion
}

// finishGame marks the game finished and releases its PIN, remembering it so
// a later resume never hands it out again.
func finishGame(game *domain.Game) {
	if game.PIN != nil {
		game.LastPIN = *game.PIN
	}
	game.PIN = nil
	game.Status = domain.StatusFinished
}

// roundTarget returns the question list and the index a replay or invalidate acts on.
func roundTarget(ctx context.Context, r Repository, game *domain.Game) ([]domain.Question, int, error) {
	if !game.QuestionStarted() {
		return nil, 0, domain.ErrNoActiveQuestion
	}
	questions, err := r.ListQuestions(ctx, game.QuizID)
	if err != nil {
		return nil, 0, err
	}
	if len(questions) == 0 {
		return nil, 0, domain.ErrNoActiveQuestion
	}
	idx := game.CurrentQuestionIndex
	if idx >= len(questions) {
		idx = len(questions) - 1
	}
	return questions, idx, nil
}

// rollbackRound takes back every point earned on questionID in this game and
// deletes the round's answers.
func rollbackRound(ctx context.Context, r Repository, gameID, questionID int64) error {
	answers, err := r.ListAnswersForQuestion(ctx, gameID, questionID)
	if err != nil {
		return err
	}
	for _, a := range answers {
		if a.PointsEarned > 0 {
			if err := r.AddScore(ctx, a.PlayerID, -a.PointsEarned); err != nil {
				return err
			}
		}
	}
	return r.DeleteRoundAnswers(ctx, gameID, questionID)
}

func questionTransition(game domain.Game, questions []domain.Question) Transition {
	q := questions[game.CurrentQuestionIndex]
	q.CorrectAnswer = ""
	return Transition{
		Game:           game,
		Question:       &q,
		QuestionNumber: game.CurrentQuestionIndex + 1,
		TotalQuestions: len(questions),
	}
}

func finishedTransition(ctx context.Context, r Repository, game domain.Game, total int) (Transition, error) {
	players, err := r.ListPlayers(ctx, game.ID)
	if err != nil {
		return Transition{}, err
	}
	return Transition{
		Game:           game,
		TotalQuestions: total,
		Finished:       true,
		Players:        rankPlayers(players),
	}, nil
}

// rankPlayers orders by score desc, keeping the store's join order for ties.
func rankPlayers(players []domain.Player) []domain.Player {
	out := make([]domain.Player, len(players))
	copy(out, players)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
