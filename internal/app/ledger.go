package app

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/reveal"
	"live-quiz-service/internal/scoring"
)

// Submission is the player's receipt for an answer. Correctness and points
// stay nil until the question's reveal time.
type Submission struct {
	Answer  AnswerView    `json:"answer"`
	Player  domain.Player `json:"player"`
	Message string        `json:"message"`
}

// AnswerView is an answer as shown to its own player.
type AnswerView struct {
	ID             int64  `json:"id"`
	PlayerID       int64  `json:"player_id"`
	QuestionID     int64  `json:"question_id"`
	Answer         string `json:"answer"`
	IsCorrect      *bool  `json:"is_correct"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	PointsEarned   *int   `json:"points_earned"`
}

func viewAnswer(a domain.Answer, revealed bool) AnswerView {
	v := AnswerView{
		ID:             a.ID,
		PlayerID:       a.PlayerID,
		QuestionID:     a.QuestionID,
		Answer:         a.Answer,
		ResponseTimeMs: a.ResponseTimeMs,
	}
	if revealed {
		correct, points := a.IsCorrect, a.PointsEarned
		v.IsCorrect = &correct
		v.PointsEarned = &points
	}
	return v
}

// SubmitAnswer records a player's answer to the game's current question. The
// response time is measured by the server clock from question_started_at.
func (s *GameService) SubmitAnswer(ctx context.Context, playerID, questionID int64, answer string) (Submission, error) {
	var player domain.Player
	err := s.store.View(ctx, func(ctx context.Context, r Repository) error {
		var err error
		player, err = r.GetPlayer(ctx, playerID)
		return err
	})
	if err != nil {
		return Submission{}, err
	}

	var (
		recorded domain.Answer
		revealed bool
	)
	err = s.mutate(ctx, player.GameID, func(ctx context.Context, r Repository, game *domain.Game) error {
		if game.Status != domain.StatusQuestion {
			return domain.ErrNotAcceptingAnswers
		}
		questions, err := r.ListQuestions(ctx, game.QuizID)
		if err != nil {
			return err
		}
		idx := game.CurrentQuestionIndex
		if idx < 0 || idx >= len(questions) || questions[idx].ID != questionID {
			return domain.ErrNotCurrentQuestion
		}
		quiz, err := r.GetQuiz(ctx, game.QuizID)
		if err != nil {
			return err
		}

		now := s.timestamp()
		elapsed := reveal.Elapsed(game.QuestionStartedAt, now).Milliseconds()
		recorded, err = s.record(ctx, r, playerID, questions[idx], quiz, answer, elapsed)
		if err != nil {
			return err
		}
		player, err = r.GetPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		revealed = reveal.IsRevealed(game.QuestionStartedAt, quiz.TimeLimitSeconds(), reveal.Players, now)
		return nil
	})
	if err != nil {
		return Submission{}, err
	}

	s.logger.Debug("answer recorded",
		zap.Int64("game_id", player.GameID),
		zap.Int64("player_id", playerID),
		zap.Int64("question_id", questionID),
		zap.Int64("response_time_ms", recorded.ResponseTimeMs),
	)
	s.notify(ctx, player.GameID, domain.EventAnswerSubmitted, map[string]any{
		"gameId":     player.GameID,
		"playerId":   playerID,
		"questionId": questionID,
	})

	out := Submission{Answer: viewAnswer(recorded, revealed), Player: player, Message: "Answer submitted!"}
	if revealed {
		out.Message = "Incorrect"
		if recorded.IsCorrect {
			out.Message = "Correct!"
		}
	}
	return out, nil
}

// record is the ledger write: at most one answer per (player, question), and
// the score increment lands in the same transaction as the answer row.
func (s *GameService) record(ctx context.Context, r Repository, playerID int64, q domain.Question, quiz domain.Quiz, answer string, responseTimeMs int64) (domain.Answer, error) {
	if _, err := r.GetAnswer(ctx, playerID, q.ID); err == nil {
		return domain.Answer{}, domain.ErrAlreadyAnswered
	} else if !errors.Is(err, domain.ErrAnswerNotFound) {
		return domain.Answer{}, err
	}

	result := scoring.Evaluate(q, answer, responseTimeMs, int64(quiz.TimeLimitSeconds())*1000)
	row := domain.Answer{
		PlayerID:       playerID,
		QuestionID:     q.ID,
		Answer:         answer,
		IsCorrect:      result.IsCorrect,
		ResponseTimeMs: responseTimeMs,
		PointsEarned:   result.Points,
		AnsweredAt:     s.timestamp(),
	}
	if err := r.InsertAnswer(ctx, &row); err != nil {
		return domain.Answer{}, err
	}
	if result.Points > 0 {
		if err := r.AddScore(ctx, playerID, result.Points); err != nil {
			return domain.Answer{}, err
		}
	}
	return row, nil
}

// AnswersForQuestion lists answers to a question, scoped to one game unless gameID is 0.
func (s *GameService) AnswersForQuestion(ctx context.Context, gameID, questionID int64) ([]domain.Answer, error) {
	var answers []domain.Answer
	err := s.store.View(ctx, func(ctx context.Context, r Repository) error {
		var err error
		answers, err = r.ListAnswersForQuestion(ctx, gameID, questionID)
		return err
	})
	return answers, err
}

// AnswersForPlayer lists every answer a player has given.
func (s *GameService) AnswersForPlayer(ctx context.Context, playerID int64) ([]domain.Answer, error) {
	var answers []domain.Answer
	err := s.store.View(ctx, func(ctx context.Context, r Repository) error {
		var err error
		answers, err = r.ListAnswersByPlayer(ctx, playerID)
		return err
	})
	return answers, err
}

// PlayerAnswers is the player's answer history. The answer to a question that
// is still open stays masked until its reveal time.
func (s *GameService) PlayerAnswers(ctx context.Context, playerID int64) ([]AnswerView, error) {
	var game domain.Game
	err := s.store.View(ctx, func(ctx context.Context, r Repository) error {
		player, err := r.GetPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		game, err = r.GetGame(ctx, player.GameID)
		return err
	})
	if err != nil {
		return nil, err
	}
	answers, err := s.AnswersForPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	var pending int64
	if game.Status == domain.StatusQuestion {
		content, err := s.content.Content(ctx, game.QuizID)
		if err != nil {
			return nil, err
		}
		idx := game.CurrentQuestionIndex
		if idx >= 0 && idx < len(content.Questions) &&
			!reveal.IsRevealed(game.QuestionStartedAt, content.Quiz.TimeLimitSeconds(), reveal.Players, s.timestamp()) {
			pending = content.Questions[idx].ID
		}
	}

	views := make([]AnswerView, 0, len(answers))
	for _, a := range answers {
		views = append(views, viewAnswer(a, a.QuestionID != pending))
	}
	return views, nil
}
