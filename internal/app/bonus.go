package app

import (
	"context"

	"go.uber.org/zap"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/scoring"
)

// ResolveBonus awards the closest-guess bonus for a number question of this
// game. Calling it again is a no-op.
func (s *GameService) ResolveBonus(ctx context.Context, gameID, questionID int64) (bool, error) {
	var awarded bool
	err := s.mutate(ctx, gameID, func(ctx context.Context, r Repository, game *domain.Game) error {
		q, err := r.GetQuestion(ctx, questionID)
		if err != nil {
			return err
		}
		if q.QuizID != game.QuizID {
			return domain.ErrQuestionNotFound
		}
		awarded, err = resolveBonus(ctx, r, game.ID, q)
		return err
	})
	if err != nil {
		return false, err
	}
	if awarded {
		s.logger.Info("number bonus awarded", zap.Int64("game_id", gameID), zap.Int64("question_id", questionID))
	}
	return awarded, nil
}

// resolveBonus credits the single closest wrong guess. An exact answer was
// already scored by the evaluator, and a round that already has a bonus
// winner is left alone.
func resolveBonus(ctx context.Context, r Repository, gameID int64, q domain.Question) (bool, error) {
	if q.Type != domain.QuestionNumber {
		return false, nil
	}
	answers, err := r.ListAnswersForQuestion(ctx, gameID, q.ID)
	if err != nil {
		return false, err
	}
	if bonusAlreadyAwarded(q, answers) {
		return false, nil
	}
	closest, ok := scoring.ClosestNumberAnswer(q.CorrectAnswer, answers)
	if !ok || closest.Difference == 0 || closest.Answer.PointsEarned != 0 {
		return false, nil
	}

	points := scoring.BonusPoints(closest.Difference)
	if err := r.UpdateAnswerAward(ctx, closest.Answer.ID, true, points); err != nil {
		return false, err
	}
	if err := r.AddScore(ctx, closest.Answer.PlayerID, points); err != nil {
		return false, err
	}
	return true, nil
}

// bonusAlreadyAwarded reports whether some inexact answer was already credited.
func bonusAlreadyAwarded(q domain.Question, answers []domain.Answer) bool {
	for _, a := range answers {
		if a.PointsEarned > 0 && !scoring.IsCorrect(q.Type, q.CorrectAnswer, a.Answer) {
			return true
		}
	}
	return false
}
