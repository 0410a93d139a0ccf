package app

import (
	"context"
	"sort"

	"live-quiz-service/internal/domain"
)

// Reporter derives read-only statistics from the ledger.
type Reporter struct {
	store  Store
	global GlobalStatsReader
}

// NewReporter builds a Reporter. global answers the cross-game counts; stores
// that can compute them cheaply usually implement it themselves.
func NewReporter(store Store, global GlobalStatsReader) *Reporter {
	return &Reporter{store: store, global: global}
}

// GameResults is the final standings of a game.
type GameResults struct {
	Players        []domain.Player `json:"players"`
	TotalQuestions int             `json:"totalQuestions"`
}

// GlobalStats returns counts across all data plus the five most played quizzes.
func (rp *Reporter) GlobalStats(ctx context.Context) (domain.GlobalStats, error) {
	return rp.global.GlobalStats(ctx)
}

// GameStats aggregates one game's answers per question.
func (rp *Reporter) GameStats(ctx context.Context, gameID int64) (domain.GameStats, error) {
	var stats domain.GameStats
	err := rp.store.View(ctx, func(ctx context.Context, r Repository) error {
		game, err := r.GetGame(ctx, gameID)
		if err != nil {
			return err
		}
		players, err := r.ListPlayers(ctx, game.ID)
		if err != nil {
			return err
		}
		questions, err := r.ListQuestions(ctx, game.QuizID)
		if err != nil {
			return err
		}
		perQuestion := make(map[int64][]domain.Answer, len(questions))
		for _, q := range questions {
			answers, err := r.ListAnswersForQuestion(ctx, game.ID, q.ID)
			if err != nil {
				return err
			}
			perQuestion[q.ID] = answers
		}
		stats = ComputeGameStats(players, questions, perQuestion)
		return nil
	})
	return stats, err
}

// GameResults returns players by score and the quiz length.
func (rp *Reporter) GameResults(ctx context.Context, gameID int64) (GameResults, error) {
	var out GameResults
	err := rp.store.View(ctx, func(ctx context.Context, r Repository) error {
		game, err := r.GetGame(ctx, gameID)
		if err != nil {
			return err
		}
		players, err := r.ListPlayers(ctx, game.ID)
		if err != nil {
			return err
		}
		questions, err := r.ListQuestions(ctx, game.QuizID)
		if err != nil {
			return err
		}
		out = GameResults{Players: rankPlayers(players), TotalQuestions: len(questions)}
		return nil
	})
	return out, err
}

// GameReport collects what an exported results file shows.
func (rp *Reporter) GameReport(ctx context.Context, gameID int64) (domain.GameReport, error) {
	stats, err := rp.GameStats(ctx, gameID)
	if err != nil {
		return domain.GameReport{}, err
	}
	var report domain.GameReport
	err = rp.store.View(ctx, func(ctx context.Context, r Repository) error {
		game, err := r.GetGame(ctx, gameID)
		if err != nil {
			return err
		}
		players, err := r.ListPlayers(ctx, game.ID)
		if err != nil {
			return err
		}
		report = domain.GameReport{Game: game, Players: rankPlayers(players), Stats: stats}
		quiz, err := r.GetQuiz(ctx, game.QuizID)
		if err != nil {
			return err
		}
		report.QuizTitle = quiz.Title
		return nil
	})
	return report, err
}

// ComputeGameStats is the pure aggregation behind GameStats. Hardest and
// easiest are picked among questions with at least one answer; on equal
// correct-rates the earlier question is harder.
func ComputeGameStats(players []domain.Player, questions []domain.Question, answers map[int64][]domain.Answer) domain.GameStats {
	stats := domain.GameStats{
		TotalPlayers:  len(players),
		QuestionStats: make([]domain.QuestionStat, 0, len(questions)),
	}
	if len(players) > 0 {
		total := 0
		for _, p := range players {
			total += p.Score
		}
		stats.AverageScore = float64(total) / float64(len(players))
	}

	answered := make([]domain.QuestionStat, 0, len(questions))
	for _, q := range questions {
		qs := domain.QuestionStat{QuestionID: q.ID, QuestionText: q.Text}
		var responseTotal int64
		for _, a := range answers[q.ID] {
			qs.TotalAnswers++
			if a.IsCorrect {
				qs.CorrectAnswers++
			}
			responseTotal += a.ResponseTimeMs
		}
		if qs.TotalAnswers > 0 {
			qs.AverageResponseTime = float64(responseTotal) / float64(qs.TotalAnswers)
			answered = append(answered, qs)
		}
		stats.QuestionStats = append(stats.QuestionStats, qs)
	}

	if len(answered) > 0 {
		sort.SliceStable(answered, func(i, j int) bool {
			// correct_i/total_i < correct_j/total_j without floating point
			return answered[i].CorrectAnswers*answered[j].TotalAnswers < answered[j].CorrectAnswers*answered[i].TotalAnswers
		})
		hardest := answered[0].QuestionText
		easiest := answered[len(answered)-1].QuestionText
		stats.MostDifficultQuestion = &hardest
		stats.EasiestQuestion = &easiest
	}
	return stats
}
