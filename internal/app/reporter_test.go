package app_test

import (
	"testing"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

func TestGameStatsPicksHardestAndEasiest(t *testing.T) {
	f := newFixture(t)
	quiz, qs := f.quiz(t, trueFalse("Easy one", "true"), trueFalse("Hard one", "false"))
	game := f.game(t, quiz.ID)
	ann := f.join(t, game, "Ann")
	ben := f.join(t, game, "Ben")
	f.start(t, game.ID)

	f.advance(t, game.ID)
	f.submit(t, ann.ID, qs[0].ID, "true")
	f.submit(t, ben.ID, qs[0].ID, "true")
	f.advance(t, game.ID)
	f.submit(t, ann.ID, qs[1].ID, "false")
	f.submit(t, ben.ID, qs[1].ID, "true")
	f.advance(t, game.ID)

	stats, err := f.reporter.GameStats(f.ctx, game.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalPlayers != 2 || stats.AverageScore != 1500 {
		t.Fatalf("unexpected totals %+v", stats)
	}
	if stats.MostDifficultQuestion == nil || *stats.MostDifficultQuestion != "Hard one" {
		t.Fatalf("unexpected hardest %v", stats.MostDifficultQuestion)
	}
	if stats.EasiestQuestion == nil || *stats.EasiestQuestion != "Easy one" {
		t.Fatalf("unexpected easiest %v", stats.EasiestQuestion)
	}
	if stats.QuestionStats[1].CorrectAnswers != 1 || stats.QuestionStats[1].TotalAnswers != 2 {
		t.Fatalf("unexpected question stats %+v", stats.QuestionStats[1])
	}

	global, err := f.reporter.GlobalStats(f.ctx)
	if err != nil {
		t.Fatalf("global: %v", err)
	}
	if global.TotalAnswers != 4 || global.TotalCorrectAnswers != 3 || global.TotalPlayers != 2 || global.TotalGames != 1 {
		t.Fatalf("unexpected global stats %+v", global)
	}

	results, err := f.reporter.GameResults(f.ctx, game.ID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if results.TotalQuestions != 2 || results.Players[0].Name != "Ann" || results.Players[0].Score != 2000 {
		t.Fatalf("unexpected results %+v", results)
	}

	report, err := f.reporter.GameReport(f.ctx, game.ID)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.QuizTitle != quiz.Title || len(report.Players) != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestComputeGameStatsWithoutAnswers(t *testing.T) {
	questions := []domain.Question{{ID: 1, Text: "Unplayed"}}
	stats := app.ComputeGameStats(nil, questions, map[int64][]domain.Answer{})
	if stats.TotalPlayers != 0 || stats.AverageScore != 0 {
		t.Fatalf("unexpected totals %+v", stats)
	}
	if stats.MostDifficultQuestion != nil || stats.EasiestQuestion != nil {
		t.Fatalf("unanswered questions must not be labelled")
	}
	if len(stats.QuestionStats) != 1 || stats.QuestionStats[0].TotalAnswers != 0 {
		t.Fatalf("unexpected question stats %+v", stats.QuestionStats)
	}
}
