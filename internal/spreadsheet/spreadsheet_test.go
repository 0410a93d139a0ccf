package spreadsheet

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"live-quiz-service/internal/domain"
)

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		start, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, start, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return &buf
}

func TestReadQuestions(t *testing.T) {
	buf := workbook(t, [][]any{
		{"text", "type", "correct", "opt1", "opt2", "opt3", "opt4"},
		{"Capital of France?", "MCQ", "Paris", "Paris", "Rome", "Berlin", "Madrid"},
		{},
		{" Earth is flat ", "true_false", "false"},
		{"Year the Berlin wall fell", "number", "1989"},
	})

	drafts, err := ReadQuestions(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(drafts) != 3 {
		t.Fatalf("expected 3 drafts, got %d", len(drafts))
	}

	mcq := drafts[0]
	if mcq.Row != 2 || mcq.Type != domain.QuestionMCQ || len(mcq.Options) != 4 || mcq.Options[3] != "Madrid" {
		t.Fatalf("unexpected mcq draft: %+v", mcq)
	}
	tf := drafts[1]
	if tf.Row != 4 || tf.Text != "Earth is flat" || tf.Options != nil {
		t.Fatalf("unexpected true_false draft: %+v", tf)
	}
	if drafts[2].CorrectAnswer != "1989" || drafts[2].Row != 5 {
		t.Fatalf("unexpected number draft: %+v", drafts[2])
	}
}

func TestReadQuestionsRejectsGarbage(t *testing.T) {
	_, err := ReadQuestions(strings.NewReader("not a workbook"))
	if domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	var de *domain.Error
	if !errors.As(err, &de) {
		t.Fatalf("expected domain error, got %T", err)
	}
}

func TestWriteGameReport(t *testing.T) {
	report := domain.GameReport{
		Game:      domain.Game{ID: 7},
		QuizTitle: "Geography",
		Players: []domain.Player{
			{ID: 1, Name: "Ada", Score: 1800},
			{ID: 2, Name: "Linus", Score: 950},
		},
		Stats: domain.GameStats{
			TotalPlayers: 2,
			QuestionStats: []domain.QuestionStat{
				{QuestionID: 10, QuestionText: "Capital of France?", CorrectAnswers: 2, TotalAnswers: 2, AverageResponseTime: 2500},
			},
		},
	}

	var buf bytes.Buffer
	if err := WriteGameReport(&buf, report); err != nil {
		t.Fatalf("write report: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer f.Close()

	board, err := f.GetRows(LeaderboardSheet)
	if err != nil {
		t.Fatalf("leaderboard rows: %v", err)
	}
	if len(board) != 4 {
		t.Fatalf("expected title, header and 2 players, got %d rows", len(board))
	}
	if board[0][0] != "Geography (game 7)" {
		t.Fatalf("unexpected title %q", board[0][0])
	}
	if board[2][1] != "Ada" || board[2][2] != "1800" || board[3][0] != "2" {
		t.Fatalf("unexpected leaderboard rows: %v", board[2:])
	}

	questions, err := f.GetRows(QuestionsSheet)
	if err != nil {
		t.Fatalf("question rows: %v", err)
	}
	if len(questions) != 2 || questions[1][1] != "Capital of France?" || questions[1][2] != "2" {
		t.Fatalf("unexpected question rows: %v", questions)
	}
}
