// Package spreadsheet reads question sheets and writes game reports as XLSX workbooks.
package spreadsheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"live-quiz-service/internal/domain"
)

const (
	LeaderboardSheet = "Leaderboard"
	QuestionsSheet   = "Questions"
)

// Column layout of an import sheet: text | type | correct | opt1..opt4.
const (
	colText = iota
	colType
	colCorrect
	colFirstOption
)

// ReadQuestions parses the first sheet of an XLSX workbook into drafts.
// The header row and blank rows are skipped; Row holds the 1-based sheet row.
func ReadQuestions(r io.Reader) ([]domain.QuestionDraft, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, domain.Validationf("unreadable spreadsheet: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.Validation("spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	drafts := make([]domain.QuestionDraft, 0, len(rows))
	for i, row := range rows {
		if i == 0 || blank(row) {
			continue
		}
		draft := domain.QuestionDraft{
			Row:           i + 1,
			Text:          cell(row, colText),
			Type:          domain.QuestionType(strings.ToLower(cell(row, colType))),
			CorrectAnswer: cell(row, colCorrect),
		}
		for c := colFirstOption; c < colFirstOption+domain.McqOptionCount; c++ {
			if opt := cell(row, c); opt != "" {
				draft.Options = append(draft.Options, opt)
			}
		}
		drafts = append(drafts, draft)
	}
	return drafts, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// WriteGameReport writes a workbook with a Leaderboard and a Questions sheet.
func WriteGameReport(w io.Writer, report domain.GameReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), LeaderboardSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(QuestionsSheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	title := fmt.Sprintf("%s (game %d)", report.QuizTitle, report.Game.ID)
	leaderboard := [][]any{
		{title},
		{"Rank", "Player", "Score"},
	}
	for i, p := range report.Players {
		leaderboard = append(leaderboard, []any{i + 1, p.Name, p.Score})
	}
	if err := writeRows(f, LeaderboardSheet, leaderboard); err != nil {
		return err
	}
	if err := f.SetCellStyle(LeaderboardSheet, "A1", "C2", bold); err != nil {
		return err
	}

	questions := [][]any{
		{"#", "Question", "Correct answers", "Total answers", "Average response (ms)"},
	}
	for i, qs := range report.Stats.QuestionStats {
		questions = append(questions, []any{i + 1, qs.QuestionText, qs.CorrectAnswers, qs.TotalAnswers, qs.AverageResponseTime})
	}
	if err := writeRows(f, QuestionsSheet, questions); err != nil {
		return err
	}
	if err := f.SetCellStyle(QuestionsSheet, "A1", "E1", bold); err != nil {
		return err
	}

	return f.Write(w)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		start, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, start, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
