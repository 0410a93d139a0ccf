package http

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

type answerList[T any] struct {
	Answers []T `json:"answers"`
}

func pathf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", nil)
	expectStatus(t, rec, http.StatusOK)
	if rec.Body.String() != "ok" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestFindOrCreateUserStatus(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/users", map[string]any{"email": " Ada@Example.com "})
	expectStatus(t, rec, http.StatusCreated)
	first := decode[userResponse](t, rec)
	if !first.Created || first.User.Email != "ada@example.com" {
		t.Fatalf("unexpected user %+v", first)
	}

	rec = env.do(t, http.MethodPost, "/api/users", map[string]any{"email": "ada@example.com"})
	expectStatus(t, rec, http.StatusOK)
	if again := decode[userResponse](t, rec); again.Created || again.User.ID != first.User.ID {
		t.Fatalf("expected existing user, got %+v", again)
	}

	rec = env.do(t, http.MethodPost, "/api/users", map[string]any{"email": "not-an-email"})
	expectError(t, rec, http.StatusBadRequest, "validation_error")

	rec = env.do(t, http.MethodGet, "/api/users?email=missing@example.com", nil)
	expectError(t, rec, http.StatusNotFound, "user_not_found")
}

func TestGameFlowOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	_, question, game := env.seedGame(t)
	gamePath := pathf("/api/games/%d", game.ID)

	rec := env.do(t, http.MethodGet, "/api/games?pinCode="+*game.PIN, nil)
	expectStatus(t, rec, http.StatusOK)
	if found := decode[domain.Game](t, rec); found.ID != game.ID {
		t.Fatalf("pin lookup returned game %d", found.ID)
	}

	rec = env.do(t, http.MethodPost, "/api/players", map[string]any{"pinCode": *game.PIN, "name": "Ada"})
	expectStatus(t, rec, http.StatusCreated)
	joined := decode[app.JoinResult](t, rec)
	if joined.Game.PINCode != *game.PIN || joined.Quiz == nil || joined.Quiz.Title != "Basics" {
		t.Fatalf("unexpected join result %+v", joined)
	}

	rec = env.do(t, http.MethodPut, gamePath, map[string]any{"action": "next_question"})
	expectError(t, rec, http.StatusBadRequest, "game_not_started")

	rec = env.do(t, http.MethodPut, gamePath, map[string]any{"action": "start"})
	expectStatus(t, rec, http.StatusOK)

	rec = env.do(t, http.MethodPut, gamePath, map[string]any{"action": "next_question"})
	expectStatus(t, rec, http.StatusOK)
	transition := decode[app.Transition](t, rec)
	if transition.Question == nil || transition.Question.ID != question.ID {
		t.Fatalf("expected first question, got %+v", transition)
	}

	env.clock.Advance(2 * time.Second)
	answer := map[string]any{"playerId": joined.Player.ID, "questionId": question.ID, "answer": "true", "responseTimeMs": 1}
	rec = env.do(t, http.MethodPost, "/api/players/answer", answer)
	expectStatus(t, rec, http.StatusOK)
	receipt := decode[app.Submission](t, rec)
	if receipt.Answer.IsCorrect != nil || receipt.Answer.PointsEarned != nil {
		t.Fatalf("correctness leaked before reveal: %+v", receipt.Answer)
	}
	if receipt.Answer.ResponseTimeMs != 2000 {
		t.Fatalf("expected server-measured 2000ms, got %d", receipt.Answer.ResponseTimeMs)
	}

	rec = env.do(t, http.MethodPost, "/api/players/answer", answer)
	expectError(t, rec, http.StatusBadRequest, "already_answered")

	rec = env.do(t, http.MethodGet, pathf("/api/players?playerId=%d", joined.Player.ID), nil)
	expectStatus(t, rec, http.StatusOK)
	if view := decode[app.PlayerState](t, rec); view.Revealed || view.PlayerAnswer == nil || view.PlayerAnswer.IsCorrect != nil {
		t.Fatalf("player view revealed too early: %+v", view)
	}

	history := pathf("/api/players/answers?playerId=%d", joined.Player.ID)
	rec = env.do(t, http.MethodGet, history, nil)
	expectStatus(t, rec, http.StatusOK)
	if own := decode[answerList[app.AnswerView]](t, rec); len(own.Answers) != 1 || own.Answers[0].IsCorrect != nil {
		t.Fatalf("answer history revealed too early: %+v", own)
	}

	rec = env.do(t, http.MethodGet, pathf("%s/answers?questionId=%d", gamePath, question.ID), nil)
	expectStatus(t, rec, http.StatusOK)
	if ledger := decode[answerList[domain.Answer]](t, rec); len(ledger.Answers) != 1 || !ledger.Answers[0].IsCorrect {
		t.Fatalf("unexpected host ledger %+v", ledger)
	}

	rec = env.do(t, http.MethodPut, gamePath, map[string]any{"action": "show_results"})
	expectStatus(t, rec, http.StatusOK)
	if results := decode[app.RoundResults](t, rec); results.CorrectAnswer != "true" || len(results.Answers) != 1 {
		t.Fatalf("unexpected round results %+v", results)
	}

	rec = env.do(t, http.MethodPut, gamePath, map[string]any{"action": "finish"})
	expectStatus(t, rec, http.StatusOK)

	rec = env.do(t, http.MethodGet, history, nil)
	expectStatus(t, rec, http.StatusOK)
	if own := decode[answerList[app.AnswerView]](t, rec); len(own.Answers) != 1 || own.Answers[0].IsCorrect == nil || !*own.Answers[0].IsCorrect {
		t.Fatalf("answer history not revealed after finish: %+v", own)
	}

	rec = env.do(t, http.MethodGet, gamePath+"/results", nil)
	expectStatus(t, rec, http.StatusOK)
	results := decode[app.GameResults](t, rec)
	if results.TotalQuestions != 1 || len(results.Players) != 1 || results.Players[0].Score <= 0 {
		t.Fatalf("unexpected results %+v", results)
	}

	rec = env.do(t, http.MethodGet, "/api/games?pinCode="+*game.PIN, nil)
	expectError(t, rec, http.StatusNotFound, "pin_not_found")

	rec = env.do(t, http.MethodGet, "/api/stats", nil)
	expectStatus(t, rec, http.StatusOK)
	if stats := decode[domain.GlobalStats](t, rec); stats.TotalGames != 1 || stats.TotalCorrectAnswers != 1 {
		t.Fatalf("unexpected global stats %+v", stats)
	}
}

func TestRequestValidation(t *testing.T) {
	env := newTestEnv(t)
	_, _, game := env.seedGame(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"unknown action", http.MethodPut, pathf("/api/games/%d", game.ID), map[string]any{"action": "explode"}, http.StatusBadRequest, "validation_error"},
		{"bad game id", http.MethodGet, "/api/games/abc", nil, http.StatusBadRequest, "validation_error"},
		{"missing game", http.MethodGet, "/api/games/999", nil, http.StatusNotFound, "game_not_found"},
		{"short pin", http.MethodGet, "/api/games?pinCode=12", nil, http.StatusBadRequest, "validation_error"},
		{"no lookup key", http.MethodGet, "/api/games", nil, http.StatusBadRequest, "validation_error"},
		{"bad question type", http.MethodPost, pathf("/api/quizzes/%d/questions", game.QuizID), map[string]any{
			"questionText": "?", "questionType": "essay", "correctAnswer": "x",
		}, http.StatusBadRequest, "validation_error"},
		{"join missing name", http.MethodPost, "/api/players", map[string]any{"pinCode": *game.PIN}, http.StatusBadRequest, "validation_error"},
		{"missing player", http.MethodGet, "/api/players?playerId=404", nil, http.StatusNotFound, "player_not_found"},
		{"history without player", http.MethodGet, "/api/players/answers", nil, http.StatusBadRequest, "validation_error"},
		{"ledger without question", http.MethodGet, pathf("/api/games/%d/answers", game.ID), nil, http.StatusBadRequest, "validation_error"},
		{"ledger of missing game", http.MethodGet, "/api/games/999/answers?questionId=1", nil, http.StatusNotFound, "game_not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, tc.method, tc.path, tc.body)
			expectError(t, rec, tc.status, tc.code)
		})
	}

	rec := env.do(t, http.MethodGet, "/api/games?pinCode=12", nil)
	if body := decode[ErrorResponse](t, rec); !strings.Contains(body.Message, "6 digits") {
		t.Fatalf("expected pin message, got %q", body.Message)
	}
}

func TestQuestionReorderAndDelete(t *testing.T) {
	env := newTestEnv(t)
	quiz, first, _ := env.seedGame(t)
	questionsPath := pathf("/api/quizzes/%d/questions", quiz.ID)

	rec := env.do(t, http.MethodPost, questionsPath, map[string]any{
		"questionText": "Pick a prime", "questionType": "mcq", "correctAnswer": "7",
		"options": []string{"4", "6", "7", "9"},
	})
	expectStatus(t, rec, http.StatusCreated)
	second := decode[domain.Question](t, rec)

	rec = env.do(t, http.MethodPut, questionsPath, map[string]any{"reorder": true, "questionIds": []int64{second.ID, first.ID}})
	expectStatus(t, rec, http.StatusOK)
	ordered := decode[[]domain.Question](t, rec)
	if ordered[0].ID != second.ID || ordered[0].OrderIndex != 0 || ordered[1].OrderIndex != 1 {
		t.Fatalf("unexpected order %+v", ordered)
	}

	rec = env.do(t, http.MethodPut, questionsPath, map[string]any{
		"questionId": first.ID, "questionText": "The sea is blue", "questionType": "true_false", "correctAnswer": "TRUE",
	})
	expectStatus(t, rec, http.StatusOK)

	rec = env.do(t, http.MethodDelete, questionsPath+pathf("?questionId=%d", second.ID), nil)
	expectStatus(t, rec, http.StatusOK)

	rec = env.do(t, http.MethodGet, questionsPath, nil)
	left := decode[[]domain.Question](t, rec)
	if len(left) != 1 || left[0].ID != first.ID || left[0].OrderIndex != 0 || left[0].Text != "The sea is blue" {
		t.Fatalf("unexpected questions after delete %+v", left)
	}
}

func TestImportAndExport(t *testing.T) {
	env := newTestEnv(t)
	quiz, _, game := env.seedGame(t)

	sheet := excelize.NewFile()
	rows := [][]any{
		{"text", "type", "correct", "opt1", "opt2", "opt3", "opt4"},
		{"Largest planet", "mcq", "Jupiter", "Mars", "Jupiter", "Venus", "Earth"},
		{"Broken", "essay", "?"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := sheet.SetSheetRow(sheet.GetSheetName(0), cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	var xlsx bytes.Buffer
	if err := sheet.Write(&xlsx); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "questions.xlsx")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := part.Write(xlsx.Bytes()); err != nil {
		t.Fatalf("write part: %v", err)
	}
	form.Close()

	req := httptest.NewRequest(http.MethodPost, pathf("/api/quizzes/%d/import", quiz.ID), &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusOK)
	report := decode[app.ImportReport](t, rec)
	if len(report.Imported) != 1 || len(report.Rejected) != 1 || report.Rejected[0].Row != 3 {
		t.Fatalf("unexpected import report %+v", report)
	}

	rec = env.do(t, http.MethodGet, pathf("/api/games/%d/export", game.ID), nil)
	expectStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Fatalf("unexpected content type %q", ct)
	}
	exported, err := excelize.OpenReader(rec.Body)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer exported.Close()
	if got := exported.GetSheetList(); len(got) != 2 {
		t.Fatalf("expected two sheets, got %v", got)
	}
}

func TestMiddleware(t *testing.T) {
	env := newTestEnv(t)
	env.router.GET("/boom", func(*gin.Context) { panic("kaboom") })

	rec := env.do(t, http.MethodGet, "/boom", nil)
	expectError(t, rec, http.StatusInternalServerError, "internal_error")
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "req-42" {
		t.Fatalf("expected propagated request id, got %q", got)
	}
}
