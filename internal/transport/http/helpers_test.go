package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/infra/memory"
	"live-quiz-service/internal/notify"
)

var epoch = time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	router  *gin.Engine
	games   *app.GameService
	catalog *app.CatalogService
	hub     *notify.Hub
	clock   *testClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	hub := notify.NewHub()
	clock := &testClock{now: epoch}
	games := app.NewGameService(store, app.WithNotifier(hub), app.WithClock(clock.Now))
	catalog := app.NewCatalogService(store, nil, zap.NewNop())
	router := NewRouter(Deps{
		Games:    games,
		Catalog:  catalog,
		Reporter: app.NewReporter(store, store),
		Hub:      hub,
		Logger:   zap.NewNop(),
	})
	return &testEnv{router: router, games: games, catalog: catalog, hub: hub, clock: clock}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) ErrorResponse {
	t.Helper()
	expectStatus(t, rec, status)
	body := decode[ErrorResponse](t, rec)
	if body.Error != code {
		t.Fatalf("expected error %q, got %q (%s)", code, body.Error, body.Message)
	}
	return body
}

// seedGame creates a user, a one-question true/false quiz and a waiting game.
func (e *testEnv) seedGame(t *testing.T) (domain.Quiz, domain.Question, domain.Game) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/users", map[string]any{"email": "host@example.com"})
	expectStatus(t, rec, http.StatusCreated)
	user := decode[userResponse](t, rec).User

	rec = e.do(t, http.MethodPost, "/api/quizzes", map[string]any{"userId": user.ID, "title": "Basics"})
	expectStatus(t, rec, http.StatusCreated)
	quiz := decode[domain.Quiz](t, rec)

	rec = e.do(t, http.MethodPost, pathf("/api/quizzes/%d/questions", quiz.ID), map[string]any{
		"questionText":  "The sky is blue",
		"questionType":  "true_false",
		"correctAnswer": "true",
	})
	expectStatus(t, rec, http.StatusCreated)
	question := decode[domain.Question](t, rec)

	rec = e.do(t, http.MethodPost, "/api/games", map[string]any{"quizId": quiz.ID})
	expectStatus(t, rec, http.StatusCreated)
	game := decode[domain.Game](t, rec)
	if game.PIN == nil {
		t.Fatalf("new game has no PIN")
	}
	return quiz, question, game
}
