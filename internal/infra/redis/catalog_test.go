package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"live-quiz-service/internal/domain"
)

func TestCatalogCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{content: sampleContent()}
	catalog := NewCatalog(newClient(mr), loader, time.Minute)

	if _, err := catalog.Content(context.Background(), 1); err != nil {
		t.Fatalf("content: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("quiz:1:content") {
		t.Fatalf("expected content key in redis")
	}

	// a second instance sharing the same redis reads the cached copy
	other := NewCatalog(newClient(mr), loader, time.Minute)
	got, err := other.Content(context.Background(), 1)
	if err != nil {
		t.Fatalf("content from cache: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(got.Questions) != 1 || got.Questions[0].CorrectAnswer != "4" || got.Quiz.TimeLimit != 10 {
		t.Fatalf("unexpected cached content %+v", got)
	}
}

func TestCatalogInvalidateDeletesKey(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{content: sampleContent()}
	catalog := NewCatalog(newClient(mr), loader, time.Minute)
	if _, err := catalog.Content(context.Background(), 1); err != nil {
		t.Fatalf("content: %v", err)
	}

	catalog.Invalidate(context.Background(), 1)
	if mr.Exists("quiz:1:content") {
		t.Fatalf("expected content key removed")
	}
	if _, err := catalog.Content(context.Background(), 1); err != nil {
		t.Fatalf("content: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
}

func TestCatalogSetsTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	catalog := NewCatalog(newClient(mr), &countingLoader{content: sampleContent()}, time.Minute)
	if _, err := catalog.Content(context.Background(), 1); err != nil {
		t.Fatalf("content: %v", err)
	}
	ttl := mr.TTL("quiz:1:content")
	if ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("expected ttl within jitter bounds, got %v", ttl)
	}
}

type countingLoader struct {
	content domain.QuizContent
	calls   int
}

func (l *countingLoader) LoadContent(_ context.Context, quizID int64) (domain.QuizContent, error) {
	l.calls++
	if quizID != l.content.Quiz.ID {
		return domain.QuizContent{}, domain.ErrQuizNotFound
	}
	return l.content, nil
}

func sampleContent() domain.QuizContent {
	return domain.QuizContent{
		Quiz: domain.Quiz{ID: 1, Title: "Arithmetic", TimeLimit: 10},
		Questions: []domain.Question{
			{ID: 2, QuizID: 1, Text: "2 + 2?", Type: domain.QuestionNumber, CorrectAnswer: "4"},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}
