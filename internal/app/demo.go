package app

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"live-quiz-service/internal/domain"
)

const demoTimeLimit = 15

type demoQuiz struct {
	title       string
	description string
	questions   []domain.QuestionDraft
}

var demoQuizzes = map[string]demoQuiz{
	"en": {
		title:       "Demo Quiz",
		description: "A sample quiz showing every question type.",
		questions: []domain.QuestionDraft{
			{Text: "The Earth orbits the Sun.", Type: domain.QuestionTrueFalse, CorrectAnswer: "true"},
			{Text: "What is the capital of France?", Type: domain.QuestionMCQ, CorrectAnswer: "Paris", Options: []string{"London", "Paris", "Berlin", "Madrid"}},
			{Text: "Which of these are primary colors?", Type: domain.QuestionMultipleMCQ, CorrectAnswer: `["Red","Blue"]`, Options: []string{"Red", "Green", "Blue", "Purple"}},
			{Text: "In what year did the Berlin Wall fall?", Type: domain.QuestionNumber, CorrectAnswer: "1989"},
			{Text: "Which planet is known as the Red Planet?", Type: domain.QuestionFreeText, CorrectAnswer: "Mars"},
		},
	},
	"fr": {
		title:       "Quiz de démonstration",
		description: "Un quiz d'exemple avec chaque type de question.",
		questions: []domain.QuestionDraft{
			{Text: "La Terre tourne autour du Soleil.", Type: domain.QuestionTrueFalse, CorrectAnswer: "true"},
			{Text: "Quelle est la capitale de la France ?", Type: domain.QuestionMCQ, CorrectAnswer: "Paris", Options: []string{"Londres", "Paris", "Berlin", "Madrid"}},
			{Text: "Lesquelles sont des couleurs primaires ?", Type: domain.QuestionMultipleMCQ, CorrectAnswer: `["Rouge","Bleu"]`, Options: []string{"Rouge", "Vert", "Bleu", "Violet"}},
			{Text: "En quelle année le mur de Berlin est-il tombé ?", Type: domain.QuestionNumber, CorrectAnswer: "1989"},
			{Text: "Quelle planète est surnommée la planète rouge ?", Type: domain.QuestionFreeText, CorrectAnswer: "Mars"},
		},
	},
}

// DemoLocale maps a locale tag such as "fr-CA" to a supported demo locale.
func DemoLocale(locale string) string {
	base := strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(base, "-_"); i >= 0 {
		base = base[:i]
	}
	if _, ok := demoQuizzes[base]; ok {
		return base
	}
	return "en"
}

// CreateDemoQuiz gives userID a ready-to-play quiz in their locale.
func (c *CatalogService) CreateDemoQuiz(ctx context.Context, userID int64, locale string) (domain.Quiz, error) {
	demo := demoQuizzes[DemoLocale(locale)]
	quiz, err := c.CreateQuiz(ctx, QuizInput{
		UserID:      userID,
		Title:       demo.title,
		Description: demo.description,
		TimeLimit:   demoTimeLimit,
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	for i, draft := range demo.questions {
		draft.Row = i + 1
		if _, err := c.CreateQuestion(ctx, quiz.ID, draft); err != nil {
			return domain.Quiz{}, err
		}
	}
	c.logger.Info("demo quiz created", zap.Int64("user_id", userID), zap.Int64("quiz_id", quiz.ID))
	return quiz, nil
}
