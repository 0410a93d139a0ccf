package app

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/scoring"
)

const (
	minTimeLimit = 5
	maxTimeLimit = 120
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// CatalogService manages users, quizzes and questions.
type CatalogService struct {
	store  Store
	cache  ContentCache
	logger *zap.Logger
	now    func() time.Time
}

// NewCatalogService builds the service. cache may be nil; when set, it is
// invalidated after every question or quiz change.
func NewCatalogService(store Store, cache ContentCache, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = uncachedContent{loader: NewContentLoader(store)}
	}
	return &CatalogService{store: store, cache: cache, logger: logger, now: time.Now}
}

// QuizInput creates a quiz. TimeLimit 0 means the default.
type QuizInput struct {
	UserID      int64
	Title       string
	Description string
	TimeLimit   int
}

// QuizUpdate changes a quiz. Nil fields are left untouched.
type QuizUpdate struct {
	Title       string
	Description *string
	TimeLimit   *int
}

// ImportRejection is a draft that could not be imported.
type ImportRejection struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportReport summarizes a bulk question import.
type ImportReport struct {
	Imported []domain.Question `json:"imported"`
	Rejected []ImportRejection `json:"rejected"`
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FindOrCreateUser returns the user for email, creating it when needed. New
// users with a locale get a demo quiz; a failure there is only logged.
func (c *CatalogService) FindOrCreateUser(ctx context.Context, email, locale string) (domain.User, bool, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return domain.User{}, false, domain.Validation("Email is required")
	}
	if !emailPattern.MatchString(email) {
		return domain.User{}, false, domain.Validation("Invalid email format")
	}

	var (
		user    domain.User
		created bool
	)
	err := c.store.Tx(ctx, func(ctx context.Context, r Repository) error {
		existing, err := r.GetUserByEmail(ctx, email)
		if err == nil {
			user = existing
			return nil
		}
		if !errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		user = domain.User{Email: email, CreatedAt: c.now().UTC()}
		created = true
		return r.CreateUser(ctx, &user)
	})
	if errors.Is(err, domain.ErrEmailTaken) {
		// lost a race with a concurrent signup
		user, err = c.GetUserByEmail(ctx, email)
		return user, false, err
	}
	if err != nil {
		return domain.User{}, false, err
	}

	if created && locale != "" {
		if _, err := c.CreateDemoQuiz(ctx, user.ID, locale); err != nil {
			c.logger.Warn("demo quiz creation failed", zap.Int64("user_id", user.ID), zap.Error(err))
		}
	}
	return user, created, nil
}

func (c *CatalogService) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var user domain.User
	err := c.store.View(ctx, func(ctx context.Context, r Repository) error {
		var err error
		user, err = r.GetUserByEmail(ctx, NormalizeEmail(email))
		return err
	})
	return user, err
}

// DeleteUser removes a user and everything they own.
func (c *CatalogService) DeleteUser(ctx context.Context, userID int64) error {
	return c.store.Tx(ctx, func(ctx context.Context, r Repository) error {
		return r.DeleteUser(ctx, userID)
	})
}

func (c *CatalogService) CreateQuiz(ctx context.Context, in QuizInput) (domain.Quiz, error) {
	title := sanitizeText(in.Title)
	if in.UserID <= 0 || title == "" {
		return domain.Quiz{}, domain.Validation("userId and title are required")
	}
	limit := in.TimeLimit
	if limit == 0 {
		limit = domain.DefaultTimeLimit
	}
	if err := validateTimeLimit(limit); err != nil {
		return domain.Quiz{}, err
	}

	now := c.now().UTC()
	quiz := domain.Quiz{
		UserID:      in.UserID,
		Title:       title,
		Description: sanitizeText(in.Description),
		TimeLimit:   limit,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := c.store.Tx(ctx, func(ctx context.Context, r Repository) error {
		if _, err := r.GetUser(ctx, in.UserID); err != nil {
			return err
		}
		return r.CreateQuiz(ctx, &quiz)
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

func (c *CatalogService) UpdateQuiz(ctx context.Context, quizID int64, in QuizUpdate) (domain.Quiz, error) {
	title := sanitizeText(in.Title)
	if title == "" {
		return domain.Quiz{}, domain.Validation("title is required")
	}
	if in.TimeLimit != nil {
		if err := validateTimeLimit(*in.TimeLimit); err != nil {
			return domain.Quiz{}, err
		}
	}

	var quiz domain.Quiz
	err := c.store.Tx(ctx, func(ctx context.Context, r Repository) error {
		var err error
		quiz, err = r.GetQuiz(ctx, quizID)
		if err != nil {
			return err
		}
		quiz.Title = title
		if in.Description != nil {
			quiz.Description = sanitizeText(*in.Description)
		}
		if in.TimeLimit != nil {
			quiz.TimeLimit = *in.TimeLimit
		}
		quiz.UpdatedAt = c.now().UTC()
		return r.UpdateQuiz(ctx, &quiz)
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	c.cache.Invalidate(ctx, quizID)
	return quiz, nil
}

func (c *CatalogService) GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := c.store.View(ctx, func(ctx context.Context, r Repository) error {
		var err error
		quiz, err = r.GetQuiz(ctx, quizID)
		return err
	})
	return quiz, err
}

// ListQuizzes returns a user's quizzes, most recently updated first.
func (c *CatalogService) ListQuizzes(ctx context.Context, userID int64) ([]domain.Quiz, error) {
	var quizzes []domain.Quiz
	err := c.store.View(ctx, func(ctx context.Context, r Repository) error {
		var err error
		quizzes, err = r.ListQuizzesByUser(ctx, userID)
		return err
	})
	return quizzes, err
}

func (c *CatalogService) DeleteQuiz(ctx context.Context, quizID int64) error {
	err := c.store.Tx(ctx, func(ctx context.Context, r Repository) error {
		return r.DeleteQuiz(ctx, quizID)
	})
	if err == nil {
		c.cache.Invalidate(ctx, quizID)
	}
	return err
}

// ListQuestions returns the quiz's questions in play order.
func (c *CatalogService) ListQuestions(ctx context.Context, quizID int64) ([]domain.Question, error) {
	var questions []domain.Question
	err := c.store.View(ctx, func(ctx context.Context, r Repository) error {
		if _, err := r.GetQuiz(ctx, quizID); err != nil {
			return err
		}
		var err error
		questions, err = r.ListQuestions(ctx, quizID)
		return err
	})
	return questions, err
}

// CreateQuestion validates draft and appends it to the end of the quiz.
func (c *CatalogService) CreateQuestion(ctx context.Context, quizID int64, draft domain.QuestionDraft) (domain.Question, error) {
	q, err := questionFromDraft(draft)
	if err != nil {
		return domain.Question{}, err
	}
	err = c.store.Tx(ctx, func(ctx context.Context, r Repository) error {
		return c.appendQuestion(ctx, r, quizID, &q)
	})
	if err != nil {
		return domain.Question{}, err
	}
	c.cache.Invalidate(ctx, quizID)
	return q, nil
}

func (c *CatalogService) appendQuestion(ctx context.Context, r Repository, quizID int64, q *domain.Question) error {
	if _, err := r.GetQuiz(ctx, quizID); err != nil {
		return err
	}
	maxIndex, err := r.MaxOrderIndex(ctx, quizID)
	if err != nil {
		return err
	}
	q.QuizID = quizID
	q.OrderIndex = maxIndex + 1
	q.CreatedAt = c.now().UTC()
	return r.CreateQuestion(ctx, q)
}

// UpdateQuestion replaces a question's content, keeping its position.
func (c *CatalogService) UpdateQuestion(ctx context.Context, quizID, questionID int64, draft domain.QuestionDraft) (domain.Question, error) {
	updated, err := questionFromDraft(draft)
	if err != nil {
		return domain.Question{}, err
	}
	var q domain.Question
	err = c.store.Tx(ctx, func(ctx context.Context, r Repository) error {
		var err error
		q, err = r.GetQuestion(ctx, questionID)
		if err != nil {
			return err
		}
		if q.QuizID != quizID {
			return domain.ErrQuestionNotFound
		}
		q.Text = updated.Text
		q.Type = updated.Type
		q.CorrectAnswer = updated.CorrectAnswer
		q.Options = updated.Options
		return r.UpdateQuestion(ctx, &q)
	})
	if err != nil {
		return domain.Question{}, err
	}
	c.cache.Invalidate(ctx, quizID)
	return q, nil
}

// DeleteQuestion removes a question and closes the gap in order_index.
func (c *CatalogService) DeleteQuestion(ctx context.Context, quizID, questionID int64) error {
	err := c.store.Tx(ctx, func(ctx context.Context, r Repository) error {
		q, err := r.GetQuestion(ctx, questionID)
		if err != nil {
			return err
		}
		if q.QuizID != quizID {
			return domain.ErrQuestionNotFound
		}
		if err := r.DeleteQuestion(ctx, questionID); err != nil {
			return err
		}
		remaining, err := r.ListQuestions(ctx, quizID)
		if err != nil {
			return err
		}
		for i, rest := range remaining {
			if rest.OrderIndex == i {
				continue
			}
			if err := r.SetOrderIndex(ctx, rest.ID, i); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		c.cache.Invalidate(ctx, quizID)
	}
	return err
}

// ReorderQuestions rewrites every order_index in one transaction. ids must
// be a permutation of the quiz's question ids.
func (c *CatalogService) ReorderQuestions(ctx context.Context, quizID int64, ids []int64) ([]domain.Question, error) {
	var questions []domain.Question
	err := c.store.Tx(ctx, func(ctx context.Context, r Repository) error {
		current, err := r.ListQuestions(ctx, quizID)
		if err != nil {
			return err
		}
		if len(ids) != len(current) {
			return domain.Validation("questionIds must list every question of the quiz exactly once")
		}
		known := make(map[int64]bool, len(current))
		for _, q := range current {
			known[q.ID] = true
		}
		for _, id := range ids {
			if !known[id] {
				return domain.Validation("questionIds must list every question of the quiz exactly once")
			}
			delete(known, id)
		}
		for i, id := range ids {
			if err := r.SetOrderIndex(ctx, id, i); err != nil {
				return err
			}
		}
		questions, err = r.ListQuestions(ctx, quizID)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.cache.Invalidate(ctx, quizID)
	return questions, nil
}

// ImportQuestions appends every valid draft in one transaction and reports
// the rest by row.
func (c *CatalogService) ImportQuestions(ctx context.Context, quizID int64, drafts []domain.QuestionDraft) (ImportReport, error) {
	report := ImportReport{Imported: []domain.Question{}, Rejected: []ImportRejection{}}
	valid := make([]domain.Question, 0, len(drafts))
	for _, d := range drafts {
		q, err := questionFromDraft(d)
		if err != nil {
			report.Rejected = append(report.Rejected, ImportRejection{Row: d.Row, Reason: errorMessage(err)})
			continue
		}
		valid = append(valid, q)
	}

	err := c.store.Tx(ctx, func(ctx context.Context, r Repository) error {
		for i := range valid {
			if err := c.appendQuestion(ctx, r, quizID, &valid[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ImportReport{}, err
	}
	report.Imported = append(report.Imported, valid...)
	if len(valid) > 0 {
		c.cache.Invalidate(ctx, quizID)
	}
	c.logger.Info("questions imported",
		zap.Int64("quiz_id", quizID),
		zap.Int("imported", len(report.Imported)),
		zap.Int("rejected", len(report.Rejected)),
	)
	return report, nil
}

func validateTimeLimit(limit int) error {
	if limit < minTimeLimit || limit > maxTimeLimit {
		return domain.Validationf("timeLimit must be between %d and %d seconds", minTimeLimit, maxTimeLimit)
	}
	return nil
}

// questionFromDraft checks the correct-answer encoding required by the type.
func questionFromDraft(d domain.QuestionDraft) (domain.Question, error) {
	text := sanitizeText(d.Text)
	correct := strings.TrimSpace(d.CorrectAnswer)
	if text == "" || d.Type == "" || correct == "" {
		return domain.Question{}, domain.Validation("questionText, questionType, and correctAnswer are required")
	}
	if !d.Type.Valid() {
		return domain.Question{}, domain.Validation("Invalid question type. Must be one of: true_false, mcq, number, free_text, multiple_mcq")
	}

	q := domain.Question{Text: text, Type: d.Type, CorrectAnswer: correct}
	if d.Type.HasOptions() {
		if len(d.Options) != domain.McqOptionCount {
			return domain.Question{}, domain.Validationf("MCQ questions require exactly %d options", domain.McqOptionCount)
		}
		options := make([]string, len(d.Options))
		for i, o := range d.Options {
			options[i] = strings.TrimSpace(o)
			if options[i] == "" {
				return domain.Question{}, domain.Validation("MCQ options must not be empty")
			}
		}
		q.Options = options
	}

	switch d.Type {
	case domain.QuestionTrueFalse:
		lower := strings.ToLower(correct)
		if lower != "true" && lower != "false" {
			return domain.Question{}, domain.Validation(`True/False questions must have "true" or "false" as the correct answer`)
		}
	case domain.QuestionNumber:
		if _, ok := scoring.ParseNumber(correct); !ok {
			return domain.Question{}, domain.Validation("Number questions need a numeric correct answer")
		}
	case domain.QuestionMCQ:
		if !hasOption(q.Options, correct) {
			return domain.Question{}, domain.Validation("The correct answer must be one of the options")
		}
	case domain.QuestionMultipleMCQ:
		choices, ok := scoring.ParseChoices(correct)
		if !ok || len(choices) == 0 {
			return domain.Question{}, domain.Validation("Multiple choice answers must be a JSON array of options")
		}
		for _, choice := range choices {
			if !hasOption(q.Options, choice) {
				return domain.Question{}, domain.Validation("Every correct choice must be one of the options")
			}
		}
	}
	return q, nil
}

func hasOption(options []string, value string) bool {
	want := scoring.Normalize(value)
	for _, o := range options {
		if scoring.Normalize(o) == want {
			return true
		}
	}
	return false
}

func errorMessage(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
