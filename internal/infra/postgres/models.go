package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"live-quiz-service/internal/domain"
)

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Email     string    `bun:"email,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func (r userRow) toDomain() domain.User {
	return domain.User{ID: r.ID, Email: r.Email, CreatedAt: r.CreatedAt}
}

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes,alias:q"`

	ID          int64     `bun:"id,pk,autoincrement"`
	UserID      int64     `bun:"user_id,notnull"`
	Title       string    `bun:"title,notnull"`
	Description string    `bun:"description,notnull"`
	TimeLimit   int       `bun:"time_limit,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}

func newQuizRow(q domain.Quiz) quizRow {
	return quizRow{
		ID:          q.ID,
		UserID:      q.UserID,
		Title:       q.Title,
		Description: q.Description,
		TimeLimit:   q.TimeLimit,
		CreatedAt:   q.CreatedAt,
		UpdatedAt:   q.UpdatedAt,
	}
}

func (r quizRow) toDomain() domain.Quiz {
	return domain.Quiz{
		ID:          r.ID,
		UserID:      r.UserID,
		Title:       r.Title,
		Description: r.Description,
		TimeLimit:   r.TimeLimit,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:qn"`

	ID            int64     `bun:"id,pk,autoincrement"`
	QuizID        int64     `bun:"quiz_id,notnull"`
	Text          string    `bun:"question_text,notnull"`
	Type          string    `bun:"question_type,notnull"`
	CorrectAnswer string    `bun:"correct_answer,notnull"`
	Options       []string  `bun:"options,type:jsonb"`
	OrderIndex    int       `bun:"order_index,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

func newQuestionRow(q domain.Question) questionRow {
	return questionRow{
		ID:            q.ID,
		QuizID:        q.QuizID,
		Text:          q.Text,
		Type:          string(q.Type),
		CorrectAnswer: q.CorrectAnswer,
		Options:       q.Options,
		OrderIndex:    q.OrderIndex,
		CreatedAt:     q.CreatedAt,
	}
}

func (r questionRow) toDomain() domain.Question {
	return domain.Question{
		ID:            r.ID,
		QuizID:        r.QuizID,
		Text:          r.Text,
		Type:          domain.QuestionType(r.Type),
		CorrectAnswer: r.CorrectAnswer,
		Options:       r.Options,
		OrderIndex:    r.OrderIndex,
		CreatedAt:     r.CreatedAt,
	}
}

type gameRow struct {
	bun.BaseModel `bun:"table:games,alias:g"`

	ID                   int64      `bun:"id,pk,autoincrement"`
	QuizID               int64      `bun:"quiz_id,notnull"`
	PIN                  *string    `bun:"pin_code"`
	LastPIN              string     `bun:"last_pin_code,notnull"`
	Status               string     `bun:"status,notnull"`
	CurrentQuestionIndex int        `bun:"current_question_index,notnull"`
	QuestionStartedAt    *time.Time `bun:"question_started_at"`
	CreatedAt            time.Time  `bun:"created_at,notnull"`
}

func newGameRow(g domain.Game) gameRow {
	return gameRow{
		ID:                   g.ID,
		QuizID:               g.QuizID,
		PIN:                  g.PIN,
		LastPIN:              g.LastPIN,
		Status:               string(g.Status),
		CurrentQuestionIndex: g.CurrentQuestionIndex,
		QuestionStartedAt:    g.QuestionStartedAt,
		CreatedAt:            g.CreatedAt,
	}
}

func (r gameRow) toDomain() domain.Game {
	return domain.Game{
		ID:                   r.ID,
		QuizID:               r.QuizID,
		PIN:                  r.PIN,
		LastPIN:              r.LastPIN,
		Status:               domain.GameStatus(r.Status),
		CurrentQuestionIndex: r.CurrentQuestionIndex,
		QuestionStartedAt:    utcPtr(r.QuestionStartedAt),
		CreatedAt:            r.CreatedAt.UTC(),
	}
}

// gameSummaryRow is a games row plus the columns ListGamesByOwner joins in.
type gameSummaryRow struct {
	gameRow     `bun:",extend"`
	QuizTitle   string `bun:"quiz_title"`
	PlayerCount int    `bun:"player_count"`
}

type playerRow struct {
	bun.BaseModel `bun:"table:players,alias:p"`

	ID       int64     `bun:"id,pk,autoincrement"`
	GameID   int64     `bun:"game_id,notnull"`
	Name     string    `bun:"name,notnull"`
	Score    int       `bun:"score,notnull"`
	JoinedAt time.Time `bun:"joined_at,notnull"`
}

func (r playerRow) toDomain() domain.Player {
	return domain.Player{ID: r.ID, GameID: r.GameID, Name: r.Name, Score: r.Score, JoinedAt: r.JoinedAt.UTC()}
}

type answerRow struct {
	bun.BaseModel `bun:"table:answers,alias:a"`

	ID             int64     `bun:"id,pk,autoincrement"`
	PlayerID       int64     `bun:"player_id,notnull"`
	QuestionID     int64     `bun:"question_id,notnull"`
	Answer         string    `bun:"answer,notnull"`
	IsCorrect      bool      `bun:"is_correct,notnull"`
	ResponseTimeMs int64     `bun:"response_time_ms,notnull"`
	PointsEarned   int       `bun:"points_earned,notnull"`
	AnsweredAt     time.Time `bun:"answered_at,notnull"`
}

func (r answerRow) toDomain() domain.Answer {
	return domain.Answer{
		ID:             r.ID,
		PlayerID:       r.PlayerID,
		QuestionID:     r.QuestionID,
		Answer:         r.Answer,
		IsCorrect:      r.IsCorrect,
		ResponseTimeMs: r.ResponseTimeMs,
		PointsEarned:   r.PointsEarned,
		AnsweredAt:     r.AnsweredAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
