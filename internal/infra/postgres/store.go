// Package postgres implements the app.Store ports on Postgres through bun.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// Unique constraints whose violations map onto domain errors.
var uniqueViolations = map[string]error{
	"games_pin_code_key":          domain.ErrPINConflict,
	"answers_player_question_key": domain.ErrAlreadyAnswered,
	"users_email_key":             domain.ErrEmailTaken,
}

// Store runs app transactions on a bun.DB.
type Store struct {
	db *bun.DB
}

// Open connects with pgdriver and returns a bun.DB using the pg dialect.
func Open(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Tx(ctx context.Context, fn func(ctx context.Context, r app.Repository) error) error {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &repo{db: tx})
	})
	return translate(err)
}

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, r app.Repository) error) error {
	err := s.db.RunInTx(ctx, &sql.TxOptions{ReadOnly: true}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &repo{db: tx})
	})
	return translate(err)
}

// translate maps driver errors that escaped a transaction, such as a deferred
// constraint failing at commit.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == "23505" {
		if mapped, ok := uniqueViolations[pgErr.Field('n')]; ok {
			return mapped
		}
	}
	return err
}

// notFound maps sql.ErrNoRows to sentinel.
func notFound(err error, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}

type repo struct {
	db bun.IDB
}

// users

func (r *repo) GetUser(ctx context.Context, id int64) (domain.User, error) {
	var row userRow
	err := r.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return domain.User{}, notFound(err, domain.ErrUserNotFound)
	}
	return row.toDomain(), nil
}

func (r *repo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var row userRow
	err := r.db.NewSelect().Model(&row).Where("email = ?", email).Scan(ctx)
	if err != nil {
		return domain.User{}, notFound(err, domain.ErrUserNotFound)
	}
	return row.toDomain(), nil
}

func (r *repo) CreateUser(ctx context.Context, user *domain.User) error {
	row := userRow{Email: user.Email, CreatedAt: user.CreatedAt}
	if _, err := r.db.NewInsert().Model(&row).Returning("id").Exec(ctx); err != nil {
		return translate(err)
	}
	user.ID = row.ID
	return nil
}

func (r *repo) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().Model((*userRow)(nil)).Where("id = ?", id).Exec(ctx)
	return affected(res, err, domain.ErrUserNotFound)
}

// quizzes

func (r *repo) CreateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	row := newQuizRow(*quiz)
	if _, err := r.db.NewInsert().Model(&row).ExcludeColumn("id").Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	quiz.ID = row.ID
	return nil
}

func (r *repo) UpdateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	row := newQuizRow(*quiz)
	res, err := r.db.NewUpdate().Model(&row).
		Column("title", "description", "time_limit", "updated_at").
		WherePK().
		Exec(ctx)
	return affected(res, err, domain.ErrQuizNotFound)
}

func (r *repo) GetQuiz(ctx context.Context, id int64) (domain.Quiz, error) {
	var row quizRow
	if err := r.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Quiz{}, notFound(err, domain.ErrQuizNotFound)
	}
	return row.toDomain(), nil
}

func (r *repo) ListQuizzesByUser(ctx context.Context, userID int64) ([]domain.Quiz, error) {
	var rows []quizRow
	err := r.db.NewSelect().Model(&rows).
		Where("user_id = ?", userID).
		OrderExpr("updated_at DESC, id DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Quiz, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

func (r *repo) DeleteQuiz(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().Model((*quizRow)(nil)).Where("id = ?", id).Exec(ctx)
	return affected(res, err, domain.ErrQuizNotFound)
}

// questions

func (r *repo) CreateQuestion(ctx context.Context, question *domain.Question) error {
	row := newQuestionRow(*question)
	if _, err := r.db.NewInsert().Model(&row).ExcludeColumn("id").Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	question.ID = row.ID
	return nil
}

func (r *repo) UpdateQuestion(ctx context.Context, question *domain.Question) error {
	row := newQuestionRow(*question)
	res, err := r.db.NewUpdate().Model(&row).
		Column("question_text", "question_type", "correct_answer", "options").
		WherePK().
		Exec(ctx)
	return affected(res, err, domain.ErrQuestionNotFound)
}

func (r *repo) GetQuestion(ctx context.Context, id int64) (domain.Question, error) {
	var row questionRow
	if err := r.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Question{}, notFound(err, domain.ErrQuestionNotFound)
	}
	return row.toDomain(), nil
}

func (r *repo) ListQuestions(ctx context.Context, quizID int64) ([]domain.Question, error) {
	var rows []questionRow
	err := r.db.NewSelect().Model(&rows).
		Where("quiz_id = ?", quizID).
		OrderExpr("order_index ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Question, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

func (r *repo) DeleteQuestion(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().Model((*questionRow)(nil)).Where("id = ?", id).Exec(ctx)
	return affected(res, err, domain.ErrQuestionNotFound)
}

func (r *repo) MaxOrderIndex(ctx context.Context, quizID int64) (int, error) {
	var highest int
	err := r.db.NewSelect().Model((*questionRow)(nil)).
		ColumnExpr("COALESCE(MAX(order_index), -1)").
		Where("quiz_id = ?", quizID).
		Scan(ctx, &highest)
	return highest, err
}

func (r *repo) SetOrderIndex(ctx context.Context, questionID int64, index int) error {
	res, err := r.db.NewUpdate().Model((*questionRow)(nil)).
		Set("order_index = ?", index).
		Where("id = ?", questionID).
		Exec(ctx)
	return affected(res, err, domain.ErrQuestionNotFound)
}

// games

func (r *repo) CreateGame(ctx context.Context, game *domain.Game) error {
	row := newGameRow(*game)
	if _, err := r.db.NewInsert().Model(&row).ExcludeColumn("id").Returning("id").Exec(ctx); err != nil {
		return translate(err)
	}
	game.ID = row.ID
	return nil
}

func (r *repo) UpdateGame(ctx context.Context, game *domain.Game) error {
	row := newGameRow(*game)
	res, err := r.db.NewUpdate().Model(&row).
		Column("pin_code", "last_pin_code", "status", "current_question_index", "question_started_at").
		WherePK().
		Exec(ctx)
	return affected(res, translate(err), domain.ErrGameNotFound)
}

func (r *repo) GetGame(ctx context.Context, id int64) (domain.Game, error) {
	var row gameRow
	if err := r.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Game{}, notFound(err, domain.ErrGameNotFound)
	}
	return row.toDomain(), nil
}

// LockGame takes the row lock that serializes mutations of one game across instances.
func (r *repo) LockGame(ctx context.Context, id int64) (domain.Game, error) {
	var row gameRow
	if err := r.db.NewSelect().Model(&row).Where("id = ?", id).For("UPDATE").Scan(ctx); err != nil {
		return domain.Game{}, notFound(err, domain.ErrGameNotFound)
	}
	return row.toDomain(), nil
}

func (r *repo) GetGameByPIN(ctx context.Context, pin string) (domain.Game, error) {
	var row gameRow
	if err := r.db.NewSelect().Model(&row).Where("pin_code = ?", pin).Scan(ctx); err != nil {
		return domain.Game{}, notFound(err, domain.ErrPINNotFound)
	}
	return row.toDomain(), nil
}

func (r *repo) PINInUse(ctx context.Context, pin string) (bool, error) {
	return r.db.NewSelect().Model((*gameRow)(nil)).Where("pin_code = ?", pin).Exists(ctx)
}

func (r *repo) ListActiveGamesByQuiz(ctx context.Context, quizID int64) ([]domain.Game, error) {
	var rows []gameRow
	err := r.db.NewSelect().Model(&rows).
		Where("quiz_id = ?", quizID).
		Where("status <> ?", domain.StatusFinished).
		OrderExpr("created_at DESC, id DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Game, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

func (r *repo) ListGamesByOwner(ctx context.Context, userID int64) ([]domain.GameSummary, error) {
	var rows []gameSummaryRow
	err := r.db.NewSelect().Model(&rows).
		ColumnExpr("g.*").
		ColumnExpr("q.title AS quiz_title").
		ColumnExpr("(SELECT COUNT(*) FROM players AS p WHERE p.game_id = g.id) AS player_count").
		Join("JOIN quizzes AS q ON q.id = g.quiz_id").
		Where("q.user_id = ?", userID).
		OrderExpr("g.created_at DESC, g.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.GameSummary, len(rows))
	for i, row := range rows {
		out[i] = domain.GameSummary{Game: row.gameRow.toDomain(), QuizTitle: row.QuizTitle, PlayerCount: row.PlayerCount}
	}
	return out, nil
}

// players

func (r *repo) CreatePlayer(ctx context.Context, player *domain.Player) error {
	row := playerRow{GameID: player.GameID, Name: player.Name, Score: player.Score, JoinedAt: player.JoinedAt}
	if _, err := r.db.NewInsert().Model(&row).ExcludeColumn("id").Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	player.ID = row.ID
	return nil
}

func (r *repo) GetPlayer(ctx context.Context, id int64) (domain.Player, error) {
	var row playerRow
	if err := r.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Player{}, notFound(err, domain.ErrPlayerNotFound)
	}
	return row.toDomain(), nil
}

func (r *repo) ListPlayers(ctx context.Context, gameID int64) ([]domain.Player, error) {
	var rows []playerRow
	err := r.db.NewSelect().Model(&rows).
		Where("game_id = ?", gameID).
		OrderExpr("score DESC, joined_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Player, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

func (r *repo) AddScore(ctx context.Context, playerID int64, delta int) error {
	res, err := r.db.NewUpdate().Model((*playerRow)(nil)).
		Set("score = score + ?", delta).
		Where("id = ?", playerID).
		Exec(ctx)
	return affected(res, err, domain.ErrPlayerNotFound)
}

func (r *repo) ResetScores(ctx context.Context, gameID int64) error {
	_, err := r.db.NewUpdate().Model((*playerRow)(nil)).
		Set("score = 0").
		Where("game_id = ?", gameID).
		Exec(ctx)
	return err
}

// answers

func (r *repo) InsertAnswer(ctx context.Context, answer *domain.Answer) error {
	row := answerRow{
		PlayerID:       answer.PlayerID,
		QuestionID:     answer.QuestionID,
		Answer:         answer.Answer,
		IsCorrect:      answer.IsCorrect,
		ResponseTimeMs: answer.ResponseTimeMs,
		PointsEarned:   answer.PointsEarned,
		AnsweredAt:     answer.AnsweredAt,
	}
	if _, err := r.db.NewInsert().Model(&row).ExcludeColumn("id").Returning("id").Exec(ctx); err != nil {
		return translate(err)
	}
	answer.ID = row.ID
	return nil
}

func (r *repo) GetAnswer(ctx context.Context, playerID, questionID int64) (domain.Answer, error) {
	var row answerRow
	err := r.db.NewSelect().Model(&row).
		Where("player_id = ?", playerID).
		Where("question_id = ?", questionID).
		Scan(ctx)
	if err != nil {
		return domain.Answer{}, notFound(err, domain.ErrAnswerNotFound)
	}
	return row.toDomain(), nil
}

func (r *repo) UpdateAnswerAward(ctx context.Context, answerID int64, correct bool, points int) error {
	res, err := r.db.NewUpdate().Model((*answerRow)(nil)).
		Set("is_correct = ?", correct).
		Set("points_earned = ?", points).
		Where("id = ?", answerID).
		Exec(ctx)
	return affected(res, err, domain.ErrAnswerNotFound)
}

func (r *repo) ListAnswersForQuestion(ctx context.Context, gameID, questionID int64) ([]domain.Answer, error) {
	var rows []answerRow
	q := r.db.NewSelect().Model(&rows).Where("a.question_id = ?", questionID)
	if gameID != 0 {
		q = q.Join("JOIN players AS p ON p.id = a.player_id").Where("p.game_id = ?", gameID)
	}
	if err := q.OrderExpr("a.answered_at ASC, a.id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return answersToDomain(rows), nil
}

func (r *repo) ListAnswersByPlayer(ctx context.Context, playerID int64) ([]domain.Answer, error) {
	var rows []answerRow
	err := r.db.NewSelect().Model(&rows).
		Where("player_id = ?", playerID).
		OrderExpr("answered_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return answersToDomain(rows), nil
}

func (r *repo) DeleteRoundAnswers(ctx context.Context, gameID, questionID int64) error {
	_, err := r.db.NewDelete().Model((*answerRow)(nil)).
		Where("question_id = ?", questionID).
		Where("player_id IN (SELECT id FROM players WHERE game_id = ?)", gameID).
		Exec(ctx)
	return err
}

func (r *repo) DeleteGameAnswers(ctx context.Context, gameID int64) error {
	_, err := r.db.NewDelete().Model((*answerRow)(nil)).
		Where("player_id IN (SELECT id FROM players WHERE game_id = ?)", gameID).
		Exec(ctx)
	return err
}

func answersToDomain(rows []answerRow) []domain.Answer {
	out := make([]domain.Answer, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out
}

// affected turns "zero rows touched" into sentinel.
func affected(res sql.Result, err error, sentinel error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel
	}
	return nil
}

// Ping checks connectivity within timeout.
func Ping(ctx context.Context, db *bun.DB, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return db.PingContext(ctx)
}
