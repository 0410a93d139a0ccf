package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"live-quiz-service/internal/domain"
)

const countsQuery = `
SELECT
	(SELECT COUNT(*) FROM quizzes),
	(SELECT COUNT(*) FROM games),
	(SELECT COUNT(*) FROM players),
	(SELECT COUNT(*) FROM answers),
	(SELECT COUNT(*) FROM answers WHERE is_correct),
	(SELECT COUNT(*) FROM questions),
	(SELECT COUNT(*) FROM users)`

const topQuizzesQuery = `
SELECT q.id, q.title, COUNT(g.id) AS play_count
FROM quizzes q
JOIN games g ON g.quiz_id = q.id
GROUP BY q.id, q.title
ORDER BY play_count DESC, q.id ASC
LIMIT $1`

// StatsReader computes platform-wide counters straight from pgx.
type StatsReader struct {
	pool *pgxpool.Pool
}

func NewStatsReader(pool *pgxpool.Pool) *StatsReader {
	return &StatsReader{pool: pool}
}

func (s *StatsReader) GlobalStats(ctx context.Context) (domain.GlobalStats, error) {
	var stats domain.GlobalStats
	err := s.pool.QueryRow(ctx, countsQuery).Scan(
		&stats.TotalQuizzes,
		&stats.TotalGames,
		&stats.TotalPlayers,
		&stats.TotalAnswers,
		&stats.TotalCorrectAnswers,
		&stats.TotalQuestions,
		&stats.TotalUsers,
	)
	if err != nil {
		return domain.GlobalStats{}, fmt.Errorf("count totals: %w", err)
	}

	rows, err := s.pool.Query(ctx, topQuizzesQuery, domain.TopQuizzesLimit)
	if err != nil {
		return domain.GlobalStats{}, fmt.Errorf("top quizzes: %w", err)
	}
	defer rows.Close()

	stats.TopQuizzes = []domain.QuizPlayCount{}
	for rows.Next() {
		var top domain.QuizPlayCount
		if err := rows.Scan(&top.ID, &top.Title, &top.PlayCount); err != nil {
			return domain.GlobalStats{}, err
		}
		stats.TopQuizzes = append(stats.TopQuizzes, top)
	}
	return stats, rows.Err()
}
