package app

import (
	"context"
	"time"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/reveal"
)

const leaderboardSize = 10

// HostAnswer is one entry of the host's live answer feed.
type HostAnswer struct {
	ID             int64     `json:"id"`
	PlayerID       int64     `json:"player_id"`
	QuestionID     int64     `json:"question_id"`
	Answer         string    `json:"answer"`
	IsCorrect      *bool     `json:"is_correct"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	PointsEarned   int       `json:"points_earned"`
	AnsweredAt     time.Time `json:"answered_at"`
	TimeTaken      float64   `json:"time_taken"`
	PlayerName     string    `json:"playerName"`
}

// HostState is everything the host screen renders on one poll.
type HostState struct {
	Game            domain.Game       `json:"game"`
	Quiz            domain.Quiz       `json:"quiz"`
	Questions       []domain.Question `json:"questions"`
	Players         []domain.Player   `json:"players"`
	CurrentQuestion *domain.Question  `json:"currentQuestion"`
	QuestionAnswers []HostAnswer      `json:"questionAnswers"`
	TotalQuestions  int               `json:"totalQuestions"`
	Revealed        bool              `json:"revealed"`
	RevealAt        *time.Time        `json:"revealAt,omitempty"`
}

// PlayerGame is the subset of the game a player sees.
type PlayerGame struct {
	ID                   int64             `json:"id"`
	Status               domain.GameStatus `json:"status"`
	CurrentQuestionIndex int               `json:"currentQuestionIndex"`
	QuestionStartedAt    *time.Time        `json:"questionStartedAt"`
}

// PlayerQuestion never carries the correct answer before reveal.
type PlayerQuestion struct {
	ID            int64               `json:"id"`
	QuestionText  string              `json:"questionText"`
	QuestionType  domain.QuestionType `json:"questionType"`
	Options       []string            `json:"options"`
	CorrectAnswer *string             `json:"correctAnswer,omitempty"`
}

// PlayerAnswer is the player's own answer to the current question.
type PlayerAnswer struct {
	Answer       string `json:"answer"`
	IsCorrect    *bool  `json:"isCorrect"`
	PointsEarned *int   `json:"pointsEarned"`
}

type LeaderboardEntry struct {
	Rank            int    `json:"rank"`
	Name            string `json:"name"`
	Score           int    `json:"score"`
	IsCurrentPlayer bool   `json:"isCurrentPlayer"`
}

// PlayerState is everything a player screen renders on one poll.
type PlayerState struct {
	Player          domain.Player      `json:"player"`
	Game            PlayerGame         `json:"game"`
	Quiz            *QuizSummary       `json:"quiz"`
	CurrentQuestion *PlayerQuestion    `json:"currentQuestion"`
	PlayerAnswer    *PlayerAnswer      `json:"playerAnswer"`
	QuestionNumber  int                `json:"questionNumber"`
	TotalQuestions  int                `json:"totalQuestions"`
	Leaderboard     []LeaderboardEntry `json:"leaderboard"`
	Revealed        bool               `json:"revealed"`
}

// HostView builds the host read model. Once the host reveal time has passed
// on a number question, the closest-guess bonus is settled first.
func (s *GameService) HostView(ctx context.Context, gameID int64) (HostState, error) {
	game, err := s.GetGame(ctx, gameID)
	if err != nil {
		return HostState{}, err
	}
	content, err := s.content.Content(ctx, game.QuizID)
	if err != nil {
		return HostState{}, err
	}

	now := s.timestamp()
	limit := content.Quiz.TimeLimitSeconds()
	var current *domain.Question
	revealed := false
	if idx := game.CurrentQuestionIndex; idx >= 0 && idx < len(content.Questions) {
		q := content.Questions[idx]
		current = &q
		revealed = reveal.IsRevealed(game.QuestionStartedAt, limit, reveal.Host, now)
		if revealed && q.Type == domain.QuestionNumber {
			if _, err := s.ResolveBonus(ctx, gameID, q.ID); err != nil {
				return HostState{}, err
			}
		}
	}

	state := HostState{
		Game:           game,
		Quiz:           content.Quiz,
		TotalQuestions: len(content.Questions),
		Revealed:       revealed,
	}
	err = s.store.View(ctx, func(ctx context.Context, r Repository) error {
		players, err := r.ListPlayers(ctx, game.ID)
		if err != nil {
			return err
		}
		state.Players = players
		if current == nil {
			return nil
		}
		answers, err := r.ListAnswersForQuestion(ctx, game.ID, current.ID)
		if err != nil {
			return err
		}
		state.QuestionAnswers = hostAnswers(answers, players, revealed)
		return nil
	})
	if err != nil {
		return HostState{}, err
	}

	state.Questions = make([]domain.Question, len(content.Questions))
	copy(state.Questions, content.Questions)
	if current != nil {
		masked := *current
		if !revealed {
			masked.CorrectAnswer = reveal.MaskedCorrectAnswer
			state.Questions[game.CurrentQuestionIndex].CorrectAnswer = reveal.MaskedCorrectAnswer
		}
		state.CurrentQuestion = &masked
		if game.QuestionStartedAt != nil {
			at := reveal.At(*game.QuestionStartedAt, limit, reveal.Host)
			state.RevealAt = &at
		}
	}
	return state, nil
}

// PlayerView builds the player read model: own record, current question,
// own answer and a top-10 leaderboard.
func (s *GameService) PlayerView(ctx context.Context, playerID int64) (PlayerState, error) {
	var (
		player  domain.Player
		game    domain.Game
		players []domain.Player
		answers []domain.Answer
	)
	err := s.store.View(ctx, func(ctx context.Context, r Repository) error {
		var err error
		if player, err = r.GetPlayer(ctx, playerID); err != nil {
			return err
		}
		if game, err = r.GetGame(ctx, player.GameID); err != nil {
			return err
		}
		if players, err = r.ListPlayers(ctx, game.ID); err != nil {
			return err
		}
		answers, err = r.ListAnswersByPlayer(ctx, playerID)
		return err
	})
	if err != nil {
		return PlayerState{}, err
	}
	content, err := s.content.Content(ctx, game.QuizID)
	if err != nil {
		return PlayerState{}, err
	}

	state := PlayerState{
		Player: player,
		Game: PlayerGame{
			ID:                   game.ID,
			Status:               game.Status,
			CurrentQuestionIndex: game.CurrentQuestionIndex,
			QuestionStartedAt:    game.QuestionStartedAt,
		},
		Quiz:           summarizeQuiz(content.Quiz),
		QuestionNumber: game.CurrentQuestionIndex + 1,
		TotalQuestions: len(content.Questions),
		Leaderboard:    leaderboard(players, player.ID),
	}

	idx := game.CurrentQuestionIndex
	if idx < 0 || idx >= len(content.Questions) {
		return state, nil
	}
	q := content.Questions[idx]
	revealed := reveal.IsRevealed(game.QuestionStartedAt, content.Quiz.TimeLimitSeconds(), reveal.Players, s.timestamp())
	state.Revealed = revealed
	state.CurrentQuestion = &PlayerQuestion{
		ID:           q.ID,
		QuestionText: q.Text,
		QuestionType: q.Type,
		Options:      q.Options,
	}
	if revealed {
		correct := q.CorrectAnswer
		state.CurrentQuestion.CorrectAnswer = &correct
	}
	for _, a := range answers {
		if a.QuestionID != q.ID {
			continue
		}
		own := &PlayerAnswer{Answer: a.Answer}
		if revealed {
			correct, points := a.IsCorrect, a.PointsEarned
			own.IsCorrect = &correct
			own.PointsEarned = &points
		}
		state.PlayerAnswer = own
		break
	}
	return state, nil
}

func hostAnswers(answers []domain.Answer, players []domain.Player, revealed bool) []HostAnswer {
	names := make(map[int64]string, len(players))
	for _, p := range players {
		names[p.ID] = p.Name
	}
	out := make([]HostAnswer, 0, len(answers))
	for _, a := range answers {
		name, ok := names[a.PlayerID]
		if !ok {
			name = "Unknown"
		}
		entry := HostAnswer{
			ID:             a.ID,
			PlayerID:       a.PlayerID,
			QuestionID:     a.QuestionID,
			Answer:         reveal.MaskedAnswer,
			ResponseTimeMs: a.ResponseTimeMs,
			AnsweredAt:     a.AnsweredAt,
			TimeTaken:      float64(a.ResponseTimeMs) / 1000,
			PlayerName:     name,
		}
		if revealed {
			correct := a.IsCorrect
			entry.Answer = a.Answer
			entry.IsCorrect = &correct
			entry.PointsEarned = a.PointsEarned
		}
		out = append(out, entry)
	}
	return out
}

func leaderboard(players []domain.Player, currentID int64) []LeaderboardEntry {
	ranked := rankPlayers(players)
	if len(ranked) > leaderboardSize {
		ranked = ranked[:leaderboardSize]
	}
	out := make([]LeaderboardEntry, len(ranked))
	for i, p := range ranked {
		out[i] = LeaderboardEntry{
			Rank:            i + 1,
			Name:            p.Name,
			Score:           p.Score,
			IsCurrentPlayer: p.ID == currentID,
		}
	}
	return out
}
