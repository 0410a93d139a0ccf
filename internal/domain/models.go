package domain

import "time"

// QuestionType selects how an answer is compared with the correct answer.
type QuestionType string

const (
	QuestionTrueFalse   QuestionType = "true_false"
	QuestionMCQ         QuestionType = "mcq"
	QuestionMultipleMCQ QuestionType = "multiple_mcq"
	QuestionNumber      QuestionType = "number"
	QuestionFreeText    QuestionType = "free_text"
)

// QuestionTypes lists every supported type in display order.
var QuestionTypes = []QuestionType{
	QuestionTrueFalse,
	QuestionMCQ,
	QuestionMultipleMCQ,
	QuestionNumber,
	QuestionFreeText,
}

// Valid reports whether t is one of the supported question types.
func (t QuestionType) Valid() bool {
	for _, known := range QuestionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// HasOptions reports whether questions of this type carry exactly McqOptionCount options.
func (t QuestionType) HasOptions() bool {
	return t == QuestionMCQ || t == QuestionMultipleMCQ
}

// GameStatus is the stored lifecycle state of a game session.
type GameStatus string

const (
	StatusWaiting  GameStatus = "waiting"
	StatusActive   GameStatus = "active"
	StatusQuestion GameStatus = "question"
	StatusFinished GameStatus = "finished"
)

const (
	// NoQuestion is the current_question_index of a game that has not shown a question yet.
	NoQuestion = -1
	// DefaultTimeLimit is the per-question time limit in seconds when a quiz does not set one.
	DefaultTimeLimit = 10
	// McqOptionCount is the number of options an mcq or multiple_mcq question must have.
	McqOptionCount = 4
	// MaxPlayerNameLength bounds player names after trimming.
	MaxPlayerNameLength = 20
	// TopQuizzesLimit bounds GlobalStats.TopQuizzes.
	TopQuizzesLimit = 5
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type Quiz struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	TimeLimit   int       `json:"time_limit"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TimeLimitSeconds returns the effective per-question limit.
func (q Quiz) TimeLimitSeconds() int {
	if q.TimeLimit <= 0 {
		return DefaultTimeLimit
	}
	return q.TimeLimit
}

type Question struct {
	ID            int64        `json:"id"`
	QuizID        int64        `json:"quiz_id"`
	Text          string       `json:"question_text"`
	Type          QuestionType `json:"question_type"`
	CorrectAnswer string       `json:"correct_answer"`
	Options       []string     `json:"options"`
	OrderIndex    int          `json:"order_index"`
	CreatedAt     time.Time    `json:"created_at"`
}

type Game struct {
	ID                   int64      `json:"id"`
	QuizID               int64      `json:"quiz_id"`
	PIN                  *string    `json:"pin_code"`
	LastPIN              string     `json:"-"`
	Status               GameStatus `json:"status"`
	CurrentQuestionIndex int        `json:"current_question_index"`
	QuestionStartedAt    *time.Time `json:"question_started_at"`
	CreatedAt            time.Time  `json:"created_at"`
}

// PINCode returns the assigned PIN or "" when the game holds none.
func (g Game) PINCode() string {
	if g.PIN == nil {
		return ""
	}
	return *g.PIN
}

// PhaseKind is the internal view of where a game is in its run.
type PhaseKind int

const (
	PhaseNotStarted PhaseKind = iota
	PhaseOnQuestion
	PhaseFinished
)

// Phase folds status and current_question_index into one value so callers
// never have to interpret the -1 sentinel themselves.
type Phase struct {
	Kind  PhaseKind
	Index int
}

func (g Game) Phase() Phase {
	switch {
	case g.Status == StatusFinished:
		return Phase{Kind: PhaseFinished, Index: g.CurrentQuestionIndex}
	case g.CurrentQuestionIndex < 0:
		return Phase{Kind: PhaseNotStarted, Index: NoQuestion}
	default:
		return Phase{Kind: PhaseOnQuestion, Index: g.CurrentQuestionIndex}
	}
}

// QuestionStarted reports whether any question has ever been shown in this run.
func (g Game) QuestionStarted() bool {
	return g.CurrentQuestionIndex >= 0
}

type Player struct {
	ID       int64     `json:"id"`
	GameID   int64     `json:"game_id"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	JoinedAt time.Time `json:"joined_at"`
}

type Answer struct {
	ID             int64     `json:"id"`
	PlayerID       int64     `json:"player_id"`
	QuestionID     int64     `json:"question_id"`
	Answer         string    `json:"answer"`
	IsCorrect      bool      `json:"is_correct"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	PointsEarned   int       `json:"points_earned"`
	AnsweredAt     time.Time `json:"answered_at"`
}

// GameSummary is a game row joined with its quiz title and player count.
type GameSummary struct {
	Game
	QuizTitle   string `json:"quiz_title"`
	PlayerCount int    `json:"player_count"`
}

type QuestionStat struct {
	QuestionID          int64   `json:"questionId"`
	QuestionText        string  `json:"questionText"`
	CorrectAnswers      int     `json:"correctAnswers"`
	TotalAnswers        int     `json:"totalAnswers"`
	AverageResponseTime float64 `json:"averageResponseTime"`
}

type GameStats struct {
	TotalPlayers          int            `json:"totalPlayers"`
	AverageScore          float64        `json:"averageScore"`
	QuestionStats         []QuestionStat `json:"questionStats"`
	MostDifficultQuestion *string        `json:"mostDifficultQuestion"`
	EasiestQuestion       *string        `json:"easiestQuestion"`
}

type QuizPlayCount struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	PlayCount int    `json:"play_count"`
}

type GlobalStats struct {
	TotalQuizzes        int             `json:"totalQuizzes"`
	TotalGames          int             `json:"totalGames"`
	TotalPlayers        int             `json:"totalPlayers"`
	TotalAnswers        int             `json:"totalAnswers"`
	TotalCorrectAnswers int             `json:"totalCorrectAnswers"`
	TotalQuestions      int             `json:"totalQuestions"`
	TotalUsers          int             `json:"totalUsers"`
	TopQuizzes          []QuizPlayCount `json:"topQuizzes"`
}

// QuizContent is a quiz together with its questions in play order.
type QuizContent struct {
	Quiz      Quiz       `json:"quiz"`
	Questions []Question `json:"questions"`
}

// QuestionDraft is unvalidated question input, e.g. one spreadsheet row.
type QuestionDraft struct {
	Row           int          `json:"row,omitempty"`
	Text          string       `json:"questionText"`
	Type          QuestionType `json:"questionType"`
	CorrectAnswer string       `json:"correctAnswer"`
	Options       []string     `json:"options"`
}

// GameReport bundles everything an exported results file shows.
type GameReport struct {
	Game      Game
	QuizTitle string
	Players   []Player
	Stats     GameStats
}
