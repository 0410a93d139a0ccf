package memory

import (
	"context"
	"sort"
	"sync"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

// Store is an in-process app.Store. Tx runs against a private copy of the
// data and swaps it in only when fn succeeds, so a failed transaction leaves
// nothing behind.
type Store struct {
	mu   sync.RWMutex
	data *state
}

func NewStore() *Store {
	return &Store{data: newState()}
}

func (s *Store) Tx(ctx context.Context, fn func(ctx context.Context, r app.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(ctx, work); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, r app.Repository) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// writes through a View are discarded
	return fn(ctx, s.data.clone())
}

// GlobalStats implements app.GlobalStatsReader.
func (s *Store) GlobalStats(_ context.Context) (domain.GlobalStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := s.data

	stats := domain.GlobalStats{
		TotalQuizzes:   len(d.quizzes),
		TotalGames:     len(d.games),
		TotalPlayers:   len(d.players),
		TotalAnswers:   len(d.answers),
		TotalQuestions: len(d.questions),
		TotalUsers:     len(d.users),
		TopQuizzes:     []domain.QuizPlayCount{},
	}
	for _, a := range d.answers {
		if a.IsCorrect {
			stats.TotalCorrectAnswers++
		}
	}

	plays := make(map[int64]int)
	for _, g := range d.games {
		plays[g.QuizID]++
	}
	for quizID, count := range plays {
		quiz, ok := d.quizzes[quizID]
		if !ok {
			continue
		}
		stats.TopQuizzes = append(stats.TopQuizzes, domain.QuizPlayCount{ID: quizID, Title: quiz.Title, PlayCount: count})
	}
	sort.Slice(stats.TopQuizzes, func(i, j int) bool {
		a, b := stats.TopQuizzes[i], stats.TopQuizzes[j]
		if a.PlayCount != b.PlayCount {
			return a.PlayCount > b.PlayCount
		}
		return a.ID < b.ID
	})
	if len(stats.TopQuizzes) > domain.TopQuizzesLimit {
		stats.TopQuizzes = stats.TopQuizzes[:domain.TopQuizzesLimit]
	}
	return stats, nil
}

type state struct {
	seq       int64
	users     map[int64]domain.User
	quizzes   map[int64]domain.Quiz
	questions map[int64]domain.Question
	games     map[int64]domain.Game
	players   map[int64]domain.Player
	answers   map[int64]domain.Answer
}

func newState() *state {
	return &state{
		users:     make(map[int64]domain.User),
		quizzes:   make(map[int64]domain.Quiz),
		questions: make(map[int64]domain.Question),
		games:     make(map[int64]domain.Game),
		players:   make(map[int64]domain.Player),
		answers:   make(map[int64]domain.Answer),
	}
}

func (d *state) clone() *state {
	c := newState()
	c.seq = d.seq
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.quizzes {
		c.quizzes[k] = v
	}
	for k, v := range d.questions {
		c.questions[k] = copyQuestion(v)
	}
	for k, v := range d.games {
		c.games[k] = copyGame(v)
	}
	for k, v := range d.players {
		c.players[k] = v
	}
	for k, v := range d.answers {
		c.answers[k] = v
	}
	return c
}

func (d *state) nextID() int64 {
	d.seq++
	return d.seq
}

func copyQuestion(q domain.Question) domain.Question {
	if q.Options != nil {
		q.Options = append([]string(nil), q.Options...)
	}
	return q
}

func copyGame(g domain.Game) domain.Game {
	if g.PIN != nil {
		pin := *g.PIN
		g.PIN = &pin
	}
	if g.QuestionStartedAt != nil {
		at := *g.QuestionStartedAt
		g.QuestionStartedAt = &at
	}
	return g
}

// users

func (d *state) GetUser(_ context.Context, id int64) (domain.User, error) {
	u, ok := d.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (d *state) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	for _, u := range d.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (d *state) CreateUser(ctx context.Context, user *domain.User) error {
	if _, err := d.GetUserByEmail(ctx, user.Email); err == nil {
		return domain.ErrEmailTaken
	}
	user.ID = d.nextID()
	d.users[user.ID] = *user
	return nil
}

func (d *state) DeleteUser(ctx context.Context, id int64) error {
	if _, ok := d.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	for quizID, q := range d.quizzes {
		if q.UserID == id {
			d.deleteQuizCascade(quizID)
		}
	}
	delete(d.users, id)
	return nil
}

// quizzes

func (d *state) CreateQuiz(_ context.Context, quiz *domain.Quiz) error {
	if _, ok := d.users[quiz.UserID]; !ok {
		return domain.ErrUserNotFound
	}
	quiz.ID = d.nextID()
	d.quizzes[quiz.ID] = *quiz
	return nil
}

func (d *state) UpdateQuiz(_ context.Context, quiz *domain.Quiz) error {
	if _, ok := d.quizzes[quiz.ID]; !ok {
		return domain.ErrQuizNotFound
	}
	d.quizzes[quiz.ID] = *quiz
	return nil
}

func (d *state) GetQuiz(_ context.Context, id int64) (domain.Quiz, error) {
	q, ok := d.quizzes[id]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return q, nil
}

func (d *state) ListQuizzesByUser(_ context.Context, userID int64) ([]domain.Quiz, error) {
	out := []domain.Quiz{}
	for _, q := range d.quizzes {
		if q.UserID == userID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (d *state) DeleteQuiz(_ context.Context, id int64) error {
	if _, ok := d.quizzes[id]; !ok {
		return domain.ErrQuizNotFound
	}
	d.deleteQuizCascade(id)
	return nil
}

func (d *state) deleteQuizCascade(quizID int64) {
	for id, q := range d.questions {
		if q.QuizID == quizID {
			d.deleteQuestionCascade(id)
		}
	}
	for id, g := range d.games {
		if g.QuizID == quizID {
			d.deleteGameCascade(id)
		}
	}
	delete(d.quizzes, quizID)
}

// questions

func (d *state) CreateQuestion(_ context.Context, question *domain.Question) error {
	if _, ok := d.quizzes[question.QuizID]; !ok {
		return domain.ErrQuizNotFound
	}
	question.ID = d.nextID()
	d.questions[question.ID] = copyQuestion(*question)
	return nil
}

func (d *state) UpdateQuestion(_ context.Context, question *domain.Question) error {
	if _, ok := d.questions[question.ID]; !ok {
		return domain.ErrQuestionNotFound
	}
	d.questions[question.ID] = copyQuestion(*question)
	return nil
}

func (d *state) GetQuestion(_ context.Context, id int64) (domain.Question, error) {
	q, ok := d.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return copyQuestion(q), nil
}

func (d *state) ListQuestions(_ context.Context, quizID int64) ([]domain.Question, error) {
	out := []domain.Question{}
	for _, q := range d.questions {
		if q.QuizID == quizID {
			out = append(out, copyQuestion(q))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (d *state) DeleteQuestion(_ context.Context, id int64) error {
	if _, ok := d.questions[id]; !ok {
		return domain.ErrQuestionNotFound
	}
	d.deleteQuestionCascade(id)
	return nil
}

func (d *state) deleteQuestionCascade(questionID int64) {
	for id, a := range d.answers {
		if a.QuestionID == questionID {
			delete(d.answers, id)
		}
	}
	delete(d.questions, questionID)
}

func (d *state) MaxOrderIndex(_ context.Context, quizID int64) (int, error) {
	highest := -1
	for _, q := range d.questions {
		if q.QuizID == quizID && q.OrderIndex > highest {
			highest = q.OrderIndex
		}
	}
	return highest, nil
}

func (d *state) SetOrderIndex(_ context.Context, questionID int64, index int) error {
	q, ok := d.questions[questionID]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	q.OrderIndex = index
	d.questions[questionID] = q
	return nil
}

// games

func (d *state) pinHolder(pin string) (int64, bool) {
	for id, g := range d.games {
		if g.PIN != nil && *g.PIN == pin {
			return id, true
		}
	}
	return 0, false
}

func (d *state) CreateGame(_ context.Context, game *domain.Game) error {
	if _, ok := d.quizzes[game.QuizID]; !ok {
		return domain.ErrQuizNotFound
	}
	if game.PIN != nil {
		if _, held := d.pinHolder(*game.PIN); held {
			return domain.ErrPINConflict
		}
	}
	game.ID = d.nextID()
	d.games[game.ID] = copyGame(*game)
	return nil
}

func (d *state) UpdateGame(_ context.Context, game *domain.Game) error {
	if _, ok := d.games[game.ID]; !ok {
		return domain.ErrGameNotFound
	}
	if game.PIN != nil {
		if holder, held := d.pinHolder(*game.PIN); held && holder != game.ID {
			return domain.ErrPINConflict
		}
	}
	d.games[game.ID] = copyGame(*game)
	return nil
}

func (d *state) GetGame(_ context.Context, id int64) (domain.Game, error) {
	g, ok := d.games[id]
	if !ok {
		return domain.Game{}, domain.ErrGameNotFound
	}
	return copyGame(g), nil
}

// LockGame is GetGame: Store.Tx already holds the write lock.
func (d *state) LockGame(ctx context.Context, id int64) (domain.Game, error) {
	return d.GetGame(ctx, id)
}

func (d *state) GetGameByPIN(_ context.Context, pin string) (domain.Game, error) {
	id, ok := d.pinHolder(pin)
	if !ok {
		return domain.Game{}, domain.ErrPINNotFound
	}
	return copyGame(d.games[id]), nil
}

func (d *state) PINInUse(_ context.Context, pin string) (bool, error) {
	_, held := d.pinHolder(pin)
	return held, nil
}

func (d *state) ListActiveGamesByQuiz(_ context.Context, quizID int64) ([]domain.Game, error) {
	out := []domain.Game{}
	for _, g := range d.games {
		if g.QuizID == quizID && g.Status != domain.StatusFinished {
			out = append(out, copyGame(g))
		}
	}
	sortGamesNewestFirst(out)
	return out, nil
}

func (d *state) ListGamesByOwner(_ context.Context, userID int64) ([]domain.GameSummary, error) {
	counts := make(map[int64]int)
	for _, p := range d.players {
		counts[p.GameID]++
	}
	games := []domain.Game{}
	for _, g := range d.games {
		if q, ok := d.quizzes[g.QuizID]; ok && q.UserID == userID {
			games = append(games, copyGame(g))
		}
	}
	sortGamesNewestFirst(games)

	out := make([]domain.GameSummary, 0, len(games))
	for _, g := range games {
		out = append(out, domain.GameSummary{
			Game:        g,
			QuizTitle:   d.quizzes[g.QuizID].Title,
			PlayerCount: counts[g.ID],
		})
	}
	return out, nil
}

func sortGamesNewestFirst(games []domain.Game) {
	sort.Slice(games, func(i, j int) bool {
		if !games[i].CreatedAt.Equal(games[j].CreatedAt) {
			return games[i].CreatedAt.After(games[j].CreatedAt)
		}
		return games[i].ID > games[j].ID
	})
}

func (d *state) deleteGameCascade(gameID int64) {
	for id, p := range d.players {
		if p.GameID == gameID {
			d.deletePlayerCascade(id)
		}
	}
	delete(d.games, gameID)
}

// players

func (d *state) CreatePlayer(_ context.Context, player *domain.Player) error {
	if _, ok := d.games[player.GameID]; !ok {
		return domain.ErrGameNotFound
	}
	player.ID = d.nextID()
	d.players[player.ID] = *player
	return nil
}

func (d *state) GetPlayer(_ context.Context, id int64) (domain.Player, error) {
	p, ok := d.players[id]
	if !ok {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	return p, nil
}

func (d *state) ListPlayers(_ context.Context, gameID int64) ([]domain.Player, error) {
	out := []domain.Player{}
	for _, p := range d.players {
		if p.GameID == gameID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (d *state) AddScore(_ context.Context, playerID int64, delta int) error {
	p, ok := d.players[playerID]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	p.Score += delta
	d.players[playerID] = p
	return nil
}

func (d *state) ResetScores(_ context.Context, gameID int64) error {
	for id, p := range d.players {
		if p.GameID == gameID {
			p.Score = 0
			d.players[id] = p
		}
	}
	return nil
}

func (d *state) deletePlayerCascade(playerID int64) {
	for id, a := range d.answers {
		if a.PlayerID == playerID {
			delete(d.answers, id)
		}
	}
	delete(d.players, playerID)
}

// answers

func (d *state) InsertAnswer(ctx context.Context, answer *domain.Answer) error {
	if _, ok := d.players[answer.PlayerID]; !ok {
		return domain.ErrPlayerNotFound
	}
	if _, err := d.GetAnswer(ctx, answer.PlayerID, answer.QuestionID); err == nil {
		return domain.ErrAlreadyAnswered
	}
	answer.ID = d.nextID()
	d.answers[answer.ID] = *answer
	return nil
}

func (d *state) GetAnswer(_ context.Context, playerID, questionID int64) (domain.Answer, error) {
	for _, a := range d.answers {
		if a.PlayerID == playerID && a.QuestionID == questionID {
			return a, nil
		}
	}
	return domain.Answer{}, domain.ErrAnswerNotFound
}

func (d *state) UpdateAnswerAward(_ context.Context, answerID int64, correct bool, points int) error {
	a, ok := d.answers[answerID]
	if !ok {
		return domain.ErrAnswerNotFound
	}
	a.IsCorrect = correct
	a.PointsEarned = points
	d.answers[answerID] = a
	return nil
}

func (d *state) ListAnswersForQuestion(_ context.Context, gameID, questionID int64) ([]domain.Answer, error) {
	out := []domain.Answer{}
	for _, a := range d.answers {
		if a.QuestionID != questionID {
			continue
		}
		if gameID != 0 && d.players[a.PlayerID].GameID != gameID {
			continue
		}
		out = append(out, a)
	}
	sortAnswers(out)
	return out, nil
}

func (d *state) ListAnswersByPlayer(_ context.Context, playerID int64) ([]domain.Answer, error) {
	out := []domain.Answer{}
	for _, a := range d.answers {
		if a.PlayerID == playerID {
			out = append(out, a)
		}
	}
	sortAnswers(out)
	return out, nil
}

func (d *state) DeleteRoundAnswers(_ context.Context, gameID, questionID int64) error {
	for id, a := range d.answers {
		if a.QuestionID == questionID && d.players[a.PlayerID].GameID == gameID {
			delete(d.answers, id)
		}
	}
	return nil
}

func (d *state) DeleteGameAnswers(_ context.Context, gameID int64) error {
	for id, a := range d.answers {
		if d.players[a.PlayerID].GameID == gameID {
			delete(d.answers, id)
		}
	}
	return nil
}

func sortAnswers(answers []domain.Answer) {
	sort.Slice(answers, func(i, j int) bool {
		if !answers[i].AnsweredAt.Equal(answers[j].AnsweredAt) {
			return answers[i].AnsweredAt.Before(answers[j].AnsweredAt)
		}
		return answers[i].ID < answers[j].ID
	})
}
