package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"live-quiz-service/internal/domain"
)

const defaultPINAttempts = 50

// GameService runs game sessions: PIN directory, state machine, answer ledger,
// number bonus and the host/player read models.
type GameService struct {
	store       Store
	content     ContentCache
	notifier    Notifier
	logger      *zap.Logger
	now         func() time.Time
	newPIN      func() (string, error)
	pinAttempts int
	locks       *gameLocks
}

// GameOption customizes a GameService.
type GameOption func(*GameService)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) GameOption {
	return func(s *GameService) { s.now = now }
}

// WithNotifier sets the push hint sink.
func WithNotifier(n Notifier) GameOption {
	return func(s *GameService) { s.notifier = n }
}

// WithContentCache serves read models from a cache instead of the store.
func WithContentCache(c ContentCache) GameOption {
	return func(s *GameService) { s.content = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) GameOption {
	return func(s *GameService) { s.logger = l }
}

// WithPINGenerator replaces the random PIN source.
func WithPINGenerator(gen func() (string, error)) GameOption {
	return func(s *GameService) { s.newPIN = gen }
}

// WithPINAttempts bounds how many PINs are drawn before giving up.
func WithPINAttempts(n int) GameOption {
	return func(s *GameService) {
		if n > 0 {
			s.pinAttempts = n
		}
	}
}

func NewGameService(store Store, opts ...GameOption) *GameService {
	s := &GameService{
		store:       store,
		notifier:    NopNotifier{},
		logger:      zap.NewNop(),
		now:         time.Now,
		newPIN:      RandomPIN,
		pinAttempts: defaultPINAttempts,
		locks:       newGameLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.content == nil {
		s.content = uncachedContent{loader: NewContentLoader(store)}
	}
	return s
}

// RandomPIN draws a 6-digit code in [100000, 999999] from crypto/rand.
func RandomPIN() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("draw pin: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// mutate serializes fn with every other mutation of the same game and runs it
// in one transaction holding the game row.
func (s *GameService) mutate(ctx context.Context, gameID int64, fn func(ctx context.Context, r Repository, game *domain.Game) error) error {
	unlock := s.locks.lock(gameID)
	defer unlock()

	return s.store.Tx(ctx, func(ctx context.Context, r Repository) error {
		game, err := r.LockGame(ctx, gameID)
		if err != nil {
			return err
		}
		return fn(ctx, r, &game)
	})
}

func (s *GameService) notify(ctx context.Context, gameID int64, kind domain.EventKind, payload map[string]any) {
	event := domain.Event{GameID: gameID, Kind: kind, Payload: payload}
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.Warn("notify failed",
			zap.Int64("game_id", gameID),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
}

func (s *GameService) stateChanged(ctx context.Context, gameID int64) {
	s.notify(ctx, gameID, domain.EventGameStateUpdate, map[string]any{"gameId": gameID})
}

func (s *GameService) timestamp() time.Time {
	return s.now().UTC()
}
