package cli

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"live-quiz-service/internal/config"
)

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"start", "migrate", "import", "export"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("missing subcommand %q: %v", name, err)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil || root.PersistentFlags().Lookup("port") == nil {
		t.Fatalf("expected persistent config and port flags")
	}
}

func TestBuildServicesInMemory(t *testing.T) {
	cfg := config.Default()
	svc, err := buildServices(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("build services: %v", err)
	}
	defer svc.Close()

	if svc.relay != nil {
		t.Fatalf("relay should only exist with redis configured")
	}
	ctx := context.Background()
	user, created, err := svc.catalog.FindOrCreateUser(ctx, "host@example.com", "en")
	if err != nil || !created {
		t.Fatalf("find or create user: created=%v err=%v", created, err)
	}
	quizzes, err := svc.catalog.ListQuizzes(ctx, user.ID)
	if err != nil || len(quizzes) != 1 {
		t.Fatalf("expected demo quiz, got %d (%v)", len(quizzes), err)
	}
	game, err := svc.games.CreateGame(ctx, quizzes[0].ID)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}

	events, cancel := svc.hub.Subscribe(game.ID)
	defer cancel()
	if _, err := svc.games.Start(ctx, game.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case ev := <-events:
		if ev.GameID != game.ID {
			t.Fatalf("event for wrong game: %+v", ev)
		}
	default:
		t.Fatalf("local hub should receive events synchronously")
	}
}

func TestMigrateNeedsPostgres(t *testing.T) {
	if err := runMigrationsWithConfig(context.Background(), config.Default(), zap.NewNop()); err == nil {
		t.Fatalf("expected error without postgres url")
	}
}
