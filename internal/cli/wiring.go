package cli

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/config"
	"live-quiz-service/internal/infra/memory"
	"live-quiz-service/internal/infra/postgres"
	"live-quiz-service/internal/infra/rabbitmq"
	infraredis "live-quiz-service/internal/infra/redis"
	"live-quiz-service/internal/notify"
)

// services is the wired application graph.
type services struct {
	games    *app.GameService
	catalog  *app.CatalogService
	reporter *app.Reporter
	hub      *notify.Hub
	relay    *infraredis.Relay
	closers  []func()
}

func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStore picks Postgres when a URL is configured and the in-memory store otherwise.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (app.Store, app.GlobalStatsReader, []func(), error) {
	if cfg.Postgres.URL == "" {
		log.Warn("postgres url not configured, using in-memory store")
		store := memory.NewStore()
		return store, store, nil, nil
	}

	db := postgres.Open(cfg.Postgres.URL)
	if err := postgres.Ping(ctx, db, 5*time.Second); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	closers := []func(){func() { db.Close() }, pool.Close}
	return postgres.NewStore(db), postgres.NewStatsReader(pool), closers, nil
}

func buildServices(ctx context.Context, cfg config.Config, log *zap.Logger) (*services, error) {
	store, stats, closers, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	svc := &services{hub: notify.NewHub(), closers: closers}

	cacheTTL := config.Duration(cfg.Quiz.CacheTTL, 10*time.Minute)
	loader := app.NewContentLoader(store)

	var (
		cache    app.ContentCache
		notifier notify.Fanout
	)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		svc.closers = append(svc.closers, func() { client.Close() })
		cache = infraredis.NewCatalog(client, loader, cacheTTL)
		// every instance, this one included, hears events through the relay
		notifier = append(notifier, infraredis.NewNotifier(client, cfg.Redis.ChannelPrefix))
		svc.relay = infraredis.NewRelay(client, cfg.Redis.ChannelPrefix, svc.hub, log)
	} else {
		cache = memory.NewCatalog(loader, cacheTTL)
		notifier = append(notifier, svc.hub)
	}

	if cfg.RabbitMQ.URL != "" {
		publisher, err := rabbitmq.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			svc.Close()
			return nil, err
		}
		svc.closers = append(svc.closers, func() { publisher.Close() })
		notifier = append(notifier, publisher)
	}

	svc.games = app.NewGameService(store,
		app.WithNotifier(notifier),
		app.WithContentCache(cache),
		app.WithLogger(log.Named("games")),
		app.WithPINAttempts(cfg.Game.PINAttempts),
	)
	svc.catalog = app.NewCatalogService(store, cache, log.Named("catalog"))
	svc.reporter = app.NewReporter(store, stats)
	return svc, nil
}
