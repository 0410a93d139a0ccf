package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"live-quiz-service/internal/domain"
)

// ContentLoader fetches quiz content from the backing store.
type ContentLoader interface {
	LoadContent(ctx context.Context, quizID int64) (domain.QuizContent, error)
}

// Catalog caches quiz content in Redis so every instance behind the load
// balancer shares one copy. Content is stored as JSON at quiz:{id}:content.
// A Redis failure degrades to reading through the loader.
type Catalog struct {
	client *redis.Client
	loader ContentLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewCatalog(client *redis.Client, loader ContentLoader, ttl time.Duration) *Catalog {
	return &Catalog{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Catalog) Content(ctx context.Context, quizID int64) (domain.QuizContent, error) {
	if content, ok := c.cached(ctx, quizID); ok {
		return content, nil
	}

	result, err, _ := c.sf.Do(strconv.FormatInt(quizID, 10), func() (interface{}, error) {
		// another goroutine may have filled it
		if content, ok := c.cached(ctx, quizID); ok {
			return content, nil
		}
		content, err := c.loader.LoadContent(ctx, quizID)
		if err != nil {
			return domain.QuizContent{}, err
		}
		if raw, err := json.Marshal(content); err == nil {
			_ = c.client.Set(ctx, contentKey(quizID), raw, c.ttlWithJitter()).Err()
		}
		return content, nil
	})
	if err != nil {
		return domain.QuizContent{}, err
	}
	return result.(domain.QuizContent), nil
}

// Invalidate deletes the cached entry for every instance.
func (c *Catalog) Invalidate(ctx context.Context, quizID int64) {
	c.sf.Forget(strconv.FormatInt(quizID, 10))
	_ = c.client.Del(ctx, contentKey(quizID)).Err()
}

func (c *Catalog) cached(ctx context.Context, quizID int64) (domain.QuizContent, bool) {
	raw, err := c.client.Get(ctx, contentKey(quizID)).Bytes()
	if err != nil {
		return domain.QuizContent{}, false
	}
	var content domain.QuizContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return domain.QuizContent{}, false
	}
	return content, true
}

func contentKey(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10) + ":content"
}

func (c *Catalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
