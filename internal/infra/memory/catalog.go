package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"live-quiz-service/internal/domain"
)

// ContentLoader fetches quiz content from the backing store.
type ContentLoader interface {
	LoadContent(ctx context.Context, quizID int64) (domain.QuizContent, error)
}

// Catalog caches quiz content with a TTL so polling clients do not reload
// questions on every request. It implements app.ContentCache.
type Catalog struct {
	loader ContentLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[int64]cachedContent
}

type cachedContent struct {
	content   domain.QuizContent
	expiresAt time.Time
}

func NewCatalog(loader ContentLoader, ttl time.Duration) *Catalog {
	return &Catalog{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int64]cachedContent),
	}
}

func (c *Catalog) Content(ctx context.Context, quizID int64) (domain.QuizContent, error) {
	if content, ok := c.lookup(quizID); ok {
		return content, nil
	}

	key := strconv.FormatInt(quizID, 10)
	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if content, ok := c.lookup(quizID); ok {
			return content, nil
		}
		content, err := c.loader.LoadContent(ctx, quizID)
		if err != nil {
			return domain.QuizContent{}, err
		}

		c.mu.Lock()
		c.cache[quizID] = cachedContent{
			content:   content,
			expiresAt: c.clock().Add(c.ttlWithJitterLocked()),
		}
		c.mu.Unlock()
		return content, nil
	})
	if err != nil {
		return domain.QuizContent{}, err
	}
	return result.(domain.QuizContent), nil
}

// Invalidate drops the cached entry so the next read reloads it.
func (c *Catalog) Invalidate(_ context.Context, quizID int64) {
	c.sf.Forget(strconv.FormatInt(quizID, 10))
	c.mu.Lock()
	delete(c.cache, quizID)
	c.mu.Unlock()
}

func (c *Catalog) lookup(quizID int64) (domain.QuizContent, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[quizID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.QuizContent{}, false
	}
	return entry.content, true
}

func (c *Catalog) ttlWithJitterLocked() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter spreads expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
