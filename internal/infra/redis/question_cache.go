package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"staar-quiz-service/internal/domain"
)

// QuestionLoader fetches question records from the backing source (file, sheet, database).
type QuestionLoader interface {
	Load(ctx context.Context) ([]domain.Question, error)
}

// QuestionCache shares loaded question records between instances. The full set (answer key
// included, it never leaves the server side) is stored as one JSON value:
//
//	SET {prefix}:questions <json> EX ttl
//
// so canonical order survives the round trip.
type QuestionCache struct {
	client *redis.Client
	loader QuestionLoader
	key    string
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader QuestionLoader, prefix string, ttl time.Duration) *QuestionCache {
	if prefix == "" {
		prefix = "quiz"
	}
	return &QuestionCache{
		client: client,
		loader: loader,
		key:    prefix + ":questions",
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) Load(ctx context.Context) ([]domain.Question, error) {
	if questions, ok := c.cached(ctx); ok {
		return questions, nil
	}

	result, err, _ := c.sf.Do(c.key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if questions, ok := c.cached(ctx); ok {
			return questions, nil
		}

		questions, err := c.loader.Load(ctx)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(questions)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, c.key, data, c.ttlWithJitter()).Err(); err != nil {
			slog.WarnContext(ctx, "redis: cache questions failed", "key", c.key, "error", err)
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops the cached set so the next Load goes to the loader.
func (c *QuestionCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}

func (c *QuestionCache) cached(ctx context.Context) ([]domain.Question, bool) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.WarnContext(ctx, "redis: read cached questions failed", "key", c.key, "error", err)
		}
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		slog.WarnContext(ctx, "redis: cached questions corrupt", "key", c.key, "error", err)
		return nil, false
	}
	return questions, true
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
