package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"studyhub/internal/domain"
	"studyhub/internal/infra/memory"
)

// QuizRepository caches quiz documents in Redis and falls back to a loader on cache miss.
// Quizzes are stored as: SET quiz:{quizID} {json document}
type QuizRepository struct {
	client *redis.Client
	loader memory.QuizLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewQuizRepository(client *redis.Client, loader memory.QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.cached(ctx, quizID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := r.cached(ctx, quizID); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		if data, err := json.Marshal(quiz); err == nil {
			_ = r.client.Set(ctx, r.key(quizID), data, r.ttlWithJitter()).Err()
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (r *QuizRepository) ListQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.Quiz, error) {
	quizzes, err := r.loader.ListQuizzes(ctx)
	if err != nil {
		return nil, err
	}
	return memory.FilterQuizzes(quizzes, filter), nil
}

// SaveQuiz writes through to the loader and evicts the cached document.
func (r *QuizRepository) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	if err := r.loader.SaveQuiz(ctx, quiz); err != nil {
		return err
	}
	return r.client.Del(ctx, r.key(quiz.ID)).Err()
}

// cached treats any Redis failure as a miss so the loader stays authoritative.
func (r *QuizRepository) cached(ctx context.Context, quizID string) (domain.Quiz, bool) {
	data, err := r.client.Get(ctx, r.key(quizID)).Bytes()
	if err != nil {
		return domain.Quiz{}, false
	}
	quiz, err := domain.DecodeQuiz(data)
	if err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (r *QuizRepository) key(quizID string) string {
	return "quiz:" + quizID
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// ExplanationCache keeps generated explanations in a hash per user.
// Entries are stored as: HSET explanations:{userID} {quizID/questionID} {text}
type ExplanationCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewExplanationCache(client *redis.Client, ttl time.Duration) *ExplanationCache {
	return &ExplanationCache{client: client, ttl: ttl}
}

func (c *ExplanationCache) Load(ctx context.Context, userID string) (map[string]string, error) {
	entries, err := c.client.HGetAll(ctx, c.key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return map[string]string{}, nil
	}
	return entries, err
}

func (c *ExplanationCache) Store(ctx context.Context, userID, key, text string) error {
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, c.key(userID), key, text)
	if c.ttl > 0 {
		pipe.Expire(ctx, c.key(userID), c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (c *ExplanationCache) key(userID string) string {
	return "explanations:" + userID
}
