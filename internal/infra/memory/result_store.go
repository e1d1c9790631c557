package memory

import (
	"context"
	"sort"
	"sync"

	"studyhub/internal/domain"
)

// ResultStore keeps completed results in process memory.
type ResultStore struct {
	mu      sync.RWMutex
	results []domain.QuizResult
}

func NewResultStore() *ResultStore {
	return &ResultStore{}
}

func (s *ResultStore) SaveResult(_ context.Context, result domain.QuizResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

// ListResults returns the results of userID, newest first.
func (s *ResultStore) ListResults(_ context.Context, userID string) ([]domain.QuizResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QuizResult, 0)
	for _, result := range s.results {
		if result.UserID == userID {
			out = append(out, result)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	return out, nil
}

// ExplanationCache keeps generated explanations per user in process memory.
type ExplanationCache struct {
	mu      sync.RWMutex
	entries map[string]map[string]string
}

func NewExplanationCache() *ExplanationCache {
	return &ExplanationCache{entries: make(map[string]map[string]string)}
}

func (c *ExplanationCache) Load(_ context.Context, userID string) (map[string]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.entries[userID]))
	for key, text := range c.entries[userID] {
		out[key] = text
	}
	return out, nil
}

func (c *ExplanationCache) Store(_ context.Context, userID, key, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[userID] == nil {
		c.entries[userID] = make(map[string]string)
	}
	c.entries[userID][key] = text
	return nil
}
