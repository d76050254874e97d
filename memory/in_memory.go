// Package memory provides a core.MemoryStore implementation keeping
// interactions in process memory, scored by token overlap and recency.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/supbro-dev/Wagner-agent/core"
)

// InMemoryStore implements core.MemoryStore with a scope-keyed map. Search
// scores are the fraction of query words appearing in the record, with a small
// recency bonus so fresher memories win ties.
type InMemoryStore struct {
	mu      sync.RWMutex
	scopes  map[string][]core.MemoryRecord
	maxHits int
}

// NewInMemoryStore constructs an empty memory store returning at most maxHits
// records per search (default 5 when <= 0).
func NewInMemoryStore(maxHits int) *InMemoryStore {
	if maxHits <= 0 {
		maxHits = 5
	}
	return &InMemoryStore{scopes: make(map[string][]core.MemoryRecord), maxHits: maxHits}
}

// Record stores one interaction in the scope.
func (s *InMemoryStore) Record(_ context.Context, interaction, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scopes[scope] = append(s.scopes[scope], core.MemoryRecord{
		ID:        core.NewID(),
		Content:   interaction,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// Search returns scope records relevant to the query, best first.
func (s *InMemoryStore) Search(_ context.Context, query, scope string) ([]core.MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return nil, nil
	}

	var hits []core.MemoryRecord
	now := time.Now()
	for _, rec := range s.scopes[scope] {
		content := strings.ToLower(rec.Content)
		matched := 0
		for _, w := range words {
			if strings.Contains(content, w) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		score := float64(matched) / float64(len(words))
		// Recency bonus decays over a day.
		age := now.Sub(rec.CreatedAt)
		if age < 24*time.Hour {
			score += 0.1 * (1 - age.Hours()/24)
		}
		rec.Score = score
		hits = append(hits, rec)
	}

	sort.Slice(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	if len(hits) > s.maxHits {
		hits = hits[:s.maxHits]
	}
	return hits, nil
}
