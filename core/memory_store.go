package core

import (
	"context"
	"time"
)

// MemoryRecord is a single recalled interaction with its relevance score.
type MemoryRecord struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// MemoryStore provides long-lived conversational memory partitioned by scope
// (typically business key + session). Implementations decide the relevance
// metric for Search.
type MemoryStore interface {
	// Search returns records from the scope ranked by relevance to the query.
	Search(ctx context.Context, query, scope string) ([]MemoryRecord, error)
	// Record stores one interaction in the scope.
	Record(ctx context.Context, interaction, scope string) error
}
