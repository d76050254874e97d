package task

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by store lookups that match no live record.
var ErrNotFound = errors.New("task: not found")

// Record is a persisted task. Names are unique per business key among live
// (non-deleted) records.
type Record struct {
	ID          int64     `json:"id"`
	BusinessKey string    `json:"businessKey"`
	Name        string    `json:"name"`
	Detail      Detail    `json:"detail"`
	InvokeTimes int64     `json:"invokeTimes"` // Number of completed executions
	ExecutedAt  time.Time `json:"executedAt"`  // Last execution time (zero if never run)
	Deleted     bool      `json:"deleted"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Store persists task records. Deletion is always soft: deleted records stay
// in storage but are invisible to every lookup.
type Store interface {
	// FindByID returns the live record with the given id or ErrNotFound.
	FindByID(ctx context.Context, id int64) (*Record, error)
	// FindByName returns the live record with the given name within the
	// business key or ErrNotFound.
	FindByName(ctx context.Context, businessKey, name string) (*Record, error)
	// Save inserts rec when rec.ID is zero, otherwise updates the existing
	// record's name and detail. Returns the record id.
	Save(ctx context.Context, rec *Record) (int64, error)
	// SoftDelete marks the record deleted. Deleting an already deleted or
	// missing record returns ErrNotFound.
	SoftDelete(ctx context.Context, id int64, businessKey string) error
	// BumpInvokeCount increments the execution counter and stamps the last
	// execution time.
	BumpInvokeCount(ctx context.Context, id int64, businessKey string) error
	// RecentlyUsed returns up to limit live records ordered by most recent
	// execution.
	RecentlyUsed(ctx context.Context, businessKey string, limit int) ([]Record, error)
	// FrequentlyUsed returns up to limit live records ordered by execution
	// count, excluding the given ids.
	FrequentlyUsed(ctx context.Context, businessKey string, excludeIDs []int64, limit int) ([]Record, error)
}

// Retriever indexes task descriptions for fuzzy lookup when an exact name
// match fails.
type Retriever interface {
	// Index adds or refreshes the record in the index.
	Index(ctx context.Context, rec *Record) error
	// Remove drops the record from the index.
	Remove(ctx context.Context, id int64) error
	// Search returns up to topK indexed tasks ranked by similarity to query.
	Search(ctx context.Context, query string, topK int) ([]RetrievedTask, error)
}

// RetrievedTask is one fuzzy lookup hit.
type RetrievedTask struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Detail Detail  `json:"detail"`
	Score  float64 `json:"score"`
}
