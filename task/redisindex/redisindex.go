// Package redisindex implements task.Retriever on Redis hashes. Task
// descriptions are indexed as token bags; search ranks candidates by token
// overlap with the query. Good enough for fuzzy task-name lookup without an
// embedding service.
package redisindex

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/redis/go-redis/v9"
	"github.com/supbro-dev/Wagner-agent/task"
)

// DefaultThreshold is the minimum similarity score a hit must reach to be
// returned from Search.
const DefaultThreshold = 0.30

// Index implements task.Retriever. Keys are namespaced per business key so
// tenants never see each other's tasks.
type Index struct {
	client      *redis.Client
	businessKey string
	threshold   float64
}

// Options configure the index.
type Options struct {
	Threshold float64
}

// New builds an index over the given Redis client, scoped to businessKey.
func New(client *redis.Client, businessKey string, optFns ...func(o *Options)) *Index {
	opts := Options{Threshold: DefaultThreshold}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Index{client: client, businessKey: businessKey, threshold: opts.Threshold}
}

func (i *Index) key(id int64) string {
	return fmt.Sprintf("wagner:taskidx:%s:%d", i.businessKey, id)
}

func (i *Index) pattern() string {
	return fmt.Sprintf("wagner:taskidx:%s:*", i.businessKey)
}

// Index adds or refreshes the record in the index.
func (i *Index) Index(ctx context.Context, rec *task.Record) error {
	detailJSON, err := json.Marshal(rec.Detail)
	if err != nil {
		return fmt.Errorf("redisindex: marshaling detail: %w", err)
	}
	doc := rec.Name + "\n" + rec.Detail.Describe()
	if err := i.client.HSet(ctx, i.key(rec.ID),
		"id", rec.ID,
		"name", rec.Name,
		"detail", string(detailJSON),
		"doc", doc,
	).Err(); err != nil {
		return fmt.Errorf("redisindex: indexing task %d: %w", rec.ID, err)
	}
	return nil
}

// Remove drops the record from the index.
func (i *Index) Remove(ctx context.Context, id int64) error {
	if err := i.client.Del(ctx, i.key(id)).Err(); err != nil {
		return fmt.Errorf("redisindex: removing task %d: %w", id, err)
	}
	return nil
}

// Search scans the business key's entries and returns up to topK hits above
// the similarity threshold, best first.
func (i *Index) Search(ctx context.Context, query string, topK int) ([]task.RetrievedTask, error) {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	var hits []task.RetrievedTask
	iter := i.client.Scan(ctx, 0, i.pattern(), 100).Iterator()
	for iter.Next(ctx) {
		fields, err := i.client.HGetAll(ctx, iter.Val()).Result()
		if err != nil {
			return nil, fmt.Errorf("redisindex: reading entry: %w", err)
		}
		score := similarity(queryTokens, tokenize(fields["doc"]))
		if score < i.threshold {
			continue
		}

		var id int64
		fmt.Sscanf(fields["id"], "%d", &id)
		var detail task.Detail
		if raw := fields["detail"]; raw != "" {
			if err := json.Unmarshal([]byte(raw), &detail); err != nil {
				return nil, fmt.Errorf("redisindex: decoding detail for %s: %w", iter.Val(), err)
			}
		}
		hits = append(hits, task.RetrievedTask{
			ID:     id,
			Name:   fields["name"],
			Detail: detail,
			Score:  score,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redisindex: scan failed: %w", err)
	}

	sort.Slice(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// tokenize lowercases and splits on non-letter/digit boundaries. CJK runes are
// emitted as single-rune tokens so ideographic names still overlap.
func tokenize(text string) map[string]bool {
	tokens := map[string]bool{}
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			tokens[current.String()] = true
			current.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			tokens[string(r)] = true
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			current.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}

// similarity is the fraction of query tokens present in the document.
func similarity(query, doc map[string]bool) float64 {
	if len(query) == 0 {
		return 0
	}
	matched := 0
	for tok := range query {
		if doc[tok] {
			matched++
		}
	}
	return float64(matched) / float64(len(query))
}
