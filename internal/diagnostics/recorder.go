// Package diagnostics keeps a bounded history of swallowed integration
// failures so operators can inspect them without searching logs.
package diagnostics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"lead_engine_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

// Entry is one recorded failure.
type Entry struct {
	Component string            `json:"component"`
	Operation string            `json:"operation"`
	Error     string            `json:"error"`
	At        time.Time         `json:"at"`
	Attrs     map[string]string `json:"attrs,omitempty"`
}

// Recorder stores failures and lists the most recent ones.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// Counter is the metrics hook notified for every recorded failure.
type Counter interface {
	IntegrationFailure(component string)
}

// RedisRecorder keeps entries in a capped redis list, newest first.
type RedisRecorder struct {
	client     *redis.Client
	key        string
	maxEntries int
	log        *logger.Logger
	counter    Counter
}

func NewRedisRecorder(client *redis.Client, key string, maxEntries int, log *logger.Logger, counter Counter) *RedisRecorder {
	return &RedisRecorder{client: client, key: key, maxEntries: maxEntries, log: log, counter: counter}
}

// Record logs the failure and pushes it onto the list. A redis error is
// logged only; recording must never fail the caller.
func (r *RedisRecorder) Record(ctx context.Context, entry Entry) {
	entry = stamp(entry)
	logFailure(r.log, r.counter, entry)

	data, err := json.Marshal(entry)
	if err != nil {
		r.log.Error("diagnostics marshal failed", "error", err)
		return
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.key, data)
	pipe.LTrim(ctx, r.key, 0, int64(r.maxEntries-1))
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Error("diagnostics record failed", "error", err)
	}
}

func (r *RedisRecorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > r.maxEntries {
		limit = r.maxEntries
	}

	raw, err := r.client.LRange(ctx, r.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read diagnostics: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var entry Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// MemoryRecorder is the fallback when redis is not configured.
type MemoryRecorder struct {
	mu         sync.Mutex
	entries    []Entry
	maxEntries int
	log        *logger.Logger
	counter    Counter
}

func NewMemoryRecorder(maxEntries int, log *logger.Logger, counter Counter) *MemoryRecorder {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	return &MemoryRecorder{maxEntries: maxEntries, log: log, counter: counter}
}

func (r *MemoryRecorder) Record(_ context.Context, entry Entry) {
	entry = stamp(entry)
	logFailure(r.log, r.counter, entry)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append([]Entry{entry}, r.entries...)
	if len(r.entries) > r.maxEntries {
		r.entries = r.entries[:r.maxEntries]
	}
}

func (r *MemoryRecorder) Recent(_ context.Context, limit int) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 || limit > len(r.entries) {
		limit = len(r.entries)
	}
	return append([]Entry(nil), r.entries[:limit]...), nil
}

// Failure builds an entry from an error.
func Failure(component, operation string, err error, attrs map[string]string) Entry {
	return Entry{Component: component, Operation: operation, Error: err.Error(), Attrs: attrs}
}

func stamp(entry Entry) Entry {
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	return entry
}

func logFailure(log *logger.Logger, counter Counter, entry Entry) {
	attrs := make([]any, 0, len(entry.Attrs)*2)
	for k, v := range entry.Attrs {
		attrs = append(attrs, k, v)
	}
	log.IntegrationFailure(entry.Component, entry.Operation, errors.New(entry.Error), attrs...)
	if counter != nil {
		counter.IntegrationFailure(entry.Component)
	}
}
