package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"lead_engine_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type countingCounter struct {
	calls map[string]int
}

func (c *countingCounter) IntegrationFailure(component string) {
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[component]++
}

func TestRedisRecorderCapsAndOrders(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	counter := &countingCounter{}
	rec := NewRedisRecorder(client, "diag:test", 3, logger.New("development"), counter)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec.Record(ctx, Failure("sheets", "append_row", fmt.Errorf("failure %d", i), map[string]string{"sheet": "Leads"}))
	}

	entries, err := rec.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 capped entries, got %d", len(entries))
	}
	if entries[0].Error != "failure 4" || entries[2].Error != "failure 2" {
		t.Fatalf("expected newest first, got %+v", entries)
	}
	if entries[0].Attrs["sheet"] != "Leads" || entries[0].At.IsZero() {
		t.Fatalf("expected attrs and timestamp, got %+v", entries[0])
	}
	if counter.calls["sheets"] != 5 {
		t.Fatalf("expected 5 counted failures, got %d", counter.calls["sheets"])
	}
}

func TestRedisRecorderSurvivesRedisOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	rec := NewRedisRecorder(client, "diag:test", 10, logger.New("development"), nil)

	mr.Close()
	rec.Record(context.Background(), Failure("whatsapp", "send", errors.New("timeout"), nil))

	if _, err := rec.Recent(context.Background(), 5); err == nil {
		t.Fatal("expected read error while redis is down")
	}
}

func TestMemoryRecorder(t *testing.T) {
	rec := NewMemoryRecorder(2, logger.New("development"), nil)
	ctx := context.Background()

	rec.Record(ctx, Failure("email", "send_summary", errors.New("a"), nil))
	rec.Record(ctx, Failure("email", "send_summary", errors.New("b"), nil))
	rec.Record(ctx, Failure("email", "send_summary", errors.New("c"), nil))

	entries, _ := rec.Recent(ctx, 10)
	if len(entries) != 2 || entries[0].Error != "c" || entries[1].Error != "b" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}
