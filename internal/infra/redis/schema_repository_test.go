package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"polls-service/internal/app"
	"polls-service/internal/domain"
	"polls-service/internal/infra/memory"
)

func TestSchemaRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{SchemaLoader: memory.NewStaticSchemaLoader(sampleSchema())}
	repo := NewSchemaRepository(newClient(mr), loader, time.Minute)

	if _, err := repo.GetSchema(context.Background(), 1); err != nil {
		t.Fatalf("get schema: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("poll:1:schema:v0") {
		t.Fatalf("expected schema key in redis")
	}
	if ttl := mr.TTL("poll:1:schema:v0"); ttl < time.Minute {
		t.Fatalf("expected ttl of at least a minute, got %v", ttl)
	}

	// Second call should hit cache, loader not incremented.
	schema, err := repo.GetSchema(context.Background(), 1)
	if err != nil {
		t.Fatalf("get schema 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	q, ok := schema.Question(1)
	if !ok || q.Type != domain.Single || !q.OwnsChoice(2) {
		t.Fatalf("unexpected cached schema %+v", schema)
	}
}

func TestSchemaRepositoryInvalidateDeletesKey(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{SchemaLoader: memory.NewStaticSchemaLoader(sampleSchema())}
	repo := NewSchemaRepository(newClient(mr), loader, time.Minute)

	_, _ = repo.GetSchema(context.Background(), 1)
	if err := repo.Invalidate(context.Background(), 1); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("poll:1:schema:v0") {
		t.Fatalf("expected schema key removed")
	}
	if v, err := mr.Get("poll:1:schema:version"); err != nil || v != "1" {
		t.Fatalf("expected version 1, got %q (%v)", v, err)
	}
	_, _ = repo.GetSchema(context.Background(), 1)
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.calls)
	}
	if !mr.Exists("poll:1:schema:v1") {
		t.Fatalf("expected schema cached under the new version")
	}
}

func TestSchemaRepositoryFallsBackWhenRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := newClient(mr)
	mr.Close()

	loader := &countingLoader{SchemaLoader: memory.NewStaticSchemaLoader(sampleSchema())}
	repo := NewSchemaRepository(client, loader, time.Minute)

	if _, err := repo.GetSchema(context.Background(), 1); err != nil {
		t.Fatalf("expected loader fallback, got %v", err)
	}
	if _, err := repo.GetSchema(context.Background(), 2); !errors.Is(err, domain.ErrPollNotFound) {
		t.Fatalf("expected poll not found, got %v", err)
	}
}

// snapshotLoader returns the schemas in order, one per call, blocking the first
// call until release is closed.
type snapshotLoader struct {
	mu        sync.Mutex
	snapshots []domain.PollSchema
	calls     int
	started   chan struct{}
	release   chan struct{}
}

func (l *snapshotLoader) LoadSchema(_ context.Context, _ int64) (domain.PollSchema, error) {
	l.mu.Lock()
	call := l.calls
	l.calls++
	l.mu.Unlock()
	if call == 0 {
		close(l.started)
		<-l.release
	}
	if call >= len(l.snapshots) {
		call = len(l.snapshots) - 1
	}
	return l.snapshots[call], nil
}

func TestSchemaRepositoryDropsLoadRacingInvalidate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	before := domain.PollSchema{PollID: 1, Questions: []domain.SchemaQuestion{{ID: 1, Type: domain.Arbitrary}}}
	loader := &snapshotLoader{
		snapshots: []domain.PollSchema{before, sampleSchema()},
		started:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	repo := NewSchemaRepository(newClient(mr), loader, time.Minute)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := repo.GetSchema(context.Background(), 1); err != nil {
			t.Errorf("get schema: %v", err)
		}
	}()

	<-loader.started
	if err := repo.Invalidate(context.Background(), 1); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	close(loader.release)
	<-done

	schema, err := repo.GetSchema(context.Background(), 1)
	if err != nil {
		t.Fatalf("get schema after invalidate: %v", err)
	}
	if len(schema.Questions) != 2 {
		t.Fatalf("stale schema served after invalidate: %d questions", len(schema.Questions))
	}
	if loader.calls != 2 {
		t.Fatalf("expected a fresh load after invalidate, loader calls=%d", loader.calls)
	}
}

type countingLoader struct {
	app.SchemaLoader
	calls int
}

func (l *countingLoader) LoadSchema(ctx context.Context, pollID int64) (domain.PollSchema, error) {
	l.calls++
	return l.SchemaLoader.LoadSchema(ctx, pollID)
}

func sampleSchema() domain.PollSchema {
	return domain.PollSchema{
		PollID: 1,
		Questions: []domain.SchemaQuestion{
			{ID: 1, Type: domain.Single, ChoiceIDs: []int64{1, 2}},
			{ID: 2, Type: domain.Many, ChoiceIDs: []int64{3}},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
