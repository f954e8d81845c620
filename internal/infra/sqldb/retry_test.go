package sqldb

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"polls-service/internal/app"
	"polls-service/internal/domain"
)

var errConflict = errors.New("could not serialize access")

func newRetryStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := CreateSchema(context.Background(), db); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	store := NewStore(db)
	store.retryable = func(err error) bool { return errors.Is(err, errConflict) }
	store.backoff = 0
	return store
}

func TestRunInTxRetriesConflicts(t *testing.T) {
	ctx := context.Background()
	store := newRetryStore(t)

	attempts := 0
	err := store.RunInTx(ctx, func(ctx context.Context, q app.Queries) error {
		attempts++
		poll := domain.Poll{Title: "t", Description: "d", StartDate: time.Now(), EndDate: time.Now()}
		if err := q.CreatePoll(ctx, &poll); err != nil {
			return err
		}
		if attempts == 1 {
			return fmt.Errorf("commit: %w", errConflict)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
	polls, err := store.ListPolls(ctx)
	if err != nil {
		t.Fatalf("list polls: %v", err)
	}
	if len(polls) != 1 {
		t.Fatalf("expected the first attempt rolled back, got %d polls", len(polls))
	}
}

func TestRunInTxGivesUpAfterMaxAttempts(t *testing.T) {
	store := newRetryStore(t)

	attempts := 0
	err := store.RunInTx(context.Background(), func(context.Context, app.Queries) error {
		attempts++
		return errConflict
	})
	if attempts != maxTxAttempts {
		t.Fatalf("expected %d attempts, got %d", maxTxAttempts, attempts)
	}
	if !errors.Is(err, domain.ErrStorage) || !errors.Is(err, errConflict) {
		t.Fatalf("expected wrapped storage error, got %v", err)
	}
}

func TestRunInTxDoesNotRetryValidationErrors(t *testing.T) {
	store := newRetryStore(t)
	store.retryable = isSerializationFailure

	attempts := 0
	err := store.RunInTx(context.Background(), func(context.Context, app.Queries) error {
		attempts++
		return domain.NewValidationError("answers", domain.CodeEmptySubmission, "empty")
	})
	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
	if !domain.HasCode(err, domain.CodeEmptySubmission) {
		t.Fatalf("expected validation error to pass through, got %v", err)
	}
	if isSerializationFailure(errConflict) {
		t.Fatalf("plain errors must not count as serialization failures")
	}
}
