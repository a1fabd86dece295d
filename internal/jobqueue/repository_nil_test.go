package jobqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRepository_NilPoolFailsClosed(t *testing.T) {
	repo := New(nil)
	wantErr := errors.New(errRepoNotConfigured)

	if _, err := repo.Enqueue(context.Background(), EnqueueParams{TenantID: uuid.New(), JobType: "notify"}); err.Error() != wantErr.Error() {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
	if _, err := repo.ClaimBatch(context.Background(), []string{"notify"}, 5); err.Error() != wantErr.Error() {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
	if err := repo.Complete(context.Background(), uuid.New()); err.Error() != wantErr.Error() {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
	if err := repo.Fail(context.Background(), uuid.New(), "boom", time.Second); err.Error() != wantErr.Error() {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
	if _, err := repo.ResetStale(context.Background(), time.Minute); err.Error() != wantErr.Error() {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
	if _, err := repo.GetByID(context.Background(), uuid.New()); err.Error() != wantErr.Error() {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
	if _, err := repo.ClaimIdempotencyKey(context.Background(), uuid.New(), "lead-1:notify_operator_v1"); err.Error() != wantErr.Error() {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}
