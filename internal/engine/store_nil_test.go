package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestStore_NilPoolFailsClosed(t *testing.T) {
	store := NewStore(nil)

	if _, err := store.Load(context.Background(), uuid.New(), "chat-1"); err != errStoreNotConfigured {
		t.Fatalf("expected errStoreNotConfigured, got %v", err)
	}
	if err := store.Insert(context.Background(), SessionState{}); err != errStoreNotConfigured {
		t.Fatalf("expected errStoreNotConfigured, got %v", err)
	}
	if err := store.Save(context.Background(), SessionState{}, time.Now()); err != errStoreNotConfigured {
		t.Fatalf("expected errStoreNotConfigured, got %v", err)
	}
	if err := store.Delete(context.Background(), uuid.New(), "chat-1"); err != errStoreNotConfigured {
		t.Fatalf("expected errStoreNotConfigured, got %v", err)
	}
}
