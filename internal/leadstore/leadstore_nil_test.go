package leadstore

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

// A nil *pgxpool.Pool must never panic through these repositories; every
// exported method has to fail closed with errStoreNotConfigured instead.

func TestLeadRepository_NilPoolFailsClosed(t *testing.T) {
	repo := NewLeadRepository(nil)

	if _, err := repo.SaveLead(context.Background(), uuid.New(), "lead-1", "chat-1", StatusNew, nil); err != errStoreNotConfigured {
		t.Fatalf("expected errStoreNotConfigured, got %v", err)
	}
	if _, err := repo.GetByID(context.Background(), uuid.New(), "lead-1"); err != errStoreNotConfigured {
		t.Fatalf("expected errStoreNotConfigured, got %v", err)
	}
}

func TestMediaRepository_NilPoolFailsClosed(t *testing.T) {
	repo := NewMediaRepository(nil)

	if _, err := repo.Insert(context.Background(), MediaAsset{}); err != errStoreNotConfigured {
		t.Fatalf("expected errStoreNotConfigured, got %v", err)
	}
	if _, err := repo.CleanupExpired(context.Background(), func(context.Context, string) error { return nil }); err != errStoreNotConfigured {
		t.Fatalf("expected errStoreNotConfigured, got %v", err)
	}
}

func TestInboundRepository_NilPoolFailsClosed(t *testing.T) {
	repo := NewInboundRepository(nil)

	if _, err := repo.RecordIfNew(context.Background(), uuid.New(), "whatsapp", "msg-1"); err != errStoreNotConfigured {
		t.Fatalf("expected errStoreNotConfigured, got %v", err)
	}
}
