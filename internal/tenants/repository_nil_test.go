package tenants

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestRepository_NilPoolFailsClosed(t *testing.T) {
	repo := New(nil)

	if _, err := repo.FindBindingByAccount(context.Background(), "whatsapp", "device-1"); err != errRepoNotConfigured {
		t.Fatalf("expected errRepoNotConfigured, got %v", err)
	}
	if _, err := repo.GetTenant(context.Background(), uuid.New()); err != errRepoNotConfigured {
		t.Fatalf("expected errRepoNotConfigured, got %v", err)
	}
}
