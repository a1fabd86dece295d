package tenants

import (
	"context"
	"sync"
	"time"

	"movingintake/platform/logger"

	"golang.org/x/sync/singleflight"
)

// Service resolves (provider, provider_account_id) to a TenantContext via a
// read-mostly cache refreshed on a TTL. Concurrent misses for the same key
// collapse into a single repository round trip via singleflight, so a cache
// stampede on TTL expiry never multiplies DB load.
type Service struct {
	repo   *Repository
	crypto *Crypto
	ttl    time.Duration
	log    *logger.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry

	group singleflight.Group
}

type cacheEntry struct {
	ctx       TenantContext
	fetchedAt time.Time
}

// NewService builds a Service. ttl controls how long a resolved binding is
// served from cache before a fresh repository lookup is required.
func NewService(repo *Repository, crypto *Crypto, ttl time.Duration, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		crypto: crypto,
		ttl:    ttl,
		log:    log,
		cache:  make(map[string]cacheEntry),
	}
}

func cacheKey(provider, providerAccountID string) string {
	return provider + "\x00" + providerAccountID
}

// Resolve returns the TenantContext for (provider, provider_account_id),
// serving from cache when fresh. On a decrypt context mismatch it logs a
// generic CryptoMismatch event (no tenant/provider identifiers) and returns
// ErrCryptoContextMismatch's caller-facing form.
func (s *Service) Resolve(ctx context.Context, provider, providerAccountID string) (TenantContext, error) {
	key := cacheKey(provider, providerAccountID)

	if tc, ok := s.fromCache(key); ok {
		return tc, nil
	}

	result, err, _ := s.group.Do(key, func() (any, error) {
		return s.fetch(ctx, provider, providerAccountID)
	})
	if err != nil {
		return TenantContext{}, err
	}
	tc := result.(TenantContext)

	s.mu.Lock()
	s.cache[key] = cacheEntry{ctx: tc, fetchedAt: time.Now()}
	s.mu.Unlock()

	return tc, nil
}

func (s *Service) fromCache(key string) (TenantContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.cache[key]
	if !ok || time.Since(entry.fetchedAt) > s.ttl {
		return TenantContext{}, false
	}
	return entry.ctx, true
}

func (s *Service) fetch(ctx context.Context, provider, providerAccountID string) (TenantContext, error) {
	binding, err := s.repo.FindBindingByAccount(ctx, provider, providerAccountID)
	if err != nil {
		return TenantContext{}, err
	}

	tenant, err := s.repo.GetTenant(ctx, binding.TenantID)
	if err != nil {
		return TenantContext{}, err
	}
	if !tenant.IsActive {
		return TenantContext{}, ErrTenantNotFound
	}

	cfg, err := ParseTenantConfig(tenant.Config)
	if err != nil {
		return TenantContext{}, err
	}

	creds, err := s.crypto.Decrypt(binding.EncryptedCreds, binding.TenantID.String(), provider)
	if err != nil {
		s.log.CryptoMismatch(ctx, "channel binding decrypt failed")
		return TenantContext{}, AsAppError(err)
	}

	return TenantContext{TenantID: binding.TenantID, Config: cfg, Creds: creds}, nil
}

// Invalidate drops a cached entry immediately, used when a binding is
// rotated out of band.
func (s *Service) Invalidate(provider, providerAccountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, cacheKey(provider, providerAccountID))
}
