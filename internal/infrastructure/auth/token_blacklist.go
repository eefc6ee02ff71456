package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/hubcrm/backend/internal/infrastructure/cache"
)

// TokenBlacklist revokes access tokens before they expire (logout)
type TokenBlacklist interface {
	// Revoke blacklists jti for ttl, normally the token's remaining lifetime
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// StoreTokenBlacklist keeps revoked token ids in the cache store, which is
// Redis when configured so revocations hold across instances.
type StoreTokenBlacklist struct {
	store     cache.Store
	keyPrefix string
}

// NewStoreTokenBlacklist creates a blacklist on store
func NewStoreTokenBlacklist(store cache.Store) *StoreTokenBlacklist {
	return &StoreTokenBlacklist{store: store, keyPrefix: "token:revoked:"}
}

// Revoke implements TokenBlacklist. Expired tokens need no entry.
func (b *StoreTokenBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := b.store.Set(ctx, b.keyPrefix+jti, []byte("1"), ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked implements TokenBlacklist
func (b *StoreTokenBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, found, err := b.store.Get(ctx, b.keyPrefix+jti)
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return found, nil
}

var _ TokenBlacklist = (*StoreTokenBlacklist)(nil)
