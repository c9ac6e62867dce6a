// Package session checks session token validity against the remote
// identity provider, with a time-bounded in-memory cache.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/paygit/paygit-cli/internal/provider"
)

// DefaultTTL is how long a validation result is trusted before the
// provider is consulted again.
const DefaultTTL = time.Hour

// ProfileClient is the slice of the provider adapter the validator
// needs.
type ProfileClient interface {
	CurrentProfile(ctx context.Context, token string) (*provider.Profile, error)
	SpendableBalance(ctx context.Context, token string) (*provider.Balance, error)
}

// Cache stores validation results per token.
type Cache interface {
	Get(token string) (valid bool, ok bool)
	Put(token string, valid bool)
	Clear()
}

type cacheEntry struct {
	valid bool
	at    time.Time
}

// TTLCache is an in-memory Cache with per-entry expiry. Entries are
// purged lazily on lookup.
type TTLCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

// NewTTLCache creates a cache with the given time-to-live.
func NewTTLCache(ttl time.Duration) *TTLCache {
	return &TTLCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached result for token, if present and fresh.
func (c *TTLCache) Get(token string) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[token]
	if !ok {
		return false, false
	}
	if c.now().Sub(entry.at) >= c.ttl {
		delete(c.entries, token)
		return false, false
	}
	return entry.valid, true
}

// Put records a validation result for token, stamped at write time.
func (c *TTLCache) Put(token string, valid bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[token] = cacheEntry{valid: valid, at: c.now()}
}

// Clear drops all cached entries.
func (c *TTLCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Validator answers "is this token still good?" without ever
// propagating provider errors to callers.
type Validator struct {
	client ProfileClient
	cache  Cache
	logger *slog.Logger
}

// NewValidator creates a Validator. A nil cache gets a fresh TTLCache
// with the default TTL.
func NewValidator(client ProfileClient, cache Cache, logger *slog.Logger) *Validator {
	if cache == nil {
		cache = NewTTLCache(DefaultTTL)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{client: client, cache: cache, logger: logger}
}

// IsValid reports whether the token resolves to a well-formed profile.
// A fresh cache entry short-circuits the remote check. Provider errors
// and malformed profiles both mean invalid; this boundary fails closed
// and never returns an error.
func (v *Validator) IsValid(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}

	if valid, ok := v.cache.Get(token); ok {
		return valid
	}

	profile, err := v.client.CurrentProfile(ctx, token)
	valid := err == nil && profile != nil && profile.Handle != ""
	if err != nil {
		v.logger.Debug("token validation against provider failed", "error", err)
	}

	v.cache.Put(token, valid)
	return valid
}

// InvalidateCache clears all cached validation results. Call after
// logout or re-authentication so stale results do not linger.
func (v *Validator) InvalidateCache() {
	v.cache.Clear()
}

// Profile fetches the account profile. Best effort: provider failures
// are logged and reported as absent, never raised.
func (v *Validator) Profile(ctx context.Context, token string) (*provider.Profile, bool) {
	profile, err := v.client.CurrentProfile(ctx, token)
	if err != nil {
		v.logger.Warn("could not fetch profile", "error", err)
		return nil, false
	}
	return profile, true
}

// Balance fetches the spendable balance. Best effort, same contract as
// Profile.
func (v *Validator) Balance(ctx context.Context, token string) (*provider.Balance, bool) {
	balance, err := v.client.SpendableBalance(ctx, token)
	if err != nil {
		v.logger.Warn("could not fetch balance", "error", err)
		return nil, false
	}
	return balance, true
}
