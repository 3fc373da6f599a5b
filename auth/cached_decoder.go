package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-resources/core"
)

const decodedTokenCacheKeyPrefix = "go-resources::decoded_token::v1"

// CachedTokenDecoder memoizes verified tokens. Cached entries are checked
// against their expiry again on every hit.
type CachedTokenDecoder struct {
	base  TokenDecoder
	cache repositorycache.CacheService
	now   func() time.Time
}

func NewCachedTokenDecoder(base TokenDecoder, cacheService repositorycache.CacheService) (*CachedTokenDecoder, error) {
	if base == nil {
		return nil, fmt.Errorf("auth: base token decoder is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("auth: token cache service is required")
	}
	return &CachedTokenDecoder{base: base, cache: cacheService, now: time.Now}, nil
}

// WithClock replaces the time source used for the expiry re-check.
func (d *CachedTokenDecoder) WithClock(now func() time.Time) *CachedTokenDecoder {
	if d != nil && now != nil {
		d.now = now
	}
	return d
}

// DecodedTokenCacheKey is go-resources::decoded_token::v1::<sha256(token)>.
func DecodedTokenCacheKey(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return decodedTokenCacheKeyPrefix + "::" + hex.EncodeToString(sum[:])
}

func (d *CachedTokenDecoder) Decode(ctx context.Context, token string) (DecodedToken, error) {
	if d == nil || d.base == nil || d.cache == nil {
		return DecodedToken{}, core.InternalError("auth: cached token decoder is not configured")
	}
	if strings.TrimSpace(token) == "" {
		return DecodedToken{}, core.UnauthorizedError("auth: token is required")
	}
	key := DecodedTokenCacheKey(token)
	decoded, err := repositorycache.GetOrFetch(ctx, d.cache, key, func(ctx context.Context) (DecodedToken, error) {
		return d.base.Decode(ctx, token)
	})
	if err != nil {
		return DecodedToken{}, err
	}
	if !decoded.ExpiresAt.IsZero() && !d.now().Before(decoded.ExpiresAt) {
		_ = d.cache.Delete(ctx, key)
		return DecodedToken{}, core.UnauthorizedError("auth: token has expired")
	}
	decoded.Claims = append([]core.Claim(nil), decoded.Claims...)
	return decoded, nil
}

// Invalidate drops a token from the cache, typically after its refresh
// record was rotated or revoked.
func (d *CachedTokenDecoder) Invalidate(ctx context.Context, token string) error {
	if d == nil || d.cache == nil {
		return nil
	}
	return d.cache.Delete(ctx, DecodedTokenCacheKey(token))
}

var _ TokenDecoder = (*CachedTokenDecoder)(nil)
