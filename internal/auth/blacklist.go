package auth

import (
	"context"
	"time"
)

// TokenBlacklist stores revoked token ids.
type TokenBlacklist interface {
	// Add revokes jti until originalTokenExpTime, after which the entry may be dropped.
	Add(ctx context.Context, jti string, originalTokenExpTime time.Time) error
	// IsBlacklisted reports whether jti has been revoked.
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}
