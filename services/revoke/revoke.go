// Package revokesvc tracks revoked JWT IDs so that sign-out invalidates
// tokens before their natural expiry.
package revokesvc

import (
	"context"
	"time"
)

// Store persists revoked token IDs until they would have expired anyway.
type Store interface {
	// Revoke marks jti as revoked for ttl.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	// IsRevoked reports whether jti has been revoked.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
