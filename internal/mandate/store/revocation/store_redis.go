// Package revocation tracks store-side mandate revocation.
//
// Verification is deliberately stateless and does not consult this list; the
// list exists so the refresh path and administrative tooling can see
// revocations, and so a future store-aware verification mode has somewhere
// to look.
package revocation

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	id "procura/pkg/domain"
)

var isRevokedDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "procura_is_mandate_revoked_duration_ms",
	Help:    "Latency of mandate revocation checks in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

// Redis key prefix for revoked mandates.
const revokedMandateKeyPrefix = "mrl:mandate:"

// List is the mandate revocation list contract.
type List interface {
	Revoke(ctx context.Context, mandateID id.MandateID, ttl time.Duration) error
	IsRevoked(ctx context.Context, mandateID id.MandateID) (bool, error)
}

// RedisList is a Redis-backed revocation list, the recommended
// implementation for distributed deployments where multiple instances need
// to share revocation state. Entries expire with the mandate itself, so the
// list stays bounded.
type RedisList struct {
	client *redis.Client
}

// NewRedisList constructs a Redis-backed mandate revocation list.
func NewRedisList(client *redis.Client) *RedisList {
	return &RedisList{client: client}
}

// Revoke marks a mandate revoked until its validity window would have closed.
// Uses SET with expiry; key existence is what matters.
func (l *RedisList) Revoke(ctx context.Context, mandateID id.MandateID, ttl time.Duration) error {
	if mandateID.IsNil() {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	key := revokedMandateKeyPrefix + mandateID.String()
	return l.client.Set(ctx, key, "1", ttl).Err()
}

// IsRevoked checks membership. A missing key means not revoked (or the
// mandate already expired, which is equivalent for callers).
func (l *RedisList) IsRevoked(ctx context.Context, mandateID id.MandateID) (bool, error) {
	start := time.Now()
	defer func() {
		isRevokedDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	if mandateID.IsNil() {
		return false, nil
	}
	key := revokedMandateKeyPrefix + mandateID.String()
	_, err := l.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
