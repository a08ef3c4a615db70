// Package idempotency stores the first response produced for a
// client-supplied Idempotency-Key so that retried booking submissions
// return the original booking instead of creating a second one.  State
// lives in Redis: a short-lived lock marks a request in flight and the
// serialized response replaces it once the booking commits.
package idempotency

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix    = "idem:bookings"
	lockMarker   = "LOCK"
	resultMarker = "RES:"
)

// Store wraps a Redis client with the lock/result protocol.  A nil client
// disables the store; every method then reports "not found" so bookings
// proceed without replay protection.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore builds a Store keeping results for ttl.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Enabled reports whether a Redis backend is available.
func (s *Store) Enabled() bool { return s != nil && s.rdb != nil }

func key(userID uint64, idemKey string) string {
	return keyPrefix + ":" + strconv.FormatUint(userID, 10) + ":" + idemKey
}

// AcquireLock claims the key for an in-flight request.  It returns false
// when another request already holds the key, in which case the caller
// should consult GetResult.
func (s *Store) AcquireLock(ctx context.Context, userID uint64, idemKey string, lockTTL time.Duration) (bool, error) {
	if !s.Enabled() {
		return true, nil
	}
	return s.rdb.SetNX(ctx, key(userID, idemKey), lockMarker, lockTTL).Result()
}

// SaveResult replaces the lock with the serialized response body.
func (s *Store) SaveResult(ctx context.Context, userID uint64, idemKey, jsonPayload string) error {
	if !s.Enabled() {
		return nil
	}
	return s.rdb.Set(ctx, key(userID, idemKey), resultMarker+jsonPayload, s.ttl).Err()
}

// GetResult returns the stored response for the key, if any.
func (s *Store) GetResult(ctx context.Context, userID uint64, idemKey string) (string, bool, error) {
	if !s.Enabled() {
		return "", false, nil
	}
	v, err := s.rdb.Get(ctx, key(userID, idemKey)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if strings.HasPrefix(v, resultMarker) {
		return strings.TrimPrefix(v, resultMarker), true, nil
	}
	return "", false, nil
}

// Release drops the key so a failed request can be retried immediately.
func (s *Store) Release(ctx context.Context, userID uint64, idemKey string) error {
	if !s.Enabled() {
		return nil
	}
	return s.rdb.Del(ctx, key(userID, idemKey)).Err()
}
