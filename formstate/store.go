package formstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRedisUnavailable wraps any Redis command failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrNotFound is returned by Get when the form snapshot does not exist or expired.
	ErrNotFound = errors.New("form snapshot not found")
	// ErrLeaseHeld is returned by AcquireLease when another submission holds the form.
	ErrLeaseHeld = errors.New("form lease held")
)

// Releases the lease only if it still carries the caller's token, so an expired
// lease re-acquired by another replica is never released by the old holder.
const releaseLeaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var releaseLeaseLua = redis.NewScript(releaseLeaseScript)

// Store is a Redis-backed form snapshot store.
//
// Key layout:
//   - <prefix>:<formID>  : encoded Snapshot
//   - <prefix>:l:<formID>: in-flight lease token
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a [Store] backed by the given Redis client.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "af"
	}
	return &Store{
		redis:  client,
		prefix: prefix,
	}
}

func (s *Store) key(formID string) string {
	return s.prefix + ":" + formID
}

func (s *Store) leaseKey(formID string) string {
	return s.prefix + ":l:" + formID
}

// Save persists snap with the given TTL, replacing any previous snapshot.
func (s *Store) Save(ctx context.Context, snap *Snapshot, ttl time.Duration) error {
	if snap == nil || snap.FormID == "" {
		return errors.New("snapshot requires form id")
	}
	data, err := Encode(snap)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(snap.FormID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get loads the snapshot for formID.
func (s *Store) Get(ctx context.Context, formID string) (*Snapshot, error) {
	data, err := s.redis.Get(ctx, s.key(formID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	snap, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Delete removes the snapshot and any lease. Deleting a missing form is not an error.
func (s *Store) Delete(ctx context.Context, formID string) error {
	if err := s.redis.Del(ctx, s.key(formID), s.leaseKey(formID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// AcquireLease marks formID in flight for at most ttl. The returned release func
// is safe to call more than once.
func (s *Store) AcquireLease(ctx context.Context, formID, token string, ttl time.Duration) (func(context.Context) error, error) {
	ok, err := s.redis.SetNX(ctx, s.leaseKey(formID), token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if !ok {
		return nil, ErrLeaseHeld
	}

	key := s.leaseKey(formID)
	released := false
	return func(ctx context.Context) error {
		if released {
			return nil
		}
		released = true
		if err := releaseLeaseLua.Run(ctx, s.redis, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		return nil
	}, nil
}

// LeaseHeld reports whether a submission currently holds formID.
func (s *Store) LeaseHeld(ctx context.Context, formID string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.leaseKey(formID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n == 1, nil
}

// Ping measures a Redis round-trip.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
