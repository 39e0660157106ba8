package governor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Conflux/internal/domain/models"
	domrepo "Conflux/internal/domain/repository"
	"Conflux/pkg/cache"
)

const (
	stateKeyPrefix = "governor:state"
	lockKeyPrefix  = "governor:lock"

	lockTTL       = 5 * time.Second
	lockRetryWait = 25 * time.Millisecond
	lockAttempts  = 40
)

// signalTypes a state key can exist under; Keys probes these rather than
// scanning the keyspace.
var signalTypes = []models.SignalType{models.SignalBuy, models.SignalSell}

// RedisStateStore persists governor state in a shared cache so multiple
// instances throttle against the same history. Per-key atomicity comes
// from a SetNX lock held across the read-modify-write.
type RedisStateStore struct {
	cache cache.Service
}

func NewRedisStateStore(c cache.Service) *RedisStateStore {
	return &RedisStateStore{cache: c}
}

func (s *RedisStateStore) Get(ctx context.Context, key string) (*models.FrequencyState, error) {
	var st models.FrequencyState
	err := s.cache.Get(ctx, stateKey(key), &st)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("get state %s: %w", key, err)
	}
	return &st, nil
}

func (s *RedisStateStore) Update(ctx context.Context, key string, fn func(prev *models.FrequencyState) (*models.FrequencyState, error)) error {
	if err := s.lock(ctx, key); err != nil {
		return err
	}
	defer s.cache.Unlock(context.WithoutCancel(ctx), lockKey(key))

	prev, err := s.Get(ctx, key)
	if err != nil {
		return err
	}

	next, err := fn(prev)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}

	// No expiration: retention is an external policy.
	if err := s.cache.Set(ctx, stateKey(key), next, 0); err != nil {
		return fmt.Errorf("set state %s: %w", key, err)
	}
	return nil
}

func (s *RedisStateStore) Keys(ctx context.Context, symbol string) ([]string, error) {
	keys := make([]string, 0, len(signalTypes))
	for _, st := range signalTypes {
		key := models.StateKey(symbol, st)
		ok, err := s.cache.Exists(ctx, stateKey(key))
		if err != nil {
			return nil, fmt.Errorf("probe state %s: %w", key, err)
		}
		if ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *RedisStateStore) Close() error { return nil }

func (s *RedisStateStore) lock(ctx context.Context, key string) error {
	lk := lockKey(key)
	for i := 0; i < lockAttempts; i++ {
		ok, err := s.cache.TryLock(ctx, lk, lockTTL)
		if err != nil {
			return fmt.Errorf("lock state %s: %w", key, err)
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryWait):
		}
	}
	return fmt.Errorf("lock state %s: contention timeout", key)
}

func stateKey(key string) string { return stateKeyPrefix + ":" + key }
func lockKey(key string) string  { return lockKeyPrefix + ":" + key }

var _ domrepo.StateStore = (*RedisStateStore)(nil)
