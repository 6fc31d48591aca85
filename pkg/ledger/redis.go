package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// chargeMaxRetries bounds the transparent optimistic-retry loop. Conflicts are
// only possible when another client commits to the same account key between our
// WATCH and EXEC, so in practice one or two attempts suffice.
const chargeMaxRetries = 16

// RedisStore implements Store on Redis. Increments use INCRBY; the charge path
// uses WATCH/MULTI optimistic transactions with transparent retry on commit
// conflicts, which is invisible to callers.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a ledger backed by the given Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "coins:"}
}

func (s *RedisStore) key(accountID string) string {
	return s.prefix + accountID
}

func (s *RedisStore) CreateAccount(ctx context.Context, accountID string, startingBalance int64) error {
	// SETNX keeps creation idempotent across duplicate registration events.
	if err := s.client.SetNX(ctx, s.key(accountID), startingBalance, 0).Err(); err != nil {
		return fmt.Errorf("ledger: create account %s: %w", accountID, err)
	}
	return nil
}

func (s *RedisStore) Balance(ctx context.Context, accountID string) (int64, error) {
	balance, err := s.client.Get(ctx, s.key(accountID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ledger: get balance %s: %w", accountID, err)
	}
	return balance, nil
}

func (s *RedisStore) TopUp(ctx context.Context, accountID string, amount int64) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	return s.increment(ctx, accountID, amount)
}

func (s *RedisStore) Refund(ctx context.Context, accountID string, amount int64) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	return s.increment(ctx, accountID, amount)
}

func (s *RedisStore) increment(ctx context.Context, accountID string, amount int64) error {
	if err := s.client.IncrBy(ctx, s.key(accountID), amount).Err(); err != nil {
		return fmt.Errorf("ledger: increment %s: %w", accountID, err)
	}
	return nil
}

func (s *RedisStore) ChargeIfAffordable(ctx context.Context, accountID string, cost int64) error {
	if err := validateAmount(cost); err != nil {
		return err
	}
	key := s.key(accountID)

	txn := func(tx *redis.Tx) error {
		balance, err := tx.Get(ctx, key).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if balance < cost {
			return ErrInsufficientFunds
		}
		// The write only commits if the watched key is untouched since the read.
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, balance-cost, redis.KeepTTL)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < chargeMaxRetries; attempt++ {
		err := s.client.Watch(ctx, txn, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue // conflicting commit, re-read and retry
		}
		if errors.Is(err, ErrInsufficientFunds) {
			return ErrInsufficientFunds
		}
		return fmt.Errorf("ledger: charge %s: %w", accountID, err)
	}
	return fmt.Errorf("ledger: charge %s: conflict retries exhausted", accountID)
}
