package ledger_test

import (
	"context"
	"sync"
	"testing"

	"github.com/Mindburn-Labs/retouch/pkg/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_CreateAccountIdempotent(t *testing.T) {
	s := ledger.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.CreateAccount(ctx, "user-1", 5))
	require.NoError(t, s.CreateAccount(ctx, "user-1", 99)) // duplicate event

	balance, err := s.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance)
}

func TestMemory_ChargeHappyPath(t *testing.T) {
	s := ledger.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.CreateAccount(ctx, "user-1", 5))
	require.NoError(t, s.ChargeIfAffordable(ctx, "user-1", 1))

	balance, err := s.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), balance)
}

func TestMemory_ChargeInsufficient(t *testing.T) {
	s := ledger.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.CreateAccount(ctx, "user-1", 0))

	err := s.ChargeIfAffordable(ctx, "user-1", 1)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	balance, err := s.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestMemory_ChargeUnknownAccountReadsZero(t *testing.T) {
	s := ledger.NewMemoryStore()
	err := s.ChargeIfAffordable(context.Background(), "ghost", 1)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
}

func TestMemory_InvalidAmounts(t *testing.T) {
	s := ledger.NewMemoryStore()
	ctx := context.Background()

	assert.ErrorIs(t, s.TopUp(ctx, "u", 0), ledger.ErrInvalidAmount)
	assert.ErrorIs(t, s.TopUp(ctx, "u", -3), ledger.ErrInvalidAmount)
	assert.ErrorIs(t, s.ChargeIfAffordable(ctx, "u", 0), ledger.ErrInvalidAmount)
	assert.ErrorIs(t, s.Refund(ctx, "u", -1), ledger.ErrInvalidAmount)
}

// Exactly one of two racing charges may win when only one is affordable.
func TestMemory_ConcurrentChargeSingleWinner(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		s := ledger.NewMemoryStore()
		require.NoError(t, s.CreateAccount(ctx, "user-1", 1))

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				errs[n] = s.ChargeIfAffordable(ctx, "user-1", 1)
			}(j)
		}
		wg.Wait()

		wins := 0
		for _, err := range errs {
			if err == nil {
				wins++
			} else {
				assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
			}
		}
		assert.Equal(t, 1, wins)

		balance, err := s.Balance(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, int64(0), balance)
	}
}

// Concurrent charges against a funded account never drive the balance negative.
func TestMemory_ConcurrentChargeNeverNegative(t *testing.T) {
	ctx := context.Background()
	s := ledger.NewMemoryStore()
	require.NoError(t, s.CreateAccount(ctx, "user-1", 10))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.ChargeIfAffordable(ctx, "user-1", 1)
		}()
	}
	wg.Wait()

	balance, err := s.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

// N concurrent top-ups commute: the result is the sum regardless of interleaving.
func TestMemory_ConcurrentTopUpsCommute(t *testing.T) {
	ctx := context.Background()
	s := ledger.NewMemoryStore()
	require.NoError(t, s.CreateAccount(ctx, "user-1", 3))

	amounts := []int64{1, 2, 3, 4, 5, 6, 7, 8}
	var wg sync.WaitGroup
	for _, a := range amounts {
		wg.Add(1)
		go func(amount int64) {
			defer wg.Done()
			assert.NoError(t, s.TopUp(ctx, "user-1", amount))
		}(a)
	}
	wg.Wait()

	balance, err := s.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3+36), balance)
}

func TestMemory_RefundRestoresCharge(t *testing.T) {
	ctx := context.Background()
	s := ledger.NewMemoryStore()
	require.NoError(t, s.CreateAccount(ctx, "user-1", 3))

	require.NoError(t, s.ChargeIfAffordable(ctx, "user-1", 1))
	require.NoError(t, s.Refund(ctx, "user-1", 1))

	balance, err := s.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), balance)
}
