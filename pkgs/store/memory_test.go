package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimPassIsExclusive(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ok, err := s.ClaimPass(ctx, "0xABC", "0001", &Attempt{ID: "first"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ClaimPass(ctx, "0xABC", "0001", &Attempt{ID: "second"})
	require.NoError(t, err)
	assert.False(t, ok, "second claim for the same pair must lose")

	pass, err := s.LatestPassed(ctx, "0xABC", "0001")
	require.NoError(t, err)
	assert.Equal(t, "first", pass.ID, "the winning attempt is the persisted one")
}

func TestClaimPassConcurrent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const racers = 32
	var wins int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.ClaimPass(ctx, "0xABC", "0001", &Attempt{})
			if err == nil && ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one racer claims the pass")
}

func TestClaimPassKeysAreCaseInsensitiveOnWallet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ok, err := s.ClaimPass(ctx, "0xAbCd", "0001", &Attempt{})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ClaimPass(ctx, "0xabcd", "0001", &Attempt{})
	require.NoError(t, err)
	assert.False(t, ok)

	passed, err := s.HasPassed(ctx, "0xABCD", "0001")
	require.NoError(t, err)
	assert.True(t, passed)
}

func TestClaimsAreScopedPerPair(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ok, _ := s.ClaimPass(ctx, "0xABC", "0001", &Attempt{})
	assert.True(t, ok)

	ok, _ = s.ClaimPass(ctx, "0xABC", "0002", &Attempt{})
	assert.True(t, ok, "same wallet, different achievement")

	ok, _ = s.ClaimPass(ctx, "0xDEF", "0001", &Attempt{})
	assert.True(t, ok, "different wallet, same achievement")
}

func TestAttemptsNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.RecordAttempt(ctx, &Attempt{ID: "a1", Wallet: "0xABC", AchievementID: "0001"}))
	require.NoError(t, s.RecordAttempt(ctx, &Attempt{ID: "a2", Wallet: "0xABC", AchievementID: "0001"}))

	attempts, err := s.Attempts(ctx, "0xABC", "0001")
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, "a2", attempts[0].ID)
	assert.Equal(t, "a1", attempts[1].ID)
}

func TestKeyBuilderShapes(t *testing.T) {
	k := NewKeyBuilder("achievements")

	assert.Equal(t, "achievements:wallets", k.Wallets())
	assert.Equal(t, "achievements:attempts:0xabc:0001", k.Attempts("0xABC", "0001"))
	assert.Equal(t, "achievements:passed:0xabc:0001", k.Passed("0xABC", "0001"))
}
