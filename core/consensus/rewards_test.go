package consensus

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"emberchain/core"
)

func TestRewardFor(t *testing.T) {
	h := newHarness(t, 1)
	tests := []struct {
		stake   uint64
		elapsed time.Duration
		want    uint64
	}{
		{1000, year, 50},
		{1000, year / 2, 25},
		{1000, 0, 0},
		{0, year, 0},
		{10, time.Hour, 0},
		{1_000_000_000, 24 * time.Hour, 136986},
	}
	for _, tt := range tests {
		got, err := h.engine.RewardFor(tt.stake, tt.elapsed)
		require.NoError(t, err)
		require.Equal(t, tt.want, got, "stake=%d elapsed=%s", tt.stake, tt.elapsed)
	}
}

func TestDistributeRewardsMintsProportionally(t *testing.T) {
	h := newHarness(t, 2)
	// Give the second validator three times the stake of the first.
	second := h.engine.Validators().Addresses()[1]
	require.NoError(t, h.ledger.Mint(second, 2000))
	require.NoError(t, h.ledger.Bond(second, 2000))
	supply := h.ledger.TotalSupply()

	rewards, err := h.engine.DistributeRewards(genesisTime.Add(year), nil)
	require.NoError(t, err)
	require.Len(t, rewards, 2)

	byAddr := map[string]uint64{}
	var minted uint64
	for _, r := range rewards {
		byAddr[r.Validator] = r.Amount
		minted += r.Amount
	}
	require.Equal(t, uint64(150), byAddr[second])
	require.Equal(t, uint64(50), byAddr[h.engine.Validators().Addresses()[0]])
	require.Equal(t, supply+minted, h.ledger.TotalSupply())
	require.NoError(t, h.ledger.CheckSupply())
	require.Equal(t, genesisTime.Add(year), h.engine.LastRewardTime())

	again, err := h.engine.DistributeRewards(genesisTime.Add(year), nil)
	require.NoError(t, err)
	require.Empty(t, again)
}

func TestDistributeRewardsRecordFailureChangesNothing(t *testing.T) {
	h := newHarness(t, 2)
	supply := h.ledger.TotalSupply()

	_, err := h.engine.DistributeRewards(genesisTime.Add(year), func([]Reward) error {
		return errors.New("disk full")
	})
	require.Error(t, err)
	require.Equal(t, supply, h.ledger.TotalSupply())
	require.Equal(t, genesisTime, h.engine.LastRewardTime())

	var recorded []Reward
	rewards, err := h.engine.DistributeRewards(genesisTime.Add(year), func(r []Reward) error {
		recorded = r
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, rewards, recorded)
	require.Equal(t, supply+100, h.ledger.TotalSupply())
}

func TestDistributeRewardsOverflowMintsNothing(t *testing.T) {
	h := newHarness(t, 2)
	// Push total supply to the edge so the second mint overflows.
	require.NoError(t, h.ledger.Mint(h.user.Address(), math.MaxUint64-h.ledger.TotalSupply()-60))
	supply := h.ledger.TotalSupply()
	first := h.engine.Validators().Addresses()[0]
	balance := h.ledger.Balance(first)

	_, err := h.engine.DistributeRewards(genesisTime.Add(year), nil)
	require.ErrorIs(t, err, core.ErrOverflow)
	require.Equal(t, supply, h.ledger.TotalSupply())
	require.Equal(t, balance, h.ledger.Balance(first))
	require.Equal(t, genesisTime, h.engine.LastRewardTime())
}

func TestReplayRewards(t *testing.T) {
	h := newHarness(t, 1)
	addr := h.engine.Validators().Addresses()[0]
	balance := h.ledger.Balance(addr)

	at := genesisTime.Add(year)
	require.NoError(t, h.engine.ReplayRewards([]Reward{{Validator: addr, Stake: 1000, Amount: 50}}, at))
	require.Equal(t, balance+50, h.ledger.Balance(addr))
	require.Equal(t, at, h.engine.LastRewardTime())

	again, err := h.engine.DistributeRewards(at, nil)
	require.NoError(t, err)
	require.Empty(t, again)
}
