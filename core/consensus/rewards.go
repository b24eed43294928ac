package consensus

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"emberchain/core"
	"emberchain/core/ledger"
)

const year = 365 * 24 * time.Hour

var (
	yearNanos = uint256.NewInt(uint64(year))
	bpsScale  = uint256.NewInt(10_000)
)

// Reward is the amount minted to one validator by DistributeRewards.
type Reward struct {
	Validator string `json:"validator"`
	Stake     uint64 `json:"stake"`
	Amount    uint64 `json:"amount"`
}

// LastRewardTime is the end of the last distributed reward period.
func (e *Engine) LastRewardTime() time.Time { return e.lastReward }

// RewardFor computes stake * AnnualYieldBps/10000 * elapsed/year, rounded
// down.
func (e *Engine) RewardFor(stake uint64, elapsed time.Duration) (uint64, error) {
	if stake == 0 || elapsed <= 0 {
		return 0, nil
	}
	r := new(uint256.Int).Mul(uint256.NewInt(stake), uint256.NewInt(e.cfg.AnnualYieldBps))
	r.Mul(r, uint256.NewInt(uint64(elapsed)))
	r.Div(r, yearNanos)
	r.Div(r, bpsScale)
	if !r.IsUint64() {
		return 0, core.ErrOverflow
	}
	return r.Uint64(), nil
}

// DistributeRewards mints each validator's yield on its current stake for
// the time since the previous distribution. Every validator's share is
// therefore proportional to stake / total staked. The mints are staged
// together; record, when non-nil, runs before they are committed and a
// record error leaves the ledger and the reward period untouched.
func (e *Engine) DistributeRewards(now time.Time, record func([]Reward) error) ([]Reward, error) {
	elapsed := now.Sub(e.lastReward)
	if elapsed <= 0 {
		return nil, nil
	}
	rewards := make([]Reward, 0, e.validators.Size())
	for _, addr := range e.validators.Addresses() {
		stake := e.ledger.StakeOf(addr)
		amount, err := e.RewardFor(stake, elapsed)
		if err != nil {
			return nil, fmt.Errorf("reward for %s: %w", addr, err)
		}
		if amount == 0 {
			continue
		}
		rewards = append(rewards, Reward{Validator: addr, Stake: stake, Amount: amount})
	}
	staged, err := e.ledger.StageMints(mintOrders(rewards))
	if err != nil {
		return nil, fmt.Errorf("stage rewards: %w", err)
	}
	if record != nil {
		if err := record(rewards); err != nil {
			return nil, fmt.Errorf("record rewards: %w", err)
		}
	}
	if err := e.ledger.Commit(staged); err != nil {
		return nil, err
	}
	for _, r := range rewards {
		e.metrics.rewards.Add(float64(r.Amount))
	}
	e.lastReward = now
	e.log.Info("distributed rewards",
		zap.Int("validators", len(rewards)),
		zap.Duration("elapsed", elapsed),
	)
	return rewards, nil
}

// ReplayRewards re-applies a recorded distribution that ended at, as
// when restoring a node.
func (e *Engine) ReplayRewards(rewards []Reward, at time.Time) error {
	staged, err := e.ledger.StageMints(mintOrders(rewards))
	if err != nil {
		return err
	}
	if err := e.ledger.Commit(staged); err != nil {
		return err
	}
	e.lastReward = at
	return nil
}

func mintOrders(rewards []Reward) []ledger.MintOrder {
	orders := make([]ledger.MintOrder, len(rewards))
	for i, r := range rewards {
		orders[i] = ledger.MintOrder{Recipient: r.Validator, Amount: r.Amount}
	}
	return orders
}
