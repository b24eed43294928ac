package genesis

import (
	"fmt"
	"time"

	"emberchain/core"
	"emberchain/core/consensus"
	"emberchain/core/ledger"
)

const DefaultSymbol = "EMBR"

// ValidatorConfig is a committee member. Stake is minted to the validator
// and bonded at genesis.
type ValidatorConfig struct {
	Address string `json:"address"`
	Stake   uint64 `json:"stake,omitempty"`
}

// Allocation credits Amount to Address at genesis.
type Allocation struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

// Delegation locks part of an allocation behind a validator.
type Delegation struct {
	Delegator string `json:"delegator"`
	Validator string `json:"validator"`
	Amount    uint64 `json:"amount"`
}

// Params holds chain parameters. Zero values fall back to the consensus
// and ledger defaults.
type Params struct {
	Symbol             string   `json:"symbol,omitempty"`
	QuorumNumerator    uint64   `json:"quorumNumerator,omitempty"`
	QuorumDenominator  uint64   `json:"quorumDenominator,omitempty"`
	AnnualYieldBps     uint64   `json:"annualYieldBps,omitempty"`
	BaseFee            uint64   `json:"baseFee,omitempty"`
	FeeMultiplier      *float64 `json:"feeMultiplier,omitempty"`
	FeeCollector       string   `json:"feeCollector,omitempty"`
	MaxBlockTxs        int      `json:"maxBlockTxs,omitempty"`
	MaxFutureBlockTime string   `json:"maxFutureBlockTime,omitempty"`
	ProposalTimeout    string   `json:"proposalTimeout,omitempty"`
}

// GenesisConfig represents the full genesis configuration schema.
type GenesisConfig struct {
	ChainID     string            `json:"chainId"`
	GenesisTime time.Time         `json:"genesisTime"`
	Validators  []ValidatorConfig `json:"validators"`
	Allocations []Allocation      `json:"allocations,omitempty"`
	Delegations []Delegation      `json:"delegations,omitempty"`
	Params      Params            `json:"params"`
}

func (p *Params) setDefaults() {
	if p.Symbol == "" {
		p.Symbol = DefaultSymbol
	}
	if p.BaseFee == 0 {
		p.BaseFee = 1
	}
	if p.FeeMultiplier == nil {
		one := 1.0
		p.FeeMultiplier = &one
	}
	if p.FeeCollector == "" {
		p.FeeCollector = ledger.DefaultFeeCollector
	}
}

// FeePolicy builds the dynamic fee policy described by the params.
func (p Params) FeePolicy() *ledger.DynamicFeePolicy {
	mult := 1.0
	if p.FeeMultiplier != nil {
		mult = *p.FeeMultiplier
	}
	return ledger.NewDynamicFeePolicy(p.BaseFee, mult)
}

// LedgerConfig returns the ledger settings fixed at genesis.
func (c *GenesisConfig) LedgerConfig() ledger.Config {
	return ledger.Config{
		FeeCollector: c.Params.FeeCollector,
		FeePolicy:    c.Params.FeePolicy(),
	}
}

// ConsensusConfig returns the engine settings fixed at genesis. Durations
// have already been checked by Parse.
func (c *GenesisConfig) ConsensusConfig() consensus.Config {
	cfg := consensus.Config{
		QuorumNum:      c.Params.QuorumNumerator,
		QuorumDen:      c.Params.QuorumDenominator,
		AnnualYieldBps: c.Params.AnnualYieldBps,
		MaxBlockTxs:    c.Params.MaxBlockTxs,
	}
	cfg.MaxFutureBlockTime, _ = parseDuration(c.Params.MaxFutureBlockTime)
	cfg.ProposalTimeout, _ = parseDuration(c.Params.ProposalTimeout)
	return cfg
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrInputValidation, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: negative duration %s", core.ErrInputValidation, s)
	}
	return d, nil
}
