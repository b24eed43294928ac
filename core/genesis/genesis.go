package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"emberchain/core"
	"emberchain/core/ledger"
	"emberchain/core/validation"
	"emberchain/core/validator"
)

var (
	ErrUnknownDelegationTarget = fmt.Errorf("%w: delegation to a non-validator", core.ErrInputValidation)
	ErrIncompleteQuorum        = fmt.Errorf("%w: quorum numerator and denominator must be set together", core.ErrInputValidation)
)

// LoadGenesisConfig reads and parses a genesis file.
func LoadGenesisConfig(path string) (*GenesisConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read genesis config: %w", err)
	}
	return Parse(data)
}

// Parse validates data against the genesis schema, decodes it, applies
// parameter defaults and checks cross-field constraints.
func Parse(data []byte) (*GenesisConfig, error) {
	if err := validation.ValidateGenesis(data); err != nil {
		return nil, err
	}
	var cfg GenesisConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("could not parse genesis config: %w", err)
	}
	cfg.Params.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the constraints the schema cannot express.
func (c *GenesisConfig) Validate() error {
	seen := make(map[string]struct{}, len(c.Validators))
	for _, v := range c.Validators {
		if _, dup := seen[v.Address]; dup {
			return fmt.Errorf("%w: %s", validator.ErrDuplicateValidator, v.Address)
		}
		seen[v.Address] = struct{}{}
	}
	for _, d := range c.Delegations {
		if _, ok := seen[d.Validator]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownDelegationTarget, d.Validator)
		}
	}
	p := c.Params
	if (p.QuorumNumerator == 0) != (p.QuorumDenominator == 0) {
		return ErrIncompleteQuorum
	}
	if p.QuorumNumerator > p.QuorumDenominator {
		return fmt.Errorf("%w: %d/%d", validator.ErrBadQuorumFraction, p.QuorumNumerator, p.QuorumDenominator)
	}
	if _, err := parseDuration(p.MaxFutureBlockTime); err != nil {
		return fmt.Errorf("maxFutureBlockTime: %w", err)
	}
	if _, err := parseDuration(p.ProposalTimeout); err != nil {
		return fmt.Errorf("proposalTimeout: %w", err)
	}
	return nil
}

// DevGenesis is a single-file development network: every validator gets
// stake bonded and each address in funded gets amount.
func DevGenesis(chainID string, validators []string, stake uint64, funded []string, amount uint64, at time.Time) *GenesisConfig {
	cfg := &GenesisConfig{ChainID: chainID, GenesisTime: at.UTC()}
	for _, addr := range validators {
		cfg.Validators = append(cfg.Validators, ValidatorConfig{Address: addr, Stake: stake})
	}
	for _, addr := range funded {
		cfg.Allocations = append(cfg.Allocations, Allocation{Address: addr, Amount: amount})
	}
	cfg.Params.setDefaults()
	return cfg
}

// Apply seeds an empty ledger with the genesis allocations, validator
// bonds and delegations, and returns the resulting validator set with each
// validator's total stake.
func Apply(cfg *GenesisConfig, l *ledger.Ledger) (*validator.Set, error) {
	for _, a := range cfg.Allocations {
		if err := l.Mint(a.Address, a.Amount); err != nil {
			return nil, fmt.Errorf("allocate %s: %w", a.Address, err)
		}
	}
	for _, v := range cfg.Validators {
		if err := l.AddStakeholder(v.Address); err != nil {
			return nil, fmt.Errorf("register validator %s: %w", v.Address, err)
		}
		if v.Stake == 0 {
			continue
		}
		if err := l.Mint(v.Address, v.Stake); err != nil {
			return nil, fmt.Errorf("mint stake for %s: %w", v.Address, err)
		}
		if err := l.Bond(v.Address, v.Stake); err != nil {
			return nil, fmt.Errorf("bond %s: %w", v.Address, err)
		}
	}
	for _, d := range cfg.Delegations {
		if err := l.DelegateStake(d.Delegator, d.Validator, d.Amount); err != nil {
			return nil, fmt.Errorf("delegate %s to %s: %w", d.Delegator, d.Validator, err)
		}
	}
	if err := l.CheckSupply(); err != nil {
		return nil, err
	}

	members := make([]validator.Validator, 0, len(cfg.Validators))
	for _, v := range cfg.Validators {
		members = append(members, validator.Validator{Address: v.Address, Stake: l.StakeOf(v.Address)})
	}
	return validator.NewSet(members)
}
