package ledger

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"emberchain/core"
)

// AddStakeholder registers addr as a validator that may hold stake and
// receive delegations.
func (l *Ledger) AddStakeholder(addr string) error {
	if addr == "" {
		return core.ErrMissingAddress
	}
	l.st.stakeholders[addr] = struct{}{}
	l.st.known[addr] = struct{}{}
	l.version++
	return nil
}

func (l *Ledger) IsStakeholder(addr string) bool {
	_, ok := l.st.stakeholders[addr]
	return ok
}

// Stakeholders returns the registered validators, sorted.
func (l *Ledger) Stakeholders() []string {
	out := make([]string, 0, len(l.st.stakeholders))
	for addr := range l.st.stakeholders {
		out = append(out, addr)
	}
	slices.Sort(out)
	return out
}

// Bond moves amount from validator's free balance into its own stake.
func (l *Ledger) Bond(validator string, amount uint64) error {
	if !l.IsStakeholder(validator) {
		return fmt.Errorf("%w: %s", ErrNotStakeholder, validator)
	}
	return l.lock(validator, validator, amount, false)
}

// DelegateStake moves amount from delegator's free balance into
// validator's staked total and records the delegation.
func (l *Ledger) DelegateStake(delegator, validator string, amount uint64) error {
	if delegator == "" {
		return core.ErrMissingAddress
	}
	if !l.IsStakeholder(validator) {
		return fmt.Errorf("%w: %s", ErrNotStakeholder, validator)
	}
	return l.lock(delegator, validator, amount, true)
}

func (l *Ledger) lock(from, validator string, amount uint64, delegated bool) error {
	if amount == 0 {
		return core.ErrZeroAmount
	}
	staked, err := core.SafeAdd(l.st.staked[validator], amount)
	if err != nil {
		return err
	}
	var delegation uint64
	if delegated {
		if delegation, err = core.SafeAdd(l.st.delegations[validator][from], amount); err != nil {
			return err
		}
	}
	if err := l.st.debit(from, amount); err != nil {
		return fmt.Errorf("stake %d from %s: %w", amount, from, err)
	}
	l.st.staked[validator] = staked
	if delegated {
		ds, ok := l.st.delegations[validator]
		if !ok {
			ds = make(map[string]uint64)
			l.st.delegations[validator] = ds
		}
		ds[from] = delegation
	}
	l.version++
	l.log.Debug("stake locked",
		zap.String("from", from),
		zap.String("validator", validator),
		zap.Uint64("amount", amount),
	)
	return nil
}

// RevokeDelegation returns the whole delegation from delegator to
// validator to the delegator's free balance.
func (l *Ledger) RevokeDelegation(delegator, validator string) (uint64, error) {
	amount, ok := l.st.delegations[validator][delegator]
	if !ok {
		return 0, fmt.Errorf("%w: %s -> %s", ErrDelegationNotFound, delegator, validator)
	}
	staked, err := core.SafeSub(l.st.staked[validator], amount)
	if err != nil {
		return 0, fmt.Errorf("%w: stake of %s below its delegations", core.ErrBlockchain, validator)
	}
	if err := l.st.credit(delegator, amount); err != nil {
		return 0, err
	}
	l.st.staked[validator] = staked
	delete(l.st.delegations[validator], delegator)
	if len(l.st.delegations[validator]) == 0 {
		delete(l.st.delegations, validator)
	}
	l.version++
	return amount, nil
}

// StakeOf returns validator's staked total, self bond plus delegations.
func (l *Ledger) StakeOf(validator string) uint64 {
	return l.st.staked[validator]
}

func (l *Ledger) TotalStaked() uint64 {
	var total uint64
	for _, s := range l.st.staked {
		total += s
	}
	return total
}

// DelegatedStake sums the delegations made to validator.
func (l *Ledger) DelegatedStake(validator string) uint64 {
	var total uint64
	for _, amount := range l.st.delegations[validator] {
		total += amount
	}
	return total
}

func (l *Ledger) Delegation(delegator, validator string) uint64 {
	return l.st.delegations[validator][delegator]
}

// Delegators lists the accounts delegating to validator, sorted.
func (l *Ledger) Delegators(validator string) []string {
	ds := l.st.delegations[validator]
	out := make([]string, 0, len(ds))
	for d := range ds {
		out = append(out, d)
	}
	slices.Sort(out)
	return out
}
