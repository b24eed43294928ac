package ledger

import (
	"maps"

	"emberchain/core"
)

// state is the mutable ledger data. Blocks are applied to a clone and
// swapped in on commit.
type state struct {
	balances     map[string]uint64
	staked       map[string]uint64            // validator -> self bond plus delegations
	delegations  map[string]map[string]uint64 // validator -> delegator -> amount
	stakeholders map[string]struct{}
	known        map[string]struct{}
	totalSupply  uint64
	burned       uint64
}

func newState() *state {
	return &state{
		balances:     make(map[string]uint64),
		staked:       make(map[string]uint64),
		delegations:  make(map[string]map[string]uint64),
		stakeholders: make(map[string]struct{}),
		known:        make(map[string]struct{}),
	}
}

func (s *state) clone() *state {
	c := &state{
		balances:     maps.Clone(s.balances),
		staked:       maps.Clone(s.staked),
		delegations:  make(map[string]map[string]uint64, len(s.delegations)),
		stakeholders: maps.Clone(s.stakeholders),
		known:        maps.Clone(s.known),
		totalSupply:  s.totalSupply,
		burned:       s.burned,
	}
	for v, ds := range s.delegations {
		c.delegations[v] = maps.Clone(ds)
	}
	return c
}

func (s *state) isKnown(addr string) bool {
	_, ok := s.known[addr]
	return ok
}

func (s *state) credit(addr string, amount uint64) error {
	bal, err := core.SafeAdd(s.balances[addr], amount)
	if err != nil {
		return err
	}
	s.balances[addr] = bal
	s.known[addr] = struct{}{}
	return nil
}

func (s *state) debit(addr string, amount uint64) error {
	bal, err := core.SafeSub(s.balances[addr], amount)
	if err != nil {
		return err
	}
	s.balances[addr] = bal
	return nil
}

func (s *state) mint(recipient string, amount uint64) error {
	if recipient == "" {
		return core.ErrMissingAddress
	}
	if amount == 0 {
		return core.ErrZeroAmount
	}
	supply, err := core.SafeAdd(s.totalSupply, amount)
	if err != nil {
		return err
	}
	if err := s.credit(recipient, amount); err != nil {
		return err
	}
	s.totalSupply = supply
	return nil
}
