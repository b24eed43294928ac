package ledger

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"emberchain/core"
)

// Contract is an address reported by an external VM. The ledger only
// records it.
type Contract struct {
	Address    string    `json:"address"`
	Owner      string    `json:"owner"`
	RecordedAt time.Time `json:"recordedAt"`
}

// CheckContract reports whether RecordContract would accept address.
func (l *Ledger) CheckContract(address, owner string) error {
	if address == "" || owner == "" {
		return core.ErrMissingAddress
	}
	if _, exists := l.contracts[address]; exists {
		return fmt.Errorf("%w: contract %s already recorded", core.ErrInputValidation, address)
	}
	return nil
}

// RecordContract stores a deployed contract address and makes it a known
// transfer recipient. Recording the same address twice is an error.
func (l *Ledger) RecordContract(address, owner string, at time.Time) error {
	if err := l.CheckContract(address, owner); err != nil {
		return err
	}
	l.contracts[address] = Contract{Address: address, Owner: owner, RecordedAt: at.UTC()}
	l.st.known[address] = struct{}{}
	l.version++
	return nil
}

// Contracts returns the recorded contracts ordered by address.
func (l *Ledger) Contracts() []Contract {
	out := make([]Contract, 0, len(l.contracts))
	for _, c := range l.contracts {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Contract) int {
		return strings.Compare(a.Address, b.Address)
	})
	return out
}
