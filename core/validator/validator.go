package validator

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"emberchain/core"
)

var (
	ErrEmptySet           = fmt.Errorf("%w: validator set is empty", core.ErrBlockchain)
	ErrDuplicateValidator = fmt.Errorf("%w: duplicate validator", core.ErrInputValidation)
	ErrUnknownValidator   = errors.New("unknown validator")
	ErrBadQuorumFraction  = fmt.Errorf("%w: quorum fraction must be in (0, 1]", core.ErrInputValidation)
)

// Validator is a committee member and the stake it bonded at genesis.
type Validator struct {
	Address string `json:"address"`
	Stake   uint64 `json:"stake"`
}

// Set is a static, address-ordered validator committee.
type Set struct {
	validators []Validator
	index      map[string]int
}

// NewSet builds a committee. Addresses must be non-empty and unique.
func NewSet(validators []Validator) (*Set, error) {
	if len(validators) == 0 {
		return nil, ErrEmptySet
	}
	vs := slices.Clone(validators)
	slices.SortFunc(vs, func(a, b Validator) int { return strings.Compare(a.Address, b.Address) })
	index := make(map[string]int, len(vs))
	for i, v := range vs {
		if v.Address == "" {
			return nil, core.ErrMissingAddress
		}
		if _, dup := index[v.Address]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateValidator, v.Address)
		}
		index[v.Address] = i
	}
	return &Set{validators: vs, index: index}, nil
}

func (s *Set) Size() int { return len(s.validators) }

func (s *Set) Contains(addr string) bool {
	_, ok := s.index[addr]
	return ok
}

func (s *Set) Get(addr string) (Validator, bool) {
	i, ok := s.index[addr]
	if !ok {
		return Validator{}, false
	}
	return s.validators[i], true
}

// Validators returns a copy of the committee ordered by address.
func (s *Set) Validators() []Validator {
	return slices.Clone(s.validators)
}

func (s *Set) Addresses() []string {
	out := make([]string, len(s.validators))
	for i, v := range s.validators {
		out[i] = v.Address
	}
	return out
}

// Quorum returns ceil(num/den * Size()), the number of distinct votes a
// candidate needs.
func (s *Set) Quorum(num, den uint64) (int, error) {
	if den == 0 || num == 0 || num > den {
		return 0, ErrBadQuorumFraction
	}
	n := uint64(len(s.validators))
	return int((num*n + den - 1) / den), nil
}
