package core

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the ledger, consensus and chain packages.
// Callers match with errors.Is; packages wrap these with more specific
// sentinels or context.
var (
	ErrInputValidation     = errors.New("input validation failed")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrDoubleSpending      = errors.New("double spending")
	ErrUnknownRecipient    = errors.New("unknown recipient")
	ErrInvalidTransaction  = errors.New("invalid transaction")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrInvalidProof        = errors.New("invalid proof")
	ErrValidationFailed    = errors.New("validation failed")
	ErrBlockchain          = errors.New("blockchain error")
)

var (
	ErrOverflow       = fmt.Errorf("%w: arithmetic overflow", ErrInputValidation)
	ErrMissingAddress = fmt.Errorf("%w: empty address", ErrInputValidation)
	ErrZeroAmount     = fmt.Errorf("%w: amount must be positive", ErrInputValidation)
	ErrMissingSigner  = fmt.Errorf("%w: no signer", ErrInputValidation)
)

// SafeAdd returns a+b or ErrOverflow.
func SafeAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrOverflow
	}
	return sum, nil
}

// SafeSub returns a-b or ErrInsufficientBalance when b > a.
func SafeSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrInsufficientBalance
	}
	return a - b, nil
}
