package server

import (
	"errors"
	"net/http"

	"emberchain/core"
	"emberchain/core/chain"
	"emberchain/core/consensus"
	"emberchain/core/ledger"
	"emberchain/core/oracle"
	"emberchain/core/storage"
)

// statusFor maps the core error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrDuplicateTransaction),
		errors.Is(err, chain.ErrAlreadyCommitted),
		errors.Is(err, core.ErrDoubleSpending):
		return http.StatusConflict
	case errors.Is(err, core.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrFeeTooLow),
		errors.Is(err, consensus.ErrNoQuorum):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrInputValidation),
		errors.Is(err, core.ErrInvalidTransaction),
		errors.Is(err, core.ErrInvalidSignature),
		errors.Is(err, core.ErrInvalidProof),
		errors.Is(err, core.ErrUnknownRecipient):
		return http.StatusBadRequest
	case errors.Is(err, chain.ErrBlockNotFound),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, oracle.ErrUnknownSymbol):
		return http.StatusNotFound
	case errors.Is(err, chain.ErrNoLocalSigner),
		errors.Is(err, chain.ErrNotRestored):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
