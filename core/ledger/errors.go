package ledger

import (
	"fmt"

	"emberchain/core"
)

var (
	ErrFeeTooLow            = fmt.Errorf("%w: fee below policy minimum", core.ErrInvalidTransaction)
	ErrDuplicateTransaction = fmt.Errorf("%w: transaction already pending", core.ErrInvalidTransaction)
	ErrNotStakeholder       = fmt.Errorf("%w: not a registered stakeholder", core.ErrInputValidation)
	ErrDelegationNotFound   = fmt.Errorf("%w: no such delegation", core.ErrInputValidation)
	ErrNegativeMultiplier   = fmt.Errorf("%w: fee multiplier must not be negative", core.ErrInputValidation)
	ErrStaleStage           = fmt.Errorf("%w: ledger changed since block was staged", core.ErrBlockchain)
	ErrSupplyMismatch       = fmt.Errorf("%w: balances and stake do not add up to total supply", core.ErrBlockchain)
)
