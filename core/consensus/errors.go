package consensus

import (
	"errors"
	"fmt"

	"emberchain/core"
)

var (
	ErrUnknownCandidate  = errors.New("unknown candidate block")
	ErrCandidateRejected = errors.New("candidate block was rejected")
	ErrNotValidator      = errors.New("not a member of the validator set")
	ErrNoQuorum          = fmt.Errorf("%w: quorum not reached", core.ErrValidationFailed)
	ErrBadIndex          = fmt.Errorf("%w: unexpected block index", core.ErrValidationFailed)
	ErrBadPrevHash       = fmt.Errorf("%w: previous hash does not match chain tip", core.ErrValidationFailed)
	ErrBadTimestamp      = fmt.Errorf("%w: block timestamp out of range", core.ErrValidationFailed)
	ErrBadProposer       = fmt.Errorf("%w: proposer is not a validator", core.ErrValidationFailed)
	ErrReplayedTx        = fmt.Errorf("%w: transaction already committed", core.ErrValidationFailed)
	ErrDuplicateTx       = fmt.Errorf("%w: transaction repeated within block", core.ErrValidationFailed)
	ErrInvalidTx         = fmt.Errorf("%w: invalid transaction", core.ErrValidationFailed)
	ErrNilBlock          = fmt.Errorf("%w: nil block", core.ErrValidationFailed)
)
