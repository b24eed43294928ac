package consensus

import (
	"fmt"

	"emberchain/core"
	"emberchain/types/ids"
)

// Vote is a validator's signed approval of a candidate block.
type Vote struct {
	BlockHash ids.ID `json:"blockHash"`
	Validator string `json:"validator"`
	Signature []byte `json:"signature"`
}

// VoteSignBytes is the message a validator signs to approve hash.
func VoteSignBytes(hash ids.ID) []byte {
	return append([]byte("emberchain/vote/"), hash[:]...)
}

// NewVote signs an approval of hash with signer.
func NewVote(signer core.Signer, hash ids.ID) (*Vote, error) {
	if signer == nil {
		return nil, core.ErrMissingSigner
	}
	sig, err := signer.Sign(VoteSignBytes(hash))
	if err != nil {
		return nil, fmt.Errorf("sign vote: %w", err)
	}
	return &Vote{BlockHash: hash, Validator: signer.Address(), Signature: sig}, nil
}

// Verify checks the vote signature.
func (v *Vote) Verify(verifier core.Verifier) error {
	return verifier.Verify(v.Validator, VoteSignBytes(v.BlockHash), v.Signature)
}
