package core

// Prover attaches an optional privacy proof to a signed payload.
type Prover interface {
	Prove(msg []byte) ([]byte, error)
}

// ProofVerifier checks a proof produced by a Prover. A transaction that
// carries a proof is rejected with ErrInvalidProof when no ProofVerifier
// is configured.
type ProofVerifier interface {
	VerifyProof(msg, proof []byte) error
}
