package block

import (
	"encoding/json"
	"fmt"
	"time"

	"emberchain/core"
	"emberchain/types/ids"
)

// Transaction moves Amount from Sender to Recipient and pays Fee.
// It is immutable once signed.
type Transaction struct {
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Amount    uint64    `json:"amount"`
	Fee       uint64    `json:"fee"`
	Timestamp time.Time `json:"timestamp"`
	Signature []byte    `json:"signature,omitempty"`
	Proof     []byte    `json:"proof,omitempty"`
}

// NewTransaction returns an unsigned transaction stamped with ts in UTC.
func NewTransaction(sender, recipient string, amount, fee uint64, ts time.Time) *Transaction {
	return &Transaction{
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
		Fee:       fee,
		Timestamp: ts.UTC(),
	}
}

// SignBytes is the canonical serialization covered by the signature and
// the proof. It excludes both.
func (tx *Transaction) SignBytes() []byte {
	body := struct {
		Sender    string    `json:"sender"`
		Recipient string    `json:"recipient"`
		Amount    uint64    `json:"amount"`
		Fee       uint64    `json:"fee"`
		Timestamp time.Time `json:"timestamp"`
	}{tx.Sender, tx.Recipient, tx.Amount, tx.Fee, tx.Timestamp}
	data, _ := json.Marshal(body)
	return data
}

// ID is the SHA-256 of the full canonical serialization, signature included.
func (tx *Transaction) ID() ids.ID {
	data, _ := json.Marshal(tx)
	return ids.NewID(data)
}

// Total returns Amount + Fee.
func (tx *Transaction) Total() (uint64, error) {
	return core.SafeAdd(tx.Amount, tx.Fee)
}

// ValidateBasic performs stateless checks.
func (tx *Transaction) ValidateBasic() error {
	if tx.Sender == "" || tx.Recipient == "" {
		return core.ErrMissingAddress
	}
	if tx.Amount == 0 {
		return core.ErrZeroAmount
	}
	if _, err := tx.Total(); err != nil {
		return err
	}
	return nil
}

// Sign fills in the signature using signer, which must own Sender.
func (tx *Transaction) Sign(signer core.Signer) error {
	if signer == nil {
		return core.ErrMissingSigner
	}
	if signer.Address() != tx.Sender {
		return fmt.Errorf("%w: signer %s does not own sender %s", core.ErrInvalidSignature, signer.Address(), tx.Sender)
	}
	sig, err := signer.Sign(tx.SignBytes())
	if err != nil {
		return err
	}
	tx.Signature = sig
	return nil
}

// VerifySignature checks the signature against Sender.
func (tx *Transaction) VerifySignature(v core.Verifier) error {
	return v.Verify(tx.Sender, tx.SignBytes(), tx.Signature)
}

// Serialize encodes Transaction into JSON
func (tx *Transaction) Serialize() ([]byte, error) {
	return json.Marshal(tx)
}

// DeserializeTransaction decodes JSON into Transaction
func DeserializeTransaction(data []byte) (*Transaction, error) {
	var tx Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}
