package block

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"emberchain/core"
)

func TestTransactionSignAndVerify(t *testing.T) {
	signer, err := core.GenerateSigner()
	require.NoError(t, err)

	tx := NewTransaction(signer.Address(), "bob", 100, 1, testTime)
	require.NoError(t, tx.Sign(signer))
	require.NoError(t, tx.VerifySignature(core.Ed25519Verifier{}))

	tx.Amount = 101
	require.ErrorIs(t, tx.VerifySignature(core.Ed25519Verifier{}), core.ErrInvalidSignature)
}

func TestTransactionSignRequiresOwner(t *testing.T) {
	signer, err := core.GenerateSigner()
	require.NoError(t, err)

	tx := NewTransaction("someone-else", "bob", 1, 0, testTime)
	require.ErrorIs(t, tx.Sign(signer), core.ErrInvalidSignature)
	require.ErrorIs(t, tx.Sign(nil), core.ErrInputValidation)
}

func TestTransactionUnsignedFailsVerification(t *testing.T) {
	signer, err := core.GenerateSigner()
	require.NoError(t, err)
	tx := NewTransaction(signer.Address(), "bob", 1, 0, testTime)
	require.ErrorIs(t, tx.VerifySignature(core.Ed25519Verifier{}), core.ErrInvalidSignature)
}

func TestTransactionValidateBasic(t *testing.T) {
	tests := []struct {
		name string
		tx   *Transaction
		err  error
	}{
		{"ok", NewTransaction("a", "b", 1, 0, testTime), nil},
		{"missing sender", NewTransaction("", "b", 1, 0, testTime), core.ErrMissingAddress},
		{"missing recipient", NewTransaction("a", "", 1, 0, testTime), core.ErrMissingAddress},
		{"zero amount", NewTransaction("a", "b", 0, 1, testTime), core.ErrZeroAmount},
		{"overflow", NewTransaction("a", "b", ^uint64(0), 1, testTime), core.ErrOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tx.ValidateBasic()
			if tt.err == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.err)
			require.ErrorIs(t, err, core.ErrInputValidation)
		})
	}
}

func TestTransactionIDCoversSignatureAndTime(t *testing.T) {
	signer, err := core.GenerateSigner()
	require.NoError(t, err)

	tx := NewTransaction(signer.Address(), "bob", 1, 0, testTime)
	unsigned := tx.ID()
	require.NoError(t, tx.Sign(signer))
	require.NotEqual(t, unsigned, tx.ID())

	later := NewTransaction(signer.Address(), "bob", 1, 0, testTime.Add(time.Nanosecond))
	require.NoError(t, later.Sign(signer))
	require.NotEqual(t, tx.ID(), later.ID())

	data, err := tx.Serialize()
	require.NoError(t, err)
	out, err := DeserializeTransaction(data)
	require.NoError(t, err)
	require.Equal(t, tx.ID(), out.ID())
	require.NoError(t, out.VerifySignature(core.Ed25519Verifier{}))
}
