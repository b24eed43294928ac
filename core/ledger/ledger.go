package ledger

import (
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"emberchain/core"
	"emberchain/core/block"
	"emberchain/core/mempool"
	"emberchain/types/ids"
)

// DefaultFeeCollector receives transaction fees unless Config names
// another account.
const DefaultFeeCollector = "ember:fee-collector"

type Config struct {
	FeeCollector  string
	FeePolicy     FeePolicy
	Verifier      core.Verifier
	Prover        core.Prover
	ProofVerifier core.ProofVerifier
	Logger        *zap.Logger
}

// Ledger owns balances, stake, delegations and total supply. It holds no
// locks; callers serialize access.
type Ledger struct {
	st           *state
	contracts    map[string]Contract
	feeCollector string
	fees         FeePolicy
	verifier     core.Verifier
	prover       core.Prover
	proofs       core.ProofVerifier
	pool         *mempool.Pool
	log          *zap.Logger
	version      uint64 // bumped on every state mutation
}

func New(pool *mempool.Pool, cfg Config) *Ledger {
	if cfg.FeeCollector == "" {
		cfg.FeeCollector = DefaultFeeCollector
	}
	if cfg.FeePolicy == nil {
		cfg.FeePolicy = NewDynamicFeePolicy(1, 1)
	}
	if cfg.Verifier == nil {
		cfg.Verifier = core.Ed25519Verifier{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	l := &Ledger{
		st:           newState(),
		contracts:    make(map[string]Contract),
		feeCollector: cfg.FeeCollector,
		fees:         cfg.FeePolicy,
		verifier:     cfg.Verifier,
		prover:       cfg.Prover,
		proofs:       cfg.ProofVerifier,
		pool:         pool,
		log:          cfg.Logger.Named("ledger"),
	}
	l.st.known[l.feeCollector] = struct{}{}
	return l
}

func (l *Ledger) FeeCollector() string { return l.feeCollector }

func (l *Ledger) FeePolicy() FeePolicy { return l.fees }

func (l *Ledger) Balance(addr string) uint64 { return l.st.balances[addr] }

func (l *Ledger) TotalSupply() uint64 { return l.st.totalSupply }

func (l *Ledger) Burned() uint64 { return l.st.burned }

func (l *Ledger) IsKnown(addr string) bool { return l.st.isKnown(addr) }

// Register marks addr as a known participant that may receive transfers.
func (l *Ledger) Register(addr string) error {
	if addr == "" {
		return core.ErrMissingAddress
	}
	l.st.known[addr] = struct{}{}
	l.version++
	return nil
}

// Mint creates amount new Embers in recipient's balance.
func (l *Ledger) Mint(recipient string, amount uint64) error {
	if err := l.st.mint(recipient, amount); err != nil {
		return err
	}
	l.version++
	l.log.Debug("minted", zap.String("recipient", recipient), zap.Uint64("amount", amount))
	return nil
}

// MintOrder is one mint in a StageMints batch.
type MintOrder struct {
	Recipient string
	Amount    uint64
}

// StageMints applies every mint to a copy of the ledger. Either all of
// them fit or nothing is staged.
func (l *Ledger) StageMints(orders []MintOrder) (*Staged, error) {
	staged := &Staged{version: l.version, st: l.st.clone()}
	for _, o := range orders {
		if err := staged.st.mint(o.Recipient, o.Amount); err != nil {
			return nil, fmt.Errorf("mint %d to %s: %w", o.Amount, o.Recipient, err)
		}
	}
	return staged, nil
}

// Burn destroys amount Embers from addr's free balance.
func (l *Ledger) Burn(addr string, amount uint64) error {
	if addr == "" {
		return core.ErrMissingAddress
	}
	if amount == 0 {
		return core.ErrZeroAmount
	}
	if err := l.st.debit(addr, amount); err != nil {
		return fmt.Errorf("burn %d from %s: %w", amount, addr, err)
	}
	l.st.totalSupply -= amount
	l.st.burned += amount
	l.version++
	l.log.Debug("burned", zap.String("address", addr), zap.Uint64("amount", amount))
	return nil
}

// CreateTransaction builds a transaction from signer to recipient carrying
// the current policy fee, signs it and attaches a proof when a Prover is
// configured.
func (l *Ledger) CreateTransaction(signer core.Signer, recipient string, amount uint64, now time.Time) (*block.Transaction, error) {
	if signer == nil {
		return nil, core.ErrMissingSigner
	}
	tx := block.NewTransaction(signer.Address(), recipient, amount, 0, now)
	tx.Fee = l.fees.MinimumFee(tx)
	if err := tx.ValidateBasic(); err != nil {
		return nil, err
	}
	if err := l.SignTransaction(tx, signer); err != nil {
		return nil, err
	}
	if l.prover != nil {
		proof, err := l.prover.Prove(tx.SignBytes())
		if err != nil {
			return nil, fmt.Errorf("prove transaction: %w", err)
		}
		tx.Proof = proof
	}
	return tx, nil
}

// SignTransaction signs the canonical serialization of tx, excluding the
// signature and proof fields.
func (l *Ledger) SignTransaction(tx *block.Transaction, signer core.Signer) error {
	return tx.Sign(signer)
}

func (l *Ledger) VerifyTransactionSignature(tx *block.Transaction) error {
	return tx.VerifySignature(l.verifier)
}

// VerifyTransaction runs the stateless and authorization checks: shape,
// signature and any attached proof.
func (l *Ledger) VerifyTransaction(tx *block.Transaction) error {
	if err := tx.ValidateBasic(); err != nil {
		return err
	}
	if err := l.VerifyTransactionSignature(tx); err != nil {
		return err
	}
	if len(tx.Proof) > 0 {
		if l.proofs == nil {
			return fmt.Errorf("%w: no proof verifier configured", core.ErrInvalidProof)
		}
		if err := l.proofs.VerifyProof(tx.SignBytes(), tx.Proof); err != nil {
			return fmt.Errorf("%w: %v", core.ErrInvalidProof, err)
		}
	}
	return nil
}

// CheckTransaction runs every check Transfer performs without applying tx.
func (l *Ledger) CheckTransaction(tx *block.Transaction) error {
	if err := l.VerifyTransaction(tx); err != nil {
		return err
	}
	if minFee := l.fees.MinimumFee(tx); tx.Fee < minFee {
		return fmt.Errorf("%w: have %d, want %d", ErrFeeTooLow, tx.Fee, minFee)
	}
	if !l.st.isKnown(tx.Recipient) {
		return fmt.Errorf("%w: %s", core.ErrUnknownRecipient, tx.Recipient)
	}
	total, err := tx.Total()
	if err != nil {
		return err
	}
	balance := l.st.balances[tx.Sender]
	if balance < total {
		return fmt.Errorf("%w: %s has %d, needs %d", core.ErrInsufficientBalance, tx.Sender, balance, total)
	}
	if l.pool != nil {
		reserved, err := l.pool.ReservedBy(tx.Sender, tx.ID())
		if err != nil {
			return err
		}
		if sum, err := core.SafeAdd(reserved, total); err != nil || sum > balance {
			return fmt.Errorf("%w: %s has %d reserved by pending transactions", core.ErrDoubleSpending, tx.Sender, reserved)
		}
	}
	return nil
}

// Transfer validates and applies tx: the sender is debited amount plus
// fee, the recipient credited amount and the fee collector credited fee.
func (l *Ledger) Transfer(tx *block.Transaction) error {
	if err := l.CheckTransaction(tx); err != nil {
		return err
	}
	staged := l.st.clone()
	if err := l.applyTransfer(staged, tx); err != nil {
		return err
	}
	l.st = staged
	l.version++
	return nil
}

func (l *Ledger) applyTransfer(st *state, tx *block.Transaction) error {
	if !st.isKnown(tx.Recipient) {
		return fmt.Errorf("%w: %s", core.ErrUnknownRecipient, tx.Recipient)
	}
	total, err := tx.Total()
	if err != nil {
		return err
	}
	if err := st.debit(tx.Sender, total); err != nil {
		return fmt.Errorf("%w: %s cannot cover %d", err, tx.Sender, total)
	}
	if err := st.credit(tx.Recipient, tx.Amount); err != nil {
		return err
	}
	if tx.Fee > 0 {
		if err := st.credit(l.feeCollector, tx.Fee); err != nil {
			return err
		}
	}
	return nil
}

// SubmitTransaction checks tx against the ledger and the pending pool and
// adds it to the pool.
func (l *Ledger) SubmitTransaction(tx *block.Transaction) error {
	if l.pool.Contains(tx.ID()) {
		return ErrDuplicateTransaction
	}
	if err := l.CheckTransaction(tx); err != nil {
		return err
	}
	if !l.pool.Add(*tx) {
		return ErrDuplicateTransaction
	}
	return nil
}

// ProcessResult counts the outcome of ProcessPendingTransactions.
type ProcessResult struct {
	Applied int
	Dropped int
}

// ProcessPendingTransactions applies every pending transaction in pool
// order. A transaction that fails any check is dropped from the pool and
// processing continues.
func (l *Ledger) ProcessPendingTransactions() ProcessResult {
	var res ProcessResult
	for _, tx := range l.pool.Pending() {
		id := tx.ID()
		if err := l.Transfer(&tx); err != nil {
			res.Dropped++
			l.log.Debug("dropping pending transaction",
				zap.Stringer("txID", id),
				zap.String("sender", tx.Sender),
				zap.Error(err),
			)
		} else {
			res.Applied++
		}
		l.pool.Remove(id)
	}
	return res
}

// Staged is a block's transactions applied to a private copy of the
// ledger state.
type Staged struct {
	version uint64
	st      *state
	applied []ids.ID
}

// TxIDs lists the staged transactions in block order.
func (s *Staged) TxIDs() []ids.ID { return s.applied }

// StageBlock applies txs in order to a copy of the ledger. Any failure
// discards the copy, leaving the ledger untouched.
func (l *Ledger) StageBlock(txs []block.Transaction) (*Staged, error) {
	staged := &Staged{version: l.version, st: l.st.clone(), applied: make([]ids.ID, 0, len(txs))}
	for i := range txs {
		tx := &txs[i]
		id := tx.ID()
		if err := l.VerifyTransaction(tx); err != nil {
			return nil, fmt.Errorf("transaction %d (%s): %w", i, id, err)
		}
		if err := l.applyTransfer(staged.st, tx); err != nil {
			return nil, fmt.Errorf("transaction %d (%s): %w", i, id, err)
		}
		staged.applied = append(staged.applied, id)
	}
	return staged, nil
}

// Commit installs a staged state. It fails if the ledger changed after
// StageBlock.
func (l *Ledger) Commit(s *Staged) error {
	if s.version != l.version {
		return ErrStaleStage
	}
	l.st = s.st
	l.version++
	return nil
}

// CheckSupply verifies that free balances plus stake equal total supply.
func (l *Ledger) CheckSupply() error {
	var sum uint64
	for _, b := range l.st.balances {
		sum += b
	}
	for _, s := range l.st.staked {
		sum += s
	}
	if sum != l.st.totalSupply {
		return fmt.Errorf("%w: have %d, supply %d", ErrSupplyMismatch, sum, l.st.totalSupply)
	}
	return nil
}

// Accounts returns every address with a non-zero balance, sorted.
func (l *Ledger) Accounts() []string {
	out := make([]string, 0, len(l.st.balances))
	for addr, bal := range l.st.balances {
		if bal > 0 {
			out = append(out, addr)
		}
	}
	slices.Sort(out)
	return out
}

// SelectTransactions returns, in order, the candidates that apply cleanly
// on top of each other against committed state, up to maxTxs (0 for no
// limit). Rejected candidates are skipped, not removed from the pool.
func (l *Ledger) SelectTransactions(candidates []block.Transaction, maxTxs int) []block.Transaction {
	st := l.st.clone()
	out := make([]block.Transaction, 0, len(candidates))
	for i := range candidates {
		if maxTxs > 0 && len(out) >= maxTxs {
			break
		}
		tx := &candidates[i]
		if err := l.VerifyTransaction(tx); err != nil {
			continue
		}
		trial := st.clone()
		if err := l.applyTransfer(trial, tx); err != nil {
			continue
		}
		st = trial
		out = append(out, *tx)
	}
	return out
}
