package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"emberchain/api/server"
	"emberchain/core"
	"emberchain/core/audit"
	"emberchain/core/auth"
	"emberchain/core/block"
	"emberchain/core/chain"
	"emberchain/core/genesis"
	"emberchain/core/ledger"
	"emberchain/core/mempool"
	"emberchain/core/node"
	"emberchain/core/storage"
)

var secret = []byte("api-test-secret")

// Large enough that a day of yield is non-zero.
const validatorStake = 10_000_000

type harness struct {
	srv     http.Handler
	chain   *chain.Chain
	signers []core.Signer
	user    *core.Ed25519Signer
	payee   string
	token   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithStore(t, nil)
}

// newHarnessWithStore persists blocks to store and serves block lookups
// from it when store is non-nil.
func newHarnessWithStore(t *testing.T, store *storage.Storage) *harness {
	t.Helper()
	h := &harness{payee: "payee"}
	var addrs []string
	for i := 0; i < 3; i++ {
		s, err := core.GenerateSigner()
		require.NoError(t, err)
		h.signers = append(h.signers, s)
		addrs = append(addrs, s.Address())
	}
	var err error
	h.user, err = core.GenerateSigner()
	require.NoError(t, err)

	gen := genesis.DevGenesis("ember-test", addrs, validatorStake, []string{h.user.Address(), h.payee}, 1000, time.Now().Add(-24*time.Hour))
	gen.Delegations = []genesis.Delegation{{Delegator: h.payee, Validator: addrs[0], Amount: 50}}

	reg := prometheus.NewRegistry()
	trail := audit.NewMemoryAuditLogger(50, nil)
	opts := node.ChainOptions{Registerer: reg, Auditor: trail}
	cfg := server.Config{
		ChainID:    gen.ChainID,
		Symbol:     gen.Params.Symbol,
		DataDir:    t.TempDir(),
		Gatherer:   reg,
		AuditTrail: trail,
		Signers:    h.signers,
		Authorizer: &auth.Authorizer{
			Verifier: &auth.TokenVerifier{KeyProvider: &auth.HMACKeyProvider{Secret: secret}, ChainID: gen.ChainID},
		},
	}
	if store != nil {
		opts.Store = store
		cfg.Store = store
	}
	h.chain, err = node.BuildChain(gen, opts)
	require.NoError(t, err)
	h.srv = server.NewServer(h.chain, cfg).Handler()

	h.token, err = auth.IssueToken(secret, "ops", gen.ChainID, []string{auth.RoleOperator}, time.Hour, time.Now())
	require.NoError(t, err)
	return h
}

func (h *harness) do(t *testing.T, method, path string, body []byte, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func (h *harness) signedTransfer(t *testing.T, amount uint64) []byte {
	t.Helper()
	tx := block.NewTransaction(h.user.Address(), h.payee, amount, 1, time.Now())
	require.NoError(t, tx.Sign(h.user))
	raw, err := tx.Serialize()
	require.NoError(t, err)
	return raw
}

func TestStatus(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/status", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status server.StatusResponse
	decode(t, rec, &status)
	require.Equal(t, "ember-test", status.ChainID)
	require.Equal(t, genesis.DefaultSymbol, status.Symbol)
	require.Equal(t, uint64(0), status.Height)
	require.Equal(t, 3, status.Validators)
	require.Equal(t, 2, status.Quorum)
	require.Equal(t, uint64(3*validatorStake+2000), status.Supply.Total)
	require.Equal(t, "initializing", status.Status)

	require.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/health/liveness", nil, "").Code)
	require.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/health/readiness", nil, "").Code)
}

func TestTransactionLifecycle(t *testing.T) {
	h := newHarness(t)
	body := h.signedTransfer(t, 40)

	rec := h.do(t, http.MethodPost, "/transactions", body, "")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var submitted server.SubmitResponse
	decode(t, rec, &submitted)

	require.Equal(t, http.StatusConflict, h.do(t, http.MethodPost, "/transactions", body, "").Code)

	var pending []server.PendingTx
	decode(t, h.do(t, http.MethodGet, "/mempool", nil, ""), &pending)
	require.Len(t, pending, 1)
	require.Equal(t, submitted.ID, pending[0].ID)

	require.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodPost, "/rounds", nil, "").Code)
	rec = h.do(t, http.MethodPost, "/rounds", nil, h.token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var round server.RoundResponse
	decode(t, rec, &round)
	require.Equal(t, uint64(1), round.Index)
	require.Equal(t, 1, round.Txs)

	var loc chain.TxLocation
	decode(t, h.do(t, http.MethodGet, "/transactions/"+submitted.ID, nil, ""), &loc)
	require.False(t, loc.Pending)
	require.Equal(t, uint64(1), *loc.Block)

	var acct chain.Account
	decode(t, h.do(t, http.MethodGet, "/balances/"+h.user.Address(), nil, ""), &acct)
	require.Equal(t, uint64(1000-41), acct.Balance)

	var blk block.Block
	decode(t, h.do(t, http.MethodGet, "/blocks/1", nil, ""), &blk)
	require.Equal(t, round.Hash, blk.Hash.String())
	decode(t, h.do(t, http.MethodGet, "/blocks/hash/"+round.Hash, nil, ""), &blk)
	require.Equal(t, uint64(1), blk.Index)
	decode(t, h.do(t, http.MethodGet, "/blocks/tip", nil, ""), &blk)
	require.Equal(t, uint64(1), blk.Index)
	require.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/blocks/7", nil, "").Code)
	require.Equal(t, http.StatusBadRequest, h.do(t, http.MethodGet, "/blocks/hash/zz", nil, "").Code)

	var summaries []server.BlockSummary
	decode(t, h.do(t, http.MethodGet, "/blocks?limit=1", nil, ""), &summaries)
	require.Len(t, summaries, 1)
	require.Equal(t, uint64(1), summaries[0].Index)

	// Committed transactions cannot be replayed.
	require.Equal(t, http.StatusConflict, h.do(t, http.MethodPost, "/transactions", body, "").Code)
}

func TestSubmitRejectsBadTransactions(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/transactions", []byte(`{"sender": "x"}`), "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	unsigned := block.NewTransaction(h.user.Address(), h.payee, 5, 1, time.Now())
	raw, err := unsigned.Serialize()
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, "/transactions", raw, "").Code)

	rec = h.do(t, http.MethodPost, "/transactions", h.signedTransfer(t, 5000), "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	require.Equal(t, http.StatusBadRequest, h.do(t, http.MethodGet, "/transactions/nothex", nil, "").Code)
}

func TestDelegatorsAndValidators(t *testing.T) {
	h := newHarness(t)
	v0 := h.signers[0].Address()

	var resp server.DelegatorsResponse
	decode(t, h.do(t, http.MethodGet, "/validators/"+v0+"/delegators", nil, ""), &resp)
	require.Equal(t, []string{h.payee}, resp.Delegators)
	require.Equal(t, uint64(50), resp.Delegated)

	var vals server.ValidatorsResponse
	decode(t, h.do(t, http.MethodGet, "/validators", nil, ""), &vals)
	require.Len(t, vals.Validators, 3)
	require.Equal(t, 2, vals.Quorum)
}

func TestPrices(t *testing.T) {
	h := newHarness(t)
	var p server.PriceResponse
	decode(t, h.do(t, http.MethodGet, "/prices/embr", nil, ""), &p)
	require.Equal(t, "EMBR", p.Symbol)
	require.Equal(t, 10.0, p.USD)

	require.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/prices/DOGE", nil, "").Code)
}

func TestRewardsAndAudit(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/rewards", nil, h.token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rewards server.RewardsResponse
	decode(t, rec, &rewards)
	require.Len(t, rewards.Rewards, 3)

	var events []audit.AuditEvent
	decode(t, h.do(t, http.MethodGet, "/audit", nil, h.token), &events)
	require.NotEmpty(t, events)
	require.Equal(t, "GenesisApplied", events[0].EventType)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "consensus_blocks_committed")
	require.Contains(t, rec.Body.String(), "mempool_num_txs")
}

func TestOperatorRoutesDisabledWithoutAuthorizer(t *testing.T) {
	h := newHarness(t)
	srv := server.NewServer(h.chain, server.Config{}).Handler()
	req := httptest.NewRequest(http.MethodPost, "/rounds", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBlocksServedFromStore(t *testing.T) {
	store, err := storage.NewStorage(t.TempDir(), storage.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	h := newHarnessWithStore(t, store)

	rec := h.do(t, http.MethodPost, "/rounds", nil, h.token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var round server.RoundResponse
	decode(t, rec, &round)

	stored, err := store.GetBlockByHeight(1)
	require.NoError(t, err)
	require.Equal(t, round.Hash, stored.Hash.String())

	var blk block.Block
	decode(t, h.do(t, http.MethodGet, "/blocks/1", nil, ""), &blk)
	require.Equal(t, round.Hash, blk.Hash.String())
	decode(t, h.do(t, http.MethodGet, "/blocks/hash/"+round.Hash, nil, ""), &blk)
	require.Equal(t, uint64(1), blk.Index)

	require.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/blocks/9", nil, "").Code)
	missing := strings.Repeat("ab", 32)
	require.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/blocks/hash/"+missing, nil, "").Code)

	var summaries []server.BlockSummary
	decode(t, h.do(t, http.MethodGet, "/blocks?limit=5", nil, ""), &summaries)
	require.Len(t, summaries, 2)
	require.Equal(t, round.Hash, summaries[0].Hash)
	require.Equal(t, h.chain.Tip().Proposer, summaries[0].Proposer)
	require.Equal(t, uint64(0), summaries[1].Index)

	require.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/health/readiness", nil, "").Code)
}

func TestExpiredTransactionLookup(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, http.MethodPost, "/transactions", h.signedTransfer(t, 10), "")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var submitted server.SubmitResponse
	decode(t, rec, &submitted)

	time.Sleep(5 * time.Millisecond)
	_, purged := h.chain.Prune(time.Millisecond)
	require.Equal(t, 1, purged)

	rec = h.do(t, http.MethodGet, "/transactions/"+submitted.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var loc chain.TxLocation
	decode(t, rec, &loc)
	require.True(t, loc.Expired)
	require.False(t, loc.Pending)
	require.Nil(t, loc.Block)
	require.Equal(t, "timeout", loc.Reason)

	var expired []mempool.ExpiredTx
	decode(t, h.do(t, http.MethodGet, "/mempool/expired", nil, ""), &expired)
	require.Len(t, expired, 1)
	require.Equal(t, submitted.ID, expired[0].TxID.String())
	require.Equal(t, "timeout", expired[0].Reason)
}

func TestRecordContract(t *testing.T) {
	h := newHarness(t)
	body := []byte(`{"address": "contract-1", "owner": "` + h.user.Address() + `"}`)

	require.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodPost, "/contracts", body, "").Code)
	rec := h.do(t, http.MethodPost, "/contracts", body, h.token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, "/contracts", body, h.token).Code)
	require.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, "/contracts", []byte("{"), h.token).Code)

	var contracts []ledger.Contract
	decode(t, h.do(t, http.MethodGet, "/contracts", nil, ""), &contracts)
	require.Len(t, contracts, 1)
	require.Equal(t, "contract-1", contracts[0].Address)
	require.Equal(t, h.user.Address(), contracts[0].Owner)
}
