package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"emberchain/core"
	"emberchain/core/audit"
	"emberchain/core/auth"
	"emberchain/core/block"
	"emberchain/core/chain"
	"emberchain/core/oracle"
	"emberchain/core/storage"
	"emberchain/types/ids"
)

const maxBodyBytes = 64 << 10

// BlockStore serves committed blocks from disk.
type BlockStore interface {
	GetBlockByHeight(height uint64) (*block.Block, error)
	GetBlockByHash(hash ids.ID) (*block.Block, error)
	ListRecentBlocks(limit int) ([]storage.BlockSummary, error)
	HasGenesisBlock() (bool, error)
}

type Config struct {
	ListenAddr string
	ChainID    string
	Symbol     string
	DataDir    string // checked for free disk space
	Oracle     oracle.PriceOracle
	Gatherer   prometheus.Gatherer
	AuditTrail *audit.MemoryAuditLogger
	Logger     *zap.Logger

	// Signers are the locally held validator keys used by POST /rounds.
	Signers []core.Signer
	// Authorizer guards the operator routes. When nil those routes answer
	// 503.
	Authorizer *auth.Authorizer
	// Store answers block lookups and listings when set; otherwise they
	// are served from memory.
	Store BlockStore
	// RateLimit throttles transaction submission per client IP. Nil
	// disables it.
	RateLimit *RateLimiter
}

type Server struct {
	chain   *chain.Chain
	cfg     Config
	router  *mux.Router
	log     *zap.Logger
	started time.Time
}

func NewServer(c *chain.Chain, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Oracle == nil {
		cfg.Oracle = oracle.NewStaticOracle(cfg.Symbol, nil)
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.NewRegistry()
	}
	s := &Server{
		chain:   c,
		cfg:     cfg,
		router:  mux.NewRouter(),
		log:     cfg.Logger.Named("api"),
		started: time.Now(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.HandleFunc("/status", s.HandleStatus).Methods(http.MethodGet)
	r.HandleFunc("/nodehealth", s.HandleNodeHealth).Methods(http.MethodGet)
	r.HandleFunc("/health/liveness", s.HandleLiveness).Methods(http.MethodGet)
	r.HandleFunc("/health/readiness", s.HandleReadiness).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.HandleFunc("/balances/{address}", s.handleBalance).Methods(http.MethodGet)
	r.HandleFunc("/supply", s.handleSupply).Methods(http.MethodGet)
	r.HandleFunc("/validators", s.handleValidators).Methods(http.MethodGet)
	r.HandleFunc("/validators/{address}/delegators", s.handleDelegators).Methods(http.MethodGet)
	r.HandleFunc("/contracts", s.handleContracts).Methods(http.MethodGet)

	r.Handle("/transactions", s.rateLimit(http.HandlerFunc(s.handleSubmitTransaction))).Methods(http.MethodPost)
	r.HandleFunc("/transactions/{id}", s.handleGetTransaction).Methods(http.MethodGet)
	r.HandleFunc("/mempool", s.handleMempool).Methods(http.MethodGet)
	r.HandleFunc("/mempool/expired", s.handleExpired).Methods(http.MethodGet)

	r.HandleFunc("/blocks", s.handleListBlocks).Methods(http.MethodGet)
	r.HandleFunc("/blocks/tip", s.handleTip).Methods(http.MethodGet)
	r.HandleFunc("/blocks/{index:[0-9]+}", s.handleGetBlock).Methods(http.MethodGet)
	r.HandleFunc("/blocks/hash/{hash}", s.handleGetBlockByHash).Methods(http.MethodGet)

	r.HandleFunc("/prices/{symbol}", s.handlePrice).Methods(http.MethodGet)

	admin := r.NewRoute().Subrouter()
	admin.Use(s.requireOperator)
	admin.HandleFunc("/rounds", s.handleRunRound).Methods(http.MethodPost)
	admin.HandleFunc("/rewards", s.handleDistributeRewards).Methods(http.MethodPost)
	admin.HandleFunc("/contracts", s.handleRecordContract).Methods(http.MethodPost)
	admin.HandleFunc("/audit", s.handleAudit).Methods(http.MethodGet)
}

func (s *Server) requireOperator(next http.Handler) http.Handler {
	if s.cfg.Authorizer == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusServiceUnavailable, errors.New("operator routes are disabled"))
		})
	}
	return s.cfg.Authorizer.Middleware(auth.RoleOperator)(next)
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("api listening", zap.String("addr", s.cfg.ListenAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
