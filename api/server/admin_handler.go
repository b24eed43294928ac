package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"emberchain/core/auth"
	"emberchain/core/consensus"
)

type RoundResponse struct {
	Index uint64 `json:"index"`
	Hash  string `json:"hash"`
	Txs   int    `json:"txs"`
}

// handleRunRound forces a consensus round with the local validator keys.
func (s *Server) handleRunRound(w http.ResponseWriter, r *http.Request) {
	blk, err := s.chain.RunRound(s.cfg.Signers)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	fields := []zap.Field{zap.Uint64("index", blk.Index), zap.Stringer("hash", blk.Hash)}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		fields = append(fields, zap.String("operator", claims.Subject))
	}
	s.log.Info("round forced", fields...)
	writeJSON(w, http.StatusOK, RoundResponse{Index: blk.Index, Hash: blk.Hash.String(), Txs: len(blk.Transactions)})
}

type RewardsResponse struct {
	Rewards []consensus.Reward `json:"rewards"`
}

func (s *Server) handleDistributeRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := s.chain.DistributeRewards()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if rewards == nil {
		rewards = []consensus.Reward{}
	}
	writeJSON(w, http.StatusOK, RewardsResponse{Rewards: rewards})
}

type ContractRequest struct {
	Address string `json:"address"`
	Owner   string `json:"owner"`
}

// handleRecordContract stores a contract address reported by an external
// VM.
func (s *Server) handleRecordContract(w http.ResponseWriter, r *http.Request) {
	var req ContractRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("bad contract request: %w", err))
		return
	}
	if err := s.chain.RecordContract(req.Address, req.Owner); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.cfg.AuditTrail == nil {
		writeError(w, http.StatusNotFound, errors.New("audit trail is not retained"))
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.AuditTrail.Events())
}
