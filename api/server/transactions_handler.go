package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"emberchain/core/block"
	"emberchain/core/mempool"
	"emberchain/core/validation"
	"emberchain/types/ids"
)

type SubmitResponse struct {
	ID string `json:"id"`
}

type PendingTx struct {
	ID string `json:"id"`
	block.Transaction
}

// handleSubmitTransaction admits a client-signed transaction. The body is
// checked against the transaction schema before it is decoded.
func (s *Server) handleSubmitTransaction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	if err := validation.ValidateTransaction(body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tx, err := block.DeserializeTransaction(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.chain.SubmitTransaction(tx); err != nil {
		s.log.Debug("transaction refused", zap.Stringer("id", tx.ID()), zap.Error(err))
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, SubmitResponse{ID: tx.ID().String()})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := ids.FromString(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("bad transaction id: %w", err))
		return
	}
	loc, ok := s.chain.FindTransaction(id)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("transaction not found"))
		return
	}
	writeJSON(w, http.StatusOK, loc)
}

func (s *Server) handleMempool(w http.ResponseWriter, r *http.Request) {
	pending := s.chain.PendingTransactions()
	out := make([]PendingTx, 0, len(pending))
	for _, tx := range pending {
		out = append(out, PendingTx{ID: tx.ID().String(), Transaction: tx})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleExpired(w http.ResponseWriter, r *http.Request) {
	expired := s.chain.ExpiredTransactions()
	if expired == nil {
		expired = []mempool.ExpiredTx{}
	}
	writeJSON(w, http.StatusOK, expired)
}
