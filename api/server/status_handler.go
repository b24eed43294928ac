package server

import (
	"net/http"
)

// HandleStatus responds to /status with chain and host status.
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	metrics := s.GetNodeMetrics()
	tip := s.chain.Tip()
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:     metrics.status(),
		ChainID:    s.cfg.ChainID,
		Symbol:     s.cfg.Symbol,
		Height:     tip.Index,
		TipHash:    tip.Hash.String(),
		Validators: len(s.chain.Validators()),
		Quorum:     s.chain.Quorum(),
		Supply:     s.chain.Supply(),
		Version:    NodeVersion(),
		APIVersion: APIVersion(),
		Metrics:    metrics,
	})
}
