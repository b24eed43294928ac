package server

import (
	"net/http"
)

func (s *Server) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{Alive: s.NodeLiveness()})
}

func (s *Server) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ready := s.NodeReadiness()
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, ReadinessResponse{Ready: ready})
}

// NodeHealthResponse is the response type for the /nodehealth endpoint
type NodeHealthResponse struct {
	Status  string      `json:"status"`
	Metrics NodeMetrics `json:"metrics"`
}

func (s *Server) HandleNodeHealth(w http.ResponseWriter, r *http.Request) {
	metrics := s.GetNodeMetrics()
	writeJSON(w, http.StatusOK, NodeHealthResponse{Status: metrics.status(), Metrics: metrics})
}
