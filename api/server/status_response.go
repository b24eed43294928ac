package server

import "emberchain/core/chain"

// StatusResponse represents the JSON structure for /status endpoint
type StatusResponse struct {
	Status     string       `json:"status"`
	ChainID    string       `json:"chain_id,omitempty"`
	Symbol     string       `json:"symbol"`
	Height     uint64       `json:"height"`
	TipHash    string       `json:"tip_hash"`
	Validators int          `json:"validators"`
	Quorum     int          `json:"quorum"`
	Supply     chain.Supply `json:"supply"`
	Version    string       `json:"version"`
	APIVersion string       `json:"api_version"`
	Metrics    NodeMetrics  `json:"metrics"`
}

type LivenessResponse struct {
	Alive bool `json:"alive"`
}

type ReadinessResponse struct {
	Ready bool `json:"ready"`
}
