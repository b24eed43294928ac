package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.chain.Account(mux.Vars(r)["address"]))
}

func (s *Server) handleSupply(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.chain.Supply())
}

type ValidatorsResponse struct {
	Quorum     int                `json:"quorum"`
	Validators []ValidatorSummary `json:"validators"`
}

type ValidatorSummary struct {
	Address     string `json:"address"`
	GenesisBond uint64 `json:"genesisStake"`
	Stake       uint64 `json:"stake"`
	Delegated   uint64 `json:"delegated"`
}

func (s *Server) handleValidators(w http.ResponseWriter, r *http.Request) {
	resp := ValidatorsResponse{Quorum: s.chain.Quorum()}
	for _, v := range s.chain.Validators() {
		acct := s.chain.Account(v.Address)
		resp.Validators = append(resp.Validators, ValidatorSummary{
			Address:     v.Address,
			GenesisBond: v.Stake,
			Stake:       acct.Stake,
			Delegated:   acct.Delegated,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type DelegatorsResponse struct {
	Validator  string   `json:"validator"`
	Delegated  uint64   `json:"delegated"`
	Delegators []string `json:"delegators"`
}

func (s *Server) handleDelegators(w http.ResponseWriter, r *http.Request) {
	acct := s.chain.Account(mux.Vars(r)["address"])
	delegators := acct.Delegators
	if delegators == nil {
		delegators = []string{}
	}
	writeJSON(w, http.StatusOK, DelegatorsResponse{
		Validator:  acct.Address,
		Delegated:  acct.Delegated,
		Delegators: delegators,
	})
}

func (s *Server) handleContracts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.chain.Contracts())
}
