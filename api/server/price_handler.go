package server

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

type PriceResponse struct {
	Symbol string  `json:"symbol"`
	USD    float64 `json:"usd"`
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])
	price, err := s.cfg.Oracle.Price(r.Context(), symbol)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, PriceResponse{Symbol: symbol, USD: price})
}
