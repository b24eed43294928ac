package server

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"emberchain/core/block"
	"emberchain/core/storage"
	"emberchain/types/ids"
)

const defaultBlockPage = 20

func (s *Server) handleTip(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.chain.Tip())
}

func (s *Server) handleGetBlock(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseUint(mux.Vars(r)["index"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var blk *block.Block
	if s.cfg.Store != nil {
		blk, err = s.cfg.Store.GetBlockByHeight(index)
	} else {
		blk, err = s.chain.BlockAt(index)
	}
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, blk)
}

func (s *Server) handleGetBlockByHash(w http.ResponseWriter, r *http.Request) {
	hash, err := ids.FromString(mux.Vars(r)["hash"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var blk *block.Block
	if s.cfg.Store != nil {
		blk, err = s.cfg.Store.GetBlockByHash(hash)
	} else {
		blk, err = s.chain.BlockByHash(hash)
	}
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, blk)
}

type BlockSummary = storage.BlockSummary

// handleListBlocks summarizes the newest blocks, newest first. ?limit=N
// caps the page.
func (s *Server) handleListBlocks(w http.ResponseWriter, r *http.Request) {
	limit := defaultBlockPage
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, strconv.ErrSyntax)
			return
		}
		limit = n
	}
	if s.cfg.Store != nil {
		out, err := s.cfg.Store.ListRecentBlocks(limit)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		if out == nil {
			out = []BlockSummary{}
		}
		writeJSON(w, http.StatusOK, out)
		return
	}
	blocks := s.chain.Blocks()
	out := make([]BlockSummary, 0, min(limit, len(blocks)))
	for i := len(blocks) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, storage.Summarize(blocks[i]))
	}
	writeJSON(w, http.StatusOK, out)
}
