package server

// NodeReadiness reports whether the node is committing the transactions
// it receives and, with a store, whether genesis has been persisted.
func (s *Server) NodeReadiness() bool {
	if s.cfg.Store != nil {
		if has, err := s.cfg.Store.HasGenesisBlock(); err != nil || !has {
			return false
		}
	}
	return s.GetNodeMetrics().status() != "stalled"
}
