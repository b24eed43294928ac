package server

// NodeLiveness reports whether the chain answers reads.
func (s *Server) NodeLiveness() bool {
	return s.chain.Tip() != nil
}
