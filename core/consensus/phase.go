package consensus

// Phase is the position of a candidate block in the propose, prepare,
// commit protocol.
type Phase int

const (
	PhaseProposed Phase = iota
	PhasePreparing
	PhaseCommitted
	PhaseRejected
)

func (p Phase) String() string {
	switch p {
	case PhaseProposed:
		return "PROPOSED"
	case PhasePreparing:
		return "PREPARING"
	case PhaseCommitted:
		return "COMMITTED"
	case PhaseRejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}
