package ledger

import "emberchain/core/block"

// FeePolicy decides the minimum fee a transaction must carry.
type FeePolicy interface {
	MinimumFee(tx *block.Transaction) uint64
}

// DynamicFeePolicy charges floor(Base * multiplier) per transaction.
type DynamicFeePolicy struct {
	Base       uint64
	multiplier float64
}

func NewDynamicFeePolicy(base uint64, multiplier float64) *DynamicFeePolicy {
	if multiplier < 0 {
		multiplier = 0
	}
	return &DynamicFeePolicy{Base: base, multiplier: multiplier}
}

func (p *DynamicFeePolicy) MinimumFee(*block.Transaction) uint64 {
	return uint64(float64(p.Base) * p.multiplier)
}

func (p *DynamicFeePolicy) Multiplier() float64 {
	return p.multiplier
}

// SetMultiplier adjusts the fee to current network load.
func (p *DynamicFeePolicy) SetMultiplier(m float64) error {
	if m < 0 {
		return ErrNegativeMultiplier
	}
	p.multiplier = m
	return nil
}
