package genesis

import (
	"encoding/json"
	"strconv"

	"emberchain/core/audit"
	"emberchain/core/ledger"
	"emberchain/core/validator"
	"emberchain/types/ids"
)

// Hash fingerprints the configuration so that nodes can confirm they
// started from the same genesis.
func (c *GenesisConfig) Hash() (ids.ID, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return ids.Empty, err
	}
	return ids.NewID(b), nil
}

// AuditApplied records the outcome of Apply.
func AuditApplied(logger audit.AuditLogger, cfg *GenesisConfig, vs *validator.Set, l *ledger.Ledger, applyErr error) {
	if logger == nil {
		return
	}
	meta := map[string]string{
		"validators":  strconv.Itoa(len(cfg.Validators)),
		"allocations": strconv.Itoa(len(cfg.Allocations)),
		"symbol":      cfg.Params.Symbol,
	}
	if hash, err := cfg.Hash(); err == nil {
		meta["configHash"] = hash.String()
	}
	if applyErr != nil {
		logger.LogEvent(audit.NewEvent("GenesisApplied", cfg.ChainID, audit.ResultFailure, applyErr.Error(), meta))
		return
	}
	meta["totalSupply"] = strconv.FormatUint(l.TotalSupply(), 10)
	meta["totalStaked"] = strconv.FormatUint(l.TotalStaked(), 10)
	meta["committee"] = strconv.Itoa(vs.Size())
	logger.LogEvent(audit.NewEvent("GenesisApplied", cfg.ChainID, audit.ResultSuccess, "", meta))
}
