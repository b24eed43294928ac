package validation

import (
	"sync"

	"emberchain/core/audit"
)

var (
	auditMu     sync.RWMutex
	auditLogger audit.AuditLogger
)

// SetAuditLogger routes rejected payloads to l. A nil logger disables
// auditing.
func SetAuditLogger(l audit.AuditLogger) {
	auditMu.Lock()
	auditLogger = l
	auditMu.Unlock()
}

// AuditValidationError records a rejected payload. Only the schema kind and
// the violation text are logged, never the payload itself.
func AuditValidationError(kind Schema, reason string) {
	auditMu.RLock()
	l := auditLogger
	auditMu.RUnlock()
	if l == nil {
		return
	}
	l.LogEvent(audit.NewEvent("PayloadRejected", string(kind), audit.ResultFailure, reason, nil))
}
