package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditEvent records a consensus or authorization outcome.
type AuditEvent struct {
	ID        uuid.UUID         `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"eventType"` // e.g. "BlockCommitted", "BlockRejected"
	EntityID  string            `json:"entityId"`  // block hash, address or token subject
	Result    string            `json:"result"`    // "success" or "failure"
	Reason    string            `json:"reason,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// NewEvent stamps an event with a fresh ID and the current UTC time.
func NewEvent(eventType, entityID, result, reason string, metadata map[string]string) AuditEvent {
	return AuditEvent{
		ID:        uuid.New(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		EntityID:  entityID,
		Result:    result,
		Reason:    reason,
		Metadata:  metadata,
	}
}

// AuditLogger is the interface for logging audit events.
type AuditLogger interface {
	LogEvent(event AuditEvent)
}

// ZapAuditLogger writes events as structured log entries.
type ZapAuditLogger struct {
	log *zap.Logger
}

func NewZapAuditLogger(log *zap.Logger) *ZapAuditLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZapAuditLogger{log: log.Named("audit")}
}

func (l *ZapAuditLogger) LogEvent(event AuditEvent) {
	fields := []zap.Field{
		zap.Stringer("id", event.ID),
		zap.Time("timestamp", event.Timestamp),
		zap.String("entity", event.EntityID),
		zap.String("result", event.Result),
	}
	if event.Reason != "" {
		fields = append(fields, zap.String("reason", event.Reason))
	}
	if len(event.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", event.Metadata))
	}
	l.log.Info(event.EventType, fields...)
}

// MemoryAuditLogger keeps the most recent events in memory so that they
// can be served over the API.
type MemoryAuditLogger struct {
	mu     sync.Mutex
	events []AuditEvent
	limit  int
	next   AuditLogger
}

// NewMemoryAuditLogger keeps up to limit events and forwards every event
// to next when it is non-nil.
func NewMemoryAuditLogger(limit int, next AuditLogger) *MemoryAuditLogger {
	return &MemoryAuditLogger{limit: limit, next: next}
}

func (l *MemoryAuditLogger) LogEvent(event AuditEvent) {
	l.mu.Lock()
	l.events = append(l.events, event)
	if l.limit > 0 && len(l.events) > l.limit {
		l.events = l.events[len(l.events)-l.limit:]
	}
	l.mu.Unlock()
	if l.next != nil {
		l.next.LogEvent(event)
	}
}

// Events returns a copy of the retained events, oldest first.
func (l *MemoryAuditLogger) Events() []AuditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEvent, len(l.events))
	copy(out, l.events)
	return out
}
