// Package audit records structured event entries as a best-effort side
// effect. A failed write is logged and swallowed; it never blocks or fails
// the request that produced it.
package audit

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/overtech/overbot/internal/storage"
)

// Recorder accepts audit events. The zero implementations are a store-backed
// sink and a no-op used by tests.
type Recorder interface {
	Record(e storage.AuditEntry)
}

// Sink writes audit entries to the store.
type Sink struct {
	store  *storage.Store
	logger *slog.Logger
}

func NewSink(store *storage.Store, logger *slog.Logger) *Sink {
	return &Sink{store: store, logger: logger}
}

func (s *Sink) Record(e storage.AuditEntry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if err := s.store.SaveAuditEntry(e); err != nil {
		s.logger.Warn("audit write failed",
			"kind", e.Kind, "session_id", e.SessionID, "error", err)
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) Record(storage.AuditEntry) {}
