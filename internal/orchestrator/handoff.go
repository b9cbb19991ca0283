package orchestrator

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/overtech/overbot/internal/storage"
)

// RequestHandoff escalates a session to a human manager and returns the
// session status after the call. Repeated requests while already escalated
// only record another audit entry and report the unchanged status. Optional
// client contact details are captured on the session.
func (o *Orchestrator) RequestHandoff(sessionID, clientName, clientPhone string) (string, error) {
	sess, err := o.store.GetSession(sessionID)
	if err != nil {
		return "", err
	}
	if sess.Status == storage.SessionClosed {
		return "", ErrSessionClosed
	}

	if clientName != "" || clientPhone != "" {
		if err := o.store.SetSessionContact(sessionID, clientName, clientPhone); err != nil {
			return "", fmt.Errorf("recording contact: %w", err)
		}
	}

	status := sess.Status
	if sess.Status == storage.SessionActive {
		if err := o.store.UpdateSessionStatus(sessionID, storage.SessionPendingManager, ""); err != nil {
			return "", fmt.Errorf("escalating session: %w", err)
		}
		status = storage.SessionPendingManager
	}

	o.audit.Record(storage.AuditEntry{
		SessionID: sessionID,
		Kind:      storage.EventManagerHandoff,
		Input:     fmt.Sprintf("handoff requested (was %s)", sess.Status),
	})
	return status, nil
}

// ClaimSession binds a manager to a pending session.
func (o *Orchestrator) ClaimSession(sessionID, manager string) error {
	if manager == "" {
		return errors.New("manager identity required")
	}
	if err := o.store.UpdateSessionStatus(sessionID, storage.SessionWithManager, manager); err != nil {
		return err
	}
	o.audit.Record(storage.AuditEntry{
		SessionID: sessionID,
		Kind:      storage.EventManagerHandoff,
		Output:    "claimed by " + manager,
	})
	return nil
}

// AgentMessage records a manager's reply into a claimed session.
func (o *Orchestrator) AgentMessage(sessionID, body string) error {
	sess, err := o.store.GetSession(sessionID)
	if err != nil {
		return err
	}
	if sess.Status != storage.SessionWithManager {
		return ErrSessionNotClaimed
	}

	if err := o.store.SaveMessage(storage.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Body:      body,
		Sender:    storage.SenderAgent,
	}); err != nil {
		return fmt.Errorf("saving agent message: %w", err)
	}

	o.audit.Record(storage.AuditEntry{
		SessionID: sessionID,
		Kind:      storage.EventManagerResponse,
		Output:    body,
	})
	return nil
}

// CloseSession terminates a session. Closed sessions persist for audit and
// never reopen.
func (o *Orchestrator) CloseSession(sessionID string) error {
	if err := o.store.UpdateSessionStatus(sessionID, storage.SessionClosed, ""); err != nil {
		return err
	}
	o.audit.Record(storage.AuditEntry{
		SessionID: sessionID,
		Kind:      storage.EventSessionEnd,
	})
	return nil
}
