package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition is returned when a session status change is not
// allowed by the lifecycle graph.
var ErrInvalidTransition = errors.New("invalid status transition")

// Session lifecycle statuses.
const (
	SessionActive         = "active"
	SessionPendingManager = "pending_manager"
	SessionWithManager    = "with_manager"
	SessionClosed         = "closed"
)

// Message sender roles.
const (
	SenderCustomer = "customer"
	SenderBot      = "bot"
	SenderAgent    = "agent"
)

// Audit event kinds.
const (
	EventUserQuestion    = "user_question"
	EventBotResponse     = "bot_response"
	EventError           = "error"
	EventAPIError        = "api_error"
	EventManagerHandoff  = "manager_handoff"
	EventManagerResponse = "manager_response"
	EventSessionStart    = "session_start"
	EventSessionEnd      = "session_end"
)

// Audit severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

type Session struct {
	ID          string
	Status      string
	Manager     string
	ClientName  string
	ClientPhone string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Message struct {
	ID             string
	SessionID      string
	Body           string
	Sender         string
	Intent         string
	AttachmentRef  string
	AttachmentType string // stored opaque, never interpreted
	CreatedAt      time.Time
}

type AuditEntry struct {
	ID             string
	SessionID      string
	Kind           string
	Severity       string
	Input          string
	Output         string
	ErrorText      string
	ResponseTimeMS int64
	CreatedAt      time.Time
}

// transitions is the session lifecycle graph. Escalation is never reversed
// automatically; only close is reachable from every state.
var transitions = map[string][]string{
	SessionActive:         {SessionPendingManager, SessionClosed},
	SessionPendingManager: {SessionWithManager, SessionClosed},
	SessionWithManager:    {SessionClosed},
	SessionClosed:         {},
}

// ValidTransition reports whether a session may move from one status to
// another. Same-status changes are accepted as no-ops.
func ValidTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
