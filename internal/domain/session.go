// Package domain contains entities without logic, just meta-data
package domain

import (
	"github.com/google/uuid"
)

type RunID string

// Session is the authenticated identity returned by the messaging client.
type Session struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// SessionContext carries everything a run learns about its session.
// It is created at run start and owned by the orchestrator.
type SessionContext struct {
	RunID    RunID
	Target   GroupID
	Session  *Session
	Identity *GroupIdentity
	Peer     PeerAddress
}

func NewSessionContext(target GroupID) *SessionContext {
	return &SessionContext{
		RunID:  RunID(uuid.NewString()),
		Target: target,
	}
}
