package core

import (
	"context"

	"github.com/dkeye/groupcall/internal/domain"
)

// SessionClient abstracts the messaging protocol client.
// The orchestrator owns it for the whole run and is the only caller of Close.
type SessionClient interface {
	// Authenticate opens the connection and logs in.
	Authenticate(ctx context.Context) (domain.Session, error)
	ResolveEntity(ctx context.Context, id domain.GroupID) (domain.EntityMetadata, error)
	// QueryFullGroup uses the channel or basic-group query depending on peer.
	QueryFullGroup(ctx context.Context, peer domain.PeerAddress) (domain.GroupFullInfo, error)
	DiscardCall(ctx context.Context, call domain.CallHandle) error
	// Close returns ErrAlreadyDisconnected when the connection is not open.
	Close() error
}
