package core

import (
	"context"

	"github.com/dkeye/groupcall/internal/domain"
)

// CallEngine joins group calls and streams media into them.
type CallEngine interface {
	// Start prepares the engine; it must be called once before Play.
	Start(ctx context.Context) error
	// Play joins the call of target and starts streaming. It returns
	// ErrAlreadyJoined when a join to the same target is already live.
	Play(ctx context.Context, target domain.GroupID, stream domain.StreamSpec, cfg domain.JoinConfig) error
	// Close should stop all underlying media resources. Remote leave steps
	// are bounded by ctx and skipped once it is done; local resources are
	// released regardless.
	Close(ctx context.Context) error
}
