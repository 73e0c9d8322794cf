package orch

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dkeye/groupcall/internal/core"
	"github.com/dkeye/groupcall/internal/domain"
)

// Teardown ends the remote call and closes local resources. Every step is
// best effort; closing the client is always the last action.
type Teardown struct {
	Client core.SessionClient
	Engine core.CallEngine
	Logger zerolog.Logger
}

// Run never returns an error. A nil peer degrades to closing the connection only.
// When ctx is cancelled the remote steps are skipped; local resources are still closed.
// The engine is closed first, then the call is discarded, then the client is closed.
func (t *Teardown) Run(ctx context.Context, peer domain.PeerAddress, identity *domain.GroupIdentity) (rep TeardownReport) {
	logger := t.Logger
	if identity != nil {
		logger = logger.With().Int64("group_id", identity.ID).Str("kind", identity.Kind.String()).Logger()
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("teardown step panicked")
			if rep.Call == TeardownSkipped {
				rep.Call = TeardownDiscardFailed
				rep.CallErr = fmt.Errorf("teardown panic: %v", r)
			}
		}
		rep.Connection, rep.ConnErr = t.Disconnect()
		switch rep.Connection {
		case TeardownDisconnectFailed:
			logger.Error().Err(rep.ConnErr).Msg("client close failed")
		case TeardownAlreadyDisconnected:
			logger.Info().Msg("client already disconnected")
		default:
			logger.Info().Msg("client disconnected")
		}
	}()

	// Leave the call before it is discarded.
	rep.EngineErr = t.closeEngine(ctx)
	if rep.EngineErr != nil {
		logger.Warn().Err(rep.EngineErr).Msg("call engine close failed")
	}

	rep.Call, rep.CallErr = t.discard(ctx, peer)
	switch rep.Call {
	case TeardownDiscarded:
		logger.Info().Msg("group call discarded")
	case TeardownNoActiveCall:
		logger.Info().Msg("no active group call to discard")
	case TeardownDiscardFailed:
		logger.Warn().Err(rep.CallErr).Msg("failed to discard group call (possibly no rights or already ended)")
	}
	return rep
}

// closeEngine releases the call engine. Its remote leave is bounded by ctx.
func (t *Teardown) closeEngine(ctx context.Context) (err error) {
	if t.Engine == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("call engine close panic: %v", r)
		}
	}()
	return t.Engine.Close(ctx)
}

func (t *Teardown) discard(ctx context.Context, peer domain.PeerAddress) (TeardownResult, error) {
	if peer == nil {
		return TeardownSkipped, nil
	}
	if err := ctx.Err(); err != nil {
		return TeardownDiscardFailed, fmt.Errorf("teardown aborted: %w", err)
	}

	full, err := t.Client.QueryFullGroup(ctx, peer)
	if err != nil {
		return TeardownDiscardFailed, fmt.Errorf("query full group %s: %w", peer, err)
	}
	if full.Call == nil {
		return TeardownNoActiveCall, nil
	}

	call := *full.Call
	if err := t.Client.DiscardCall(ctx, call); err != nil {
		return TeardownDiscardFailed, fmt.Errorf("discard call %d: %w", call.ID, err)
	}
	return TeardownDiscarded, nil
}

// Disconnect closes the client. Closing twice yields TeardownAlreadyDisconnected.
func (t *Teardown) Disconnect() (TeardownResult, error) {
	err := t.Client.Close()
	switch {
	case err == nil:
		return TeardownDisconnected, nil
	case errors.Is(err, core.ErrAlreadyDisconnected):
		return TeardownAlreadyDisconnected, nil
	default:
		return TeardownDisconnectFailed, err
	}
}
