package orch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/groupcall/internal/app"
	"github.com/dkeye/groupcall/internal/core"
	"github.com/dkeye/groupcall/internal/domain"
)

type Settings struct {
	Target          domain.GroupID
	Stream          domain.StreamSpec
	Join            JoinPolicy
	Hold            time.Duration
	TeardownTimeout time.Duration
}

// Orchestrator runs exactly one call session. It exclusively owns Client and
// Engine for the duration of Run and closes both before returning.
type Orchestrator struct {
	Client   core.SessionClient
	Engine   core.CallEngine
	Settings Settings
	Reporter Reporter

	// AbortCtx bounds teardown I/O. It is separate from the run context so
	// teardown survives the first interrupt. Nil means context.Background().
	AbortCtx context.Context
	// Wait overrides the inter-attempt suspension.
	Wait func(ctx context.Context, d time.Duration) error
}

// Run drives Init → Authenticated → PeerResolved → Joining → Active/JoinFailed →
// TornDown. The returned error is non-nil only for an authentication failure;
// every other failure is folded into the outcome. Teardown runs exactly once on
// every path, including authentication failure.
func (o *Orchestrator) Run(ctx context.Context) (out RunOutcome, err error) {
	sc := domain.NewSessionContext(o.Settings.Target)
	logger := log.With().
		Str("module", "orch").
		Str("run_id", string(sc.RunID)).
		Int64("chat_id", int64(sc.Target)).
		Logger()

	o.state(StateInit)
	defer func() {
		out.Teardown = o.teardown(sc)
		o.report(Event{Kind: EventTeardown, Teardown: &out.Teardown})
		o.state(StateTornDown)
		final := out
		o.report(Event{Kind: EventOutcome, Outcome: &final})
	}()

	sess, aerr := o.Client.Authenticate(ctx)
	if aerr != nil {
		if ctx.Err() != nil {
			return RunOutcome{Kind: OutcomeCancelled, Err: cancelled(ctx.Err())}, nil
		}
		err = fmt.Errorf("%w: %w", ErrAuthentication, aerr)
		return RunOutcome{Kind: OutcomeUnexpectedFailure, Err: err}, err
	}
	sc.Session = &sess
	logger.Info().Int64("user_id", sess.UserID).Str("username", sess.Username).Msg("authenticated")
	o.state(StateAuthenticated)

	return o.run(ctx, sc, logger), nil
}

func (o *Orchestrator) run(ctx context.Context, sc *domain.SessionContext, logger zerolog.Logger) (out RunOutcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("run panicked")
			out = RunOutcome{Kind: OutcomeUnexpectedFailure, Err: fmt.Errorf("panic: %v", r), Attempts: out.Attempts}
		}
	}()

	meta, err := o.Client.ResolveEntity(ctx, sc.Target)
	if err != nil {
		return failure(ctx, fmt.Errorf("resolve entity %d: %w", sc.Target, err))
	}
	identity, peer, err := app.ResolvePeer(meta)
	if err != nil {
		return failure(ctx, err)
	}
	sc.Identity, sc.Peer = &identity, peer
	logger.Info().Str("peer", peer.String()).Str("title", identity.Title).Msg("peer resolved")
	o.state(StatePeerResolved)

	if err := o.Engine.Start(ctx); err != nil {
		return failure(ctx, fmt.Errorf("start call engine: %w", err))
	}

	o.state(StateJoining)
	joiner := &Joiner{
		Engine:   o.Engine,
		Policy:   o.Settings.Join,
		Reporter: o.Reporter,
		Wait:     o.Wait,
	}
	cfg := domain.JoinConfig{JoinAs: peer, AutoStart: true}
	res, err := joiner.Execute(ctx, sc.Target, o.Settings.Stream, cfg)
	if err != nil {
		return RunOutcome{Kind: OutcomeCancelled, Err: err, Attempts: res.Attempts}
	}
	if res.Status == JoinExhausted {
		o.state(StateJoinFailed)
		return RunOutcome{
			Kind:     OutcomeRetriesExhausted,
			Err:      fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, res.Attempts, res.LastErr),
			Attempts: res.Attempts,
		}
	}

	o.state(StateActive)
	logger.Info().Dur("hold", o.Settings.Hold).Msg("audio stream playback started")
	if err := Hold(ctx, o.Settings.Hold); err != nil {
		return RunOutcome{Kind: OutcomeCancelled, Err: err, Attempts: res.Attempts}
	}
	return RunOutcome{Kind: OutcomeStreamStarted, Attempts: res.Attempts}
}

func (o *Orchestrator) teardown(sc *domain.SessionContext) TeardownReport {
	parent := o.AbortCtx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := parent, context.CancelFunc(func() {})
	if o.Settings.TeardownTimeout > 0 {
		ctx, cancel = context.WithTimeout(parent, o.Settings.TeardownTimeout)
	}
	defer cancel()

	td := &Teardown{
		Client: o.Client,
		Engine: o.Engine,
		Logger: log.With().Str("module", "orch.teardown").Str("run_id", string(sc.RunID)).Logger(),
	}
	return td.Run(ctx, sc.Peer, sc.Identity)
}

func (o *Orchestrator) state(s State) {
	o.report(Event{Kind: EventState, State: s})
}

func (o *Orchestrator) report(e Event) {
	if o.Reporter != nil {
		o.Reporter.Report(e)
	}
}

// failure classifies err, preferring cancellation when ctx is done.
func failure(ctx context.Context, err error) RunOutcome {
	if ctx.Err() != nil {
		return RunOutcome{Kind: OutcomeCancelled, Err: cancelled(ctx.Err())}
	}
	return RunOutcome{Kind: OutcomeUnexpectedFailure, Err: err}
}
