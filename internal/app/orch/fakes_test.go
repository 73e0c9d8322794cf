package orch

import (
	"context"
	"sync"

	"github.com/dkeye/groupcall/internal/core"
	"github.com/dkeye/groupcall/internal/domain"
)

type fakeClient struct {
	mu sync.Mutex

	authErr    error
	meta       domain.EntityMetadata
	resolveErr error
	full       domain.GroupFullInfo
	queryErr   error
	discardErr error

	closed       bool
	closeCalls   int
	queried      []domain.PeerAddress
	discarded    []domain.CallHandle
	resolveCalls int
}

func (c *fakeClient) Authenticate(ctx context.Context) (domain.Session, error) {
	if c.authErr != nil {
		return domain.Session{}, c.authErr
	}
	return domain.Session{UserID: 1, Username: "tester"}, nil
}

func (c *fakeClient) ResolveEntity(ctx context.Context, id domain.GroupID) (domain.EntityMetadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolveCalls++
	return c.meta, c.resolveErr
}

func (c *fakeClient) QueryFullGroup(ctx context.Context, peer domain.PeerAddress) (domain.GroupFullInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queried = append(c.queried, peer)
	return c.full, c.queryErr
}

func (c *fakeClient) DiscardCall(ctx context.Context, call domain.CallHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discarded = append(c.discarded, call)
	return c.discardErr
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCalls++
	if c.closed {
		return core.ErrAlreadyDisconnected
	}
	c.closed = true
	return nil
}

type fakeEngine struct {
	mu sync.Mutex

	startErr error
	// play decides the result of the n-th (1-based) Play call.
	play func(ctx context.Context, n int) error

	// onClose runs inside Close with the teardown context.
	onClose func(ctx context.Context)

	plays      int
	closeCalls int
	closeErr   error
	lastCfg    domain.JoinConfig
}

func (e *fakeEngine) Start(ctx context.Context) error { return e.startErr }

func (e *fakeEngine) Play(ctx context.Context, target domain.GroupID, stream domain.StreamSpec, cfg domain.JoinConfig) error {
	e.mu.Lock()
	e.plays++
	n := e.plays
	e.lastCfg = cfg
	play := e.play
	e.mu.Unlock()
	if play == nil {
		return nil
	}
	return play(ctx, n)
}

func (e *fakeEngine) Close(ctx context.Context) error {
	e.mu.Lock()
	e.closeCalls++
	e.closeErr = ctx.Err()
	onClose := e.onClose
	e.mu.Unlock()
	if onClose != nil {
		onClose(ctx)
	}
	return nil
}

func (e *fakeEngine) Plays() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.plays
}

// eventLog records every reported event.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Report(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) count(kind EventKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (l *eventLog) states() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []State
	for _, e := range l.events {
		if e.Kind == EventState {
			out = append(out, e.State)
		}
	}
	return out
}

func ptr[T any](v T) *T { return &v }
