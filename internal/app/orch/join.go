package orch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/groupcall/internal/core"
	"github.com/dkeye/groupcall/internal/domain"
)

type JoinPolicy struct {
	Retries int
	// AttemptTimeout bounds a single Play call; zero disables the bound.
	AttemptTimeout time.Duration
	Delay          time.Duration
}

type JoinStatus int

const (
	JoinStarted JoinStatus = iota
	JoinExhausted
)

func (s JoinStatus) String() string {
	if s == JoinStarted {
		return "started"
	}
	return "exhausted"
}

type JoinResult struct {
	Status   JoinStatus
	Attempts int
	// LastErr is the reason the final attempt failed; nil when started.
	LastErr error
}

// attemptResult is the tag the retry loop reads after each attempt.
type attemptResult struct {
	err       error
	cancelled bool
}

// Joiner drives bounded, strictly sequential join attempts against a CallEngine.
type Joiner struct {
	Engine   core.CallEngine
	Policy   JoinPolicy
	Reporter Reporter
	// Wait suspends between attempts. Nil means a ctx-aware timer.
	Wait func(ctx context.Context, d time.Duration) error
}

// Execute returns a non-nil error only when ctx is cancelled; exhausting the
// attempts is reported through JoinResult.
func (j *Joiner) Execute(
	ctx context.Context,
	target domain.GroupID,
	stream domain.StreamSpec,
	cfg domain.JoinConfig,
) (JoinResult, error) {
	retries := max(j.Policy.Retries, 1)
	sleep := j.Wait
	if sleep == nil {
		sleep = wait
	}

	var res JoinResult
	for attempt := 1; attempt <= retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return res, cancelled(err)
		}
		res.Attempts = attempt
		j.report(Event{Kind: EventAttempt, Attempt: attempt, Of: retries})

		r := j.attempt(ctx, target, stream, cfg)
		if r.cancelled {
			return res, cancelled(ctx.Err())
		}
		if r.err == nil {
			res.Status = JoinStarted
			res.LastErr = nil
			return res, nil
		}
		res.LastErr = r.err
		j.report(Event{Kind: EventAttemptFailed, Attempt: attempt, Of: retries, Err: r.err})

		if attempt == retries {
			break
		}
		j.report(Event{Kind: EventRetryWait, Attempt: attempt + 1, Of: retries})
		if err := sleep(ctx, j.Policy.Delay); err != nil {
			if ctx.Err() != nil {
				return res, cancelled(ctx.Err())
			}
			return res, err
		}
	}

	res.Status = JoinExhausted
	return res, nil
}

// attempt races one Play call against the per-attempt timer.
func (j *Joiner) attempt(
	ctx context.Context,
	target domain.GroupID,
	stream domain.StreamSpec,
	cfg domain.JoinConfig,
) attemptResult {
	attemptCtx, cancel := ctx, context.CancelFunc(func() {})
	if j.Policy.AttemptTimeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, j.Policy.AttemptTimeout)
	}
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("call engine panic: %v", r)
			}
		}()
		done <- j.Engine.Play(attemptCtx, target, stream, cfg)
	}()

	select {
	case err := <-done:
		switch {
		case err == nil, errors.Is(err, core.ErrAlreadyJoined):
			return attemptResult{}
		case ctx.Err() != nil:
			return attemptResult{cancelled: true}
		case attemptCtx.Err() != nil:
			return attemptResult{err: fmt.Errorf("%w after %s: %w", ErrAttemptTimeout, j.Policy.AttemptTimeout, err)}
		default:
			return attemptResult{err: err}
		}
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return attemptResult{cancelled: true}
		}
		return attemptResult{err: fmt.Errorf("%w after %s", ErrAttemptTimeout, j.Policy.AttemptTimeout)}
	}
}

func (j *Joiner) report(e Event) {
	if j.Reporter != nil {
		j.Reporter.Report(e)
	}
}
