package orch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dkeye/groupcall/internal/core"
	"github.com/dkeye/groupcall/internal/domain"
)

var errJoin = errors.New("GROUPCALL_JOIN_MISSING")

func countingWait(n *int) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*n++
		return ctx.Err()
	}
}

func TestJoiner_AllAttemptsFail(t *testing.T) {
	for _, retries := range []int{1, 2, 5} {
		eng := &fakeEngine{play: func(context.Context, int) error { return errJoin }}
		waits := 0
		j := &Joiner{Engine: eng, Policy: JoinPolicy{Retries: retries}, Wait: countingWait(&waits)}

		res, err := j.Execute(context.Background(), 1, domain.StreamSpec{}, domain.JoinConfig{})
		require.NoError(t, err)
		assert.Equal(t, JoinExhausted, res.Status)
		assert.Equal(t, retries, res.Attempts)
		assert.Equal(t, retries, eng.Plays())
		assert.Equal(t, retries-1, waits)
		assert.ErrorIs(t, res.LastErr, errJoin)
	}
}

func TestJoiner_SucceedsOnAttemptK(t *testing.T) {
	const retries = 5
	for k := 1; k <= retries; k++ {
		eng := &fakeEngine{play: func(_ context.Context, n int) error {
			if n < k {
				return errJoin
			}
			return nil
		}}
		waits := 0
		j := &Joiner{Engine: eng, Policy: JoinPolicy{Retries: retries}, Wait: countingWait(&waits)}

		res, err := j.Execute(context.Background(), 1, domain.StreamSpec{}, domain.JoinConfig{})
		require.NoError(t, err)
		assert.Equal(t, JoinStarted, res.Status)
		assert.Equal(t, k, res.Attempts)
		assert.Equal(t, k, eng.Plays())
		assert.Equal(t, k-1, waits)
		assert.NoError(t, res.LastErr)
	}
}

func TestJoiner_AttemptTimeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	eng := &fakeEngine{play: func(ctx context.Context, n int) error {
		if n == 1 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}}
	j := &Joiner{Engine: eng, Policy: JoinPolicy{Retries: 3, AttemptTimeout: 20 * time.Millisecond}}

	rep := &eventLog{}
	j.Reporter = rep
	res, err := j.Execute(context.Background(), 1, domain.StreamSpec{}, domain.JoinConfig{})
	require.NoError(t, err)
	assert.Equal(t, JoinStarted, res.Status)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 1, rep.count(EventAttemptFailed))
	assert.Equal(t, 1, rep.count(EventRetryWait))
}

func TestJoiner_TimeoutIsRecordedAsLastError(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	eng := &fakeEngine{play: func(ctx context.Context, _ int) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	j := &Joiner{Engine: eng, Policy: JoinPolicy{Retries: 2, AttemptTimeout: 10 * time.Millisecond}}

	res, err := j.Execute(context.Background(), 1, domain.StreamSpec{}, domain.JoinConfig{})
	require.NoError(t, err)
	assert.Equal(t, JoinExhausted, res.Status)
	assert.ErrorIs(t, res.LastErr, ErrAttemptTimeout)
}

func TestJoiner_AlreadyJoinedCountsAsStarted(t *testing.T) {
	eng := &fakeEngine{play: func(context.Context, int) error { return core.ErrAlreadyJoined }}
	j := &Joiner{Engine: eng, Policy: JoinPolicy{Retries: 3}}

	res, err := j.Execute(context.Background(), 1, domain.StreamSpec{}, domain.JoinConfig{})
	require.NoError(t, err)
	assert.Equal(t, JoinStarted, res.Status)
	assert.Equal(t, 1, res.Attempts)
}

func TestJoiner_CancelDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := &fakeEngine{play: func(context.Context, int) error { return errJoin }}
	waits := 0
	j := &Joiner{
		Engine: eng,
		Policy: JoinPolicy{Retries: 10, Delay: time.Hour},
		Wait: func(ctx context.Context, d time.Duration) error {
			waits++
			cancel()
			return Hold(ctx, d)
		},
	}

	res, err := j.Execute(ctx, 1, domain.StreamSpec{}, domain.JoinConfig{})
	require.ErrorIs(t, err, ErrCancelled)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, eng.Plays())
	assert.Equal(t, 1, waits)
}

func TestJoiner_CancelDuringAttempt(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	eng := &fakeEngine{play: func(ctx context.Context, _ int) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}}
	j := &Joiner{Engine: eng, Policy: JoinPolicy{Retries: 10, AttemptTimeout: time.Hour}}

	go func() {
		<-started
		cancel()
	}()
	_, err := j.Execute(ctx, 1, domain.StreamSpec{}, domain.JoinConfig{})
	require.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, 1, eng.Plays())
}

func TestJoiner_ZeroRetriesMeansOneAttempt(t *testing.T) {
	eng := &fakeEngine{play: func(context.Context, int) error { return errJoin }}
	j := &Joiner{Engine: eng}

	res, err := j.Execute(context.Background(), 1, domain.StreamSpec{}, domain.JoinConfig{})
	require.NoError(t, err)
	assert.Equal(t, JoinExhausted, res.Status)
	assert.Equal(t, 1, eng.Plays())
}
