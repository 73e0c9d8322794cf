package rtc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/groupcall/internal/core"
	"github.com/dkeye/groupcall/internal/domain"
)

var (
	ErrNotStarted = errors.New("call engine not started")
	ErrICEFailed  = errors.New("ice connection failed")
)

// Signaler carries the join/leave exchange for the group call.
type Signaler interface {
	JoinGroupCall(ctx context.Context, chat domain.GroupID, joinAs domain.PeerAddress, offer string, muted bool) (string, error)
	LeaveGroupCall(ctx context.Context, chat domain.GroupID) error
}

type Options struct {
	// ICEServers defaults to DefaultICEServers when nil; empty disables STUN.
	ICEServers []string
	Signaler   Signaler
	// Open opens the media source; defaults to OpenSource.
	Open         func(ctx context.Context, source string) (io.ReadCloser, error)
	LeaveTimeout time.Duration
}

func DefaultICEServers() []string {
	return []string{"stun:stun.l.google.com:19302"}
}

// Engine is a core.CallEngine that publishes one Opus track into a group call.
type Engine struct {
	opts Options
	api  *webrtc.API

	mu   sync.Mutex
	call *callConn
}

var _ core.CallEngine = (*Engine)(nil)

func NewEngine(opts Options) *Engine {
	if opts.ICEServers == nil {
		opts.ICEServers = DefaultICEServers()
	}
	if opts.Open == nil {
		opts.Open = OpenSource
	}
	if opts.LeaveTimeout <= 0 {
		opts.LeaveTimeout = 5 * time.Second
	}
	return &Engine{opts: opts}
}

// Start registers the Opus codec and builds the WebRTC API.
func (e *Engine) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := &webrtc.MediaEngine{}
	if err := m.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		PayloadType:        111,
	}, webrtc.RTPCodecTypeAudio); err != nil {
		return fmt.Errorf("register opus: %w", err)
	}

	e.mu.Lock()
	e.api = webrtc.NewAPI(webrtc.WithMediaEngine(m))
	e.mu.Unlock()
	log.Info().Str("module", "rtc").Msg("call engine started")
	return nil
}

// Play joins target's call and starts streaming once ICE connects. A live
// connection to the same target is reported as core.ErrAlreadyJoined; any other
// leftover connection from an abandoned attempt is closed first.
func (e *Engine) Play(ctx context.Context, target domain.GroupID, stream domain.StreamSpec, cfg domain.JoinConfig) error {
	e.mu.Lock()
	api := e.api
	if api == nil {
		e.mu.Unlock()
		return ErrNotStarted
	}
	stale := e.call
	if stale != nil && stale.target == target && stale.isConnected() {
		e.mu.Unlock()
		return core.ErrAlreadyJoined
	}
	e.call = nil
	e.mu.Unlock()

	if stale != nil {
		stale.close(context.Background(), true)
	}

	logger := log.With().Str("module", "rtc").Int64("chat_id", int64(target)).Logger()
	c, err := e.join(ctx, api, target, stream, cfg, logger)
	if err != nil {
		return err
	}

	// An attempt abandoned while joining must not replace a newer call, and
	// its leave would be keyed to the same chat, so it is closed locally.
	e.mu.Lock()
	if err := ctx.Err(); err != nil {
		e.mu.Unlock()
		c.close(context.Background(), false)
		return err
	}
	orphan := e.call
	e.call = c
	e.mu.Unlock()
	if orphan != nil {
		orphan.close(context.Background(), orphan.target != target)
	}

	go c.pump(logger)
	return nil
}

func (e *Engine) join(
	ctx context.Context,
	api *webrtc.API,
	target domain.GroupID,
	stream domain.StreamSpec,
	cfg domain.JoinConfig,
	logger zerolog.Logger,
) (*callConn, error) {
	// The call outlives this attempt's ctx once joined, so it gets its own
	// lifetime and only follows ctx until the join completes.
	callCtx, cancel := context.WithCancel(context.Background())
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	c := &callConn{
		target:    target,
		cancel:    cancel,
		ctx:       callCtx,
		connected: make(chan struct{}),
		failed:    make(chan struct{}),
	}
	ok := false
	defer func() {
		if !ok {
			// Only a failure of this attempt itself leaves remotely; an
			// abandoned attempt may share the chat with a newer one.
			c.close(context.Background(), ctx.Err() == nil)
		}
	}()

	src, err := e.opts.Open(callCtx, stream.Source)
	if err != nil {
		return nil, fmt.Errorf("open media source: %w", err)
	}
	c.src = src

	var pcCfg webrtc.Configuration
	if len(e.opts.ICEServers) > 0 {
		pcCfg.ICEServers = []webrtc.ICEServer{{URLs: e.opts.ICEServers}}
	}
	pc, err := api.NewPeerConnection(pcCfg)
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}
	c.pc = pc

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio",
		"groupcall-"+uuid.NewString(),
	)
	if err != nil {
		return nil, fmt.Errorf("new audio track: %w", err)
	}
	c.track = track

	sender, err := pc.AddTrack(track)
	if err != nil {
		return nil, fmt.Errorf("add track: %w", err)
	}
	go drainRTCP(sender)

	pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		logger.Info().Str("ice_state", s.String()).Msg("ICE state")
		switch s {
		case webrtc.ICEConnectionStateConnected:
			c.markConnected()
		case webrtc.ICEConnectionStateFailed, webrtc.ICEConnectionStateClosed:
			c.markFailed()
		}
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	select {
	case <-gatherComplete:
	case <-callCtx.Done():
		return nil, ctx.Err()
	}

	answer, err := e.opts.Signaler.JoinGroupCall(callCtx, target, cfg.JoinAs, pc.LocalDescription().SDP, !cfg.AutoStart)
	if err != nil {
		return nil, fmt.Errorf("join group call: %w", err)
	}
	c.leave = func(ctx context.Context) error { return e.opts.Signaler.LeaveGroupCall(ctx, target) }
	c.leaveTimeout = e.opts.LeaveTimeout

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answer}); err != nil {
		return nil, fmt.Errorf("set remote description: %w", err)
	}

	select {
	case <-c.connected:
	case <-c.failed:
		return nil, ErrICEFailed
	case <-callCtx.Done():
		return nil, ctx.Err()
	}

	// A join that completes after the attempt was abandoned is not kept.
	if callCtx.Err() != nil {
		return nil, ctx.Err()
	}

	logger.Info().Str("source", stream.Source).Msg("joined group call")
	ok = true
	return c, nil
}

// Close leaves the current call, if any, and releases its resources. The
// leave is bounded by ctx; once ctx is done only local resources are closed.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	c := e.call
	e.call = nil
	e.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.close(ctx, true)
}

func drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, 1500)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}
