package rtc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
	"github.com/rs/zerolog"

	"github.com/dkeye/groupcall/internal/domain"
)

const (
	opusSampleRate  = 48000
	oggPageInterval = 20 * time.Millisecond
)

// callConn is one joined call: its peer connection, audio track and source.
type callConn struct {
	target domain.GroupID
	ctx    context.Context
	cancel context.CancelFunc

	src   io.ReadCloser
	pc    *webrtc.PeerConnection
	track *webrtc.TrackLocalStaticSample

	connected chan struct{}
	failed    chan struct{}
	connOnce  sync.Once
	failOnce  sync.Once

	leave        func(ctx context.Context) error
	leaveTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

func (c *callConn) markConnected() { c.connOnce.Do(func() { close(c.connected) }) }
func (c *callConn) markFailed()    { c.failOnce.Do(func() { close(c.failed) }) }

func (c *callConn) isConnected() bool {
	select {
	case <-c.failed:
		return false
	default:
	}
	select {
	case <-c.connected:
		return c.ctx.Err() == nil
	default:
		return false
	}
}

// close leaves the call and releases local resources; it runs once. The
// remote leave is bounded by ctx and skipped when ctx is already done or
// remote is false.
func (c *callConn) close(ctx context.Context, remote bool) error {
	c.closeOnce.Do(func() {
		c.cancel()
		var errs []error
		if remote && c.leave != nil && ctx.Err() == nil {
			leaveCtx, cancel := context.WithTimeout(ctx, c.leaveTimeout)
			if err := c.leave(leaveCtx); err != nil {
				errs = append(errs, fmt.Errorf("leave group call: %w", err))
			}
			cancel()
		}
		if c.pc != nil {
			if err := c.pc.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close peer connection: %w", err))
			}
		}
		if c.src != nil {
			_ = c.src.Close()
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}

func (c *callConn) pump(logger zerolog.Logger) {
	err := streamOgg(c.ctx, c.src, c.track)
	switch {
	case err == nil:
		logger.Info().Msg("media source finished")
	case c.ctx.Err() != nil:
		logger.Debug().Msg("media pump stopped")
	default:
		logger.Error().Err(err).Msg("media pump failed")
	}
}

// streamOgg writes Ogg/Opus pages to track, paced at the page interval.
// It returns nil when the source reaches EOF.
func streamOgg(ctx context.Context, src io.Reader, track *webrtc.TrackLocalStaticSample) error {
	ogg, _, err := oggreader.NewWith(src)
	if err != nil {
		return fmt.Errorf("read ogg header: %w", err)
	}

	ticker := time.NewTicker(oggPageInterval)
	defer ticker.Stop()

	var lastGranule uint64
	for {
		page, header, err := ogg.ParseNextPage()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read ogg page: %w", err)
		}

		samples := header.GranulePosition - lastGranule
		lastGranule = header.GranulePosition
		duration := time.Duration(float64(samples) / opusSampleRate * float64(time.Second))

		if err := track.WriteSample(media.Sample{Data: page, Duration: duration}); err != nil {
			return fmt.Errorf("write sample: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
