package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/groupcall/internal/core"
	"github.com/dkeye/groupcall/internal/domain"
)

var (
	ErrNotConnected   = errors.New("gateway not connected")
	ErrConnectionLost = errors.New("gateway connection lost")
)

type Options struct {
	URL         string
	APIID       int
	APIHash     string
	SessionName string

	Dialer       *websocket.Dialer
	Header       http.Header
	WriteTimeout time.Duration
	SendQueue    int
}

// Client is a core.SessionClient backed by one websocket connection.
// It also implements rtc.Signaler.
type Client struct {
	opts   Options
	logger zerolog.Logger

	mu      sync.Mutex
	conn    *wsConn
	cancel  context.CancelFunc
	pending map[string]chan response
}

var _ core.SessionClient = (*Client)(nil)

func New(opts Options) *Client {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.SendQueue <= 0 {
		opts.SendQueue = 32
	}
	return &Client{
		opts:    opts,
		logger:  log.With().Str("module", "gateway").Str("url", opts.URL).Logger(),
		pending: make(map[string]chan response),
	}
}

// Authenticate dials the gateway and signs in. The connection stays open until
// Close, even if sign-in fails.
func (c *Client) Authenticate(ctx context.Context) (domain.Session, error) {
	if err := c.connect(ctx); err != nil {
		return domain.Session{}, err
	}
	var s domain.Session
	err := c.call(ctx, methodSignIn, signInParams{
		APIID:       c.opts.APIID,
		APIHash:     c.opts.APIHash,
		SessionName: c.opts.SessionName,
	}, &s)
	if err != nil {
		return domain.Session{}, err
	}
	return s, nil
}

func (c *Client) ResolveEntity(ctx context.Context, id domain.GroupID) (domain.EntityMetadata, error) {
	var meta domain.EntityMetadata
	err := c.call(ctx, methodResolveEntity, resolveParams{ID: int64(id)}, &meta)
	return meta, err
}

func (c *Client) QueryFullGroup(ctx context.Context, peer domain.PeerAddress) (domain.GroupFullInfo, error) {
	var (
		full   domain.GroupFullInfo
		method string
		params any
	)
	switch p := peer.(type) {
	case domain.ChannelPeer:
		method = methodFullChannel
		params = fullChannelParams{Channel: inputChannel{ChannelID: p.ChannelID, AccessHash: p.AccessHash}}
	case domain.BasicGroupPeer:
		method = methodFullChat
		params = fullChatParams{ChatID: p.ChatID}
	default:
		return full, fmt.Errorf("query full group: unsupported peer %T", peer)
	}
	err := c.call(ctx, method, params, &full)
	return full, err
}

func (c *Client) DiscardCall(ctx context.Context, call domain.CallHandle) error {
	return c.call(ctx, methodDiscardCall, discardParams{Call: call}, nil)
}

// JoinGroupCall sends the local SDP offer and returns the remote answer.
func (c *Client) JoinGroupCall(ctx context.Context, chat domain.GroupID, joinAs domain.PeerAddress, offer string, muted bool) (string, error) {
	peer, err := encodePeer(joinAs)
	if err != nil {
		return "", err
	}
	var res joinResult
	err = c.call(ctx, methodJoinGroupCall, joinParams{
		ChatID: int64(chat),
		JoinAs: peer,
		SDP:    offer,
		Muted:  muted,
	}, &res)
	return res.SDP, err
}

func (c *Client) LeaveGroupCall(ctx context.Context, chat domain.GroupID) error {
	return c.call(ctx, methodLeaveGroupCall, leaveParams{ChatID: int64(chat)}, nil)
}

// Close returns core.ErrAlreadyDisconnected if the connection was never opened,
// already closed, or dropped by the gateway.
func (c *Client) Close() error {
	c.mu.Lock()
	conn, cancel := c.conn, c.cancel
	c.conn, c.cancel = nil, nil
	c.mu.Unlock()

	if conn == nil {
		return core.ErrAlreadyDisconnected
	}
	if cancel != nil {
		cancel()
	}
	if !conn.Close() {
		return core.ErrAlreadyDisconnected
	}
	c.logger.Info().Msg("disconnected")
	return nil
}

func (c *Client) connect(ctx context.Context) error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	ws, _, err := c.opts.Dialer.DialContext(ctx, c.opts.URL, c.opts.Header)
	if err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}
	conn := newWSConn(ws, c.opts.SendQueue, c.opts.WriteTimeout)
	pumpCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.conn, c.cancel = conn, cancel
	c.mu.Unlock()

	go conn.writePump(pumpCtx, c.logger)
	go func() {
		err := conn.readPump(pumpCtx, func(data []byte) { c.handle(conn, data) })
		c.drop(conn, err)
	}()

	c.logger.Info().Msg("connected")
	return nil
}

// drop fails every pending call once the read side of conn ends.
func (c *Client) drop(conn *wsConn, err error) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
		if err != nil {
			c.logger.Warn().Err(err).Msg("connection lost")
		}
	}
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()
	conn.Close()
}

func (c *Client) handle(conn *wsConn, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Error().Err(err).Msg("bad json")
		return
	}

	switch env.Type {
	case typeResponse:
		var resp response
		if err := json.Unmarshal(data, &resp); err != nil {
			c.logger.Error().Err(err).Msg("bad response payload")
			return
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()
		if !ok {
			c.logger.Warn().Str("id", resp.ID).Msg("response for unknown request")
			return
		}
		ch <- resp
	case typePing:
		b, _ := json.Marshal(envelope{Type: typePong})
		_ = conn.TrySend(b)
	default:
		c.logger.Warn().Str("type", env.Type).Msg("unknown envelope")
	}
}

func (c *Client) call(ctx context.Context, method string, params, out any) error {
	id := uuid.NewString()
	b, err := json.Marshal(request{Type: typeRequest, ID: id, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", method, err)
	}

	ch := make(chan response, 1)
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", method, ErrNotConnected)
	}
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := conn.TrySend(b); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	c.logger.Debug().Str("method", method).Str("id", id).Msg("request sent")

	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", method, ctx.Err())
	case resp, ok := <-ch:
		if !ok {
			return fmt.Errorf("%s: %w", method, ErrConnectionLost)
		}
		if resp.Error != nil {
			return fmt.Errorf("%s: %w", method, resp.Error)
		}
		if out != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, out); err != nil {
				return fmt.Errorf("%s: decode result: %w", method, err)
			}
		}
		return nil
	}
}
