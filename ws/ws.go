// Package ws streams market and account feeds over the exchange websocket.
// It carries no signing and makes no ordering promises beyond the order
// frames arrive in.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	greeting = "Websocket connection established."

	DefaultPingInterval = 50 * time.Second
	DefaultBufferSize   = 64

	writeTimeout = 5 * time.Second
)

var (
	ErrClosed              = errors.New("ws: client closed")
	ErrNotConnected        = errors.New("ws: not connected")
	ErrUnknownSubscription = errors.New("ws: unknown subscription id")
	ErrDuplicate           = errors.New("ws: subscription already held on this connection")
)

type Config struct {
	// BaseURL is the API url; http(s) is rewritten to ws(s) and /ws appended.
	BaseURL      string
	PingInterval time.Duration
	// BufferSize is the capacity of each listener channel. Frames arriving
	// at a full listener are dropped.
	BufferSize int
	Logger     *zap.Logger
}

type listener struct {
	id  int
	sub Subscription
	ch  chan Message
}

// Client multiplexes subscriptions over a single connection. Subscriptions
// made before the server greeting, or before Start, are queued and sent
// once the connection is ready.
type Client struct {
	cfg    Config
	logger *zap.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	ready     bool
	closed    bool
	nextID    int
	queued    []Subscription
	listeners map[string][]*listener
	byID      map[int]*listener

	cancel context.CancelFunc
	group  *errgroup.Group
	pong   chan struct{}
}

func New(cfg Config) *Client {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultPingInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Client{
		cfg:       cfg,
		logger:    cfg.Logger.Named("ws"),
		listeners: make(map[string][]*listener),
		byID:      make(map[int]*listener),
		pong:      make(chan struct{}, 1),
	}
}

func wsURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL %q: %w", baseURL, err)
	}

	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = path.Join("/", u.Path, "ws")

	return u.String(), nil
}

// Start dials the server and launches the read and ping loops. The loops
// outlive ctx; they stop on Close or when the connection drops.
func (c *Client) Start(ctx context.Context) error {
	target, err := wsURL(c.cfg.BaseURL)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.conn != nil {
		c.mu.Unlock()
		return errors.New("ws: already started")
	}
	c.mu.Unlock()

	conn, _, err := websocket.Dial(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to websocket: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	g, gctx := errgroup.WithContext(loopCtx)

	c.mu.Lock()
	c.conn = conn
	c.cancel = cancel
	c.group = g
	c.mu.Unlock()

	g.Go(func() error {
		// A dropped connection stops the ping loop too.
		defer cancel()
		return c.readLoop(gctx, conn)
	})
	g.Go(func() error { return c.pingLoop(gctx, conn) })

	c.logger.Debug("connected", zap.String("url", target))
	return nil
}

// Close stops both loops, closes the connection and closes every listener
// channel. It returns the error that ended the loops, if any.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn, cancel, g := c.conn, c.cancel, c.group
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "closing")
	}

	var err error
	if g != nil {
		err = g.Wait()
	}
	c.closeListeners()
	return err
}

// Subscribe registers a listener for sub and returns its id and a channel
// of routed frames. The channel is closed by Unsubscribe, Close, or when
// the connection drops.
func (c *Client) Subscribe(ctx context.Context, sub Subscription) (int, <-chan Message, error) {
	ident := sub.identifier()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, nil, ErrClosed
	}
	if exclusive(ident) && len(c.listeners[ident]) > 0 {
		c.mu.Unlock()
		return 0, nil, fmt.Errorf("%w: %s", ErrDuplicate, ident)
	}

	c.nextID++
	l := &listener{id: c.nextID, sub: sub, ch: make(chan Message, c.cfg.BufferSize)}
	first := len(c.listeners[ident]) == 0
	c.listeners[ident] = append(c.listeners[ident], l)
	c.byID[l.id] = l

	if !c.ready {
		if first {
			c.queued = append(c.queued, sub)
		}
		c.mu.Unlock()
		c.logger.Debug("subscription queued",
			zap.String("channel", sub.channelName()),
			zap.String("identifier", ident),
			zap.Int("id", l.id),
		)
		return l.id, l.ch, nil
	}
	conn := c.conn
	c.mu.Unlock()

	if first {
		if err := c.send(ctx, conn, "subscribe", sub); err != nil {
			c.drop(l.id)
			return 0, nil, err
		}
	}
	return l.id, l.ch, nil
}

// Unsubscribe removes the listener and closes its channel. The server
// subscription is released with the last listener of its identifier.
func (c *Client) Unsubscribe(ctx context.Context, id int) error {
	l, last, ready, conn, err := c.remove(id)
	if err != nil {
		return err
	}
	if !last || !ready {
		return nil
	}
	return c.send(ctx, conn, "unsubscribe", l.sub)
}

// Ping sends a ping frame and waits for the pong.
func (c *Client) Ping(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}
	if err := c.write(ctx, conn, map[string]string{"method": "ping"}); err != nil {
		return err
	}

	select {
	case <-c.pong:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) remove(id int) (l *listener, last, ready bool, conn *websocket.Conn, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.byID[id]
	if !ok {
		return nil, false, false, nil, fmt.Errorf("%w: %d", ErrUnknownSubscription, id)
	}
	delete(c.byID, id)
	close(l.ch)

	ident := l.sub.identifier()
	rest := c.listeners[ident][:0]
	for _, other := range c.listeners[ident] {
		if other.id != id {
			rest = append(rest, other)
		}
	}
	if len(rest) > 0 {
		c.listeners[ident] = rest
		return l, false, c.ready, c.conn, nil
	}

	delete(c.listeners, ident)
	if !c.ready {
		queued := c.queued[:0]
		for _, s := range c.queued {
			if s.identifier() != ident {
				queued = append(queued, s)
			}
		}
		c.queued = queued
	}
	return l, true, c.ready, c.conn, nil
}

// drop undoes a Subscribe whose subscribe frame could not be sent.
func (c *Client) drop(id int) {
	if _, _, _, _, err := c.remove(id); err != nil {
		c.logger.Debug("drop listener", zap.Error(err))
	}
}

func (c *Client) closeListeners() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, l := range c.byID {
		close(l.ch)
		delete(c.byID, id)
	}
	c.listeners = make(map[string][]*listener)
	c.queued = nil
	c.ready = false
}

func (c *Client) send(ctx context.Context, conn *websocket.Conn, method string, sub Subscription) error {
	if conn == nil {
		return ErrNotConnected
	}
	return c.write(ctx, conn, map[string]any{
		"method":       method,
		"subscription": sub.subscriptionPayload(),
	})
}

func (c *Client) write(ctx context.Context, conn *websocket.Conn, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal ws message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("ws write: %w", err)
	}
	return nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	defer c.closeListeners()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			c.logger.Warn("read failed", zap.Error(err))
			return fmt.Errorf("ws read: %w", err)
		}

		if string(data) == greeting {
			c.onGreeting(ctx, conn)
			continue
		}
		c.handleMessage(data)
	}
}

func (c *Client) onGreeting(ctx context.Context, conn *websocket.Conn) {
	c.mu.Lock()
	c.ready = true
	queued := c.queued
	c.queued = nil
	c.mu.Unlock()

	c.logger.Debug("connection established", zap.Int("queued", len(queued)))

	for _, sub := range queued {
		if err := c.send(ctx, conn, "subscribe", sub); err != nil {
			c.logger.Warn("queued subscribe failed",
				zap.String("identifier", sub.identifier()),
				zap.Error(err),
			)
		}
	}
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.write(ctx, conn, map[string]string{"method": "ping"}); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				c.logger.Warn("ping failed", zap.Error(err))
				return err
			}
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn("undecodable frame", zap.Error(err))
		return
	}

	switch env.Channel {
	case "":
		c.logger.Warn("frame missing channel")
		return
	case "pong":
		select {
		case c.pong <- struct{}{}:
		default:
		}
		return
	case "subscriptionResponse":
		c.logger.Debug("subscription acknowledged", zap.ByteString("data", env.Data))
		return
	case "error":
		c.logger.Warn("server error", zap.ByteString("data", env.Data))
		return
	}

	ident, err := identifierOf(env.Channel, env.Data)
	if err != nil {
		c.logger.Warn("unroutable frame", zap.String("channel", env.Channel), zap.Error(err))
		return
	}
	msg := Message{Channel: env.Channel, Identifier: ident, Data: env.Data}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range c.listeners[ident] {
		select {
		case l.ch <- msg:
		default:
			c.logger.Warn("listener full, dropping frame",
				zap.String("identifier", ident),
				zap.Int("id", l.id),
			)
		}
	}
}
