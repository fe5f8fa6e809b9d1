package pusher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/five82/backroom/internal/realtime"
)

const (
	protocolVersion        = "7"
	defaultActivityTimeout = 120 * time.Second
	defaultNamespace       = `App\Events\`
	handshakeTimeout       = 10 * time.Second
	writeTimeout           = 5 * time.Second
	pongGrace              = 30 * time.Second
	defaultBaseBackoff     = time.Second
	defaultMaxBackoff      = 30 * time.Second
)

// Authorizer signs a private channel subscription for socketID.
type Authorizer interface {
	AuthorizeChannel(ctx context.Context, socketID, channel string) (string, error)
}

// Config configures a Client.
type Config struct {
	URL         string // ws:// or wss:// base, e.g. wss://push.example.com
	AppKey      string
	Namespace   string // event prefix to strip; empty uses App\Events\
	Authorizer  Authorizer
	Logger      *slog.Logger
	Dialer      *websocket.Dialer
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// Client is a reconnecting Pusher connection. It implements
// realtime.ChannelObserver.
type Client struct {
	hub      *realtime.Hub
	endpoint string
	cfg      Config
	logger   *slog.Logger

	mu       sync.Mutex
	channels map[string]bool
	pending  []op
	sess     *session
	wake     chan struct{}
}

type op struct {
	subscribe bool
	channel   string
}

var _ realtime.ChannelObserver = (*Client)(nil)

// New builds a client and registers it as the hub's observer.
func New(hub *realtime.Hub, cfg Config) (*Client, error) {
	endpoint, err := endpointURL(cfg.URL, cfg.AppKey)
	if err != nil {
		return nil, err
	}
	if cfg.Namespace == "" {
		cfg.Namespace = defaultNamespace
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = defaultBaseBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		hub:      hub,
		endpoint: endpoint,
		cfg:      cfg,
		logger:   logger.With("component", "pusher"),
		channels: make(map[string]bool),
		wake:     make(chan struct{}, 1),
	}
	hub.SetObserver(c)
	return c, nil
}

func endpointURL(raw, key string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("realtime url is empty")
	}
	if strings.TrimSpace(key) == "" {
		return "", errors.New("realtime app key is empty")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("parse realtime url %q: %w", raw, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported realtime url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/app/" + url.PathEscape(key)
	q := url.Values{}
	q.Set("protocol", protocolVersion)
	q.Set("client", "backroom")
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String(), nil
}

// Join queues a subscribe for name.
func (c *Client) Join(name string) {
	c.enqueue(op{subscribe: true, channel: name})
}

// Leave queues an unsubscribe for name.
func (c *Client) Leave(name string) {
	c.enqueue(op{subscribe: false, channel: name})
}

func (c *Client) enqueue(o op) {
	c.mu.Lock()
	if o.subscribe {
		c.channels[o.channel] = true
	} else {
		delete(c.channels, o.channel)
	}
	if c.sess != nil {
		c.pending = append(c.pending, o)
	}
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Connected reports whether a session is established.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess != nil
}

// Run connects and keeps reconnecting until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	failures := 0
	for {
		established, err := c.runSession(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if established {
			failures = 0
		}
		if err != nil {
			c.logger.Warn("realtime connection lost", "error", err, "failures", failures)
			c.hub.Fail("", err)
		}

		wait := realtime.Backoff(failures, c.cfg.BaseBackoff, c.cfg.MaxBackoff)
		failures++
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

type frame struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type session struct {
	conn     *websocket.Conn
	socketID string
	writeMu  sync.Mutex
}

func (s *session) send(f frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(f)
}

func (c *Client) runSession(ctx context.Context) (bool, error) {
	conn, _, err := c.cfg.Dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-sessCtx.Done()
		_ = conn.Close()
	}()

	socketID, activity, err := handshake(conn)
	if err != nil {
		return false, err
	}
	sess := &session{conn: conn, socketID: socketID}
	c.logger.Info("realtime connected", "socket_id", socketID)

	c.mu.Lock()
	c.sess = sess
	c.pending = c.pending[:0]
	initial := make([]op, 0, len(c.channels))
	for name := range c.channels {
		initial = append(initial, op{subscribe: true, channel: name})
	}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.sess = nil
		c.pending = nil
		c.mu.Unlock()
	}()

	writerErr := make(chan error, 1)
	go func() { writerErr <- c.writeLoop(sessCtx, sess, initial, activity) }()

	readErr := c.readLoop(sess, activity)
	cancel()
	if werr := <-writerErr; readErr == nil {
		readErr = werr
	}
	if ctx.Err() != nil {
		return true, nil
	}
	return true, readErr
}

func handshake(conn *websocket.Conn) (string, time.Duration, error) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		return "", 0, fmt.Errorf("read handshake: %w", err)
	}
	switch f.Event {
	case "pusher:connection_established":
	case "pusher:error":
		return "", 0, fmt.Errorf("server refused connection: %s", decodeData(f.Data))
	default:
		return "", 0, fmt.Errorf("unexpected handshake event %q", f.Event)
	}
	var est struct {
		SocketID        string `json:"socket_id"`
		ActivityTimeout int    `json:"activity_timeout"`
	}
	if err := json.Unmarshal(decodeData(f.Data), &est); err != nil {
		return "", 0, fmt.Errorf("decode handshake: %w", err)
	}
	if est.SocketID == "" {
		return "", 0, errors.New("handshake without socket id")
	}
	activity := defaultActivityTimeout
	if est.ActivityTimeout > 0 {
		activity = time.Duration(est.ActivityTimeout) * time.Second
	}
	return est.SocketID, activity, nil
}

func (c *Client) writeLoop(ctx context.Context, sess *session, initial []op, activity time.Duration) error {
	for _, o := range initial {
		if err := c.apply(ctx, sess, o); err != nil {
			return err
		}
	}

	ping := time.NewTicker(activity)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ping.C:
			if err := sess.send(frame{Event: "pusher:ping", Data: json.RawMessage(`{}`)}); err != nil {
				return fmt.Errorf("send ping: %w", err)
			}
		case <-c.wake:
			c.mu.Lock()
			ops := c.pending
			c.pending = nil
			c.mu.Unlock()
			for _, o := range ops {
				if err := c.apply(ctx, sess, o); err != nil {
					return err
				}
			}
		}
	}
}

func (c *Client) apply(ctx context.Context, sess *session, o op) error {
	if !o.subscribe {
		data, _ := json.Marshal(map[string]string{"channel": o.channel})
		if err := sess.send(frame{Event: "pusher:unsubscribe", Data: data}); err != nil {
			return fmt.Errorf("unsubscribe %s: %w", o.channel, err)
		}
		return nil
	}

	payload := map[string]string{"channel": o.channel}
	if isPrivate(o.channel) {
		if c.cfg.Authorizer == nil {
			c.hub.Fail(o.channel, fmt.Errorf("no authorizer for private channel %s", o.channel))
			return nil
		}
		auth, err := c.cfg.Authorizer.AuthorizeChannel(ctx, sess.socketID, o.channel)
		if err != nil {
			// the connection is fine; only this channel is unusable
			c.logger.Warn("channel authorization failed", "channel", o.channel, "error", err)
			c.hub.Fail(o.channel, fmt.Errorf("authorize %s: %w", o.channel, err))
			return nil
		}
		payload["auth"] = auth
	}
	data, _ := json.Marshal(payload)
	if err := sess.send(frame{Event: "pusher:subscribe", Data: data}); err != nil {
		return fmt.Errorf("subscribe %s: %w", o.channel, err)
	}
	return nil
}

func isPrivate(channel string) bool {
	return strings.HasPrefix(channel, "private-") || strings.HasPrefix(channel, "presence-")
}

func (c *Client) readLoop(sess *session, activity time.Duration) error {
	for {
		_ = sess.conn.SetReadDeadline(time.Now().Add(activity + pongGrace))
		var f frame
		if err := sess.conn.ReadJSON(&f); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		switch {
		case f.Event == "pusher:ping":
			if err := sess.send(frame{Event: "pusher:pong", Data: json.RawMessage(`{}`)}); err != nil {
				return fmt.Errorf("send pong: %w", err)
			}
		case f.Event == "pusher:pong":
		case f.Event == "pusher:error":
			err := fmt.Errorf("server error: %s", decodeData(f.Data))
			c.logger.Warn("realtime server error", "error", err)
			c.hub.Fail(f.Channel, err)
		case f.Event == "pusher_internal:subscription_succeeded":
			c.logger.Debug("subscribed", "channel", f.Channel)
		case strings.HasPrefix(f.Event, "pusher"):
			c.logger.Debug("ignoring protocol event", "event", f.Event)
		case f.Channel != "":
			event := strings.TrimPrefix(strings.TrimPrefix(f.Event, "."), c.cfg.Namespace)
			n := c.hub.Publish(f.Channel, event, decodeData(f.Data))
			c.logger.Debug("event received", "channel", f.Channel, "event", event, "handlers", n)
		}
	}
}

// decodeData unwraps the string-encoded JSON Pusher uses for data fields.
func decodeData(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || raw[0] != '"' {
		return raw
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return raw
	}
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	return raw
}
