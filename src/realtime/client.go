package realtime

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"rl-dashboard/src/logger"
	"rl-dashboard/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Realtime Client (Connection Manager)
//
// Owns the single socket to the backend and multiplexes it across every
// subscriber. State machine: disconnected -> connecting -> connected ->
// disconnected. At most one live socket exists; a connect attempt never starts
// while a healthy connection is up. On closure exactly one reconnect is
// scheduled after a flat delay, and the registry's full channel set is
// replayed once the new socket is up, so subscribers resume without
// re-subscribing themselves.
//
// The client is an owned, explicitly-lifecycled object: construct with
// NewClient, Start it, Stop it. No package-level singleton.
// -----------------------------------------------------------------------------

// TokenFunc reads the auth credential from the session store. It is called
// once per connect attempt; the credential is not re-validated here.
type TokenFunc func() string

// -----------------------------------------------------------------------------

type Client struct {
	Config *models.MConfig
	Logger *logger.Logger

	dialer *websocket.Dialer
	token  TokenFunc

	registry *Registry
	router   *Router

	reconnectDelay time.Duration
	pingInterval   time.Duration

	mu        sync.Mutex
	state     models.ConnState
	conn      *websocket.Conn
	connDone  chan struct{}
	reconnect *time.Timer
	stopped   bool

	// gorilla allows one concurrent writer per connection
	writeMu sync.Mutex

	listenerMu          sync.Mutex
	listenerSeq         int
	connectListeners    map[int]func()
	disconnectListeners map[int]func()

	wg sync.WaitGroup
}

// -----------------------------------------------------------------------------

func NewClient(cfg *models.MConfig, token TokenFunc, log *logger.Logger) *Client {
	c := &Client{
		Config: cfg,
		Logger: log,
		dialer: &websocket.Dialer{
			HandshakeTimeout: time.Duration(cfg.Realtime.HandshakeTimeoutSeconds) * time.Second,
		},
		token:               token,
		registry:            NewRegistry(),
		reconnectDelay:      time.Duration(cfg.Realtime.ReconnectDelaySeconds) * time.Second,
		pingInterval:        time.Duration(cfg.Realtime.PingIntervalSeconds) * time.Second,
		state:               models.StateDisconnected,
		connectListeners:    make(map[int]func()),
		disconnectListeners: make(map[int]func()),
	}

	c.router = NewRouter(c.registry, log.Named(log.Name()+"-Router"))
	c.router.OnKeepalive(func() {
		c.Logger.Debug("Keepalive ack received")
	})

	return c
}

// -----------------------------------------------------------------------------

// Registry exposes the channel registry (read-mostly; used by status surfaces).
func (c *Client) Registry() *Registry {
	return c.registry
}

// -----------------------------------------------------------------------------

// State returns the current connection state.
func (c *Client) State() models.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// -----------------------------------------------------------------------------

// Connected reports whether the socket is currently up.
func (c *Client) Connected() bool {
	return c.State() == models.StateConnected
}

// -----------------------------------------------------------------------------

// Start opens the connection. A dial failure still arms the reconnect timer
// (unless reconnection is disabled), so the caller may treat the error as
// advisory.
func (c *Client) Start() error {
	return c.connect()
}

// -----------------------------------------------------------------------------

// Stop tears the client down: cancels any pending reconnect, closes the
// socket and waits for the read and ping loops to exit. No reconnect attempts
// happen after Stop returns.
func (c *Client) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		c.writeMu.Lock()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		conn.Close()
	}

	c.wg.Wait()
	c.Logger.Info("Realtime client stopped")
}

// -----------------------------------------------------------------------------

// Subscribe registers a handler for a channel and returns its disposer handle.
// Interest is recorded even while disconnected; the first subscriber of a
// channel triggers an outbound subscribe frame when the socket is up.
func (c *Client) Subscribe(channel string, handler MessageHandler) *Subscription {
	sub, first := c.registry.Add(channel, handler)
	sub.release = c.Unsubscribe

	if first {
		c.Send(&models.MControlFrame{Type: models.MsgSubscribe, Channel: channel})
	}

	return sub
}

// -----------------------------------------------------------------------------

// Unsubscribe releases a subscription. Idempotent. The channel's last
// subscriber going away triggers an outbound unsubscribe frame when the
// socket is up.
func (c *Client) Unsubscribe(sub *Subscription) {
	removed, last := c.registry.Remove(sub)
	if removed && last {
		c.Send(&models.MControlFrame{Type: models.MsgUnsubscribe, Channel: sub.channel})
	}
}

// -----------------------------------------------------------------------------

// OnConnect registers a listener notified after each successful connect
// (including reconnects, after the registry replay). Returns a disposer.
func (c *Client) OnConnect(fn func()) func() {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()

	c.listenerSeq++
	id := c.listenerSeq
	c.connectListeners[id] = fn

	return func() {
		c.listenerMu.Lock()
		defer c.listenerMu.Unlock()
		delete(c.connectListeners, id)
	}
}

// -----------------------------------------------------------------------------

// OnDisconnect registers a listener notified after each unplanned closure.
// Returns a disposer.
func (c *Client) OnDisconnect(fn func()) func() {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()

	c.listenerSeq++
	id := c.listenerSeq
	c.disconnectListeners[id] = fn

	return func() {
		c.listenerMu.Lock()
		defer c.listenerMu.Unlock()
		delete(c.disconnectListeners, id)
	}
}

// -----------------------------------------------------------------------------

// Send writes one control frame. While not connected the frame is dropped,
// not queued: the registry replay on reconnect is the recovery mechanism.
func (c *Client) Send(frame *models.MControlFrame) {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == models.StateConnected
	c.mu.Unlock()

	if !connected || conn == nil {
		c.Logger.Debug("Dropping %s frame while disconnected", frame.Type)
		return
	}

	c.writeMu.Lock()
	err := conn.WriteJSON(frame)
	c.writeMu.Unlock()

	if err != nil {
		c.Logger.Warning("Write failed for %s frame: %v", frame.Type, err)
	}
}

// -----------------------------------------------------------------------------

// connect performs one dial attempt and, on success, starts the read and
// keepalive loops for the new socket.
func (c *Client) connect() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return fmt.Errorf("realtime client is stopped")
	}
	if c.state != models.StateDisconnected {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("connect attempted while %s", state)
	}
	c.state = models.StateConnecting
	c.mu.Unlock()

	endpoint, err := c.endpoint()
	if err != nil {
		c.failConnect()
		return fmt.Errorf("invalid realtime url: %w", err)
	}

	conn, _, err := c.dialer.Dial(endpoint, nil)
	if err != nil {
		c.Logger.Warning("Dial failed: %v", err)
		c.failConnect()
		return fmt.Errorf("dial %s: %w", c.Config.Realtime.URL, err)
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		conn.Close()
		return fmt.Errorf("realtime client is stopped")
	}
	done := make(chan struct{})
	c.conn = conn
	c.connDone = done
	c.state = models.StateConnected
	c.mu.Unlock()

	c.Logger.Info("Connected to %s", c.Config.Realtime.URL)

	// Replay the full current channel set so server-side fan-out resumes
	// without the consumers re-issuing subscribe calls.
	for _, channel := range c.registry.Channels() {
		c.Send(&models.MControlFrame{Type: models.MsgSubscribe, Channel: channel})
	}

	c.notify(c.connectSnapshot())

	c.wg.Add(2)
	go c.readLoop(conn, done)
	go c.pingLoop(done)

	return nil
}

// -----------------------------------------------------------------------------

// endpoint builds the dial URL with the session credential attached.
func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.Config.Realtime.URL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	if c.token != nil {
		if token := c.token(); token != "" {
			q.Set("token", token)
		}
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// -----------------------------------------------------------------------------

func (c *Client) failConnect() {
	c.mu.Lock()
	c.state = models.StateDisconnected
	c.mu.Unlock()
	c.scheduleReconnect()
}

// -----------------------------------------------------------------------------

// readLoop consumes the socket until it errors, routing each frame.
func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer c.wg.Done()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(conn, done, err)
			return
		}
		c.router.Route(raw)
	}
}

// -----------------------------------------------------------------------------

// handleClose transitions to disconnected and arms a single reconnect,
// unless the closure came from an explicit Stop.
func (c *Client) handleClose(conn *websocket.Conn, done chan struct{}, cause error) {
	conn.Close()

	c.mu.Lock()
	if c.conn != conn {
		// A newer socket already took over; nothing to do.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.connDone = nil
	c.state = models.StateDisconnected
	stopped := c.stopped
	c.mu.Unlock()

	close(done)

	if stopped {
		return
	}

	c.Logger.Warning("Socket closed: %v", cause)
	c.notify(c.disconnectSnapshot())
	c.scheduleReconnect()
}

// -----------------------------------------------------------------------------

// scheduleReconnect arms exactly one reconnect timer per closure. The delay
// is flat and bounded; chained failures each arm their own single attempt,
// so there is never a reconnect storm.
func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped || !c.Config.Realtime.Reconnect {
		return
	}
	if c.reconnect != nil || c.state != models.StateDisconnected {
		return
	}

	c.Logger.Info("Reconnecting in %v", c.reconnectDelay)
	c.reconnect = time.AfterFunc(c.reconnectDelay, func() {
		c.mu.Lock()
		c.reconnect = nil
		stopped := c.stopped
		c.mu.Unlock()

		if stopped {
			return
		}
		if err := c.connect(); err != nil {
			c.Logger.Warning("Reconnect failed: %v", err)
		}
	})
}

// -----------------------------------------------------------------------------

// pingLoop sends a keepalive ping while the current connection lives. The
// pong reply flows back through the router's liveness hook.
func (c *Client) pingLoop(done chan struct{}) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.Send(&models.MControlFrame{Type: models.MsgPing})
		}
	}
}

// -----------------------------------------------------------------------------

func (c *Client) connectSnapshot() []func() {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()

	fns := make([]func(), 0, len(c.connectListeners))
	for _, fn := range c.connectListeners {
		fns = append(fns, fn)
	}
	return fns
}

// -----------------------------------------------------------------------------

func (c *Client) disconnectSnapshot() []func() {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()

	fns := make([]func(), 0, len(c.disconnectListeners))
	for _, fn := range c.disconnectListeners {
		fns = append(fns, fn)
	}
	return fns
}

// -----------------------------------------------------------------------------

func (c *Client) notify(listeners []func()) {
	for _, fn := range listeners {
		fn()
	}
}
