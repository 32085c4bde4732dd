package gateway

import (
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lumachat/chatcore/internal/protocol"
)

const (
	DefaultReconnectDelay = 3 * time.Second
	MaxReconnectAttempts  = 5

	writeWait = 10 * time.Second
)

// Credentials supplies the bearer token used at connect time. The state store
// satisfies it.
type Credentials interface {
	Token() string
	Authenticated() bool
}

// Handler receives one decoded inbound event.
type Handler = func(protocol.Event)

type handlerEntry struct {
	id int
	fn Handler
}

// Gateway owns the single persistent socket to the chat server. It dispatches
// inbound frames by type to registered handlers and reconnects after
// unexpected closes with a fixed delay, up to MaxReconnectAttempts. A close
// carrying an auth-rejection or abnormal code triggers the session-expired
// callback instead of a reconnect loop.
type Gateway struct {
	url            string
	creds          Credentials
	log            zerolog.Logger
	reconnectDelay time.Duration
	maxAttempts    int

	mu         sync.Mutex
	conn       *websocket.Conn
	dialing    bool
	retryCount int
	nextID     int
	handlers   map[protocol.EventType][]handlerEntry
	onExpired  func()
}

type Option func(*Gateway)

// WithReconnectDelay overrides the fixed delay between reconnect attempts.
func WithReconnectDelay(d time.Duration) Option {
	return func(g *Gateway) { g.reconnectDelay = d }
}

func New(socketURL string, creds Credentials, log zerolog.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		url:            socketURL,
		creds:          creds,
		log:            log,
		reconnectDelay: DefaultReconnectDelay,
		maxAttempts:    MaxReconnectAttempts,
		handlers:       make(map[protocol.EventType][]handlerEntry),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// On registers a handler for one inbound event type. Handlers for the same
// type run in registration order on the read goroutine. The returned handle
// unsubscribes; calling it twice is a no-op.
func (g *Gateway) On(eventType protocol.EventType, fn Handler) func() {
	g.mu.Lock()
	g.nextID++
	id := g.nextID
	g.handlers[eventType] = append(g.handlers[eventType], handlerEntry{id: id, fn: fn})
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		entries := g.handlers[eventType]
		for i := range entries {
			if entries[i].id == id {
				g.handlers[eventType] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}
}

// OnSessionExpired registers the teardown callback invoked when the server
// closes the socket with an auth-rejection or abnormal code.
func (g *Gateway) OnSessionExpired(fn func()) {
	g.mu.Lock()
	g.onExpired = fn
	g.mu.Unlock()
}

// Connect opens the socket, authenticating with the current token as a query
// parameter. It is a no-op while a connection is open or a dial is in flight,
// so an explicit call racing a reconnect timer yields a single connection. It
// logs without failing when no token is present.
func (g *Gateway) Connect() error {
	g.mu.Lock()
	if g.conn != nil || g.dialing {
		g.mu.Unlock()
		g.log.Debug().Msg("socket already connected")
		return nil
	}
	token := g.creds.Token()
	if token == "" {
		g.mu.Unlock()
		g.log.Error().Msg("cannot connect socket: no auth token")
		return nil
	}
	g.dialing = true
	g.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.Dial(g.url+"?token="+url.QueryEscape(token), nil)
	if err != nil {
		g.mu.Lock()
		g.dialing = false
		g.mu.Unlock()
		g.log.Warn().Err(err).Msg("socket dial failed")
		g.scheduleReconnect()
		return fmt.Errorf("dial chat socket: %w", err)
	}

	g.mu.Lock()
	g.conn = conn
	g.dialing = false
	g.retryCount = 0
	g.mu.Unlock()

	g.log.Info().Str("url", g.url).Msg("socket connected")
	go g.readLoop(conn)
	return nil
}

// Disconnect closes the socket and pins the retry counter at its cap so no
// automatic reconnect fires until Connect is called again explicitly.
func (g *Gateway) Disconnect() {
	g.mu.Lock()
	conn := g.conn
	g.conn = nil
	g.retryCount = g.maxAttempts
	g.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(writeWait)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		conn.Close()
		g.log.Info().Msg("socket disconnected")
	}
}

func (g *Gateway) IsConnected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.conn != nil
}

// Send serializes and transmits an outbound command. Commands are dropped with
// a diagnostic when the socket is not open; callers must not queue.
func (g *Gateway) Send(cmd protocol.Command) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.conn == nil {
		g.log.Warn().Str("command", string(cmd.CommandType())).Msg("dropping command: socket not open")
		return
	}

	g.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := g.conn.WriteJSON(cmd); err != nil {
		g.log.Warn().Err(err).Str("command", string(cmd.CommandType())).Msg("socket write failed")
	}
}

func (g *Gateway) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			g.handleClose(conn, err)
			return
		}
		g.dispatch(data)
	}
}

func (g *Gateway) handleClose(conn *websocket.Conn, err error) {
	g.mu.Lock()
	active := g.conn == conn
	if active {
		g.conn = nil
	}
	onExpired := g.onExpired
	g.mu.Unlock()

	conn.Close()
	if !active {
		// Closed by Disconnect; nothing to do.
		return
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && sessionFatal(closeErr.Code) {
		g.log.Warn().Int("code", closeErr.Code).Msg("socket closed with session-fatal code")
		if onExpired != nil {
			onExpired()
		}
		return
	}

	g.log.Warn().Err(err).Msg("socket closed unexpectedly")
	g.scheduleReconnect()
}

// sessionFatal reports close codes for which reconnecting with the same token
// is certain to fail identically.
func sessionFatal(code int) bool {
	return code == websocket.ClosePolicyViolation || code == websocket.CloseAbnormalClosure
}

func (g *Gateway) scheduleReconnect() {
	g.mu.Lock()
	if g.retryCount >= g.maxAttempts {
		g.mu.Unlock()
		g.log.Warn().Msg("max reconnect attempts reached")
		return
	}
	g.retryCount++
	attempt := g.retryCount
	g.mu.Unlock()

	g.log.Info().Int("attempt", attempt).Int("max", g.maxAttempts).Msg("scheduling reconnect")

	time.AfterFunc(g.reconnectDelay, func() {
		if !g.creds.Authenticated() {
			g.log.Debug().Msg("skipping reconnect: session no longer authenticated")
			return
		}
		g.Connect()
	})
}

func (g *Gateway) dispatch(data []byte) {
	evt, err := protocol.DecodeEvent(data)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownEventType) {
			g.log.Debug().Err(err).Msg("ignoring unknown event")
		} else {
			g.log.Warn().Err(err).Msg("failed to decode event")
		}
		return
	}

	g.mu.Lock()
	entries := append([]handlerEntry(nil), g.handlers[evt.EventType()]...)
	g.mu.Unlock()

	for _, entry := range entries {
		entry.fn(evt)
	}
}
