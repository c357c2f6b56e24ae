package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Option configures a Session.
type Option func(*Session)

// WithStateHook registers a callback invoked on every state transition.
// The callback runs with the session lock held and must not call back into the Session.
func WithStateHook(fn func(State)) Option {
	return func(s *Session) {
		s.onState = fn
	}
}

// WithDialer sets a custom websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(s *Session) {
		s.dialer = d
	}
}

// link is one websocket connection and the goroutines serving it.
type link struct {
	conn *websocket.Conn
	stop chan struct{} // closed by the session to stop the loops
	dead chan struct{} // closed by readLoop on exit
	err  error         // read error, valid after dead is closed
}

// Session is a stateful connection to the market-data gateway.
type Session struct {
	cfg     Config
	logger  *slog.Logger
	dialer  *websocket.Dialer
	onState func(State)

	mu      sync.Mutex
	state   State
	link    *link
	lastErr error

	writeMu sync.Mutex

	routeMu sync.Mutex
	pending map[int64]chan Message
	subs    map[int64]*Subscription

	cmdID atomic.Int64
}

// NewSession creates a disconnected Session.
func NewSession(cfg Config, logger *slog.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaults.ConnectTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaults.BufferSize
	}

	s := &Session{
		cfg:     cfg,
		logger:  logger,
		dialer:  &websocket.Dialer{HandshakeTimeout: cfg.ConnectTimeout},
		pending: make(map[int64]chan Message),
		subs:    make(map[int64]*Subscription),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect opens the gateway connection and performs the hello handshake.
// It is a no-op when already connected. On failure the session stays disconnected
// and the cause is available from LastError.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateConnected {
		return nil
	}

	s.setStateLocked(StateConnecting)
	start := time.Now()

	if err := s.openLocked(ctx); err != nil {
		s.lastErr = err
		s.setStateLocked(StateDisconnected)
		s.logger.Warn("gateway connect failed",
			"url", s.cfg.URL(),
			"client_id", s.cfg.ClientID,
			"error", err,
		)
		return err
	}

	s.lastErr = nil
	s.setStateLocked(StateConnected)
	s.logger.Info("connected to gateway",
		"url", s.cfg.URL(),
		"client_id", s.cfg.ClientID,
		"duration", time.Since(start),
	)
	return nil
}

// openLocked dials and handshakes. On error no connection is left open.
func (s *Session) openLocked(ctx context.Context) error {
	if s.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ConnectTimeout)
		defer cancel()
	}

	conn, _, err := s.dialer.DialContext(ctx, s.cfg.URL(), nil)
	if err != nil {
		return &SessionError{Op: "dial", Err: err}
	}

	l := &link{
		conn: conn,
		stop: make(chan struct{}),
		dead: make(chan struct{}),
	}
	s.link = l
	go s.readLoop(l)

	resp, err := s.roundTrip(ctx, l, CmdHello, HelloParams{
		ClientID:   s.cfg.ClientID,
		ClientName: s.cfg.ClientName,
	})
	if err != nil {
		s.closeLinkLocked()
		return &SessionError{Op: "hello", Err: err}
	}

	var hello HelloMsg
	if len(resp.Msg) > 0 {
		if err := json.Unmarshal(resp.Msg, &hello); err != nil {
			s.logger.Debug("undecodable hello payload", "error", err)
		}
	}
	s.logger.Debug("gateway hello acknowledged",
		"server_version", hello.ServerVersion,
		"conn_time", hello.ConnTime,
	)

	if s.cfg.PingInterval > 0 {
		go s.keepalive(l)
	}
	return nil
}

// Disconnect closes the gateway connection. It is a no-op when already disconnected.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.link == nil {
		s.setStateLocked(StateDisconnected)
		return nil
	}

	err := s.closeLinkLocked()
	s.setStateLocked(StateDisconnected)
	s.logger.Info("disconnected from gateway", "url", s.cfg.URL())
	return err
}

// IsConnected reports whether the session has a live, handshaken connection.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateConnected
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError returns the cause of the last failed connect or dropped connection.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Request sends a command and waits for its response frame.
// Error frames are returned as *GatewayError.
func (s *Session) Request(ctx context.Context, cmd string, params any) (Message, error) {
	l, err := s.activeLink()
	if err != nil {
		return Message{}, err
	}
	return s.roundTrip(ctx, l, cmd, params)
}

func (s *Session) activeLink() (*link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected || s.link == nil {
		return nil, ErrNotConnected
	}
	return s.link, nil
}

// roundTrip sends a command on l and waits for the response with the same id.
func (s *Session) roundTrip(ctx context.Context, l *link, cmd string, params any) (Message, error) {
	id := s.cmdID.Add(1)
	respCh := make(chan Message, 1)

	s.routeMu.Lock()
	s.pending[id] = respCh
	s.routeMu.Unlock()

	defer func() {
		s.routeMu.Lock()
		delete(s.pending, id)
		s.routeMu.Unlock()
	}()

	if err := s.send(l, Command{ID: id, Cmd: cmd, Params: params}); err != nil {
		return Message{}, fmt.Errorf("send %s: %w", cmd, err)
	}

	timer := time.NewTimer(s.cfg.RequestTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case <-timer.C:
		return Message{}, fmt.Errorf("%s: %w", cmd, ErrTimeout)
	case <-l.dead:
		return Message{}, fmt.Errorf("%s: %w", cmd, ErrConnectionLost)
	case resp := <-respCh:
		if err := resp.Err(); err != nil {
			return Message{}, err
		}
		return resp, nil
	}
}

// subscribe registers a streaming request and sends it. Frames with the request id
// are delivered to the returned Subscription until it is cancelled.
func (s *Session) subscribe(cmd, cancelCmd string, params any) (*Subscription, error) {
	l, err := s.activeLink()
	if err != nil {
		return nil, err
	}

	id := s.cmdID.Add(1)
	sub := &Subscription{
		id:        id,
		cancelCmd: cancelCmd,
		events:    make(chan Message, s.cfg.BufferSize),
		session:   s,
		link:      l,
	}

	s.routeMu.Lock()
	s.subs[id] = sub
	s.routeMu.Unlock()

	if err := s.send(l, Command{ID: id, Cmd: cmd, Params: params}); err != nil {
		s.unsubscribe(id)
		return nil, fmt.Errorf("send %s: %w", cmd, err)
	}
	return sub, nil
}

func (s *Session) unsubscribe(id int64) {
	s.routeMu.Lock()
	delete(s.subs, id)
	s.routeMu.Unlock()
}

// send writes a command frame.
func (s *Session) send(l *link, cmd Command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	l.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	return l.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop reads frames and routes them to waiting requests and subscriptions.
func (s *Session) readLoop(l *link) {
	defer func() {
		close(l.dead)
		s.dropped(l)
	}()

	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			select {
			case <-l.stop:
			default:
				l.err = err
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("undecodable gateway frame", "error", err, "size", len(data))
			continue
		}
		s.route(msg)
	}
}

// route delivers a frame to its subscription or pending request.
func (s *Session) route(msg Message) {
	s.routeMu.Lock()
	defer s.routeMu.Unlock()

	if sub, ok := s.subs[msg.ID]; ok {
		select {
		case sub.events <- msg:
		default:
			s.logger.Warn("subscription buffer full, dropping frame",
				"req_id", msg.ID,
				"type", msg.Type,
			)
		}
		return
	}

	if ch, ok := s.pending[msg.ID]; ok {
		delete(s.pending, msg.ID)
		select {
		case ch <- msg:
		default:
		}
		return
	}

	if msg.Type == TypeNotice || msg.Type == TypeError {
		s.logger.Debug("gateway notice", "id", msg.ID, "type", msg.Type, "msg", string(msg.Msg))
		return
	}
	s.logger.Debug("unrouted gateway frame", "id", msg.ID, "type", msg.Type)
}

// dropped handles a connection whose read loop has exited.
func (s *Session) dropped(l *link) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.link != l {
		return
	}

	s.link = nil
	l.conn.Close()
	if l.err != nil {
		s.lastErr = &SessionError{Op: "read", Err: l.err}
		s.logger.Warn("gateway connection lost", "error", l.err)
	}
	s.setStateLocked(StateDisconnected)
}

// keepalive sends periodic pings until the link stops.
func (s *Session) keepalive(l *link) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-l.dead:
			return
		case <-ticker.C:
			deadline := time.Now().Add(s.cfg.WriteTimeout)
			if err := l.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				s.logger.Debug("failed to send ping", "error", err)
			}
		}
	}
}

// closeLinkLocked stops and closes the current link.
func (s *Session) closeLinkLocked() error {
	l := s.link
	s.link = nil
	close(l.stop)

	l.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return l.conn.Close()
}

func (s *Session) setStateLocked(state State) {
	if s.state == state {
		return
	}
	s.state = state
	if s.onState != nil {
		s.onState(state)
	}
}
