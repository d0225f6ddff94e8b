package driftchat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/driftchat/drift-sdk-go/driftchat/internal"
	"github.com/driftchat/drift-sdk-go/driftchat/internal/stomp"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// frameTransport abstracts the framed socket so tests can substitute a fake.
// internal.Conn is the production implementation.
type frameTransport interface {
	ReadFrame(ctx context.Context) (*stomp.Frame, error)
	WriteFrame(ctx context.Context, f *stomp.Frame) error
	Close(code websocket.StatusCode, reason string) error
}

type dialFunc func(ctx context.Context) (frameTransport, error)

// RealtimeChatConnection owns one STOMP-over-WebSocket session for the
// active chat screen. Exactly one instance is alive per open screen; the
// state machine guarantees no two concurrent open sessions for the same room
// from one client.
//
// Transport-level failures never escape this type: they surface only as
// state transitions (Error, then Connecting on retry or Closed on teardown).
// A session invalidation force-closes the connection from any state.
type RealtimeChatConnection struct {
	cfg        Config
	session    *SessionStore
	stream     *MessageStream
	logger     Logger
	dispatcher Dispatcher
	dial       dialFunc

	stateAtomic atomic.Int32

	mu        sync.Mutex
	state     ConnectionState
	roomID    string
	subID     string
	gen       uint64
	transport frameTransport
	runCtx    context.Context
	cancel    context.CancelFunc
	reconnect *time.Timer

	writeMu sync.Mutex
}

// NewRealtimeChatConnection wires a connection to its session store and
// message stream. The connection registers itself for session invalidation:
// clearing the store force-closes any open socket.
func NewRealtimeChatConnection(cfg Config, session *SessionStore, stream *MessageStream) *RealtimeChatConnection {
	c := &RealtimeChatConnection{
		cfg:     cfg,
		session: session,
		stream:  stream,
		logger:  noopLogger{},
		state:   StateIdle,
	}
	c.dial = c.dialWebSocket
	session.OnInvalidate(c.forceClose)
	return c
}

// SetLogger overrides the logger (optional).
func (c *RealtimeChatConnection) SetLogger(l Logger) {
	if l != nil {
		c.logger = l
	}
}

// OnMessage registers a callback for messages that were appended to the
// stream (duplicates do not fire it).
func (c *RealtimeChatConnection) OnMessage(fn func(ChatMessage)) { c.dispatcher.SetOnMessage(fn) }

// OnStateChange registers a callback for state transitions.
func (c *RealtimeChatConnection) OnStateChange(fn func(StateEvent)) { c.dispatcher.SetOnState(fn) }

// OnError registers a callback for server error frames and dropped frames.
func (c *RealtimeChatConnection) OnError(fn func(error)) { c.dispatcher.SetOnError(fn) }

// State returns the current connection state.
func (c *RealtimeChatConnection) State() ConnectionState {
	return ConnectionState(c.stateAtomic.Load())
}

// Room returns the room this connection is bound to.
func (c *RealtimeChatConnection) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

// Connect starts an asynchronous connect attempt for roomID. It fails fast
// with ErrorUnauthenticated when no credential is present and with
// ErrorAlreadyConnected when a session is already in flight; otherwise it
// transitions to Connecting and returns immediately. Progress is observable
// via State and OnStateChange.
func (c *RealtimeChatConnection) Connect(roomID string) error {
	token, ok := c.session.Get()
	if !ok {
		return NewError(ErrorUnauthenticated, "no credential present, log in before connecting")
	}

	c.mu.Lock()
	switch c.state {
	case StateIdle, StateClosed:
	default:
		c.mu.Unlock()
		return NewError(ErrorAlreadyConnected, fmt.Sprintf("connection is %s", c.State()))
	}
	c.setStateLocked(StateConnecting, nil)
	c.roomID = roomID
	c.gen++
	gen := c.gen
	runCtx, cancel := context.WithCancel(context.Background())
	c.runCtx = runCtx
	c.cancel = cancel
	c.mu.Unlock()

	go c.attempt(runCtx, gen, roomID, token)
	return nil
}

// Teardown closes the connection deliberately: Closing then Closed from any
// state. It cancels an in-flight connect attempt and any pending reconnect
// timer, and it is idempotent.
func (c *RealtimeChatConnection) Teardown() {
	c.mu.Lock()
	if c.state == StateClosed || c.state == StateClosing {
		c.mu.Unlock()
		return
	}
	c.gen++ // stale-completion guard: in-flight attempts are now orphaned
	c.stopRetryLocked()
	tr := c.transport
	c.transport = nil
	subID := c.subID
	c.setStateLocked(StateClosing, nil)
	c.mu.Unlock()

	if tr != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		unsub := stomp.NewFrame(stomp.CommandUnsubscribe)
		unsub.Set("id", subID)
		c.writeMu.Lock()
		_ = tr.WriteFrame(ctx, unsub)
		_ = tr.WriteFrame(ctx, stomp.NewFrame(stomp.CommandDisconnect))
		c.writeMu.Unlock()
		cancel()
		_ = tr.Close(websocket.StatusNormalClosure, "teardown")
	}

	c.mu.Lock()
	c.setStateLocked(StateClosed, nil)
	c.mu.Unlock()
}

// Publish sends body to the connection's room. Allowed only in Open; the
// bearer credential is read fresh from the session store at send time. The
// message is not locally echoed: the server delivers it back on the
// subscription, keeping a single source of truth for ordering. Outside Open
// the call fails with ErrorNotConnected and nothing is queued.
func (c *RealtimeChatConnection) Publish(ctx context.Context, body string) error {
	c.mu.Lock()
	if c.state != StateOpen {
		state := c.state
		c.mu.Unlock()
		return NewError(ErrorNotConnected, fmt.Sprintf("publish requires an open connection, state is %s", state))
	}
	tr := c.transport
	roomID := c.roomID
	gen := c.gen
	c.mu.Unlock()

	token, ok := c.session.Get()
	if !ok {
		return NewError(ErrorUnauthenticated, "credential vanished before publish")
	}

	f := stomp.NewFrame(stomp.CommandSend)
	f.Set("destination", "/app/rooms/"+roomID)
	f.Set("content-type", "application/json")
	f.Set("authorization", "Bearer "+token)
	payload, err := json.Marshal(sendPayload{Body: body})
	if err != nil {
		return WrapError(ErrorInvalidConfig, "encode publish payload", err)
	}
	f.Body = payload

	c.writeMu.Lock()
	err = tr.WriteFrame(ctx, f)
	c.writeMu.Unlock()
	if err != nil {
		c.transportError(gen, err)
		return WrapError(ErrorTransport, "publish write failed", err)
	}
	return nil
}

// dialWebSocket is the production dialer.
func (c *RealtimeChatConnection) dialWebSocket(ctx context.Context) (frameTransport, error) {
	dialCtx := ctx
	if c.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
		defer cancel()
	}
	ws, _, err := websocket.Dial(dialCtx, c.cfg.SocketURL, nil)
	if err != nil {
		return nil, err
	}
	return internal.NewConn(ws, 2*c.cfg.HeartbeatInterval, c.cfg.WriteTimeout), nil
}

// attempt dials, performs the CONNECT handshake, promotes to Open and
// subscribes. A completion whose generation no longer matches (teardown or a
// newer attempt won) is discarded and its socket closed.
func (c *RealtimeChatConnection) attempt(ctx context.Context, gen uint64, roomID, token string) {
	tr, err := c.dial(ctx)
	if err != nil {
		c.attemptFailed(gen, err)
		return
	}

	connect := stomp.NewFrame(stomp.CommandConnect)
	connect.Set("accept-version", "1.2")
	connect.Set("host", hostOf(c.cfg.SocketURL))
	hb := c.cfg.HeartbeatInterval.Milliseconds()
	connect.Set("heart-beat", fmt.Sprintf("%d,%d", hb, hb))
	connect.Set("authorization", "Bearer "+token)
	if err := tr.WriteFrame(ctx, connect); err != nil {
		_ = tr.Close(websocket.StatusInternalError, "handshake write failed")
		c.attemptFailed(gen, err)
		return
	}

	if _, err := c.readHandshakeReply(ctx, tr); err != nil {
		_ = tr.Close(websocket.StatusInternalError, "handshake failed")
		c.attemptFailed(gen, err)
		return
	}

	c.mu.Lock()
	if c.gen != gen || c.state != StateConnecting {
		c.mu.Unlock()
		_ = tr.Close(websocket.StatusNormalClosure, "stale connect discarded")
		return
	}
	c.transport = tr
	c.subID = uuid.NewString()
	subID := c.subID
	c.setStateLocked(StateOpen, nil)
	c.mu.Unlock()

	// The subscription carries the current credential, not the connect-time
	// one; a rotation between handshake and subscribe is still honored.
	subToken, ok := c.session.Get()
	if !ok {
		c.forceClose()
		return
	}
	sub := stomp.NewFrame(stomp.CommandSubscribe)
	sub.Set("id", subID)
	sub.Set("destination", "/topic/"+roomID)
	sub.Set("ack", "auto")
	sub.Set("authorization", "Bearer "+subToken)
	c.writeMu.Lock()
	err = tr.WriteFrame(ctx, sub)
	c.writeMu.Unlock()
	if err != nil {
		c.transportError(gen, err)
		return
	}

	c.logger.Info("connection open", map[string]any{"room": roomID})
	go c.readLoop(ctx, gen, tr)
	go c.heartbeatLoop(ctx, gen, tr)
}

// readHandshakeReply waits for CONNECTED, skipping heartbeats.
func (c *RealtimeChatConnection) readHandshakeReply(ctx context.Context, tr frameTransport) (*stomp.Frame, error) {
	for {
		f, err := tr.ReadFrame(ctx)
		if err != nil {
			return nil, err
		}
		if f.IsHeartbeat() {
			continue
		}
		if f.Command == stomp.CommandError {
			return nil, NewError(ErrorUnknown, "server rejected handshake: "+string(f.Body))
		}
		if f.Command != stomp.CommandConnected {
			return nil, fmt.Errorf("unexpected handshake reply %s", f.Command)
		}
		return f, nil
	}
}

// readLoop serializes all incoming-frame handling: it is the only stream
// appender, so frames are applied strictly in arrival order.
func (c *RealtimeChatConnection) readLoop(ctx context.Context, gen uint64, tr frameTransport) {
	for {
		f, err := tr.ReadFrame(ctx)
		if err != nil {
			var pe *stomp.ParseError
			if errors.As(err, &pe) {
				c.logger.Warn("dropping malformed frame", map[string]any{"reason": pe.Reason})
				c.dispatcher.fireError(WrapError(ErrorParse, "frame dropped", err))
				continue
			}
			if isExpectedDisconnect(ctx, err) {
				return
			}
			c.transportError(gen, err)
			return
		}
		switch f.Command {
		case "":
			// heartbeat; the read itself refreshed the liveness deadline
		case stomp.CommandMessage:
			msg, err := parseMessageFrame(f)
			if err != nil {
				c.logger.Warn("dropping unparseable message", map[string]any{"error": err.Error()})
				c.dispatcher.fireError(err)
				continue
			}
			if c.stream.Append(msg) {
				c.dispatcher.fireMessage(msg)
			}
		case stomp.CommandError:
			c.logger.Warn("server error frame", map[string]any{"body": string(f.Body)})
			c.dispatcher.fireError(NewError(ErrorUnknown, string(f.Body)))
			c.transportError(gen, fmt.Errorf("server error frame: %s", f.Body))
			return
		case stomp.CommandReceipt:
			// no receipts requested; tolerated
		default:
			c.logger.Warn("unexpected frame", map[string]any{"command": f.Command})
		}
	}
}

// heartbeatLoop sends a heartbeat frame every interval. Missing inbound
// heartbeats surface as read timeouts in readLoop.
func (c *RealtimeChatConnection) heartbeatLoop(ctx context.Context, gen uint64, tr frameTransport) {
	interval := c.cfg.HeartbeatInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			live := c.gen == gen && c.state == StateOpen
			c.mu.Unlock()
			if !live {
				return
			}
			c.writeMu.Lock()
			err := tr.WriteFrame(ctx, stomp.Heartbeat())
			c.writeMu.Unlock()
			if err != nil {
				c.transportError(gen, err)
				return
			}
		}
	}
}

// attemptFailed moves a failed connect attempt to Error and schedules the
// fixed-backoff retry.
func (c *RealtimeChatConnection) attemptFailed(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.state != StateConnecting {
		return
	}
	c.logger.Warn("connect attempt failed", map[string]any{"room": c.roomID, "error": err.Error()})
	c.setStateLocked(StateError, err)
	c.scheduleRetryLocked(gen)
}

// transportError handles a socket failure while Open: close the socket, move
// to Error, schedule the retry. The first failure for a generation wins;
// later reports from sibling goroutines are no-ops.
func (c *RealtimeChatConnection) transportError(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.state != StateOpen {
		return
	}
	c.logger.Warn("transport error", map[string]any{"room": c.roomID, "error": err.Error()})
	if c.transport != nil {
		_ = c.transport.Close(websocket.StatusGoingAway, "transport error")
		c.transport = nil
	}
	c.setStateLocked(StateError, err)
	c.scheduleRetryLocked(gen)
}

func (c *RealtimeChatConnection) scheduleRetryLocked(prev uint64) {
	backoff := c.cfg.ReconnectBackoff
	if backoff <= 0 {
		backoff = DefaultConfig().ReconnectBackoff
	}
	c.reconnect = time.AfterFunc(backoff, func() { c.retry(prev) })
}

func (c *RealtimeChatConnection) retry(prev uint64) {
	token, ok := c.session.Get()

	c.mu.Lock()
	if c.gen != prev || c.state != StateError {
		c.mu.Unlock()
		return
	}
	if !ok {
		c.mu.Unlock()
		c.forceClose()
		return
	}
	c.gen++
	gen := c.gen
	roomID := c.roomID
	runCtx := c.runCtx
	c.setStateLocked(StateConnecting, nil)
	c.mu.Unlock()

	go c.attempt(runCtx, gen, roomID, token)
}

// forceClose is the session-invalidation path: straight to Closed from any
// state, skipping the Closing courtesy frames.
func (c *RealtimeChatConnection) forceClose() {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.stopRetryLocked()
	tr := c.transport
	c.transport = nil
	c.setStateLocked(StateClosed, nil)
	c.mu.Unlock()

	if tr != nil {
		_ = tr.Close(websocket.StatusNormalClosure, "session invalidated")
	}
}

func (c *RealtimeChatConnection) stopRetryLocked() {
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// setStateLocked applies a transition and fires the state callback. Callers
// hold c.mu; the transition table is the single source of legality.
func (c *RealtimeChatConnection) setStateLocked(to ConnectionState, cause error) {
	from := c.state
	if from == to {
		return
	}
	if !canTransition(from, to) {
		c.logger.Error("illegal state transition", map[string]any{"from": from.String(), "to": to.String()})
	}
	c.state = to
	c.stateAtomic.Store(int32(to))
	c.logger.Debug("state change", map[string]any{"from": from.String(), "to": to.String()})
	c.dispatcher.fireState(StateEvent{Old: from, New: to, Err: cause})
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}

func isExpectedDisconnect(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	default:
		return false
	}
}
