package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stive2025/collapi-sub001/config"
)

type Config struct {
	URL    string
	Header http.Header
	// AuthToken, when set, is sent as {"type":"auth","token":...} right after the handshake.
	AuthToken   string
	Dialer      Dialer
	Logger      *logrus.Logger
	EventBuffer int
	// Now is the clock stamped on events; time.Now when nil.
	Now func() time.Time
}

// Listener holds one connection to the feed. It does not reconnect on its own.
type Listener struct {
	cfg    Config
	logger *logrus.Entry

	state atomic.Int32

	mu      sync.Mutex // guards conn, loop fields and lastErr
	conn    Conn
	lastErr error
	// loopCancel is set while a receive loop owns conn; loopGen identifies the latest Listen.
	loopCancel context.CancelFunc
	loopGen    uint64

	writeMu sync.Mutex // serializes frames written to conn
}

func NewListener(cfg Config) *Listener {
	if cfg.Dialer == nil {
		cfg.Dialer = WebsocketDialer{}
	}
	if cfg.Logger == nil {
		cfg.Logger = config.GetLogger()
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Listener{
		cfg:    cfg,
		logger: cfg.Logger.WithFields(logrus.Fields{"module": "FeedListener", "url": cfg.URL}),
	}
}

func (l *Listener) State() State {
	return State(l.state.Load())
}

// Connect performs the handshake. On failure the listener stays Disconnected and a *ConnectionError is returned.
func (l *Listener) Connect(ctx context.Context) error {
	if !l.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return ErrAlreadyConnected
	}
	conn, err := l.cfg.Dialer.Dial(ctx, l.cfg.URL, l.cfg.Header)
	if err != nil {
		l.state.Store(int32(StateDisconnected))
		return &ConnectionError{URL: l.cfg.URL, Err: err}
	}
	l.mu.Lock()
	l.conn = conn
	l.lastErr = nil
	l.mu.Unlock()
	l.state.Store(int32(StateConnected))

	if l.cfg.AuthToken != "" {
		if err := l.Send(map[string]any{"type": "auth", "token": l.cfg.AuthToken}); err != nil {
			l.Disconnect()
			return &ConnectionError{URL: l.cfg.URL, Err: err}
		}
	}
	l.logger.Info("feed connected")
	return nil
}

// Listen starts the receive loop and returns the stream of decoded events.
// The channel is closed when timeout elapses (0 means no timeout), ctx is cancelled,
// the connection drops or Disconnect is called; Err then reports why.
// Disconnect always runs before the channel is closed.
func (l *Listener) Listen(ctx context.Context, timeout time.Duration) (<-chan Event, error) {
	var listenCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		listenCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		listenCtx, cancel = context.WithCancel(ctx)
	}

	l.mu.Lock()
	conn := l.conn
	if conn == nil || l.State() != StateConnected {
		l.mu.Unlock()
		cancel()
		return nil, ErrNotConnected
	}
	if l.loopCancel != nil {
		l.mu.Unlock()
		cancel()
		return nil, ErrListening
	}
	l.loopGen++
	gen := l.loopGen
	l.loopCancel = cancel
	l.lastErr = nil
	l.mu.Unlock()

	events := make(chan Event, l.cfg.EventBuffer)
	done := make(chan struct{})

	// a blocked ReadMessage only returns once the connection is closed
	go func() {
		select {
		case <-listenCtx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	go func() {
		var exitErr error
		defer func() {
			close(done)
			cancel()
			// a newer session may own l.conn by now; only this loop's connection is torn down
			var own Conn
			l.mu.Lock()
			if l.conn == conn {
				l.conn = nil
				l.state.Store(int32(StateDisconnected))
				own = conn
			}
			if l.loopGen == gen {
				l.loopCancel = nil
				l.lastErr = exitErr
			}
			l.mu.Unlock()
			if own != nil {
				l.closeConn(own)
			}
			close(events)
		}()

		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				exitErr = l.exitReason(ctx, listenCtx, conn, err)
				if exitErr != ErrListenTimeout && exitErr != ErrClosed && exitErr != ctx.Err() {
					l.logger.WithError(err).Error("feed connection dropped")
				}
				return
			}
			ev := decodeFrame(frame, l.cfg.Now())
			l.dispatch(conn, ev)
			if listenCtx.Err() != nil {
				exitErr = l.exitReason(ctx, listenCtx, conn, listenCtx.Err())
				return
			}
			select {
			case events <- ev:
			case <-listenCtx.Done():
				exitErr = l.exitReason(ctx, listenCtx, conn, listenCtx.Err())
				return
			}
		}
	}()
	return events, nil
}

func (l *Listener) exitReason(parent, listenCtx context.Context, conn Conn, readErr error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	l.mu.Lock()
	detached := l.conn != conn
	l.mu.Unlock()
	switch {
	case detached:
		return ErrClosed
	case listenCtx.Err() != nil:
		return ErrListenTimeout
	}
	return fmt.Errorf("feed: read: %w", readErr)
}

// dispatch applies the automatic reply for the message kind, then logs it.
// Replies go to conn, the connection the frame arrived on.
func (l *Listener) dispatch(conn Conn, ev Event) {
	entry := l.logger.WithField("kind", ev.Kind.String())
	switch ev.Kind {
	case KindPing:
		if err := l.write(conn, map[string]any{"type": "pong"}); err != nil {
			entry.WithError(err).Error("pong failed")
		}
	case KindNotification:
		entry.WithField("message", ev.Field("message")).Info("notification received")
	case KindUpdate:
		entry.Info("update received")
	case KindAuthSuccess:
		entry.Info("feed authenticated")
	case KindAuthFailed:
		entry.WithField("message", ev.Field("message")).Warn("feed authentication failed")
	default:
		if ev.IsRaw {
			entry.WithField("raw", ev.Raw).Debug("raw text frame")
		} else {
			entry.WithField("type", ev.Type).Debug("unknown message type")
		}
	}
}

// Err reports why the most recent Listen ended; valid once its channel is closed.
func (l *Listener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// Send writes msg as one JSON text frame. Failures are returned, never retried.
// Safe to call from any goroutine, including while ranging over Listen's events.
func (l *Listener) Send(msg map[string]any) error {
	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()
	if conn == nil || l.State() != StateConnected {
		return ErrNotConnected
	}
	return l.write(conn, msg)
}

func (l *Listener) write(conn Conn, msg map[string]any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("feed: encode: %w", err)
	}
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("feed: send: %w", err)
	}
	return nil
}

// Disconnect closes the connection and stops a running receive loop, even one
// blocked on a consumer that stopped reading. It is idempotent. The listener can
// Connect again right away.
func (l *Listener) Disconnect() {
	l.mu.Lock()
	conn := l.conn
	l.conn = nil
	l.state.Store(int32(StateDisconnected))
	cancel := l.loopCancel
	l.loopCancel = nil
	l.mu.Unlock()
	if conn != nil {
		l.closeConn(conn)
	}
	if cancel != nil {
		cancel()
	}
}

func (l *Listener) closeConn(conn Conn) {
	l.writeMu.Lock()
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	l.writeMu.Unlock()
	_ = conn.Close()
	l.logger.Info("feed disconnected")
}
