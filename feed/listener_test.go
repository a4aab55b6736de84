package feed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type written struct {
	kind int
	data []byte
}

type fakeConn struct {
	incoming  chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	writes   []written
	writeErr error
}

func newFakeConn() *fakeConn {
	return &fakeConn{incoming: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case f, ok := <-c.incoming:
		if !ok {
			return 0, nil, io.EOF
		}
		return websocket.TextMessage, f, nil
	case <-c.closed:
		return 0, nil, errors.New("use of closed network connection")
	}
}

func (c *fakeConn) WriteMessage(kind int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, written{kind: kind, data: append([]byte(nil), data...)})
	if kind == websocket.TextMessage && c.writeErr != nil {
		return c.writeErr
	}
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// textFrames returns the JSON text frames written, ignoring control frames.
func (c *fakeConn) textFrames() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []map[string]any
	for _, w := range c.writes {
		if w.kind != websocket.TextMessage {
			continue
		}
		var m map[string]any
		_ = json.Unmarshal(w.data, &m)
		out = append(out, m)
	}
	return out
}

type fakeDialer struct {
	conns []*fakeConn
	err   error
	dials int
}

func (d *fakeDialer) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	c := d.conns[0]
	d.conns = d.conns[1:]
	return c, nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func connected(t *testing.T, conns ...*fakeConn) *Listener {
	t.Helper()
	l := NewListener(Config{URL: "ws://feed.test", Dialer: &fakeDialer{conns: conns}, Logger: quietLogger()})
	if err := l.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if l.State() != StateConnected {
		t.Fatalf("state=%s want connected", l.State())
	}
	return l
}

func nextEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		if !ok {
			t.Fatalf("events closed early")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return Event{}
}

func drain(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var rest []Event
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return rest
			}
			rest = append(rest, ev)
		case <-deadline:
			t.Fatalf("events channel not closed")
		}
	}
}

func TestPingRepliesWithExactlyOnePong(t *testing.T) {
	conn := newFakeConn()
	l := connected(t, conn)
	events, err := l.Listen(context.Background(), 0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	conn.incoming <- []byte(`{"type":"ping"}`)
	ev := nextEvent(t, events)
	if ev.Kind != KindPing {
		t.Fatalf("kind=%s want ping", ev.Kind)
	}
	close(conn.incoming)
	drain(t, events)

	frames := conn.textFrames()
	if len(frames) != 1 || frames[0]["type"] != "pong" || len(frames[0]) != 1 {
		t.Fatalf("written frames=%v want exactly one {\"type\":\"pong\"}", frames)
	}
}

func TestNotificationSurfacesOnceWithoutReply(t *testing.T) {
	conn := newFakeConn()
	l := connected(t, conn)
	events, err := l.Listen(context.Background(), 0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	conn.incoming <- []byte(`{"type":"notification","message":"x"}`)
	close(conn.incoming)

	got := drain(t, events)
	if len(got) != 1 {
		t.Fatalf("events=%d want 1", len(got))
	}
	if got[0].Kind != KindNotification || got[0].Field("message") != "x" {
		t.Fatalf("event=%+v", got[0])
	}
	if frames := conn.textFrames(); len(frames) != 0 {
		t.Fatalf("unexpected replies: %v", frames)
	}
}

func TestNonJSONFrameSurfacesAsRawText(t *testing.T) {
	conn := newFakeConn()
	l := connected(t, conn)
	events, err := l.Listen(context.Background(), 0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	conn.incoming <- []byte("hello")
	ev := nextEvent(t, events)
	if !ev.IsRaw || ev.Raw != "hello" || ev.Kind != KindUnknown || ev.Data != nil {
		t.Fatalf("event=%+v", ev)
	}
	if l.State() != StateConnected {
		t.Fatalf("raw frame must not end the loop")
	}
	l.Disconnect()
	drain(t, events)
}

func TestDecodeFrameKinds(t *testing.T) {
	cases := []struct {
		frame string
		kind  MessageKind
		typ   string
		raw   bool
	}{
		{`{"type":"ping"}`, KindPing, "ping", false},
		{`{"type":"notification"}`, KindNotification, "notification", false},
		{`{"type":"update","id":3}`, KindUpdate, "update", false},
		{`{"type":"auth_success"}`, KindAuthSuccess, "auth_success", false},
		{`{"type":"auth_failed"}`, KindAuthFailed, "auth_failed", false},
		{`{"type":"weather"}`, KindUnknown, "weather", false},
		{`{"message":"no type"}`, KindUnknown, "", false},
		{`{"type":5}`, KindUnknown, "", false},
		{`[1,2,3]`, KindUnknown, "", true},
		{`null`, KindUnknown, "", true},
		{`{"type":`, KindUnknown, "", true},
	}
	for _, tc := range cases {
		ev := decodeFrame([]byte(tc.frame), time.Unix(0, 0))
		if ev.Kind != tc.kind || ev.Type != tc.typ || ev.IsRaw != tc.raw || ev.Raw != tc.frame {
			t.Fatalf("decode(%s)=%+v", tc.frame, ev)
		}
	}
}

func TestConnectFailureStaysDisconnected(t *testing.T) {
	dialErr := errors.New("connection refused")
	l := NewListener(Config{URL: "ws://down.test", Dialer: &fakeDialer{err: dialErr}, Logger: quietLogger()})
	err := l.Connect(context.Background())
	var connErr *ConnectionError
	if !errors.As(err, &connErr) || !errors.Is(err, dialErr) {
		t.Fatalf("err=%v want ConnectionError wrapping dial error", err)
	}
	if l.State() != StateDisconnected {
		t.Fatalf("state=%s want disconnected", l.State())
	}
	if _, err := l.Listen(context.Background(), 0); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Listen err=%v want ErrNotConnected", err)
	}
	if err := l.Send(map[string]any{"type": "x"}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Send err=%v want ErrNotConnected", err)
	}
}

func TestConnectTwiceFails(t *testing.T) {
	l := connected(t, newFakeConn())
	if err := l.Connect(context.Background()); !errors.Is(err, ErrAlreadyConnected) {
		t.Fatalf("err=%v want ErrAlreadyConnected", err)
	}
	l.Disconnect()
}

func TestListenTimeoutUnblocksAndDisconnects(t *testing.T) {
	conn := newFakeConn()
	l := connected(t, conn)
	started := time.Now()
	events, err := l.Listen(context.Background(), 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	drain(t, events)
	if time.Since(started) > time.Second {
		t.Fatalf("timeout did not unblock promptly")
	}
	if !errors.Is(l.Err(), ErrListenTimeout) {
		t.Fatalf("Err=%v want ErrListenTimeout", l.Err())
	}
	if l.State() != StateDisconnected || !conn.isClosed() {
		t.Fatalf("listener not disconnected after timeout")
	}
}

func TestListenCancelUnblocksAndDisconnects(t *testing.T) {
	conn := newFakeConn()
	l := connected(t, conn)
	ctx, cancel := context.WithCancel(context.Background())
	events, err := l.Listen(ctx, time.Hour)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	cancel()
	drain(t, events)
	if !errors.Is(l.Err(), context.Canceled) {
		t.Fatalf("Err=%v want context.Canceled", l.Err())
	}
	if l.State() != StateDisconnected || !conn.isClosed() {
		t.Fatalf("listener not disconnected after cancel")
	}
}

func TestConnectionDropEndsLoopWithError(t *testing.T) {
	conn := newFakeConn()
	l := connected(t, conn)
	events, err := l.Listen(context.Background(), 0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	close(conn.incoming)
	drain(t, events)
	if !errors.Is(l.Err(), io.EOF) {
		t.Fatalf("Err=%v want wrapped io.EOF", l.Err())
	}
	if l.State() != StateDisconnected || !conn.isClosed() {
		t.Fatalf("listener not disconnected after drop")
	}
}

func TestDisconnectIsIdempotentAndEndsListen(t *testing.T) {
	conn := newFakeConn()
	l := connected(t, conn)
	events, err := l.Listen(context.Background(), 0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	l.Disconnect()
	l.Disconnect()
	drain(t, events)
	if !errors.Is(l.Err(), ErrClosed) {
		t.Fatalf("Err=%v want ErrClosed", l.Err())
	}
	if l.State() != StateDisconnected {
		t.Fatalf("state=%s", l.State())
	}
}

func TestSendFailureIsReportedNotRetried(t *testing.T) {
	conn := newFakeConn()
	conn.writeErr = errors.New("broken pipe")
	l := connected(t, conn)
	err := l.Send(map[string]any{"type": "status", "ok": true})
	if err == nil || !errors.Is(err, conn.writeErr) {
		t.Fatalf("err=%v want wrapped broken pipe", err)
	}
	if n := len(conn.textFrames()); n != 1 {
		t.Fatalf("write attempts=%d want 1", n)
	}
	l.Disconnect()
}

func TestSendFromConsumerWhileListening(t *testing.T) {
	conn := newFakeConn()
	l := connected(t, conn)
	events, err := l.Listen(context.Background(), 0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	for i := 0; i < 3; i++ {
		conn.incoming <- []byte(`{"type":"update"}`)
	}
	for i := 0; i < 3; i++ {
		ev := nextEvent(t, events)
		if err := l.Send(map[string]any{"type": "ack", "kind": ev.Kind.String()}); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	conn.incoming <- []byte(`{"type":"ping"}`)
	nextEvent(t, events)
	close(conn.incoming)
	drain(t, events)

	acks, pongs := 0, 0
	for _, f := range conn.textFrames() {
		switch f["type"] {
		case "ack":
			acks++
		case "pong":
			pongs++
		}
	}
	if acks != 3 || pongs != 1 {
		t.Fatalf("acks=%d pongs=%d", acks, pongs)
	}
}

func TestAuthTokenSentOnConnect(t *testing.T) {
	conn := newFakeConn()
	l := NewListener(Config{URL: "ws://feed.test", AuthToken: "t0k", Dialer: &fakeDialer{conns: []*fakeConn{conn}}, Logger: quietLogger()})
	if err := l.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	frames := conn.textFrames()
	if len(frames) != 1 || frames[0]["type"] != "auth" || frames[0]["token"] != "t0k" {
		t.Fatalf("frames=%v", frames)
	}
	l.Disconnect()

	failing := newFakeConn()
	failing.writeErr = errors.New("reset")
	l = NewListener(Config{URL: "ws://feed.test", AuthToken: "t0k", Dialer: &fakeDialer{conns: []*fakeConn{failing}}, Logger: quietLogger()})
	var connErr *ConnectionError
	if err := l.Connect(context.Background()); !errors.As(err, &connErr) {
		t.Fatalf("err=%v want ConnectionError", err)
	}
	if l.State() != StateDisconnected || !failing.isClosed() {
		t.Fatalf("failed auth must leave listener disconnected")
	}
}

func TestReconnectAfterSessionEnds(t *testing.T) {
	first, second := newFakeConn(), newFakeConn()
	l := connected(t, first, second)
	events, err := l.Listen(context.Background(), 0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	close(first.incoming)
	drain(t, events)

	if err := l.Connect(context.Background()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	events, err = l.Listen(context.Background(), 0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	second.incoming <- []byte(`{"type":"auth_success"}`)
	if ev := nextEvent(t, events); ev.Kind != KindAuthSuccess {
		t.Fatalf("kind=%s", ev.Kind)
	}
	l.Disconnect()
	drain(t, events)
}

func waitEmpty(t *testing.T, c *fakeConn) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for len(c.incoming) > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("receive loop did not read queued frames")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestReconnectWhileOldLoopIsBlocked(t *testing.T) {
	first, second := newFakeConn(), newFakeConn()
	l := NewListener(Config{URL: "ws://feed.test", EventBuffer: 1, Dialer: &fakeDialer{conns: []*fakeConn{first, second}}, Logger: quietLogger()})
	if err := l.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	old, err := l.Listen(context.Background(), 0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	// the second frame leaves the loop blocked on a full channel
	first.incoming <- []byte(`{"type":"notification","message":"a"}`)
	first.incoming <- []byte(`{"type":"notification","message":"b"}`)
	waitEmpty(t, first)

	l.Disconnect()
	if err := l.Connect(context.Background()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	events, err := l.Listen(context.Background(), 0)
	if err != nil {
		t.Fatalf("Listen on new session: %v", err)
	}

	if rest := drain(t, old); len(rest) != 1 || rest[0].Field("message") != "a" {
		t.Fatalf("old session events=%v want only the buffered one", rest)
	}
	if !first.isClosed() {
		t.Fatalf("old connection left open")
	}
	if second.isClosed() || l.State() != StateConnected {
		t.Fatalf("old loop tore down the new session: closed=%v state=%s", second.isClosed(), l.State())
	}
	if l.Err() != nil {
		t.Fatalf("old loop overwrote Err of the new session: %v", l.Err())
	}

	second.incoming <- []byte(`{"type":"ping"}`)
	if ev := nextEvent(t, events); ev.Kind != KindPing {
		t.Fatalf("kind=%s", ev.Kind)
	}
	if frames := second.textFrames(); len(frames) != 1 || frames[0]["type"] != "pong" {
		t.Fatalf("new session frames=%v", frames)
	}
	l.Disconnect()
	drain(t, events)
	if !errors.Is(l.Err(), ErrClosed) {
		t.Fatalf("Err=%v want ErrClosed", l.Err())
	}
}

func TestDisconnectEndsLoopWithoutConsumer(t *testing.T) {
	conn := newFakeConn()
	l := NewListener(Config{URL: "ws://feed.test", EventBuffer: 1, Dialer: &fakeDialer{conns: []*fakeConn{conn}}, Logger: quietLogger()})
	if err := l.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	events, err := l.Listen(context.Background(), 0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	for i := 0; i < 3; i++ {
		conn.incoming <- []byte(`{"type":"update"}`)
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(conn.incoming) > 1 {
		if time.Now().After(deadline) {
			t.Fatalf("receive loop did not read queued frames")
		}
		time.Sleep(time.Millisecond)
	}

	l.Disconnect()
	// nothing was read; the loop must still have exited and released Listen
	deadline = time.Now().Add(2 * time.Second)
	for len(events) < cap(events) || l.Err() == nil {
		if time.Now().After(deadline) {
			t.Fatalf("loop still running after Disconnect: err=%v", l.Err())
		}
		time.Sleep(time.Millisecond)
	}
	if !errors.Is(l.Err(), ErrClosed) {
		t.Fatalf("Err=%v want ErrClosed", l.Err())
	}
	if rest := drain(t, events); len(rest) != 1 {
		t.Fatalf("events after Disconnect=%d want 1", len(rest))
	}
}
