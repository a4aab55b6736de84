package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stive2025/collapi-sub001/feed"
)

func TestRunAgainstWebsocketServer(t *testing.T) {
	pongs := make(chan string, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`))
		if _, pong, err := conn.ReadMessage(); err == nil {
			pongs <- string(pong)
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"notification","message":"new credit assigned"}`))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	var published []feedMessage
	out := newSink("biz", false, "feed-events", logrus.NewEntry(logger))
	out.publish = func(ctx context.Context, topic string, obj any, attrs map[string]string) (string, error) {
		published = append(published, obj.(feedMessage))
		return "1", nil
	}

	s := settings{
		url:              "ws" + strings.TrimPrefix(srv.URL, "http"),
		listenTimeout:    5 * time.Second,
		handshakeTimeout: time.Second,
		reconnect:        false,
	}
	err := run(context.Background(), s, out, logger)
	if err == nil || errors.Is(err, feed.ErrListenTimeout) {
		t.Fatalf("expected the server close to end the session, got %v", err)
	}

	select {
	case pong := <-pongs:
		if pong != `{"type":"pong"}` {
			t.Fatalf("pong=%s", pong)
		}
	default:
		t.Fatalf("server never received a pong")
	}
	if len(published) != 1 || published[0].Kind != "notification" {
		t.Fatalf("published=%+v", published)
	}
}

func TestRunStopsWhenListenWindowElapses(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	s := settings{
		url:           "ws" + strings.TrimPrefix(srv.URL, "http"),
		listenTimeout: 50 * time.Millisecond,
		reconnect:     true,
	}
	done := make(chan error, 1)
	go func() { done <- run(context.Background(), s, newSink("", false, "", logrus.NewEntry(logger)), logger) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not return after the listen window")
	}
}
