package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stive2025/collapi-sub001/feed"
	"github.com/stive2025/collapi-sub001/models"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestPayloadOf(t *testing.T) {
	p, err := payloadOf(feed.Event{Raw: `{"type":"notification","message":"hi"}`})
	if err != nil || string(p) != `{"type":"notification","message":"hi"}` {
		t.Fatalf("json payload=%s err=%v", p, err)
	}
	p, err = payloadOf(feed.Event{Raw: `plain "text"`, IsRaw: true})
	if err != nil {
		t.Fatalf("payloadOf: %v", err)
	}
	var wrapped map[string]string
	if err := json.Unmarshal(p, &wrapped); err != nil || wrapped["raw"] != `plain "text"` {
		t.Fatalf("raw payload=%s err=%v", p, err)
	}
}

func TestForwarded(t *testing.T) {
	cases := []struct {
		name string
		ev   feed.Event
		want bool
	}{
		{"notification", feed.Event{Kind: feed.KindNotification, Type: "notification"}, true},
		{"update", feed.Event{Kind: feed.KindUpdate, Type: "update"}, true},
		{"ping", feed.Event{Kind: feed.KindPing, Type: "ping"}, false},
		{"auth success", feed.Event{Kind: feed.KindAuthSuccess, Type: "auth_success"}, false},
		{"unknown type", feed.Event{Kind: feed.KindUnknown, Type: "telemetry"}, true},
		{"raw text", feed.Event{Kind: feed.KindUnknown, IsRaw: true, Raw: "hello"}, true},
		{"object without type", feed.Event{Kind: feed.KindUnknown, Raw: "{}"}, false},
	}
	for _, tc := range cases {
		if got := forwarded(tc.ev); got != tc.want {
			t.Fatalf("%s: forwarded=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestSinkPersistsAndPublishes(t *testing.T) {
	s := newSink("biz", true, "feed-events", quietLogger())
	var saved []string
	var published []feedMessage
	s.save = func(ctx context.Context, businessId, kind, payload string, receivedAt time.Time) (*models.FeedNotification, error) {
		saved = append(saved, businessId+"|"+kind+"|"+payload)
		return &models.FeedNotification{}, nil
	}
	s.publish = func(ctx context.Context, topic string, obj any, attrs map[string]string) (string, error) {
		if topic != "feed-events" || attrs["kind"] != "notification" {
			t.Fatalf("topic=%s attrs=%v", topic, attrs)
		}
		published = append(published, obj.(feedMessage))
		return "1", nil
	}

	at := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	s.handle(context.Background(), feed.Event{Kind: feed.KindPing, Type: "ping", Raw: `{"type":"ping"}`, ReceivedAt: at})
	s.handle(context.Background(), feed.Event{Kind: feed.KindNotification, Type: "notification", Raw: `{"type":"notification"}`, ReceivedAt: at})

	if len(saved) != 1 || saved[0] != `biz|notification|{"type":"notification"}` {
		t.Fatalf("saved=%v", saved)
	}
	if len(published) != 1 || !published[0].ReceivedAt.Equal(at) || published[0].BusinessId != "biz" {
		t.Fatalf("published=%+v", published)
	}
}

func TestSinkKeepsGoingOnFailures(t *testing.T) {
	s := newSink("biz", true, "feed-events", quietLogger())
	calls := 0
	s.save = func(ctx context.Context, businessId, kind, payload string, receivedAt time.Time) (*models.FeedNotification, error) {
		calls++
		return nil, errors.New("db down")
	}
	s.publish = func(ctx context.Context, topic string, obj any, attrs map[string]string) (string, error) {
		calls++
		return "", errors.New("pubsub down")
	}
	ev := feed.Event{Kind: feed.KindUpdate, Type: "update", Raw: `{"type":"update"}`}
	s.handle(context.Background(), ev)
	s.handle(context.Background(), ev)
	if calls != 4 {
		t.Fatalf("calls=%d", calls)
	}
}

func TestSinkDisabled(t *testing.T) {
	s := newSink("biz", false, "", quietLogger())
	s.save = func(ctx context.Context, businessId, kind, payload string, receivedAt time.Time) (*models.FeedNotification, error) {
		t.Fatalf("save should not be called")
		return nil, nil
	}
	s.handle(context.Background(), feed.Event{Kind: feed.KindNotification, Raw: "{}"})
}

func TestSettingsToken(t *testing.T) {
	t.Setenv("FEED_AUTH_SECRET", "test-secret")
	static := settings{authToken: "static"}
	if tok, err := static.token(time.Now()); err != nil || tok != "static" {
		t.Fatalf("static token=%q err=%v", tok, err)
	}
	signed := settings{userId: 3, businessId: "biz"}
	tok, err := signed.token(time.Now())
	if err != nil || tok == "" {
		t.Fatalf("signed token=%q err=%v", tok, err)
	}
	anonymous := settings{}
	if tok, err := anonymous.token(time.Now()); err != nil || tok != "" {
		t.Fatalf("anonymous token=%q err=%v", tok, err)
	}
}
