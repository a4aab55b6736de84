package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stive2025/collapi-sub001/config"
	"github.com/stive2025/collapi-sub001/feed"
	"github.com/stive2025/collapi-sub001/models"
)

// feedMessage is what gets stored and published for a feed event.
type feedMessage struct {
	BusinessId string          `json:"business_id"`
	Kind       string          `json:"kind"`
	Type       string          `json:"type,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"received_at"`
}

// payloadOf returns the frame as JSON; raw text frames are wrapped as {"raw": text}.
func payloadOf(ev feed.Event) (json.RawMessage, error) {
	if !ev.IsRaw {
		return json.RawMessage(ev.Raw), nil
	}
	return json.Marshal(map[string]string{"raw": ev.Raw})
}

// forwarded reports whether an event leaves the process; pings and auth replies stay local.
func forwarded(ev feed.Event) bool {
	switch ev.Kind {
	case feed.KindNotification, feed.KindUpdate:
		return true
	case feed.KindUnknown:
		return ev.IsRaw || ev.Type != ""
	default:
		return false
	}
}

type sink struct {
	businessId string
	persist    bool
	topic      string
	logger     *logrus.Entry

	save    func(ctx context.Context, businessId, kind, payload string, receivedAt time.Time) (*models.FeedNotification, error)
	publish func(ctx context.Context, topic string, obj any, attrs map[string]string) (string, error)
}

func newSink(businessId string, persist bool, topic string, logger *logrus.Entry) *sink {
	return &sink{
		businessId: businessId,
		persist:    persist,
		topic:      topic,
		logger:     logger,
		save:       models.SaveFeedNotification,
		publish:    config.PublishJSON,
	}
}

// handle never fails the loop: a failed write is logged and the next event is processed.
func (s *sink) handle(ctx context.Context, ev feed.Event) {
	if !forwarded(ev) || (!s.persist && s.topic == "") {
		return
	}
	payload, err := payloadOf(ev)
	if err != nil {
		s.logger.WithError(err).Error("encode feed payload")
		return
	}
	msg := feedMessage{
		BusinessId: s.businessId,
		Kind:       ev.Kind.String(),
		Type:       ev.Type,
		Payload:    payload,
		ReceivedAt: ev.ReceivedAt.UTC(),
	}
	if s.persist {
		if _, err := s.save(ctx, s.businessId, msg.Kind, string(payload), ev.ReceivedAt); err != nil {
			s.logger.WithError(err).WithField("kind", msg.Kind).Error("persist feed notification")
		}
	}
	if s.topic != "" {
		attrs := map[string]string{"kind": msg.Kind, "business_id": s.businessId}
		if id, err := s.publish(ctx, s.topic, msg, attrs); err != nil {
			s.logger.WithError(err).WithField("topic", s.topic).Error("publish feed notification")
		} else {
			s.logger.WithFields(logrus.Fields{"topic": s.topic, "message_id": id}).Debug("feed notification published")
		}
	}
}
