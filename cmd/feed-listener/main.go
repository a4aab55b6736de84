// feed-listener keeps a connection to the real-time notification feed, logs every
// event and optionally stores notifications and fans them out to Pub/Sub.
//
// Env:
//   - FEED_URL (required), FEED_AUTH_TOKEN or FEED_USER_ID + FEED_BUSINESS_ID to sign one
//   - FEED_LISTEN_TIMEOUT_SECONDS (0 = listen until stopped), FEED_HANDSHAKE_TIMEOUT_SECONDS
//   - FEED_RECONNECT=false to exit on the first disconnect
//   - FEED_PERSIST_NOTIFICATIONS=true (needs DB_*), FEED_PUBSUB_TOPIC
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stive2025/collapi-sub001/config"
	"github.com/stive2025/collapi-sub001/feed"
	"github.com/stive2025/collapi-sub001/models"
	"github.com/stive2025/collapi-sub001/utils"
)

type settings struct {
	url              string
	authToken        string
	userId           int
	businessId       string
	listenTimeout    time.Duration
	handshakeTimeout time.Duration
	reconnect        bool
	persist          bool
	topic            string
}

func loadSettings() settings {
	return settings{
		url:              strings.TrimSpace(os.Getenv("FEED_URL")),
		authToken:        strings.TrimSpace(os.Getenv("FEED_AUTH_TOKEN")),
		userId:           config.IntFromEnv("FEED_USER_ID", 0),
		businessId:       strings.TrimSpace(os.Getenv("FEED_BUSINESS_ID")),
		listenTimeout:    time.Duration(config.IntFromEnv("FEED_LISTEN_TIMEOUT_SECONDS", 0)) * time.Second,
		handshakeTimeout: time.Duration(config.IntFromEnv("FEED_HANDSHAKE_TIMEOUT_SECONDS", 10)) * time.Second,
		reconnect:        config.EnvBool("FEED_RECONNECT", true),
		persist:          config.EnvBool("FEED_PERSIST_NOTIFICATIONS", false),
		topic:            strings.TrimSpace(os.Getenv("FEED_PUBSUB_TOPIC")),
	}
}

// token returns the static token or signs a fresh one for the configured user.
func (s settings) token(now time.Time) (string, error) {
	if s.authToken != "" || s.userId == 0 {
		return s.authToken, nil
	}
	return utils.FeedTokenGenerate(s.userId, s.businessId, string(models.UserRoleAgent), now)
}

// session runs one connect+listen cycle and returns why it ended.
func session(ctx context.Context, s settings, out *sink, logger *logrus.Logger) error {
	token, err := s.token(time.Now())
	if err != nil {
		return err
	}
	l := feed.NewListener(feed.Config{
		URL:       s.url,
		AuthToken: token,
		Dialer:    feed.WebsocketDialer{HandshakeTimeout: s.handshakeTimeout},
		Logger:    logger,
	})
	if err := l.Connect(ctx); err != nil {
		return err
	}
	events, err := l.Listen(ctx, s.listenTimeout)
	if err != nil {
		l.Disconnect()
		return err
	}
	for ev := range events {
		out.handle(ctx, ev)
	}
	return l.Err()
}

func run(ctx context.Context, s settings, out *sink, logger *logrus.Logger) error {
	for attempt := 1; ; attempt++ {
		started := time.Now()
		err := session(ctx, s, out, logger)
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, feed.ErrListenTimeout):
			logger.WithField("timeout", s.listenTimeout.String()).Info("listen window elapsed")
			return nil
		case !s.reconnect:
			return err
		}
		// a session that stayed up for a while resets the backoff
		if time.Since(started) > time.Minute {
			attempt = 1
		}
		wait := config.RetryBackoff(attempt)
		logger.WithFields(logrus.Fields{"attempt": attempt, "retry_in": wait.String()}).
			WithError(err).Warn("feed session ended; reconnecting")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

func main() {
	logger := config.GetLogger()
	s := loadSettings()
	if s.url == "" {
		logger.Fatal("FEED_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if s.persist {
		config.ConnectDatabaseWithRetry()
		if !config.EnvBool("SKIP_MIGRATIONS", false) {
			models.MigrateTable()
		}
	}
	if s.topic != "" {
		defer config.ClosePubSub()
	}

	out := newSink(s.businessId, s.persist, s.topic, logger.WithField("module", "FeedSink"))
	if err := run(ctx, s, out, logger); err != nil {
		logger.WithError(err).Fatal("feed listener stopped")
	}
}
