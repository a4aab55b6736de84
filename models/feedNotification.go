package models

import (
	"context"
	"time"

	"github.com/stive2025/collapi-sub001/config"
)

// FeedNotification is a notification received from the real-time feed, stored on request.
type FeedNotification struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;size:36" json:"business_id"`
	Kind       string    `gorm:"size:30;not null" json:"kind"`
	Payload    string    `gorm:"type:json" json:"payload"`
	ReceivedAt time.Time `gorm:"not null;index" json:"received_at"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func SaveFeedNotification(ctx context.Context, businessId string, kind string, payload string, receivedAt time.Time) (*FeedNotification, error) {
	if payload == "" {
		payload = "{}"
	}
	n := FeedNotification{
		BusinessId: businessId,
		Kind:       kind,
		Payload:    payload,
		ReceivedAt: receivedAt.UTC(),
	}
	if err := config.GetDB().WithContext(ctx).Create(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}
