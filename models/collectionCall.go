package models

import (
	"context"
	"time"

	"github.com/stive2025/collapi-sub001/config"
	"github.com/stive2025/collapi-sub001/utils"
)

// CollectionCall is an append-only log of a phone contact attempt.
type CollectionCall struct {
	ID              int           `gorm:"primary_key" json:"id"`
	BusinessId      string        `gorm:"index;size:36;not null" json:"business_id"`
	CreditId        int           `gorm:"index;not null" json:"credit_id"`
	CreatedBy       int           `gorm:"index:idx_call_user_created;not null" json:"created_by"`
	PhoneNumber     string        `gorm:"size:20" json:"phone_number"`
	Channel         CallChannel   `gorm:"size:20;not null;default:PHONE" json:"channel"`
	Direction       CallDirection `gorm:"size:10;not null;default:OUTBOUND" json:"direction"`
	DurationSeconds int           `gorm:"not null;default:0" json:"duration_seconds"`
	ExternalId      string        `gorm:"size:100" json:"external_id"`
	CreatedAt       time.Time     `gorm:"autoCreateTime;index:idx_call_user_created" json:"created_at"`
}

type NewCollectionCall struct {
	CreditId        int           `json:"credit_id" validate:"required"`
	PhoneNumber     string        `json:"phone_number"`
	Channel         CallChannel   `json:"channel"`
	Direction       CallDirection `json:"direction"`
	DurationSeconds int           `json:"duration_seconds" validate:"gte=0"`
	ExternalId      string        `json:"external_id" validate:"max=100"`
}

func (c CollectionCall) GetBusinessId() string {
	return c.BusinessId
}

func CreateCollectionCall(ctx context.Context, input *NewCollectionCall) (*CollectionCall, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == 0 {
		return nil, utils.ErrUserRequired
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if input.Channel == "" {
		input.Channel = CallChannelPhone
	}
	if input.Direction == "" {
		input.Direction = CallDirectionOutbound
	}
	if !input.Channel.IsValid() {
		return nil, utils.NewValidationError("channel", "invalid")
	}
	if !input.Direction.IsValid() {
		return nil, utils.NewValidationError("direction", "invalid")
	}
	if err := utils.ValidateResourceId[Credit](ctx, businessId, input.CreditId); err != nil {
		return nil, utils.NewValidationError("credit_id", "not found")
	}
	phone := input.PhoneNumber
	if phone != "" {
		normalized, err := utils.NormalizePhoneNumber(phone, businessRegion(ctx, businessId))
		if err != nil {
			return nil, utils.NewValidationError("phone_number", "invalid phone number")
		}
		phone = normalized
	}
	call := CollectionCall{
		BusinessId:      businessId,
		CreditId:        input.CreditId,
		CreatedBy:       userId,
		PhoneNumber:     phone,
		Channel:         input.Channel,
		Direction:       input.Direction,
		DurationSeconds: input.DurationSeconds,
		ExternalId:      input.ExternalId,
	}
	if err := config.GetDB().WithContext(ctx).Create(&call).Error; err != nil {
		return nil, err
	}
	return &call, nil
}

func ListCollectionCalls(ctx context.Context, creditId int) ([]*CollectionCall, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	var calls []*CollectionCall
	err = config.GetDB().WithContext(ctx).
		Where("business_id = ? AND credit_id = ?", businessId, creditId).
		Order("created_at DESC, id DESC").Find(&calls).Error
	return calls, err
}
