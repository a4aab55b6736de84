package models

import (
	"context"
	"strings"
	"time"

	"github.com/stive2025/collapi-sub001/config"
	"github.com/stive2025/collapi-sub001/utils"
	"gorm.io/gorm"
)

// Management is an append-only log of one contact attempt against a credit.
type Management struct {
	ID               int             `gorm:"primary_key" json:"id"`
	BusinessId       string          `gorm:"index;size:36;not null" json:"business_id"`
	CreditId         int             `gorm:"index;not null" json:"credit_id"`
	CampaignId       *int            `gorm:"index:idx_management_campaign_user" json:"campaign_id"`
	CreatedBy        int             `gorm:"index:idx_management_campaign_user;not null" json:"created_by"`
	State            ManagementState `gorm:"size:30;not null;index" json:"state"`
	Substate         string          `gorm:"size:100" json:"substate"`
	Observation      string          `gorm:"type:text" json:"observation"`
	PromiseDate      *time.Time      `json:"promise_date"`
	PromiseAmount    *string         `gorm:"size:30" json:"promise_amount"`
	CollectionCallId *int            `json:"collection_call_id"`
	CreatedAt        time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

type NewManagement struct {
	CreditId         int             `json:"credit_id" validate:"required"`
	CampaignId       *int            `json:"campaign_id"`
	State            ManagementState `json:"state" validate:"required"`
	Substate         string          `json:"substate" validate:"max=100"`
	Observation      string          `json:"observation"`
	PromiseDate      *time.Time      `json:"promise_date"`
	PromiseAmount    *string         `json:"promise_amount"`
	CollectionCallId *int            `json:"collection_call_id"`
	// Tray the credit moves to; IN_PROGRESS when empty.
	Tray ManagementTray `json:"tray"`
}

func (m Management) GetBusinessId() string {
	return m.BusinessId
}

func (input *NewManagement) validate(ctx context.Context, businessId string, userId int) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if !input.State.IsValid() {
		return utils.NewValidationError("state", "invalid")
	}
	if input.Tray == "" {
		input.Tray = ManagementTrayInProgress
	}
	if !input.Tray.IsValid() {
		return utils.NewValidationError("tray", "invalid")
	}
	if (input.State == ManagementStatePaymentPromise || input.State == ManagementStatePaymentCommitment) && input.PromiseDate == nil {
		return utils.NewValidationError("promise_date", "required for a payment promise")
	}
	if input.PromiseAmount != nil {
		if _, err := utils.ParseDecimal(*input.PromiseAmount); err != nil {
			return utils.NewValidationError("promise_amount", "invalid decimal")
		}
	}
	if err := utils.ValidateResourceId[Credit](ctx, businessId, input.CreditId); err != nil {
		return utils.NewValidationError("credit_id", "not found")
	}
	if input.CollectionCallId != nil {
		if err := utils.ValidateResourceId[CollectionCall](ctx, businessId, *input.CollectionCallId); err != nil {
			return utils.NewValidationError("collection_call_id", "not found")
		}
	}
	if input.CampaignId != nil {
		campaign, err := utils.FetchModel[Campaign](ctx, businessId, *input.CampaignId)
		if err != nil {
			return utils.NewValidationError("campaign_id", "not found")
		}
		role, _ := utils.GetUserRoleFromContext(ctx)
		if UserRole(role) == UserRoleAgent && !campaign.Agents.Contains(userId) {
			return ErrNotCampaignAgent
		}
	}
	return nil
}

// CreateManagement logs the attempt and moves the credit to the requested tray in one transaction.
// Fee counters are never touched here.
func CreateManagement(ctx context.Context, input *NewManagement) (*Management, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == 0 {
		return nil, utils.ErrUserRequired
	}
	if err := input.validate(ctx, businessId, userId); err != nil {
		return nil, err
	}

	management := Management{
		BusinessId:       businessId,
		CreditId:         input.CreditId,
		CampaignId:       input.CampaignId,
		CreatedBy:        userId,
		State:            input.State,
		Substate:         strings.TrimSpace(input.Substate),
		Observation:      input.Observation,
		PromiseDate:      input.PromiseDate,
		PromiseAmount:    input.PromiseAmount,
		CollectionCallId: input.CollectionCallId,
	}
	status := string(input.State)
	if management.Substate != "" {
		status = management.Substate
	}

	err = config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&management).Error; err != nil {
			return err
		}
		return tx.Model(&Credit{}).
			Where("business_id = ? AND id = ?", businessId, input.CreditId).
			UpdateColumns(map[string]interface{}{
				"management_tray":   input.Tray,
				"management_status": status,
				"updated_at":        time.Now().UTC(),
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &management, nil
}

func ListManagements(ctx context.Context, creditId int) ([]*Management, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	var managements []*Management
	err = config.GetDB().WithContext(ctx).
		Where("business_id = ? AND credit_id = ?", businessId, creditId).
		Order("created_at DESC, id DESC").Find(&managements).Error
	return managements, err
}
