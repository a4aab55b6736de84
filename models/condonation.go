package models

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stive2025/collapi-sub001/config"
	"github.com/stive2025/collapi-sub001/utils"
)

// Condonation is a request to waive part of a credit's pending amount.
// Approval records the decision only; balances change on the next credit sync.
type Condonation struct {
	ID          int               `gorm:"primary_key" json:"id"`
	BusinessId  string            `gorm:"index;size:36;not null" json:"business_id"`
	CreditId    int               `gorm:"index;not null" json:"credit_id"`
	Amount      decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"amount"`
	Reason      string            `gorm:"type:text" json:"reason"`
	Status      CondonationStatus `gorm:"size:20;not null;default:PENDING" json:"status"`
	RequestedBy int               `gorm:"not null" json:"requested_by"`
	ReviewedBy  *int              `json:"reviewed_by"`
	ReviewedAt  *time.Time        `json:"reviewed_at"`
	ReviewNote  string            `gorm:"type:text" json:"review_note"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCondonation struct {
	CreditId int             `json:"credit_id" validate:"required"`
	Amount   decimal.Decimal `json:"amount"`
	Reason   string          `json:"reason" validate:"required"`
}

type CondonationReview struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

func (c Condonation) GetBusinessId() string {
	return c.BusinessId
}

func CreateCondonation(ctx context.Context, input *NewCondonation) (*Condonation, error) {
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
	credit, err := utils.FetchModel[Credit](ctx, businessId, input.CreditId)
	if err != nil {
		return nil, utils.NewValidationError("credit_id", "not found")
	}
	if !input.Amount.IsPositive() {
		return nil, utils.NewValidationError("amount", "must be positive")
	}
	if input.Amount.GreaterThan(credit.PendingAmount) {
		return nil, utils.NewValidationError("amount", "exceeds pending amount")
	}
	condonation := Condonation{
		BusinessId:  businessId,
		CreditId:    credit.ID,
		Amount:      input.Amount,
		Reason:      strings.TrimSpace(input.Reason),
		Status:      CondonationStatusPending,
		RequestedBy: userId,
	}
	if err := config.GetDB().WithContext(ctx).Create(&condonation).Error; err != nil {
		return nil, err
	}
	return &condonation, nil
}

func ReviewCondonation(ctx context.Context, id int, input *CondonationReview) (*Condonation, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == 0 {
		return nil, utils.ErrUserRequired
	}
	condonation, err := utils.FetchModel[Condonation](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if condonation.Status != CondonationStatusPending {
		return nil, utils.NewValidationError("status", "already reviewed")
	}
	status := CondonationStatusRejected
	if input.Approve {
		status = CondonationStatusApproved
	}
	now := time.Now().UTC()
	res := config.GetDB().WithContext(ctx).Model(&Condonation{}).
		Where("business_id = ? AND id = ? AND status = ?", businessId, id, CondonationStatusPending).
		Updates(map[string]interface{}{
			"status":      status,
			"reviewed_by": userId,
			"reviewed_at": now,
			"review_note": input.Note,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, utils.NewValidationError("status", "already reviewed")
	}
	condonation.Status = status
	condonation.ReviewedBy = &userId
	condonation.ReviewedAt = &now
	condonation.ReviewNote = input.Note
	return condonation, nil
}
