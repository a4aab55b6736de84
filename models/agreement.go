package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stive2025/collapi-sub001/config"
	"github.com/stive2025/collapi-sub001/utils"
	"gorm.io/gorm"
)

// Agreement is a payment plan negotiated for a credit.
type Agreement struct {
	ID            int                    `gorm:"primary_key" json:"id"`
	BusinessId    string                 `gorm:"index;size:36;not null" json:"business_id"`
	CreditId      int                    `gorm:"index;not null" json:"credit_id"`
	CreatedBy     int                    `gorm:"not null" json:"created_by"`
	TotalAmount   decimal.Decimal        `gorm:"type:decimal(20,4);not null" json:"total_amount"`
	Installments  int                    `gorm:"not null" json:"installments"`
	FirstDueDate  time.Time              `gorm:"not null" json:"first_due_date"`
	FrequencyDays int                    `gorm:"not null;default:30" json:"frequency_days"`
	Status        AgreementStatus        `gorm:"size:20;not null;default:ACTIVE" json:"status"`
	Observation   string                 `gorm:"type:text" json:"observation"`
	Details       []AgreementInstallment `gorm:"foreignKey:AgreementId" json:"details"`
	CreatedAt     time.Time              `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time              `gorm:"autoUpdateTime" json:"updated_at"`
}

type AgreementInstallment struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"index;size:36;not null" json:"business_id"`
	AgreementId int             `gorm:"index;not null" json:"agreement_id"`
	Number      int             `gorm:"not null" json:"number"`
	DueDate     time.Time       `gorm:"not null" json:"due_date"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
}

type NewAgreement struct {
	CreditId      int             `json:"credit_id" validate:"required"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Installments  int             `json:"installments" validate:"required,gte=1,lte=120"`
	FirstDueDate  time.Time       `json:"first_due_date" validate:"required"`
	FrequencyDays int             `json:"frequency_days" validate:"gte=0,lte=365"`
	Observation   string          `json:"observation"`
}

func (a Agreement) GetBusinessId() string {
	return a.BusinessId
}

// SplitInstallments divides total into n equal parts rounded to cents; the last part absorbs rounding.
func SplitInstallments(total decimal.Decimal, n int, firstDue time.Time, frequencyDays int) []AgreementInstallment {
	if n <= 0 {
		return nil
	}
	if frequencyDays <= 0 {
		frequencyDays = 30
	}
	part := total.Div(decimal.NewFromInt(int64(n))).RoundFloor(2)
	details := make([]AgreementInstallment, n)
	allocated := decimal.Zero
	for i := 0; i < n; i++ {
		amount := part
		if i == n-1 {
			amount = total.Sub(allocated)
		}
		allocated = allocated.Add(amount)
		details[i] = AgreementInstallment{
			Number:  i + 1,
			DueDate: firstDue.AddDate(0, 0, i*frequencyDays),
			Amount:  amount,
		}
	}
	return details
}

func CreateAgreement(ctx context.Context, input *NewAgreement) (*Agreement, error) {
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
	if !input.TotalAmount.IsPositive() {
		return nil, utils.NewValidationError("total_amount", "must be positive")
	}
	if err := utils.ValidateResourceId[Credit](ctx, businessId, input.CreditId); err != nil {
		return nil, utils.NewValidationError("credit_id", "not found")
	}
	active, err := utils.ResourceCountWhere[Agreement](ctx, businessId, "credit_id = ? AND status = ?", input.CreditId, AgreementStatusActive)
	if err != nil {
		return nil, err
	}
	if active > 0 {
		return nil, utils.NewValidationError("credit_id", "already has an active agreement")
	}
	frequency := input.FrequencyDays
	if frequency == 0 {
		frequency = 30
	}

	agreement := Agreement{
		BusinessId:    businessId,
		CreditId:      input.CreditId,
		CreatedBy:     userId,
		TotalAmount:   input.TotalAmount,
		Installments:  input.Installments,
		FirstDueDate:  input.FirstDueDate.UTC(),
		FrequencyDays: frequency,
		Status:        AgreementStatusActive,
		Observation:   input.Observation,
		Details:       SplitInstallments(input.TotalAmount, input.Installments, input.FirstDueDate.UTC(), frequency),
	}
	for i := range agreement.Details {
		agreement.Details[i].BusinessId = businessId
	}
	if err := config.GetDB().WithContext(ctx).Create(&agreement).Error; err != nil {
		return nil, err
	}
	return &agreement, nil
}

func GetAgreement(ctx context.Context, id int) (*Agreement, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	var agreement Agreement
	err = config.GetDB().WithContext(ctx).
		Preload("Details", func(db *gorm.DB) *gorm.DB { return db.Order("number") }).
		Where("business_id = ?", businessId).First(&agreement, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &agreement, nil
}

func UpdateAgreementStatus(ctx context.Context, id int, status AgreementStatus) (*Agreement, error) {
	agreement, err := GetAgreement(ctx, id)
	if err != nil {
		return nil, err
	}
	if !status.IsValid() || !agreement.Status.CanTransitionTo(status) {
		return nil, utils.NewValidationError("status", "cannot change from "+string(agreement.Status)+" to "+string(status))
	}
	if err := config.GetDB().WithContext(ctx).Model(agreement).Update("status", status).Error; err != nil {
		return nil, err
	}
	agreement.Status = status
	return agreement, nil
}
