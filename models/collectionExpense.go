package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stive2025/collapi-sub001/config"
	"github.com/stive2025/collapi-sub001/utils"
)

// CollectionExpense is a legal or collection cost charged against a credit.
type CollectionExpense struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"index;size:36;not null" json:"business_id"`
	CreditId    int             `gorm:"index;not null" json:"credit_id"`
	Type        ExpenseType     `gorm:"size:20;not null" json:"type"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Description string          `gorm:"type:text" json:"description"`
	ExpenseDate time.Time       `gorm:"not null" json:"expense_date"`
	CreatedBy   int             `gorm:"not null" json:"created_by"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewCollectionExpense struct {
	CreditId    int             `json:"credit_id" validate:"required"`
	Type        ExpenseType     `json:"type" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	ExpenseDate *time.Time      `json:"expense_date"`
}

type CollectionExpenseList struct {
	Expenses []*CollectionExpense `json:"expenses"`
	Total    decimal.Decimal      `json:"total"`
}

func (e CollectionExpense) GetBusinessId() string {
	return e.BusinessId
}

func CreateCollectionExpense(ctx context.Context, input *NewCollectionExpense) (*CollectionExpense, error) {
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
	if !input.Type.IsValid() {
		return nil, utils.NewValidationError("type", "invalid")
	}
	if !input.Amount.IsPositive() {
		return nil, utils.NewValidationError("amount", "must be positive")
	}
	if err := utils.ValidateResourceId[Credit](ctx, businessId, input.CreditId); err != nil {
		return nil, utils.NewValidationError("credit_id", "not found")
	}
	expenseDate := time.Now().UTC()
	if input.ExpenseDate != nil {
		expenseDate = input.ExpenseDate.UTC()
	}
	expense := CollectionExpense{
		BusinessId:  businessId,
		CreditId:    input.CreditId,
		Type:        input.Type,
		Amount:      input.Amount,
		Description: input.Description,
		ExpenseDate: expenseDate,
		CreatedBy:   userId,
	}
	if err := config.GetDB().WithContext(ctx).Create(&expense).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

func ListCollectionExpenses(ctx context.Context, creditId int) (*CollectionExpenseList, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	var expenses []*CollectionExpense
	if err := config.GetDB().WithContext(ctx).
		Where("business_id = ? AND credit_id = ?", businessId, creditId).
		Order("expense_date DESC, id DESC").Find(&expenses).Error; err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return &CollectionExpenseList{Expenses: expenses, Total: total}, nil
}
