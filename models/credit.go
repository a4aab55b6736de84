package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stive2025/collapi-sub001/config"
	"github.com/stive2025/collapi-sub001/utils"
	"gorm.io/gorm"
)

// Credit is a loan under collection. Fee counters are the source of truth for balance state.
type Credit struct {
	ID               int             `gorm:"primary_key" json:"id"`
	BusinessId       string          `gorm:"index:idx_credit_sync,unique;index:idx_credit_user;size:36;not null" json:"business_id"`
	SyncId           string          `gorm:"index:idx_credit_sync,unique;size:64;not null" json:"sync_id"`
	ClientId         int             `gorm:"index;not null" json:"client_id"`
	Client           *Client         `gorm:"foreignKey:ClientId" json:"client,omitempty"`
	UserId           *int            `gorm:"index:idx_credit_user" json:"user_id"`
	Code             string          `gorm:"size:50" json:"code"`
	Amount           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	PendingAmount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"pending_amount"`
	TotalFees        int             `gorm:"not null;default:0" json:"total_fees"`
	PaidFees         int             `gorm:"not null;default:0" json:"paid_fees"`
	PendingFees      int             `gorm:"not null;default:0" json:"pending_fees"`
	DaysPastDue      int             `gorm:"not null;default:0" json:"days_past_due"`
	NextDueDate      *time.Time      `json:"next_due_date"`
	ManagementTray   ManagementTray  `gorm:"size:20;not null;default:PENDING;index" json:"management_tray"`
	ManagementStatus string          `gorm:"size:100" json:"management_status"`
	LastSyncDate     *time.Time      `gorm:"index" json:"last_sync_date"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCredit struct {
	SyncId        string          `json:"sync_id" validate:"required,max=64"`
	ClientId      int             `json:"client_id" validate:"required"`
	UserId        *int            `json:"user_id"`
	Code          string          `json:"code" validate:"max=50"`
	Amount        decimal.Decimal `json:"amount"`
	PendingAmount decimal.Decimal `json:"pending_amount"`
	TotalFees     int             `json:"total_fees" validate:"gte=0"`
	PaidFees      int             `json:"paid_fees" validate:"gte=0"`
	DaysPastDue   int             `json:"days_past_due" validate:"gte=0"`
	NextDueDate   *time.Time      `json:"next_due_date"`
}

type CreditFilter struct {
	UserId   *int
	ClientId *int
	Tray     ManagementTray
	Page     int
	Limit    int
}

// CreditSyncInput is one row pushed by the core lending system.
type CreditSyncInput struct {
	SyncId               string          `json:"sync_id" validate:"required,max=64"`
	ClientIdentification string          `json:"client_identification" validate:"required,max=20"`
	ClientName           string          `json:"client_name" validate:"required,max=150"`
	ClientPhone          string          `json:"client_phone"`
	Code                 string          `json:"code" validate:"max=50"`
	Amount               decimal.Decimal `json:"amount"`
	PendingAmount        decimal.Decimal `json:"pending_amount"`
	TotalFees            int             `json:"total_fees" validate:"gte=0"`
	PaidFees             int             `json:"paid_fees" validate:"gte=0"`
	DaysPastDue          int             `json:"days_past_due" validate:"gte=0"`
	NextDueDate          *time.Time      `json:"next_due_date"`
}

type CreditSyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

var ErrPaidExceedsTotal = errors.New("paid_fees cannot exceed total_fees")

// PendingFees keeps paid + pending == total.
func PendingFees(totalFees, paidFees int) (int, error) {
	if totalFees < 0 || paidFees < 0 {
		return 0, errors.New("fee counters cannot be negative")
	}
	if paidFees > totalFees {
		return 0, ErrPaidExceedsTotal
	}
	return totalFees - paidFees, nil
}

func (c *Credit) BeforeSave(tx *gorm.DB) error {
	pending, err := PendingFees(c.TotalFees, c.PaidFees)
	if err != nil {
		return err
	}
	c.PendingFees = pending
	if c.ManagementTray == "" {
		c.ManagementTray = ManagementTrayPending
	}
	return nil
}

func (c Credit) GetBusinessId() string {
	return c.BusinessId
}

func CreateCredit(ctx context.Context, input *NewCredit) (*Credit, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if _, err := PendingFees(input.TotalFees, input.PaidFees); err != nil {
		return nil, utils.NewValidationError("paid_fees", err.Error())
	}
	if err := utils.ValidateResourceId[Client](ctx, businessId, input.ClientId); err != nil {
		return nil, utils.NewValidationError("client_id", "not found")
	}
	if input.UserId != nil {
		if err := validateAssignee(ctx, businessId, *input.UserId); err != nil {
			return nil, err
		}
	}
	if err := utils.ValidateUnique[Credit](ctx, businessId, "sync_id", input.SyncId, 0); err != nil {
		return nil, err
	}
	credit := Credit{
		BusinessId:     businessId,
		SyncId:         input.SyncId,
		ClientId:       input.ClientId,
		UserId:         input.UserId,
		Code:           input.Code,
		Amount:         input.Amount,
		PendingAmount:  input.PendingAmount,
		TotalFees:      input.TotalFees,
		PaidFees:       input.PaidFees,
		DaysPastDue:    input.DaysPastDue,
		NextDueDate:    input.NextDueDate,
		ManagementTray: ManagementTrayPending,
	}
	if err := config.GetDB().WithContext(ctx).Create(&credit).Error; err != nil {
		return nil, err
	}
	return &credit, nil
}

func GetCredit(ctx context.Context, id int) (*Credit, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Credit](ctx, businessId, id, "Client")
}

func ListCredits(ctx context.Context, filter CreditFilter) ([]*Credit, int64, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, 0, err
	}
	dbCtx := config.GetDB().WithContext(ctx).Model(&Credit{}).Where("business_id = ?", businessId)
	if filter.UserId != nil {
		dbCtx = dbCtx.Where("user_id = ?", *filter.UserId)
	}
	if filter.ClientId != nil {
		dbCtx = dbCtx.Where("client_id = ?", *filter.ClientId)
	}
	if filter.Tray != "" {
		if !filter.Tray.IsValid() {
			return nil, 0, utils.NewValidationError("tray", "invalid")
		}
		dbCtx = dbCtx.Where("management_tray = ?", filter.Tray)
	}
	var total int64
	if err := dbCtx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var credits []*Credit
	if err := dbCtx.Scopes(utils.Paginate(filter.Page, filter.Limit)).
		Preload("Client").Order("days_past_due DESC, id").Find(&credits).Error; err != nil {
		return nil, 0, err
	}
	return credits, total, nil
}

func validateAssignee(ctx context.Context, businessId string, userId int) error {
	found, err := activeUserIds(ctx, businessId, []int{userId})
	if err != nil {
		return err
	}
	if len(found) != 1 {
		return utils.NewValidationError("user_id", "not an active user of this business")
	}
	return nil
}

// AssignCredits sets the owning agent of the given credits.
func AssignCredits(ctx context.Context, userId int, creditIds []int) (int64, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return 0, err
	}
	if err := validateAssignee(ctx, businessId, userId); err != nil {
		return 0, err
	}
	ids := utils.UniqueSlice(creditIds)
	if len(ids) == 0 {
		return 0, utils.NewValidationError("credit_ids", "required")
	}
	if err := utils.ValidateResourcesId[Credit](ctx, businessId, ids); err != nil {
		return 0, utils.NewValidationError("credit_ids", "not found")
	}
	res := config.GetDB().WithContext(ctx).Model(&Credit{}).
		Where("business_id = ? AND id IN ?", businessId, ids).
		Update("user_id", userId)
	return res.RowsAffected, res.Error
}

func UpdateCreditManagement(ctx context.Context, id int, tray ManagementTray, status string) (*Credit, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	if !tray.IsValid() {
		return nil, utils.NewValidationError("management_tray", "invalid")
	}
	credit, err := utils.FetchModel[Credit](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if err := config.GetDB().WithContext(ctx).Model(credit).Updates(map[string]interface{}{
		"ManagementTray":   tray,
		"ManagementStatus": strings.TrimSpace(status),
	}).Error; err != nil {
		return nil, err
	}
	return credit, nil
}

// SyncCredits upserts a batch by sync_id; one sync per business runs at a time.
func SyncCredits(ctx context.Context, batch []CreditSyncInput, now time.Time) (*CreditSyncResult, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	for i := range batch {
		if err := utils.ValidateStruct(&batch[i]); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if _, err := PendingFees(batch[i].TotalFees, batch[i].PaidFees); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, utils.NewValidationError("paid_fees", err.Error()))
		}
	}

	result := &CreditSyncResult{}
	err = utils.WithBusinessLock(ctx, businessId, "CreditSync", func(ctx context.Context) error {
		return config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			syncedAt := now.UTC()
			for _, row := range batch {
				client, err := upsertSyncClient(tx, businessId, row)
				if err != nil {
					return err
				}
				var credit Credit
				err = tx.Where("business_id = ? AND sync_id = ?", businessId, row.SyncId).First(&credit).Error
				if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}
				credit.BusinessId = businessId
				credit.SyncId = row.SyncId
				credit.ClientId = client.ID
				credit.Code = row.Code
				credit.Amount = row.Amount
				credit.PendingAmount = row.PendingAmount
				credit.TotalFees = row.TotalFees
				credit.PaidFees = row.PaidFees
				credit.DaysPastDue = row.DaysPastDue
				credit.NextDueDate = row.NextDueDate
				credit.LastSyncDate = &syncedAt
				if credit.ID == 0 {
					if err := tx.Create(&credit).Error; err != nil {
						return err
					}
					result.Created++
					continue
				}
				if err := tx.Save(&credit).Error; err != nil {
					return err
				}
				result.Updated++
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func upsertSyncClient(tx *gorm.DB, businessId string, row CreditSyncInput) (*Client, error) {
	var client Client
	identification := strings.TrimSpace(row.ClientIdentification)
	err := tx.Where("business_id = ? AND identification = ?", businessId, identification).First(&client).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	client.BusinessId = businessId
	client.Identification = identification
	client.Name = row.ClientName
	if row.ClientPhone != "" {
		if p, err := utils.NormalizePhoneNumber(row.ClientPhone, ""); err == nil {
			client.Phone = p
		}
	}
	if client.ID == 0 {
		err = tx.Create(&client).Error
	} else {
		err = tx.Save(&client).Error
	}
	if err != nil {
		return nil, err
	}
	return &client, nil
}
