package models

import (
	"context"
	"strings"
	"time"

	"github.com/stive2025/collapi-sub001/config"
	"github.com/stive2025/collapi-sub001/utils"
)

// Client is the debtor a credit belongs to.
type Client struct {
	ID             int       `gorm:"primary_key" json:"id"`
	BusinessId     string    `gorm:"index:idx_client_identification,unique;size:36;not null" json:"business_id"`
	Identification string    `gorm:"index:idx_client_identification,unique;size:20;not null" json:"identification"`
	Name           string    `gorm:"size:150;not null" json:"name"`
	Email          string    `gorm:"size:150" json:"email"`
	Phone          string    `gorm:"size:20" json:"phone"`
	Mobile         string    `gorm:"size:20" json:"mobile"`
	Address        string    `gorm:"type:text" json:"address"`
	City           string    `gorm:"size:100" json:"city"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewClient struct {
	Identification string `json:"identification" validate:"required,max=20"`
	Name           string `json:"name" validate:"required,max=150"`
	Email          string `json:"email" validate:"omitempty,email"`
	Phone          string `json:"phone"`
	Mobile         string `json:"mobile"`
	Address        string `json:"address"`
	City           string `json:"city" validate:"max=100"`
}

type ClientFilter struct {
	Search string
	Page   int
	Limit  int
}

func (input *NewClient) validate(ctx context.Context, businessId string, id int) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	input.Identification = strings.TrimSpace(input.Identification)
	if err := utils.ValidateUnique[Client](ctx, businessId, "identification", input.Identification, id); err != nil {
		return err
	}
	region := businessRegion(ctx, businessId)
	for field, value := range map[string]*string{"phone": &input.Phone, "mobile": &input.Mobile} {
		if *value == "" {
			continue
		}
		normalized, err := utils.NormalizePhoneNumber(*value, region)
		if err != nil {
			return utils.NewValidationError(field, "invalid phone number")
		}
		*value = normalized
	}
	return nil
}

func businessRegion(ctx context.Context, businessId string) string {
	business, err := GetBusinessById(ctx, businessId)
	if err != nil || business.CountryCode == "" {
		return utils.DefaultRegion
	}
	return business.CountryCode
}

func CreateClient(ctx context.Context, input *NewClient) (*Client, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}
	client := Client{
		BusinessId:     businessId,
		Identification: input.Identification,
		Name:           input.Name,
		Email:          input.Email,
		Phone:          input.Phone,
		Mobile:         input.Mobile,
		Address:        input.Address,
		City:           input.City,
	}
	if err := config.GetDB().WithContext(ctx).Create(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func UpdateClient(ctx context.Context, id int, input *NewClient) (*Client, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	client, err := utils.FetchModel[Client](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}
	if err := config.GetDB().WithContext(ctx).Model(client).Updates(map[string]interface{}{
		"Identification": input.Identification,
		"Name":           input.Name,
		"Email":          input.Email,
		"Phone":          input.Phone,
		"Mobile":         input.Mobile,
		"Address":        input.Address,
		"City":           input.City,
	}).Error; err != nil {
		return nil, err
	}
	return client, nil
}

func GetClient(ctx context.Context, id int) (*Client, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Client](ctx, businessId, id)
}

func ListClients(ctx context.Context, filter ClientFilter) ([]*Client, int64, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, 0, err
	}
	dbCtx := config.GetDB().WithContext(ctx).Model(&Client{}).Where("business_id = ?", businessId)
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + s + "%"
		dbCtx = dbCtx.Where("name LIKE ? OR identification LIKE ?", like, like)
	}
	var total int64
	if err := dbCtx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var clients []*Client
	if err := dbCtx.Scopes(utils.Paginate(filter.Page, filter.Limit)).Order("name").Find(&clients).Error; err != nil {
		return nil, 0, err
	}
	return clients, total, nil
}
