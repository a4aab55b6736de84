package models

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/stive2025/collapi-sub001/config"
	"github.com/stive2025/collapi-sub001/utils"
)

// AgentIds is the campaign's own snapshot of assigned users, stored as JSON.
type AgentIds []int

func (a AgentIds) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]int(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *AgentIds) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*a = AgentIds{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported agents value %T", value)
	}
	var ids []int
	if err := json.Unmarshal(raw, &ids); err != nil {
		return err
	}
	*a = ids
	return nil
}

func (a AgentIds) Contains(userId int) bool {
	for _, id := range a {
		if id == userId {
			return true
		}
	}
	return false
}

type Campaign struct {
	ID          int       `gorm:"primary_key" json:"id"`
	BusinessId  string    `gorm:"index;size:36;not null" json:"business_id"`
	Name        string    `gorm:"size:150;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	BeginTime   time.Time `gorm:"not null" json:"begin_time"`
	EndTime     time.Time `gorm:"not null" json:"end_time"`
	Agents      AgentIds  `gorm:"type:json" json:"agents"`
	CreatedBy   int       `json:"created_by"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCampaign struct {
	Name        string    `json:"name" validate:"required,max=150"`
	Description string    `json:"description"`
	BeginTime   time.Time `json:"begin_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required"`
	Agents      []int     `json:"agents"`
}

func (c Campaign) GetBusinessId() string {
	return c.BusinessId
}

// IsActiveAt reports whether now falls in [begin_time, end_time].
func (c Campaign) IsActiveAt(now time.Time) bool {
	return !now.Before(c.BeginTime) && !now.After(c.EndTime)
}

// normalizeAgents dedups, sorts and checks every id is an active user of the business.
func normalizeAgents(ctx context.Context, businessId string, agents []int) (AgentIds, error) {
	ids := utils.UniqueSlice(agents)
	if len(ids) == 0 {
		return AgentIds{}, nil
	}
	found, err := activeUserIds(ctx, businessId, ids)
	if err != nil {
		return nil, err
	}
	if len(found) != len(ids) {
		return nil, utils.NewValidationError("agents", "contains unknown or inactive users")
	}
	sort.Ints(ids)
	return AgentIds(ids), nil
}

func (input *NewCampaign) validate() error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if !input.BeginTime.Before(input.EndTime) {
		return utils.NewValidationError("end_time", "must be after begin_time")
	}
	return nil
}

func CreateCampaign(ctx context.Context, input *NewCampaign) (*Campaign, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	agents, err := normalizeAgents(ctx, businessId, input.Agents)
	if err != nil {
		return nil, err
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	campaign := Campaign{
		BusinessId:  businessId,
		Name:        input.Name,
		Description: input.Description,
		BeginTime:   input.BeginTime.UTC(),
		EndTime:     input.EndTime.UTC(),
		Agents:      agents,
		CreatedBy:   userId,
	}
	if err := config.GetDB().WithContext(ctx).Create(&campaign).Error; err != nil {
		return nil, err
	}
	return &campaign, nil
}

func UpdateCampaignAgents(ctx context.Context, id int, agents []int) (*Campaign, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	campaign, err := utils.FetchModel[Campaign](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	normalized, err := normalizeAgents(ctx, businessId, agents)
	if err != nil {
		return nil, err
	}
	if err := config.GetDB().WithContext(ctx).Model(campaign).Update("agents", normalized).Error; err != nil {
		return nil, err
	}
	campaign.Agents = normalized
	return campaign, nil
}

func GetCampaign(ctx context.Context, id int) (*Campaign, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Campaign](ctx, businessId, id)
}

func ListCampaigns(ctx context.Context, page, limit int) ([]*Campaign, int64, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, 0, err
	}
	dbCtx := config.GetDB().WithContext(ctx).Model(&Campaign{}).Where("business_id = ?", businessId)
	var total int64
	if err := dbCtx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var campaigns []*Campaign
	if err := dbCtx.Scopes(utils.Paginate(page, limit)).Order("begin_time DESC").Find(&campaigns).Error; err != nil {
		return nil, 0, err
	}
	return campaigns, total, nil
}

func GetActiveCampaigns(ctx context.Context, now time.Time) ([]*Campaign, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	var campaigns []*Campaign
	err = config.GetDB().WithContext(ctx).
		Where("business_id = ? AND begin_time <= ? AND end_time >= ?", businessId, now.UTC(), now.UTC()).
		Order("begin_time").Find(&campaigns).Error
	return campaigns, err
}

// FindCampaign returns nil, nil when the campaign does not exist.
func FindCampaign(ctx context.Context, id int) (*Campaign, error) {
	var campaign Campaign
	err := config.GetDB().WithContext(ctx).Where("id = ?", id).Limit(1).Find(&campaign).Error
	if err != nil {
		return nil, err
	}
	if campaign.ID == 0 {
		return nil, nil
	}
	return &campaign, nil
}

var ErrNotCampaignAgent = errors.New("user is not an agent of this campaign")
