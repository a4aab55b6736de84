package models

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stive2025/collapi-sub001/config"
	"github.com/stive2025/collapi-sub001/utils"
	"gorm.io/gorm"
)

type Business struct {
	ID          uuid.UUID `gorm:"type:char(36);primary_key" json:"id"`
	Name        string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Email       string    `gorm:"size:255" json:"email"`
	Phone       string    `gorm:"size:20" json:"phone"`
	Address     string    `gorm:"type:text" json:"address"`
	CountryCode string    `gorm:"size:2;default:EC" json:"country_code"`
	Timezone    string    `gorm:"size:50" json:"timezone"`
	IsActive    *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBusiness struct {
	Name        string `json:"name" validate:"required,max=100"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	CountryCode string `json:"country_code" validate:"omitempty,len=2"`
	Timezone    string `json:"timezone"`
}

func (b *Business) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Location is the zone used to compute calendar days for this business.
func (b *Business) Location() *time.Location {
	if b != nil && b.Timezone != "" {
		if loc, err := time.LoadLocation(b.Timezone); err == nil {
			return loc
		}
	}
	loc, err := time.LoadLocation(config.MetricsDefaultTimezone())
	if err != nil {
		return time.UTC
	}
	return loc
}

func GetBusinessById(ctx context.Context, businessId string) (*Business, error) {
	var business Business
	err := config.GetDB().WithContext(ctx).Where("id = ?", businessId).First(&business).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &business, nil
}

func CreateBusiness(ctx context.Context, input *NewBusiness) (*Business, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if input.Timezone != "" {
		if _, err := time.LoadLocation(input.Timezone); err != nil {
			return nil, utils.NewValidationError("timezone", "unknown timezone")
		}
	}
	business := Business{
		Name:        input.Name,
		Email:       input.Email,
		Phone:       input.Phone,
		Address:     input.Address,
		CountryCode: strings.ToUpper(input.CountryCode),
		Timezone:    input.Timezone,
		IsActive:    utils.NewTrue(),
	}
	if business.CountryCode == "" {
		business.CountryCode = utils.DefaultRegion
	}
	if err := config.GetDB().WithContext(ctx).Create(&business).Error; err != nil {
		return nil, err
	}
	return &business, nil
}
