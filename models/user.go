package models

import (
	"context"
	"strings"
	"time"

	"github.com/stive2025/collapi-sub001/config"
	"github.com/stive2025/collapi-sub001/utils"
)

type User struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;size:36;not null" json:"business_id"`
	Username   string    `gorm:"size:100;not null;unique" json:"username"`
	Name       string    `gorm:"size:100;not null" json:"name"`
	Email      *string   `gorm:"size:100;unique" json:"email"`
	Phone      string    `gorm:"size:20" json:"phone"`
	Extension  string    `gorm:"size:10" json:"extension"`
	Role       UserRole  `gorm:"size:20;not null;default:AGENT" json:"role"`
	IsActive   *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Username  string   `json:"username" validate:"required,max=100"`
	Name      string   `json:"name" validate:"required,max=100"`
	Email     string   `json:"email" validate:"omitempty,email"`
	Phone     string   `json:"phone"`
	Extension string   `json:"extension" validate:"max=10"`
	Role      UserRole `json:"role" validate:"required"`
}

func (u User) Active() bool {
	return u.IsActive != nil && *u.IsActive
}

// CreateUser provisions a user in the business of ctx.
func CreateUser(ctx context.Context, input *NewUser) (*User, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if !input.Role.IsValid() {
		return nil, utils.NewValidationError("role", "invalid")
	}
	username := strings.ToLower(strings.TrimSpace(input.Username))
	if err := utils.ValidateUnique[User](ctx, "", "username", username, 0); err != nil {
		return nil, err
	}
	user := User{
		BusinessId: businessId,
		Username:   username,
		Name:       input.Name,
		Email:      utils.NilIfEmpty(input.Email),
		Phone:      input.Phone,
		Extension:  input.Extension,
		Role:       input.Role,
		IsActive:   utils.NewTrue(),
	}
	if err := config.GetDB().WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[User](ctx, businessId, id)
}

func ListUsers(ctx context.Context, isActive *bool) ([]*User, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	dbCtx := config.GetDB().WithContext(ctx).Where("business_id = ?", businessId)
	if isActive != nil {
		dbCtx = dbCtx.Where("is_active = ?", *isActive)
	}
	var users []*User
	if err := dbCtx.Order("name").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// DeactivateUser keeps the row and its history, revoking every access token it holds.
func DeactivateUser(ctx context.Context, id int) (*User, error) {
	user, err := GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	tx := config.GetDB().WithContext(ctx).Begin()
	if err := tx.Model(user).Update("is_active", false).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Model(&AccessToken{}).
		Where("user_id = ? AND revoked_at IS NULL", user.ID).
		Update("revoked_at", time.Now().UTC()).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	user.IsActive = utils.NewFalse()
	if err := clearSessionCacheForUser(ctx, user.ID); err != nil {
		config.LogError(config.GetLogger(), "Users", "DeactivateUser", "clear session cache", user.ID, err)
	}
	return user, nil
}

// activeUserIds returns those ids that are active users of the business.
func activeUserIds(ctx context.Context, businessId string, ids []int) ([]int, error) {
	var found []int
	if len(ids) == 0 {
		return found, nil
	}
	err := config.GetDB().WithContext(ctx).Model(&User{}).
		Where("business_id = ? AND is_active = ? AND id IN ?", businessId, true, ids).
		Pluck("id", &found).Error
	return found, err
}
