package models

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/stive2025/collapi-sub001/config"
	"github.com/stive2025/collapi-sub001/utils"
	"gorm.io/gorm"
)

// AccessToken is an opaque API token; only its sha256 is stored.
type AccessToken struct {
	ID         int        `gorm:"primary_key" json:"id"`
	BusinessId string     `gorm:"index;size:36;not null" json:"business_id"`
	UserId     int        `gorm:"index;not null" json:"user_id"`
	Name       string     `gorm:"size:100" json:"name"`
	TokenHash  string     `gorm:"size:64;not null;uniqueIndex" json:"-"`
	ExpiresAt  *time.Time `json:"expires_at"`
	RevokedAt  *time.Time `json:"revoked_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// Session is what a resolved token grants to a request.
type Session struct {
	TokenId    int        `json:"token_id"`
	UserId     int        `json:"user_id"`
	BusinessId string     `json:"business_id"`
	Username   string     `json:"username"`
	Role       UserRole   `json:"role"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

var ErrTokenInvalid = errors.New("access token is invalid, revoked or expired")

/*
caches:
	Session:$tokenHash
*/

func newOpaqueToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// CreateAccessToken issues a token for a user of the business in ctx and returns its plain text once.
func CreateAccessToken(ctx context.Context, userId int, name string, ttl time.Duration) (string, *AccessToken, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return "", nil, err
	}
	user, err := utils.FetchModel[User](ctx, businessId, userId)
	if err != nil {
		return "", nil, err
	}
	if !user.Active() {
		return "", nil, utils.NewValidationError("user_id", "inactive")
	}
	plain, err := newOpaqueToken()
	if err != nil {
		return "", nil, err
	}
	token := AccessToken{
		BusinessId: businessId,
		UserId:     userId,
		Name:       name,
		TokenHash:  utils.HashToken(plain),
	}
	if ttl > 0 {
		exp := time.Now().UTC().Add(ttl)
		token.ExpiresAt = &exp
	}
	if err := config.GetDB().WithContext(ctx).Create(&token).Error; err != nil {
		return "", nil, err
	}
	return plain, &token, nil
}

// ResolveAccessToken looks the token up by hash, cached in redis for a short while.
func ResolveAccessToken(ctx context.Context, plain string, now time.Time) (*Session, error) {
	if plain == "" {
		return nil, ErrTokenInvalid
	}
	hash := utils.HashToken(plain)

	cached, err := utils.RetrieveRedis[Session](hash)
	if err != nil {
		config.LogError(config.GetLogger(), "AccessToken", "ResolveAccessToken", "read session cache", nil, err)
	}
	if cached != nil {
		if cached.ExpiresAt != nil && !now.Before(*cached.ExpiresAt) {
			return nil, ErrTokenInvalid
		}
		return cached, nil
	}

	// the token decides the tenant, so the lookup runs unscoped
	dbCtx := utils.SetSkipTenantScopeInContext(ctx, true)
	db := config.GetDB().WithContext(dbCtx)

	var token AccessToken
	if err := db.Where("token_hash = ?", hash).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	if token.RevokedAt != nil || (token.ExpiresAt != nil && !now.Before(*token.ExpiresAt)) {
		return nil, ErrTokenInvalid
	}
	var user User
	if err := db.Where("id = ? AND business_id = ?", token.UserId, token.BusinessId).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	if !user.Active() {
		return nil, ErrTokenInvalid
	}

	session := Session{
		TokenId:    token.ID,
		UserId:     user.ID,
		BusinessId: token.BusinessId,
		Username:   user.Username,
		Role:       user.Role,
		ExpiresAt:  token.ExpiresAt,
	}
	if err := db.Model(&token).Update("last_used_at", now.UTC()).Error; err != nil {
		config.LogError(config.GetLogger(), "AccessToken", "ResolveAccessToken", "touch last_used_at", token.ID, err)
	}
	if err := utils.StoreRedis(&session, config.TokenCacheTTL(), hash); err != nil {
		config.LogError(config.GetLogger(), "AccessToken", "ResolveAccessToken", "write session cache", token.ID, err)
	}
	return &session, nil
}

func RevokeAccessToken(ctx context.Context, id int) (*AccessToken, error) {
	businessId, err := utils.RequireBusinessId(ctx)
	if err != nil {
		return nil, err
	}
	token, err := utils.FetchModel[AccessToken](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if token.RevokedAt == nil {
		now := time.Now().UTC()
		if err := config.GetDB().WithContext(ctx).Model(token).Update("revoked_at", now).Error; err != nil {
			return nil, err
		}
		token.RevokedAt = &now
	}
	if err := utils.RemoveRedisItem[Session](token.TokenHash); err != nil {
		return nil, err
	}
	return token, nil
}

func clearSessionCacheForUser(ctx context.Context, userId int) error {
	var hashes []string
	if err := config.GetDB().WithContext(ctx).Model(&AccessToken{}).
		Where("user_id = ?", userId).Pluck("token_hash", &hashes).Error; err != nil {
		return err
	}
	for _, h := range hashes {
		if err := utils.RemoveRedisItem[Session](h); err != nil {
			return err
		}
	}
	return nil
}
