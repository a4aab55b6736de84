// seed-admin provisions a business, its first admin user and an API access token.
// Running it again reuses the business and user and issues a fresh token.
//
// Usage (from the repository root):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//	SEED_BUSINESS_NAME="Acme Cobranzas" SEED_ADMIN_USERNAME=admin go run ./cmd/seed-admin
//
// Optional: SEED_BUSINESS_TIMEZONE, SEED_COUNTRY_CODE, SEED_TOKEN_TTL_HOURS (0 = no expiry), SEED_MIGRATE=true.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/stive2025/collapi-sub001/config"
	"github.com/stive2025/collapi-sub001/models"
	"github.com/stive2025/collapi-sub001/utils"
	"gorm.io/gorm"
)

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func findOrCreateBusiness(ctx context.Context, db *gorm.DB, name string) (*models.Business, bool, error) {
	var biz models.Business
	err := db.WithContext(ctx).Where("name = ?", name).First(&biz).Error
	if err == nil {
		return &biz, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	created, err := models.CreateBusiness(ctx, &models.NewBusiness{
		Name:        name,
		CountryCode: envOr("SEED_COUNTRY_CODE", utils.DefaultRegion),
		Timezone:    envOr("SEED_BUSINESS_TIMEZONE", config.MetricsDefaultTimezone()),
	})
	return created, true, err
}

func findOrCreateAdmin(ctx context.Context, db *gorm.DB, username string) (*models.User, bool, error) {
	var user models.User
	err := db.WithContext(ctx).Where("username = ?", strings.ToLower(username)).First(&user).Error
	if err == nil {
		if user.Role != models.UserRoleAdmin || !user.Active() {
			return nil, false, fmt.Errorf("user %q exists but is not an active admin", username)
		}
		return &user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	created, err := models.CreateUser(ctx, &models.NewUser{
		Username: username,
		Name:     envOr("SEED_ADMIN_NAME", "Administrator"),
		Role:     models.UserRoleAdmin,
	})
	return created, true, err
}

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fail("database not initialized (config.GetDB returned nil). Set DB_* env vars.")
	}
	if config.EnvBool("SEED_MIGRATE", false) {
		models.MigrateTable()
	}

	businessName := envOr("SEED_BUSINESS_NAME", "")
	if businessName == "" {
		fail("SEED_BUSINESS_NAME is required")
	}
	username := envOr("SEED_ADMIN_USERNAME", "admin")

	biz, created, err := findOrCreateBusiness(ctx, db, businessName)
	if err != nil {
		fail("failed to provision business: %v", err)
	}
	if created {
		fmt.Printf("Created business %q id=%s\n", biz.Name, biz.ID)
	}

	ctx = utils.SetBusinessIdInContext(ctx, biz.ID.String())
	user, created, err := findOrCreateAdmin(ctx, db, username)
	if err != nil {
		fail("failed to provision admin user: %v", err)
	}
	if created {
		fmt.Printf("Created admin user %q id=%d\n", user.Username, user.ID)
	}

	ttl := time.Duration(config.IntFromEnv("SEED_TOKEN_TTL_HOURS", 0)) * time.Hour
	plain, token, err := models.CreateAccessToken(ctx, user.ID, "seed-admin", ttl)
	if err != nil {
		fail("failed to issue access token: %v", err)
	}
	fmt.Printf("Issued access token id=%d for %q (shown once):\n%s\n", token.ID, user.Username, plain)
}
