package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// FeedClaim is the credential presented to the real-time notification feed.
type FeedClaim struct {
	UserID     int    `json:"user_id"`
	BusinessID string `json:"business_id"`
	Role       string `json:"role"`
	jwt.StandardClaims
}

func feedSecret() []byte {
	secret := os.Getenv("FEED_AUTH_SECRET")
	if secret == "" {
		secret = "collapi-feed-secret"
	}
	return []byte(secret)
}

func feedTokenLifespan() time.Duration {
	hours, err := strconv.Atoi(os.Getenv("FEED_TOKEN_HOUR_LIFESPAN"))
	if err != nil || hours <= 0 {
		hours = 12
	}
	return time.Duration(hours) * time.Hour
}

func FeedTokenGenerate(userID int, businessID string, role string, now time.Time) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &FeedClaim{
		UserID:     userID,
		BusinessID: businessID,
		Role:       role,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(feedTokenLifespan()).Unix(),
			IssuedAt:  now.Unix(),
		},
	})
	return t.SignedString(feedSecret())
}

func FeedTokenValidate(token string) (*FeedClaim, error) {
	parsed, err := jwt.ParseWithClaims(token, &FeedClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return feedSecret(), nil
	})
	if err != nil {
		return nil, err
	}
	claim, ok := parsed.Claims.(*FeedClaim)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid feed token")
	}
	return claim, nil
}

// HashToken returns the hex sha256 of an opaque access token; only hashes are persisted.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
