package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stive2025/collapi-sub001/config"
	"github.com/stive2025/collapi-sub001/models"
	"github.com/stive2025/collapi-sub001/utils"
)

type SessionResolver func(ctx context.Context, token string, now time.Time) (*models.Session, error)

const sessionKey = "session"

func SessionMiddleware() gin.HandlerFunc {
	return SessionMiddlewareWith(models.ResolveAccessToken)
}

// SessionMiddlewareWith resolves the request token and puts the tenant and user into the request context.
// Requests without a token pass through anonymously.
func SessionMiddlewareWith(resolve SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c.Request)
		if token == "" {
			c.Next()
			return
		}
		session, err := resolve(c.Request.Context(), token, time.Now())
		if err != nil {
			if !errors.Is(err, models.ErrTokenInvalid) {
				config.LogError(config.GetLogger(), "SessionMiddleware", "resolve", c.Request.URL.Path, nil, err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetBusinessIdInContext(ctx, session.BusinessId)
		ctx = utils.SetUserIdInContext(ctx, session.UserId)
		ctx = utils.SetUsernameInContext(ctx, session.Username)
		ctx = utils.SetUserRoleInContext(ctx, string(session.Role))
		c.Request = c.Request.WithContext(ctx)
		c.Set(sessionKey, session)
		c.Next()
	}
}

// extractToken reads the "token" header first, then an Authorization bearer.
func extractToken(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get("token")); token != "" {
		return token
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	const bearer = "bearer "
	if len(auth) > len(bearer) && strings.EqualFold(auth[:len(bearer)], bearer) {
		return strings.TrimSpace(auth[len(bearer):])
	}
	return ""
}

func GetSession(c *gin.Context) (*models.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	session, ok := v.(*models.Session)
	return session, ok && session != nil
}

// RequireSession rejects anonymous requests.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetSession(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// RequireRole allows only sessions holding one of roles.
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := GetSession(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		for _, r := range roles {
			if session.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}
