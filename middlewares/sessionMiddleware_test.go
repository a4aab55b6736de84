package middlewares

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stive2025/collapi-sub001/models"
	"github.com/stive2025/collapi-sub001/utils"
)

func TestExtractToken(t *testing.T) {
	cases := []struct {
		name   string
		header map[string]string
		want   string
	}{
		{name: "none", want: ""},
		{name: "token header", header: map[string]string{"token": "abc"}, want: "abc"},
		{name: "bearer", header: map[string]string{"Authorization": "Bearer xyz"}, want: "xyz"},
		{name: "bearer lowercase", header: map[string]string{"Authorization": "bearer xyz"}, want: "xyz"},
		{name: "token header wins", header: map[string]string{"token": "abc", "Authorization": "Bearer xyz"}, want: "abc"},
		{name: "basic auth ignored", header: map[string]string{"Authorization": "Basic Zm9v"}, want: ""},
		{name: "empty bearer", header: map[string]string{"Authorization": "Bearer "}, want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.header {
				req.Header.Set(k, v)
			}
			if got := extractToken(req); got != tc.want {
				t.Fatalf("extractToken=%q want %q", got, tc.want)
			}
		})
	}
}

func newTestRouter(resolve SessionResolver, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SessionMiddlewareWith(resolve))
	handlers := append(extra, func(c *gin.Context) {
		businessId, _ := utils.GetBusinessIdFromContext(c.Request.Context())
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"business_id": businessId, "user_id": userId})
	})
	r.GET("/x", handlers...)
	return r
}

func agentSession(ctx context.Context, token string, now time.Time) (*models.Session, error) {
	if token != "good" {
		return nil, models.ErrTokenInvalid
	}
	return &models.Session{UserId: 5, BusinessId: "biz", Username: "ana", Role: models.UserRoleAgent}, nil
}

func serve(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if token != "" {
		req.Header.Set("token", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSessionMiddleware(t *testing.T) {
	r := newTestRouter(agentSession)

	if w := serve(r, "good"); w.Code != http.StatusOK || w.Body.String() != `{"business_id":"biz","user_id":5}` {
		t.Fatalf("valid token: code=%d body=%s", w.Code, w.Body.String())
	}
	if w := serve(r, "bad"); w.Code != http.StatusUnauthorized {
		t.Fatalf("invalid token: code=%d", w.Code)
	}
	if w := serve(r, ""); w.Code != http.StatusOK {
		t.Fatalf("anonymous should pass through: code=%d", w.Code)
	}
}

func TestSessionMiddlewareResolverFailure(t *testing.T) {
	r := newTestRouter(func(ctx context.Context, token string, now time.Time) (*models.Session, error) {
		return nil, errors.New("db down")
	})
	if w := serve(r, "good"); w.Code != http.StatusUnauthorized {
		t.Fatalf("code=%d", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		name  string
		token string
		roles []models.UserRole
		want  int
	}{
		{name: "anonymous", token: "", roles: []models.UserRole{models.UserRoleAgent}, want: http.StatusUnauthorized},
		{name: "allowed", token: "good", roles: []models.UserRole{models.UserRoleAgent}, want: http.StatusOK},
		{name: "forbidden", token: "good", roles: []models.UserRole{models.UserRoleAdmin, models.UserRoleSupervisor}, want: http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(agentSession, RequireRole(tc.roles...))
			if w := serve(r, tc.token); w.Code != tc.want {
				t.Fatalf("code=%d want %d", w.Code, tc.want)
			}
		})
	}
}

func TestCorrelationId(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CorrelationId())
	r.GET("/x", func(c *gin.Context) {
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		c.String(http.StatusOK, cid)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(CorrelationHeader, "cid-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != "cid-1" || w.Header().Get(CorrelationHeader) != "cid-1" {
		t.Fatalf("body=%q header=%q", w.Body.String(), w.Header().Get(CorrelationHeader))
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Body.String() == "" {
		t.Fatalf("expected generated correlation id")
	}
}

func TestReadiness(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ready := false
	r := gin.New()
	r.Use(Readiness(func() bool { return ready }))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("healthz code=%d", w.Code)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("not ready code=%d", w.Code)
	}
	ready = true
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("ready code=%d", w.Code)
	}
}
