package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stive2025/collapi-sub001/models"
	"github.com/stive2025/collapi-sub001/utils"
)

func statusOf(err error) int {
	var vErr *utils.ValidationError
	switch {
	case errors.As(err, &vErr), errors.Is(err, models.ErrPaidExceedsTotal):
		return http.StatusBadRequest
	case errors.Is(err, utils.ErrorRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, utils.ErrBusinessRequired),
		errors.Is(err, utils.ErrUserRequired),
		errors.Is(err, utils.ErrUnauthorized),
		errors.Is(err, models.ErrTokenInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrNotCampaignAgent):
		return http.StatusForbidden
	case utils.IsDuplicateKeyError(err), errors.Is(err, utils.ErrLockNotObtained):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": ...} with the status matching err.
// Internal errors are recorded on the gin context and not echoed back.
func respondError(c *gin.Context, err error) {
	status := statusOf(err)
	body := gin.H{"error": err.Error()}
	var vErr *utils.ValidationError
	if errors.As(err, &vErr) {
		body["fields"] = vErr.Fields
	}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		body = gin.H{"error": "internal error"}
	}
	c.AbortWithStatusJSON(status, body)
}

func paramId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// optionalQueryInt returns nil when the query value is absent.
func optionalQueryInt(c *gin.Context, name string) (*int, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return nil, false
	}
	return &n, true
}

func queryInt(c *gin.Context, name string, def int) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return n
}

func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return false
	}
	return true
}

type listResponse[T any] struct {
	Data  []T   `json:"data"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
}
