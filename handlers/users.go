package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stive2025/collapi-sub001/models"
)

func listUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var isActive *bool
		if raw, ok := c.GetQuery("is_active"); ok {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid is_active"})
				return
			}
			isActive = &v
		}
		users, err := models.ListUsers(c.Request.Context(), isActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

func getUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		user, err := models.GetUser(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func createUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewUser
		if !bindJSON(c, &input) {
			return
		}
		user, err := models.CreateUser(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}

func deactivateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		user, err := models.DeactivateUser(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

type newAccessTokenRequest struct {
	Name     string `json:"name"`
	TTLHours int    `json:"ttl_hours"`
}

type newAccessTokenResponse struct {
	Token       string              `json:"token"`
	AccessToken *models.AccessToken `json:"access_token"`
}

func createAccessTokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		var req newAccessTokenRequest
		if !bindJSON(c, &req) {
			return
		}
		if req.TTLHours < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "ttl_hours cannot be negative"})
			return
		}
		plain, token, err := models.CreateAccessToken(c.Request.Context(), id, req.Name, time.Duration(req.TTLHours)*time.Hour)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, newAccessTokenResponse{Token: plain, AccessToken: token})
	}
}

func revokeAccessTokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		token, err := models.RevokeAccessToken(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, token)
	}
}
