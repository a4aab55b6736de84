package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stive2025/collapi-sub001/models"
	"github.com/stive2025/collapi-sub001/models/reports"
	"github.com/stive2025/collapi-sub001/utils"
)

// agents only ever see their own portfolio
func listCreditsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, ok := optionalQueryInt(c, "user_id")
		if !ok {
			return
		}
		clientId, ok := optionalQueryInt(c, "client_id")
		if !ok {
			return
		}
		if role, _ := utils.GetUserRoleFromContext(c.Request.Context()); models.UserRole(role) == models.UserRoleAgent {
			self, _ := utils.GetUserIdFromContext(c.Request.Context())
			userId = &self
		}
		filter := models.CreditFilter{
			UserId:   userId,
			ClientId: clientId,
			Tray:     models.ManagementTray(c.Query("tray")),
			Page:     queryInt(c, "page", 1),
			Limit:    queryInt(c, "limit", 0),
		}
		credits, total, err := models.ListCredits(c.Request.Context(), filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, listResponse[*models.Credit]{Data: credits, Total: total, Page: filter.Page})
	}
}

func getCreditHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		credit, err := models.GetCredit(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, credit)
	}
}

func createCreditHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCredit
		if !bindJSON(c, &input) {
			return
		}
		credit, err := models.CreateCredit(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, credit)
	}
}

type assignCreditsRequest struct {
	UserId    int   `json:"user_id"`
	CreditIds []int `json:"credit_ids"`
}

type assignCreditsResponse struct {
	Assigned int64 `json:"assigned"`
}

func assignCreditsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req assignCreditsRequest
		if !bindJSON(c, &req) {
			return
		}
		n, err := models.AssignCredits(c.Request.Context(), req.UserId, req.CreditIds)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, assignCreditsResponse{Assigned: n})
	}
}

type creditManagementRequest struct {
	ManagementTray   models.ManagementTray `json:"management_tray"`
	ManagementStatus string                `json:"management_status"`
}

func updateCreditManagementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		var req creditManagementRequest
		if !bindJSON(c, &req) {
			return
		}
		credit, err := models.UpdateCreditManagement(c.Request.Context(), id, req.ManagementTray, req.ManagementStatus)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, credit)
	}
}

type syncCreditsRequest struct {
	Credits []models.CreditSyncInput `json:"credits"`
}

func syncCreditsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req syncCreditsRequest
		if !bindJSON(c, &req) {
			return
		}
		if len(req.Credits) == 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "credits is empty"})
			return
		}
		result, err := models.SyncCredits(c.Request.Context(), req.Credits, time.Now())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func creditTimeInStateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		resp, err := reports.GetCreditTimeInState(c.Request.Context(), id, time.Now())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func listCreditManagementsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		managements, err := models.ListManagements(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, managements)
	}
}

func listCreditCallsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		calls, err := models.ListCollectionCalls(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, calls)
	}
}

func listCreditExpensesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		expenses, err := models.ListCollectionExpenses(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, expenses)
	}
}
