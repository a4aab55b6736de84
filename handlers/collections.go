package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stive2025/collapi-sub001/models"
)

func createManagementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewManagement
		if !bindJSON(c, &input) {
			return
		}
		management, err := models.CreateManagement(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, management)
	}
}

func createCollectionCallHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCollectionCall
		if !bindJSON(c, &input) {
			return
		}
		call, err := models.CreateCollectionCall(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, call)
	}
}

func createAgreementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewAgreement
		if !bindJSON(c, &input) {
			return
		}
		agreement, err := models.CreateAgreement(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, agreement)
	}
}

func getAgreementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		agreement, err := models.GetAgreement(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, agreement)
	}
}

type agreementStatusRequest struct {
	Status models.AgreementStatus `json:"status"`
}

func updateAgreementStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		var req agreementStatusRequest
		if !bindJSON(c, &req) {
			return
		}
		agreement, err := models.UpdateAgreementStatus(c.Request.Context(), id, req.Status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, agreement)
	}
}

func createCondonationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCondonation
		if !bindJSON(c, &input) {
			return
		}
		condonation, err := models.CreateCondonation(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, condonation)
	}
}

func reviewCondonationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		var input models.CondonationReview
		if !bindJSON(c, &input) {
			return
		}
		condonation, err := models.ReviewCondonation(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, condonation)
	}
}

func createCollectionExpenseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCollectionExpense
		if !bindJSON(c, &input) {
			return
		}
		expense, err := models.CreateCollectionExpense(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, expense)
	}
}
