package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stive2025/collapi-sub001/models"
)

func listCampaignsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page := queryInt(c, "page", 1)
		campaigns, total, err := models.ListCampaigns(c.Request.Context(), page, queryInt(c, "limit", 0))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, listResponse[*models.Campaign]{Data: campaigns, Total: total, Page: page})
	}
}

func activeCampaignsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		campaigns, err := models.GetActiveCampaigns(c.Request.Context(), time.Now())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, campaigns)
	}
}

func getCampaignHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		campaign, err := models.GetCampaign(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, campaign)
	}
}

func createCampaignHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCampaign
		if !bindJSON(c, &input) {
			return
		}
		campaign, err := models.CreateCampaign(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, campaign)
	}
}

type campaignAgentsRequest struct {
	Agents []int `json:"agents"`
}

func updateCampaignAgentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		var req campaignAgentsRequest
		if !bindJSON(c, &req) {
			return
		}
		campaign, err := models.UpdateCampaignAgents(c.Request.Context(), id, req.Agents)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, campaign)
	}
}
