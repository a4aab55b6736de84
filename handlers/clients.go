package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stive2025/collapi-sub001/models"
)

func listClientsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := models.ClientFilter{
			Search: c.Query("search"),
			Page:   queryInt(c, "page", 1),
			Limit:  queryInt(c, "limit", 0),
		}
		clients, total, err := models.ListClients(c.Request.Context(), filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, listResponse[*models.Client]{Data: clients, Total: total, Page: filter.Page})
	}
}

func getClientHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		client, err := models.GetClient(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, client)
	}
}

func createClientHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewClient
		if !bindJSON(c, &input) {
			return
		}
		client, err := models.CreateClient(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, client)
	}
}

func updateClientHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		var input models.NewClient
		if !bindJSON(c, &input) {
			return
		}
		client, err := models.UpdateClient(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, client)
	}
}
