package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stive2025/collapi-sub001/config"
	"github.com/stive2025/collapi-sub001/models"
	"github.com/stive2025/collapi-sub001/models/reports"
	"github.com/stive2025/collapi-sub001/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// MetricsDeps are the collaborators of the metrics endpoints.
type MetricsDeps struct {
	Store      func() reports.DashboardStore
	LookupUser func(ctx context.Context, id int) (*models.User, error)
	Now        func() time.Time
}

// DefaultMetricsDeps reads from the shared database connection.
func DefaultMetricsDeps() MetricsDeps {
	return MetricsDeps{
		Store: func() reports.DashboardStore {
			return reports.NewGormMetricsStore(config.GetDB())
		},
		LookupUser: models.GetUser,
		Now:        time.Now,
	}
}

type metricsResponse struct {
	UserId     int                  `json:"user_id"`
	CampaignId *int                 `json:"campaign_id"`
	ComputedAt time.Time            `json:"computed_at"`
	Metrics    reports.AgentMetrics `json:"metrics"`
}

func computeMetrics(c *gin.Context, deps MetricsDeps, userId int) {
	campaignId, ok := optionalQueryInt(c, "campaign_id")
	if !ok {
		return
	}
	now := deps.Now()
	m, err := reports.NewMetricsAggregator(deps.Store()).Compute(c.Request.Context(), userId, campaignId, now)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, metricsResponse{
		UserId:     userId,
		CampaignId: campaignId,
		ComputedAt: now.UTC(),
		Metrics:    m,
	})
}

// myMetricsHandler serves the calling agent's counters for ?campaign_id=.
func myMetricsHandler(deps MetricsDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, ok := utils.GetUserIdFromContext(c.Request.Context())
		if !ok {
			respondError(c, utils.ErrUserRequired)
			return
		}
		computeMetrics(c, deps, userId)
	}
}

func userMetricsHandler(deps MetricsDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		if _, err := deps.LookupUser(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		computeMetrics(c, deps, id)
	}
}

func campaignDashboardHandler(deps MetricsDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		d, err := reports.GetCampaignDashboard(c.Request.Context(), deps.Store(), id, deps.Now())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	}
}

func campaignDashboardExportHandler(deps MetricsDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		d, err := reports.GetCampaignDashboard(c.Request.Context(), deps.Store(), id, deps.Now())
		if err != nil {
			respondError(c, err)
			return
		}
		data, err := reports.ExportCampaignDashboardExcel(d)
		if err != nil {
			respondError(c, err)
			return
		}
		filename := fmt.Sprintf("campaign-%d-%s.xlsx", d.CampaignId, d.Date)
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.Data(http.StatusOK, xlsxContentType, data)
	}
}
