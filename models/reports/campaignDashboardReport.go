package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stive2025/collapi-sub001/config"
	"github.com/stive2025/collapi-sub001/utils"
)

type AgentMetricsRow struct {
	UserId  int          `json:"user_id"`
	Name    string       `json:"name"`
	Metrics AgentMetrics `json:"metrics"`
}

type CampaignDashboardResponse struct {
	CampaignId   int               `json:"campaign_id"`
	CampaignName string            `json:"campaign_name"`
	BeginTime    time.Time         `json:"begin_time"`
	EndTime      time.Time         `json:"end_time"`
	Date         string            `json:"date"`
	GeneratedAt  time.Time         `json:"generated_at"`
	Agents       []AgentMetricsRow `json:"agents"`
	Totals       AgentMetrics      `json:"totals"`
}

/*
caches:
	CampaignDashboard:$businessId:$campaignId:$localDate
*/

// GetCampaignDashboard computes the metrics of every agent in the campaign's snapshot.
// It returns utils.ErrorRecordNotFound when the campaign does not exist.
func GetCampaignDashboard(ctx context.Context, store DashboardStore, campaignId int, now time.Time) (*CampaignDashboardResponse, error) {
	ctx, span := tracer.Start(ctx, "GetCampaignDashboard")
	defer span.End()
	started := time.Now()

	campaign, err := store.FindCampaign(ctx, campaignId)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, utils.ErrorRecordNotFound
	}
	loc, err := store.BusinessLocation(ctx, campaign.BusinessId)
	if err != nil {
		return nil, err
	}
	localDate := now.In(loc).Format("2006-01-02")

	cacheKey := fmt.Sprintf("CampaignDashboard:%s:%d:%s", campaign.BusinessId, campaign.ID, localDate)
	if config.MetricsCacheEnabled() {
		var cached CampaignDashboardResponse
		if ok, err := cacheGet(cacheKey, &cached); err == nil && ok {
			return &cached, nil
		} else if err != nil {
			config.LogError(config.GetLogger(), "Reports", "GetCampaignDashboard", "cache read", cacheKey, err)
		}
	}

	names, err := store.UserNames(ctx, campaign.Agents)
	if err != nil {
		return nil, err
	}
	agg := NewMetricsAggregator(store)
	resp := &CampaignDashboardResponse{
		CampaignId:   campaign.ID,
		CampaignName: campaign.Name,
		BeginTime:    campaign.BeginTime,
		EndTime:      campaign.EndTime,
		Date:         localDate,
		GeneratedAt:  now.UTC(),
		Agents:       make([]AgentMetricsRow, 0, len(campaign.Agents)),
	}
	for _, userId := range campaign.Agents {
		id := campaign.ID
		m, err := agg.Compute(ctx, userId, &id, now)
		if err != nil {
			return nil, err
		}
		resp.Agents = append(resp.Agents, AgentMetricsRow{UserId: userId, Name: names[userId], Metrics: m})
		resp.Totals.Add(m)
	}

	if config.MetricsCacheEnabled() {
		if err := cacheSet(cacheKey, resp, config.MetricsCacheTTL()); err != nil {
			config.LogError(config.GetLogger(), "Reports", "GetCampaignDashboard", "cache write", cacheKey, err)
		}
	}
	logSlowReport(ctx, "CampaignDashboard", started, logrus.Fields{"campaign_id": campaignId, "agents": len(campaign.Agents)})
	return resp, nil
}
