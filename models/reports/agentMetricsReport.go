package reports

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stive2025/collapi-sub001/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("collapi/reports")

// AgentMetrics is the per-user, per-campaign counter snapshot.
type AgentMetrics struct {
	AssignedCredits           int64 `json:"assigned_credits"`
	TotalManagements          int64 `json:"total_managements"`
	ManagementsToday          int64 `json:"managements_today"`
	EffectiveManagements      int64 `json:"effective_managements"`
	EffectiveManagementsToday int64 `json:"effective_managements_today"`
	PendingCredits            int64 `json:"pending_credits"`
	InProgressCredits         int64 `json:"in_progress_credits"`
	InProgressCreditsToday    int64 `json:"in_progress_credits_today"`
	CallsToday                int64 `json:"calls_today"`
	CallsTotalForCampaign     int64 `json:"calls_total_for_campaign"`
}

// Add sums every counter of o into m. The dashboard uses it to build the campaign totals row.
func (m *AgentMetrics) Add(o AgentMetrics) {
	m.AssignedCredits += o.AssignedCredits
	m.TotalManagements += o.TotalManagements
	m.ManagementsToday += o.ManagementsToday
	m.EffectiveManagements += o.EffectiveManagements
	m.EffectiveManagementsToday += o.EffectiveManagementsToday
	m.PendingCredits += o.PendingCredits
	m.InProgressCredits += o.InProgressCredits
	m.InProgressCreditsToday += o.InProgressCreditsToday
	m.CallsToday += o.CallsToday
	m.CallsTotalForCampaign += o.CallsTotalForCampaign
}

// MetricsAggregator is stateless apart from its store and safe for concurrent use.
type MetricsAggregator struct {
	store MetricsStore
}

func NewMetricsAggregator(store MetricsStore) *MetricsAggregator {
	return &MetricsAggregator{store: store}
}

// DayBounds returns the UTC bounds of the local calendar day containing now.
func DayBounds(now time.Time, loc *time.Location) TimeRange {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return TimeRange{Start: start.UTC(), End: start.AddDate(0, 0, 1).UTC()}
}

// Compute returns the ten counters for userId within campaignId, evaluated at now.
// A nil or unknown campaign yields a zero snapshot. Store errors are returned unchanged.
func (a *MetricsAggregator) Compute(ctx context.Context, userId int, campaignId *int, now time.Time) (AgentMetrics, error) {
	ctx, span := tracer.Start(ctx, "MetricsAggregator.Compute")
	defer span.End()
	started := time.Now()
	span.SetAttributes(attribute.Int("user_id", userId))

	var m AgentMetrics
	if campaignId == nil {
		return m, nil
	}
	span.SetAttributes(attribute.Int("campaign_id", *campaignId))

	m, err := a.compute(ctx, userId, *campaignId, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return AgentMetrics{}, err
	}
	logSlowReport(ctx, "AgentMetrics", started, logrus.Fields{"user_id": userId, "campaign_id": *campaignId})
	return m, nil
}

func (a *MetricsAggregator) compute(ctx context.Context, userId int, campaignId int, now time.Time) (AgentMetrics, error) {
	var m AgentMetrics
	campaign, err := a.store.FindCampaign(ctx, campaignId)
	if err != nil {
		return m, err
	}
	if campaign == nil {
		return m, nil
	}
	loc, err := a.store.BusinessLocation(ctx, campaign.BusinessId)
	if err != nil {
		return m, err
	}
	today := DayBounds(now, loc)

	counters := []struct {
		dest  *int64
		count func() (int64, error)
	}{
		{&m.AssignedCredits, func() (int64, error) {
			return a.store.CountCredits(ctx, CreditCountFilter{BusinessId: campaign.BusinessId, UserId: userId})
		}},
		{&m.TotalManagements, func() (int64, error) {
			return a.store.CountManagements(ctx, ManagementCountFilter{UserId: userId, CampaignId: campaignId})
		}},
		{&m.ManagementsToday, func() (int64, error) {
			return a.store.CountManagements(ctx, ManagementCountFilter{UserId: userId, CampaignId: campaignId, CreatedIn: &today})
		}},
		{&m.EffectiveManagements, func() (int64, error) {
			return a.store.CountManagements(ctx, ManagementCountFilter{UserId: userId, CampaignId: campaignId, States: models.EffectiveManagementStates})
		}},
		{&m.EffectiveManagementsToday, func() (int64, error) {
			return a.store.CountManagements(ctx, ManagementCountFilter{UserId: userId, CampaignId: campaignId, States: models.EffectiveManagementStates, CreatedIn: &today})
		}},
		{&m.PendingCredits, func() (int64, error) {
			return a.store.CountCredits(ctx, CreditCountFilter{BusinessId: campaign.BusinessId, UserId: userId, Tray: models.ManagementTrayPending})
		}},
		{&m.InProgressCredits, func() (int64, error) {
			return a.store.CountCredits(ctx, CreditCountFilter{BusinessId: campaign.BusinessId, UserId: userId, Tray: models.ManagementTrayInProgress})
		}},
		{&m.InProgressCreditsToday, func() (int64, error) {
			return a.store.CountCredits(ctx, CreditCountFilter{BusinessId: campaign.BusinessId, UserId: userId, Tray: models.ManagementTrayInProgress, SyncedIn: &today})
		}},
		{&m.CallsToday, func() (int64, error) {
			return a.store.CountCalls(ctx, CallCountFilter{UserId: userId, CreatedIn: &today})
		}},
		{&m.CallsTotalForCampaign, func() (int64, error) {
			return a.store.CountCalls(ctx, CallCountFilter{UserId: userId, BusinessId: campaign.BusinessId})
		}},
	}
	for _, c := range counters {
		n, err := c.count()
		if err != nil {
			return AgentMetrics{}, err
		}
		if n < 0 {
			n = 0
		}
		*c.dest = n
	}
	return m, nil
}
