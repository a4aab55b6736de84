package reports

import (
	"context"
	"errors"
	"time"

	"github.com/stive2025/collapi-sub001/models"
	"gorm.io/gorm"
)

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

type CreditCountFilter struct {
	BusinessId string
	UserId     int
	Tray       models.ManagementTray
	SyncedIn   *TimeRange
}

type ManagementCountFilter struct {
	UserId     int
	CampaignId int
	States     []models.ManagementState
	CreatedIn  *TimeRange
}

// CallCountFilter restricts calls to those whose credit belongs to BusinessId when set.
type CallCountFilter struct {
	UserId     int
	BusinessId string
	CreatedIn  *TimeRange
}

// MetricsStore is the read side the aggregator needs from the domain store.
type MetricsStore interface {
	// FindCampaign returns nil, nil when no such campaign exists.
	FindCampaign(ctx context.Context, campaignId int) (*models.Campaign, error)
	BusinessLocation(ctx context.Context, businessId string) (*time.Location, error)
	CountCredits(ctx context.Context, f CreditCountFilter) (int64, error)
	CountManagements(ctx context.Context, f ManagementCountFilter) (int64, error)
	CountCalls(ctx context.Context, f CallCountFilter) (int64, error)
}

// DashboardStore adds what the campaign dashboard needs on top of the counters.
type DashboardStore interface {
	MetricsStore
	UserNames(ctx context.Context, ids []int) (map[int]string, error)
}

type GormMetricsStore struct {
	db *gorm.DB
}

func NewGormMetricsStore(db *gorm.DB) *GormMetricsStore {
	return &GormMetricsStore{db: db}
}

func (s *GormMetricsStore) FindCampaign(ctx context.Context, campaignId int) (*models.Campaign, error) {
	var campaign models.Campaign
	err := s.db.WithContext(ctx).Where("id = ?", campaignId).First(&campaign).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &campaign, nil
}

func (s *GormMetricsStore) BusinessLocation(ctx context.Context, businessId string) (*time.Location, error) {
	var business models.Business
	err := s.db.WithContext(ctx).Where("id = ?", businessId).First(&business).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return business.Location(), nil
}

func (s *GormMetricsStore) CountCredits(ctx context.Context, f CreditCountFilter) (int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Credit{}).
		Where("business_id = ? AND user_id = ?", f.BusinessId, f.UserId)
	if f.Tray != "" {
		q = q.Where("management_tray = ?", f.Tray)
	}
	if f.SyncedIn != nil {
		q = q.Where("last_sync_date >= ? AND last_sync_date < ?", f.SyncedIn.Start, f.SyncedIn.End)
	}
	var count int64
	err := q.Count(&count).Error
	return count, err
}

func (s *GormMetricsStore) CountManagements(ctx context.Context, f ManagementCountFilter) (int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Management{}).
		Where("created_by = ? AND campaign_id = ?", f.UserId, f.CampaignId)
	if len(f.States) > 0 {
		q = q.Where("state IN ?", f.States)
	}
	if f.CreatedIn != nil {
		q = q.Where("created_at >= ? AND created_at < ?", f.CreatedIn.Start, f.CreatedIn.End)
	}
	var count int64
	err := q.Count(&count).Error
	return count, err
}

func (s *GormMetricsStore) CountCalls(ctx context.Context, f CallCountFilter) (int64, error) {
	q := s.db.WithContext(ctx).Model(&models.CollectionCall{}).
		Where("collection_calls.created_by = ?", f.UserId)
	if f.BusinessId != "" {
		q = q.Joins("JOIN credits ON credits.id = collection_calls.credit_id").
			Where("credits.business_id = ?", f.BusinessId)
	}
	if f.CreatedIn != nil {
		q = q.Where("collection_calls.created_at >= ? AND collection_calls.created_at < ?", f.CreatedIn.Start, f.CreatedIn.End)
	}
	var count int64
	err := q.Count(&count).Error
	return count, err
}

func (s *GormMetricsStore) UserNames(ctx context.Context, ids []int) (map[int]string, error) {
	names := make(map[int]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	var users []models.User
	if err := s.db.WithContext(ctx).Select("id", "name").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		names[u.ID] = u.Name
	}
	return names, nil
}
