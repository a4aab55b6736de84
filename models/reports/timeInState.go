package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/stive2025/collapi-sub001/config"
	"github.com/stive2025/collapi-sub001/models"
)

// TimeInState formats |now - reference| as HH:MM:SS, flooring to whole seconds.
// Hours are not capped at 24.
func TimeInState(reference, now time.Time) string {
	d := now.Sub(reference)
	if d < 0 {
		d = -d
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

type CreditTimeInStateResponse struct {
	CreditId         int                   `json:"credit_id"`
	ManagementTray   models.ManagementTray `json:"management_tray"`
	ManagementStatus string                `json:"management_status"`
	Since            time.Time             `json:"since"`
	Elapsed          string                `json:"elapsed"`
}

// GetCreditTimeInState reports how long the credit has been in its current tray.
// The clock starts at the credit's last management, or at its creation when it has none;
// syncs and other row updates do not reset it.
func GetCreditTimeInState(ctx context.Context, creditId int, now time.Time) (*CreditTimeInStateResponse, error) {
	credit, err := models.GetCredit(ctx, creditId)
	if err != nil {
		return nil, err
	}
	var last []models.Management
	err = config.GetDB().WithContext(ctx).
		Select("id", "created_at").
		Where("business_id = ? AND credit_id = ?", credit.BusinessId, credit.ID).
		Order("created_at DESC, id DESC").
		Limit(1).
		Find(&last).Error
	if err != nil {
		return nil, err
	}
	var lastManagementAt *time.Time
	if len(last) > 0 {
		lastManagementAt = &last[0].CreatedAt
	}
	since := timeInStateReference(credit, lastManagementAt)
	return &CreditTimeInStateResponse{
		CreditId:         credit.ID,
		ManagementTray:   credit.ManagementTray,
		ManagementStatus: credit.ManagementStatus,
		Since:            since,
		Elapsed:          TimeInState(since, now),
	}, nil
}

func timeInStateReference(credit *models.Credit, lastManagementAt *time.Time) time.Time {
	if lastManagementAt != nil {
		return *lastManagementAt
	}
	return credit.CreatedAt
}
