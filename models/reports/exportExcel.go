package reports

import (
	"bytes"

	"github.com/xuri/excelize/v2"
)

const dashboardSheet = "Metrics"

var dashboardHeaders = []string{
	"User ID", "Agent",
	"Assigned Credits", "Total Managements", "Managements Today",
	"Effective Managements", "Effective Managements Today",
	"Pending Credits", "In Progress Credits", "In Progress Credits Today",
	"Calls Today", "Calls Total For Campaign",
}

func (r AgentMetricsRow) cellValues() []interface{} {
	m := r.Metrics
	return []interface{}{
		r.UserId, r.Name,
		m.AssignedCredits, m.TotalManagements, m.ManagementsToday,
		m.EffectiveManagements, m.EffectiveManagementsToday,
		m.PendingCredits, m.InProgressCredits, m.InProgressCreditsToday,
		m.CallsToday, m.CallsTotalForCampaign,
	}
}

// ExportCampaignDashboardExcel renders the dashboard as an xlsx workbook, one row per agent plus a totals row.
func ExportCampaignDashboardExcel(d *CampaignDashboardResponse) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", dashboardSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(dashboardSheet, "A1", &[]interface{}{d.CampaignName, d.Date}); err != nil {
		return nil, err
	}
	headers := make([]interface{}, len(dashboardHeaders))
	for i, h := range dashboardHeaders {
		headers[i] = h
	}
	if err := f.SetSheetRow(dashboardSheet, "A2", &headers); err != nil {
		return nil, err
	}
	row := 3
	for _, a := range d.Agents {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		values := a.cellValues()
		if err := f.SetSheetRow(dashboardSheet, cell, &values); err != nil {
			return nil, err
		}
		row++
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return nil, err
	}
	totals := AgentMetricsRow{Name: "TOTAL", Metrics: d.Totals}.cellValues()
	totals[0] = ""
	if err := f.SetSheetRow(dashboardSheet, cell, &totals); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
