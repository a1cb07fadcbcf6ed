package models

// DashboardStats summarises reports, OIAs and inspectors for the landing page.
type DashboardStats struct {
	TotalReports     int64         `json:"totalReports"`
	ReportsByStatus  []StatusCount `json:"reportsByStatus"`
	OiasByStatus     []StatusCount `json:"oiasByStatus"`
	ActiveInspectors int64         `json:"activeInspectors"`
}
