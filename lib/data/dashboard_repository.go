package data

import (
	"context"
	"database/sql"
	"fmt"

	"certification/lib/models"

	"github.com/sirupsen/logrus"
)

type DashboardRepository interface {
	GetStats(ctx context.Context, scope models.AccessScope) (*models.DashboardStats, error)
	GetPendingReports(ctx context.Context, limit int, scope models.AccessScope) ([]models.ReportResponse, error)
}

type DashboardDao struct {
	DB     *sql.DB
	Logger *logrus.Logger
}

// GetStats tallies reports and OIAs by status plus active inspectors. An OIA
// scope narrows every tally to that OIA.
func (dao *DashboardDao) GetStats(ctx context.Context, scope models.AccessScope) (*models.DashboardStats, error) {
	logger := dao.Logger.WithField("operation", "GetStats")

	var oiaID interface{}
	if scope.Restricted() {
		oiaID = *scope.OiaID
	}

	stats := &models.DashboardStats{}
	reportCounts, err := dao.countByStatus(ctx,
		`SELECT status, COUNT(*) FROM reports WHERE ($1::bigint IS NULL OR oia_id = $1) GROUP BY status ORDER BY status`, oiaID)
	if err != nil {
		logger.WithError(err).Error("Failed to count reports by status")
		return nil, err
	}
	for _, c := range reportCounts {
		c.Name = models.ReportStatus(c.Status).DisplayName()
		stats.ReportsByStatus = append(stats.ReportsByStatus, c)
		stats.TotalReports += c.Count
	}

	oiaCounts, err := dao.countByStatus(ctx,
		`SELECT status, COUNT(*) FROM oias WHERE ($1::bigint IS NULL OR id = $1) GROUP BY status ORDER BY status`, oiaID)
	if err != nil {
		logger.WithError(err).Error("Failed to count OIAs by status")
		return nil, err
	}
	for _, c := range oiaCounts {
		c.Name = models.LifecycleStatus(c.Status).DisplayName()
		stats.OiasByStatus = append(stats.OiasByStatus, c)
	}

	err = dao.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM inspectors WHERE active AND ($1::bigint IS NULL OR oia_id = $1)`, oiaID).
		Scan(&stats.ActiveInspectors)
	if err != nil {
		logger.WithError(err).Error("Failed to count active inspectors")
		return nil, fmt.Errorf("failed to count active inspectors: %w", err)
	}

	if stats.ReportsByStatus == nil {
		stats.ReportsByStatus = []models.StatusCount{}
	}
	if stats.OiasByStatus == nil {
		stats.OiasByStatus = []models.StatusCount{}
	}
	return stats, nil
}

func (dao *DashboardDao) countByStatus(ctx context.Context, query string, oiaID interface{}) ([]models.StatusCount, error) {
	rows, err := dao.DB.QueryContext(ctx, query, oiaID)
	if err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}
	defer rows.Close()

	var counts []models.StatusCount
	for rows.Next() {
		var c models.StatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// GetPendingReports returns the oldest Pending reports first.
func (dao *DashboardDao) GetPendingReports(ctx context.Context, limit int, scope models.AccessScope) ([]models.ReportResponse, error) {
	where := &whereBuilder{}
	where.add("r.status = ?", int(models.ReportPending))
	if scope.Restricted() {
		where.add("r.oia_id = ?", *scope.OiaID)
	}
	args := append(where.args, limit)

	rows, err := dao.DB.QueryContext(ctx,
		reportSelect+where.sql()+fmt.Sprintf(" ORDER BY r.created_at ASC, r.id ASC LIMIT $%d", len(args)), args...)
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation": "GetPendingReports",
			"limit":     limit,
		}).WithError(err).Error("Failed to query pending reports")
		return nil, fmt.Errorf("failed to query pending reports: %w", err)
	}
	defer rows.Close()

	reports := []models.ReportResponse{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, *report)
	}
	return reports, rows.Err()
}
