package data

import (
	"context"
	"database/sql"
	"fmt"

	"certification/lib/apperr"
	"certification/lib/models"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

type ReportRepository interface {
	GetReports(ctx context.Context, filters models.ReportFilters, scope models.AccessScope) ([]models.ReportResponse, int64, error)
	GetReportByID(ctx context.Context, id int64, scope models.AccessScope) (*models.ReportResponse, error)
	CreateReport(ctx context.Context, report *models.Report) (*models.ReportResponse, error)
	ReviewReport(ctx context.Context, id int64, review models.ReportReviewInput, reviewerID int64) (*models.ReportResponse, error)
	GetChecklist(ctx context.Context, id int64, scope models.AccessScope) ([]models.ReportCheck, error)
	SaveChecklist(ctx context.Context, id int64, input models.ChecklistInput, scope models.AccessScope) ([]models.ReportCheck, error)
}

type ReportDao struct {
	DB     *sql.DB
	Logger *logrus.Logger
}

const reportSelect = `
	SELECT r.id, r.order_reference, r.order_id, r.certificate_number, r.certificate_date,
		r.inspection_type_id, r.inspection_result, r.inspection_date, r.oia_id, r.inspector_id,
		r.construction_company_id, r.status, r.causal_id, r.comment, r.reviewer_user_id,
		r.review_date, r.defects, r.created_at, r.updated_at,
		o.name, i.name, it.name, c.name, cc.name
	FROM reports r
	JOIN oias o ON o.id = r.oia_id
	JOIN inspectors i ON i.id = r.inspector_id
	JOIN inspection_types it ON it.id = r.inspection_type_id
	LEFT JOIN causals c ON c.id = r.causal_id
	LEFT JOIN construction_companies cc ON cc.id = r.construction_company_id`

var reportSortColumns = map[string]string{
	"inspectionDate":    "r.inspection_date",
	"certificateNumber": "r.certificate_number",
	"status":            "r.status",
	"createdAt":         "r.created_at",
	"reviewDate":        "r.review_date",
}

// Reports an OIA may still complete the checklist of.
var editableReportStatuses = []int64{int64(models.ReportPending), int64(models.ReportStarted)}

func scanReport(row rowScanner) (*models.ReportResponse, error) {
	var (
		report          models.ReportResponse
		orderID         sql.NullInt64
		certificateDate sql.NullTime
		companyID       sql.NullInt64
		causalID        sql.NullInt64
		comment         sql.NullString
		reviewerID      sql.NullInt64
		reviewDate      sql.NullTime
		defects         []byte
		causalName      sql.NullString
		companyName     sql.NullString
		status          int
	)
	err := row.Scan(
		&report.ID, &report.OrderReference, &orderID, &report.CertificateNumber, &certificateDate,
		&report.InspectionTypeID, &report.InspectionResult, &report.InspectionDate, &report.OiaID, &report.InspectorID,
		&companyID, &status, &causalID, &comment, &reviewerID,
		&reviewDate, &defects, &report.CreatedAt, &report.UpdatedAt,
		&report.OiaName, &report.InspectorName, &report.InspectionTypeName, &causalName, &companyName,
	)
	if err != nil {
		return nil, err
	}
	report.OrderID = nullInt64Ptr(orderID)
	if certificateDate.Valid {
		report.CertificateDate = &certificateDate.Time
	}
	report.ConstructionCompanyID = nullInt64Ptr(companyID)
	report.Status = models.ReportStatus(status)
	report.StatusName = report.Status.DisplayName()
	report.CausalID = nullInt64Ptr(causalID)
	report.Comment = nullStringPtr(comment)
	report.ReviewerUserID = nullInt64Ptr(reviewerID)
	if reviewDate.Valid {
		report.ReviewDate = &reviewDate.Time
	}
	if len(defects) > 0 {
		report.Defects = append([]byte{}, defects...)
	}
	report.CausalName = nullStringPtr(causalName)
	report.ConstructionCompanyName = nullStringPtr(companyName)
	return &report, nil
}

// GetReports lists reports. A restricted scope overrides any oiaId filter.
func (dao *ReportDao) GetReports(ctx context.Context, filters models.ReportFilters, scope models.AccessScope) ([]models.ReportResponse, int64, error) {
	orderBy, err := filters.OrderBy(reportSortColumns, "r.created_at", "r.id")
	if err != nil {
		return nil, 0, apperr.Validation("%v", err)
	}

	if scope.Restricted() {
		filters.OiaID = scope.OiaID
	}

	where := &whereBuilder{}
	if filters.OiaID != nil {
		where.add("r.oia_id = ?", *filters.OiaID)
	}
	if filters.Status != nil {
		where.add("r.status = ?", int(*filters.Status))
	}
	if filters.InspectorID != nil {
		where.add("r.inspector_id = ?", *filters.InspectorID)
	}
	if filters.InspectionTypeID != nil {
		where.add("r.inspection_type_id = ?", *filters.InspectionTypeID)
	}
	where.addSearch(filters.Search, "r.order_reference", "r.certificate_number")

	var total int64
	if err := dao.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM reports r"+where.sql(), where.args...).Scan(&total); err != nil {
		dao.Logger.WithField("operation", "GetReports").WithError(err).Error("Failed to count reports")
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	limit, args := where.page(filters.PageRequest)
	rows, err := dao.DB.QueryContext(ctx, reportSelect+where.sql()+" ORDER BY "+orderBy+limit, args...)
	if err != nil {
		dao.Logger.WithField("operation", "GetReports").WithError(err).Error("Failed to query reports")
		return nil, 0, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	reports := []models.ReportResponse{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, *report)
	}
	return reports, total, rows.Err()
}

func (dao *ReportDao) getReport(ctx context.Context, id int64) (*models.ReportResponse, error) {
	report, err := scanReport(dao.DB.QueryRowContext(ctx, reportSelect+" WHERE r.id = $1", id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("report")
	}
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation": "GetReportByID",
			"report_id": id,
		}).WithError(err).Error("Failed to get report")
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return report, nil
}

// GetReportByID returns a report with its checklist answers.
func (dao *ReportDao) GetReportByID(ctx context.Context, id int64, scope models.AccessScope) (*models.ReportResponse, error) {
	report, err := dao.getReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(report.OiaID) {
		return nil, apperr.NotFound("report")
	}
	if report.Checklist, err = dao.listChecks(ctx, dao.DB, id); err != nil {
		return nil, err
	}
	return report, nil
}

// CreateReport inserts a Pending report. The inspector must work for the report's OIA.
func (dao *ReportDao) CreateReport(ctx context.Context, report *models.Report) (*models.ReportResponse, error) {
	logger := dao.Logger.WithFields(logrus.Fields{
		"operation":    "CreateReport",
		"oia_id":       report.OiaID,
		"inspector_id": report.InspectorID,
	})

	var inspectorOia int64
	err := dao.DB.QueryRowContext(ctx, `SELECT oia_id FROM inspectors WHERE id = $1`, report.InspectorID).Scan(&inspectorOia)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("inspector")
	}
	if err != nil {
		logger.WithError(err).Error("Failed to get inspector")
		return nil, fmt.Errorf("failed to get inspector: %w", err)
	}
	if inspectorOia != report.OiaID {
		return nil, apperr.Validation("inspector %d does not belong to OIA %d", report.InspectorID, report.OiaID)
	}

	var defects interface{}
	if len(report.Defects) > 0 {
		defects = string(report.Defects)
	}

	var id int64
	err = dao.DB.QueryRowContext(ctx, `
		INSERT INTO reports (order_reference, order_id, certificate_number, certificate_date,
			inspection_type_id, inspection_result, inspection_date, oia_id, inspector_id,
			construction_company_id, status, defects)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		report.OrderReference, report.OrderID, report.CertificateNumber, report.CertificateDate,
		report.InspectionTypeID, report.InspectionResult, report.InspectionDate, report.OiaID, report.InspectorID,
		report.ConstructionCompanyID, int(models.ReportPending), defects,
	).Scan(&id)
	if err != nil {
		logger.WithError(err).Error("Failed to insert report")
		return nil, translatePgError(err)
	}

	logger.WithField("report_id", id).Info("Created report")
	return dao.GetReportByID(ctx, id, models.Unrestricted())
}

// ReviewReport stamps status, comment, causal, reviewer and review date in one
// conditional update. Only Pending reports can be reviewed.
func (dao *ReportDao) ReviewReport(ctx context.Context, id int64, review models.ReportReviewInput, reviewerID int64) (*models.ReportResponse, error) {
	logger := dao.Logger.WithFields(logrus.Fields{
		"operation":   "ReviewReport",
		"report_id":   id,
		"status":      int(review.Status),
		"reviewer_id": reviewerID,
	})

	if review.CausalID != nil {
		var exists bool
		err := dao.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM causals WHERE id = $1 AND active)`, *review.CausalID).Scan(&exists)
		if err != nil {
			logger.WithError(err).Error("Failed to check causal")
			return nil, fmt.Errorf("failed to check causal: %w", err)
		}
		if !exists {
			return nil, apperr.NotFound("causal")
		}
	}

	result, err := dao.DB.ExecContext(ctx, `
		UPDATE reports
		SET status = $1, comment = $2, causal_id = $3, reviewer_user_id = $4,
			review_date = now(), updated_at = now()
		WHERE id = $5 AND status = $6`,
		int(review.Status), review.ReviewComment(), review.CausalID, reviewerID, id, int(models.ReportPending))
	if err != nil {
		logger.WithError(err).Error("Failed to review report")
		return nil, translatePgError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		current, err := dao.getReport(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, apperr.Conflict("report is %s and can no longer be reviewed", current.StatusName)
	}

	logger.Info("Reviewed report")
	return dao.GetReportByID(ctx, id, models.Unrestricted())
}

func (dao *ReportDao) listChecks(ctx context.Context, q DBTX, reportID int64) ([]models.ReportCheck, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT rc.report_id, rc.checklist_item_id, ci.question, rc.answer
		FROM report_checks rc
		JOIN checklist_items ci ON ci.id = rc.checklist_item_id
		WHERE rc.report_id = $1
		ORDER BY ci.position, ci.id`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to query report checklist: %w", err)
	}
	defer rows.Close()

	checks := []models.ReportCheck{}
	for rows.Next() {
		var check models.ReportCheck
		if err := rows.Scan(&check.ReportID, &check.ChecklistItemID, &check.Question, &check.Answer); err != nil {
			return nil, fmt.Errorf("failed to scan report check: %w", err)
		}
		checks = append(checks, check)
	}
	return checks, rows.Err()
}

func (dao *ReportDao) GetChecklist(ctx context.Context, id int64, scope models.AccessScope) ([]models.ReportCheck, error) {
	report, err := dao.getReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(report.OiaID) {
		return nil, apperr.NotFound("report")
	}
	return dao.listChecks(ctx, dao.DB, id)
}

// SaveChecklist replaces every answer of a report inside one transaction. Each
// item must belong to the report's inspection type. OIA scoped callers can only
// change reports that are still Pending or Started.
func (dao *ReportDao) SaveChecklist(ctx context.Context, id int64, input models.ChecklistInput, scope models.AccessScope) ([]models.ReportCheck, error) {
	logger := dao.Logger.WithFields(logrus.Fields{
		"operation": "SaveChecklist",
		"report_id": id,
		"answers":   len(input.Answers),
	})

	tx, err := dao.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var inspectionTypeID, oiaID int64
	var status int
	err = tx.QueryRowContext(ctx, `SELECT inspection_type_id, oia_id, status FROM reports WHERE id = $1 FOR UPDATE`, id).
		Scan(&inspectionTypeID, &oiaID, &status)
	if err == sql.ErrNoRows || (err == nil && !scope.Allows(oiaID)) {
		return nil, apperr.NotFound("report")
	}
	if err != nil {
		logger.WithError(err).Error("Failed to lock report")
		return nil, fmt.Errorf("failed to lock report: %w", err)
	}
	if scope.Restricted() && !containsStatus(editableReportStatuses, int64(status)) {
		return nil, apperr.Conflict("the checklist of a %s report can no longer be changed", models.ReportStatus(status).DisplayName())
	}

	if ids := input.ItemIDs(); len(ids) > 0 {
		var matched int
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM checklist_items WHERE inspection_type_id = $1 AND id = ANY($2)`,
			inspectionTypeID, pq.Array(ids)).Scan(&matched)
		if err != nil {
			return nil, fmt.Errorf("failed to check checklist items: %w", err)
		}
		if matched != len(ids) {
			return nil, apperr.Validation("checklist items do not belong to the report's inspection type")
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM report_checks WHERE report_id = $1`, id); err != nil {
		logger.WithError(err).Error("Failed to clear report checklist")
		return nil, fmt.Errorf("failed to clear report checklist: %w", err)
	}
	for _, answer := range input.Answers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO report_checks (report_id, checklist_item_id, answer) VALUES ($1, $2, $3)`,
			id, answer.ChecklistItemID, *answer.Answer); err != nil {
			logger.WithError(err).Error("Failed to insert report check")
			return nil, translatePgError(err)
		}
	}

	checks, err := dao.listChecks(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit checklist: %w", err)
	}

	logger.Info("Saved report checklist")
	return checks, nil
}

func containsStatus(statuses []int64, status int64) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
