package data

import (
	"context"
	"database/sql"
	"fmt"

	"certification/lib/apperr"
	"certification/lib/models"

	"github.com/sirupsen/logrus"
)

type InspectorRepository interface {
	GetInspectors(ctx context.Context, filters models.InspectorFilters, scope models.AccessScope) ([]models.InspectorResponse, int64, error)
	GetInspectorByID(ctx context.Context, id int64, scope models.AccessScope) (*models.InspectorResponse, error)
	CreateInspector(ctx context.Context, inspector *models.Inspector) (*models.InspectorResponse, error)
	UpdateInspector(ctx context.Context, id int64, set []models.ColumnValue, scope models.AccessScope) (*models.InspectorResponse, error)
}

type InspectorDao struct {
	DB     *sql.DB
	Logger *logrus.Logger
}

const inspectorSelect = `
	SELECT i.id, i.identification, i.name, i.certifying_organism, i.certificate_code,
		i.certificate_effective_date, i.status, i.comment, i.oia_id, i.active,
		i.created_at, i.updated_at, o.name
	FROM inspectors i
	JOIN oias o ON o.id = i.oia_id`

var inspectorSortColumns = map[string]string{
	"name":           "i.name",
	"identification": "i.identification",
	"status":         "i.status",
	"createdAt":      "i.created_at",
}

func scanInspector(row rowScanner) (*models.InspectorResponse, error) {
	var (
		inspector models.InspectorResponse
		effective sql.NullTime
		comment   sql.NullString
		status    int
	)
	err := row.Scan(
		&inspector.ID, &inspector.Identification, &inspector.Name, &inspector.CertifyingOrganism,
		&inspector.CertificateCode, &effective, &status, &comment, &inspector.OiaID, &inspector.Active,
		&inspector.CreatedAt, &inspector.UpdatedAt, &inspector.OiaName,
	)
	if err != nil {
		return nil, err
	}
	if effective.Valid {
		inspector.CertificateEffectiveDate = &effective.Time
	}
	inspector.Comment = nullStringPtr(comment)
	inspector.Status = models.LifecycleStatus(status)
	inspector.StatusName = inspector.Status.DisplayName()
	return &inspector, nil
}

// GetInspectors lists inspectors. A restricted scope overrides any oiaId filter.
func (dao *InspectorDao) GetInspectors(ctx context.Context, filters models.InspectorFilters, scope models.AccessScope) ([]models.InspectorResponse, int64, error) {
	orderBy, err := filters.OrderBy(inspectorSortColumns, "i.created_at", "i.id")
	if err != nil {
		return nil, 0, apperr.Validation("%v", err)
	}

	if scope.Restricted() {
		filters.OiaID = scope.OiaID
	}

	where := &whereBuilder{}
	if filters.OiaID != nil {
		where.add("i.oia_id = ?", *filters.OiaID)
	}
	if filters.Status != nil {
		where.add("i.status = ?", int(*filters.Status))
	}
	where.addSearch(filters.Search, "i.identification", "i.name", "i.certificate_code")

	var total int64
	if err := dao.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM inspectors i"+where.sql(), where.args...).Scan(&total); err != nil {
		dao.Logger.WithField("operation", "GetInspectors").WithError(err).Error("Failed to count inspectors")
		return nil, 0, fmt.Errorf("failed to count inspectors: %w", err)
	}

	limit, args := where.page(filters.PageRequest)
	rows, err := dao.DB.QueryContext(ctx, inspectorSelect+where.sql()+" ORDER BY "+orderBy+limit, args...)
	if err != nil {
		dao.Logger.WithField("operation", "GetInspectors").WithError(err).Error("Failed to query inspectors")
		return nil, 0, fmt.Errorf("failed to query inspectors: %w", err)
	}
	defer rows.Close()

	inspectors := []models.InspectorResponse{}
	for rows.Next() {
		inspector, err := scanInspector(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan inspector: %w", err)
		}
		inspectors = append(inspectors, *inspector)
	}
	return inspectors, total, rows.Err()
}

func (dao *InspectorDao) GetInspectorByID(ctx context.Context, id int64, scope models.AccessScope) (*models.InspectorResponse, error) {
	inspector, err := scanInspector(dao.DB.QueryRowContext(ctx, inspectorSelect+" WHERE i.id = $1", id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("inspector")
	}
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation":    "GetInspectorByID",
			"inspector_id": id,
		}).WithError(err).Error("Failed to get inspector")
		return nil, fmt.Errorf("failed to get inspector: %w", err)
	}
	if !scope.Allows(inspector.OiaID) {
		return nil, apperr.NotFound("inspector")
	}
	return inspector, nil
}

func inspectorIdentificationTaken(ctx context.Context, q DBTX, oiaID int64, identification string, excludeID int64) (bool, error) {
	var taken bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM inspectors WHERE oia_id = $1 AND identification = $2 AND id <> $3)`,
		oiaID, identification, excludeID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("failed to check inspector identification: %w", err)
	}
	return taken, nil
}

func oiaExists(ctx context.Context, q DBTX, oiaID int64) (bool, error) {
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM oias WHERE id = $1)`, oiaID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check OIA: %w", err)
	}
	return exists, nil
}

// CreateInspector inserts a Pending inspector. Identification is unique per OIA.
func (dao *InspectorDao) CreateInspector(ctx context.Context, inspector *models.Inspector) (*models.InspectorResponse, error) {
	logger := dao.Logger.WithFields(logrus.Fields{
		"operation":      "CreateInspector",
		"oia_id":         inspector.OiaID,
		"identification": inspector.Identification,
	})

	exists, err := oiaExists(ctx, dao.DB, inspector.OiaID)
	if err != nil {
		logger.WithError(err).Error("Failed to check OIA")
		return nil, err
	}
	if !exists {
		return nil, apperr.NotFound("oia")
	}

	taken, err := inspectorIdentificationTaken(ctx, dao.DB, inspector.OiaID, inspector.Identification, 0)
	if err != nil {
		logger.WithError(err).Error("Failed to check identification")
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("an inspector with identification %s already exists in this OIA", inspector.Identification)
	}

	var id int64
	err = dao.DB.QueryRowContext(ctx, `
		INSERT INTO inspectors (identification, name, certifying_organism, certificate_code,
			certificate_effective_date, status, oia_id, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		inspector.Identification, inspector.Name, inspector.CertifyingOrganism, inspector.CertificateCode,
		inspector.CertificateEffectiveDate, int(models.StatusPending), inspector.OiaID, true,
	).Scan(&id)
	if err != nil {
		logger.WithError(err).Error("Failed to insert inspector")
		return nil, translatePgError(err)
	}

	logger.WithField("inspector_id", id).Info("Created inspector")
	return dao.GetInspectorByID(ctx, id, models.Unrestricted())
}

// UpdateInspector applies a partial update to an inspector visible in scope.
func (dao *InspectorDao) UpdateInspector(ctx context.Context, id int64, set []models.ColumnValue, scope models.AccessScope) (*models.InspectorResponse, error) {
	logger := dao.Logger.WithFields(logrus.Fields{
		"operation":    "UpdateInspector",
		"inspector_id": id,
	})

	tx, err := dao.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		oiaID          int64
		identification string
	)
	err = tx.QueryRowContext(ctx, `SELECT oia_id, identification FROM inspectors WHERE id = $1 FOR UPDATE`, id).
		Scan(&oiaID, &identification)
	if err == sql.ErrNoRows || (err == nil && !scope.Allows(oiaID)) {
		return nil, apperr.NotFound("inspector")
	}
	if err != nil {
		logger.WithError(err).Error("Failed to lock inspector")
		return nil, fmt.Errorf("failed to lock inspector: %w", err)
	}

	newOia, oiaChanged := assignedValue(set, "oia_id")
	newIdentification, identificationChanged := assignedValue(set, "identification")
	if oiaChanged {
		oiaID = newOia.(int64)
		exists, err := oiaExists(ctx, tx, oiaID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperr.NotFound("oia")
		}
	}
	if identificationChanged {
		identification = newIdentification.(string)
	}
	if oiaChanged || identificationChanged {
		taken, err := inspectorIdentificationTaken(ctx, tx, oiaID, identification, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.Conflict("an inspector with identification %s already exists in this OIA", identification)
		}
	}

	if len(set) > 0 {
		query, args := buildUpdate("inspectors", set, id)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			logger.WithError(err).Error("Failed to update inspector")
			return nil, translatePgError(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit inspector update: %w", err)
	}

	logger.WithField("columns", len(set)).Info("Updated inspector")
	return dao.GetInspectorByID(ctx, id, models.Unrestricted())
}
