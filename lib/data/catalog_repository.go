package data

import (
	"context"
	"database/sql"
	"fmt"

	"certification/lib/apperr"
	"certification/lib/models"

	"github.com/sirupsen/logrus"
)

// CatalogRepository serves the read-only reference tables.
type CatalogRepository interface {
	GetInspectionTypes(ctx context.Context) ([]models.InspectionType, error)
	GetCausals(ctx context.Context) ([]models.Causal, error)
	GetChecklistItems(ctx context.Context, inspectionTypeID int64) ([]models.ChecklistItem, error)
	GetTypeOrganisms(ctx context.Context) ([]models.TypeOrganism, error)
}

type CatalogDao struct {
	DB     *sql.DB
	Logger *logrus.Logger
}

func (dao *CatalogDao) GetInspectionTypes(ctx context.Context) ([]models.InspectionType, error) {
	rows, err := dao.DB.QueryContext(ctx, `SELECT id, code, name FROM inspection_types ORDER BY name`)
	if err != nil {
		dao.Logger.WithField("operation", "GetInspectionTypes").WithError(err).Error("Failed to query inspection types")
		return nil, fmt.Errorf("failed to query inspection types: %w", err)
	}
	defer rows.Close()

	types := []models.InspectionType{}
	for rows.Next() {
		var t models.InspectionType
		if err := rows.Scan(&t.ID, &t.Code, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan inspection type: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

// GetCausals returns the active rejection causals.
func (dao *CatalogDao) GetCausals(ctx context.Context) ([]models.Causal, error) {
	rows, err := dao.DB.QueryContext(ctx, `SELECT id, code, name FROM causals WHERE active ORDER BY name`)
	if err != nil {
		dao.Logger.WithField("operation", "GetCausals").WithError(err).Error("Failed to query causals")
		return nil, fmt.Errorf("failed to query causals: %w", err)
	}
	defer rows.Close()

	causals := []models.Causal{}
	for rows.Next() {
		var c models.Causal
		if err := rows.Scan(&c.ID, &c.Code, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan causal: %w", err)
		}
		causals = append(causals, c)
	}
	return causals, rows.Err()
}

func (dao *CatalogDao) GetChecklistItems(ctx context.Context, inspectionTypeID int64) ([]models.ChecklistItem, error) {
	logger := dao.Logger.WithFields(logrus.Fields{
		"operation":          "GetChecklistItems",
		"inspection_type_id": inspectionTypeID,
	})

	var exists bool
	err := dao.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM inspection_types WHERE id = $1)`, inspectionTypeID).Scan(&exists)
	if err != nil {
		logger.WithError(err).Error("Failed to check inspection type")
		return nil, fmt.Errorf("failed to check inspection type: %w", err)
	}
	if !exists {
		return nil, apperr.NotFound("inspection type")
	}

	rows, err := dao.DB.QueryContext(ctx, `
		SELECT id, inspection_type_id, question, position
		FROM checklist_items
		WHERE inspection_type_id = $1
		ORDER BY position, id`, inspectionTypeID)
	if err != nil {
		logger.WithError(err).Error("Failed to query checklist items")
		return nil, fmt.Errorf("failed to query checklist items: %w", err)
	}
	defer rows.Close()

	items := []models.ChecklistItem{}
	for rows.Next() {
		var item models.ChecklistItem
		if err := rows.Scan(&item.ID, &item.InspectionTypeID, &item.Question, &item.Position); err != nil {
			return nil, fmt.Errorf("failed to scan checklist item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (dao *CatalogDao) GetTypeOrganisms(ctx context.Context) ([]models.TypeOrganism, error) {
	rows, err := dao.DB.QueryContext(ctx, `SELECT id, name FROM type_organisms ORDER BY name`)
	if err != nil {
		dao.Logger.WithField("operation", "GetTypeOrganisms").WithError(err).Error("Failed to query type organisms")
		return nil, fmt.Errorf("failed to query type organisms: %w", err)
	}
	defer rows.Close()

	organisms := []models.TypeOrganism{}
	for rows.Next() {
		var t models.TypeOrganism
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan type organism: %w", err)
		}
		organisms = append(organisms, t)
	}
	return organisms, rows.Err()
}
