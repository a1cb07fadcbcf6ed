package data

import (
	"context"
	"database/sql"
	"fmt"

	"certification/lib/apperr"
	"certification/lib/models"

	"github.com/sirupsen/logrus"
)

type ConstructionCompanyRepository interface {
	GetCompanies(ctx context.Context, filters models.CompanyFilters) ([]models.ConstructionCompany, int64, error)
	GetCompanyByID(ctx context.Context, id int64) (*models.ConstructionCompany, error)
	CreateCompany(ctx context.Context, company *models.ConstructionCompany) (*models.ConstructionCompany, error)
}

type ConstructionCompanyDao struct {
	DB     *sql.DB
	Logger *logrus.Logger
}

const companySelect = `
	SELECT id, identification, name, COALESCE(email, ''), COALESCE(phone, ''), active, created_at
	FROM construction_companies`

var companySortColumns = map[string]string{
	"name":           "name",
	"identification": "identification",
	"createdAt":      "created_at",
}

func scanCompany(row rowScanner) (*models.ConstructionCompany, error) {
	var company models.ConstructionCompany
	err := row.Scan(&company.ID, &company.Identification, &company.Name, &company.Email,
		&company.Phone, &company.Active, &company.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &company, nil
}

func (dao *ConstructionCompanyDao) GetCompanies(ctx context.Context, filters models.CompanyFilters) ([]models.ConstructionCompany, int64, error) {
	orderBy, err := filters.OrderBy(companySortColumns, "created_at", "id")
	if err != nil {
		return nil, 0, apperr.Validation("%v", err)
	}

	where := &whereBuilder{}
	where.addSearch(filters.Search, "identification", "name")

	var total int64
	if err := dao.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM construction_companies"+where.sql(), where.args...).Scan(&total); err != nil {
		dao.Logger.WithField("operation", "GetCompanies").WithError(err).Error("Failed to count construction companies")
		return nil, 0, fmt.Errorf("failed to count construction companies: %w", err)
	}

	limit, args := where.page(filters.PageRequest)
	rows, err := dao.DB.QueryContext(ctx, companySelect+where.sql()+" ORDER BY "+orderBy+limit, args...)
	if err != nil {
		dao.Logger.WithField("operation", "GetCompanies").WithError(err).Error("Failed to query construction companies")
		return nil, 0, fmt.Errorf("failed to query construction companies: %w", err)
	}
	defer rows.Close()

	companies := []models.ConstructionCompany{}
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan construction company: %w", err)
		}
		companies = append(companies, *company)
	}
	return companies, total, rows.Err()
}

func (dao *ConstructionCompanyDao) GetCompanyByID(ctx context.Context, id int64) (*models.ConstructionCompany, error) {
	company, err := scanCompany(dao.DB.QueryRowContext(ctx, companySelect+" WHERE id = $1", id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("construction company")
	}
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation":  "GetCompanyByID",
			"company_id": id,
		}).WithError(err).Error("Failed to get construction company")
		return nil, fmt.Errorf("failed to get construction company: %w", err)
	}
	return company, nil
}

func (dao *ConstructionCompanyDao) CreateCompany(ctx context.Context, company *models.ConstructionCompany) (*models.ConstructionCompany, error) {
	logger := dao.Logger.WithFields(logrus.Fields{
		"operation":      "CreateCompany",
		"identification": company.Identification,
	})

	var taken bool
	err := dao.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM construction_companies WHERE identification = $1)`,
		company.Identification).Scan(&taken)
	if err != nil {
		logger.WithError(err).Error("Failed to check identification")
		return nil, fmt.Errorf("failed to check construction company identification: %w", err)
	}
	if taken {
		return nil, apperr.Conflict("a construction company with identification %s already exists", company.Identification)
	}

	created := *company
	err = dao.DB.QueryRowContext(ctx, `
		INSERT INTO construction_companies (identification, name, email, phone, active)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)
		RETURNING id, created_at`,
		company.Identification, company.Name, company.Email, company.Phone, company.Active,
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		logger.WithError(err).Error("Failed to insert construction company")
		return nil, translatePgError(err)
	}

	logger.WithField("company_id", created.ID).Info("Created construction company")
	return &created, nil
}
