package data

import (
	"context"
	"database/sql"
	"fmt"

	"certification/lib/apperr"
	"certification/lib/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// OiaRepository defines the OIA operations of the portal.
type OiaRepository interface {
	GetOias(ctx context.Context, filters models.OiaFilters, scope models.AccessScope) ([]models.OiaResponse, int64, error)
	GetOiaByID(ctx context.Context, id int64, scope models.AccessScope, includeFiles bool) (*models.OiaResponse, error)
	CreateOia(ctx context.Context, oia *models.Oia) (*models.OiaResponse, error)
	RegisterOia(ctx context.Context, registration *models.Registration) (*models.OiaResponse, error)
	UpdateOia(ctx context.Context, id int64, set []models.ColumnValue, certificates models.CertificateUploads) (*models.OiaResponse, error)
	UpdateOwnOia(ctx context.Context, id int64, userID int64, set []models.ColumnValue, contact []models.ColumnValue, certificates models.CertificateUploads) (*models.OiaResponse, error)
	ReviewOia(ctx context.Context, id int64, review models.ReviewInput) (*models.OiaResponse, error)
	GetOiaUsers(ctx context.Context, id int64, scope models.AccessScope) ([]models.OiaUser, error)
	GetFileURL(ctx context.Context, oiaID, fileID int64, scope models.AccessScope) (*models.SignedURLResponse, error)
}

// OiaDao implements OiaRepository on PostgreSQL, S3 and, when configured, Cognito.
type OiaDao struct {
	DB          *sql.DB
	Logger      *logrus.Logger
	Files       *OiaFileDao
	Users       UserRepository
	Provisioner IdentityProvisioner
}

const oiaSelect = `
	SELECT o.id, o.identification, o.name, o.accreditation_code, o.effective_date,
		o.legal_representative_name, o.legal_representative_identification,
		o.email, o.phone, o.address, o.city, o.type_organism_id, o.organism_codes,
		o.accepted_terms, o.status, o.comment, o.active, o.user_id, o.created_at, o.updated_at,
		t.name
	FROM oias o
	LEFT JOIN type_organisms t ON t.id = o.type_organism_id`

var oiaSortColumns = map[string]string{
	"name":           "o.name",
	"identification": "o.identification",
	"status":         "o.status",
	"createdAt":      "o.created_at",
	"updatedAt":      "o.updated_at",
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOia(row rowScanner) (*models.OiaResponse, error) {
	var (
		oia            models.OiaResponse
		effectiveDate  sql.NullTime
		typeOrganismID sql.NullInt64
		comment        sql.NullString
		userID         sql.NullInt64
		typeName       sql.NullString
		status         int
	)
	err := row.Scan(
		&oia.ID, &oia.Identification, &oia.Name, &oia.AccreditationCode, &effectiveDate,
		&oia.LegalRepresentativeName, &oia.LegalRepresentativeIdentification,
		&oia.Email, &oia.Phone, &oia.Address, &oia.City, &typeOrganismID, &oia.OrganismCodes,
		&oia.AcceptedTerms, &status, &comment, &oia.Active, &userID, &oia.CreatedAt, &oia.UpdatedAt,
		&typeName,
	)
	if err != nil {
		return nil, err
	}
	if effectiveDate.Valid {
		oia.EffectiveDate = &effectiveDate.Time
	}
	oia.TypeOrganismID = nullInt64Ptr(typeOrganismID)
	oia.Comment = nullStringPtr(comment)
	oia.UserID = nullInt64Ptr(userID)
	oia.TypeOrganismName = nullStringPtr(typeName)
	oia.Status = models.LifecycleStatus(status)
	oia.StatusName = oia.Status.DisplayName()
	return &oia, nil
}

// GetOias lists OIAs. A restricted scope only ever sees its own OIA.
func (dao *OiaDao) GetOias(ctx context.Context, filters models.OiaFilters, scope models.AccessScope) ([]models.OiaResponse, int64, error) {
	orderBy, err := filters.OrderBy(oiaSortColumns, "o.created_at", "o.id")
	if err != nil {
		return nil, 0, apperr.Validation("%v", err)
	}

	where := &whereBuilder{}
	if scope.Restricted() {
		where.add("o.id = ?", *scope.OiaID)
	}
	if filters.Status != nil {
		where.add("o.status = ?", int(*filters.Status))
	}
	if filters.TypeOrganismID != nil {
		where.add("o.type_organism_id = ?", *filters.TypeOrganismID)
	}
	if filters.Active != nil {
		where.add("o.active = ?", *filters.Active)
	}
	where.addSearch(filters.Search, "o.identification", "o.name", "o.email")

	var total int64
	if err := dao.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM oias o"+where.sql(), where.args...).Scan(&total); err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation": "GetOias",
		}).WithError(err).Error("Failed to count OIAs")
		return nil, 0, fmt.Errorf("failed to count OIAs: %w", err)
	}

	limit, args := where.page(filters.PageRequest)
	rows, err := dao.DB.QueryContext(ctx, oiaSelect+where.sql()+" ORDER BY "+orderBy+limit, args...)
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation": "GetOias",
		}).WithError(err).Error("Failed to query OIAs")
		return nil, 0, fmt.Errorf("failed to query OIAs: %w", err)
	}
	defer rows.Close()

	oias := []models.OiaResponse{}
	for rows.Next() {
		oia, err := scanOia(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan OIA: %w", err)
		}
		oias = append(oias, *oia)
	}
	return oias, total, rows.Err()
}

func (dao *OiaDao) getOia(ctx context.Context, q DBTX, id int64) (*models.OiaResponse, error) {
	oia, err := scanOia(q.QueryRowContext(ctx, oiaSelect+" WHERE o.id = $1", id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("oia")
	}
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation": "GetOiaByID",
			"oia_id":    id,
		}).WithError(err).Error("Failed to get OIA")
		return nil, fmt.Errorf("failed to get OIA: %w", err)
	}
	return oia, nil
}

// GetOiaByID returns an OIA visible in scope. OIAs outside the scope are
// reported as not found.
func (dao *OiaDao) GetOiaByID(ctx context.Context, id int64, scope models.AccessScope, includeFiles bool) (*models.OiaResponse, error) {
	if !scope.Allows(id) {
		return nil, apperr.NotFound("oia")
	}
	oia, err := dao.getOia(ctx, dao.DB, id)
	if err != nil {
		return nil, err
	}
	if includeFiles {
		if oia.Files, err = dao.Files.ListFiles(ctx, dao.DB, id); err != nil {
			return nil, err
		}
	}
	return oia, nil
}

// identificationTaken reports whether another OIA already uses identification.
func identificationTaken(ctx context.Context, q DBTX, identification string, excludeID int64) (bool, error) {
	var taken bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM oias WHERE identification = $1 AND id <> $2)`,
		identification, excludeID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("failed to check OIA identification: %w", err)
	}
	return taken, nil
}

func insertOia(ctx context.Context, q DBTX, oia *models.Oia) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO oias (identification, name, accreditation_code, effective_date,
			legal_representative_name, legal_representative_identification,
			email, phone, address, city, type_organism_id, organism_codes,
			accepted_terms, status, active, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`,
		oia.Identification, oia.Name, oia.AccreditationCode, oia.EffectiveDate,
		oia.LegalRepresentativeName, oia.LegalRepresentativeIdentification,
		oia.Email, oia.Phone, oia.Address, oia.City, oia.TypeOrganismID, oia.OrganismCodes,
		oia.AcceptedTerms, int(oia.Status), oia.Active, oia.UserID,
	).Scan(&id)
	if err != nil {
		return 0, translatePgError(err)
	}
	return id, nil
}

// CreateOia inserts a Pending OIA without an applicant. The identification is
// checked first for a friendly message; the unique constraint still decides races.
func (dao *OiaDao) CreateOia(ctx context.Context, oia *models.Oia) (*models.OiaResponse, error) {
	logger := dao.Logger.WithFields(logrus.Fields{
		"operation":      "CreateOia",
		"identification": oia.Identification,
	})

	taken, err := identificationTaken(ctx, dao.DB, oia.Identification, 0)
	if err != nil {
		logger.WithError(err).Error("Failed to check identification")
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("an OIA with identification %s already exists", oia.Identification)
	}

	oia.Status = models.StatusPending
	oia.Active = true
	id, err := insertOia(ctx, dao.DB, oia)
	if err != nil {
		logger.WithError(err).Error("Failed to insert OIA")
		return nil, err
	}

	logger.WithField("oia_id", id).Info("Created OIA")
	return dao.getOia(ctx, dao.DB, id)
}

// RegisterOia creates the applicant user, its oia permission, the approved
// OIA, the affiliation and both certificates in one transaction. When a
// provisioner is configured the applicant is invited before commit and the
// invitation is revoked if the commit fails. Objects uploaded by a failed
// registration are removed.
func (dao *OiaDao) RegisterOia(ctx context.Context, registration *models.Registration) (*models.OiaResponse, error) {
	oia, applicant := registration.Oia, registration.Applicant
	logger := dao.Logger.WithFields(logrus.Fields{
		"operation":      "RegisterOia",
		"correlation_id": uuid.NewString(),
		"identification": oia.Identification,
	})

	var uploaded []string
	fail := func(step string, err error) (*models.OiaResponse, error) {
		logger.WithField("step", step).WithError(err).Error("OIA registration failed")
		dao.Files.RemoveObjects(context.WithoutCancel(ctx), uploaded)
		return nil, err
	}

	tx, err := dao.DB.BeginTx(ctx, nil)
	if err != nil {
		return fail("begin", fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	taken, err := identificationTaken(ctx, tx, oia.Identification, 0)
	if err != nil {
		return fail("check_identification", err)
	}
	if taken {
		return fail("check_identification", apperr.Conflict("an OIA with identification %s already exists", oia.Identification))
	}
	taken, err = emailTaken(ctx, tx, applicant.Email, 0)
	if err != nil {
		return fail("check_email", err)
	}
	if taken {
		return fail("check_email", apperr.Conflict("a user with email %s already exists", applicant.Email))
	}

	userID, err := insertUser(ctx, tx, applicant)
	if err != nil {
		return fail("insert_user", err)
	}
	if err := insertPermission(ctx, tx, userID, models.RoleOia); err != nil {
		return fail("insert_permission", err)
	}
	oia.UserID = &userID
	oiaID, err := insertOia(ctx, tx, oia)
	if err != nil {
		return fail("insert_oia", err)
	}
	if err := linkOiaUser(ctx, tx, oiaID, userID); err != nil {
		return fail("link_user", err)
	}

	owner := FileOwner{ID: oiaID, Identification: oia.Identification}
	_, uploaded, err = dao.Files.SaveCertificates(ctx, tx, owner, registration.Certificates)
	if err != nil {
		return fail("save_files", err)
	}

	var username string
	if dao.Provisioner != nil {
		if username, err = dao.Provisioner.InviteUser(ctx, applicant.Email, applicant.Name); err != nil {
			return fail("invite", err)
		}
	}

	if err := tx.Commit(); err != nil {
		if username != "" {
			_ = dao.Provisioner.RevokeUser(context.WithoutCancel(ctx), username)
		}
		return fail("commit", fmt.Errorf("failed to commit registration: %w", translatePgError(err)))
	}

	logger.WithFields(logrus.Fields{
		"oia_id":  oiaID,
		"user_id": userID,
		"files":   len(uploaded),
	}).Info("Registered OIA")
	return dao.GetOiaByID(ctx, oiaID, models.Unrestricted(), true)
}

// lockOia takes a row lock on an OIA and returns its identification.
func lockOia(ctx context.Context, tx *sql.Tx, id int64) (string, error) {
	var identification string
	err := tx.QueryRowContext(ctx, `SELECT identification FROM oias WHERE id = $1 FOR UPDATE`, id).Scan(&identification)
	if err == sql.ErrNoRows {
		return "", apperr.NotFound("oia")
	}
	if err != nil {
		return "", fmt.Errorf("failed to lock OIA: %w", err)
	}
	return identification, nil
}

// applyOiaUpdate runs the field update and stores new certificates inside tx.
func (dao *OiaDao) applyOiaUpdate(ctx context.Context, tx *sql.Tx, id int64, set []models.ColumnValue, certificates models.CertificateUploads) ([]string, error) {
	identification, err := lockOia(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if value, ok := assignedValue(set, "identification"); ok {
		identification = value.(string)
		taken, err := identificationTaken(ctx, tx, identification, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.Conflict("an OIA with identification %s already exists", identification)
		}
	}

	if len(set) > 0 {
		query, args := buildUpdate("oias", set, id)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return nil, translatePgError(err)
		}
	}

	_, uploaded, err := dao.Files.SaveCertificates(ctx, tx, FileOwner{ID: id, Identification: identification}, certificates)
	return uploaded, err
}

// UpdateOia applies an administrative update, optionally with new certificates.
func (dao *OiaDao) UpdateOia(ctx context.Context, id int64, set []models.ColumnValue, certificates models.CertificateUploads) (*models.OiaResponse, error) {
	logger := dao.Logger.WithFields(logrus.Fields{
		"operation": "UpdateOia",
		"oia_id":    id,
	})

	tx, err := dao.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	uploaded, err := dao.applyOiaUpdate(ctx, tx, id, set, certificates)
	if err == nil {
		err = tx.Commit()
	}
	if err != nil {
		logger.WithError(err).Error("Failed to update OIA")
		dao.Files.RemoveObjects(context.WithoutCancel(ctx), uploaded)
		return nil, err
	}

	logger.WithField("columns", len(set)).Info("Updated OIA")
	return dao.GetOiaByID(ctx, id, models.Unrestricted(), true)
}

// UpdateOwnOia applies a self-service edit. The OIA always returns to Pending
// and the linked user's contact columns are updated in the same transaction.
func (dao *OiaDao) UpdateOwnOia(ctx context.Context, id int64, userID int64, set []models.ColumnValue, contact []models.ColumnValue, certificates models.CertificateUploads) (*models.OiaResponse, error) {
	logger := dao.Logger.WithFields(logrus.Fields{
		"operation": "UpdateOwnOia",
		"oia_id":    id,
		"user_id":   userID,
	})

	tx, err := dao.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	set = append(set, models.ColumnValue{Column: "status", Value: int(models.StatusPending)})
	uploaded, err := dao.applyOiaUpdate(ctx, tx, id, set, certificates)
	if err == nil && userID != 0 && len(contact) > 0 {
		err = dao.updateContact(ctx, tx, userID, contact)
	}
	if err == nil {
		err = tx.Commit()
	}
	if err != nil {
		logger.WithError(err).Error("Failed to update own OIA")
		dao.Files.RemoveObjects(context.WithoutCancel(ctx), uploaded)
		return nil, err
	}

	logger.Info("OIA profile updated and sent back to review")
	return dao.GetOiaByID(ctx, id, models.Unrestricted(), true)
}

func (dao *OiaDao) updateContact(ctx context.Context, tx *sql.Tx, userID int64, contact []models.ColumnValue) error {
	if value, ok := assignedValue(contact, "email"); ok {
		taken, err := emailTaken(ctx, tx, value.(string), userID)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("a user with email %s already exists", value)
		}
	}
	return updateUser(ctx, tx, userID, contact)
}

// ReviewOia sets the status and comment of an OIA in a single conditional
// update. Only Pending, Approved and Suspended OIAs can be reviewed.
func (dao *OiaDao) ReviewOia(ctx context.Context, id int64, review models.ReviewInput) (*models.OiaResponse, error) {
	logger := dao.Logger.WithFields(logrus.Fields{
		"operation": "ReviewOia",
		"oia_id":    id,
		"status":    int(review.Status),
	})

	reviewable := []int64{}
	for _, s := range models.AllLifecycleStatuses {
		if s.ReviewableFrom() {
			reviewable = append(reviewable, int64(s))
		}
	}

	result, err := dao.DB.ExecContext(ctx, `
		UPDATE oias SET status = $1, comment = $2, updated_at = now()
		WHERE id = $3 AND status = ANY($4)`,
		int(review.Status), review.ReviewComment(), id, pq.Array(reviewable))
	if err != nil {
		logger.WithError(err).Error("Failed to review OIA")
		return nil, fmt.Errorf("failed to review OIA: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		current, err := dao.getOia(ctx, dao.DB, id)
		if err != nil {
			return nil, err
		}
		return nil, apperr.Conflict("an OIA in status %s cannot be reviewed", current.StatusName)
	}

	logger.Info("Reviewed OIA")
	return dao.getOia(ctx, dao.DB, id)
}

func (dao *OiaDao) GetOiaUsers(ctx context.Context, id int64, scope models.AccessScope) ([]models.OiaUser, error) {
	if _, err := dao.GetOiaByID(ctx, id, scope, false); err != nil {
		return nil, err
	}
	return dao.Users.GetUsersByOia(ctx, id)
}

func (dao *OiaDao) GetFileURL(ctx context.Context, oiaID, fileID int64, scope models.AccessScope) (*models.SignedURLResponse, error) {
	if !scope.Allows(oiaID) {
		return nil, apperr.NotFound("oia")
	}
	return dao.Files.SignedURL(ctx, dao.DB, oiaID, fileID)
}
