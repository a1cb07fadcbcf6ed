// Package data provides the data access layer of the certification portal.
// Each entity has a repository interface implemented by a PostgreSQL backed
// Dao; multi-step writes run inside one transaction owned by the Dao.
package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"certification/lib/models"

	"github.com/sirupsen/logrus"
)

// UserRepository defines the contract for user directory operations.
type UserRepository interface {
	// ResolveIdentity finds the caller behind a token email. The email is
	// matched case-insensitively against both the login identity (auth_email)
	// and the notification email. A login identity match wins over a
	// notification email match.
	//
	// Returns:
	//   - *models.Identity: user id, role and OIA affiliation
	//   - nil, nil: no active user matches
	//   - error: database errors
	ResolveIdentity(ctx context.Context, email string) (*models.Identity, error)

	// GetUsersByOia lists the users linked to an OIA, oldest link first.
	GetUsersByOia(ctx context.Context, oiaID int64) ([]models.OiaUser, error)

	// LinkAuthEmail stamps auth_email on the user whose notification email
	// equals email and who has no login identity yet. Returns the number of
	// users linked, 0 or 1.
	LinkAuthEmail(ctx context.Context, email string) (int64, error)
}

// UserDao implements UserRepository on PostgreSQL.
type UserDao struct {
	DB     *sql.DB
	Logger *logrus.Logger
}

// ResolveIdentity prefers active users, then a match on the login email. An
// inactive row is returned only when no active user matches.
func (dao *UserDao) ResolveIdentity(ctx context.Context, email string) (*models.Identity, error) {
	query := `
		SELECT u.id, u.name, u.email, u.active, p.role, ou.oia_id
		FROM users u
		LEFT JOIN permissions p ON p.user_id = u.id
		LEFT JOIN LATERAL (
			SELECT oia_id FROM oia_users WHERE user_id = u.id ORDER BY created_at LIMIT 1
		) ou ON TRUE
		WHERE lower(u.auth_email) = lower($1) OR lower(u.email) = lower($1)
		ORDER BY u.active DESC, (lower(u.auth_email) = lower($1)) DESC NULLS LAST, u.id
		LIMIT 1`

	var (
		identity models.Identity
		active   bool
		role     sql.NullString
		oiaID    sql.NullInt64
	)
	err := dao.DB.QueryRowContext(ctx, query, email).Scan(
		&identity.UserID, &identity.Name, &identity.Email, &active, &role, &oiaID,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation": "ResolveIdentity",
			"email":     email,
		}).WithError(err).Error("Failed to resolve identity")
		return nil, fmt.Errorf("failed to resolve identity: %w", err)
	}

	if !active {
		dao.Logger.WithFields(logrus.Fields{
			"operation": "ResolveIdentity",
			"user_id":   identity.UserID,
		}).Info("Inactive user treated as unrecognized")
		return nil, nil
	}

	if role.Valid {
		if parsed, ok := models.ParseRole(role.String); ok {
			identity.Role = &parsed
		} else {
			dao.Logger.WithFields(logrus.Fields{
				"operation": "ResolveIdentity",
				"user_id":   identity.UserID,
				"role":      role.String,
			}).Warn("Unknown role stored for user")
		}
	}
	identity.OiaID = nullInt64Ptr(oiaID)
	return &identity, nil
}

func (dao *UserDao) GetUsersByOia(ctx context.Context, oiaID int64) ([]models.OiaUser, error) {
	query := `
		SELECT u.id, u.name, u.email, u.auth_email, u.phone, u.active, u.created_at, u.updated_at,
			p.role, ou.created_at
		FROM oia_users ou
		JOIN users u ON u.id = ou.user_id
		LEFT JOIN permissions p ON p.user_id = u.id
		WHERE ou.oia_id = $1
		ORDER BY ou.created_at, u.id`

	rows, err := dao.DB.QueryContext(ctx, query, oiaID)
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation": "GetUsersByOia",
			"oia_id":    oiaID,
		}).WithError(err).Error("Failed to query OIA users")
		return nil, fmt.Errorf("failed to query OIA users: %w", err)
	}
	defer rows.Close()

	users := []models.OiaUser{}
	for rows.Next() {
		var (
			user      models.OiaUser
			authEmail sql.NullString
			role      sql.NullString
		)
		if err := rows.Scan(
			&user.ID, &user.Name, &user.Email, &authEmail, &user.Phone, &user.Active,
			&user.CreatedAt, &user.UpdatedAt, &role, &user.LinkedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan OIA user: %w", err)
		}
		user.AuthEmail = nullStringPtr(authEmail)
		if parsed, ok := models.ParseRole(role.String); role.Valid && ok {
			user.Role = &parsed
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (dao *UserDao) LinkAuthEmail(ctx context.Context, email string) (int64, error) {
	result, err := dao.DB.ExecContext(ctx, `
		UPDATE users SET auth_email = lower($1), updated_at = now()
		WHERE lower(email) = lower($1) AND auth_email IS NULL`, email)
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation": "LinkAuthEmail",
			"email":     email,
		}).WithError(err).Error("Failed to link login identity")
		return 0, translatePgError(err)
	}
	linked, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	dao.Logger.WithFields(logrus.Fields{
		"operation": "LinkAuthEmail",
		"email":     email,
		"linked":    linked,
	}).Info("Linked login identity")
	return linked, nil
}

// emailTaken reports whether email is used as login identity or notification
// email by any user other than excludeUserID.
func emailTaken(ctx context.Context, q DBTX, email string, excludeUserID int64) (bool, error) {
	var taken bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM users
			WHERE (lower(email) = lower($1) OR lower(auth_email) = lower($1)) AND id <> $2
		)`, email, excludeUserID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return taken, nil
}

func insertUser(ctx context.Context, q DBTX, user *models.User) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO users (name, email, phone, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		user.Name, strings.ToLower(user.Email), user.Phone, user.Active,
	).Scan(&id)
	if err != nil {
		return 0, translatePgError(err)
	}
	return id, nil
}

func insertPermission(ctx context.Context, q DBTX, userID int64, role models.Role) error {
	_, err := q.ExecContext(ctx, `INSERT INTO permissions (user_id, role) VALUES ($1, $2)`, userID, string(role))
	return translatePgError(err)
}

func linkOiaUser(ctx context.Context, q DBTX, oiaID, userID int64) error {
	_, err := q.ExecContext(ctx, `INSERT INTO oia_users (oia_id, user_id) VALUES ($1, $2)`, oiaID, userID)
	return translatePgError(err)
}

func updateUser(ctx context.Context, q DBTX, userID int64, set []models.ColumnValue) error {
	if len(set) == 0 {
		return nil
	}
	query, args := buildUpdate("users", set, userID)
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return translatePgError(err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user %d not found", userID)
	}
	return nil
}
