package data

import (
	"context"
	"regexp"
	"testing"

	"certification/lib/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var identityColumns = []string{"id", "name", "email", "active", "role", "oia_id"}

func Test_ResolveIdentity_Success(t *testing.T) {
	//Arrange
	db, mock := newMockDB(t)
	dao := &UserDao{DB: db, Logger: quietLogger()}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE lower(u.auth_email) = lower($1) OR lower(u.email) = lower($1)")).
		WithArgs("laura@andinas.co").
		WillReturnRows(sqlmock.NewRows(identityColumns).AddRow(int64(7), "Laura Gomez", "laura@andinas.co", true, "oia", int64(11)))

	//Act
	identity, err := dao.ResolveIdentity(context.Background(), "laura@andinas.co")

	//Assert
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, int64(7), identity.UserID)
	require.NotNil(t, identity.Role)
	assert.Equal(t, models.RoleOia, *identity.Role)
	require.NotNil(t, identity.OiaID)
	assert.Equal(t, int64(11), *identity.OiaID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_ResolveIdentity_InactiveUser(t *testing.T) {
	//Arrange
	db, mock := newMockDB(t)
	dao := &UserDao{DB: db, Logger: quietLogger()}
	mock.ExpectQuery(regexp.QuoteMeta("FROM users u")).
		WillReturnRows(sqlmock.NewRows(identityColumns).AddRow(int64(7), "Laura Gomez", "laura@andinas.co", false, "oia", int64(11)))

	//Act
	identity, err := dao.ResolveIdentity(context.Background(), "laura@andinas.co")

	//Assert
	require.NoError(t, err)
	assert.Nil(t, identity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_ResolveIdentity_ActiveMatchWinsOverInactiveLogin(t *testing.T) {
	//Arrange
	db, mock := newMockDB(t)
	dao := &UserDao{DB: db, Logger: quietLogger()}
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY u.active DESC, (lower(u.auth_email) = lower($1)) DESC NULLS LAST, u.id")).
		WithArgs("laura@andinas.co").
		WillReturnRows(sqlmock.NewRows(identityColumns).
			AddRow(int64(8), "Laura Gomez", "laura@andinas.co", true, "oia", int64(11)).
			AddRow(int64(7), "Laura Gomez (old)", "laura.old@andinas.co", false, "oia", int64(11)))

	//Act
	identity, err := dao.ResolveIdentity(context.Background(), "laura@andinas.co")

	//Assert
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, int64(8), identity.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_ResolveIdentity_UnknownRoleHasNoRole(t *testing.T) {
	//Arrange
	db, mock := newMockDB(t)
	dao := &UserDao{DB: db, Logger: quietLogger()}
	mock.ExpectQuery(regexp.QuoteMeta("FROM users u")).
		WillReturnRows(sqlmock.NewRows(identityColumns).AddRow(int64(3), "Ana", "ana@gas.co", true, "auditor", nil))

	//Act
	identity, err := dao.ResolveIdentity(context.Background(), "ana@gas.co")

	//Assert
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Nil(t, identity.Role)
	assert.Nil(t, identity.OiaID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_ResolveIdentity_NoMatch(t *testing.T) {
	//Arrange
	db, mock := newMockDB(t)
	dao := &UserDao{DB: db, Logger: quietLogger()}
	mock.ExpectQuery(regexp.QuoteMeta("FROM users u")).
		WillReturnRows(sqlmock.NewRows(identityColumns))

	//Act
	identity, err := dao.ResolveIdentity(context.Background(), "nadie@gas.co")

	//Assert
	require.NoError(t, err)
	assert.Nil(t, identity)
}

func Test_LinkAuthEmail_Success(t *testing.T) {
	//Arrange
	db, mock := newMockDB(t)
	dao := &UserDao{DB: db, Logger: quietLogger()}
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET auth_email = lower($1)")).
		WithArgs("laura@andinas.co").
		WillReturnResult(sqlmock.NewResult(0, 1))

	//Act
	linked, err := dao.LinkAuthEmail(context.Background(), "laura@andinas.co")

	//Assert
	require.NoError(t, err)
	assert.Equal(t, int64(1), linked)
	assert.NoError(t, mock.ExpectationsWereMet())
}
