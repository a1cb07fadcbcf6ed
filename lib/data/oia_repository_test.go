package data

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"certification/lib/apperr"
	"certification/lib/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pdf(field, name string) *models.FileUpload {
	return &models.FileUpload{FieldName: field, FileName: name, ContentType: "application/pdf", Content: []byte("%PDF-1.7 test")}
}

func newRegistration() *models.Registration {
	return &models.Registration{
		Oia: &models.Oia{
			Identification: "900123456",
			Name:           "Inspecciones Andinas",
			Email:          "contacto@andinas.co",
			OrganismCodes:  models.OrganismCodes{{Distributor: "Vanti", Code: "V-1"}},
			AcceptedTerms:  true,
			Status:         models.StatusApproved,
			Active:         true,
		},
		Applicant: &models.User{Name: "Laura Gomez", Email: "laura@andinas.co", Phone: "3001234567", Active: true},
		Certificates: models.CertificateUploads{
			Onac: pdf(models.FieldFileOnac, "onac.pdf"),
			Crt:  pdf(models.FieldFileCRT, "crt.pdf"),
		},
	}
}

func newOiaDao(t *testing.T) (*OiaDao, sqlmock.Sqlmock, *fakeS3) {
	db, mock := newMockDB(t)
	s3 := newFakeS3()
	logger := quietLogger()
	dao := &OiaDao{
		DB:     db,
		Logger: logger,
		Files:  &OiaFileDao{S3: s3, Logger: logger, SignedURLTTL: testSignedURLTTL, Now: func() time.Time { return testTime }},
		Users:  &UserDao{DB: db, Logger: logger},
	}
	return dao, mock, s3
}

// expectRegistrationWrites queues every statement of a registration up to and
// including the ONAC certificate.
func expectRegistrationWrites(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM oias")).
		WithArgs("900123456", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM users")).
		WithArgs("laura@andinas.co", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO permissions")).
		WithArgs(int64(7), "oia").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO oias")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO oia_users")).
		WithArgs(int64(11), int64(7)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	expectFileSaved(mock, "ONAC", 1, 101)
}

func expectFileSaved(mock sqlmock.Sqlmock, code string, seq, id int64) {
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO oia_file_counters")).
		WithArgs(int64(11), code).
		WillReturnRows(sqlmock.NewRows([]string{"last_sequence"}).AddRow(seq))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO oia_files (")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(id, testTime))
}

func Test_RegisterOia_Success(t *testing.T) {
	//Arrange
	dao, mock, s3 := newOiaDao(t)
	provisioner := &fakeProvisioner{}
	dao.Provisioner = provisioner
	expectRegistrationWrites(mock)
	expectFileSaved(mock, "CRT", 1, 102)
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta("FROM oias o")).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows(oiaColumns).AddRow(oiaRow(11, "900123456", int(models.StatusApproved))...))
	mock.ExpectQuery(regexp.QuoteMeta("FROM oia_files")).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "oia_id", "name", "storage_key", "mimetype", "file_type_code", "sequence", "size_bytes", "created_at"}).
			AddRow(int64(102), int64(11), "crt.pdf", "oias/900123456/CRT_1.pdf", "application/pdf", "CRT", int64(1), int64(13), testTime).
			AddRow(int64(101), int64(11), "onac.pdf", "oias/900123456/ONAC_1.pdf", "application/pdf", "ONAC", int64(1), int64(13), testTime))

	//Act
	oia, err := dao.RegisterOia(context.Background(), newRegistration())

	//Assert
	require.NoError(t, err)
	assert.Equal(t, int64(11), oia.ID)
	assert.Equal(t, models.StatusApproved, oia.Status)
	assert.Len(t, oia.Files, 2)
	assert.Contains(t, s3.Uploaded, "oias/900123456/ONAC_1.pdf")
	assert.Contains(t, s3.Uploaded, "oias/900123456/CRT_1.pdf")
	assert.Empty(t, s3.Deleted)
	assert.Equal(t, []string{"laura@andinas.co"}, provisioner.Invited)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_RegisterOia_DuplicateIdentification(t *testing.T) {
	//Arrange
	dao, mock, s3 := newOiaDao(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM oias")).
		WithArgs("900123456", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	//Act
	oia, err := dao.RegisterOia(context.Background(), newRegistration())

	//Assert
	assert.Nil(t, oia)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.Empty(t, s3.Uploaded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_RegisterOia_UploadFailureRollsBackAndRemovesObjects(t *testing.T) {
	//Arrange
	dao, mock, s3 := newOiaDao(t)
	provisioner := &fakeProvisioner{}
	dao.Provisioner = provisioner
	s3.UploadErr["oias/900123456/CRT_1.pdf"] = errors.New("bucket unavailable")
	expectRegistrationWrites(mock)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO oia_file_counters")).
		WithArgs(int64(11), "CRT").
		WillReturnRows(sqlmock.NewRows([]string{"last_sequence"}).AddRow(int64(1)))
	mock.ExpectRollback()

	//Act
	oia, err := dao.RegisterOia(context.Background(), newRegistration())

	//Assert
	assert.Nil(t, oia)
	assert.True(t, errors.Is(err, apperr.ErrUpload))
	assert.Equal(t, []string{"oias/900123456/ONAC_1.pdf"}, s3.Deleted)
	assert.Empty(t, provisioner.Invited)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_RegisterOia_CommitFailureRevokesInvite(t *testing.T) {
	//Arrange
	dao, mock, s3 := newOiaDao(t)
	provisioner := &fakeProvisioner{}
	dao.Provisioner = provisioner
	expectRegistrationWrites(mock)
	expectFileSaved(mock, "CRT", 1, 102)
	mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	//Act
	_, err := dao.RegisterOia(context.Background(), newRegistration())

	//Assert
	require.Error(t, err)
	assert.Equal(t, []string{"laura@andinas.co"}, provisioner.Revoked)
	assert.ElementsMatch(t, []string{"oias/900123456/ONAC_1.pdf", "oias/900123456/CRT_1.pdf"}, s3.Deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_CreateOia_DuplicateIdentification(t *testing.T) {
	//Arrange
	dao, mock, _ := newOiaDao(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM oias")).
		WithArgs("900123456", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	//Act
	_, err := dao.CreateOia(context.Background(), &models.Oia{Identification: "900123456", Name: "Andinas"})

	//Assert
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_ReviewOia_Success(t *testing.T) {
	//Arrange
	dao, mock, _ := newOiaDao(t)
	comment := "  documentos vencidos "
	mock.ExpectExec(regexp.QuoteMeta("UPDATE oias SET status = $1, comment = $2")).
		WithArgs(int(models.StatusSuspended), "documentos vencidos", int64(11), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM oias o")).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows(oiaColumns).AddRow(oiaRow(11, "900123456", int(models.StatusSuspended))...))

	//Act
	oia, err := dao.ReviewOia(context.Background(), 11, models.ReviewInput{Status: models.StatusSuspended, Comment: &comment})

	//Assert
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuspended, oia.Status)
	assert.Equal(t, "Suspendido", oia.StatusName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_ReviewOia_NotReviewable(t *testing.T) {
	//Arrange
	dao, mock, _ := newOiaDao(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE oias SET status")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM oias o")).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows(oiaColumns).AddRow(oiaRow(11, "900123456", int(models.StatusRetired))...))

	//Act
	_, err := dao.ReviewOia(context.Background(), 11, models.ReviewInput{Status: models.StatusApproved})

	//Assert
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.Contains(t, err.Error(), "Retirado")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_ReviewOia_NotFound(t *testing.T) {
	//Arrange
	dao, mock, _ := newOiaDao(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE oias SET status")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM oias o")).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(oiaColumns))

	//Act
	_, err := dao.ReviewOia(context.Background(), 99, models.ReviewInput{Status: models.StatusApproved})

	//Assert
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_GetOiaByID_OutOfScope(t *testing.T) {
	//Arrange
	dao, mock, _ := newOiaDao(t)

	//Act
	_, err := dao.GetOiaByID(context.Background(), 11, models.OwnOia(12), false)

	//Assert
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_GetOias_ScopedToOwnOia(t *testing.T) {
	//Arrange
	dao, mock, _ := newOiaDao(t)
	filters, err := models.ParseOiaFilters(map[string]string{"search": "andinas"})
	require.NoError(t, err)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM oias o WHERE o.id = $1 AND (o.identification ILIKE $2")).
		WithArgs(int64(11), "%andinas%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY o.created_at DESC, o.id DESC LIMIT $3 OFFSET $4")).
		WithArgs(int64(11), "%andinas%", 20, 0).
		WillReturnRows(sqlmock.NewRows(oiaColumns).AddRow(oiaRow(11, "900123456", int(models.StatusApproved))...))

	//Act
	oias, total, err := dao.GetOias(context.Background(), filters, models.OwnOia(11))

	//Assert
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, oias, 1)
	assert.Equal(t, "Vanti", oias[0].OrganismCodes[0].Distributor)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_UpdateOwnOia_ReturnsToPendingAndUpdatesContact(t *testing.T) {
	//Arrange
	dao, mock, _ := newOiaDao(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT identification FROM oias WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"identification"}).AddRow("900123456"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE oias SET name = $1, status = $2, updated_at = now() WHERE id = $3")).
		WithArgs("Andinas SAS", int(models.StatusPending), int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM users")).
		WithArgs("nueva@andinas.co", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET email = $1, updated_at = now() WHERE id = $2")).
		WithArgs("nueva@andinas.co", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta("FROM oias o")).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows(oiaColumns).AddRow(oiaRow(11, "900123456", int(models.StatusPending))...))
	mock.ExpectQuery(regexp.QuoteMeta("FROM oia_files")).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "oia_id", "name", "storage_key", "mimetype", "file_type_code", "sequence", "size_bytes", "created_at"}))

	set := []models.ColumnValue{{Column: "name", Value: "Andinas SAS"}}
	contact := []models.ColumnValue{{Column: "email", Value: "nueva@andinas.co"}}

	//Act
	oia, err := dao.UpdateOwnOia(context.Background(), 11, 7, set, contact, models.CertificateUploads{})

	//Assert
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, oia.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_UpdateOwnOia_EmailTakenRollsBack(t *testing.T) {
	//Arrange
	dao, mock, _ := newOiaDao(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"identification"}).AddRow("900123456"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE oias SET status = $1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	contact := []models.ColumnValue{{Column: "email", Value: "otro@andinas.co"}}

	//Act
	_, err := dao.UpdateOwnOia(context.Background(), 11, 7, nil, contact, models.CertificateUploads{})

	//Assert
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_UpdateOia_Success(t *testing.T) {
	//Arrange
	dao, mock, s3 := newOiaDao(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT identification FROM oias WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"identification"}).AddRow("900123456"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE oias SET status = $1, comment = $2, updated_at = now() WHERE id = $3")).
		WithArgs(int(models.StatusSuspended), "Certificado vencido", int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectFileSaved(mock, "ONAC", 2, 103)
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta("FROM oias o")).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows(oiaColumns).AddRow(oiaRow(11, "900123456", int(models.StatusSuspended))...))
	mock.ExpectQuery(regexp.QuoteMeta("FROM oia_files")).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "oia_id", "name", "storage_key", "mimetype", "file_type_code", "sequence", "size_bytes", "created_at"}))

	set := []models.ColumnValue{
		{Column: "status", Value: int(models.StatusSuspended)},
		{Column: "comment", Value: "Certificado vencido"},
	}

	//Act
	oia, err := dao.UpdateOia(context.Background(), 11, set, models.CertificateUploads{Onac: pdf(models.FieldFileOnac, "onac.pdf")})

	//Assert
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuspended, oia.Status)
	assert.Contains(t, s3.Uploaded, "oias/900123456/ONAC_2.pdf")
	assert.Empty(t, s3.Deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_UpdateOia_IdentificationTakenRollsBack(t *testing.T) {
	//Arrange
	dao, mock, s3 := newOiaDao(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT identification FROM oias WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"identification"}).AddRow("900123456"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM oias WHERE identification = $1 AND id <> $2)")).
		WithArgs("900999999", int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	set := []models.ColumnValue{{Column: "identification", Value: "900999999"}}

	//Act
	oia, err := dao.UpdateOia(context.Background(), 11, set, models.CertificateUploads{Onac: pdf(models.FieldFileOnac, "onac.pdf")})

	//Assert
	assert.Nil(t, oia)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.Equal(t, "an OIA with identification 900999999 already exists", apperr.Message(err))
	assert.Empty(t, s3.Uploaded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_UpdateOia_UploadFailureRemovesUploadedObjects(t *testing.T) {
	//Arrange
	dao, mock, s3 := newOiaDao(t)
	s3.UploadErr["oias/900123456/CRT_3.pdf"] = errors.New("bucket unavailable")
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT identification FROM oias WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"identification"}).AddRow("900123456"))
	expectFileSaved(mock, "ONAC", 2, 103)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO oia_file_counters")).
		WithArgs(int64(11), "CRT").
		WillReturnRows(sqlmock.NewRows([]string{"last_sequence"}).AddRow(int64(3)))
	mock.ExpectRollback()

	certificates := models.CertificateUploads{
		Onac: pdf(models.FieldFileOnac, "onac.pdf"),
		Crt:  pdf(models.FieldFileCRT, "crt.pdf"),
	}

	//Act
	oia, err := dao.UpdateOia(context.Background(), 11, nil, certificates)

	//Assert
	assert.Nil(t, oia)
	assert.True(t, errors.Is(err, apperr.ErrUpload))
	assert.Equal(t, []string{"oias/900123456/ONAC_2.pdf"}, s3.Deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
