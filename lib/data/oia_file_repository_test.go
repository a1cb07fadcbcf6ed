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

func newOiaFileDao(s3 *fakeS3) *OiaFileDao {
	return &OiaFileDao{S3: s3, Logger: quietLogger(), SignedURLTTL: testSignedURLTTL, Now: func() time.Time { return testTime }}
}

func Test_SaveFile_UsesCounterSequence(t *testing.T) {
	//Arrange
	db, mock := newMockDB(t)
	s3 := newFakeS3()
	dao := newOiaFileDao(s3)
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (oia_id, file_type_code)")).
		WithArgs(int64(11), "ONAC").
		WillReturnRows(sqlmock.NewRows([]string{"last_sequence"}).AddRow(int64(3)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO oia_files (")).
		WithArgs(int64(11), "onac.pdf", "oias/900123456/ONAC_3.pdf", "application/pdf", "ONAC", int64(3), int64(13)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(40), testTime))

	//Act
	file, err := dao.SaveFile(context.Background(), db, FileOwner{ID: 11, Identification: "900123456"}, models.FileTypeONAC, pdf(models.FieldFileOnac, "onac.pdf"))

	//Assert
	require.NoError(t, err)
	assert.Equal(t, int64(40), file.ID)
	assert.Equal(t, int64(3), file.Sequence)
	assert.Equal(t, "oias/900123456/ONAC_3.pdf", file.StorageKey)
	assert.Contains(t, s3.Uploaded, "oias/900123456/ONAC_3.pdf")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_SaveFile_MetadataFailureRemovesObject(t *testing.T) {
	//Arrange
	db, mock := newMockDB(t)
	s3 := newFakeS3()
	dao := newOiaFileDao(s3)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO oia_file_counters")).
		WillReturnRows(sqlmock.NewRows([]string{"last_sequence"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO oia_files (")).
		WillReturnError(errors.New("disk full"))

	//Act
	_, err := dao.SaveFile(context.Background(), db, FileOwner{ID: 11, Identification: "900123456"}, models.FileTypeCRT, pdf(models.FieldFileCRT, "crt.pdf"))

	//Assert
	assert.True(t, errors.Is(err, apperr.ErrPersistence))
	assert.Equal(t, []string{"oias/900123456/CRT_1.pdf"}, s3.Deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_SaveFile_CounterFailureSkipsUpload(t *testing.T) {
	//Arrange
	db, mock := newMockDB(t)
	s3 := newFakeS3()
	dao := newOiaFileDao(s3)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO oia_file_counters")).
		WillReturnError(errors.New("deadlock detected"))

	//Act
	_, err := dao.SaveFile(context.Background(), db, FileOwner{ID: 11, Identification: "900123456"}, models.FileTypeCRT, pdf(models.FieldFileCRT, "crt.pdf"))

	//Assert
	assert.True(t, errors.Is(err, apperr.ErrPersistence))
	assert.Empty(t, s3.Uploaded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_SignedURL_Success(t *testing.T) {
	//Arrange
	db, mock := newMockDB(t)
	dao := newOiaFileDao(newFakeS3())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, storage_key FROM oia_files WHERE id = $1 AND oia_id = $2")).
		WithArgs(int64(40), int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "storage_key"}).AddRow("onac.pdf", "oias/900123456/ONAC_3.pdf"))

	//Act
	signed, err := dao.SignedURL(context.Background(), db, 11, 40)

	//Assert
	require.NoError(t, err)
	assert.Equal(t, "onac.pdf", signed.Name)
	assert.Contains(t, signed.URL, "oias/900123456/ONAC_3.pdf")
	assert.Equal(t, "2026-03-14T10:55:00Z", signed.ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_SignedURL_FileOfAnotherOia(t *testing.T) {
	//Arrange
	db, mock := newMockDB(t)
	dao := newOiaFileDao(newFakeS3())
	mock.ExpectQuery(regexp.QuoteMeta("FROM oia_files WHERE id = $1 AND oia_id = $2")).
		WithArgs(int64(40), int64(12)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "storage_key"}))

	//Act
	_, err := dao.SignedURL(context.Background(), db, 12, 40)

	//Assert
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
