package data

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

const testSignedURLTTL = 55 * time.Minute

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

type fakeS3 struct {
	Uploaded  map[string][]byte
	Deleted   []string
	UploadErr map[string]error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{Uploaded: map[string][]byte{}, UploadErr: map[string]error{}}
}

func (f *fakeS3) UploadObject(ctx context.Context, key, contentType string, content []byte) error {
	if err := f.UploadErr[key]; err != nil {
		return err
	}
	f.Uploaded[key] = content
	return nil
}

func (f *fakeS3) GenerateDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://files.example.com/" + key + "?X-Amz-Expires=" + expiry.String(), nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, key string) error {
	f.Deleted = append(f.Deleted, key)
	return nil
}

type fakeProvisioner struct {
	Invited []string
	Revoked []string
	Err     error
}

func (f *fakeProvisioner) InviteUser(ctx context.Context, email, name string) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	f.Invited = append(f.Invited, email)
	return email, nil
}

func (f *fakeProvisioner) RevokeUser(ctx context.Context, username string) error {
	f.Revoked = append(f.Revoked, username)
	return nil
}

var oiaColumns = []string{
	"id", "identification", "name", "accreditation_code", "effective_date",
	"legal_representative_name", "legal_representative_identification",
	"email", "phone", "address", "city", "type_organism_id", "organism_codes",
	"accepted_terms", "status", "comment", "active", "user_id", "created_at", "updated_at",
	"type_name",
}

func oiaRow(id int64, identification string, status int) []driver.Value {
	return []driver.Value{
		id, identification, "Inspecciones Andinas", "ONAC-123", nil,
		"Laura Gomez", "52123456",
		"contacto@andinas.co", "3001234567", "Calle 1", "Bogota", nil, []byte(`[{"gasera":"Vanti","codigo":"V-1"}]`),
		true, status, nil, true, nil, testTime, testTime,
		nil,
	}
}

var reportColumns = []string{
	"id", "order_reference", "order_id", "certificate_number", "certificate_date",
	"inspection_type_id", "inspection_result", "inspection_date", "oia_id", "inspector_id",
	"construction_company_id", "status", "causal_id", "comment", "reviewer_user_id",
	"review_date", "defects", "created_at", "updated_at",
	"oia_name", "inspector_name", "inspection_type_name", "causal_name", "company_name",
}

func reportRow(id, oiaID int64, status int) []driver.Value {
	return []driver.Value{
		id, "ORD-100", nil, "CERT-9", nil,
		int64(1), "conforme", testTime, oiaID, int64(5),
		nil, status, nil, nil, nil,
		nil, nil, testTime, testTime,
		"Inspecciones Andinas", "Pedro Ruiz", "Residencial", nil, nil,
	}
}
