package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"certification/lib/apperr"
	"certification/lib/clients"
	"certification/lib/models"

	"github.com/sirupsen/logrus"
)

// FileOwner identifies the OIA a certificate is stored for.
type FileOwner struct {
	ID             int64
	Identification string
}

// OiaFileDao stores OIA certificates: bytes in S3, metadata in oia_files.
type OiaFileDao struct {
	S3           clients.S3ClientInterface
	Logger       *logrus.Logger
	SignedURLTTL time.Duration
	Now          func() time.Time
}

// SaveFile uploads one certificate and records it. The sequence comes from an
// atomic per (oia, type) counter, so concurrent saves never share a key. An
// upload failure is reported as apperr.ErrUpload and a metadata failure as
// apperr.ErrPersistence; in the latter case the uploaded object is removed.
func (dao *OiaFileDao) SaveFile(ctx context.Context, q DBTX, owner FileOwner, code models.FileTypeCode, upload *models.FileUpload) (*models.OiaFile, error) {
	logger := dao.Logger.WithFields(logrus.Fields{
		"operation":      "SaveFile",
		"oia_id":         owner.ID,
		"file_type_code": code,
	})

	var seq int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO oia_file_counters (oia_id, file_type_code, last_sequence)
		VALUES ($1, $2, 1)
		ON CONFLICT (oia_id, file_type_code)
		DO UPDATE SET last_sequence = oia_file_counters.last_sequence + 1
		RETURNING last_sequence`, owner.ID, string(code)).Scan(&seq)
	if err != nil {
		logger.WithError(err).Error("Failed to reserve file sequence")
		return nil, apperr.Persistence(string(code), err)
	}

	key := models.StorageKey(owner.Identification, code, seq, upload.FileName)
	mimeType := models.GetMimeType(upload.FileName)

	if err := dao.S3.UploadObject(ctx, key, mimeType, upload.Content); err != nil {
		logger.WithField("storage_key", key).WithError(err).Error("Failed to upload file")
		return nil, apperr.Upload(key, err)
	}

	file := &models.OiaFile{
		OiaID:        owner.ID,
		Name:         upload.FileName,
		StorageKey:   key,
		MimeType:     mimeType,
		FileTypeCode: code,
		Sequence:     seq,
		SizeBytes:    int64(len(upload.Content)),
	}
	err = q.QueryRowContext(ctx, `
		INSERT INTO oia_files (oia_id, name, storage_key, mimetype, file_type_code, sequence, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		file.OiaID, file.Name, file.StorageKey, file.MimeType, string(file.FileTypeCode), file.Sequence, file.SizeBytes,
	).Scan(&file.ID, &file.CreatedAt)
	if err != nil {
		logger.WithField("storage_key", key).WithError(err).Error("Failed to record uploaded file")
		dao.RemoveObjects(ctx, []string{key})
		return nil, apperr.Persistence(key, err)
	}

	logger.WithFields(logrus.Fields{
		"storage_key": key,
		"file_id":     file.ID,
	}).Info("Stored OIA file")
	return file, nil
}

// SaveCertificates saves every present upload in order and returns the stored
// files. On error the keys already uploaded are returned too so the caller can
// remove them if its transaction rolls back.
func (dao *OiaFileDao) SaveCertificates(ctx context.Context, q DBTX, owner FileOwner, uploads models.CertificateUploads) ([]models.OiaFile, []string, error) {
	var (
		files []models.OiaFile
		keys  []string
	)
	for _, item := range uploads.Items() {
		file, err := dao.SaveFile(ctx, q, owner, item.Code, item.Upload)
		if err != nil {
			return files, keys, err
		}
		files = append(files, *file)
		keys = append(keys, file.StorageKey)
	}
	return files, keys, nil
}

// ListFiles returns the files of an OIA, newest first within each type.
func (dao *OiaFileDao) ListFiles(ctx context.Context, q DBTX, oiaID int64) ([]models.OiaFile, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, oia_id, name, storage_key, mimetype, file_type_code, sequence, size_bytes, created_at
		FROM oia_files
		WHERE oia_id = $1
		ORDER BY file_type_code, sequence DESC`, oiaID)
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation": "ListFiles",
			"oia_id":    oiaID,
		}).WithError(err).Error("Failed to list OIA files")
		return nil, fmt.Errorf("failed to list OIA files: %w", err)
	}
	defer rows.Close()

	files := []models.OiaFile{}
	for rows.Next() {
		var (
			file models.OiaFile
			code string
		)
		if err := rows.Scan(&file.ID, &file.OiaID, &file.Name, &file.StorageKey, &file.MimeType,
			&code, &file.Sequence, &file.SizeBytes, &file.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan OIA file: %w", err)
		}
		file.FileTypeCode = models.FileTypeCode(code)
		files = append(files, file)
	}
	return files, rows.Err()
}

// SignedURL presigns a download link for one file of an OIA.
func (dao *OiaFileDao) SignedURL(ctx context.Context, q DBTX, oiaID, fileID int64) (*models.SignedURLResponse, error) {
	var name, key string
	err := q.QueryRowContext(ctx, `SELECT name, storage_key FROM oia_files WHERE id = $1 AND oia_id = $2`,
		fileID, oiaID).Scan(&name, &key)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("file")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get OIA file: %w", err)
	}

	url, err := dao.S3.GenerateDownloadURL(ctx, key, dao.SignedURLTTL)
	if err != nil {
		dao.Logger.WithFields(logrus.Fields{
			"operation":   "SignedURL",
			"storage_key": key,
		}).WithError(err).Error("Failed to presign download URL")
		return nil, fmt.Errorf("failed to presign download URL: %w", err)
	}

	now := time.Now
	if dao.Now != nil {
		now = dao.Now
	}
	return &models.SignedURLResponse{
		FileID:    fileID,
		Name:      name,
		URL:       url,
		ExpiresAt: now().Add(dao.SignedURLTTL).UTC().Format(time.RFC3339),
	}, nil
}

// RemoveObjects deletes uploaded objects whose records were never committed.
// Failures are logged and otherwise ignored.
func (dao *OiaFileDao) RemoveObjects(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := dao.S3.DeleteObject(ctx, key); err != nil {
			dao.Logger.WithFields(logrus.Fields{
				"operation":   "RemoveObjects",
				"storage_key": key,
			}).WithError(err).Warn("Failed to remove orphaned object")
		}
	}
}
