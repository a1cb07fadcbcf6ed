package models

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"certification/lib/constants"
)

// FileTypeCode labels the kind of certificate an OiaFile holds.
type FileTypeCode string

const (
	FileTypeONAC FileTypeCode = "ONAC"
	FileTypeCRT  FileTypeCode = "CRT"
)

// Multipart field names carrying certificates. The existence certificate is the
// older name of the CRT field and is still accepted.
const (
	FieldFileOnac                 = "fileOnac"
	FieldFileCRT                  = "fileCRT"
	FieldFileExistenceCertificate = "fileExistenceCertificate"
)

// OiaFile is a certificate stored for an OIA.
type OiaFile struct {
	ID           int64        `json:"id"`
	OiaID        int64        `json:"oiaId"`
	Name         string       `json:"name"`
	StorageKey   string       `json:"storageKey"`
	MimeType     string       `json:"mimetype"`
	FileTypeCode FileTypeCode `json:"fileTypeCode"`
	Sequence     int64        `json:"sequence"`
	SizeBytes    int64        `json:"sizeBytes"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// FileUpload is a file received in a request, not yet stored.
type FileUpload struct {
	FieldName   string
	FileName    string
	ContentType string
	Content     []byte
}

// CertificateUploads holds the certificates sent with a registration or profile update.
type CertificateUploads struct {
	Onac *FileUpload
	Crt  *FileUpload
}

// RequireBoth fails unless both certificates are present.
func (c CertificateUploads) RequireBoth() error {
	if c.Onac == nil {
		return fmt.Errorf("the ONAC certificate (%s) is required", FieldFileOnac)
	}
	if c.Crt == nil {
		return fmt.Errorf("the CRT certificate (%s) is required", FieldFileCRT)
	}
	return nil
}

// Items returns the present uploads in storage order, each with its type code.
func (c CertificateUploads) Items() []TypedUpload {
	var items []TypedUpload
	if c.Onac != nil {
		items = append(items, TypedUpload{Code: FileTypeONAC, Upload: c.Onac})
	}
	if c.Crt != nil {
		items = append(items, TypedUpload{Code: FileTypeCRT, Upload: c.Crt})
	}
	return items
}

// Validate checks every present upload.
func (c CertificateUploads) Validate() error {
	for _, item := range c.Items() {
		if err := item.Upload.ValidateCertificate(); err != nil {
			return err
		}
	}
	return nil
}

// TypedUpload pairs an upload with the certificate type it is stored as.
type TypedUpload struct {
	Code   FileTypeCode
	Upload *FileUpload
}

var pdfMagic = []byte("%PDF-")

// ValidateCertificate accepts non-empty PDF files up to the certificate size limit.
func (f *FileUpload) ValidateCertificate() error {
	if len(f.Content) == 0 {
		return fmt.Errorf("%s is empty", f.FieldName)
	}
	if len(f.Content) > constants.MaxCertificateBytes {
		return fmt.Errorf("%s exceeds %d MiB", f.FieldName, constants.MaxCertificateBytes>>20)
	}
	if strings.ToLower(filepath.Ext(f.FileName)) != ".pdf" {
		return fmt.Errorf("%s must be a PDF file", f.FieldName)
	}
	if !bytes.HasPrefix(f.Content, pdfMagic) {
		return fmt.Errorf("%s is not a valid PDF document", f.FieldName)
	}
	return nil
}

// StorageKey builds the object key of the seq-th file of a type for an OIA.
func StorageKey(identification string, code FileTypeCode, seq int64, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" {
		ext = ".pdf"
	}
	return fmt.Sprintf("oias/%s/%s_%d%s", cleanKeySegment(identification), code, seq, ext)
}

func cleanKeySegment(value string) string {
	value = strings.TrimSpace(value)
	value = strings.ReplaceAll(value, "/", "-")
	value = strings.ReplaceAll(value, " ", "_")
	return value
}

// GetMimeType returns the MIME type for a file based on its extension
func GetMimeType(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))

	mimeTypes := map[string]string{
		".pdf":  "application/pdf",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
	}

	if mimeType, exists := mimeTypes[ext]; exists {
		return mimeType
	}
	return "application/octet-stream"
}

// SignedURLResponse is returned when a file download link is requested.
type SignedURLResponse struct {
	FileID    int64  `json:"fileId"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	ExpiresAt string `json:"expiresAt"`
}
