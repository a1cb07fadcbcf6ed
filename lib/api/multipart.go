package api

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"strings"

	"certification/lib/apperr"
	"certification/lib/constants"
	"certification/lib/models"

	"github.com/aws/aws-lambda-go/events"
)

// MultipartForm is a parsed multipart/form-data request body.
type MultipartForm struct {
	Values map[string][]string
	Files  map[string]*models.FileUpload
}

// IsMultipart reports whether the request carries multipart/form-data.
func IsMultipart(request events.APIGatewayProxyRequest) bool {
	mediaType, _, err := mime.ParseMediaType(Header(request, "Content-Type"))
	return err == nil && strings.EqualFold(mediaType, "multipart/form-data")
}

// ParseMultipart reads every field and file of a multipart request. Files are
// read whole; one byte over the certificate limit is kept so size checks fail.
func ParseMultipart(request events.APIGatewayProxyRequest) (*MultipartForm, error) {
	mediaType, params, err := mime.ParseMediaType(Header(request, "Content-Type"))
	if err != nil || !strings.EqualFold(mediaType, "multipart/form-data") {
		return nil, apperr.Validation("content type must be multipart/form-data")
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, apperr.Validation("multipart boundary is missing")
	}

	body, err := RequestBody(request)
	if err != nil {
		return nil, err
	}

	reader := multipart.NewReader(bytes.NewReader(body), boundary)
	form, err := reader.ReadForm(constants.MaxMultipartMemory)
	if err != nil {
		return nil, apperr.Validation("invalid multipart body: %v", err)
	}
	defer form.RemoveAll()

	parsed := &MultipartForm{
		Values: form.Value,
		Files:  make(map[string]*models.FileUpload, len(form.File)),
	}
	for field, headers := range form.File {
		if len(headers) == 0 {
			continue
		}
		upload, err := readUpload(field, headers[0])
		if err != nil {
			return nil, err
		}
		parsed.Files[field] = upload
	}
	return parsed, nil
}

func readUpload(field string, header *multipart.FileHeader) (*models.FileUpload, error) {
	file, err := header.Open()
	if err != nil {
		return nil, apperr.Validation("cannot read %s", field)
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, constants.MaxCertificateBytes+1))
	if err != nil {
		return nil, apperr.Validation("cannot read %s", field)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = models.GetMimeType(header.Filename)
	}
	return &models.FileUpload{
		FieldName:   field,
		FileName:    header.Filename,
		ContentType: contentType,
		Content:     content,
	}, nil
}

// File returns the first upload present under any of names.
func (f *MultipartForm) File(names ...string) *models.FileUpload {
	for _, name := range names {
		if upload, ok := f.Files[name]; ok {
			return upload
		}
	}
	return nil
}

// Certificates picks the ONAC and CRT uploads, accepting the legacy CRT field name.
func (f *MultipartForm) Certificates() models.CertificateUploads {
	return models.CertificateUploads{
		Onac: f.File(models.FieldFileOnac),
		Crt:  f.File(models.FieldFileCRT, models.FieldFileExistenceCertificate),
	}
}
