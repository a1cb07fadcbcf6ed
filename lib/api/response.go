package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"certification/lib/apperr"
	"certification/lib/models"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"
)

// Envelope is the body of every portal response.
type Envelope struct {
	Success    bool               `json:"success"`
	Data       interface{}        `json:"data,omitempty"`
	Error      string             `json:"error,omitempty"`
	Code       string             `json:"code,omitempty"`
	Message    string             `json:"message,omitempty"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
}

func responseHeaders() map[string]string {
	return map[string]string{
		"Content-Type":                 "application/json",
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token",
		"Access-Control-Allow-Methods": "GET,POST,PUT,DELETE,OPTIONS",
	}
}

func respond(statusCode int, envelope Envelope, logger *logrus.Logger) events.APIGatewayProxyResponse {
	body, err := json.Marshal(envelope)
	if err != nil {
		logger.WithError(err).Error("Failed to marshal response data")
		statusCode = http.StatusInternalServerError
		body = []byte(`{"success":false,"error":"Internal server error","code":"INTERNAL_ERROR"}`)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Body:       string(body),
		Headers:    responseHeaders(),
	}
}

// SuccessResponse creates a successful API Gateway response
func SuccessResponse(statusCode int, data interface{}, logger *logrus.Logger) events.APIGatewayProxyResponse {
	return respond(statusCode, Envelope{Success: true, Data: data}, logger)
}

// ListResponse returns one page of items with its pagination block.
func ListResponse(items interface{}, pagination models.Pagination, logger *logrus.Logger) events.APIGatewayProxyResponse {
	return respond(http.StatusOK, Envelope{Success: true, Data: items, Pagination: &pagination}, logger)
}

// MessageResponse returns data together with a human readable message.
func MessageResponse(statusCode int, data interface{}, message string, logger *logrus.Logger) events.APIGatewayProxyResponse {
	return respond(statusCode, Envelope{Success: true, Data: data, Message: message}, logger)
}

// ErrorResponse creates an error API Gateway response
func ErrorResponse(statusCode int, message string, logger *logrus.Logger) events.APIGatewayProxyResponse {
	return respond(statusCode, Envelope{Success: false, Error: message, Code: errorCode(statusCode)}, logger)
}

type failureKind struct {
	target  error
	status  int
	code    string
	message string
}

// Client kinds carry their own message; the rest get a generic one.
var failureKinds = []failureKind{
	{apperr.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR", ""},
	{apperr.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED", ""},
	{apperr.ErrForbidden, http.StatusForbidden, "FORBIDDEN", ""},
	{apperr.ErrNotFound, http.StatusNotFound, "NOT_FOUND", ""},
	{apperr.ErrConflict, http.StatusConflict, "CONFLICT", ""},
	{apperr.ErrUpload, http.StatusBadGateway, "UPLOAD_FAILED", "The file could not be uploaded"},
	{apperr.ErrPersistence, http.StatusInternalServerError, "PERSISTENCE_FAILED", "The file record could not be saved"},
}

// FailureResponse maps an error kind to its status code. The body carries the
// caller-facing message in error and the kind in code. Messages of server side
// failures are generic unless exposeDetail is set.
func FailureResponse(err error, exposeDetail bool, logger *logrus.Logger) events.APIGatewayProxyResponse {
	status := http.StatusInternalServerError
	code := "INTERNAL_ERROR"
	message := "Internal server error"

	for _, kind := range failureKinds {
		if errors.Is(err, kind.target) {
			status, code = kind.status, kind.code
			if kind.message == "" {
				message = apperr.Message(err)
			} else {
				message = kind.message
			}
			break
		}
	}

	entry := logger.WithFields(logrus.Fields{
		"operation": "FailureResponse",
		"status":    status,
		"code":      code,
	}).WithError(err)

	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
		if exposeDetail {
			message = message + ": " + err.Error()
		}
	} else {
		entry.Warn("Request rejected")
	}

	return respond(status, Envelope{Success: false, Error: message, Code: code}, logger)
}

func errorCode(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return "VALIDATION_ERROR"
	case http.StatusUnauthorized:
		return "UNAUTHENTICATED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusConflict:
		return "CONFLICT"
	default:
		return "INTERNAL_ERROR"
	}
}
