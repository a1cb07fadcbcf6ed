package api

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"

	"certification/lib/apperr"

	"github.com/aws/aws-lambda-go/events"
)

// ParseJSONBody decodes a JSON request body into target.
func ParseJSONBody(body string, target interface{}) error {
	if strings.TrimSpace(body) == "" {
		return apperr.Validation("request body is required")
	}
	if err := json.Unmarshal([]byte(body), target); err != nil {
		return apperr.Validation("invalid request body: %v", err)
	}
	return nil
}

// RequestBody returns the raw body, decoding it when API Gateway base64 encoded it.
func RequestBody(request events.APIGatewayProxyRequest) ([]byte, error) {
	if !request.IsBase64Encoded {
		return []byte(request.Body), nil
	}
	body, err := base64.StdEncoding.DecodeString(request.Body)
	if err != nil {
		return nil, apperr.Validation("request body is not valid base64")
	}
	return body, nil
}

// ParseJSONRequest decodes the request body into target.
func ParseJSONRequest(request events.APIGatewayProxyRequest, target interface{}) error {
	body, err := RequestBody(request)
	if err != nil {
		return err
	}
	return ParseJSONBody(string(body), target)
}

// Header returns a request header regardless of the case it was sent in.
func Header(request events.APIGatewayProxyRequest, name string) string {
	if value, ok := request.Headers[name]; ok {
		return value
	}
	for key, value := range request.Headers {
		if strings.EqualFold(key, name) {
			return value
		}
	}
	return ""
}

// PathID parses a numeric path parameter.
func PathID(request events.APIGatewayProxyRequest, name string) (int64, error) {
	id, err := strconv.ParseInt(request.PathParameters[name], 10, 64)
	if err != nil || id < 1 {
		return 0, apperr.Validation("invalid %s", name)
	}
	return id, nil
}

// QueryBool reads a boolean query parameter, false when absent or malformed.
func QueryBool(request events.APIGatewayProxyRequest, name string) bool {
	value, err := strconv.ParseBool(request.QueryStringParameters[name])
	return err == nil && value
}
