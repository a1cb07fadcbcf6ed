package main

import (
	"context"
	"net/http"

	"certification/lib/api"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"
)

// OriginPolicy decides which browser origins may call the API.
type OriginPolicy interface {
	OriginAllowed(origin string) bool
}

// Handler answers the OPTIONS preflight for every API route.
type Handler struct {
	Origins OriginPolicy
	Logger  *logrus.Logger
}

func (h *Handler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	origin := api.Header(request, "origin")
	if origin == "" {
		h.Logger.WithField("operation", "Handle").Warn("Origin is not present in the request headers")
		return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest}, nil
	}

	if !h.Origins.OriginAllowed(origin) {
		h.Logger.WithFields(logrus.Fields{
			"operation": "Handle",
			"origin":    origin,
		}).Warn("Unauthorized origin")
		return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest}, nil
	}

	h.Logger.WithFields(logrus.Fields{
		"operation": "Handle",
		"origin":    origin,
	}).Debug("Preflight accepted")

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"Access-Control-Allow-Origin":      origin,
			"Access-Control-Allow-Headers":     "Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token",
			"Access-Control-Allow-Methods":     "GET, PUT, POST, OPTIONS",
			"Access-Control-Allow-Credentials": "true",
			"Vary":                             "Origin",
		},
	}, nil
}
