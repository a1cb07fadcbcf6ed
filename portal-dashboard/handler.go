package main

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"certification/lib/api"
	"certification/lib/apperr"
	"certification/lib/auth"
	"certification/lib/constants"
	"certification/lib/data"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	Dashboard     data.DashboardRepository
	Authenticator auth.RequestAuthenticator
	Logger        *logrus.Logger
	ExposeDetail  bool
}

func (h *Handler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	h.Logger.WithFields(logrus.Fields{
		"operation": "Handle",
		"method":    request.HTTPMethod,
		"resource":  request.Resource,
	}).Info("Dashboard request received")

	if request.HTTPMethod != http.MethodGet {
		return api.ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed", h.Logger), nil
	}

	identity, err := h.Authenticator.Authenticate(ctx, request)
	if err != nil {
		return h.fail(err), nil
	}
	scope, err := auth.ScopeFor(identity, "dashboard", "read")
	if err != nil {
		return h.fail(err), nil
	}

	switch request.Resource {
	case "/api/dashboard/stats":
		stats, err := h.Dashboard.GetStats(ctx, scope)
		if err != nil {
			return h.fail(err), nil
		}
		return api.SuccessResponse(http.StatusOK, stats, h.Logger), nil

	case "/api/dashboard/pending-reports":
		limit, err := pendingLimit(request.QueryStringParameters["limit"])
		if err != nil {
			return h.fail(err), nil
		}
		reports, err := h.Dashboard.GetPendingReports(ctx, limit, scope)
		if err != nil {
			return h.fail(err), nil
		}
		return api.SuccessResponse(http.StatusOK, reports, h.Logger), nil

	default:
		return api.ErrorResponse(http.StatusNotFound, "Endpoint not found", h.Logger), nil
	}
}

func (h *Handler) fail(err error) events.APIGatewayProxyResponse {
	return api.FailureResponse(err, h.ExposeDetail, h.Logger)
}

func pendingLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return constants.DefaultPendingLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > constants.MaxPageLimit {
		return 0, apperr.Validation("limit must be between 1 and %d", constants.MaxPageLimit)
	}
	return limit, nil
}
