package main

import (
	"context"
	"net/http"

	"certification/lib/api"
	"certification/lib/apperr"
	"certification/lib/auth"
	"certification/lib/data"
	"certification/lib/models"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	Reports       data.ReportRepository
	Authenticator auth.RequestAuthenticator
	Logger        *logrus.Logger
	ExposeDetail  bool
}

func (h *Handler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	h.Logger.WithFields(logrus.Fields{
		"operation": "Handle",
		"method":    request.HTTPMethod,
		"resource":  request.Resource,
	}).Info("Report management request received")

	identity, err := h.Authenticator.Authenticate(ctx, request)
	if err != nil {
		return h.fail(err), nil
	}
	ctx = auth.WithIdentity(ctx, identity)

	switch request.HTTPMethod {
	case http.MethodGet:
		switch request.Resource {
		case "/api/reports":
			return h.handleGetReports(ctx, request), nil
		case "/api/reports/{id}":
			return h.handleGetReport(ctx, request), nil
		case "/api/reports/{id}/checklist":
			return h.handleGetChecklist(ctx, request), nil
		}
	case http.MethodPost:
		switch request.Resource {
		case "/api/reports":
			return h.handleCreateReport(ctx, request), nil
		case "/api/reports/{id}/review":
			return h.handleReviewReport(ctx, request), nil
		}
	case http.MethodPut:
		if request.Resource == "/api/reports/{id}/checklist" {
			return h.handleSaveChecklist(ctx, request), nil
		}
	default:
		return api.ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed", h.Logger), nil
	}
	return api.ErrorResponse(http.StatusNotFound, "Endpoint not found", h.Logger), nil
}

func (h *Handler) fail(err error) events.APIGatewayProxyResponse {
	return api.FailureResponse(err, h.ExposeDetail, h.Logger)
}

// handleGetReports handles GET /api/reports
func (h *Handler) handleGetReports(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	scope, err := auth.ScopeFor(auth.IdentityFromContext(ctx), "reports", "read")
	if err != nil {
		return h.fail(err)
	}
	filters, err := models.ParseReportFilters(request.QueryStringParameters)
	if err != nil {
		return h.fail(apperr.Validation("%v", err))
	}

	reports, total, err := h.Reports.GetReports(ctx, filters, scope)
	if err != nil {
		return h.fail(err)
	}
	return api.ListResponse(reports, models.NewPagination(filters.PageRequest, total), h.Logger)
}

// handleGetReport handles GET /api/reports/{id}
func (h *Handler) handleGetReport(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	scope, err := auth.ScopeFor(auth.IdentityFromContext(ctx), "reports", "read")
	if err != nil {
		return h.fail(err)
	}
	id, err := api.PathID(request, "id")
	if err != nil {
		return h.fail(err)
	}

	report, err := h.Reports.GetReportByID(ctx, id, scope)
	if err != nil {
		return h.fail(err)
	}
	return api.SuccessResponse(http.StatusOK, report, h.Logger)
}

// handleCreateReport handles POST /api/reports. Callers limited to their own
// OIA always file under it, whatever oiaId the body names.
func (h *Handler) handleCreateReport(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	identity := auth.IdentityFromContext(ctx)
	if err := auth.Require(identity, auth.ReportsCreate); err != nil {
		return h.fail(err)
	}
	scope, err := auth.ScopeFor(identity, "reports", "read")
	if err != nil {
		return h.fail(err)
	}

	var input models.ReportInput
	if err := api.ParseJSONRequest(request, &input); err != nil {
		return h.fail(err)
	}
	if scope.Restricted() {
		input.OiaID = scope.OiaID
	}
	report, err := input.ValidateCreate()
	if err != nil {
		return h.fail(apperr.Validation("%v", err))
	}

	created, err := h.Reports.CreateReport(ctx, report)
	if err != nil {
		return h.fail(err)
	}
	return api.SuccessResponse(http.StatusCreated, created, h.Logger)
}

// handleReviewReport handles POST /api/reports/{id}/review
func (h *Handler) handleReviewReport(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	identity := auth.IdentityFromContext(ctx)
	if err := auth.Require(identity, auth.ReportsReview); err != nil {
		return h.fail(err)
	}
	id, err := api.PathID(request, "id")
	if err != nil {
		return h.fail(err)
	}
	var review models.ReportReviewInput
	if err := api.ParseJSONRequest(request, &review); err != nil {
		return h.fail(err)
	}
	if err := review.Validate(); err != nil {
		return h.fail(apperr.Validation("%v", err))
	}

	report, err := h.Reports.ReviewReport(ctx, id, review, identity.UserID)
	if err != nil {
		return h.fail(err)
	}
	return api.SuccessResponse(http.StatusOK, report, h.Logger)
}

// handleGetChecklist handles GET /api/reports/{id}/checklist
func (h *Handler) handleGetChecklist(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	scope, err := auth.ScopeFor(auth.IdentityFromContext(ctx), "reports", "read")
	if err != nil {
		return h.fail(err)
	}
	id, err := api.PathID(request, "id")
	if err != nil {
		return h.fail(err)
	}

	checks, err := h.Reports.GetChecklist(ctx, id, scope)
	if err != nil {
		return h.fail(err)
	}
	return api.SuccessResponse(http.StatusOK, checks, h.Logger)
}

// handleSaveChecklist handles PUT /api/reports/{id}/checklist
func (h *Handler) handleSaveChecklist(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	identity := auth.IdentityFromContext(ctx)
	if err := auth.Require(identity, auth.ReportsChecklist, auth.ReportsCreate); err != nil {
		return h.fail(err)
	}
	scope, err := auth.ScopeFor(identity, "reports", "read")
	if err != nil {
		return h.fail(err)
	}
	id, err := api.PathID(request, "id")
	if err != nil {
		return h.fail(err)
	}
	var input models.ChecklistInput
	if err := api.ParseJSONRequest(request, &input); err != nil {
		return h.fail(err)
	}
	if err := input.Validate(); err != nil {
		return h.fail(apperr.Validation("%v", err))
	}

	checks, err := h.Reports.SaveChecklist(ctx, id, input, scope)
	if err != nil {
		return h.fail(err)
	}
	return api.SuccessResponse(http.StatusOK, checks, h.Logger)
}
