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
	Inspectors    data.InspectorRepository
	Authenticator auth.RequestAuthenticator
	Logger        *logrus.Logger
	ExposeDetail  bool
}

func (h *Handler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	h.Logger.WithFields(logrus.Fields{
		"operation": "Handle",
		"method":    request.HTTPMethod,
		"resource":  request.Resource,
	}).Info("Inspector management request received")

	identity, err := h.Authenticator.Authenticate(ctx, request)
	if err != nil {
		return h.fail(err), nil
	}
	ctx = auth.WithIdentity(ctx, identity)

	switch {
	case request.HTTPMethod == http.MethodGet && request.Resource == "/api/inspectors":
		return h.handleGetInspectors(ctx, request), nil
	case request.HTTPMethod == http.MethodGet && request.Resource == "/api/inspectors/{id}":
		return h.handleGetInspector(ctx, request), nil
	case request.HTTPMethod == http.MethodPost && request.Resource == "/api/inspectors":
		return h.handleCreateInspector(ctx, request), nil
	case request.HTTPMethod == http.MethodPut && request.Resource == "/api/inspectors/{id}":
		return h.handleUpdateInspector(ctx, request), nil
	case request.Resource == "/api/inspectors" || request.Resource == "/api/inspectors/{id}":
		return api.ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed", h.Logger), nil
	default:
		return api.ErrorResponse(http.StatusNotFound, "Endpoint not found", h.Logger), nil
	}
}

func (h *Handler) fail(err error) events.APIGatewayProxyResponse {
	return api.FailureResponse(err, h.ExposeDetail, h.Logger)
}

func (h *Handler) handleGetInspectors(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	scope, err := auth.ScopeFor(auth.IdentityFromContext(ctx), "inspectors", "read")
	if err != nil {
		return h.fail(err)
	}
	filters, err := models.ParseInspectorFilters(request.QueryStringParameters)
	if err != nil {
		return h.fail(apperr.Validation("%v", err))
	}

	inspectors, total, err := h.Inspectors.GetInspectors(ctx, filters, scope)
	if err != nil {
		return h.fail(err)
	}
	return api.ListResponse(inspectors, models.NewPagination(filters.PageRequest, total), h.Logger)
}

func (h *Handler) handleGetInspector(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	scope, err := auth.ScopeFor(auth.IdentityFromContext(ctx), "inspectors", "read")
	if err != nil {
		return h.fail(err)
	}
	id, err := api.PathID(request, "id")
	if err != nil {
		return h.fail(err)
	}

	inspector, err := h.Inspectors.GetInspectorByID(ctx, id, scope)
	if err != nil {
		return h.fail(err)
	}
	return api.SuccessResponse(http.StatusOK, inspector, h.Logger)
}

// handleCreateInspector registers an inspector as Pending. An OIA can only
// register inspectors for itself.
func (h *Handler) handleCreateInspector(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	identity := auth.IdentityFromContext(ctx)
	if err := auth.Require(identity, auth.InspectorsCreate); err != nil {
		return h.fail(err)
	}
	scope, err := auth.ScopeFor(identity, "inspectors", "read")
	if err != nil {
		return h.fail(err)
	}

	var input models.InspectorInput
	if err := api.ParseJSONRequest(request, &input); err != nil {
		return h.fail(err)
	}
	if scope.Restricted() {
		input.OiaID = scope.OiaID
	}
	inspector, err := input.ValidateCreate()
	if err != nil {
		return h.fail(apperr.Validation("%v", err))
	}

	created, err := h.Inspectors.CreateInspector(ctx, inspector)
	if err != nil {
		return h.fail(err)
	}
	return api.SuccessResponse(http.StatusCreated, created, h.Logger)
}

// handleUpdateInspector edits an inspector. Only unrestricted callers review;
// an OIA editing its own inspector sends it back to Pending.
func (h *Handler) handleUpdateInspector(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	scope, err := auth.ScopeFor(auth.IdentityFromContext(ctx), "inspectors", "update")
	if err != nil {
		return h.fail(err)
	}
	id, err := api.PathID(request, "id")
	if err != nil {
		return h.fail(err)
	}
	var input models.InspectorInput
	if err := api.ParseJSONRequest(request, &input); err != nil {
		return h.fail(err)
	}
	set, err := input.UpdateAssignments(!scope.Restricted())
	if err != nil {
		return h.fail(apperr.Validation("%v", err))
	}
	if len(set) == 0 {
		return h.fail(apperr.Validation("no fields to update"))
	}

	inspector, err := h.Inspectors.UpdateInspector(ctx, id, set, scope)
	if err != nil {
		return h.fail(err)
	}
	return api.SuccessResponse(http.StatusOK, inspector, h.Logger)
}
