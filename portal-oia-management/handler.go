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
	Oias          data.OiaRepository
	Authenticator auth.RequestAuthenticator
	Logger        *logrus.Logger
	ExposeDetail  bool
}

func (h *Handler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	h.Logger.WithFields(logrus.Fields{
		"operation": "Handle",
		"method":    request.HTTPMethod,
		"resource":  request.Resource,
	}).Info("OIA management request received")

	identity, err := h.Authenticator.Authenticate(ctx, request)
	if err != nil {
		return h.fail(err), nil
	}
	ctx = auth.WithIdentity(ctx, identity)

	switch request.HTTPMethod {
	case http.MethodGet:
		switch request.Resource {
		case "/api/oias":
			return h.handleGetOias(ctx, request), nil
		case "/api/oias/{id}":
			return h.handleGetOia(ctx, request), nil
		case "/api/oias/{id}/users":
			return h.handleGetOiaUsers(ctx, request), nil
		case "/api/oias/{id}/files/{fileId}/url":
			return h.handleGetFileURL(ctx, request), nil
		}
	case http.MethodPost:
		switch request.Resource {
		case "/api/oias":
			return h.handleCreateOia(ctx, request), nil
		case "/api/oias/register":
			return h.handleRegisterOia(ctx, request), nil
		case "/api/oias/{id}/review":
			return h.handleReviewOia(ctx, request), nil
		}
	case http.MethodPut:
		switch request.Resource {
		case "/api/oias/me":
			return h.handleUpdateOwnOia(ctx, request), nil
		case "/api/oias/{id}":
			return h.handleUpdateOia(ctx, request), nil
		}
	default:
		return api.ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed", h.Logger), nil
	}
	return api.ErrorResponse(http.StatusNotFound, "Endpoint not found", h.Logger), nil
}

func (h *Handler) fail(err error) events.APIGatewayProxyResponse {
	return api.FailureResponse(err, h.ExposeDetail, h.Logger)
}

// handleGetOias handles GET /api/oias
func (h *Handler) handleGetOias(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	scope, err := auth.ScopeFor(auth.IdentityFromContext(ctx), "oias", "read")
	if err != nil {
		return h.fail(err)
	}
	filters, err := models.ParseOiaFilters(request.QueryStringParameters)
	if err != nil {
		return h.fail(apperr.Validation("%v", err))
	}

	oias, total, err := h.Oias.GetOias(ctx, filters, scope)
	if err != nil {
		return h.fail(err)
	}
	return api.ListResponse(oias, models.NewPagination(filters.PageRequest, total), h.Logger)
}

// handleGetOia handles GET /api/oias/{id}
func (h *Handler) handleGetOia(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	scope, err := auth.ScopeFor(auth.IdentityFromContext(ctx), "oias", "read")
	if err != nil {
		return h.fail(err)
	}
	id, err := api.PathID(request, "id")
	if err != nil {
		return h.fail(err)
	}

	oia, err := h.Oias.GetOiaByID(ctx, id, scope, api.QueryBool(request, "includeFiles"))
	if err != nil {
		return h.fail(err)
	}
	return api.SuccessResponse(http.StatusOK, oia, h.Logger)
}

// handleGetOiaUsers handles GET /api/oias/{id}/users
func (h *Handler) handleGetOiaUsers(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	scope, err := auth.ScopeFor(auth.IdentityFromContext(ctx), "oias", "read")
	if err != nil {
		return h.fail(err)
	}
	id, err := api.PathID(request, "id")
	if err != nil {
		return h.fail(err)
	}

	users, err := h.Oias.GetOiaUsers(ctx, id, scope)
	if err != nil {
		return h.fail(err)
	}
	return api.SuccessResponse(http.StatusOK, users, h.Logger)
}

// handleGetFileURL handles GET /api/oias/{id}/files/{fileId}/url
func (h *Handler) handleGetFileURL(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	scope, err := auth.ScopeFor(auth.IdentityFromContext(ctx), "oias", "read")
	if err != nil {
		return h.fail(err)
	}
	id, err := api.PathID(request, "id")
	if err != nil {
		return h.fail(err)
	}
	fileID, err := api.PathID(request, "fileId")
	if err != nil {
		return h.fail(err)
	}

	signed, err := h.Oias.GetFileURL(ctx, id, fileID, scope)
	if err != nil {
		return h.fail(err)
	}
	return api.SuccessResponse(http.StatusOK, signed, h.Logger)
}

// handleCreateOia handles POST /api/oias. The OIA starts Pending whatever status is sent.
func (h *Handler) handleCreateOia(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	if err := auth.Require(auth.IdentityFromContext(ctx), auth.OiasCreate); err != nil {
		return h.fail(err)
	}

	var input models.OiaInput
	if err := api.ParseJSONRequest(request, &input); err != nil {
		return h.fail(err)
	}
	oia, err := input.ValidateCreate()
	if err != nil {
		return h.fail(apperr.Validation("%v", err))
	}

	created, err := h.Oias.CreateOia(ctx, oia)
	if err != nil {
		return h.fail(err)
	}
	return api.SuccessResponse(http.StatusCreated, created, h.Logger)
}

// handleRegisterOia handles POST /api/oias/register (multipart with both certificates).
func (h *Handler) handleRegisterOia(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	if err := auth.Require(auth.IdentityFromContext(ctx), auth.OiasRegister); err != nil {
		return h.fail(err)
	}

	form, err := api.ParseMultipart(request)
	if err != nil {
		return h.fail(err)
	}
	var input models.OiaInput
	if err := input.BindForm(form.Values); err != nil {
		return h.fail(apperr.Validation("%v", err))
	}
	var applicant models.ApplicantInput
	applicant.BindForm(form.Values)

	registration, err := models.NewRegistration(input, applicant, form.Certificates())
	if err != nil {
		return h.fail(apperr.Validation("%v", err))
	}

	oia, err := h.Oias.RegisterOia(ctx, registration)
	if err != nil {
		return h.fail(err)
	}
	return api.MessageResponse(http.StatusCreated, oia, "OIA registered", h.Logger)
}

// oiaUpdate is the decoded body of a PUT, sent either as JSON or as multipart.
type oiaUpdate struct {
	models.OiaInput
	models.ApplicantInput
	Certificates models.CertificateUploads `json:"-"`
}

func parseOiaUpdate(request events.APIGatewayProxyRequest) (*oiaUpdate, error) {
	update := &oiaUpdate{}
	if !api.IsMultipart(request) {
		if err := api.ParseJSONRequest(request, update); err != nil {
			return nil, err
		}
		return update, nil
	}

	form, err := api.ParseMultipart(request)
	if err != nil {
		return nil, err
	}
	if err := update.OiaInput.BindForm(form.Values); err != nil {
		return nil, apperr.Validation("%v", err)
	}
	update.ApplicantInput.BindForm(form.Values)
	update.Certificates = form.Certificates()
	if err := update.Certificates.Validate(); err != nil {
		return nil, apperr.Validation("%v", err)
	}
	return update, nil
}

// handleUpdateOia handles PUT /api/oias/{id}
func (h *Handler) handleUpdateOia(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	if err := auth.Require(auth.IdentityFromContext(ctx), auth.OiasUpdate); err != nil {
		return h.fail(err)
	}
	id, err := api.PathID(request, "id")
	if err != nil {
		return h.fail(err)
	}
	update, err := parseOiaUpdate(request)
	if err != nil {
		return h.fail(err)
	}
	set, err := update.OiaInput.UpdateAssignments(true)
	if err != nil {
		return h.fail(apperr.Validation("%v", err))
	}
	if len(set) == 0 && len(update.Certificates.Items()) == 0 {
		return h.fail(apperr.Validation("no fields to update"))
	}

	oia, err := h.Oias.UpdateOia(ctx, id, set, update.Certificates)
	if err != nil {
		return h.fail(err)
	}
	return api.SuccessResponse(http.StatusOK, oia, h.Logger)
}

// handleUpdateOwnOia handles PUT /api/oias/me. Any edit sends the OIA back to review.
func (h *Handler) handleUpdateOwnOia(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	identity := auth.IdentityFromContext(ctx)
	if err := auth.Require(identity, auth.OiasUpdateOwn); err != nil {
		return h.fail(err)
	}
	if identity.OiaID == nil {
		return h.fail(apperr.Forbidden("caller is not linked to an OIA"))
	}
	update, err := parseOiaUpdate(request)
	if err != nil {
		return h.fail(err)
	}
	set, err := update.OiaInput.UpdateAssignments(false)
	if err != nil {
		return h.fail(apperr.Validation("%v", err))
	}
	contact, err := update.ApplicantInput.UpdateAssignments()
	if err != nil {
		return h.fail(apperr.Validation("%v", err))
	}

	oia, err := h.Oias.UpdateOwnOia(ctx, *identity.OiaID, identity.UserID, set, contact, update.Certificates)
	if err != nil {
		return h.fail(err)
	}
	return api.MessageResponse(http.StatusOK, oia, "Profile updated and sent for review", h.Logger)
}

// handleReviewOia handles POST /api/oias/{id}/review
func (h *Handler) handleReviewOia(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	if err := auth.Require(auth.IdentityFromContext(ctx), auth.OiasReview); err != nil {
		return h.fail(err)
	}
	id, err := api.PathID(request, "id")
	if err != nil {
		return h.fail(err)
	}
	var review models.ReviewInput
	if err := api.ParseJSONRequest(request, &review); err != nil {
		return h.fail(err)
	}
	if err := review.Validate(); err != nil {
		return h.fail(apperr.Validation("%v", err))
	}

	oia, err := h.Oias.ReviewOia(ctx, id, review)
	if err != nil {
		return h.fail(err)
	}
	return api.SuccessResponse(http.StatusOK, oia, h.Logger)
}
