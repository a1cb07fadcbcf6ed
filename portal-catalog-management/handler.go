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

// Handler serves construction companies and the read-only catalogs.
type Handler struct {
	Companies     data.ConstructionCompanyRepository
	Catalogs      data.CatalogRepository
	Authenticator auth.RequestAuthenticator
	Logger        *logrus.Logger
	ExposeDetail  bool
}

func (h *Handler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	h.Logger.WithFields(logrus.Fields{
		"operation": "Handle",
		"method":    request.HTTPMethod,
		"resource":  request.Resource,
	}).Info("Catalog management request received")

	identity, err := h.Authenticator.Authenticate(ctx, request)
	if err != nil {
		return h.fail(err), nil
	}
	ctx = auth.WithIdentity(ctx, identity)

	switch request.HTTPMethod {
	case http.MethodGet:
		switch request.Resource {
		case "/api/construction-companies":
			return h.handleGetCompanies(ctx, request), nil
		case "/api/construction-companies/{id}":
			return h.handleGetCompany(ctx, request), nil
		case "/api/catalogs/inspection-types":
			return h.handleCatalog(ctx, func() (interface{}, error) { return h.Catalogs.GetInspectionTypes(ctx) }), nil
		case "/api/catalogs/causals":
			return h.handleCatalog(ctx, func() (interface{}, error) { return h.Catalogs.GetCausals(ctx) }), nil
		case "/api/catalogs/type-organisms":
			return h.handleCatalog(ctx, func() (interface{}, error) { return h.Catalogs.GetTypeOrganisms(ctx) }), nil
		case "/api/catalogs/checklist/{inspectionType}":
			return h.handleGetChecklistItems(ctx, request), nil
		}
	case http.MethodPost:
		if request.Resource == "/api/construction-companies" {
			return h.handleCreateCompany(ctx, request), nil
		}
	default:
		return api.ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed", h.Logger), nil
	}
	return api.ErrorResponse(http.StatusNotFound, "Endpoint not found", h.Logger), nil
}

func (h *Handler) fail(err error) events.APIGatewayProxyResponse {
	return api.FailureResponse(err, h.ExposeDetail, h.Logger)
}

func (h *Handler) handleGetCompanies(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	if err := auth.Require(auth.IdentityFromContext(ctx), auth.CompaniesRead); err != nil {
		return h.fail(err)
	}
	filters, err := models.ParseCompanyFilters(request.QueryStringParameters)
	if err != nil {
		return h.fail(apperr.Validation("%v", err))
	}

	companies, total, err := h.Companies.GetCompanies(ctx, filters)
	if err != nil {
		return h.fail(err)
	}
	return api.ListResponse(companies, models.NewPagination(filters.PageRequest, total), h.Logger)
}

func (h *Handler) handleGetCompany(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	if err := auth.Require(auth.IdentityFromContext(ctx), auth.CompaniesRead); err != nil {
		return h.fail(err)
	}
	id, err := api.PathID(request, "id")
	if err != nil {
		return h.fail(err)
	}

	company, err := h.Companies.GetCompanyByID(ctx, id)
	if err != nil {
		return h.fail(err)
	}
	return api.SuccessResponse(http.StatusOK, company, h.Logger)
}

func (h *Handler) handleCreateCompany(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	if err := auth.Require(auth.IdentityFromContext(ctx), auth.CompaniesCreate); err != nil {
		return h.fail(err)
	}
	var input models.ConstructionCompanyInput
	if err := api.ParseJSONRequest(request, &input); err != nil {
		return h.fail(err)
	}
	company, err := input.ValidateCreate()
	if err != nil {
		return h.fail(apperr.Validation("%v", err))
	}

	created, err := h.Companies.CreateCompany(ctx, company)
	if err != nil {
		return h.fail(err)
	}
	return api.SuccessResponse(http.StatusCreated, created, h.Logger)
}

// handleCatalog serves one of the flat catalogs.
func (h *Handler) handleCatalog(ctx context.Context, load func() (interface{}, error)) events.APIGatewayProxyResponse {
	if err := auth.Require(auth.IdentityFromContext(ctx), auth.CatalogsRead); err != nil {
		return h.fail(err)
	}
	items, err := load()
	if err != nil {
		return h.fail(err)
	}
	return api.SuccessResponse(http.StatusOK, items, h.Logger)
}

func (h *Handler) handleGetChecklistItems(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	if err := auth.Require(auth.IdentityFromContext(ctx), auth.CatalogsRead); err != nil {
		return h.fail(err)
	}
	typeID, err := api.PathID(request, "inspectionType")
	if err != nil {
		return h.fail(err)
	}

	items, err := h.Catalogs.GetChecklistItems(ctx, typeID)
	if err != nil {
		return h.fail(err)
	}
	return api.SuccessResponse(http.StatusOK, items, h.Logger)
}
