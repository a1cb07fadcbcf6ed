package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"certification/lib/api"
	"certification/lib/apperr"
	"certification/lib/models"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuthenticator struct {
	identity *models.Identity
}

func (s *stubAuthenticator) Authenticate(ctx context.Context, request events.APIGatewayProxyRequest) (*models.Identity, error) {
	if s.identity == nil {
		return nil, apperr.Unauthenticated("missing bearer token")
	}
	return s.identity, nil
}

type fakeCompanyRepository struct {
	filters models.CompanyFilters
	created *models.ConstructionCompany
	err     error
}

func (f *fakeCompanyRepository) GetCompanies(ctx context.Context, filters models.CompanyFilters) ([]models.ConstructionCompany, int64, error) {
	f.filters = filters
	return []models.ConstructionCompany{{ID: 1, Name: "Constructora Bolívar"}}, 1, f.err
}

func (f *fakeCompanyRepository) GetCompanyByID(ctx context.Context, id int64) (*models.ConstructionCompany, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.ConstructionCompany{ID: id}, nil
}

func (f *fakeCompanyRepository) CreateCompany(ctx context.Context, company *models.ConstructionCompany) (*models.ConstructionCompany, error) {
	f.created = company
	if f.err != nil {
		return nil, f.err
	}
	return company, nil
}

type fakeCatalogRepository struct {
	checklistType int64
	err           error
}

func (f *fakeCatalogRepository) GetInspectionTypes(ctx context.Context) ([]models.InspectionType, error) {
	return []models.InspectionType{{ID: 1, Code: "NUEVA", Name: "Instalación nueva"}}, f.err
}

func (f *fakeCatalogRepository) GetCausals(ctx context.Context) ([]models.Causal, error) {
	return []models.Causal{{ID: 4, Code: "C04", Name: "Fotos ilegibles"}}, f.err
}

func (f *fakeCatalogRepository) GetChecklistItems(ctx context.Context, inspectionTypeID int64) ([]models.ChecklistItem, error) {
	f.checklistType = inspectionTypeID
	if f.err != nil {
		return nil, f.err
	}
	return []models.ChecklistItem{}, nil
}

func (f *fakeCatalogRepository) GetTypeOrganisms(ctx context.Context) ([]models.TypeOrganism, error) {
	return []models.TypeOrganism{}, f.err
}

func newHandler(role models.Role, companies *fakeCompanyRepository, catalogs *fakeCatalogRepository) *Handler {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	identity := &models.Identity{UserID: 2, Email: "user@gas.co", Role: &role}
	return &Handler{
		Companies:     companies,
		Catalogs:      catalogs,
		Authenticator: &stubAuthenticator{identity: identity},
		Logger:        logger,
	}
}

func TestHandle_CreateCompany(t *testing.T) {
	// Arrange
	companies := &fakeCompanyRepository{}
	h := newHandler(models.RoleCompanyManager, companies, &fakeCatalogRepository{})

	// Act
	response, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Resource:   "/api/construction-companies",
		Body:       `{"identification":"860001234","name":" Constructora Bolívar ","email":"Obras@Bolivar.co"}`,
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, response.StatusCode)
	require.NotNil(t, companies.created)
	assert.Equal(t, "Constructora Bolívar", companies.created.Name)
	assert.Equal(t, "obras@bolivar.co", companies.created.Email)
}

func TestHandle_CreateCompanyForbiddenForOia(t *testing.T) {
	// Arrange
	companies := &fakeCompanyRepository{}
	h := newHandler(models.RoleOia, companies, &fakeCatalogRepository{})

	// Act
	response, _ := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Resource:   "/api/construction-companies",
		Body:       `{"identification":"860001234","name":"Constructora Bolívar"}`,
	})

	// Assert
	assert.Equal(t, http.StatusForbidden, response.StatusCode)
	assert.Nil(t, companies.created)
}

func TestHandle_CreateCompanyDuplicate(t *testing.T) {
	// Arrange
	companies := &fakeCompanyRepository{err: apperr.Conflict("a construction company with identification 860001234 already exists")}
	h := newHandler(models.RoleAdmin, companies, &fakeCatalogRepository{})

	// Act
	response, _ := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Resource:   "/api/construction-companies",
		Body:       `{"identification":"860001234","name":"Constructora Bolívar"}`,
	})

	// Assert
	assert.Equal(t, http.StatusConflict, response.StatusCode)
}

func TestHandle_GetCompaniesSearch(t *testing.T) {
	// Arrange
	companies := &fakeCompanyRepository{}
	h := newHandler(models.RoleSac, companies, &fakeCatalogRepository{})

	// Act
	response, _ := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		Resource:              "/api/construction-companies",
		QueryStringParameters: map[string]string{"search": "bolivar"},
	})

	// Assert
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, "bolivar", companies.filters.Search)
}

func TestHandle_GetCausals(t *testing.T) {
	// Arrange
	h := newHandler(models.RoleInspector, &fakeCompanyRepository{}, &fakeCatalogRepository{})

	// Act
	response, _ := h.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Resource: "/api/catalogs/causals"})

	// Assert
	assert.Equal(t, http.StatusOK, response.StatusCode)
	var envelope struct {
		api.Envelope
		Data []models.Causal `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(response.Body), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "C04", envelope.Data[0].Code)
}

func TestHandle_GetChecklistUnknownType(t *testing.T) {
	// Arrange
	catalogs := &fakeCatalogRepository{err: apperr.NotFound("inspection type")}
	h := newHandler(models.RoleAdmin, &fakeCompanyRepository{}, catalogs)

	// Act
	response, _ := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:     http.MethodGet,
		Resource:       "/api/catalogs/checklist/{inspectionType}",
		PathParameters: map[string]string{"inspectionType": "42"},
	})

	// Assert
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
	assert.Equal(t, int64(42), catalogs.checklistType)
}

func TestHandle_GetChecklistInvalidType(t *testing.T) {
	// Arrange
	catalogs := &fakeCatalogRepository{}
	h := newHandler(models.RoleAdmin, &fakeCompanyRepository{}, catalogs)

	// Act
	response, _ := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:     http.MethodGet,
		Resource:       "/api/catalogs/checklist/{inspectionType}",
		PathParameters: map[string]string{"inspectionType": "abc"},
	})

	// Assert
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	assert.Zero(t, catalogs.checklistType)
}
