package main

import (
	"context"
	"io"
	"net/http"
	"testing"

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

type fakeInspectorRepository struct {
	filters models.InspectorFilters
	scope   models.AccessScope
	created *models.Inspector
	set     []models.ColumnValue
	err     error
}

func (f *fakeInspectorRepository) GetInspectors(ctx context.Context, filters models.InspectorFilters, scope models.AccessScope) ([]models.InspectorResponse, int64, error) {
	f.filters, f.scope = filters, scope
	return []models.InspectorResponse{}, 0, f.err
}

func (f *fakeInspectorRepository) GetInspectorByID(ctx context.Context, id int64, scope models.AccessScope) (*models.InspectorResponse, error) {
	f.scope = scope
	if f.err != nil {
		return nil, f.err
	}
	return &models.InspectorResponse{Inspector: models.Inspector{ID: id}}, nil
}

func (f *fakeInspectorRepository) CreateInspector(ctx context.Context, inspector *models.Inspector) (*models.InspectorResponse, error) {
	f.created = inspector
	if f.err != nil {
		return nil, f.err
	}
	return &models.InspectorResponse{Inspector: *inspector}, nil
}

func (f *fakeInspectorRepository) UpdateInspector(ctx context.Context, id int64, set []models.ColumnValue, scope models.AccessScope) (*models.InspectorResponse, error) {
	f.set, f.scope = set, scope
	if f.err != nil {
		return nil, f.err
	}
	return &models.InspectorResponse{Inspector: models.Inspector{ID: id}}, nil
}

func newHandler(role models.Role, oiaID *int64, repo *fakeInspectorRepository) *Handler {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	identity := &models.Identity{UserID: 4, Email: "user@gas.co", Role: &role, OiaID: oiaID}
	return &Handler{Inspectors: repo, Authenticator: &stubAuthenticator{identity: identity}, Logger: logger}
}

func oia(id int64) *int64 {
	return &id
}

func TestHandle_CreateInspectorForOwnOia(t *testing.T) {
	// Arrange
	repo := &fakeInspectorRepository{}
	h := newHandler(models.RoleOia, oia(5), repo)

	// Act
	response, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Resource:   "/api/inspectors",
		Body:       `{"identification":"1020304050","name":"Carlos Ruiz","oiaId":77,"status":2}`,
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, response.StatusCode)
	require.NotNil(t, repo.created)
	assert.Equal(t, int64(5), repo.created.OiaID)
	assert.Equal(t, models.StatusPending, repo.created.Status)
}

func TestHandle_CreateInspectorDuplicate(t *testing.T) {
	// Arrange
	repo := &fakeInspectorRepository{err: apperr.Conflict("inspector 1020304050 is already registered for this OIA")}
	h := newHandler(models.RoleAdmin, nil, repo)

	// Act
	response, _ := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Resource:   "/api/inspectors",
		Body:       `{"identification":"1020304050","name":"Carlos Ruiz","oiaId":5}`,
	})

	// Assert
	assert.Equal(t, http.StatusConflict, response.StatusCode)
}

func TestHandle_CreateInspectorMissingOia(t *testing.T) {
	// Arrange
	repo := &fakeInspectorRepository{}
	h := newHandler(models.RoleAdmin, nil, repo)

	// Act
	response, _ := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Resource:   "/api/inspectors",
		Body:       `{"identification":"1020304050","name":"Carlos Ruiz"}`,
	})

	// Assert
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	assert.Nil(t, repo.created)
}

func TestHandle_UpdateInspectorByOiaReturnsToPending(t *testing.T) {
	// Arrange
	repo := &fakeInspectorRepository{}
	h := newHandler(models.RoleOia, oia(5), repo)

	// Act
	response, _ := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:     http.MethodPut,
		Resource:       "/api/inspectors/{id}",
		PathParameters: map[string]string{"id": "12"},
		Body:           `{"name":"Carlos A. Ruiz","status":2,"oiaId":9}`,
	})

	// Assert
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, []models.ColumnValue{
		{Column: "name", Value: "Carlos A. Ruiz"},
		{Column: "status", Value: int(models.StatusPending)},
	}, repo.set)
	assert.True(t, repo.scope.Restricted())
}

func TestHandle_UpdateInspectorByAdminReviews(t *testing.T) {
	// Arrange
	repo := &fakeInspectorRepository{}
	h := newHandler(models.RoleAdmin, nil, repo)

	// Act
	response, _ := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:     http.MethodPut,
		Resource:       "/api/inspectors/{id}",
		PathParameters: map[string]string{"id": "12"},
		Body:           `{"status":2}`,
	})

	// Assert
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, []models.ColumnValue{{Column: "status", Value: int(models.StatusApproved)}}, repo.set)
	assert.False(t, repo.scope.Restricted())
}

func TestHandle_UpdateInspectorNothingToChange(t *testing.T) {
	// Arrange
	repo := &fakeInspectorRepository{}
	h := newHandler(models.RoleAdmin, nil, repo)

	// Act
	response, _ := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:     http.MethodPut,
		Resource:       "/api/inspectors/{id}",
		PathParameters: map[string]string{"id": "12"},
		Body:           `{}`,
	})

	// Assert
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	assert.Nil(t, repo.set)
}

func TestHandle_UpdateInspectorForbiddenForInspectorRole(t *testing.T) {
	// Arrange
	repo := &fakeInspectorRepository{}
	h := newHandler(models.RoleInspector, oia(5), repo)

	// Act
	response, _ := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:     http.MethodPut,
		Resource:       "/api/inspectors/{id}",
		PathParameters: map[string]string{"id": "12"},
		Body:           `{"name":"x"}`,
	})

	// Assert
	assert.Equal(t, http.StatusForbidden, response.StatusCode)
}

func TestHandle_GetInspectorsPassesFilters(t *testing.T) {
	// Arrange
	repo := &fakeInspectorRepository{}
	h := newHandler(models.RoleStrategy, nil, repo)

	// Act
	response, _ := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		Resource:              "/api/inspectors",
		QueryStringParameters: map[string]string{"status": "1", "oiaId": "5"},
	})

	// Assert
	assert.Equal(t, http.StatusOK, response.StatusCode)
	require.NotNil(t, repo.filters.Status)
	assert.Equal(t, models.StatusPending, *repo.filters.Status)
	assert.Equal(t, int64(5), *repo.filters.OiaID)
}

func TestHandle_DeleteInspectorNotAllowed(t *testing.T) {
	h := newHandler(models.RoleAdmin, nil, &fakeInspectorRepository{})

	response, _ := h.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodDelete, Resource: "/api/inspectors/{id}"})

	assert.Equal(t, http.StatusMethodNotAllowed, response.StatusCode)
}
