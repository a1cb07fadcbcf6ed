package main

import (
	"context"
	"net/http"

	"certification/lib/api"
	"certification/lib/auth"
	"certification/lib/models"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"
)

// Pinger is the part of *sql.DB the health check needs.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	DB            Pinger
	Authenticator auth.RequestAuthenticator
	Logger        *logrus.Logger
	ExposeDetail  bool
}

func (h *Handler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	h.Logger.WithFields(logrus.Fields{
		"operation": "Handle",
		"method":    request.HTTPMethod,
		"resource":  request.Resource,
	}).Debug("Auth request received")

	if request.HTTPMethod != http.MethodGet {
		return api.ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed", h.Logger), nil
	}

	switch request.Resource {
	case "/api/health":
		return h.handleHealth(ctx), nil
	case "/api/auth/me":
		return h.handleMe(ctx, request), nil
	default:
		return api.ErrorResponse(http.StatusNotFound, "Endpoint not found", h.Logger), nil
	}
}

// handleHealth needs no token. It reports the database as down rather than failing.
func (h *Handler) handleHealth(ctx context.Context) events.APIGatewayProxyResponse {
	health := map[string]string{"status": "ok", "database": "ok"}
	if err := h.DB.PingContext(ctx); err != nil {
		h.Logger.WithField("operation", "handleHealth").WithError(err).Error("Database ping failed")
		health["status"] = "degraded"
		health["database"] = "unreachable"
		return api.SuccessResponse(http.StatusServiceUnavailable, health, h.Logger)
	}
	return api.SuccessResponse(http.StatusOK, health, h.Logger)
}

// handleMe returns the caller as the portal sees it. Callers with a valid token
// but no directory record get a 200 with no role and no permissions.
func (h *Handler) handleMe(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	identity, err := h.Authenticator.Authenticate(ctx, request)
	if err != nil {
		return api.FailureResponse(err, h.ExposeDetail, h.Logger)
	}

	me := models.MeResponse{
		Identity:    *identity,
		Permissions: auth.Permissions(identity.Role),
	}
	if identity.Role != nil {
		name := identity.Role.DisplayName()
		me.RoleName = &name
	}
	return api.SuccessResponse(http.StatusOK, me, h.Logger)
}
