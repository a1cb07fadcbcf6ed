package auth

import (
	"context"
	"time"

	"certification/lib/models"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"
)

// Directory looks callers up by the email their token carries. It returns nil
// and no error when nobody matches.
type Directory interface {
	ResolveIdentity(ctx context.Context, email string) (*models.Identity, error)
}

// RequestAuthenticator is what handlers depend on to identify callers.
type RequestAuthenticator interface {
	Authenticate(ctx context.Context, request events.APIGatewayProxyRequest) (*models.Identity, error)
}

// Authenticator turns an API Gateway request into the caller's identity.
type Authenticator struct {
	Directory Directory
	Logger    *logrus.Logger
	Now       func() time.Time
}

// Authenticate fails only when the token is absent, malformed, expired or has
// no email. Unknown callers come back as an identity with UserID 0 and no role.
func (a *Authenticator) Authenticate(ctx context.Context, request events.APIGatewayProxyRequest) (*models.Identity, error) {
	token, err := ExtractBearerToken(request.Headers)
	if err != nil {
		return nil, err
	}

	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	claims, err := DecodeToken(token, now())
	if err != nil {
		a.Logger.WithFields(logrus.Fields{
			"operation": "Authenticate",
			"path":      request.Path,
			"error":     err.Error(),
		}).Warn("Rejected bearer token")
		return nil, err
	}

	identity, err := a.Directory.ResolveIdentity(ctx, claims.Email)
	if err != nil {
		a.Logger.WithFields(logrus.Fields{
			"operation": "Authenticate",
			"email":     claims.Email,
		}).WithError(err).Error("Failed to resolve identity")
		return nil, err
	}
	if identity == nil {
		a.Logger.WithFields(logrus.Fields{
			"operation": "Authenticate",
			"email":     claims.Email,
		}).Info("Authenticated caller has no directory record")
		return &models.Identity{Email: claims.Email}, nil
	}

	a.Logger.WithFields(logrus.Fields{
		"operation": "Authenticate",
		"user_id":   identity.UserID,
		"role":      roleLabel(identity.Role),
	}).Debug("Resolved caller identity")
	return identity, nil
}

func roleLabel(role *models.Role) string {
	if role == nil {
		return "none"
	}
	return string(*role)
}
