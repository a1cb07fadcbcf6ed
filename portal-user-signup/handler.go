package main

import (
	"context"
	"fmt"
	"strings"

	"certification/lib/models"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AuthLinker is the part of the user repository the trigger needs.
type AuthLinker interface {
	LinkAuthEmail(ctx context.Context, email string) (int64, error)
}

type Handler struct {
	Users  AuthLinker
	Logger *logrus.Logger
}

// Handle links the confirmed Cognito account to its portal user. It always
// returns the event so Cognito completes the confirmation.
func (h *Handler) Handle(ctx context.Context, event events.CognitoEventUserPoolsPostConfirmation) (events.CognitoEventUserPoolsPostConfirmation, error) {
	logger := h.Logger.WithFields(logrus.Fields{
		"correlation_id": uuid.NewString(),
		"trigger_source": event.TriggerSource,
		"cognito_id":     event.UserName,
		"operation":      "Handle",
	})

	email, err := confirmedEmail(event)
	if err != nil {
		logger.WithError(err).Error("Failed to extract email from Cognito event")
		return event, nil
	}

	linked, err := h.Users.LinkAuthEmail(ctx, email)
	if err != nil {
		logger.WithError(err).Error("Failed to link login identity, user may need admin assistance")
		return event, nil
	}
	if linked == 0 {
		logger.WithField("email", email).Warn("No unlinked portal user matches the confirmed account")
		return event, nil
	}

	logger.WithField("email", email).Info("Linked login identity to portal user")
	return event, nil
}

func confirmedEmail(event events.CognitoEventUserPoolsPostConfirmation) (string, error) {
	raw := strings.TrimSpace(event.Request.UserAttributes["email"])
	if raw == "" {
		return "", fmt.Errorf("email attribute is missing from Cognito event")
	}
	return models.NormalizeEmail(raw)
}
