package data

import (
	"context"
	"errors"
	"fmt"

	"certification/lib/apperr"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/sirupsen/logrus"
)

// IdentityProvisioner creates the login of a newly registered applicant.
type IdentityProvisioner interface {
	InviteUser(ctx context.Context, email, name string) (string, error)
	RevokeUser(ctx context.Context, username string) error
}

type CognitoClientInterface interface {
	AdminCreateUser(ctx context.Context, params *cognitoidentityprovider.AdminCreateUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminCreateUserOutput, error)
	AdminDeleteUser(ctx context.Context, params *cognitoidentityprovider.AdminDeleteUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminDeleteUserOutput, error)
}

// CognitoProvisioner invites applicants into the portal user pool. Cognito
// generates the temporary password and emails the invitation.
type CognitoProvisioner struct {
	Client     CognitoClientInterface
	UserPoolID string
	Logger     *logrus.Logger
}

func (p *CognitoProvisioner) InviteUser(ctx context.Context, email, name string) (string, error) {
	input := &cognitoidentityprovider.AdminCreateUserInput{
		UserPoolId:             aws.String(p.UserPoolID),
		Username:               aws.String(email),
		DesiredDeliveryMediums: []types.DeliveryMediumType{types.DeliveryMediumTypeEmail},
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
			{Name: aws.String("name"), Value: aws.String(name)},
			{Name: aws.String("email_verified"), Value: aws.String("true")},
		},
	}

	result, err := p.Client.AdminCreateUser(ctx, input)
	if err != nil {
		var exists *types.UsernameExistsException
		if errors.As(err, &exists) {
			return "", apperr.Conflict("a login already exists for %s", email)
		}
		p.Logger.WithFields(logrus.Fields{
			"operation": "InviteUser",
			"email":     email,
		}).WithError(err).Error("Failed to create user in Cognito")
		return "", fmt.Errorf("failed to create user in Cognito: %w", err)
	}

	username := email
	if result.User != nil && result.User.Username != nil {
		username = *result.User.Username
	}
	p.Logger.WithFields(logrus.Fields{
		"operation": "InviteUser",
		"username":  username,
	}).Info("Invited applicant")
	return username, nil
}

func (p *CognitoProvisioner) RevokeUser(ctx context.Context, username string) error {
	_, err := p.Client.AdminDeleteUser(ctx, &cognitoidentityprovider.AdminDeleteUserInput{
		UserPoolId: aws.String(p.UserPoolID),
		Username:   aws.String(username),
	})
	if err != nil {
		p.Logger.WithFields(logrus.Fields{
			"operation": "RevokeUser",
			"username":  username,
		}).WithError(err).Error("Failed to delete user from Cognito")
	}
	return err
}
