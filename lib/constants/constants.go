package constants

import "time"

const (
	PARAMETER_PATH         = "/certification"
	ALLOWED_ORIGINS        = "/certification/ALLOWED_ORIGINS"
	DATABASE_RDS_PROXY_URL = "/certification/DATABASE_RDS_PROXY_URL"
	DATABASE_RDS_ENDPOINT  = "/certification/DATABASE_RDS_ENDPOINT"
	DATABASE_PORT          = "/certification/DATABASE_PORT"
	DATABASE_NAME          = "/certification/DATABASE_NAME"
	DATABASE_USERNAME      = "/certification/DATABASE_USERNAME"
	DATABASE_PASSWORD      = "/certification/DATABASE_PASSWORD"
	SSL_MODE               = "/certification/SSL_MODE"
	FILES_BUCKET           = "/certification/FILES_BUCKET"
	COGNITO_USER_POOL_ID   = "/certification/COGNITO_USER_POOL_ID"
	ENVIRONMENT            = "/certification/ENVIRONMENT"
	SIGNED_URL_TTL_MINUTES = "/certification/SIGNED_URL_TTL_MINUTES"
	DRIVER_NAME            = "postgres"
)

const (
	DefaultRegion       = "us-east-1"
	DefaultEnvironment  = "development"
	ProductionEnv       = "production"
	DefaultSignedURLTTL = 55 * time.Minute
	DefaultPage         = 1
	DefaultPageLimit    = 20
	MaxPageLimit        = 100
	DefaultPendingLimit = 10
	MaxCertificateBytes = 10 << 20
	MaxMultipartMemory  = 32 << 20
	LocalStackEndpoint  = "http://docker.for.mac.host.internal:4566"
)
