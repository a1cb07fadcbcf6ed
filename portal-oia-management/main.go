package main

import (
	"database/sql"
	"os"

	"certification/lib/auth"
	"certification/lib/clients"
	"certification/lib/config"
	"certification/lib/data"
	"certification/lib/util"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"
)

// Globals survive between invocations of a warm Lambda
var (
	logger        *logrus.Logger
	isLocal       bool
	ssmRepository data.SSMRepository
	ssmParams     map[string]string
	cfg           *config.Config
	sqlDB         *sql.DB
)

func main() {
	setup()

	users := &data.UserDao{DB: sqlDB, Logger: logger}
	oias := &data.OiaDao{
		DB:     sqlDB,
		Logger: logger,
		Users:  users,
		Files: &data.OiaFileDao{
			S3:           clients.NewS3Client(cfg.IsLocal, cfg.Region, cfg.FilesBucket),
			Logger:       logger,
			SignedURLTTL: cfg.SignedURLTTL,
		},
	}
	if cfg.UserPoolID != "" {
		oias.Provisioner = &data.CognitoProvisioner{
			Client:     clients.NewCognitoIdentityProviderClient(cfg.IsLocal, cfg.Region),
			UserPoolID: cfg.UserPoolID,
			Logger:     logger,
		}
	}

	handler := &Handler{
		Oias:          oias,
		Authenticator: &auth.Authenticator{Directory: users, Logger: logger},
		Logger:        logger,
		ExposeDetail:  !cfg.IsProduction(),
	}
	lambda.Start(handler.Handle)
}

// setup loads configuration and opens the database once per cold start.
func setup() {
	var err error

	isLocal = config.IsLocal(os.Getenv)
	logger = setupLogger(isLocal)

	// Initialize AWS SSM Parameter Store client
	ssmRepository = &data.SSMDao{
		SSM:    clients.NewSSMClient(isLocal, config.Region(os.Getenv)),
		Logger: logger,
	}

	ssmParams, err = ssmRepository.GetParameters()
	if err != nil {
		logger.WithFields(logrus.Fields{
			"operation": "setup",
			"error":     err.Error(),
		}).Fatal("Error while getting SSM params from parameter store")
	}

	cfg, err = config.Load(ssmParams, os.Getenv)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"operation": "setup",
			"error":     err.Error(),
		}).Fatal("Invalid configuration")
	}

	if err = setupPostgresSQLClient(cfg); err != nil {
		logger.WithFields(logrus.Fields{
			"operation": "setup",
			"error":     err.Error(),
		}).Fatal("Error setting up PostgreSQL client")
	}

	logger.WithFields(logrus.Fields{
		"operation":   "setup",
		"environment": cfg.Environment,
	}).Info("OIA Management Lambda initialization completed successfully")
}

func setupLogger(isLocal bool) *logrus.Logger {
	logger := logrus.New()
	util.SetLogLevel(logger, os.Getenv("LOG_LEVEL"))
	logger.SetFormatter(&logrus.JSONFormatter{PrettyPrint: isLocal})
	return logger
}

func setupPostgresSQLClient(cfg *config.Config) error {
	var err error
	sqlDB, err = clients.NewPostgresSQLClient(
		cfg.DatabaseHost,
		cfg.DatabasePort,
		cfg.DatabaseName,
		cfg.DatabaseUser,
		cfg.DatabasePassword,
		cfg.SSLMode,
	)
	return err
}
