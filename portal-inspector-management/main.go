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

	handler := &Handler{
		Inspectors:    &data.InspectorDao{DB: sqlDB, Logger: logger},
		Authenticator: &auth.Authenticator{Directory: &data.UserDao{DB: sqlDB, Logger: logger}, Logger: logger},
		Logger:        logger,
		ExposeDetail:  !cfg.IsProduction(),
	}
	lambda.Start(handler.Handle)
}

func setup() {
	var err error

	isLocal = config.IsLocal(os.Getenv)
	logger = logrus.New()
	util.SetLogLevel(logger, os.Getenv("LOG_LEVEL"))
	logger.SetFormatter(&logrus.JSONFormatter{PrettyPrint: isLocal})

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

	sqlDB, err = clients.NewPostgresSQLClient(cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseName,
		cfg.DatabaseUser, cfg.DatabasePassword, cfg.SSLMode)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"operation": "setup",
			"error":     err.Error(),
		}).Fatal("Error setting up PostgreSQL client")
	}

	logger.WithFields(logrus.Fields{
		"operation":   "setup",
		"environment": cfg.Environment,
	}).Info("Inspector Management Lambda initialization completed successfully")
}
