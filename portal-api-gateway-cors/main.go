package main

import (
	"os"

	"certification/lib/clients"
	"certification/lib/config"
	"certification/lib/data"
	"certification/lib/util"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"
)

var (
	logger        *logrus.Logger
	isLocal       bool
	ssmRepository data.SSMRepository
	ssmParams     map[string]string
)

func main() {
	setup()

	cfg, err := config.Load(ssmParams, os.Getenv)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"operation": "main",
			"error":     err.Error(),
		}).Fatal("Invalid configuration")
	}

	handler := &Handler{Origins: cfg, Logger: logger}
	lambda.Start(handler.Handle)
}

func setup() {
	isLocal = config.IsLocal(os.Getenv)

	logger = logrus.New()
	util.SetLogLevel(logger, os.Getenv("LOG_LEVEL"))
	logger.SetFormatter(&logrus.JSONFormatter{
		PrettyPrint: isLocal,
	})

	// Setup SSM client
	ssmRepository = &data.SSMDao{
		SSM:    clients.NewSSMClient(isLocal, config.Region(os.Getenv)),
		Logger: logger,
	}

	var err error
	ssmParams, err = ssmRepository.GetParameters()
	if err != nil {
		logger.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Fatal("Error while getting ssm params from param store")
	}
}
