package clients

import (
	"context"

	"certification/lib/constants"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// loadAWSConfig loads the default credential chain for region, pointing at
// LocalStack when running locally.
func loadAWSConfig(isLocal bool, region string) aws.Config {
	if region == "" {
		region = constants.DefaultRegion
	}
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(region),
	)
	if err != nil {
		panic("failed to load AWS configuration: " + err.Error())
	}

	if isLocal {
		cfg.BaseEndpoint = aws.String(constants.LocalStackEndpoint)
	}
	return cfg
}
