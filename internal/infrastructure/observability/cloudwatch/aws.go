package cloudwatch

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// AWSConfig is the connection part shared by the metrics and logs sinks.
type AWSConfig struct {
	Region          string
	Endpoint        string // LocalStack or another compatible endpoint
	AccessKeyID     string
	SecretAccessKey string
}

func buildAWSConfig(ctx context.Context, c AWSConfig) (aws.Config, error) {
	optFns := []func(*config.LoadOptions) error{
		config.WithRegion(c.Region),
	}
	if c.AccessKeyID != "" && c.SecretAccessKey != "" {
		optFns = append(optFns, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return aws.Config{}, err
	}
	if c.Endpoint != "" {
		cfg.BaseEndpoint = aws.String(c.Endpoint)
	}
	return cfg, nil
}
