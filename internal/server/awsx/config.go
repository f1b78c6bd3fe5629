// Package awsx builds aws.Config values shared by the DynamoDB store and the
// S3 document archive.
package awsx

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

var loadDefaultAWSConfig = config.LoadDefaultConfig

// Settings selects the region and, optionally, static credentials. With
// empty keys the SDK default credential chain is used.
type Settings struct {
	Region    string
	AccessKey string
	SecretKey string
}

func LoadConfig(ctx context.Context, s Settings) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(s.Region),
	}
	if s.AccessKey != "" || s.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.AccessKey,
			s.SecretKey,
			"",
		)))
	}
	return loadDefaultAWSConfig(ctx, opts...)
}
