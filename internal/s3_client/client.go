package s3_client

import (
	"context"
	"submission_service/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3Config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// New builds a client for AWS or an S3-compatible endpoint such as MinIO.
// Without static keys the SDK's default credential chain is used.
func New(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	loadOpts := []func(*s3Config.LoadOptions) error{
		s3Config.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKeyID != "" {
		loadOpts = append(loadOpts, s3Config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		))
	}

	awsCfg, err := s3Config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg, clientOptions(cfg)), nil
}

func clientOptions(cfg *config.Config) func(*s3.Options) {
	return func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3ForcePathStyle
	}
}
