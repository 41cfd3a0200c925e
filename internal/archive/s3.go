package archive

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"
	"voicebrief/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store creates an S3-compatible blob store for archived audio.
func NewS3Store(endpoint, accessKey, secretKey, bucket, region string) (*S3Store, error) {
	customResolver := aws.EndpointResolverWithOptionsFunc(
		func(service, reg string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:           endpoint,
				SigningRegion: region,
			}, nil
		})

	cfg, err := config.LoadDefaultConfig(
		context.TODO(),
		config.WithEndpointResolverWithOptions(customResolver),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	logger.Info("S3 audio archive initialized", zap.String("bucket", bucket))

	return &S3Store{
		client: client,
		bucket: bucket,
	}, nil
}

// UploadAudio uploads the voice audio under the given key.
func (s *S3Store) UploadAudio(ctx context.Context, key string, body io.Reader, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})

	if err != nil {
		return fmt.Errorf("failed to upload audio: %w", err)
	}

	logger.Debug("Audio uploaded to S3", zap.String("key", key))

	return nil
}

// GenerateKey produces a date-partitioned object key for a message.
func (s *S3Store) GenerateKey(messageKey, extension string) string {
	datePrefix := time.Now().Format("2006/01/02")
	return path.Join("voice", datePrefix, messageKey+extension)
}
