package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store uploads assets to a bucket. Credentials and region come from the default AWS chain.
type S3Store struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
}

func NewS3Store(ctx context.Context, bucket, publicBaseURL string, optFns ...func(*s3.Options)) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewS3StoreFromConfig(cfg, bucket, publicBaseURL, optFns...), nil
}

func NewS3StoreFromConfig(cfg aws.Config, bucket, publicBaseURL string, optFns ...func(*s3.Options)) *S3Store {
	if publicBaseURL == "" {
		publicBaseURL = fmt.Sprintf("https://%s.s3.amazonaws.com", bucket)
	}
	return &S3Store{
		client:        s3.NewFromConfig(cfg, optFns...),
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func (s *S3Store) Save(ctx context.Context, data []byte, folder, ext string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty asset")
	}
	key := objectKey(folder, ext)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(ext)),
	})
	if err != nil {
		return "", fmt.Errorf("upload asset %s: %w", key, err)
	}
	return s.publicBaseURL + "/" + key, nil
}
