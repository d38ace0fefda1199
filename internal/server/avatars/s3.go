// Package avatars stores account avatar images in S3-compatible object
// storage (MinIO in development) and hands back durable public URLs.
package avatars

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	sc "github.com/dmitrijs2005/contactbook/internal/server/config"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(client *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return client.PutObject(ctx, in)
	}
)

// S3Store uploads avatar objects with static credentials against a
// configurable endpoint. Path-style addressing keeps MinIO happy.
type S3Store struct {
	region       string
	user         string
	password     string
	bucket       string
	baseEndpoint string
}

func NewS3Store(cfg *sc.Config) *S3Store {
	return &S3Store{
		region:       cfg.S3Region,
		user:         cfg.S3RootUser,
		password:     cfg.S3RootPassword,
		bucket:       cfg.S3Bucket,
		baseEndpoint: cfg.S3BaseEndpoint,
	}
}

// randomStorageKey partitions objects by upload date.
func randomStorageKey(ext string) string {
	d := time.Now()
	return fmt.Sprintf("avatars/%d/%d/%d/%v%s", d.Year(), d.Month(), d.Day(), uuid.New(), ext)
}

func (s *S3Store) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.user,     // MINIO_ROOT_USER
			s.password, // MINIO_ROOT_PASSWORD
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.baseEndpoint)
		o.UsePathStyle = true
	})

	return client, nil
}

// Upload stores data under a fresh object key and returns the public URL of
// the uploaded avatar.
func (s *S3Store) Upload(ctx context.Context, data []byte, contentType string, ext string) (string, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return "", err
	}

	bucket := s.bucket
	key := randomStorageKey(ext)

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return "", err
	}

	return s.PublicURL(key), nil
}

// PublicURL builds the path-style URL where an uploaded object is served.
func (s *S3Store) PublicURL(key string) string {
	return strings.TrimRight(s.baseEndpoint, "/") + "/" + s.bucket + "/" + key
}
