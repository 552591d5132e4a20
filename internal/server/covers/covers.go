// Package covers hands out presigned S3 URLs for copy cover images. The
// server never proxies image bytes; clients talk to the bucket directly.
package covers

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrijs2005/librarian/internal/logging"
	sc "github.com/dmitrijs2005/librarian/internal/server/config"
	"github.com/dmitrijs2005/librarian/internal/server/models"
)

// URLExpiry is the lifetime of every presigned URL.
const URLExpiry = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// CopyFinder resolves a copy by id; it guards against URLs for unknown copies.
type CopyFinder interface {
	GetCopy(ctx context.Context, copyID string) (*models.Copy, error)
}

type Service struct {
	config  *sc.Config
	copies  CopyFinder
	presign *s3.PresignClient
	log     logging.Logger
}

// NewService builds the presign client once. Without a bucket or an
// endpoint cover storage is off and NewService returns nil.
func NewService(ctx context.Context, c *sc.Config, copies CopyFinder, log logging.Logger) (*Service, error) {
	if c.S3Bucket == "" || c.S3BaseEndpoint == "" {
		return nil, nil
	}

	presign, err := newPresignClient(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("error creating presign client: %w", err)
	}

	return &Service{
		config:  c,
		copies:  copies,
		presign: presign,
		log:     log.With("module", "covers"),
	}, nil
}

// Key is the object key of a copy's cover image.
func Key(copyID string) string {
	return "covers/" + copyID
}

func newPresignClient(ctx context.Context, c *sc.Config) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.S3RootUser,
			c.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(c.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// UploadURL returns the object key and a presigned PUT URL for the cover of copyID.
func (s *Service) UploadURL(ctx context.Context, copyID string) (string, string, error) {
	if _, err := s.copies.GetCopy(ctx, copyID); err != nil {
		return "", "", err
	}

	bucket := s.config.S3Bucket
	key := Key(copyID)

	req, err := presignPutObject(s.presign, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(URLExpiry))
	if err != nil {
		return "", "", err
	}

	s.log.Debug(ctx, "cover upload url issued", "copy_id", copyID)
	return key, req.URL, nil
}

// DownloadURL returns a presigned GET URL for the cover of copyID.
func (s *Service) DownloadURL(ctx context.Context, copyID string) (string, error) {
	bucket := s.config.S3Bucket
	key := Key(copyID)

	req, err := presignGetObject(s.presign, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(URLExpiry))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
