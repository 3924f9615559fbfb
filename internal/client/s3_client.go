package client

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"time"

	appConfig "project-review-api/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"project-review-api/internal/domain"
	"project-review-api/internal/service"
)

// S3FileStore stores project documents in S3 (or MinIO locally) and
// implements the workflow's file collaborator
type S3FileStore struct {
	client   *s3.Client
	bucket   string
	region   string
	endpoint string
}

var _ service.FileService = (*S3FileStore)(nil)

// NewS3FileStore creates a new S3-backed file store
func NewS3FileStore(cfg *appConfig.S3Config) (*S3FileStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("S3 region is required")
	}

	var awsCfg aws.Config
	var err error

	// If endpoint is provided (for local MinIO), use a custom endpoint
	// resolver with explicit credentials
	if cfg.Endpoint != "" {
		if cfg.AccessKey == "" || cfg.SecretKey == "" {
			return nil, fmt.Errorf("access key and secret key are required for MinIO endpoint")
		}
		awsCfg, err = config.LoadDefaultConfig(context.TODO(),
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKey,
				cfg.SecretKey,
				"",
			)),
			config.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{
						URL:               cfg.Endpoint,
						HostnameImmutable: true,
						SigningRegion:     cfg.Region,
					}, nil
				},
			)),
		)
	} else {
		// Use AWS SDK default credential chain (IAM role on EC2, ~/.aws/credentials locally)
		awsCfg, err = config.LoadDefaultConfig(context.TODO(),
			config.WithRegion(cfg.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.UsePathStyle = true // Required for MinIO
		}
	})

	return &S3FileStore{
		client:   s3Client,
		bucket:   cfg.Bucket,
		region:   cfg.Region,
		endpoint: cfg.Endpoint,
	}, nil
}

// GenerateFileKey generates a unique object key.
// Format: documents/{projectId}/{area}/{year}/{month}/{uuid}_{timestamp}.ext
func (s *S3FileStore) GenerateFileKey(area domain.ReviewArea, projectID uuid.UUID, fileName string) string {
	now := time.Now()
	return fmt.Sprintf("documents/%s/%s/%s/%s/%s_%d%s",
		projectID,
		area,
		now.Format("2006"),
		now.Format("01"),
		uuid.New(),
		now.Unix(),
		filepath.Ext(fileName),
	)
}

// SaveFile uploads the document content, hashing it on the way in. The
// returned checksum is what the review workflow records and later verifies.
func (s *S3FileStore) SaveFile(ctx context.Context, area domain.ReviewArea, projectID uuid.UUID, fileName, contentType string, file io.Reader) (*service.StoredFile, error) {
	hasher := sha256.New()
	var body bytes.Buffer
	size, err := io.Copy(io.MultiWriter(hasher, &body), file)
	if err != nil {
		return nil, fmt.Errorf("failed to read document content: %w", err)
	}

	key := s.GenerateFileKey(area, projectID, fileName)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body.Bytes()),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload file to S3: %w", err)
	}

	return &service.StoredFile{
		Key:      key,
		Size:     size,
		MimeType: contentType,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// VerifyIntegrity re-hashes the stored object and compares it against the
// recorded checksum
func (s *S3FileStore) VerifyIntegrity(ctx context.Context, key, checksum string) (bool, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return false, fmt.Errorf("failed to fetch file from S3: %w", err)
	}
	defer out.Body.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, out.Body); err != nil {
		return false, fmt.Errorf("failed to hash stored file: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)) == checksum, nil
}

// DeleteFile deletes an object
func (s *S3FileStore) DeleteFile(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}
	return nil
}

// GetFileURL returns the public URL for an object
func (s *S3FileStore) GetFileURL(key string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
