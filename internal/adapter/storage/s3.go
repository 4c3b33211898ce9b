// Package storage keeps capsule media attachments in S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"unicode"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/pscheid92/timecapsule/internal/domain"
)

const maxFilenameLength = 100

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Storage struct {
	client  objectPutter
	bucket  string
	baseURL string
}

var _ domain.MediaStore = (*S3Storage)(nil)

// NewS3Storage creates a store for bucket. A non-empty endpoint points the
// client at an S3-compatible service (LocalStack, MinIO) using path-style URLs.
func NewS3Storage(ctx context.Context, bucket, region, endpoint string) (*S3Storage, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	slog.Info("Media storage configured", "bucket", bucket, "region", region, "custom_endpoint", endpoint != "")
	return &S3Storage{client: client, bucket: bucket, baseURL: objectBaseURL(bucket, region, endpoint)}, nil
}

func objectBaseURL(bucket, region, endpoint string) string {
	if endpoint != "" {
		return strings.TrimRight(endpoint, "/") + "/" + bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
}

// Put uploads body under a fresh key in the owner's prefix and returns the object URL.
func (s *S3Storage) Put(ctx context.Context, ownerID uuid.UUID, filename, contentType string, body io.Reader) (string, error) {
	key := objectKey(ownerID, filename)

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload media: %w", err)
	}

	slog.InfoContext(ctx, "Media uploaded", "owner_id", ownerID, "key", key)
	return s.baseURL + "/" + (&url.URL{Path: key}).EscapedPath(), nil
}

func objectKey(ownerID uuid.UUID, filename string) string {
	return path.Join("media", ownerID.String(), uuid.NewString()+"-"+sanitizeFilename(filename))
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	clean := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			return r
		case unicode.IsSpace(r):
			return '_'
		default:
			return -1
		}
	}, name)

	clean = strings.TrimLeft(clean, ".")
	if clean == "" {
		return "upload"
	}
	if r := []rune(clean); len(r) > maxFilenameLength {
		clean = string(r[len(r)-maxFilenameLength:])
	}
	return clean
}
