// Package quarantine stores the original bytes of flagged messages in
// S3-compatible object storage so they can be inspected after the scan
// verdict is acted upon.
package quarantine

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/welldanyogia/mime-sentry/internal/config"
)

// Store writes and retrieves quarantined originals.
type Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// NewStore builds a Store from the quarantine configuration. A custom
// endpoint selects path-style addressing for MinIO-style deployments.
func NewStore(cfg config.QuarantineConfig) *Store {
	awsCfg := aws.Config{
		Region: cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, ""),
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
	}
}

// Key returns the object key for a report ID.
func Key(reportID uuid.UUID) string {
	return fmt.Sprintf("quarantine/%s", reportID)
}

// Put stores one original message. The SHA-256 checksum travels as object
// metadata so later retrieval can verify integrity.
func (s *Store) Put(ctx context.Context, key string, raw []byte) error {
	sum := sha256.Sum256(raw)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String("message/rfc822"),
		Metadata: map[string]string{
			"checksum-sha256": hex.EncodeToString(sum[:]),
		},
	})
	if err != nil {
		return fmt.Errorf("quarantine put %s: %w", key, err)
	}
	return nil
}

// PresignGet returns a time-limited URL for downloading one original.
func (s *Store) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("quarantine presign %s: %w", key, err)
	}
	return req.URL, nil
}
