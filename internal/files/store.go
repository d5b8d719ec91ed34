package files

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3API is the subset of the S3 client used by ObjectStore.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// ObjectStore writes patient documents to an S3 bucket and resolves their
// download URLs.
type ObjectStore struct {
	client        S3API
	bucket        string
	region        string
	publicBaseURL string
}

// NewObjectStore creates a store. publicBaseURL overrides the standard
// S3 URL when serving objects through a CDN or storage proxy.
func NewObjectStore(client S3API, bucket, region, publicBaseURL string) *ObjectStore {
	return &ObjectStore{
		client:        client,
		bucket:        bucket,
		region:        region,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}
}

// NewKey builds an object key scoped to the patient:
// {patientID}/prescription-{unixms}-{rand}.pdf.
func NewKey(patientID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("%s/prescription-%d-%d.pdf", patientID, now.UnixMilli(), rand.Intn(1_000_000_000))
}

// Put uploads the document body under key.
func (s *ObjectStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("files: s3 put %s: %w", key, err)
	}
	return nil
}

// Delete removes the object under key.
func (s *ObjectStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("files: s3 delete %s: %w", key, err)
	}
	return nil
}

// URL resolves the download URL for key.
func (s *ObjectStore) URL(key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
