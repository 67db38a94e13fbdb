package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/drcartoon/cartoonbox/internal/config"
)

// Archiver stores generated export files in object storage and hands
// back presigned download links.
type Archiver struct {
	client     *minio.Client
	bucketName string
}

// New creates an archiver backed by an S3-compatible endpoint
func New(cfg config.StorageConfig) (*Archiver, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	// Ensure bucket exists
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Archiver{
		client:     client,
		bucketName: cfg.BucketName,
	}, nil
}

// ArchiveExport uploads a CSV export for a user and returns the object name.
// Exports are grouped by uid so retention policies can target a prefix.
func (a *Archiver) ArchiveExport(ctx context.Context, uid string, data []byte, generatedAt time.Time) (string, error) {
	objectName := fmt.Sprintf("exports/%s/watch_history_%s.csv", uid, generatedAt.UTC().Format("20060102T150405Z"))

	_, err := a.client.PutObject(ctx, a.bucketName, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "text/csv",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload export: %w", err)
	}

	return objectName, nil
}

// PresignedURL returns a time-limited download URL for an archived export
func (a *Archiver) PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	url, err := a.client.PresignedGetObject(ctx, a.bucketName, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate URL: %w", err)
	}

	return url.String(), nil
}

// ListExports lists archived export object names for a user
func (a *Archiver) ListExports(ctx context.Context, uid string) ([]string, error) {
	var objects []string

	prefix := fmt.Sprintf("exports/%s/", uid)
	for object := range a.client.ListObjects(ctx, a.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list exports: %w", object.Err)
		}
		objects = append(objects, object.Key)
	}

	return objects, nil
}

// DeleteExport removes an archived export object
func (a *Archiver) DeleteExport(ctx context.Context, objectName string) error {
	err := a.client.RemoveObject(ctx, a.bucketName, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete export: %w", err)
	}

	return nil
}
