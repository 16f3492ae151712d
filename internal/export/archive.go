package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archiver stores rendered export artifacts in an S3-compatible bucket so
// compliance snapshots outlive the request that produced them. Retention of
// archived objects is the bucket's policy, not this service's.
type Archiver struct {
	client *minio.Client
	bucket string
}

// NewArchiver connects to the object store and ensures the bucket exists.
func NewArchiver(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Archiver, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("export.NewArchiver: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("export.NewArchiver: bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("export.NewArchiver: make bucket: %w", err)
		}
	}

	return &Archiver{client: client, bucket: bucket}, nil
}

// Archive uploads an artifact and returns its object key.
func (a *Archiver) Archive(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := a.client.PutObject(
		ctx, a.bucket, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return "", fmt.Errorf("export.Archiver.Archive: %w", err)
	}

	return key, nil
}
