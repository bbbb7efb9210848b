package export

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioSink struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewMinioSink(ctx context.Context, endpoint, accessKey, secretKey string, useSSL bool, bucket, prefix string) (*MinioSink, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	return &MinioSink{client: client, bucket: bucket, prefix: prefix}, nil
}

func (m *MinioSink) Put(ctx context.Context, artifact Artifact) (string, error) {
	objectKey := path.Join(m.prefix, artifact.Filename)
	_, err := m.client.PutObject(ctx, m.bucket, objectKey, bytes.NewReader(artifact.Content), int64(len(artifact.Content)), minio.PutObjectOptions{
		ContentType: artifact.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", objectKey, err)
	}
	return fmt.Sprintf("s3://%s/%s", m.bucket, objectKey), nil
}
