package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// AssetService stores campaign assets (images, attachments) in object
// storage. Objects are keyed by campaign so deleting a campaign can clean up
// its assets.
type AssetService interface {
	UploadAsset(ctx context.Context, campaignID uuid.UUID, filename, contentType string, reader io.Reader, size int64) (string, error)
	GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
	DeleteAsset(ctx context.Context, objectName string) error
	DeleteCampaignAssets(ctx context.Context, campaignID uuid.UUID) error
	EnsureBucketExists(ctx context.Context) error
}

type assetService struct {
	client *minio.Client
	bucket string
}

func NewAssetService(endpoint, accessKey, secretKey, bucket string, useSSL bool) (AssetService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &assetService{client: client, bucket: bucket}, nil
}

func (s *assetService) UploadAsset(ctx context.Context, campaignID uuid.UUID, filename, contentType string, reader io.Reader, size int64) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	objectName := fmt.Sprintf("campaigns/%s/%s", campaignID.String(), filename)
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return objectName, nil
}

func (s *assetService) GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	url, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, expiry, nil)
	if err != nil {
		return "", err
	}
	return url.String(), nil
}

func (s *assetService) DeleteAsset(ctx context.Context, objectName string) error {
	return s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
}

func (s *assetService) DeleteCampaignAssets(ctx context.Context, campaignID uuid.UUID) error {
	prefix := fmt.Sprintf("campaigns/%s/", campaignID.String())
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true})
	for object := range objects {
		if object.Err != nil {
			return object.Err
		}
		if err := s.client.RemoveObject(ctx, s.bucket, object.Key, minio.RemoveObjectOptions{}); err != nil {
			return err
		}
	}
	return nil
}

func (s *assetService) EnsureBucketExists(ctx context.Context) error {
	found, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !found {
		return s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	}
	return nil
}
