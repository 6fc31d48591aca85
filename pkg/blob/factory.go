package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// StoreType represents the type of media storage backend.
type StoreType string

const (
	StoreTypeFS  StoreType = "fs"
	StoreTypeS3  StoreType = "s3"
	StoreTypeGCS StoreType = "gcs"
)

// NewStoreFromEnv creates a media store based on environment variables.
//
// Environment variables:
//   - BLOB_BACKEND: "fs" (default), "s3", or "gcs"
//   - DATA_DIR: Base directory for the filesystem store (default: "data")
//   - LINK_SIGNING_SECRET: HMAC secret for filesystem signed links (required for fs)
//   - PUBLIC_BASE_URL: external prefix for filesystem signed links
//
// For S3:
//   - AWS_REGION or MEDIA_S3_REGION
//   - MEDIA_S3_BUCKET (required)
//   - MEDIA_S3_ENDPOINT (optional, for MinIO/LocalStack)
//   - MEDIA_S3_PREFIX (optional)
//
// For GCS (requires the gcp build tag):
//   - MEDIA_GCS_BUCKET (required)
//   - MEDIA_GCS_PREFIX (optional)
func NewStoreFromEnv(ctx context.Context) (Store, error) {
	storeType := StoreType(os.Getenv("BLOB_BACKEND"))
	if storeType == "" {
		storeType = StoreTypeFS
	}

	switch storeType {
	case StoreTypeFS:
		return newFileStoreFromEnv()
	case StoreTypeS3:
		return newS3StoreFromEnv(ctx)
	case StoreTypeGCS:
		return newGCSStoreFromEnv(ctx)
	default:
		return nil, fmt.Errorf("blob: unsupported backend: %s", storeType)
	}
}

func newFileStoreFromEnv() (Store, error) {
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}

	var signer *LinkSigner
	if secret := os.Getenv("LINK_SIGNING_SECRET"); secret != "" {
		baseURL := os.Getenv("PUBLIC_BASE_URL")
		if baseURL == "" {
			baseURL = "http://localhost:8080"
		}
		signer = NewLinkSigner([]byte(secret), baseURL)
	}

	return NewFileStore(filepath.Join(dataDir, "media"), signer)
}

func newS3StoreFromEnv(ctx context.Context) (Store, error) {
	bucket := os.Getenv("MEDIA_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("blob: MEDIA_S3_BUCKET is required for S3 storage")
	}

	region := os.Getenv("MEDIA_S3_REGION")
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}

	cfg := S3StoreConfig{
		Bucket:   bucket,
		Region:   region,
		Endpoint: os.Getenv("MEDIA_S3_ENDPOINT"),
		Prefix:   os.Getenv("MEDIA_S3_PREFIX"),
	}
	return NewS3Store(ctx, cfg)
}
