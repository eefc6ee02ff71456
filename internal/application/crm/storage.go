package crm

import (
	"context"
	"time"
)

// ObjectStorage stores uploaded files behind presigned URLs
type ObjectStorage interface {
	// GenerateUploadURL presigns a PUT of key. A zero expiresIn uses the
	// storage default.
	GenerateUploadURL(ctx context.Context, key, contentType string, expiresIn time.Duration) (string, time.Time, error)
	GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
	ObjectExists(ctx context.Context, key string) (bool, error)
	DeleteObject(ctx context.Context, key string) error
}
