package storage

import (
	"context"
	"net/url"
	"time"

	crmapp "github.com/hubcrm/backend/internal/application/crm"
)

var _ crmapp.ObjectStorage = (*StubObjectStorage)(nil)

// StubObjectStorage stands in for S3 when storage is disabled. It hands out
// URLs under BaseURL and reports every key as uploaded.
type StubObjectStorage struct {
	BaseURL string
}

// NewStubObjectStorage creates a stub rooted at https://storage.example.com
func NewStubObjectStorage() *StubObjectStorage {
	return &StubObjectStorage{BaseURL: "https://storage.example.com"}
}

func (s *StubObjectStorage) url(action, key string, expiresAt time.Time) string {
	return s.BaseURL + "/" + action + "/" + key + "?expires=" + url.QueryEscape(expiresAt.UTC().Format(time.RFC3339))
}

// GenerateUploadURL implements crmapp.ObjectStorage
func (s *StubObjectStorage) GenerateUploadURL(_ context.Context, key, _ string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errEmptyKey
	}
	expiresAt := time.Now().Add(expiresIn)
	return s.url("upload", key, expiresAt), expiresAt, nil
}

// GenerateDownloadURL implements crmapp.ObjectStorage
func (s *StubObjectStorage) GenerateDownloadURL(_ context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errEmptyKey
	}
	expiresAt := time.Now().Add(expiresIn)
	return s.url("download", key, expiresAt), expiresAt, nil
}

// DeleteObject is a no-op
func (s *StubObjectStorage) DeleteObject(_ context.Context, key string) error {
	if key == "" {
		return errEmptyKey
	}
	return nil
}

// ObjectExists always reports true
func (s *StubObjectStorage) ObjectExists(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, errEmptyKey
	}
	return true, nil
}
