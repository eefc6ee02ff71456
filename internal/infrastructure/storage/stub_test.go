package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubObjectStorage(t *testing.T) {
	s := NewStubObjectStorage()
	ctx := context.Background()
	key := "contacts/7/photo-abc.jpg"

	up, expiresAt, err := s.GenerateUploadURL(ctx, key, "image/jpeg", 15*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, up, "https://storage.example.com/upload/contacts/7/photo-abc.jpg?expires=")
	assert.True(t, expiresAt.After(time.Now()))

	down, _, err := s.GenerateDownloadURL(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.Contains(t, down, "/download/contacts/7/photo-abc.jpg")

	exists, err := s.ObjectExists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, s.DeleteObject(ctx, key))
}

func TestStubObjectStorage_EmptyKey(t *testing.T) {
	s := NewStubObjectStorage()
	ctx := context.Background()

	_, _, err := s.GenerateUploadURL(ctx, "", "image/png", time.Minute)
	assert.ErrorIs(t, err, errEmptyKey)
	_, _, err = s.GenerateDownloadURL(ctx, "", time.Minute)
	assert.ErrorIs(t, err, errEmptyKey)
	_, err = s.ObjectExists(ctx, "")
	assert.ErrorIs(t, err, errEmptyKey)
	assert.ErrorIs(t, s.DeleteObject(ctx, ""), errEmptyKey)
}
