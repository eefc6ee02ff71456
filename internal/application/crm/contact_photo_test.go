package crm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hubcrm/backend/internal/domain/record"
	"github.com/hubcrm/backend/internal/domain/shared"
)

// MockObjectStorage is a mock implementation of ObjectStorage
type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) GenerateUploadURL(ctx context.Context, key, contentType string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, key, contentType, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockObjectStorage) GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, key, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockObjectStorage) ObjectExists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockObjectStorage) DeleteObject(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func newPhotoServices() (*Services, *MockRecordClient, *MockObjectStorage) {
	storage := new(MockObjectStorage)
	svc, client := newTestServices(WithObjectStorage(storage))
	return svc, client, storage
}

var adaRecord = record.Record{"Id": int64(5), "first_name_c": "Ada", "last_name_c": "Lovelace"}

func TestContactService_PhotoUploadURL(t *testing.T) {
	svc, client, storage := newPhotoServices()
	ctx := context.Background()
	expires := fixedNow.Add(15 * time.Minute)

	client.On("GetRecordByID", mock.Anything, contactTable, int64(5), contactFields).Return(adaRecord, nil)
	storage.On("GenerateUploadURL", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "contacts/5/") && strings.HasSuffix(key, ".png")
	}), "image/png", time.Duration(0)).Return("https://s3.example.com/upload", expires, nil)

	resp, err := svc.Contacts.PhotoUploadURL(ctx, 5, PhotoUploadRequest{Filename: "Me.PNG", ContentType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "https://s3.example.com/upload", resp.UploadURL)
	assert.True(t, strings.HasPrefix(resp.Key, "contacts/5/"))
	assert.Equal(t, expires, resp.ExpiresAt)
	storage.AssertExpectations(t)
}

func TestContactService_PhotoUploadURL_Rejects(t *testing.T) {
	svc, client, storage := newPhotoServices()
	ctx := context.Background()

	_, err := svc.Contacts.PhotoUploadURL(ctx, 5, PhotoUploadRequest{Filename: "cv.pdf", ContentType: "application/pdf"})
	verrs, ok := shared.AsValidationErrors(err)
	require.True(t, ok)
	assert.Len(t, verrs, 2)

	client.On("GetRecordByID", mock.Anything, contactTable, int64(6), contactFields).Return(nil, shared.ErrNotFound)
	_, err = svc.Contacts.PhotoUploadURL(ctx, 6, PhotoUploadRequest{Filename: "a.jpg", ContentType: "image/jpeg"})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	storage.AssertNotCalled(t, "GenerateUploadURL", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestContactService_PhotoUploadURL_NoStorage(t *testing.T) {
	svc, _ := newTestServices()

	_, err := svc.Contacts.PhotoUploadURL(context.Background(), 5, PhotoUploadRequest{Filename: "a.jpg", ContentType: "image/jpeg"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestContactService_UpdatePhoto(t *testing.T) {
	svc, client, storage := newPhotoServices()
	ctx := context.Background()
	key := "contacts/5/photo.png"

	client.On("GetRecordByID", mock.Anything, contactTable, int64(5), contactFields).Return(adaRecord, nil)
	storage.On("ObjectExists", mock.Anything, key).Return(true, nil)
	storage.On("GenerateDownloadURL", mock.Anything, key, time.Duration(0)).
		Return("https://s3.example.com/download", fixedNow, nil)
	client.On("UpdateRecord", mock.Anything, contactTable, int64(5), record.Record{"photo_c": key}).
		Return(record.Record{"Id": int64(5), "first_name_c": "Ada", "last_name_c": "Lovelace", "photo_c": key}, nil)

	resp, err := svc.Contacts.Update(ctx, 5, UpdateContactRequest{Photo: strPtr(key)})
	require.NoError(t, err)
	assert.Equal(t, key, resp.Photo)
	assert.Equal(t, "https://s3.example.com/download", resp.PhotoURL)
}

func TestContactService_UpdatePhoto_Rejects(t *testing.T) {
	svc, client, storage := newPhotoServices()
	ctx := context.Background()

	client.On("GetRecordByID", mock.Anything, contactTable, int64(5), contactFields).Return(adaRecord, nil)
	storage.On("ObjectExists", mock.Anything, "contacts/5/missing.png").Return(false, nil)

	_, err := svc.Contacts.Update(ctx, 5, UpdateContactRequest{Photo: strPtr("contacts/9/other.png")})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Contacts.Update(ctx, 5, UpdateContactRequest{Photo: strPtr("contacts/5/missing.png")})
	assert.ErrorIs(t, err, shared.ErrValidation)

	client.AssertNotCalled(t, "UpdateRecord", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestContactService_ExternalPhotoURLPassesThrough(t *testing.T) {
	svc, client, storage := newPhotoServices()

	client.On("GetRecordByID", mock.Anything, contactTable, int64(5), contactFields).
		Return(record.Record{"Id": int64(5), "first_name_c": "Ada", "last_name_c": "L", "photo_c": "https://cdn.example.com/ada.jpg"}, nil)

	resp, err := svc.Contacts.GetByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/ada.jpg", resp.PhotoURL)
	storage.AssertNotCalled(t, "GenerateDownloadURL", mock.Anything, mock.Anything, mock.Anything)
}

func TestContactService_DeleteRemovesPhoto(t *testing.T) {
	svc, client, storage := newPhotoServices()
	ctx := context.Background()
	key := "contacts/5/photo.png"

	client.On("GetRecordByID", mock.Anything, contactTable, int64(5), contactFields).
		Return(record.Record{"Id": int64(5), "first_name_c": "Ada", "last_name_c": "Lovelace", "photo_c": key}, nil)
	client.On("DeleteRecord", mock.Anything, contactTable, int64(5)).Return(nil)
	storage.On("DeleteObject", mock.Anything, key).Return(errors.New("bucket offline"))

	id, err := svc.Contacts.Delete(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
	storage.AssertCalled(t, "DeleteObject", mock.Anything, key)
}
