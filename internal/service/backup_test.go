package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/quietpages/quietpages-server/internal/logger"
	"github.com/quietpages/quietpages-server/internal/model"
)

// MockStorage mocks the Storage interface
type MockStorage struct {
	mock.Mock

	uploaded []byte
}

func (m *MockStorage) Upload(ctx context.Context, key string, reader io.Reader) error {
	data, _ := io.ReadAll(reader)
	m.uploaded = data
	args := m.Called(ctx, key, mock.Anything)
	return args.Error(0)
}

func (m *MockStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockStorage) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func TestBackup_Export(t *testing.T) {
	userID := uuid.New()
	entries := []model.Entry{
		{ID: uuid.New(), UserID: userID, Title: "One", Content: "first", Tags: []string{"a"}},
		{ID: uuid.New(), UserID: userID, Title: "Two", Content: "second"},
	}

	t.Run("uploads a snapshot of all entries", func(t *testing.T) {
		entryStore := &MockEntryStore{}
		entryStore.On("ListByUser", mock.Anything, userID, model.EntryFilter{}).Return(entries, nil)

		storage := &MockStorage{}
		storage.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
			return len(key) > 0 && key[:len(fmt.Sprintf("backups/%s/", userID))] == fmt.Sprintf("backups/%s/", userID)
		}), mock.Anything).Return(nil)

		service := NewBackup(entryStore, storage, logger.New(0))

		key, err := service.Export(context.Background(), userID)
		require.NoError(t, err)
		assert.Contains(t, key, userID.String())
		assert.Contains(t, key, ".json")

		var snapshot struct {
			UserID     uuid.UUID     `json:"user_id"`
			EntryCount int           `json:"entry_count"`
			Entries    []model.Entry `json:"entries"`
		}
		require.NoError(t, json.Unmarshal(storage.uploaded, &snapshot))
		assert.Equal(t, userID, snapshot.UserID)
		assert.Equal(t, 2, snapshot.EntryCount)
		assert.Len(t, snapshot.Entries, 2)
	})

	t.Run("empty journal still exports", func(t *testing.T) {
		entryStore := &MockEntryStore{}
		entryStore.On("ListByUser", mock.Anything, userID, model.EntryFilter{}).Return([]model.Entry(nil), nil)

		storage := &MockStorage{}
		storage.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		service := NewBackup(entryStore, storage, logger.New(0))

		_, err := service.Export(context.Background(), userID)
		require.NoError(t, err)

		var snapshot struct {
			EntryCount int           `json:"entry_count"`
			Entries    []model.Entry `json:"entries"`
		}
		require.NoError(t, json.Unmarshal(storage.uploaded, &snapshot))
		assert.Equal(t, 0, snapshot.EntryCount)
		assert.NotNil(t, snapshot.Entries)
	})

	t.Run("list failure aborts before upload", func(t *testing.T) {
		entryStore := &MockEntryStore{}
		entryStore.On("ListByUser", mock.Anything, userID, model.EntryFilter{}).Return(nil, errors.New("database error"))

		storage := &MockStorage{}

		service := NewBackup(entryStore, storage, logger.New(0))

		_, err := service.Export(context.Background(), userID)
		assert.Error(t, err)
		storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("upload failure surfaces", func(t *testing.T) {
		entryStore := &MockEntryStore{}
		entryStore.On("ListByUser", mock.Anything, userID, model.EntryFilter{}).Return(entries, nil)

		storage := &MockStorage{}
		storage.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("bucket gone"))

		service := NewBackup(entryStore, storage, logger.New(0))

		_, err := service.Export(context.Background(), userID)
		assert.Error(t, err)
	})
}
