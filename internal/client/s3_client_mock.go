package client

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"project-review-api/internal/domain"
	"project-review-api/internal/service"
)

// MockFileStore implements the file collaborator in memory for testing
// without AWS credentials
type MockFileStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	// Optional function overrides for custom test behavior
	SaveFileFunc        func(ctx context.Context, area domain.ReviewArea, projectID uuid.UUID, fileName, contentType string, file io.Reader) (*service.StoredFile, error)
	VerifyIntegrityFunc func(ctx context.Context, key, checksum string) (bool, error)
	DeleteFileFunc      func(ctx context.Context, key string) error
}

var _ service.FileService = (*MockFileStore)(nil)

// NewMockFileStore creates a new in-memory file store for testing
func NewMockFileStore() *MockFileStore {
	return &MockFileStore{
		objects: make(map[string][]byte),
	}
}

// SaveFile stores the content in memory and returns its checksum
func (m *MockFileStore) SaveFile(ctx context.Context, area domain.ReviewArea, projectID uuid.UUID, fileName, contentType string, file io.Reader) (*service.StoredFile, error) {
	if m.SaveFileFunc != nil {
		return m.SaveFileFunc(ctx, area, projectID, fileName, contentType, file)
	}

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("documents/%s/%s/%s_%s", projectID, area, uuid.New(), fileName)
	sum := sha256.Sum256(content)

	m.mu.Lock()
	m.objects[key] = content
	m.mu.Unlock()

	return &service.StoredFile{
		Key:      key,
		Size:     int64(len(content)),
		MimeType: contentType,
		Checksum: hex.EncodeToString(sum[:]),
	}, nil
}

// VerifyIntegrity re-hashes the stored content
func (m *MockFileStore) VerifyIntegrity(ctx context.Context, key, checksum string) (bool, error) {
	if m.VerifyIntegrityFunc != nil {
		return m.VerifyIntegrityFunc(ctx, key, checksum)
	}

	m.mu.Lock()
	content, ok := m.objects[key]
	m.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("object not found: %s", key)
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:]) == checksum, nil
}

// DeleteFile removes the content from memory
func (m *MockFileStore) DeleteFile(ctx context.Context, key string) error {
	if m.DeleteFileFunc != nil {
		return m.DeleteFileFunc(ctx, key)
	}

	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Tamper overwrites stored content so integrity checks fail, for tests
func (m *MockFileStore) Tamper(key string, content []byte) {
	m.mu.Lock()
	m.objects[key] = content
	m.mu.Unlock()
}
