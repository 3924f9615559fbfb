package service

import (
	"context"
	"io"

	"github.com/google/uuid"

	"project-review-api/internal/domain"
)

// StoredFile describes a file persisted by the FileService
type StoredFile struct {
	Key      string
	Size     int64
	MimeType string
	Checksum string
}

// FileService abstracts raw file storage. The S3 client implements it; the
// core only handles keys and checksums, never storage mechanics.
type FileService interface {
	SaveFile(ctx context.Context, area domain.ReviewArea, projectID uuid.UUID, fileName, contentType string, file io.Reader) (*StoredFile, error)
	VerifyIntegrity(ctx context.Context, key, checksum string) (bool, error)
	DeleteFile(ctx context.Context, key string) error
}

// ProjectLocker serializes workflow mutations per project. Implementations
// are best effort; the repository compare-and-swap remains the correctness
// guard when a lock cannot be taken.
type ProjectLocker interface {
	Acquire(ctx context.Context, projectID uuid.UUID) (release func(), err error)
}
