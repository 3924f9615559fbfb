package client

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project-review-api/internal/config"
	"project-review-api/internal/domain"
)

func TestGenerateFileKey(t *testing.T) {
	cfg := &config.S3Config{
		Bucket:    "test-bucket",
		Region:    "us-east-1",
		AccessKey: "test-access-key",
		SecretKey: "test-secret-key",
	}

	store, err := NewS3FileStore(cfg)
	require.NoError(t, err)
	require.NotNil(t, store)

	projectID := uuid.New()
	key := store.GenerateFileKey(domain.AreaArquitectura, projectID, "diagram.pdf")

	// Key format: documents/{projectId}/{area}/{year}/{month}/{uuid}_{timestamp}.ext
	parts := strings.Split(key, "/")
	require.Equal(t, 6, len(parts), "Key should have 6 parts separated by /")
	assert.Equal(t, "documents", parts[0])
	assert.Equal(t, projectID.String(), parts[1])
	assert.Equal(t, "arquitectura", parts[2])
	assert.Equal(t, time.Now().Format("2006"), parts[3])
	assert.Equal(t, time.Now().Format("01"), parts[4])
	assert.True(t, strings.HasSuffix(parts[5], ".pdf"), "Filename should keep the extension")
	assert.Contains(t, parts[5], "_", "Filename should contain underscore separator")
}

func TestGenerateFileKey_Uniqueness(t *testing.T) {
	cfg := &config.S3Config{
		Bucket:    "test-bucket",
		Region:    "us-east-1",
		AccessKey: "test-access-key",
		SecretKey: "test-secret-key",
	}

	store, err := NewS3FileStore(cfg)
	require.NoError(t, err)

	projectID := uuid.New()
	keys := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key := store.GenerateFileKey(domain.AreaSeguridad, projectID, "report.pdf")
		assert.False(t, keys[key], "Generated key should be unique")
		keys[key] = true
	}
}

func TestNewS3FileStore_ValidationErrors(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *config.S3Config
		wantErr     bool
		errContains string
	}{
		{
			name: "Valid configuration",
			cfg: &config.S3Config{
				Bucket:    "test-bucket",
				Region:    "us-east-1",
				AccessKey: "test-access-key",
				SecretKey: "test-secret-key",
			},
			wantErr: false,
		},
		{
			name: "Missing bucket",
			cfg: &config.S3Config{
				Region:    "us-east-1",
				AccessKey: "test-access-key",
				SecretKey: "test-secret-key",
			},
			wantErr:     true,
			errContains: "bucket is required",
		},
		{
			name: "Missing region",
			cfg: &config.S3Config{
				Bucket:    "test-bucket",
				AccessKey: "test-access-key",
				SecretKey: "test-secret-key",
			},
			wantErr:     true,
			errContains: "region is required",
		},
		{
			name: "MinIO endpoint without credentials",
			cfg: &config.S3Config{
				Bucket:   "test-bucket",
				Region:   "us-east-1",
				Endpoint: "http://localhost:9000",
			},
			wantErr:     true,
			errContains: "access key and secret key are required",
		},
		{
			name: "With custom endpoint (MinIO)",
			cfg: &config.S3Config{
				Bucket:    "test-bucket",
				Region:    "us-east-1",
				AccessKey: "minioadmin",
				SecretKey: "minioadmin",
				Endpoint:  "http://localhost:9000",
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewS3FileStore(tt.cfg)

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				assert.Nil(t, store)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, store)
			}
		})
	}
}

func TestGetFileURL(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *config.S3Config
		key      string
		expected string
	}{
		{
			name: "AWS URL",
			cfg: &config.S3Config{
				Bucket:    "review-docs",
				Region:    "us-east-1",
				AccessKey: "k",
				SecretKey: "s",
			},
			key:      "documents/p1/seguridad/2026/08/abc_1.pdf",
			expected: "https://review-docs.s3.us-east-1.amazonaws.com/documents/p1/seguridad/2026/08/abc_1.pdf",
		},
		{
			name: "MinIO URL",
			cfg: &config.S3Config{
				Bucket:    "review-docs",
				Region:    "us-east-1",
				AccessKey: "minioadmin",
				SecretKey: "minioadmin",
				Endpoint:  "http://localhost:9000",
			},
			key:      "documents/p1/seguridad/2026/08/abc_1.pdf",
			expected: "http://localhost:9000/review-docs/documents/p1/seguridad/2026/08/abc_1.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewS3FileStore(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, store.GetFileURL(tt.key))
		})
	}
}

func TestMockFileStore_RoundTrip(t *testing.T) {
	store := NewMockFileStore()
	ctx := context.Background()
	projectID := uuid.New()

	content := []byte("architecture review document")
	stored, err := store.SaveFile(ctx, domain.AreaArquitectura, projectID, "arch.pdf", "application/pdf", bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), stored.Size)
	assert.Equal(t, "application/pdf", stored.MimeType)
	assert.Len(t, stored.Checksum, 64, "Checksum should be hex-encoded SHA-256")

	ok, err := store.VerifyIntegrity(ctx, stored.Key, stored.Checksum)
	require.NoError(t, err)
	assert.True(t, ok, "Fresh upload should pass the integrity check")
}

func TestMockFileStore_DetectsTampering(t *testing.T) {
	store := NewMockFileStore()
	ctx := context.Background()

	stored, err := store.SaveFile(ctx, domain.AreaPruebas, uuid.New(), "plan.md", "text/markdown", strings.NewReader("test plan v1"))
	require.NoError(t, err)

	store.Tamper(stored.Key, []byte("test plan v2"))

	ok, err := store.VerifyIntegrity(ctx, stored.Key, stored.Checksum)
	require.NoError(t, err)
	assert.False(t, ok, "Modified content must fail the integrity check")
}

func TestMockFileStore_DeleteFile(t *testing.T) {
	store := NewMockFileStore()
	ctx := context.Background()

	stored, err := store.SaveFile(ctx, domain.AreaMonitoreo, uuid.New(), "dash.json", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)

	require.NoError(t, store.DeleteFile(ctx, stored.Key))

	_, err = store.VerifyIntegrity(ctx, stored.Key, stored.Checksum)
	assert.Error(t, err, "Deleted object should not verify")
}
