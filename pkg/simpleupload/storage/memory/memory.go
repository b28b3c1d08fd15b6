package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/tendant/simple-upload/pkg/simpleupload"
)

// Backend is an in-memory implementation of the simpleupload.BlobStore
// interface, intended for tests and single-process development setups.
type Backend struct {
	mu           sync.RWMutex
	objects      map[string][]byte
	contentTypes map[string]string
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects:      make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

// GetUploadURL returns a synthetic URL for the object. The in-memory
// backend has no HTTP surface; callers in tests write through Put instead
// of the returned URL.
func (b *Backend) GetUploadURL(ctx context.Context, objectKey, contentType string) (string, error) {
	return fmt.Sprintf("memory://upload/%s", objectKey), nil
}

// GetDownloadURL returns a synthetic URL for the object
func (b *Backend) GetDownloadURL(ctx context.Context, objectKey, downloadFilename string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if _, exists := b.objects[objectKey]; !exists {
		return "", simpleupload.ErrObjectNotFound
	}
	return fmt.Sprintf("memory://download/%s", objectKey), nil
}

// Upload writes object content directly
func (b *Backend) Upload(ctx context.Context, reader io.Reader, params simpleupload.UploadParams) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[params.ObjectKey] = data
	contentType := params.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	b.contentTypes[params.ObjectKey] = contentType
	return nil
}

// Download reads object content directly
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, simpleupload.ErrObjectNotFound
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Put stores an object without going through an upload URL. Tests use it to
// simulate a client performing the direct PUT against the issued credential.
func (b *Backend) Put(objectKey string, data []byte, contentType string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[objectKey] = append([]byte(nil), data...)
	b.contentTypes[objectKey] = contentType
}

// Get returns the stored bytes for an object, if present
func (b *Backend) Get(objectKey string) ([]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// ContentType returns the stored content type for an object, if present
func (b *Backend) ContentType(objectKey string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	contentType, exists := b.contentTypes[objectKey]
	return contentType, exists
}
