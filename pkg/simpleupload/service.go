package simpleupload

import (
	"context"

	"github.com/google/uuid"
)

// Service is the Upload Coordinator: it issues upload credentials, records
// and confirms file metadata, and publishes an event for every confirmed
// upload. It is stateless; all state lives in the Repository and BlobStore.
type Service interface {
	// CreateUpload generates a fresh storage key, requests a write-scoped
	// presigned URL from the blob store, and persists a pending file
	// record. No bytes are transferred.
	CreateUpload(ctx context.Context, req CreateUploadRequest) (*CreateUploadResponse, error)

	// ConfirmUpload transitions a pending record to uploaded exactly once
	// and publishes an upload event. Confirming an already-uploaded record
	// fails with ErrFileAlreadyUploaded; a missing id fails with
	// ErrFileNotFound.
	ConfirmUpload(ctx context.Context, fileID uuid.UUID) (*FileRecord, error)

	// GetFile returns the file record for the given id.
	GetFile(ctx context.Context, fileID uuid.UUID) (*FileRecord, error)

	// GetDownloadURL returns a read-scoped presigned URL for a confirmed
	// upload. Unconfirmed records fail with ErrFileNotUploaded.
	GetDownloadURL(ctx context.Context, fileID uuid.UUID) (string, error)

	// DirectUpload transfers the bytes through the coordinator, persists
	// an uploaded record, and publishes the upload event immediately.
	DirectUpload(ctx context.Context, req DirectUploadRequest) (*FileRecord, error)

	// ListThumbnails returns the derivative job records produced for the
	// given file, most recent first.
	ListThumbnails(ctx context.Context, fileID uuid.UUID) ([]*DerivativeRecord, error)
}
