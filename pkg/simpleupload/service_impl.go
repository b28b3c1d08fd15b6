package simpleupload

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-upload/pkg/simpleupload/objectkey"
)

const defaultPresignTTL = 15 * time.Minute

// service implements the Service interface
type service struct {
	repository Repository
	blobStore  BlobStore
	publisher  Publisher
	keys       objectkey.Generator
	presignTTL time.Duration
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the metadata repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the object storage backend
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithPublisher sets the event publisher for confirmed uploads
func WithPublisher(pub Publisher) Option {
	return func(s *service) {
		s.publisher = pub
	}
}

// WithKeyGenerator overrides the storage key generation strategy
func WithKeyGenerator(gen objectkey.Generator) Option {
	return func(s *service) {
		s.keys = gen
	}
}

// WithPresignTTL overrides the lifetime of issued upload credentials
func WithPresignTTL(ttl time.Duration) Option {
	return func(s *service) {
		s.presignTTL = ttl
	}
}

// New creates a new coordinator service with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		keys:       objectkey.NewUUIDGenerator(),
		presignTTL: defaultPresignTTL,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.blobStore == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if s.publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}

	return s, nil
}

func (s *service) CreateUpload(ctx context.Context, req CreateUploadRequest) (*CreateUploadResponse, error) {
	// The storage key is assigned before any network round trip, so the
	// issued credential always maps to exactly one file record.
	storageKey := s.keys.GenerateKey(req.OriginalName)

	uploadURL, err := s.blobStore.GetUploadURL(ctx, storageKey, req.ContentType)
	if err != nil {
		return nil, &StorageError{
			Key: storageKey,
			Op:  "presign_upload",
			Err: err,
		}
	}

	now := time.Now().UTC()
	file := &FileRecord{
		ID:           uuid.New(),
		StorageKey:   storageKey,
		OriginalName: req.OriginalName,
		ContentType:  req.ContentType,
		Size:         req.Size,
		Status:       FileStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repository.CreateFile(ctx, file); err != nil {
		return nil, &FileError{
			FileID: file.ID,
			Op:     "create",
			Err:    err,
		}
	}

	return &CreateUploadResponse{
		File:             file,
		UploadURL:        uploadURL,
		ExpiresInSeconds: int(s.presignTTL.Seconds()),
	}, nil
}

func (s *service) ConfirmUpload(ctx context.Context, fileID uuid.UUID) (*FileRecord, error) {
	file, err := s.repository.GetFile(ctx, fileID)
	if err != nil {
		return nil, &FileError{
			FileID: fileID,
			Op:     "confirm",
			Err:    err,
		}
	}

	// Re-confirmation is illegal, not a retry-safe no-op.
	if file.Status != FileStatusPending {
		return nil, &FileError{
			FileID: fileID,
			Op:     "confirm",
			Err:    ErrFileAlreadyUploaded,
		}
	}

	file.Status = FileStatusUploaded
	file.UpdatedAt = time.Now().UTC()
	if err := s.repository.UpdateFile(ctx, file); err != nil {
		return nil, &FileError{
			FileID: fileID,
			Op:     "confirm",
			Err:    err,
		}
	}

	// Publish only after the status change is durable. If the publish
	// fails the record stays uploaded with no event sent; the caller sees
	// the error and recovery requires an external re-publish.
	if err := s.publisher.PublishUploadEvent(ctx, uploadEventFor(file)); err != nil {
		return nil, &FileError{
			FileID: fileID,
			Op:     "publish_confirmed",
			Err:    err,
		}
	}

	return file, nil
}

func (s *service) GetFile(ctx context.Context, fileID uuid.UUID) (*FileRecord, error) {
	return s.repository.GetFile(ctx, fileID)
}

func (s *service) GetDownloadURL(ctx context.Context, fileID uuid.UUID) (string, error) {
	file, err := s.repository.GetFile(ctx, fileID)
	if err != nil {
		return "", &FileError{
			FileID: fileID,
			Op:     "download_url",
			Err:    err,
		}
	}

	if file.Status != FileStatusUploaded {
		return "", &FileError{
			FileID: fileID,
			Op:     "download_url",
			Err:    ErrFileNotUploaded,
		}
	}

	url, err := s.blobStore.GetDownloadURL(ctx, file.StorageKey, file.OriginalName)
	if err != nil {
		return "", &StorageError{
			Key: file.StorageKey,
			Op:  "presign_download",
			Err: err,
		}
	}

	return url, nil
}

func (s *service) DirectUpload(ctx context.Context, req DirectUploadRequest) (*FileRecord, error) {
	storageKey := s.keys.GenerateKey(req.OriginalName)

	if err := s.blobStore.Upload(ctx, req.Reader, UploadParams{
		ObjectKey:   storageKey,
		ContentType: req.ContentType,
	}); err != nil {
		return nil, &StorageError{
			Key: storageKey,
			Op:  "upload",
			Err: err,
		}
	}

	now := time.Now().UTC()
	file := &FileRecord{
		ID:           uuid.New(),
		StorageKey:   storageKey,
		OriginalName: req.OriginalName,
		ContentType:  req.ContentType,
		Size:         req.Size,
		Status:       FileStatusUploaded,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repository.CreateFile(ctx, file); err != nil {
		return nil, &FileError{
			FileID: file.ID,
			Op:     "create",
			Err:    err,
		}
	}

	if err := s.publisher.PublishUploadEvent(ctx, uploadEventFor(file)); err != nil {
		return nil, &FileError{
			FileID: file.ID,
			Op:     "publish_confirmed",
			Err:    err,
		}
	}

	return file, nil
}

func (s *service) ListThumbnails(ctx context.Context, fileID uuid.UUID) ([]*DerivativeRecord, error) {
	file, err := s.repository.GetFile(ctx, fileID)
	if err != nil {
		return nil, &FileError{
			FileID: fileID,
			Op:     "list_thumbnails",
			Err:    err,
		}
	}

	return s.repository.ListDerivativesByOriginalKey(ctx, file.StorageKey)
}

func uploadEventFor(file *FileRecord) UploadEvent {
	return UploadEvent{
		FileID:       file.ID,
		StorageKey:   file.StorageKey,
		OriginalName: file.OriginalName,
		ContentType:  file.ContentType,
		Size:         file.Size,
	}
}
