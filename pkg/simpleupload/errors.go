package simpleupload

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrFileNotFound indicates a file record was not found
	ErrFileNotFound = errors.New("file not found")

	// ErrDerivativeNotFound indicates a derivative record was not found
	ErrDerivativeNotFound = errors.New("derivative not found")

	// ErrFileAlreadyUploaded indicates confirmation was attempted on a
	// record that is no longer pending
	ErrFileAlreadyUploaded = errors.New("file is already uploaded")

	// ErrFileNotUploaded indicates the file has not been confirmed yet
	ErrFileNotUploaded = errors.New("file is not uploaded")

	// ErrObjectNotFound indicates an object was not found in blob storage
	ErrObjectNotFound = errors.New("object not found")

	// ErrUploadFailed indicates an upload operation failed
	ErrUploadFailed = errors.New("upload failed")

	// ErrDownloadFailed indicates a download operation failed
	ErrDownloadFailed = errors.New("download failed")
)

// FileError represents an error related to file record operations
type FileError struct {
	FileID uuid.UUID
	Op     string
	Err    error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file operation %s failed for file %s: %v", e.Op, e.FileID, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// DerivativeError represents an error related to derivative record operations
type DerivativeError struct {
	DerivativeID uuid.UUID
	Op           string
	Err          error
}

func (e *DerivativeError) Error() string {
	return fmt.Sprintf("derivative operation %s failed for derivative %s: %v", e.Op, e.DerivativeID, e.Err)
}

func (e *DerivativeError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to blob storage operations
type StorageError struct {
	Key string
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
