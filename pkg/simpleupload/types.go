package simpleupload

import (
	"time"

	"github.com/google/uuid"
)

// FileStatus is the domain type for uploaded file lifecycle states.
type FileStatus string

// File status constants (typed).
const (
	FileStatusPending  FileStatus = "pending"
	FileStatusUploaded FileStatus = "uploaded"
)

// IsValid reports whether the status is a known file status.
func (s FileStatus) IsValid() bool {
	switch s {
	case FileStatusPending, FileStatusUploaded:
		return true
	}
	return false
}

// DerivativeStatus is the domain type for derivative job lifecycle states.
type DerivativeStatus string

// Derivative status constants (typed).
const (
	DerivativeStatusProcessing DerivativeStatus = "processing"
	DerivativeStatusSuccess    DerivativeStatus = "success"
	DerivativeStatusFailed     DerivativeStatus = "failed"
)

// IsValid reports whether the status is a known derivative status.
func (s DerivativeStatus) IsValid() bool {
	switch s {
	case DerivativeStatusProcessing, DerivativeStatusSuccess, DerivativeStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the status is one of the durable end states.
func (s DerivativeStatus) IsTerminal() bool {
	return s == DerivativeStatusSuccess || s == DerivativeStatusFailed
}

// FileRecord represents one logical uploaded object.
//
// StorageKey is assigned once at credential-issue time and never reused, so
// an issued upload credential always maps to exactly one FileRecord. Status
// transitions pending -> uploaded exactly once; re-confirming an uploaded
// record is an error, not a no-op.
type FileRecord struct {
	ID           uuid.UUID  `json:"id"`
	StorageKey   string     `json:"storage_key"`
	OriginalName string     `json:"original_name,omitempty"`
	ContentType  string     `json:"content_type,omitempty"`
	Size         int64      `json:"size,omitempty"`
	Status       FileStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// DerivativeRecord represents one transform job for one original object.
//
// DerivativeStorageKey is a pure function of OriginalStorageKey, so repeated
// jobs for the same original overwrite the same derivative location. The
// record is created in processing state before any transform I/O, so a crash
// mid-job leaves a durable, inspectable record rather than a silent drop.
type DerivativeRecord struct {
	ID                   uuid.UUID        `json:"id"`
	OriginalStorageKey   string           `json:"original_storage_key"`
	DerivativeStorageKey string           `json:"derivative_storage_key"`
	Status               DerivativeStatus `json:"status"`
	Error                string           `json:"error,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// UploadEvent is the wire contract between the coordinator and the worker.
// It is published after a file record has durably transitioned to uploaded.
type UploadEvent struct {
	FileID       uuid.UUID `json:"file_id"`
	StorageKey   string    `json:"storage_key"`
	OriginalName string    `json:"original_name,omitempty"`
	ContentType  string    `json:"content_type,omitempty"`
	Size         int64     `json:"size,omitempty"`
}
