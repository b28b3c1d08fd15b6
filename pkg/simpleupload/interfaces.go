package simpleupload

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// BlobStore defines the interface for object storage backends
type BlobStore interface {
	// GetUploadURL returns a time-bounded, write-scoped URL for uploading
	// the object at objectKey directly to the store
	GetUploadURL(ctx context.Context, objectKey, contentType string) (string, error)

	// GetDownloadURL returns a time-bounded, read-scoped URL for the object
	GetDownloadURL(ctx context.Context, objectKey, downloadFilename string) (string, error)

	// Upload writes object content directly
	Upload(ctx context.Context, reader io.Reader, params UploadParams) error

	// Download reads object content directly
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	ObjectKey   string
	ContentType string
}

// Repository defines the interface for file and derivative persistence
type Repository interface {
	// File record operations
	CreateFile(ctx context.Context, file *FileRecord) error
	GetFile(ctx context.Context, id uuid.UUID) (*FileRecord, error)
	UpdateFile(ctx context.Context, file *FileRecord) error

	// Derivative record operations
	CreateDerivative(ctx context.Context, derivative *DerivativeRecord) error
	GetDerivative(ctx context.Context, id uuid.UUID) (*DerivativeRecord, error)
	UpdateDerivative(ctx context.Context, derivative *DerivativeRecord) error
	ListDerivativesByOriginalKey(ctx context.Context, originalStorageKey string) ([]*DerivativeRecord, error)
}

// UploadEventHandler processes one delivered upload event. Handlers do not
// return an error: the event is considered consumed regardless of outcome,
// with the outcome recorded on the derivative record instead.
type UploadEventHandler func(ctx context.Context, event UploadEvent)

// Publisher defines the producing side of the event channel
type Publisher interface {
	// PublishUploadEvent publishes an upload event. Delivery is
	// at-least-once from a successful publish onward.
	PublishUploadEvent(ctx context.Context, event UploadEvent) error
}

// Subscriber defines the consuming side of the event channel. Subscribers
// in the same group share a subscription: each event is delivered to
// exactly one member of each group.
type Subscriber interface {
	// SubscribeUploadEvents registers handler in the named consumer group
	// and returns a function that cancels the subscription.
	SubscribeUploadEvents(ctx context.Context, group string, handler UploadEventHandler) (func(), error)
}

// Notifier delivers completion callbacks for finished derivative jobs.
// Delivery is single-attempt: a failed notification is reported to the
// caller but never retried.
type Notifier interface {
	// Notify posts the derivative record and returns the HTTP status code
	// of the response when one was received.
	Notify(ctx context.Context, derivative *DerivativeRecord) (int, error)
}
