// Package worker consumes upload events and produces thumbnail
// derivatives. Each job moves through processing -> success | failed; both
// end states are durable and never retried automatically.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-upload/pkg/simpleupload"
	"github.com/tendant/simple-upload/pkg/simpleupload/objectkey"
)

const (
	defaultThumbWidth  = 256
	defaultThumbHeight = 256
	defaultJPEGQuality = 80
)

// Worker reacts to upload events: it fetches the original object, produces
// a fixed-dimension thumbnail, writes it back to the blob store, and
// records the outcome on a derivative record. Errors never propagate back
// to the event channel; every event is consumed regardless of outcome.
type Worker struct {
	repository simpleupload.Repository
	blobStore  simpleupload.BlobStore
	notifier   simpleupload.Notifier
	width      uint
	height     uint
	quality    int
}

// Option represents a functional option for configuring the worker
type Option func(*Worker)

// WithNotifier sets the callback notifier invoked after successful jobs
func WithNotifier(n simpleupload.Notifier) Option {
	return func(w *Worker) {
		w.notifier = n
	}
}

// WithThumbnailSize sets the bounding box for generated thumbnails
func WithThumbnailSize(width, height uint) Option {
	return func(w *Worker) {
		w.width = width
		w.height = height
	}
}

// WithJPEGQuality sets the JPEG encoder quality (1-100)
func WithJPEGQuality(quality int) Option {
	return func(w *Worker) {
		w.quality = quality
	}
}

// New creates a new derivative worker
func New(repository simpleupload.Repository, blobStore simpleupload.BlobStore, opts ...Option) (*Worker, error) {
	if repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if blobStore == nil {
		return nil, fmt.Errorf("blob store is required")
	}

	w := &Worker{
		repository: repository,
		blobStore:  blobStore,
		width:      defaultThumbWidth,
		height:     defaultThumbHeight,
		quality:    defaultJPEGQuality,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// HandleUploadEvent processes one upload event. A derivative record in
// processing state is persisted before any transform I/O, so a crash
// mid-job leaves an inspectable record rather than a silent drop.
func (w *Worker) HandleUploadEvent(ctx context.Context, event simpleupload.UploadEvent) {
	now := time.Now().UTC()
	derivative := &simpleupload.DerivativeRecord{
		ID:                   uuid.New(),
		OriginalStorageKey:   event.StorageKey,
		DerivativeStorageKey: objectkey.ThumbnailKey(event.StorageKey),
		Status:               simpleupload.DerivativeStatusProcessing,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := w.repository.CreateDerivative(ctx, derivative); err != nil {
		// Nothing durable to record the failure on; the event is still
		// consumed and recovery requires an external re-publish.
		slog.Error("Failed to create derivative record",
			"storage_key", event.StorageKey, "error", err)
		return
	}

	slog.Info("Thumbnail job started",
		"derivative_id", derivative.ID, "storage_key", event.StorageKey)

	thumb, err := w.makeThumbnail(ctx, event.StorageKey)
	if err != nil {
		w.fail(ctx, derivative, err)
		return
	}

	if err := w.blobStore.Upload(ctx, thumb, simpleupload.UploadParams{
		ObjectKey:   derivative.DerivativeStorageKey,
		ContentType: "image/jpeg",
	}); err != nil {
		w.fail(ctx, derivative, fmt.Errorf("upload thumbnail: %w", err))
		return
	}

	derivative.Status = simpleupload.DerivativeStatusSuccess
	derivative.UpdatedAt = time.Now().UTC()
	if err := w.repository.UpdateDerivative(ctx, derivative); err != nil {
		slog.Error("Failed to record thumbnail success",
			"derivative_id", derivative.ID, "error", err)
		return
	}

	slog.Info("Thumbnail created",
		"derivative_id", derivative.ID,
		"derivative_storage_key", derivative.DerivativeStorageKey)

	// Fire-and-forget callback: a failed notification is logged, never
	// retried, and does not roll back the success status.
	if w.notifier != nil {
		status, err := w.notifier.Notify(ctx, derivative)
		if err != nil {
			slog.Warn("Thumbnail callback failed",
				"derivative_id", derivative.ID, "error", err)
		} else {
			slog.Info("Thumbnail callback sent",
				"derivative_id", derivative.ID, "status", status)
		}
	}
}

// Run subscribes the worker in the given consumer group and blocks until
// the context is cancelled.
func (w *Worker) Run(ctx context.Context, subscriber simpleupload.Subscriber, group string) error {
	unsubscribe, err := subscriber.SubscribeUploadEvents(ctx, group, w.HandleUploadEvent)
	if err != nil {
		return fmt.Errorf("subscribe upload events: %w", err)
	}
	defer unsubscribe()

	slog.Info("Derivative worker started", "group", group,
		"thumb_width", w.width, "thumb_height", w.height)

	<-ctx.Done()
	return nil
}

func (w *Worker) fail(ctx context.Context, derivative *simpleupload.DerivativeRecord, cause error) {
	derivative.Status = simpleupload.DerivativeStatusFailed
	derivative.Error = cause.Error()
	derivative.UpdatedAt = time.Now().UTC()
	if err := w.repository.UpdateDerivative(ctx, derivative); err != nil {
		slog.Error("Failed to record thumbnail failure",
			"derivative_id", derivative.ID, "error", err)
	}
	slog.Error("Thumbnail creation failed",
		"derivative_id", derivative.ID,
		"storage_key", derivative.OriginalStorageKey,
		"error", cause)
}
