package worker_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-upload/pkg/simpleupload"
	eventmemory "github.com/tendant/simple-upload/pkg/simpleupload/event/memory"
	"github.com/tendant/simple-upload/pkg/simpleupload/repo/memory"
	memorystorage "github.com/tendant/simple-upload/pkg/simpleupload/storage/memory"
	"github.com/tendant/simple-upload/pkg/simpleupload/worker"
)

// captureNotifier records callbacks for assertions
type captureNotifier struct {
	mu      sync.Mutex
	records []simpleupload.DerivativeRecord
	status  int
	err     error
}

func (n *captureNotifier) Notify(ctx context.Context, derivative *simpleupload.DerivativeRecord) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.records = append(n.records, *derivative)
	return n.status, n.err
}

func (n *captureNotifier) Records() []simpleupload.DerivativeRecord {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]simpleupload.DerivativeRecord(nil), n.records...)
}

// encodeJPEG produces a small valid JPEG for transform tests
func encodeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func setupWorker(t *testing.T) (*worker.Worker, simpleupload.Repository, *memorystorage.Backend, *captureNotifier) {
	t.Helper()

	repo := memory.New()
	store := memorystorage.New()
	notifier := &captureNotifier{status: 202}

	w, err := worker.New(repo, store, worker.WithNotifier(notifier))
	require.NoError(t, err)

	return w, repo, store, notifier
}

func TestWorkerCreation(t *testing.T) {
	repo := memory.New()
	store := memorystorage.New()

	t.Run("missing repository", func(t *testing.T) {
		_, err := worker.New(nil, store)
		assert.Error(t, err)
	})

	t.Run("missing blob store", func(t *testing.T) {
		_, err := worker.New(repo, nil)
		assert.Error(t, err)
	})

	t.Run("notifier is optional", func(t *testing.T) {
		w, err := worker.New(repo, store)
		assert.NoError(t, err)
		assert.NotNil(t, w)
	})
}

func TestHandleUploadEventSuccess(t *testing.T) {
	w, repo, store, notifier := setupWorker(t)
	ctx := context.Background()

	store.Put("abc_cat.jpg", encodeJPEG(t, 1024, 768), "image/jpeg")

	w.HandleUploadEvent(ctx, simpleupload.UploadEvent{
		FileID:     uuid.New(),
		StorageKey: "abc_cat.jpg",
	})

	derivatives, err := repo.ListDerivativesByOriginalKey(ctx, "abc_cat.jpg")
	require.NoError(t, err)
	require.Len(t, derivatives, 1)

	derivative := derivatives[0]
	assert.Equal(t, simpleupload.DerivativeStatusSuccess, derivative.Status)
	assert.Equal(t, "thumbnails/abc_cat.jpg", derivative.DerivativeStorageKey)
	assert.Empty(t, derivative.Error)

	t.Run("thumbnail is a bounded jpeg", func(t *testing.T) {
		data, ok := store.Get("thumbnails/abc_cat.jpg")
		require.True(t, ok)

		contentType, ok := store.ContentType("thumbnails/abc_cat.jpg")
		require.True(t, ok)
		assert.Equal(t, "image/jpeg", contentType)

		thumb, format, err := image.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)

		bounds := thumb.Bounds()
		assert.LessOrEqual(t, bounds.Dx(), 256)
		assert.LessOrEqual(t, bounds.Dy(), 256)
		// Aspect ratio of the 1024x768 original is preserved.
		assert.Equal(t, 256, bounds.Dx())
		assert.Equal(t, 192, bounds.Dy())
	})

	t.Run("callback fired exactly once", func(t *testing.T) {
		records := notifier.Records()
		require.Len(t, records, 1)
		assert.Equal(t, derivative.ID, records[0].ID)
		assert.Equal(t, simpleupload.DerivativeStatusSuccess, records[0].Status)
	})
}

func TestHandleUploadEventSmallImageNotUpscaled(t *testing.T) {
	w, _, store, _ := setupWorker(t)
	ctx := context.Background()

	store.Put("abc_icon.jpg", encodeJPEG(t, 64, 48), "image/jpeg")

	w.HandleUploadEvent(ctx, simpleupload.UploadEvent{
		FileID:     uuid.New(),
		StorageKey: "abc_icon.jpg",
	})

	data, ok := store.Get("thumbnails/abc_icon.jpg")
	require.True(t, ok)

	thumb, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 64, thumb.Bounds().Dx())
	assert.Equal(t, 48, thumb.Bounds().Dy())
}

func TestHandleUploadEventMissingObject(t *testing.T) {
	w, repo, store, notifier := setupWorker(t)
	ctx := context.Background()

	w.HandleUploadEvent(ctx, simpleupload.UploadEvent{
		FileID:     uuid.New(),
		StorageKey: "never_uploaded.jpg",
	})

	derivatives, err := repo.ListDerivativesByOriginalKey(ctx, "never_uploaded.jpg")
	require.NoError(t, err)
	require.Len(t, derivatives, 1)
	assert.Equal(t, simpleupload.DerivativeStatusFailed, derivatives[0].Status)
	assert.NotEmpty(t, derivatives[0].Error)

	// No thumbnail written and no callback for failed jobs.
	_, ok := store.Get("thumbnails/never_uploaded.jpg")
	assert.False(t, ok)
	assert.Empty(t, notifier.Records())
}

func TestHandleUploadEventNotAnImage(t *testing.T) {
	w, repo, store, notifier := setupWorker(t)
	ctx := context.Background()

	// A client can confirm an upload whose bytes are not a decodable image.
	store.Put("abc_report.pdf", []byte("%PDF-1.4 not an image"), "application/pdf")

	w.HandleUploadEvent(ctx, simpleupload.UploadEvent{
		FileID:     uuid.New(),
		StorageKey: "abc_report.pdf",
	})

	derivatives, err := repo.ListDerivativesByOriginalKey(ctx, "abc_report.pdf")
	require.NoError(t, err)
	require.Len(t, derivatives, 1)
	assert.Equal(t, simpleupload.DerivativeStatusFailed, derivatives[0].Status)
	assert.Contains(t, derivatives[0].Error, "decode image")

	_, ok := store.Get("thumbnails/abc_report.pdf")
	assert.False(t, ok)
	assert.Empty(t, notifier.Records())
}

func TestHandleUploadEventDuplicateDelivery(t *testing.T) {
	w, repo, store, _ := setupWorker(t)
	ctx := context.Background()

	store.Put("abc_cat.jpg", encodeJPEG(t, 512, 512), "image/jpeg")

	event := simpleupload.UploadEvent{FileID: uuid.New(), StorageKey: "abc_cat.jpg"}
	w.HandleUploadEvent(ctx, event)
	w.HandleUploadEvent(ctx, event)

	// At-least-once delivery: each redelivery runs a fresh job, both land
	// on the same derivative key.
	derivatives, err := repo.ListDerivativesByOriginalKey(ctx, "abc_cat.jpg")
	require.NoError(t, err)
	require.Len(t, derivatives, 2)
	for _, d := range derivatives {
		assert.Equal(t, simpleupload.DerivativeStatusSuccess, d.Status)
		assert.Equal(t, "thumbnails/abc_cat.jpg", d.DerivativeStorageKey)
	}

	_, ok := store.Get("thumbnails/abc_cat.jpg")
	assert.True(t, ok)
}

func TestCallbackFailureDoesNotAffectOutcome(t *testing.T) {
	repo := memory.New()
	store := memorystorage.New()
	notifier := &captureNotifier{err: assert.AnError}

	w, err := worker.New(repo, store, worker.WithNotifier(notifier))
	require.NoError(t, err)
	ctx := context.Background()

	store.Put("abc_cat.jpg", encodeJPEG(t, 300, 300), "image/jpeg")
	w.HandleUploadEvent(ctx, simpleupload.UploadEvent{
		FileID:     uuid.New(),
		StorageKey: "abc_cat.jpg",
	})

	derivatives, err := repo.ListDerivativesByOriginalKey(ctx, "abc_cat.jpg")
	require.NoError(t, err)
	require.Len(t, derivatives, 1)
	assert.Equal(t, simpleupload.DerivativeStatusSuccess, derivatives[0].Status)
}

func TestCustomThumbnailSize(t *testing.T) {
	repo := memory.New()
	store := memorystorage.New()

	w, err := worker.New(repo, store, worker.WithThumbnailSize(64, 64), worker.WithJPEGQuality(50))
	require.NoError(t, err)
	ctx := context.Background()

	store.Put("abc_cat.jpg", encodeJPEG(t, 640, 640), "image/jpeg")
	w.HandleUploadEvent(ctx, simpleupload.UploadEvent{
		FileID:     uuid.New(),
		StorageKey: "abc_cat.jpg",
	})

	data, ok := store.Get("thumbnails/abc_cat.jpg")
	require.True(t, ok)

	thumb, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 64, thumb.Bounds().Dx())
	assert.Equal(t, 64, thumb.Bounds().Dy())
}

func TestRunConsumesFromGroup(t *testing.T) {
	w, repo, store, notifier := setupWorker(t)
	bus := eventmemory.New()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, bus, "thumbnail-workers")
	}()

	store.Put("abc_cat.jpg", encodeJPEG(t, 400, 200), "image/jpeg")

	// The memory bus delivers synchronously, but the subscription happens
	// on the Run goroutine; wait for it before publishing.
	require.Eventually(t, func() bool {
		err := bus.PublishUploadEvent(context.Background(), simpleupload.UploadEvent{
			FileID:     uuid.New(),
			StorageKey: "abc_cat.jpg",
		})
		if err != nil {
			return false
		}
		derivatives, err := repo.ListDerivativesByOriginalKey(context.Background(), "abc_cat.jpg")
		return err == nil && len(derivatives) > 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	derivatives, err := repo.ListDerivativesByOriginalKey(context.Background(), "abc_cat.jpg")
	require.NoError(t, err)
	require.NotEmpty(t, derivatives)
	assert.Equal(t, simpleupload.DerivativeStatusSuccess, derivatives[0].Status)
	assert.NotEmpty(t, notifier.Records())
}
