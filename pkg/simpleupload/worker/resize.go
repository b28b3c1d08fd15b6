package worker

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"

	// Register decoders for the formats the pipeline accepts.
	_ "image/gif"
	_ "image/png"

	"github.com/nfnt/resize"
)

// makeThumbnail fetches the original object and returns encoded JPEG
// thumbnail bytes. The transform is pure: the same input and configured
// dimensions always produce the same output.
func (w *Worker) makeThumbnail(ctx context.Context, storageKey string) (io.Reader, error) {
	reader, err := w.blobStore.Download(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("download original: %w", err)
	}
	defer reader.Close()

	img, _, err := image.Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	// Resize maintaining aspect ratio within the configured bounding box.
	thumbnail := resize.Thumbnail(w.width, w.height, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumbnail, &jpeg.Options{Quality: w.quality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}

	return &buf, nil
}
