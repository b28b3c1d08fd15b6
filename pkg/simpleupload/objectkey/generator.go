// Package objectkey generates storage keys for uploaded objects and their
// derivatives.
package objectkey

import (
	"strings"

	"github.com/google/uuid"
)

// ThumbnailPrefix is the fixed sub-prefix under which thumbnail derivatives
// are stored.
const ThumbnailPrefix = "thumbnails/"

// Generator defines the interface for upload key generation strategies
type Generator interface {
	// GenerateKey creates a fresh storage key for an uploaded object. Keys
	// must never collide with previously issued keys.
	GenerateKey(originalName string) string
}

// UUIDGenerator prefixes a random UUID to the sanitized original name,
// e.g. "2f1c...-9d1a_cat.jpg".
type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) GenerateKey(originalName string) string {
	name := sanitizeFilename(originalName)
	if name == "" {
		return uuid.NewString()
	}
	return uuid.NewString() + "_" + name
}

// ThumbnailKey returns the derivative key for an original storage key. It is
// a pure function of the original key, so repeated jobs for the same
// original always overwrite the same derivative location.
func ThumbnailKey(originalKey string) string {
	return ThumbnailPrefix + originalKey
}

func sanitizeFilename(filename string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	return replacer.Replace(strings.TrimSpace(filename))
}
