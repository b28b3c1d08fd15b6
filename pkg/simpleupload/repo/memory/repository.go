package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-upload/pkg/simpleupload"
)

// Repository implements simpleupload.Repository using in-memory storage
type Repository struct {
	mu                    sync.RWMutex
	files                 map[uuid.UUID]*simpleupload.FileRecord
	derivatives           map[uuid.UUID]*simpleupload.DerivativeRecord
	derivativesByOriginal map[string][]uuid.UUID // original storage key -> []derivative_id
}

// New creates a new in-memory repository
func New() simpleupload.Repository {
	return &Repository{
		files:                 make(map[uuid.UUID]*simpleupload.FileRecord),
		derivatives:           make(map[uuid.UUID]*simpleupload.DerivativeRecord),
		derivativesByOriginal: make(map[string][]uuid.UUID),
	}
}

// File record operations

func (r *Repository) CreateFile(ctx context.Context, file *simpleupload.FileRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Store a copy to avoid external modifications
	fileCopy := *file
	r.files[file.ID] = &fileCopy

	return nil
}

func (r *Repository) GetFile(ctx context.Context, id uuid.UUID) (*simpleupload.FileRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	file, exists := r.files[id]
	if !exists {
		return nil, simpleupload.ErrFileNotFound
	}

	fileCopy := *file
	return &fileCopy, nil
}

func (r *Repository) UpdateFile(ctx context.Context, file *simpleupload.FileRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.files[file.ID]; !exists {
		return simpleupload.ErrFileNotFound
	}

	fileCopy := *file
	r.files[file.ID] = &fileCopy

	return nil
}

// Derivative record operations

func (r *Repository) CreateDerivative(ctx context.Context, derivative *simpleupload.DerivativeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	derivativeCopy := *derivative
	r.derivatives[derivative.ID] = &derivativeCopy
	r.derivativesByOriginal[derivative.OriginalStorageKey] = append(
		r.derivativesByOriginal[derivative.OriginalStorageKey], derivative.ID)

	return nil
}

func (r *Repository) GetDerivative(ctx context.Context, id uuid.UUID) (*simpleupload.DerivativeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	derivative, exists := r.derivatives[id]
	if !exists {
		return nil, simpleupload.ErrDerivativeNotFound
	}

	derivativeCopy := *derivative
	return &derivativeCopy, nil
}

func (r *Repository) UpdateDerivative(ctx context.Context, derivative *simpleupload.DerivativeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.derivatives[derivative.ID]; !exists {
		return simpleupload.ErrDerivativeNotFound
	}

	derivativeCopy := *derivative
	r.derivatives[derivative.ID] = &derivativeCopy

	return nil
}

func (r *Repository) ListDerivativesByOriginalKey(ctx context.Context, originalStorageKey string) ([]*simpleupload.DerivativeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*simpleupload.DerivativeRecord
	for _, id := range r.derivativesByOriginal[originalStorageKey] {
		if derivative, exists := r.derivatives[id]; exists {
			derivativeCopy := *derivative
			result = append(result, &derivativeCopy)
		}
	}

	// Sort by created_at descending
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}
