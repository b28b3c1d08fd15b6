package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/simple-upload/pkg/simpleupload"
)

// FilesHandler handles the upload coordinator API endpoints
type FilesHandler struct {
	service simpleupload.Service
}

func NewFilesHandler(service simpleupload.Service) *FilesHandler {
	return &FilesHandler{service: service}
}

// Routes returns the router for files endpoints
func (h *FilesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/presign", h.Presign)
	r.Post("/confirm/{id}", h.Confirm)
	r.Post("/upload", h.DirectUpload)
	r.Get("/{id}", h.GetFile)
	r.Get("/{id}/download-url", h.GetDownloadURL)
	r.Get("/{id}/thumbnails", h.ListThumbnails)
	return r
}

// PresignRequest is the request body for issuing an upload credential
type PresignRequest struct {
	OriginalName string `json:"original_name"`
	ContentType  string `json:"content_type"`
	Size         int64  `json:"size,omitempty"`
}

// PresignResponse is the response body for an issued upload credential
type PresignResponse struct {
	FileID           string `json:"file_id"`
	StorageKey       string `json:"storage_key"`
	UploadURL        string `json:"upload_url"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
}

// DownloadURLResponse is the response body for a presigned download URL
type DownloadURLResponse struct {
	FileID      string `json:"file_id"`
	DownloadURL string `json:"download_url"`
}

// Presign issues a presigned upload URL and records a pending file
func (h *FilesHandler) Presign(w http.ResponseWriter, r *http.Request) {
	var req PresignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode presign request", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.OriginalName == "" {
		http.Error(w, "original_name is required", http.StatusBadRequest)
		return
	}

	resp, err := h.service.CreateUpload(r.Context(), simpleupload.CreateUploadRequest{
		OriginalName: req.OriginalName,
		ContentType:  req.ContentType,
		Size:         req.Size,
	})
	if err != nil {
		slog.Error("Failed to create upload", "original_name", req.OriginalName, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("Upload credential issued",
		"file_id", resp.File.ID, "storage_key", resp.File.StorageKey)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, PresignResponse{
		FileID:           resp.File.ID.String(),
		StorageKey:       resp.File.StorageKey,
		UploadURL:        resp.UploadURL,
		ExpiresInSeconds: resp.ExpiresInSeconds,
	})
}

// Confirm marks an upload as completed and publishes the upload event
func (h *FilesHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		slog.Error("Invalid file ID", "file_id", idStr, "error", err)
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	file, err := h.service.ConfirmUpload(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, simpleupload.ErrFileNotFound):
			slog.Warn("File not found for confirm", "file_id", idStr)
			http.Error(w, "File not found", http.StatusNotFound)
		case errors.Is(err, simpleupload.ErrFileAlreadyUploaded):
			slog.Warn("File already uploaded", "file_id", idStr)
			http.Error(w, "File is already uploaded", http.StatusConflict)
		default:
			slog.Error("Failed to confirm upload", "file_id", idStr, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	slog.Info("Upload confirmed", "file_id", idStr, "storage_key", file.StorageKey)
	render.JSON(w, r, file)
}

// DirectUpload transfers the bytes through the coordinator
func (h *FilesHandler) DirectUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Invalid multipart request", "error", err)
		http.Error(w, "Invalid multipart request: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	record, err := h.service.DirectUpload(r.Context(), simpleupload.DirectUploadRequest{
		OriginalName: header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		Size:         header.Size,
		Reader:       file,
	})
	if err != nil {
		slog.Error("Failed to upload file", "original_name", header.Filename, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("File uploaded", "file_id", record.ID, "storage_key", record.StorageKey)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, record)
}

// GetFile returns the file record
func (h *FilesHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		slog.Error("Invalid file ID", "file_id", idStr, "error", err)
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	file, err := h.service.GetFile(r.Context(), id)
	if err != nil {
		if errors.Is(err, simpleupload.ErrFileNotFound) {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to get file", "file_id", idStr, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, file)
}

// GetDownloadURL returns a presigned download URL for a confirmed upload
func (h *FilesHandler) GetDownloadURL(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		slog.Error("Invalid file ID", "file_id", idStr, "error", err)
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	url, err := h.service.GetDownloadURL(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, simpleupload.ErrFileNotFound):
			http.Error(w, "File not found", http.StatusNotFound)
		case errors.Is(err, simpleupload.ErrFileNotUploaded):
			http.Error(w, "File is not uploaded", http.StatusConflict)
		default:
			slog.Error("Failed to get download URL", "file_id", idStr, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, r, DownloadURLResponse{
		FileID:      idStr,
		DownloadURL: url,
	})
}

// ListThumbnails returns derivative job records for the file
func (h *FilesHandler) ListThumbnails(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		slog.Error("Invalid file ID", "file_id", idStr, "error", err)
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	derivatives, err := h.service.ListThumbnails(r.Context(), id)
	if err != nil {
		if errors.Is(err, simpleupload.ErrFileNotFound) {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to list thumbnails", "file_id", idStr, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if derivatives == nil {
		derivatives = []*simpleupload.DerivativeRecord{}
	}
	render.JSON(w, r, derivatives)
}
