package simpleupload

import "io"

// Request/Response DTOs

// CreateUploadRequest contains parameters for issuing an upload credential.
// OriginalName and ContentType are client-supplied and advisory only.
type CreateUploadRequest struct {
	OriginalName string
	ContentType  string
	Size         int64
}

// CreateUploadResponse contains the issued credential and the new record
type CreateUploadResponse struct {
	File             *FileRecord
	UploadURL        string
	ExpiresInSeconds int
}

// DirectUploadRequest contains parameters for a server-side upload, where
// the coordinator transfers the bytes itself instead of issuing a credential
type DirectUploadRequest struct {
	OriginalName string
	ContentType  string
	Size         int64
	Reader       io.Reader
}
