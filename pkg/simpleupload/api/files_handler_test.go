package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-upload/pkg/simpleupload"
	"github.com/tendant/simple-upload/pkg/simpleupload/api"
	eventmemory "github.com/tendant/simple-upload/pkg/simpleupload/event/memory"
	"github.com/tendant/simple-upload/pkg/simpleupload/repo/memory"
	memorystorage "github.com/tendant/simple-upload/pkg/simpleupload/storage/memory"
)

func setupServer(t *testing.T) (*httptest.Server, *memorystorage.Backend) {
	t.Helper()

	store := memorystorage.New()
	svc, err := simpleupload.New(
		simpleupload.WithRepository(memory.New()),
		simpleupload.WithBlobStore(store),
		simpleupload.WithPublisher(eventmemory.New()),
	)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Mount("/api/files", api.NewFilesHandler(svc).Routes())
	r.Mount("/api/thumbnails", api.NewCallbackHandler().Routes())

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, store
}

func presign(t *testing.T, server *httptest.Server, name, contentType string) api.PresignResponse {
	t.Helper()

	body := fmt.Sprintf(`{"original_name": %q, "content_type": %q}`, name, contentType)
	resp, err := http.Post(server.URL+"/api/files/presign", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out api.PresignResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestPresignEndpoint(t *testing.T) {
	server, _ := setupServer(t)

	t.Run("issues credential", func(t *testing.T) {
		out := presign(t, server, "cat.jpg", "image/jpeg")
		assert.NotEmpty(t, out.FileID)
		assert.NotEmpty(t, out.UploadURL)
		assert.Equal(t, 900, out.ExpiresInSeconds)
		assert.True(t, strings.HasSuffix(out.StorageKey, "_cat.jpg"))
	})

	t.Run("rejects missing original_name", func(t *testing.T) {
		resp, err := http.Post(server.URL+"/api/files/presign", "application/json",
			strings.NewReader(`{"content_type": "image/jpeg"}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		resp, err := http.Post(server.URL+"/api/files/presign", "application/json",
			strings.NewReader(`{not json`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestConfirmEndpoint(t *testing.T) {
	server, _ := setupServer(t)
	out := presign(t, server, "cat.jpg", "image/jpeg")

	t.Run("confirms pending upload", func(t *testing.T) {
		resp, err := http.Post(server.URL+"/api/files/confirm/"+out.FileID, "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var file simpleupload.FileRecord
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&file))
		assert.Equal(t, simpleupload.FileStatusUploaded, file.Status)
	})

	t.Run("second confirm conflicts", func(t *testing.T) {
		resp, err := http.Post(server.URL+"/api/files/confirm/"+out.FileID, "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("unknown id", func(t *testing.T) {
		resp, err := http.Post(server.URL+"/api/files/confirm/"+uuid.NewString(), "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, err := http.Post(server.URL+"/api/files/confirm/not-a-uuid", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetFileEndpoint(t *testing.T) {
	server, _ := setupServer(t)
	out := presign(t, server, "cat.jpg", "image/jpeg")

	t.Run("returns record", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/files/" + out.FileID)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var file simpleupload.FileRecord
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&file))
		assert.Equal(t, out.FileID, file.ID.String())
		assert.Equal(t, simpleupload.FileStatusPending, file.Status)
	})

	t.Run("unknown id", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/files/" + uuid.NewString())
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestDownloadURLEndpoint(t *testing.T) {
	server, store := setupServer(t)
	out := presign(t, server, "cat.jpg", "image/jpeg")

	t.Run("pending upload conflicts", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/files/" + out.FileID + "/download-url")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("confirmed upload gets url", func(t *testing.T) {
		store.Put(out.StorageKey, []byte("jpeg bytes"), "image/jpeg")
		resp, err := http.Post(server.URL+"/api/files/confirm/"+out.FileID, "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, err = http.Get(server.URL + "/api/files/" + out.FileID + "/download-url")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body api.DownloadURLResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, out.FileID, body.FileID)
		assert.Contains(t, body.DownloadURL, out.StorageKey)
	})
}

func TestDirectUploadEndpoint(t *testing.T) {
	server, store := setupServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "report.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(server.URL+"/api/files/upload", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var file simpleupload.FileRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&file))
	assert.Equal(t, simpleupload.FileStatusUploaded, file.Status)
	assert.Equal(t, "report.pdf", file.OriginalName)

	data, ok := store.Get(file.StorageKey)
	require.True(t, ok)
	assert.Equal(t, []byte("%PDF"), data)
}

func TestListThumbnailsEndpoint(t *testing.T) {
	server, _ := setupServer(t)
	out := presign(t, server, "cat.jpg", "image/jpeg")

	t.Run("empty list for fresh file", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/files/" + out.FileID + "/thumbnails")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var derivatives []*simpleupload.DerivativeRecord
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&derivatives))
		assert.Empty(t, derivatives)
	})

	t.Run("unknown id", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/files/" + uuid.NewString() + "/thumbnails")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestThumbnailCallbackEndpoint(t *testing.T) {
	server, _ := setupServer(t)

	t.Run("acknowledges notification", func(t *testing.T) {
		record := simpleupload.DerivativeRecord{
			ID:                   uuid.New(),
			OriginalStorageKey:   "abc_cat.jpg",
			DerivativeStorageKey: "thumbnails/abc_cat.jpg",
			Status:               simpleupload.DerivativeStatusSuccess,
		}
		body, err := json.Marshal(record)
		require.NoError(t, err)

		resp, err := http.Post(server.URL+"/api/thumbnails/callback", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusAccepted, resp.StatusCode)

		var ack map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&ack))
		assert.Equal(t, "received", ack["status"])
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		resp, err := http.Post(server.URL+"/api/thumbnails/callback", "application/json",
			strings.NewReader(`{not json`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
