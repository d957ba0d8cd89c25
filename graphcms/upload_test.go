package graphcms

import (
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStorage captures the signed multipart POST and records field order.
type fakeStorage struct {
	mu         sync.Mutex
	fieldOrder []string
	fileBytes  []byte
	status     int
}

func (s *fakeStorage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	mr := multipart.NewReader(r.Body, params["boundary"])
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.fieldOrder = append(s.fieldOrder, part.FormName())
		data, _ := io.ReadAll(part)
		if part.FormName() == "file" {
			s.fileBytes = data
		}
	}
	if s.status != 0 {
		w.WriteHeader(s.status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func reserveResponse(storageURL string) map[string]any {
	return map[string]any{"createAsset": map[string]any{
		"id":  "asset-42",
		"url": "https://media.example/asset-42.jpg",
		"upload": map[string]any{
			"expiresAt": "2025-06-14T11:00:00Z",
			"requestPostData": map[string]any{
				"url":           storageURL,
				"date":          "20250614T100000Z",
				"key":           "uploads/asset-42",
				"signature":     "sig",
				"algorithm":     "AWS4-HMAC-SHA256",
				"policy":        "cG9saWN5",
				"credential":    "cred",
				"securityToken": "token",
			},
		},
	}}
}

func TestUploadHappyPath(t *testing.T) {
	t.Parallel()

	storage := &fakeStorage{}
	storageSrv := httptest.NewServer(storage)
	t.Cleanup(storageSrv.Close)

	backend := &fakeBackend{handle: func(query string, vars map[string]any) (any, string) {
		switch {
		case strings.Contains(query, "createAsset"):
			assert.Equal(t, "picnic.jpg", vars["fileName"])
			return reserveResponse(storageSrv.URL), ""
		case strings.Contains(query, "publishAsset"):
			return map[string]any{"publishAsset": map[string]any{"id": "asset-42", "stage": "PUBLISHED"}}, ""
		}
		return nil, "unexpected query"
	}}
	c, _ := newTestClient(t, backend)

	result, err := NewUploader(c).Upload(t.Context(), []byte("jpeg-bytes"), "picnic.jpg")
	require.NoError(t, err)
	assert.Equal(t, "asset-42", result.ID)
	assert.Equal(t, "https://media.example/asset-42.jpg", result.URL)
	assert.True(t, result.Activated)
	assert.NoError(t, result.ActivationErr)

	storage.mu.Lock()
	defer storage.mu.Unlock()
	assert.Equal(t, []string{
		"X-Amz-Date", "key", "X-Amz-Signature", "X-Amz-Algorithm",
		"policy", "X-Amz-Credential", "X-Amz-Security-Token", "file",
	}, storage.fieldOrder, "signed fields in backend order, file last")
	assert.Equal(t, []byte("jpeg-bytes"), storage.fileBytes)
}

func TestUploadTransferFailureAbortsBeforeActivation(t *testing.T) {
	t.Parallel()

	storage := &fakeStorage{status: http.StatusForbidden}
	storageSrv := httptest.NewServer(storage)
	t.Cleanup(storageSrv.Close)

	backend := &fakeBackend{handle: func(query string, vars map[string]any) (any, string) {
		if strings.Contains(query, "createAsset") {
			return reserveResponse(storageSrv.URL), ""
		}
		t.Errorf("no mutation beyond reserve expected, got: %s", query)
		return nil, "unexpected"
	}}
	c, _ := newTestClient(t, backend)

	_, err := NewUploader(c).Upload(t.Context(), []byte("jpeg-bytes"), "picnic.jpg")
	var transferErr *TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Equal(t, http.StatusForbidden, transferErr.Status)
}

func TestUploadActivationFailureIsDegradedSuccess(t *testing.T) {
	t.Parallel()

	storage := &fakeStorage{}
	storageSrv := httptest.NewServer(storage)
	t.Cleanup(storageSrv.Close)

	backend := &fakeBackend{handle: func(query string, vars map[string]any) (any, string) {
		if strings.Contains(query, "createAsset") {
			return reserveResponse(storageSrv.URL), ""
		}
		return nil, "stage transition refused"
	}}
	c, _ := newTestClient(t, backend)

	result, err := NewUploader(c).Upload(t.Context(), []byte("jpeg-bytes"), "picnic.jpg")
	require.NoError(t, err, "stored upload with failed activation is not a hard failure")
	assert.Equal(t, "asset-42", result.ID)
	assert.False(t, result.Activated)
	var actErr *ActivationError
	require.ErrorAs(t, result.ActivationErr, &actErr)
	assert.Equal(t, "asset-42", actErr.AssetID)
}

func TestActivateAssetTriesAlternateShapeOnce(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{handle: func(query string, vars map[string]any) (any, string) {
		if strings.Contains(query, "to: PUBLISHED") {
			return nil, "unknown argument"
		}
		return map[string]any{"publishAsset": map[string]any{"id": vars["id"]}}, ""
	}}
	c, _ := newTestClient(t, backend)

	err := NewUploader(c).ActivateAsset(t.Context(), "asset-42")
	require.NoError(t, err)
	assert.Equal(t, 2, backend.count(), "primary shape, then exactly one alternate")
}

func TestActivateAssetIdempotent(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{handle: func(query string, vars map[string]any) (any, string) {
		// The backend treats publishing an already-published asset as a no-op.
		return map[string]any{"publishAsset": map[string]any{"id": vars["id"], "stage": "PUBLISHED"}}, ""
	}}
	c, _ := newTestClient(t, backend)

	u := NewUploader(c)
	require.NoError(t, u.ActivateAsset(t.Context(), "asset-42"))
	require.NoError(t, u.ActivateAsset(t.Context(), "asset-42"))
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{handle: func(query string, vars map[string]any) (any, string) {
		t.Error("no request expected for an empty file")
		return nil, ""
	}}
	c, _ := newTestClient(t, backend)

	_, err := NewUploader(c).Upload(t.Context(), nil, "empty.jpg")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, 0, backend.count())
}
