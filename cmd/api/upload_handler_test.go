package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"godsendjoseph.dev/gaushala-api/internal/auth"
	"godsendjoseph.dev/gaushala-api/internal/models"
	"godsendjoseph.dev/gaushala-api/internal/storage"
)

func TestUploadPhoto_Direct(t *testing.T) {
	ta := newTestApplication(t, testOptions{})

	rec := ta.do(t, multipartRequest(t, pngFile(), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	response := decodeUpload(t, rec)
	assert.True(t, response.Success)
	assert.Contains(t, response.PhotoURL, "/cow-images/cow-")
	assert.True(t, strings.HasSuffix(response.PhotoURL, ".png"))
	assert.Empty(t, response.Error)
	assert.NotEmpty(t, response.UploadID)

	require.Len(t, ta.uploads.entries, 1)
	entry := ta.uploads.entries[0]
	assert.Equal(t, "direct", entry.Strategy)
	assert.Equal(t, "image/png", entry.ContentType)
	assert.True(t, entry.Success)
	assert.Contains(t, ta.client.containers, storage.DefaultContainer)
}

func TestUploadPhoto_DesiredPath(t *testing.T) {
	ta := newTestApplication(t, testOptions{})

	rec := ta.do(t, multipartRequest(t, pngFile(), map[string]string{"path": "herd/gauri.png"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	response := decodeUpload(t, rec)
	assert.True(t, strings.HasSuffix(response.PhotoURL, "/cow-images/herd/gauri.png"), response.PhotoURL)
	assert.Contains(t, ta.client.objects, "cow-images/herd/gauri.png")
}

func TestUploadPhoto_FilesystemOnly(t *testing.T) {
	ta := newTestApplication(t, testOptions{})

	rec := ta.do(t, multipartRequest(t, pngFile(), map[string]string{"useFilesystemFallback": "true"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	response := decodeUpload(t, rec)
	assert.True(t, strings.HasPrefix(response.PhotoURL, "/uploads/cow-"), response.PhotoURL)
	assert.Zero(t, ta.client.calls.Load(), "remote storage must not be touched")

	served := ta.do(t, httptest.NewRequest(http.MethodGet, response.PhotoURL, nil))
	require.Equal(t, http.StatusOK, served.Code)
	assert.Equal(t, pngFile().body, served.Body.Bytes())
}

func TestUploadPhoto_FallsBackWhenRemoteFails(t *testing.T) {
	client := newMemoryStorage()
	client.failUpload = true
	client.failSign = true
	ta := newTestApplication(t, testOptions{client: client})

	rec := ta.do(t, multipartRequest(t, pngFile(), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	response := decodeUpload(t, rec)
	assert.True(t, response.Success)
	assert.True(t, strings.HasPrefix(response.PhotoURL, "/uploads/"))
	require.Len(t, response.Diagnostics, 2)
	assert.True(t, strings.HasPrefix(response.Diagnostics[0], "direct: "))
	assert.Equal(t, "filesystem", ta.uploads.entries[0].Strategy)
}

func TestUploadPhoto_NoRemoteConfigured(t *testing.T) {
	ta := newTestApplication(t, testOptions{noRemote: true})

	rec := ta.do(t, multipartRequest(t, pngFile(), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, strings.HasPrefix(decodeUpload(t, rec).PhotoURL, "/uploads/"))
}

func TestUploadPhoto_AllStrategiesFail(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "uploads")
	require.NoError(t, os.WriteFile(blocker, []byte("not a dir"), 0o644))

	client := newMemoryStorage()
	client.failUpload = true
	client.failSign = true
	ta := newTestApplication(t, testOptions{client: client, uploadsDir: blocker})

	rec := ta.do(t, multipartRequest(t, pngFile(), nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	response := decodeUpload(t, rec)
	assert.False(t, response.Success)
	assert.Empty(t, response.PhotoURL)
	assert.Contains(t, response.Error, "upload failed")
	assert.Len(t, response.Diagnostics, 3)

	require.Len(t, ta.uploads.entries, 1)
	assert.False(t, ta.uploads.entries[0].Success)
	assert.Len(t, ta.uploads.entries[0].Diagnostics, 3)
}

func TestUploadPhoto_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		opts   testOptions
		file   *formFile
		fields map[string]string
		status int
	}{
		{name: "missing file", file: nil, status: http.StatusBadRequest},
		{name: "empty file", file: &formFile{name: "empty.png", contentType: "image/png"}, status: http.StatusBadRequest},
		{name: "traversal path", file: pngFile(), fields: map[string]string{"path": "../../etc/passwd"}, status: http.StatusBadRequest},
		{name: "absolute path", file: pngFile(), fields: map[string]string{"path": "/etc/passwd"}, status: http.StatusBadRequest},
		{name: "bad flag", file: pngFile(), fields: map[string]string{"useFilesystemFallback": "maybe"}, status: http.StatusBadRequest},
		{name: "too large", opts: testOptions{uploadMaxSize: 1024}, file: pngFile(), status: http.StatusRequestEntityTooLarge},
		{name: "mime not allowed", opts: testOptions{allowedMimeTypes: []string{"image/jpeg"}}, file: pngFile(), status: http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApplication(t, tt.opts)

			rec := ta.do(t, multipartRequest(t, tt.file, tt.fields))
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			response := decodeUpload(t, rec)
			assert.False(t, response.Success)
			assert.NotEmpty(t, response.Error)
			assert.Empty(t, ta.uploads.entries)
		})
	}
}

func TestUploadPhoto_Auth(t *testing.T) {
	ta := newTestApplication(t, testOptions{authEnabled: true})

	token := func(role string) string {
		signed, err := ta.app.authenticator.GenerateToken(auth.PlatformClaims{
			Role: role,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "cow-keeper",
				Audience:  jwt.ClaimStrings{"authenticated"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		require.NoError(t, err)
		return signed
	}

	rec := ta.do(t, multipartRequest(t, pngFile(), nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := multipartRequest(t, pngFile(), nil)
	req.Header.Set("Authorization", "Bearer "+token("anon"))
	assert.Equal(t, http.StatusForbidden, ta.do(t, req).Code)

	req = multipartRequest(t, pngFile(), nil)
	req.Header.Set("Authorization", "Bearer "+token(auth.AuthenticatedRole))
	rec = ta.do(t, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestGetUpload(t *testing.T) {
	ta := newTestApplication(t, testOptions{})

	uploaded := decodeUpload(t, ta.do(t, multipartRequest(t, pngFile(), nil)))
	require.NotEmpty(t, uploaded.UploadID)

	rec := ta.do(t, httptest.NewRequest(http.MethodGet, "/v1/uploads/"+uploaded.UploadID, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var entry models.UploadLog
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &entry))
	assert.Equal(t, uploaded.UploadID, entry.UploadID)
	assert.Equal(t, uploaded.PhotoURL, entry.PublicURL)

	rec = ta.do(t, httptest.NewRequest(http.MethodGet, "/v1/uploads/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ta.do(t, httptest.NewRequest(http.MethodGet, "/v1/uploads/6f1c1dd2-5b43-4a8e-8a44-54b7d1b2a001", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListUploads(t *testing.T) {
	ta := newTestApplication(t, testOptions{})
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, ta.do(t, multipartRequest(t, pngFile(), nil)).Code)
	}

	rec := ta.do(t, httptest.NewRequest(http.MethodGet, "/v1/uploads?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var entries []models.UploadLog
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &entries))
	assert.Len(t, entries, 2)

	rec = ta.do(t, httptest.NewRequest(http.MethodGet, "/v1/uploads?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActivityLogDisabled(t *testing.T) {
	ta := newTestApplication(t, testOptions{noActivityLog: true})

	rec := ta.do(t, multipartRequest(t, pngFile(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeUpload(t, rec).UploadID)

	rec = ta.do(t, httptest.NewRequest(http.MethodGet, "/v1/uploads/6f1c1dd2-5b43-4a8e-8a44-54b7d1b2a001", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUploadPhoto_DiagnosticsHiddenInProduction(t *testing.T) {
	client := newMemoryStorage()
	client.failUpload = true
	client.failSign = true
	ta := newTestApplication(t, testOptions{client: client})
	ta.app.config.env = "production"

	rec := ta.do(t, multipartRequest(t, pngFile(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, bytes.Contains(rec.Body.Bytes(), []byte("diagnostics")))
}
