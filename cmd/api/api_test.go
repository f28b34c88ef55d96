package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"godsendjoseph.dev/gaushala-api/internal/auth"
	"godsendjoseph.dev/gaushala-api/internal/errs"
	"godsendjoseph.dev/gaushala-api/internal/models"
	"godsendjoseph.dev/gaushala-api/internal/notification"
	"godsendjoseph.dev/gaushala-api/internal/ratelimiter"
	"godsendjoseph.dev/gaushala-api/internal/storage"
	"godsendjoseph.dev/gaushala-api/internal/store"
	"godsendjoseph.dev/gaushala-api/internal/store/cache"
)

const testJWTSecret = "test-secret-with-enough-length-for-hs256"

// memoryStorage is an in-memory storage.Client.
type memoryStorage struct {
	mu         sync.Mutex
	containers map[string]storage.Container
	objects    map[string][]byte
	calls      atomic.Int64
	failUpload bool
	failSign   bool
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{containers: map[string]storage.Container{}, objects: map[string][]byte{}}
}

func (m *memoryStorage) ListContainers(ctx context.Context) ([]storage.Container, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []storage.Container{}
	for _, c := range m.containers {
		out = append(out, c)
	}
	return out, nil
}

func (m *memoryStorage) CreateContainer(ctx context.Context, c storage.Container) error {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.containers[c.Name] = c
	return nil
}

func (m *memoryStorage) UpdateContainer(ctx context.Context, c storage.Container) error {
	return m.CreateContainer(ctx, c)
}

func (m *memoryStorage) UploadObject(ctx context.Context, container, key string, body io.Reader, size int64, contentType string) (*storage.UploadResult, error) {
	m.calls.Add(1)
	if m.failUpload {
		return nil, errs.New(errs.KindPermissionDenied, "new row violates row-level security policy")
	}
	data, _ := io.ReadAll(body)
	m.mu.Lock()
	m.objects[container+"/"+key] = data
	m.mu.Unlock()
	return &storage.UploadResult{Key: key, URL: m.GetPublicURL(container, key)}, nil
}

func (m *memoryStorage) CreateSignedUploadURL(ctx context.Context, container, key string, ttl time.Duration) (*storage.SignedUpload, error) {
	m.calls.Add(1)
	if m.failSign {
		return nil, errs.New(errs.KindConnectionFailed, "connection refused")
	}
	return nil, errs.New(errs.KindUnsupported, "signed uploads disabled in tests")
}

func (m *memoryStorage) GetPublicURL(container, key string) string {
	return "https://project.supabase.co/storage/v1/object/public/" + container + "/" + key
}

func (m *memoryStorage) DeleteObject(ctx context.Context, container, key string) error {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, container+"/"+key)
	return nil
}

func (m *memoryStorage) ReassertPolicy(ctx context.Context, policy storage.AccessPolicy) error {
	m.calls.Add(1)
	return nil
}

// memoryUploads is an in-memory activity log.
type memoryUploads struct {
	mu      sync.Mutex
	entries []*models.UploadLog
}

func (m *memoryUploads) Create(ctx context.Context, entry *models.UploadLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = int64(len(m.entries) + 1)
	entry.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryUploads) CreateBatch(ctx context.Context, entries []*models.UploadLog) error {
	for _, entry := range entries {
		if err := m.Create(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryUploads) GetByUploadID(ctx context.Context, uploadID string) (*models.UploadLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entry := range m.entries {
		if entry.UploadID == uploadID {
			return entry, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memoryUploads) ListRecent(ctx context.Context, limit int) ([]*models.UploadLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]*models.UploadLog(nil), m.entries...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type testOptions struct {
	client           *memoryStorage
	noRemote         bool
	uploadsDir       string
	uploadMaxSize    int64
	allowedMimeTypes []string
	authEnabled      bool
	noActivityLog    bool
	rateLimit        int
}

type testApp struct {
	app     *application
	handler http.Handler
	client  *memoryStorage
	uploads *memoryUploads
}

func newTestApplication(t *testing.T, opts testOptions) *testApp {
	t.Helper()
	logger := zap.NewNop().Sugar()

	if opts.uploadsDir == "" {
		opts.uploadsDir = t.TempDir()
	}
	if opts.uploadMaxSize == 0 {
		opts.uploadMaxSize = 2 * 1024 * 1024
	}

	cfg := config{
		env:           "development",
		uploadMaxSize: opts.uploadMaxSize,
		auth: authConfig{
			enabled: opts.authEnabled,
			token:   tokenConfig{secret: testJWTSecret, audience: "authenticated"},
		},
		rateLimiter: ratelimiter.Config{RequestPerTimeForIP: opts.rateLimit, TimeFrame: time.Minute, Enabled: opts.rateLimit > 0},
		storage: storageConfig{
			provider:         providerSupabase,
			bucket:           storage.DefaultContainer,
			public:           true,
			maxObjectBytes:   storage.DefaultMaxObjectBytes,
			allowedMimeTypes: opts.allowedMimeTypes,
			signedURLTTL:     time.Minute,
			remoteTimeout:    5 * time.Second,
			uploadsDir:       opts.uploadsDir,
		},
	}

	var client storage.Client
	if !opts.noRemote {
		if opts.client == nil {
			opts.client = newMemoryStorage()
		}
		client = opts.client
	}

	uploader, provisioner, filesystem := newUploader(client, cfg.storage, logger)

	uploads := &memoryUploads{}
	appStore := store.Storage{}
	if !opts.noActivityLog {
		appStore.Uploads = uploads
	}

	app := &application{
		config:        cfg,
		store:         appStore,
		cacheStorage:  cache.NewRedisStorage(nil),
		logger:        logger,
		authenticator: auth.NewJWTAuthenticator(testJWTSecret, "authenticated", ""),
		rateLimiter:   ratelimiter.NewFixedWindowLimiter(opts.rateLimit, time.Minute),
		slackNotifier: notification.NewSlackNotifier("", "", "", "", false),
		storageClient: client,
		provisioner:   provisioner,
		uploader:      uploader,
		filesystem:    filesystem,
	}

	return &testApp{app: app, handler: app.mount(), client: opts.client, uploads: uploads}
}

func (ta *testApp) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ta.handler.ServeHTTP(rec, req)
	return rec
}

type formFile struct {
	name        string
	contentType string
	body        []byte
}

func multipartRequest(t *testing.T, file *formFile, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}

	if file != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="file"; filename="`+file.name+`"`)
		header.Set("Content-Type", file.contentType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(file.body)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/uploads", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func pngFile() *formFile {
	return &formFile{
		name:        "photo.png",
		contentType: "image/png",
		body:        append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0x42}, 4096)...),
	}
}

func decodeUpload(t *testing.T, rec *httptest.ResponseRecorder) uploadResponse {
	t.Helper()
	var response uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response), rec.Body.String())
	return response
}

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var out envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
