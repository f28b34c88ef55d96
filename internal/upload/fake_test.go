package upload

import (
	"context"
	"io"
	"io/fs"
	"sync"
	"sync/atomic"
	"time"

	"godsendjoseph.dev/gaushala-api/internal/errs"
	"godsendjoseph.dev/gaushala-api/internal/storage"
)

// fakeClient is an in-memory storage.Client that counts every call.
type fakeClient struct {
	mu         sync.Mutex
	containers map[string]storage.Container
	objects    map[string][]byte
	policies   map[string]storage.AccessPolicy

	calls atomic.Int64

	listErr   error
	createErr error
	uploadErr error
	signErr   error
	policyErr error
	signedURL string
	blockCtx  bool
	// nameOnly mimics backends that list bucket names without settings.
	nameOnly bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		containers: map[string]storage.Container{},
		objects:    map[string][]byte{},
		policies:   map[string]storage.AccessPolicy{},
	}
}

func (f *fakeClient) ListContainers(ctx context.Context) ([]storage.Container, error) {
	f.calls.Add(1)
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]storage.Container, 0, len(f.containers))
	for _, c := range f.containers {
		if f.nameOnly {
			c = storage.Container{Name: c.Name}
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeClient) CreateContainer(ctx context.Context, container storage.Container) error {
	f.calls.Add(1)
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.containers[container.Name]; ok {
		return errs.New(errs.KindAlreadyExists, "bucket exists")
	}
	f.containers[container.Name] = container
	return nil
}

func (f *fakeClient) UpdateContainer(ctx context.Context, container storage.Container) error {
	f.calls.Add(1)
	if f.nameOnly {
		return errs.New(errs.KindUnsupported, "buckets have no mutable settings")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.containers[container.Name] = container
	return nil
}

func (f *fakeClient) UploadObject(ctx context.Context, container, key string, body io.Reader, size int64, contentType string) (*storage.UploadResult, error) {
	f.calls.Add(1)
	if f.blockCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.objects[container+"/"+key] = data
	f.mu.Unlock()
	return &storage.UploadResult{Key: key, URL: f.GetPublicURL(container, key)}, nil
}

func (f *fakeClient) CreateSignedUploadURL(ctx context.Context, container, key string, ttl time.Duration) (*storage.SignedUpload, error) {
	f.calls.Add(1)
	if f.blockCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.signErr != nil {
		return nil, f.signErr
	}
	return &storage.SignedUpload{URL: f.signedURL + "/" + key, Key: key, Headers: map[string]string{"x-upsert": "true"}}, nil
}

func (f *fakeClient) GetPublicURL(container, key string) string {
	return "https://storage.example.com/object/public/" + container + "/" + key
}

func (f *fakeClient) DeleteObject(ctx context.Context, container, key string) error {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, container+"/"+key)
	return nil
}

func (f *fakeClient) ReassertPolicy(ctx context.Context, policy storage.AccessPolicy) error {
	f.calls.Add(1)
	if f.policyErr != nil {
		return f.policyErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.policies[policy.Name] = policy
	return nil
}

// failingFS fails every write.
type failingFS struct {
	OSFilesystem
}

func (failingFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return &fs.PathError{Op: "write", Path: name, Err: fs.ErrPermission}
}
