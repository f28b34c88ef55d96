package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"godsendjoseph.dev/gaushala-api/internal/errs"
)

type SupabaseConfig struct {
	// URL is the project URL, e.g. https://abcd.supabase.co
	URL        string
	ServiceKey string
	Timeout    time.Duration
}

// SupabaseClient implements Client against the Supabase storage REST API.
// Policies are asserted as SQL through the configured SQLExecutor.
type SupabaseClient struct {
	http    *resty.Client
	baseURL string
	sql     SQLExecutor
}

type supabaseBucket struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Public           bool     `json:"public"`
	FileSizeLimit    *int64   `json:"file_size_limit"`
	AllowedMimeTypes []string `json:"allowed_mime_types"`
}

type supabaseError struct {
	StatusCode string `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

type signedUploadResponse struct {
	URL string `json:"url"`
}

// NewSupabaseClient builds a client. A nil executor asserts policies through
// the execute_sql RPC function of the project's REST API.
func NewSupabaseClient(cfg SupabaseConfig, executor SQLExecutor) *SupabaseClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	baseURL := strings.TrimSuffix(cfg.URL, "/")
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("apikey", cfg.ServiceKey).
		SetAuthToken(cfg.ServiceKey).
		SetTimeout(timeout)

	if executor == nil {
		executor = &rpcExecutor{http: client}
	}

	return &SupabaseClient{http: client, baseURL: baseURL, sql: executor}
}

func (c *SupabaseClient) ListContainers(ctx context.Context) ([]Container, error) {
	var buckets []supabaseBucket
	resp, err := c.http.R().SetContext(ctx).SetResult(&buckets).Get("/storage/v1/bucket")
	if err := checkResponse(resp, err, "failed to list buckets"); err != nil {
		return nil, err
	}

	containers := make([]Container, 0, len(buckets))
	for _, bucket := range buckets {
		container := Container{
			Name:             bucket.Name,
			IsPublic:         bucket.Public,
			AllowedMimeTypes: bucket.AllowedMimeTypes,
		}
		if bucket.FileSizeLimit != nil {
			container.MaxObjectBytes = *bucket.FileSizeLimit
		}
		containers = append(containers, container)
	}
	return containers, nil
}

func (c *SupabaseClient) CreateContainer(ctx context.Context, container Container) error {
	resp, err := c.http.R().SetContext(ctx).SetBody(bucketBody(container)).Post("/storage/v1/bucket")
	return checkResponse(resp, err, fmt.Sprintf("failed to create bucket %q", container.Name))
}

func (c *SupabaseClient) UpdateContainer(ctx context.Context, container Container) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(bucketBody(container)).
		Put("/storage/v1/bucket/" + escapeKey(container.Name))
	return checkResponse(resp, err, fmt.Sprintf("failed to update bucket %q", container.Name))
}

func (c *SupabaseClient) UploadObject(ctx context.Context, container, key string, body io.Reader, size int64, contentType string) (*UploadResult, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("Cache-Control", "max-age=3600").
		SetHeader("x-upsert", "true").
		SetContentLength(true).
		SetBody(body).
		Post(c.objectPath(container, key))
	if err := checkResponse(resp, err, "failed to upload object"); err != nil {
		return nil, err
	}

	return &UploadResult{Key: key, URL: c.GetPublicURL(container, key)}, nil
}

func (c *SupabaseClient) CreateSignedUploadURL(ctx context.Context, container, key string, ttl time.Duration) (*SignedUpload, error) {
	// The platform fixes the lifetime of signed upload URLs, so ttl is not sent.
	var out signedUploadResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("x-upsert", "true").
		SetResult(&out).
		Post("/storage/v1/object/upload/sign/" + escapeKey(container) + "/" + escapeKey(key))
	if err := checkResponse(resp, err, "failed to create signed upload url"); err != nil {
		return nil, err
	}
	if out.URL == "" {
		return nil, errs.New(errs.KindInvalidInput, "signed upload response carried no url")
	}

	return &SignedUpload{
		URL:     c.baseURL + "/storage/v1" + out.URL,
		Key:     key,
		Headers: map[string]string{"x-upsert": "true"},
	}, nil
}

func (c *SupabaseClient) GetPublicURL(container, key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, escapeKey(container), escapeKey(key))
}

func (c *SupabaseClient) DeleteObject(ctx context.Context, container, key string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string][]string{"prefixes": {key}}).
		Delete("/storage/v1/object/" + escapeKey(container))
	return checkResponse(resp, err, "failed to delete object")
}

func (c *SupabaseClient) ReassertPolicy(ctx context.Context, policy AccessPolicy) error {
	statements, err := PolicyStatements(policy)
	if err != nil {
		return err
	}
	return c.sql.ExecSQL(ctx, statements...)
}

func (c *SupabaseClient) objectPath(container, key string) string {
	return "/storage/v1/object/" + escapeKey(container) + "/" + escapeKey(key)
}

func bucketBody(container Container) supabaseBucket {
	body := supabaseBucket{
		ID:               container.Name,
		Name:             container.Name,
		Public:           container.IsPublic,
		AllowedMimeTypes: container.AllowedMimeTypes,
	}
	if container.MaxObjectBytes > 0 {
		limit := container.MaxObjectBytes
		body.FileSizeLimit = &limit
	}
	return body
}

// checkResponse maps a transport error or a non-2xx reply to *errs.Error.
// The storage API sometimes reports the real status in the body.
func checkResponse(resp *resty.Response, err error, msg string) error {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return errs.Wrap(errs.KindTimeout, msg, err)
		}
		return errs.Wrap(errs.KindConnectionFailed, msg, err)
	}
	if resp.IsSuccess() {
		return nil
	}

	status := resp.StatusCode()
	detail := strings.TrimSpace(resp.String())

	var body supabaseError
	if jsonErr := json.Unmarshal(resp.Body(), &body); jsonErr == nil {
		if code, convErr := strconv.Atoi(body.StatusCode); convErr == nil {
			status = code
		}
		if body.Message != "" {
			detail = body.Message
		}
	}

	kind := errs.FromStatus(status)
	if kind == errs.KindUnknown {
		kind = errs.KindConnectionFailed
	}
	return errs.Wrap(kind, msg, fmt.Errorf("%s: %s", resp.Status(), detail))
}
