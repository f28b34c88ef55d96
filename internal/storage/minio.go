package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"godsendjoseph.dev/gaushala-api/internal/errs"
)

type MinioConfig struct {
	Endpoint               string
	AccessKey              string
	SecretKey              string
	UseSSL                 bool
	Region                 string
	PublicURL              string
	AuthenticatedPrincipal string
}

// MinioClient is safe for concurrent use by multiple goroutines.
type MinioClient struct {
	client                 *miniogo.Client
	region                 string
	publicURL              string
	authenticatedPrincipal string
}

func NewMinioClient(cfg MinioConfig) (*MinioClient, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errs.Wrap(errs.KindConnectionFailed, "failed to create minio client", err)
	}

	publicURL := strings.TrimSuffix(cfg.PublicURL, "/")
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s", scheme, cfg.Endpoint)
	}

	return &MinioClient{
		client:                 client,
		region:                 cfg.Region,
		publicURL:              publicURL,
		authenticatedPrincipal: cfg.AuthenticatedPrincipal,
	}, nil
}

func (c *MinioClient) ListContainers(ctx context.Context) ([]Container, error) {
	raw, err := c.client.ListBuckets(ctx)
	if err != nil {
		return nil, mapMinioError(err, "failed to list buckets")
	}

	containers := make([]Container, len(raw))
	for i, bucket := range raw {
		containers[i] = Container{Name: bucket.Name}
	}
	return containers, nil
}

func (c *MinioClient) CreateContainer(ctx context.Context, container Container) error {
	err := c.client.MakeBucket(ctx, container.Name, miniogo.MakeBucketOptions{Region: c.region})
	if err != nil {
		return mapMinioError(err, fmt.Sprintf("failed to create bucket %q", container.Name))
	}
	return nil
}

// UpdateContainer reports Unsupported: MinIO buckets carry no public flag or
// size limit, so there is nothing to converge.
func (c *MinioClient) UpdateContainer(ctx context.Context, container Container) error {
	return errs.New(errs.KindUnsupported, "minio buckets have no mutable settings")
}

func (c *MinioClient) UploadObject(ctx context.Context, container, key string, body io.Reader, size int64, contentType string) (*UploadResult, error) {
	_, err := c.client.PutObject(ctx, container, key, body, size, miniogo.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "max-age=3600",
	})
	if err != nil {
		return nil, mapMinioError(err, "failed to upload object")
	}

	return &UploadResult{Key: key, URL: c.GetPublicURL(container, key)}, nil
}

func (c *MinioClient) CreateSignedUploadURL(ctx context.Context, container, key string, ttl time.Duration) (*SignedUpload, error) {
	u, err := c.client.PresignedPutObject(ctx, container, key, ttl)
	if err != nil {
		return nil, mapMinioError(err, "failed to presign upload")
	}
	return &SignedUpload{URL: u.String(), Key: key}, nil
}

func (c *MinioClient) GetPublicURL(container, key string) string {
	return fmt.Sprintf("%s/%s/%s", c.publicURL, container, escapeKey(key))
}

func (c *MinioClient) DeleteObject(ctx context.Context, container, key string) error {
	if err := c.client.RemoveObject(ctx, container, key, miniogo.RemoveObjectOptions{}); err != nil {
		return mapMinioError(err, "failed to delete object")
	}
	return nil
}

func (c *MinioClient) ReassertPolicy(ctx context.Context, policy AccessPolicy) error {
	statement, err := statementFor(policy, c.authenticatedPrincipal)
	if err != nil {
		return err
	}

	current, err := c.client.GetBucketPolicy(ctx, policy.Container)
	if err != nil && miniogo.ToErrorResponse(err).Code != "NoSuchBucketPolicy" {
		return mapMinioError(err, "failed to read bucket policy")
	}

	doc, err := reassertStatement(current, statement)
	if err != nil {
		return err
	}

	if err := c.client.SetBucketPolicy(ctx, policy.Container, doc); err != nil {
		return mapMinioError(err, fmt.Sprintf("failed to set policy %q", policy.Name))
	}
	return nil
}

func mapMinioError(err error, msg string) *errs.Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.KindTimeout, msg, err)
	}

	var resp miniogo.ErrorResponse
	if errors.As(err, &resp) {
		switch resp.Code {
		case "NoSuchBucket", "NoSuchKey":
			return errs.Wrap(errs.KindNotFound, msg, err)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return errs.Wrap(errs.KindPermissionDenied, msg, err)
		case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
			return errs.Wrap(errs.KindAlreadyExists, msg, err)
		case "EntityTooLarge":
			return errs.Wrap(errs.KindTooLarge, msg, err)
		case "NotImplemented":
			return errs.Wrap(errs.KindUnsupported, msg, err)
		case "InvalidBucketName", "InvalidObjectName", "KeyTooLongError":
			return errs.Wrap(errs.KindInvalidInput, msg, err)
		case "RequestTimeout", "SlowDown":
			return errs.Wrap(errs.KindTimeout, msg, err)
		}

		if resp.StatusCode != 0 && resp.StatusCode != http.StatusOK {
			if kind := errs.FromStatus(resp.StatusCode); kind != errs.KindUnknown {
				return errs.Wrap(kind, msg, err)
			}
		}
	}

	return errs.Wrap(errs.KindConnectionFailed, msg, err)
}
