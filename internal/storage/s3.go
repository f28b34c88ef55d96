package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"godsendjoseph.dev/gaushala-api/internal/errs"
)

type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string
	// AuthenticatedPrincipal is the IAM principal granted the authenticated policies.
	AuthenticatedPrincipal string
}

// S3Client talks to any S3-compatible service (AWS S3, Cloudflare R2, ...).
type S3Client struct {
	client                 *s3.Client
	presigner              *s3.PresignClient
	region                 string
	publicURL              string
	authenticatedPrincipal string
}

func NewS3Client(cfg S3Config) (*S3Client, error) {
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	awsCfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	return &S3Client{
		client:                 client,
		presigner:              s3.NewPresignClient(client),
		region:                 region,
		publicURL:              cfg.PublicURL,
		authenticatedPrincipal: cfg.AuthenticatedPrincipal,
	}, nil
}

func (c *S3Client) ListContainers(ctx context.Context) ([]Container, error) {
	out, err := c.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, mapS3Error(err, "failed to list buckets")
	}

	containers := make([]Container, 0, len(out.Buckets))
	for _, bucket := range out.Buckets {
		containers = append(containers, Container{Name: aws.ToString(bucket.Name)})
	}
	return containers, nil
}

func (c *S3Client) CreateContainer(ctx context.Context, container Container) error {
	input := &s3.CreateBucketInput{Bucket: aws.String(container.Name)}
	if c.region != "auto" && c.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.region),
		}
	}

	if _, err := c.client.CreateBucket(ctx, input); err != nil {
		return mapS3Error(err, fmt.Sprintf("failed to create bucket %q", container.Name))
	}
	return nil
}

// UpdateContainer reports Unsupported: S3 has no bucket-level public flag or
// object size limit. Public reads come from the bucket policy.
func (c *S3Client) UpdateContainer(ctx context.Context, container Container) error {
	return errs.New(errs.KindUnsupported, "s3 buckets have no mutable settings")
}

func (c *S3Client) UploadObject(ctx context.Context, container, key string, body io.Reader, size int64, contentType string) (*UploadResult, error) {
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(container),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
		CacheControl:  aws.String("max-age=3600"),
	})
	if err != nil {
		return nil, mapS3Error(err, "failed to upload object")
	}

	return &UploadResult{
		Key: key,
		URL: c.GetPublicURL(container, key),
	}, nil
}

func (c *S3Client) CreateSignedUploadURL(ctx context.Context, container, key string, ttl time.Duration) (*SignedUpload, error) {
	req, err := c.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return nil, mapS3Error(err, "failed to presign upload")
	}

	headers := make(map[string]string, len(req.SignedHeader))
	for name, values := range req.SignedHeader {
		if strings.EqualFold(name, "Host") || len(values) == 0 {
			continue
		}
		headers[name] = values[0]
	}

	return &SignedUpload{URL: req.URL, Key: key, Headers: headers}, nil
}

func (c *S3Client) GetPublicURL(container, key string) string {
	if c.publicURL != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(c.publicURL, "/"), container, escapeKey(key))
	}
	return fmt.Sprintf("https://pub-%s.r2.dev/%s", container, escapeKey(key))
}

func (c *S3Client) DeleteObject(ctx context.Context, container, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(container),
		Key:    aws.String(key),
	})
	if err != nil {
		return mapS3Error(err, "failed to delete object")
	}
	return nil
}

func (c *S3Client) ReassertPolicy(ctx context.Context, policy AccessPolicy) error {
	statement, err := statementFor(policy, c.authenticatedPrincipal)
	if err != nil {
		return err
	}

	var current string
	out, err := c.client.GetBucketPolicy(ctx, &s3.GetBucketPolicyInput{Bucket: aws.String(policy.Container)})
	if err != nil {
		var apiErr smithy.APIError
		if !errors.As(err, &apiErr) || apiErr.ErrorCode() != "NoSuchBucketPolicy" {
			return mapS3Error(err, "failed to read bucket policy")
		}
	} else {
		current = aws.ToString(out.Policy)
	}

	doc, err := reassertStatement(current, statement)
	if err != nil {
		return err
	}

	_, err = c.client.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: aws.String(policy.Container),
		Policy: aws.String(doc),
	})
	if err != nil {
		return mapS3Error(err, fmt.Sprintf("failed to put policy %q", policy.Name))
	}
	return nil
}

func mapS3Error(err error, msg string) *errs.Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.KindTimeout, msg, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket", "NoSuchKey", "NotFound":
			return errs.Wrap(errs.KindNotFound, msg, err)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "Forbidden":
			return errs.Wrap(errs.KindPermissionDenied, msg, err)
		case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
			return errs.Wrap(errs.KindAlreadyExists, msg, err)
		case "EntityTooLarge":
			return errs.Wrap(errs.KindTooLarge, msg, err)
		case "NotImplemented":
			return errs.Wrap(errs.KindUnsupported, msg, err)
		case "RequestTimeout", "SlowDown":
			return errs.Wrap(errs.KindTimeout, msg, err)
		case "InvalidBucketName", "KeyTooLongError", "InvalidArgument":
			return errs.Wrap(errs.KindInvalidInput, msg, err)
		}
	}

	var statusErr interface{ HTTPStatusCode() int }
	if errors.As(err, &statusErr) {
		if kind := errs.FromStatus(statusErr.HTTPStatusCode()); kind != errs.KindUnknown {
			return errs.Wrap(kind, msg, err)
		}
	}

	return errs.Wrap(errs.KindConnectionFailed, msg, err)
}
