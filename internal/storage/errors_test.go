package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/aws/smithy-go"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"

	"godsendjoseph.dev/gaushala-api/internal/errs"
)

func TestMapS3Error(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.Kind
	}{
		{name: "access denied", err: &smithy.GenericAPIError{Code: "AccessDenied"}, want: errs.KindPermissionDenied},
		{name: "already owned", err: &smithy.GenericAPIError{Code: "BucketAlreadyOwnedByYou"}, want: errs.KindAlreadyExists},
		{name: "too large", err: &smithy.GenericAPIError{Code: "EntityTooLarge"}, want: errs.KindTooLarge},
		{name: "no bucket", err: fmt.Errorf("op: %w", &smithy.GenericAPIError{Code: "NoSuchBucket"}), want: errs.KindNotFound},
		{name: "deadline", err: fmt.Errorf("put: %w", context.DeadlineExceeded), want: errs.KindTimeout},
		{name: "dial", err: errors.New("dial tcp: connection refused"), want: errs.KindConnectionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapS3Error(tt.err, "op").Kind)
		})
	}
}

func TestMapMinioError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.Kind
	}{
		{name: "signature", err: miniogo.ErrorResponse{Code: "SignatureDoesNotMatch", StatusCode: http.StatusForbidden}, want: errs.KindPermissionDenied},
		{name: "exists", err: miniogo.ErrorResponse{Code: "BucketAlreadyExists", StatusCode: http.StatusConflict}, want: errs.KindAlreadyExists},
		{name: "status only", err: miniogo.ErrorResponse{Code: "Weird", StatusCode: http.StatusRequestEntityTooLarge}, want: errs.KindTooLarge},
		{name: "canceled", err: context.Canceled, want: errs.KindTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapMinioError(tt.err, "op").Kind)
		})
	}
}

func TestUpdateContainer_UnsupportedOnBucketStores(t *testing.T) {
	container := Container{Name: DefaultContainer, IsPublic: true}

	assert.True(t, errs.IsUnsupported((&S3Client{}).UpdateContainer(context.Background(), container)))
	assert.True(t, errs.IsUnsupported((&MinioClient{}).UpdateContainer(context.Background(), container)))
}
