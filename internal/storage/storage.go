// Package storage defines the remote object-storage capability used by the upload
// chain and its three implementations: the Supabase storage REST API, any
// S3-compatible service (AWS, R2) and MinIO.
package storage

import (
	"context"
	"io"
	"slices"
	"time"
)

const (
	DefaultContainer      = "cow-images"
	DefaultMaxObjectBytes = 10 * 1024 * 1024
)

type Client interface {
	ListContainers(ctx context.Context) ([]Container, error)
	CreateContainer(ctx context.Context, container Container) error
	UpdateContainer(ctx context.Context, container Container) error
	// UploadObject writes body under key, overwriting an existing object.
	UploadObject(ctx context.Context, container, key string, body io.Reader, size int64, contentType string) (*UploadResult, error)
	CreateSignedUploadURL(ctx context.Context, container, key string, ttl time.Duration) (*SignedUpload, error)
	GetPublicURL(container, key string) string
	DeleteObject(ctx context.Context, container, key string) error
	// ReassertPolicy drops the policy if present and creates it again.
	ReassertPolicy(ctx context.Context, policy AccessPolicy) error
}

type UploadResult struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// SignedUpload is a pre-authorized write target. Headers must be sent with the PUT.
type SignedUpload struct {
	URL     string
	Key     string
	Headers map[string]string
}

// Container is a bucket and the settings the backend reports for it.
// A zero MaxObjectBytes means no limit.
type Container struct {
	Name             string   `json:"name"`
	IsPublic         bool     `json:"public"`
	MaxObjectBytes   int64    `json:"max_object_bytes"`
	AllowedMimeTypes []string `json:"allowed_mime_types,omitempty"`
}

// SameConfig reports whether c and other carry the same settings, ignoring
// allowed mime type order.
func (c Container) SameConfig(other Container) bool {
	if c.IsPublic != other.IsPublic || c.MaxObjectBytes != other.MaxObjectBytes {
		return false
	}
	if len(c.AllowedMimeTypes) != len(other.AllowedMimeTypes) {
		return false
	}
	left := slices.Clone(c.AllowedMimeTypes)
	right := slices.Clone(other.AllowedMimeTypes)
	slices.Sort(left)
	slices.Sort(right)
	return slices.Equal(left, right)
}

type Operation string

const (
	OperationRead   Operation = "read"
	OperationWrite  Operation = "write"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

type Predicate string

const (
	PredicatePublic        Predicate = "public"
	PredicateAuthenticated Predicate = "authenticated"
)

// AccessPolicy grants one operation on the objects of a container.
type AccessPolicy struct {
	Name      string
	Container string
	Operation Operation
	Predicate Predicate
}

// DefaultPolicies are asserted on every provisioning pass: public read plus
// authenticated insert, update and delete.
func DefaultPolicies(container string) []AccessPolicy {
	return []AccessPolicy{
		{Name: "Allow public read access", Container: container, Operation: OperationRead, Predicate: PredicatePublic},
		{Name: "Allow authenticated insert", Container: container, Operation: OperationWrite, Predicate: PredicateAuthenticated},
		{Name: "Allow authenticated update", Container: container, Operation: OperationUpdate, Predicate: PredicateAuthenticated},
		{Name: "Allow authenticated delete", Container: container, Operation: OperationDelete, Predicate: PredicateAuthenticated},
	}
}
