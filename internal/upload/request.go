// Package upload stores cow photos through an ordered chain of strategies:
// a direct upload to the remote object store, an upload through a signed URL,
// and finally a write to the local uploads directory.
package upload

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyBody  = errors.New("file is empty")
	ErrUnsafePath = errors.New("path must be relative and must not contain traversal segments")
)

// Request is one file to store. Path is generated when empty.
type Request struct {
	Body           []byte
	FileName       string
	ContentType    string
	Path           string
	FilesystemOnly bool
}

func (r Request) Validate() error {
	if len(r.Body) == 0 {
		return ErrEmptyBody
	}
	if r.Path != "" && !IsSafePath(r.Path) {
		return fmt.Errorf("%w: %q", ErrUnsafePath, r.Path)
	}
	return nil
}

// IsSafePath reports whether p is a relative object key without "." or ".."
// segments, backslashes or empty segments.
func IsSafePath(p string) bool {
	if p == "" || strings.HasPrefix(p, "/") || strings.ContainsAny(p, "\\\x00") {
		return false
	}
	for _, segment := range strings.Split(p, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return false
		}
	}
	return true
}

// GeneratePath returns cow-<unix millis>-<uuid>.<ext>.
func GeneratePath(fileName, contentType string, now time.Time) string {
	return fmt.Sprintf("cow-%d-%s.%s", now.UnixMilli(), uuid.NewString(), Extension(fileName, contentType))
}

// Extension picks the lower-cased extension of fileName, falling back to the
// first registered extension of contentType and then "bin".
func Extension(fileName, contentType string) string {
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), "."); ext != "" && IsSafePath(ext) {
		return ext
	}
	if contentType != "" {
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			return strings.TrimPrefix(exts[0], ".")
		}
	}
	return "bin"
}
