package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	DefaultUploadsDir = "public/uploads"
	UploadsURLPrefix  = "/uploads"
)

// Filesystem is the slice of the local disk the fallback needs.
type Filesystem interface {
	Stat(name string) (fs.FileInfo, error)
	MkdirAll(path string, perm fs.FileMode) error
	WriteFile(name string, data []byte, perm fs.FileMode) error
	ReadFile(name string) ([]byte, error)
	Remove(name string) error
}

type OSFilesystem struct{}

func (OSFilesystem) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }
func (OSFilesystem) MkdirAll(path string, perm fs.FileMode) error { return os.MkdirAll(path, perm) }
func (OSFilesystem) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }
func (OSFilesystem) Remove(name string) error { return os.Remove(name) }
func (OSFilesystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(name, data, perm)
}

// FilesystemStrategy is the last resort. It ignores the requested path and
// always writes a freshly named file, so concurrent fallbacks never collide.
type FilesystemStrategy struct {
	fs  Filesystem
	dir string
}

func NewFilesystemStrategy(fsys Filesystem, dir string) *FilesystemStrategy {
	if fsys == nil {
		fsys = OSFilesystem{}
	}
	if dir == "" {
		dir = DefaultUploadsDir
	}
	return &FilesystemStrategy{fs: fsys, dir: dir}
}

func (s *FilesystemStrategy) Kind() StrategyKind { return StrategyFilesystem }

func (s *FilesystemStrategy) Dir() string { return s.dir }

func (s *FilesystemStrategy) Attempt(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.EnsureDir(); err != nil {
		return "", err
	}

	name := fmt.Sprintf("cow-%s.%s", uuid.NewString(), Extension(req.FileName, req.ContentType))
	if err := s.fs.WriteFile(filepath.Join(s.dir, name), req.Body, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}

	return path.Join(UploadsURLPrefix, name), nil
}

// EnsureDir creates the uploads directory if it is missing.
func (s *FilesystemStrategy) EnsureDir() error {
	info, err := s.fs.Stat(s.dir)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("uploads path %s is not a directory", s.dir)
	case err == nil:
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("stat uploads dir: %w", err)
	}

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create uploads dir: %w", err)
	}
	return nil
}

// SelfTest writes a probe file, reads it back and removes it.
func (s *FilesystemStrategy) SelfTest(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.EnsureDir(); err != nil {
		return err
	}

	probe := filepath.Join(s.dir, "selftest-"+uuid.NewString()+".txt")
	content := []byte("storage self test")
	if err := s.fs.WriteFile(probe, content, 0o644); err != nil {
		return fmt.Errorf("write probe: %w", err)
	}
	defer s.fs.Remove(probe)

	got, err := s.fs.ReadFile(probe)
	if err != nil {
		return fmt.Errorf("read probe: %w", err)
	}
	if !bytes.Equal(got, content) {
		return errors.New("probe content mismatch")
	}
	return nil
}
