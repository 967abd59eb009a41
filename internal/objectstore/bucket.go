// Package objectstore keeps binary objects in a directory-backed bucket.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrNotFound is returned when an object does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidPath is returned for empty, absolute or escaping object names.
	ErrInvalidPath = errors.New("invalid object path")
)

// Attrs describes a stored object.
type Attrs struct {
	Bucket      string
	Name        string
	Size        int64
	ContentType string
}

// Bucket stores objects under root, addressed by slash-separated names.
type Bucket struct {
	name    string
	root    string
	scratch string
}

// New opens (creating if needed) a bucket rooted at root. Downloads land in scratchDir,
// or in the system temp dir when scratchDir is empty.
func New(name, root, scratchDir string) (*Bucket, error) {
	if scratchDir == "" {
		scratchDir = filepath.Join(os.TempDir(), "friendlychat-scratch")
	}
	for _, dir := range []string{root, scratchDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	return &Bucket{name: name, root: root, scratch: scratchDir}, nil
}

// Name returns the bucket name.
func (b *Bucket) Name() string {
	return b.name
}

// CleanName normalizes an object name and rejects names that escape the bucket.
func CleanName(name string) (string, error) {
	if name == "" || strings.HasPrefix(name, "/") {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean(name)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}

func (b *Bucket) localPath(name string) (string, error) {
	cleaned, err := CleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.root, filepath.FromSlash(cleaned)), nil
}

// Put writes r to name, replacing any previous bytes. The write goes to a temp file first
// and is renamed into place, so readers never observe a partial object.
func (b *Bucket) Put(ctx context.Context, name string, r io.Reader) (Attrs, error) {
	if err := ctx.Err(); err != nil {
		return Attrs{}, err
	}
	final, err := b.localPath(name)
	if err != nil {
		return Attrs{}, err
	}
	dir := filepath.Dir(final)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Attrs{}, fmt.Errorf("create object dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return Attrs{}, fmt.Errorf("create temp object: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		_ = os.Remove(tmpName) // no-op once renamed
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return Attrs{}, fmt.Errorf("write object: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return Attrs{}, fmt.Errorf("sync object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Attrs{}, fmt.Errorf("close object: %w", err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		return Attrs{}, fmt.Errorf("rename object: %w", err)
	}

	return b.Stat(ctx, name)
}

// Stat returns the attributes of name.
func (b *Bucket) Stat(_ context.Context, name string) (Attrs, error) {
	local, err := b.localPath(name)
	if err != nil {
		return Attrs{}, err
	}
	info, err := os.Stat(local)
	if err != nil {
		if os.IsNotExist(err) {
			return Attrs{}, ErrNotFound
		}
		return Attrs{}, fmt.Errorf("stat object: %w", err)
	}
	if info.IsDir() {
		return Attrs{}, ErrNotFound
	}

	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectFile(local); err == nil {
		contentType = mt.String()
	}

	cleaned, _ := CleanName(name)
	return Attrs{
		Bucket:      b.name,
		Name:        cleaned,
		Size:        info.Size(),
		ContentType: contentType,
	}, nil
}

// Open returns a reader for name. The caller closes it.
func (b *Bucket) Open(_ context.Context, name string) (*os.File, error) {
	local, err := b.localPath(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(local)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open object: %w", err)
	}
	return f, nil
}

// ReadObject returns the full contents of name.
func (b *Bucket) ReadObject(ctx context.Context, name string) ([]byte, error) {
	f, err := b.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Download copies name into a fresh scratch directory and returns the local path.
// The local file keeps the object's base name. Scratch files are left for the caller.
func (b *Bucket) Download(ctx context.Context, name string) (string, error) {
	src, err := b.Open(ctx, name)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dir, err := os.MkdirTemp(b.scratch, "object-")
	if err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	local := filepath.Join(dir, path.Base(name))

	dst, err := os.Create(local)
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("copy object: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close scratch file: %w", err)
	}
	return local, nil
}

// Upload stores the local file at name, overwriting the previous bytes.
func (b *Bucket) Upload(ctx context.Context, localPath, name string) (Attrs, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return Attrs{}, fmt.Errorf("open local file: %w", err)
	}
	defer f.Close()
	return b.Put(ctx, name, f)
}

// Delete removes name.
func (b *Bucket) Delete(_ context.Context, name string) error {
	local, err := b.localPath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(local); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}
