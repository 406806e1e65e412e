package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Compile-time check that FileSystem implements Storage.
var _ Storage = (*FileSystem)(nil)

// FileSystem implements Storage using the local filesystem.
// Objects are stored at <basePath>/<key>.
type FileSystem struct {
	basePath string
	baseURL  string
}

// NewFileSystem creates a new FileSystem storage rooted at basePath whose
// objects are served under <baseURL>/media/.
func NewFileSystem(basePath, baseURL string) *FileSystem {
	return &FileSystem{basePath: basePath, baseURL: strings.TrimRight(baseURL, "/")}
}

// objectPath maps a key to a path below basePath, rejecting traversal.
func (fs *FileSystem) objectPath(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("%q: %w", key, ErrInvalidKey)
	}
	return filepath.Join(fs.basePath, filepath.FromSlash(clean)), nil
}

// Put writes data to disk using atomic write (temp file + rename).
func (fs *FileSystem) Put(ctx context.Context, key string, data io.Reader) (int64, error) {
	dst, err := fs.objectPath(key)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("creating directory %s: %w", dir, err)
	}

	// Write to a temp file in the same directory for atomic rename.
	tmp, err := os.CreateTemp(dir, "upload-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	// Clean up the temp file on any error path.
	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	n, err := io.Copy(tmp, data)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("writing data: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing temp file: %w", err)
	}

	// A caller that gave up while we were copying must not see the object appear.
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		return 0, fmt.Errorf("renaming temp file to %s: %w", dst, err)
	}

	// Rename succeeded; prevent deferred cleanup from removing the final file.
	tmpPath = ""

	return n, nil
}

// Get opens the stored file.
func (fs *FileSystem) Get(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := fs.objectPath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("opening file %s: %w", p, err)
	}
	if info, err := f.Stat(); err != nil || info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return f, nil
}

// Delete removes the file. It is idempotent.
func (fs *FileSystem) Delete(_ context.Context, key string) error {
	p, err := fs.objectPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing file %s: %w", p, err)
	}
	return nil
}

// Exists checks whether the file exists on disk.
func (fs *FileSystem) Exists(_ context.Context, key string) (bool, error) {
	p, err := fs.objectPath(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("checking file %s: %w", p, err)
}

func (fs *FileSystem) URL(key string) string {
	return fs.baseURL + "/media/" + key
}
