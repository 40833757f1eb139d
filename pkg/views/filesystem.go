package views

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileSystem is the storage a Renderer reads templates from. Paths are
// absolute and use the host separator.
type FileSystem interface {
	// ReadFile returns the contents of a template file.
	ReadFile(ctx context.Context, name string) ([]byte, error)

	// Exists reports whether name is an existing file or directory.
	Exists(ctx context.Context, name string) (bool, error)

	// IsFile reports whether name is an existing regular file.
	IsFile(ctx context.Context, name string) (bool, error)

	// ListFiles returns every file below dir, recursively, in lexical order.
	ListFiles(ctx context.Context, dir string) ([]string, error)
}

// OSFileSystem reads templates straight from disk.
type OSFileSystem struct{}

func (OSFileSystem) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(name)
}

func (OSFileSystem) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, err := os.Stat(name); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (OSFileSystem) IsFile(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	info, err := os.Stat(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// ListFiles walks dir. Hidden files and directories are skipped.
func (OSFileSystem) ListFiles(ctx context.Context, dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		// skip hidden files and directories.
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
