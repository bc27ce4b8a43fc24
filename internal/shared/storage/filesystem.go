package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const stagingDir = ".staging"

// FilesystemStore keeps each blob as a file under a root directory. Writes go
// through a staging file and a rename, so readers never see partial blobs.
// Several processes may share one root, e.g. a coordinator and its workers
// on a shared volume.
type FilesystemStore struct {
	root string
	fsys fs.FS
}

func NewFilesystemStore(root string) (*FilesystemStore, error) {
	if root == "" {
		return nil, errors.New("filesystem store root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, stagingDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store root: %w", err)
	}
	return &FilesystemStore{root: abs, fsys: os.DirFS(abs)}, nil
}

func (s *FilesystemStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	target := s.path(name)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	staged, err := os.CreateTemp(filepath.Join(s.root, stagingDir), "blob-*")
	if err != nil {
		return err
	}
	defer os.Remove(staged.Name())

	if _, err := staged.Write(data); err != nil {
		staged.Close()
		return err
	}
	if err := staged.Close(); err != nil {
		return err
	}
	return os.Rename(staged.Name(), target)
}

func (s *FilesystemStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return data, err
}

// Delete removes the blob and any directories it leaves empty.
func (s *FilesystemStore) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(s.path(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	s.pruneEmptyDirs(path.Dir(name))
	return nil
}

func (s *FilesystemStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Glob only below the deepest directory the prefix names.
	pattern := "**"
	if dir := path.Dir(prefix + "x"); dir != "." {
		if err := ValidateName(dir); err != nil {
			return nil, err
		}
		pattern = dir + "/**"
	}

	names := make([]string, 0)
	err := doublestar.GlobWalk(s.fsys, pattern, func(name string, d fs.DirEntry) error {
		if strings.HasPrefix(name, stagingDir+"/") || !strings.HasPrefix(name, prefix) {
			return nil
		}
		names = append(names, name)
		return nil
	}, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	slices.Sort(names)
	return names, nil
}

func (s *FilesystemStore) Close() error {
	return nil
}

func (s *FilesystemStore) path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

func (s *FilesystemStore) pruneEmptyDirs(dir string) {
	for dir != "." && dir != "/" {
		// os.Remove fails on non-empty directories, which ends the walk.
		if err := os.Remove(s.path(dir)); err != nil {
			return
		}
		dir = path.Dir(dir)
	}
}
