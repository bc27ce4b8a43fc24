// Package storage provides the blob stores that hold job input, intermediate
// map and shuffle output and final results. Objects are addressed by
// slash-separated names such as "jobs/<id>/map/map-00000".
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nemanja-m/wordfreq/internal/shared/config"
)

// ErrNotFound is returned by Get when no object has the requested name.
var ErrNotFound = errors.New("object not found")

// ErrInvalidName is returned for names outside the accepted alphabet.
var ErrInvalidName = errors.New("invalid object name")

// BlobStore stores named byte blobs. Delete of a missing object succeeds.
type BlobStore interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
	// List returns the names starting with prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// New opens the store described by cfg.
func New(cfg config.StorageConfig) (BlobStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "filesystem":
		return NewFilesystemStore(cfg.Path)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// ValidateName checks that name is a relative slash-separated path made of
// letters, digits, '-', '_' and '.', with no empty, "." or ".." segments and
// no segment starting with '.'.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	for segment := range strings.SplitSeq(name, "/") {
		if segment == "" || strings.HasPrefix(segment, ".") {
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
		for _, r := range segment {
			if !isNameRune(r) {
				return fmt.Errorf("%w: %q", ErrInvalidName, name)
			}
		}
	}
	return nil
}

func isNameRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' ||
		r == '-' || r == '_' || r == '.'
}
