package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned when a stored file does not exist.
var ErrObjectNotFound = errors.New("object not found")

// FileStore persists rendered exports and uploaded roster files.
type FileStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
