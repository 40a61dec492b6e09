// Package storage persists screenshot artefacts (full-size PNG plus
// thumbnail) to a backing store and can retrieve or delete them again by
// path. The only implementation is a local filesystem store — see disk.go.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"
)

// ErrNotFound is returned by Read when the requested object does not exist.
var ErrNotFound = errors.New("storage: object not found")

// Store persists and retrieves screenshot artefacts by object path.
type Store interface {
	Write(ctx context.Context, objectPath string, content io.Reader) error
	Read(ctx context.Context, objectPath string) (io.ReadCloser, error)
	// Delete removes an object. A missing object is not an error: retention
	// sweeps must tolerate a file already having been removed out of band.
	Delete(ctx context.Context, objectPath string) error
}

// ObjectPath builds the canonical path for a full-size screenshot:
// {pageID}/{YYYY}/{MM}/{epochMs}_{tag}.png.
func ObjectPath(pageID string, capturedAt time.Time, tag string) string {
	return path.Join(pageID,
		fmt.Sprintf("%04d", capturedAt.Year()),
		fmt.Sprintf("%02d", capturedAt.Month()),
		fmt.Sprintf("%d_%s.png", capturedAt.UnixMilli(), tag),
	)
}

// ThumbnailPath derives the sibling thumbnail path for a full-size object
// path produced by ObjectPath.
func ThumbnailPath(objectPath string) string {
	ext := path.Ext(objectPath)
	return objectPath[:len(objectPath)-len(ext)] + "_thumb" + ext
}
