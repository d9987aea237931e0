// Package storage contains object store abstractions for S3-compatible backends.
// The store issues the identifier of every uploaded object and the public URL it
// can be fetched from; callers never choose keys themselves.
package storage

import (
	"context"
	"io"
	"strings"

	"github.com/google/uuid"
)

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1.
// Prefix groups objects (e.g. "originals"), Ext is appended to the generated key.
type PutObjectOptions struct {
	Prefix      string
	Ext         string
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// Object describes an uploaded object.
type Object struct {
	// ID is the stable identifier issued for the object.
	ID          string
	Key         string
	URL         string
	Size        int64
	ETag        string
	ContentType string
}

// Storage is an S3-compatible object store client.
// Implementations are safe for concurrent use.
type Storage interface {
	// Put uploads the reader's content under a freshly issued identifier.
	Put(ctx context.Context, r io.Reader, opt PutObjectOptions) (Object, error)
	// Delete removes an object by key.
	Delete(ctx context.Context, key string) error
}

// newObjectKey issues a random identifier and the object key derived from it.
// Identical content uploaded twice always receives two distinct identifiers.
func newObjectKey(prefix, ext string) (id, key string) {
	id = uuid.NewString()
	key = id + ext
	if p := strings.Trim(prefix, "/"); p != "" {
		key = p + "/" + key
	}
	return id, key
}

func joinURL(base string, parts ...string) string {
	out := strings.TrimRight(base, "/")
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			out += "/" + p
		}
	}
	return out
}
