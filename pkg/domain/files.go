package domain

import (
	"context"
	"io"
)

// StoredFile describes bytes committed to file storage ahead of document creation.
type StoredFile struct {
	Key      string `json:"key"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

// FileStore commits uploaded bytes and can remove them when the owning
// document write fails.
type FileStore interface {
	Store(ctx context.Context, r io.Reader, filename, mimeType string) (StoredFile, error)
	Remove(ctx context.Context, key string) error
}
