package storage

import (
	"context"
	"io"
)

// StoredObject describes one persisted evidence attachment.
type StoredObject struct {
	Key  string
	URL  string
	ETag string
}

// EvidenceStore is the object store behind dispute attachments. A nil
// store means evidence uploads are disabled.
type EvidenceStore interface {
	Put(ctx context.Context, key string, contentType string, content io.Reader) (*StoredObject, error)
	Remove(ctx context.Context, key string) error
	PublicURL(key string) string
}
