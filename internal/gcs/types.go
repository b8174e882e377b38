package gcs

import (
	"context"
)

// StorageService provides an interface for cloud storage operations.
// This interface enables mocking and testing of storage functionality.
type StorageService interface {
	// Fetch downloads the object bytes for a gs://bucket/object URI.
	Fetch(ctx context.Context, uri string) ([]byte, error)

	// Upload writes data to a gs://bucket/object URI, replacing any existing object.
	Upload(ctx context.Context, uri string, data []byte, contentType string) error

	// ListCSVObjects returns the gs:// URIs of every .csv object under a gs://bucket/prefix URI.
	ListCSVObjects(ctx context.Context, prefixURI string) ([]string, error)
}
