// Package gcs reads CSV sources from and writes export artifacts to Google
// Cloud Storage.
package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// uploadTimeout bounds a single object write.
const uploadTimeout = 2 * time.Minute

// Client is the StorageService backed by a Cloud Storage client.
type Client struct {
	client *storage.Client
}

// NewClient creates a storage client. With a non-empty emulatorHost
// (e.g. "localhost:4443") requests go to a fake-gcs-server without
// credentials; otherwise Application Default Credentials are used.
func NewClient(ctx context.Context, emulatorHost string) (*Client, error) {
	var opts []option.ClientOption
	if emulatorHost != "" {
		endpoint := emulatorHost
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "http://" + endpoint
		}
		opts = append(opts,
			option.WithEndpoint(strings.TrimSuffix(endpoint, "/")+"/storage/v1/"),
			option.WithoutAuthentication(),
		)
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewClient: create storage client: %w", err)
	}
	return &Client{client: client}, nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	return c.client.Close()
}

// Fetch downloads the file bytes from the given GCS URI.
func (c *Client) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseURI(uri, false)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}

	rc, err := c.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes: %w", err)
	}
	return data, nil
}

// Upload writes data to the given GCS URI.
func (c *Client) Upload(ctx context.Context, uri string, data []byte, contentType string) error {
	bucket, object, err := ParseURI(uri, false)
	if err != nil {
		return fmt.Errorf("Upload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := c.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("Upload: copy to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("Upload: finalize upload: %w", err)
	}
	return nil
}

// ListCSVObjects lists the .csv objects under a gs://bucket/prefix URI in
// the order the service returns them (lexicographic by name).
func (c *Client) ListCSVObjects(ctx context.Context, prefixURI string) ([]string, error) {
	bucket, prefix, err := ParseURI(prefixURI, true)
	if err != nil {
		return nil, fmt.Errorf("ListCSVObjects: %w", err)
	}

	var uris []string
	it := c.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListCSVObjects: iterate %s: %w", prefixURI, err)
		}
		if strings.HasSuffix(strings.ToLower(attrs.Name), ".csv") {
			uris = append(uris, Scheme+bucket+"/"+attrs.Name)
		}
	}
	return uris, nil
}
