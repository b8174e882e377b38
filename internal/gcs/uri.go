package gcs

import (
	"fmt"
	"path"
	"strings"
)

// Scheme is the URI prefix for Cloud Storage locations.
const Scheme = "gs://"

// IsURI reports whether s names a Cloud Storage location.
func IsURI(s string) bool {
	return strings.HasPrefix(s, Scheme)
}

// ParseURI splits "gs://bucket/path/to/object" into bucket and object name.
// The object part may be empty only when allowEmptyObject is set (prefixes).
func ParseURI(uri string, allowEmptyObject bool) (bucket, object string, err error) {
	if !IsURI(uri) {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}

	trimmed := strings.TrimPrefix(uri, Scheme)
	parts := strings.SplitN(trimmed, "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no bucket): %s", uri)
	}
	bucket = parts[0]
	if len(parts) == 2 {
		object = parts[1]
	}
	if object == "" && !allowEmptyObject {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return bucket, object, nil
}

// FilenameFromURI extracts the filename from a GCS URI.
// e.g., "gs://bucket/folder/file.csv" → "file.csv"
func FilenameFromURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, Scheme)

	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

// JoinURI appends an object name to a gs:// directory-like URI.
func JoinURI(dir, name string) string {
	return strings.TrimSuffix(dir, "/") + "/" + strings.TrimPrefix(name, "/")
}
