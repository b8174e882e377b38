package handlers

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dvloznov/smart-budget/internal/export"
	"github.com/dvloznov/smart-budget/internal/gcs"
)

// ErrPathNotServed is returned for client paths outside the served roots.
var ErrPathNotServed = errors.New("path is outside the served directories")

// PathPolicy confines locations named in request bodies. Local paths must
// be relative and stay inside their root after cleaning. gs:// URIs must
// name Bucket; with no Bucket configured every gs:// URI is rejected.
type PathPolicy struct {
	DataDir   string // root for CSV sources
	OutputDir string // root for exports and run outputs
	Bucket    string
}

// Source resolves a client path to a CSV source under DataDir.
func (p PathPolicy) Source(path string) (string, error) {
	return p.resolve(p.DataDir, path)
}

// Output resolves a client path to an export location under OutputDir.
func (p PathPolicy) Output(path string) (string, error) {
	return p.resolve(p.OutputDir, path)
}

func (p PathPolicy) resolve(root, path string) (string, error) {
	if gcs.IsURI(path) {
		bucket, _, err := gcs.ParseURI(path, false)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrPathNotServed, err)
		}
		if p.Bucket == "" || bucket != p.Bucket {
			return "", fmt.Errorf("%w: bucket %s", ErrPathNotServed, bucket)
		}
		return path, nil
	}
	if !filepath.IsLocal(path) {
		return "", fmt.Errorf("%w: %s", ErrPathNotServed, path)
	}
	return export.Join(root, path), nil
}
