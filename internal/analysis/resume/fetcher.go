// Package resume loads resume files from the object store.
package resume

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/cuongbtq/resume-analyzer/internal/analysis/domain"
	"github.com/cuongbtq/resume-analyzer/shared/objectstore"
)

const (
	MimeTypePDF  = "application/pdf"
	MimeTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// ObjectGetter downloads one object by key
type ObjectGetter interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Fetcher resolves candidate resume references to file bytes
type Fetcher struct {
	store  ObjectGetter
	bucket string
}

// NewFetcher creates a Fetcher. bucket is stripped from references that include it.
func NewFetcher(store ObjectGetter, bucket string) *Fetcher {
	return &Fetcher{store: store, bucket: bucket}
}

// Fetch returns the resume bytes. Missing objects wrap domain.ErrObjectNotFound.
func (f *Fetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	objectKey, err := f.ObjectKey(ref)
	if err != nil {
		return nil, err
	}

	data, err := f.store.Get(ctx, objectKey)
	if err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			return nil, fmt.Errorf("resume %q: %w", objectKey, domain.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("resume %q: %w", objectKey, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("resume %q is empty", objectKey)
	}

	return data, nil
}

// ObjectKey turns a stored reference into a bucket-relative key. References may be
// plain keys ("resumes/a.pdf"), bucket-prefixed keys ("bucket/resumes/a.pdf") or
// object URLs ("https://host/bucket/resumes/a.pdf").
func (f *Fetcher) ObjectKey(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("empty resume reference")
	}

	p := ref
	if strings.Contains(ref, "://") {
		u, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("parse resume reference: %w", err)
		}
		p = u.Path
	}

	p = strings.TrimPrefix(p, "/")
	if f.bucket != "" {
		p = strings.TrimPrefix(p, f.bucket+"/")
	}
	if p == "" {
		return "", fmt.Errorf("resume reference %q has no object key", ref)
	}
	return p, nil
}

// MimeTypeFor picks the inference mime type from the reference's extension.
// Everything that is not a PDF is sent as DOCX.
func MimeTypeFor(ref string) string {
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		ref = u.Path
	}
	if strings.EqualFold(strings.TrimPrefix(path.Ext(ref), "."), "pdf") {
		return MimeTypePDF
	}
	return MimeTypeDOCX
}
