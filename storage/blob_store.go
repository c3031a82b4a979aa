package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("blob not found")
	ErrKeyExists = errors.New("blob key already exists")
)

// Blob is a stored object and the content type it was stored with.
type Blob struct {
	Key         string
	ContentType string
	Data        []byte
}

// BlobStore persists uploaded product photos under generated keys.
//
// Put never overwrites an existing key. Get returns ErrNotFound for a
// missing key. Delete of a missing key succeeds.
type BlobStore interface {
	Put(ctx context.Context, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) (*Blob, error)
	Delete(ctx context.Context, key string) error
}

const keyPrefix = "products/"

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// NewKey builds a fresh object name. It never uses client supplied names.
func NewKey(contentType string) string {
	ext, ok := extensions[contentType]
	if !ok {
		ext = ".bin"
	}
	return fmt.Sprintf("%s%d-%s%s", keyPrefix, time.Now().UTC().UnixNano(), uuid.New().String(), ext)
}

var keyPattern = regexp.MustCompile(`^products/[0-9]+-[0-9a-f-]{36}\.[a-z]+$`)

// ValidKey reports whether key has the shape produced by NewKey.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

func contentTypeOrDefault(ct string) string {
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}
