package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudpharmacy/cloudstore/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the blob store selected by cfg.Driver. The returned closer
// releases the underlying client.
func Open(ctx context.Context, cfg config.BlobConfig) (BlobStore, io.Closer, error) {
	switch cfg.Driver {
	case "gcs":
		client, err := NewGCSClient(ctx, cfg.CredentialsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("gcs client: %w", err)
		}
		return NewGCSStore(client, cfg.GCSBucket), client, nil
	case "r2":
		s, err := NewR2Store(ctx, cfg.R2Endpoint, cfg.R2Bucket, cfg.R2AccessKey, cfg.R2SecretKey)
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	case "local":
		s, err := NewLocalStore(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	case "memory":
		return NewMemoryStore(), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
