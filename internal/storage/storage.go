// Package storage keeps uploaded blog images in an object store or on disk.
package storage

import (
	"context"
	"fmt"
	"strings"

	"writeflow/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Folder prefixes every object key.
const Folder = "writeflow"

// ObjectStore stores immutable objects and returns their public URL.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	URL(key string) string
	Ping(ctx context.Context) error
}

// New builds the store selected by IMAGE_STORAGE.
func New(ctx context.Context, cfg *config.Config) (ObjectStore, error) {
	switch cfg.ImageStorage {
	case config.ImageStorageMinio:
		client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
			Secure: cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("create minio client: %w", err)
		}
		return NewMinioStore(ctx, client, cfg.MinioBucket, publicBase(cfg))
	case config.ImageStorageLocal, "":
		return NewLocalStore(cfg.ImageUploadDir, cfg.ImagePublicBaseURL)
	default:
		return nil, fmt.Errorf("unsupported image storage %q", cfg.ImageStorage)
	}
}

// publicBase returns where minio objects are served from. A relative base
// only makes sense for the local store, so minio falls back to the endpoint.
func publicBase(cfg *config.Config) string {
	if strings.HasPrefix(cfg.ImagePublicBaseURL, "http://") || strings.HasPrefix(cfg.ImagePublicBaseURL, "https://") {
		return cfg.ImagePublicBaseURL
	}
	scheme := "http"
	if cfg.MinioUseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, cfg.MinioEndpoint, cfg.MinioBucket)
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
