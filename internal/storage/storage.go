// Package storage holds post images either on local disk or in an S3 bucket.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"utvibe/internal/config"

	"github.com/google/uuid"
)

// Object describes a stored image. Key is what posts keep in imageIds.
type Object struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// ImageStore persists and removes post images.
type ImageStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (*Object, error)
	Delete(ctx context.Context, key string) error
	Name() string
}

// NewKey returns "posts/<yyyy>/<mm>/<userID>/<uuid><ext>".
func NewKey(userID uint, ext string, now time.Time) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return path.Join("posts",
		fmt.Sprintf("%04d", now.Year()),
		fmt.Sprintf("%02d", int(now.Month())),
		fmt.Sprintf("%d", userID),
		uuid.NewString()+ext,
	)
}

// New builds the store selected by IMAGE_STORE.
func New(ctx context.Context, cfg *config.Config) (ImageStore, error) {
	switch cfg.ImageStore {
	case "s3":
		return NewS3Store(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3PublicBaseURL)
	case "disk", "":
		return NewDiskStore(cfg.ImageUploadDir, "/uploads")
	default:
		return nil, fmt.Errorf("unknown image store %q", cfg.ImageStore)
	}
}
