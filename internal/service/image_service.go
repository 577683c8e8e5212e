package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"log/slog"
	"net/http"
	"time"

	"utvibe/internal/config"
	"utvibe/internal/featureflags"
	"utvibe/internal/models"
	"utvibe/internal/observability"
	"utvibe/internal/storage"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultImageMaxUploadSizeMB = 10
	MaxImageDimension           = 1600
	WebPQuality                 = 75
	MaxImagesPerPost            = 6
)

var extensionByMIME = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type UploadImageInput struct {
	UserID      uint
	Filename    string
	ContentType string
	Content     []byte
}

// ImageService validates uploads, normalizes them to bounded WebP and hands them to the store.
type ImageService struct {
	store              storage.ImageStore
	flags              *featureflags.Manager
	maxUploadSizeBytes int64
	now                func() time.Time
}

func NewImageService(store storage.ImageStore, flags *featureflags.Manager, cfg *config.Config) *ImageService {
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB
	if cfg != nil && cfg.ImageMaxUploadSizeMB > 0 {
		maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
	}
	return &ImageService{
		store:              store,
		flags:              flags,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
		now:                time.Now,
	}
}

func (s *ImageService) Upload(ctx context.Context, in UploadImageInput) (obj *storage.Object, err error) {
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		observability.ImageUploads.WithLabelValues(s.store.Name(), outcome).Inc()
	}()

	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	detected := http.DetectContentType(in.Content)
	ext, ok := extensionByMIME[detected]
	if !ok {
		return nil, models.NewValidationError("Invalid image type")
	}

	data, contentType := in.Content, detected
	if s.flags.Enabled(featureflags.ImageNormalize, in.UserID) {
		data, err = normalizeImage(in.Content)
		if err != nil {
			return nil, err
		}
		ext, contentType = ".webp", "image/webp"
	}

	key := storage.NewKey(in.UserID, ext, s.now())
	obj, err = s.store.Put(ctx, key, data, contentType)
	if err != nil {
		return nil, models.NewInternalError("Failed to upload image", err)
	}
	return obj, nil
}

// UploadAll uploads each image and skips the ones that fail. The returned slices
// line up index by index.
func (s *ImageService) UploadAll(ctx context.Context, userID uint, files []UploadImageInput) (urls, keys []string) {
	urls, keys = []string{}, []string{}
	for _, f := range files {
		f.UserID = userID
		obj, err := s.Upload(ctx, f)
		if err != nil {
			slog.WarnContext(ctx, "skipping image upload", "filename", f.Filename, "error", err)
			continue
		}
		urls = append(urls, obj.URL)
		keys = append(keys, obj.Key)
	}
	return urls, keys
}

// DeleteAll removes keys from the store. Failures are logged and ignored.
func (s *ImageService) DeleteAll(ctx context.Context, keys []string) {
	for _, k := range keys {
		if err := s.store.Delete(ctx, k); err != nil {
			slog.WarnContext(ctx, "failed to delete image", "key", k, "error", err)
		}
	}
}

func normalizeImage(content []byte) ([]byte, error) {
	decoded, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	resized := resizeToFit(decoded, MaxImageDimension, MaxImageDimension)

	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, resized, &webp.Options{Quality: WebPQuality}); err != nil {
		return nil, models.NewInternalError("Failed to process image", err)
	}
	return buf.Bytes(), nil
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 || (w <= maxWidth && h <= maxHeight) {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}
