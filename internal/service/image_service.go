package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"yatube/internal/config"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/observability"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMediaRoot            = "media"
	DefaultImageMaxUploadSizeMB = 5
	DefaultImageMaxEdgePx       = 1280
	JPEGQuality                 = 82
	WebPQuality                 = 70

	// PostImageDir is the media subdirectory holding post images.
	PostImageDir = "posts"
)

// MsgInvalidImage is shown when the upload is not a decodable picture.
const MsgInvalidImage = "Загрузите правильное изображение. Файл, который вы загрузили, поврежден или не является изображением."

var imagePathPattern = regexp.MustCompile(`^` + PostImageDir + `/[0-9a-f]+\.jpg$`)

// ImageUpload is a file taken from the multipart "image" field.
type ImageUpload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ImageService normalises uploaded post images and writes them under the
// media root as a JPEG plus a WebP sibling.
type ImageService struct {
	mediaRoot      string
	maxUploadBytes int64
	maxUploadMB    int
	maxEdge        int
}

func NewImageService(cfg *config.Config) *ImageService {
	s := &ImageService{
		mediaRoot:   DefaultMediaRoot,
		maxUploadMB: DefaultImageMaxUploadSizeMB,
		maxEdge:     DefaultImageMaxEdgePx,
	}
	if cfg != nil {
		if strings.TrimSpace(cfg.MediaRoot) != "" {
			s.mediaRoot = cfg.MediaRoot
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			s.maxUploadMB = cfg.ImageMaxUploadSizeMB
		}
		if cfg.ImageMaxEdgePx > 0 {
			s.maxEdge = cfg.ImageMaxEdgePx
		}
	}
	s.maxUploadBytes = int64(s.maxUploadMB) * 1024 * 1024
	return s
}

// MediaRoot is the directory served under /media/.
func (s *ImageService) MediaRoot() string { return s.mediaRoot }

// MaxUploadBytes is the largest accepted upload.
func (s *ImageService) MaxUploadBytes() int64 { return s.maxUploadBytes }

// Store validates and re-encodes the upload and returns its path relative to
// the media root, e.g. "posts/<sha256>.jpg". Identical results share a file;
// created reports whether this call wrote it.
func (s *ImageService) Store(ctx context.Context, in ImageUpload) (rel string, created bool, err error) {
	_, span := observability.StartSpan(ctx, "image", "Store",
		attribute.Int("image.size_bytes", len(in.Content)))
	defer func() { observability.EndSpan(span, err) }()

	if int64(len(in.Content)) > s.maxUploadBytes {
		return "", false, imageFieldError(fmt.Sprintf("Файл слишком большой (максимум %d МБ).", s.maxUploadMB))
	}
	if len(in.Content) == 0 {
		return "", false, imageFieldError(MsgInvalidImage)
	}
	if ct := normalizeContentType(in.ContentType); ct != "" && ct != "application/octet-stream" && !isAllowedImageMIME(ct) {
		return "", false, imageFieldError(MsgInvalidImage)
	}

	src, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil || !isSupportedDecodedFormat(format) {
		return "", false, imageFieldError(MsgInvalidImage)
	}

	img := flatten(resizeToFit(src, s.maxEdge, s.maxEdge))
	jpg, err := encodeJPEG(img, JPEGQuality)
	if err != nil {
		return "", false, models.NewInternalError(fmt.Errorf("encode jpeg: %w", err))
	}
	sum := sha256.Sum256(jpg)
	name := hex.EncodeToString(sum[:])
	rel = PostImageDir + "/" + name + ".jpg"

	jpgPath := s.absPath(rel)
	if _, statErr := os.Stat(jpgPath); statErr == nil {
		return rel, false, nil
	}

	wp, err := encodeWebP(img, WebPQuality)
	if err != nil {
		return "", false, models.NewInternalError(fmt.Errorf("encode webp: %w", err))
	}
	webpPath := strings.TrimSuffix(jpgPath, ".jpg") + ".webp"
	if err := writeFileAtomic(webpPath, wp); err != nil {
		return "", false, models.NewInternalError(err)
	}
	if err := writeFileAtomic(jpgPath, jpg); err != nil {
		_ = os.Remove(webpPath)
		return "", false, models.NewInternalError(err)
	}

	middleware.Logger.Debug("stored post image", "path", rel, "filename", in.Filename, "format", format)
	return rel, true, nil
}

// Remove deletes a stored image and its WebP sibling. Missing files are not an error.
func (s *ImageService) Remove(rel string) error {
	if !isValidImagePath(rel) {
		return fmt.Errorf("invalid image path %q", rel)
	}
	jpgPath := s.absPath(rel)
	for _, p := range []string{jpgPath, strings.TrimSuffix(jpgPath, ".jpg") + ".webp"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (s *ImageService) absPath(rel string) string {
	return filepath.Join(s.mediaRoot, filepath.FromSlash(rel))
}

func isValidImagePath(rel string) bool {
	return imagePathPattern.MatchString(rel)
}

func imageFieldError(msg string) error {
	return models.FieldErrors{"image": msg}
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

// flatten composites img over white; JPEG has no alpha channel.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}

// writeFileAtomic writes through a uniquely named temp file and renames it
// into place so concurrent uploads of the same picture never see a torn file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	tmp := filepath.Join(dir, ".upload-"+uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
