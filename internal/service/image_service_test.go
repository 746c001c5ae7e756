package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"yatube/internal/config"
	"yatube/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageService_StoreWritesJPEGAndWebP(t *testing.T) {
	root := t.TempDir()
	svc := NewImageService(&config.Config{MediaRoot: root, ImageMaxUploadSizeMB: 10, ImageMaxEdgePx: 400})

	content := noisyPNG(t, 1200, 800)
	rel, created, err := svc.Store(context.Background(), ImageUpload{Filename: "big.png", ContentType: "image/png", Content: content})
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, strings.HasPrefix(rel, "posts/"))
	assert.True(t, isValidImagePath(rel))

	jpgPath := filepath.Join(root, filepath.FromSlash(rel))
	webpPath := strings.TrimSuffix(jpgPath, ".jpg") + ".webp"
	for _, p := range []string{jpgPath, webpPath} {
		_, statErr := os.Stat(p)
		require.NoError(t, statErr, "expected file at %s", p)
	}

	f, err := os.Open(jpgPath)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	decoded, err := jpeg.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 400, decoded.Bounds().Dx())
	assert.Equal(t, 266, decoded.Bounds().Dy())

	again, created, err := svc.Store(context.Background(), ImageUpload{Filename: "copy.png", Content: content})
	require.NoError(t, err)
	assert.Equal(t, rel, again)
	assert.False(t, created, "identical image reuses the stored file")

	require.NoError(t, svc.Remove(rel))
	_, statErr := os.Stat(jpgPath)
	assert.True(t, os.IsNotExist(statErr))
	assert.NoError(t, svc.Remove(rel))
}

func TestImageService_StoreDoesNotUpscale(t *testing.T) {
	root := t.TempDir()
	svc := NewImageService(&config.Config{MediaRoot: root, ImageMaxEdgePx: 1280})

	rel, _, err := svc.Store(context.Background(), ImageUpload{Content: transparentPNG(t, 30, 20)})
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	decoded, err := jpeg.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 30, 20), decoded.Bounds())

	r, g, b, _ := decoded.At(15, 10).RGBA()
	assert.Greater(t, r>>8, uint32(200), "transparent pixels flatten onto white")
	assert.Greater(t, g>>8, uint32(200))
	assert.Greater(t, b>>8, uint32(200))
}

func TestImageService_StoreValidation(t *testing.T) {
	svc := NewImageService(&config.Config{MediaRoot: t.TempDir(), ImageMaxUploadSizeMB: 1})
	ctx := context.Background()

	tests := []struct {
		name    string
		content []byte
		want    string
	}{
		{"empty", nil, MsgInvalidImage},
		{"not an image", []byte("plain text, definitely not a picture"), MsgInvalidImage},
		{"truncated png", noisyPNG(t, 20, 20)[:40], MsgInvalidImage},
		{"too large", bytes.Repeat([]byte{0x89}, 2*1024*1024), "Файл слишком большой (максимум 1 МБ)."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Store(ctx, ImageUpload{Content: tt.content})
			var fe models.FieldErrors
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.want, fe["image"])
		})
	}
}

func TestIsValidImagePath(t *testing.T) {
	assert.True(t, isValidImagePath("posts/abc123.jpg"))
	assert.False(t, isValidImagePath("posts/../etc/passwd.jpg"))
	assert.False(t, isValidImagePath("other/abc.jpg"))
	assert.False(t, isValidImagePath("posts/ABC.jpg"))
	assert.False(t, isValidImagePath("posts/abc.png"))
	assert.Error(t, NewImageService(nil).Remove("../secret.jpg"))
}

func noisyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func transparentPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
