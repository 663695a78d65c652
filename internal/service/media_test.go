package service

import (
	"bytes"
	"context"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outfitsquare/internal/config"
	"outfitsquare/internal/model"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 80, B: 40, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func decodedSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func TestNormalizePostImage(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{"wide is scaled to max width", 2160, 1080, 1080, 540},
		{"tall is scaled to max height", 1350, 2700, 675, 1350},
		{"small is never upscaled", 400, 300, 400, 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			full, thumb, err := normalizePostImage(pngBytes(t, tt.w, tt.h))
			require.NoError(t, err)

			w, h := decodedSize(t, full)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)

			w, h = decodedSize(t, thumb)
			assert.Equal(t, model.ThumbnailSize, w)
			assert.Equal(t, model.ThumbnailSize, h)
		})
	}
}

func TestNormalizePostImage_Garbage(t *testing.T) {
	_, _, err := normalizePostImage([]byte("not an image"))
	assert.ErrorIs(t, err, model.ErrInvalidImageType)
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".png", extensionFor(model.ContentTypePNG))
	assert.Equal(t, ".gif", extensionFor(model.ContentTypeGIF))
	assert.Equal(t, ".webp", extensionFor(model.ContentTypeWebP))
	assert.Equal(t, ".jpg", extensionFor(model.ContentTypeJPEG))
}

func TestPresignPostUpload_Validation(t *testing.T) {
	svc := &MediaService{}
	ctx := context.Background()

	_, err := svc.PresignPostUpload(ctx, model.PresignPostUploadRequest{ContentType: "application/pdf"})
	assert.ErrorIs(t, err, model.ErrInvalidImageType)

	_, err = svc.PresignPostUpload(ctx, model.PresignPostUploadRequest{
		ContentType: model.ContentTypeJPEG,
		FileSize:    model.MaxPostImageSizeBytes + 1,
	})
	assert.ErrorIs(t, err, model.ErrFileTooLarge)
}

func TestNewMediaService_NotConfigured(t *testing.T) {
	_, err := NewMediaService(context.Background(), &config.Config{})
	assert.ErrorIs(t, err, model.ErrMediaNotAvailable)
}
