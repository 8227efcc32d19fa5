package media

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/lysyi3m/demo-importer/app/phpserial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestGenerateSizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")
	writeTestPNG(t, path, 400, 200)

	meta, err := GenerateSizes(path, []ImageSize{
		{Name: "thumbnail", Width: 150, Height: 150, Crop: true},
		{Name: "medium", Width: 300, Height: 300},
		{Name: "huge", Width: 1200, Height: 1200},
	})
	require.NoError(t, err)

	assert.Equal(t, 400, meta.Width)
	assert.Equal(t, 200, meta.Height)
	require.Len(t, meta.Sizes, 2)

	assert.Equal(t, GeneratedSize{Name: "thumbnail", File: "photo-150x150.png", Width: 150, Height: 150, MimeType: "image/png"}, meta.Sizes[0])
	assert.Equal(t, GeneratedSize{Name: "medium", File: "photo-300x150.png", Width: 300, Height: 150, MimeType: "image/png"}, meta.Sizes[1])

	for _, size := range meta.Sizes {
		assert.FileExists(t, filepath.Join(dir, size.File))
	}
}

func TestResizeDimensions(t *testing.T) {
	bounds := image.Rect(0, 0, 1000, 500)

	tests := []struct {
		name             string
		width, height    int
		crop             bool
		expectOK         bool
		expectW, expectH int
	}{
		{"fit width", 500, 0, false, true, 500, 250},
		{"fit box", 300, 300, false, true, 300, 150},
		{"larger than original", 2000, 2000, false, false, 0, 0},
		{"crop square", 100, 100, true, true, 100, 100},
		{"crop unconstrained height", 200, 0, true, true, 200, 500},
		{"no constraints", 0, 0, false, false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, _, ok := resizeDimensions(bounds, tt.width, tt.height, tt.crop)
			assert.Equal(t, tt.expectOK, ok)
			assert.Equal(t, tt.expectW, w)
			assert.Equal(t, tt.expectH, h)
		})
	}
}

func TestImageMetaSerialize(t *testing.T) {
	meta := &ImageMeta{
		Width:  400,
		Height: 200,
		File:   "2015/05/photo.png",
		Sizes:  []GeneratedSize{{Name: "thumbnail", File: "photo-150x150.png", Width: 150, Height: 150, MimeType: "image/png"}},
	}

	v, err := phpserial.Unserialize(meta.Serialize())
	require.NoError(t, err)

	arr := v.(*phpserial.Array)
	file, _ := arr.Get("file")
	assert.Equal(t, "2015/05/photo.png", file)

	sizes, _ := arr.Get("sizes")
	thumb, ok := sizes.(*phpserial.Array).Get("thumbnail")
	require.True(t, ok)
	mimeType, _ := thumb.(*phpserial.Array).Get("mime-type")
	assert.Equal(t, "image/png", mimeType)
}
