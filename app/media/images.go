package media

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/lysyi3m/demo-importer/app/phpserial"
	"golang.org/x/image/draw"
)

const jpegQuality = 82

// ImageSize is one intermediate size to generate for uploaded images.
// A zero Width or Height leaves that dimension unconstrained.
type ImageSize struct {
	Name   string `yaml:"name"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Crop   bool   `yaml:"crop"`
}

type GeneratedSize struct {
	Name     string
	File     string
	Width    int
	Height   int
	MimeType string
}

// ImageMeta describes an original image and the sizes generated from it.
type ImageMeta struct {
	Width  int
	Height int
	File   string // relative to the uploads directory
	Sizes  []GeneratedSize
}

// GenerateSizes writes resized copies of the image at path next to it as
// name-WxH.ext. Sizes not smaller than the original are skipped.
func GenerateSizes(path string, sizes []ImageSize) (*ImageMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	meta := &ImageMeta{Width: bounds.Dx(), Height: bounds.Dy()}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(filepath.Base(path), ext)
	dir := filepath.Dir(path)

	for _, size := range sizes {
		dw, dh, src, ok := resizeDimensions(bounds, size.Width, size.Height, size.Crop)
		if !ok {
			continue
		}

		dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)

		name := fmt.Sprintf("%s-%dx%d%s", base, dw, dh, ext)
		mimeType, err := writeImage(filepath.Join(dir, name), dst, format)
		if err != nil {
			return nil, err
		}

		meta.Sizes = append(meta.Sizes, GeneratedSize{
			Name:     size.Name,
			File:     name,
			Width:    dw,
			Height:   dh,
			MimeType: mimeType,
		})
	}

	return meta, nil
}

// resizeDimensions returns the target size and the source rectangle to scale from.
func resizeDimensions(bounds image.Rectangle, width, height int, crop bool) (int, int, image.Rectangle, bool) {
	ow, oh := bounds.Dx(), bounds.Dy()
	if ow == 0 || oh == 0 || (width <= 0 && height <= 0) {
		return 0, 0, image.Rectangle{}, false
	}

	if !crop {
		scale := math.Inf(1)
		if width > 0 {
			scale = math.Min(scale, float64(width)/float64(ow))
		}
		if height > 0 {
			scale = math.Min(scale, float64(height)/float64(oh))
		}
		if scale >= 1 {
			return 0, 0, image.Rectangle{}, false
		}
		dw := max(1, int(math.Round(float64(ow)*scale)))
		dh := max(1, int(math.Round(float64(oh)*scale)))
		return dw, dh, bounds, true
	}

	if width <= 0 {
		width = ow
	}
	if height <= 0 {
		height = oh
	}
	dw, dh := min(width, ow), min(height, oh)
	if dw == ow && dh == oh {
		return 0, 0, image.Rectangle{}, false
	}

	ratio := math.Max(float64(dw)/float64(ow), float64(dh)/float64(oh))
	cw := int(math.Round(float64(dw) / ratio))
	ch := int(math.Round(float64(dh) / ratio))
	sx := bounds.Min.X + (ow-cw)/2
	sy := bounds.Min.Y + (oh-ch)/2

	return dw, dh, image.Rect(sx, sy, sx+cw, sy+ch), true
}

func writeImage(path string, img image.Image, format string) (string, error) {
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create image: %w", err)
	}
	defer out.Close()

	var mimeType string
	switch format {
	case "png":
		mimeType, err = "image/png", png.Encode(out, img)
	case "gif":
		mimeType, err = "image/gif", gif.Encode(out, img, nil)
	default:
		mimeType, err = "image/jpeg", jpeg.Encode(out, img, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return mimeType, nil
}

// Serialize encodes the metadata the way _wp_attachment_metadata stores it.
func (m *ImageMeta) Serialize() string {
	sizes := phpserial.NewArray()
	for _, s := range m.Sizes {
		entry := phpserial.NewArray()
		entry.Set("file", s.File)
		entry.Set("width", int64(s.Width))
		entry.Set("height", int64(s.Height))
		entry.Set("mime-type", s.MimeType)
		sizes.Set(s.Name, entry)
	}

	meta := phpserial.NewArray()
	meta.Set("width", int64(m.Width))
	meta.Set("height", int64(m.Height))
	meta.Set("file", m.File)
	meta.Set("sizes", sizes)
	return phpserial.Serialize(meta)
}
