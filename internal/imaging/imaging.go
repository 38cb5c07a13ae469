// Package imaging decodes, transforms and re-encodes image files held in
// memory. Resizing and cropping plans come from package geometry; this
// package only moves pixels.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/corona10/goimagehash"
	"github.com/nfnt/resize"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"photoutils/internal/exifcodec"
	"photoutils/internal/format"
	"photoutils/internal/geometry"
)

// ErrEmptyInput is returned when there are no bytes to decode.
var ErrEmptyInput = errors.New("empty image data")

// JPEGQuality is used when re-encoding JPEG output.
const JPEGQuality = 90

// Decode sniffs and decodes data. Only formats the sniffer recognizes are
// accepted.
func Decode(data []byte) (image.Image, format.Format, error) {
	if len(data) == 0 {
		return nil, format.Unknown, ErrEmptyInput
	}
	f, err := format.Require(data)
	if err != nil {
		return nil, format.Unknown, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, f, fmt.Errorf("failed to decode %s image: %w", f, err)
	}
	return img, f, nil
}

// DecodeConfig returns the dimensions and codec name of data without decoding
// pixels. Unlike Decode it also understands WebP.
func DecodeConfig(data []byte) (geometry.Dimensions, string, error) {
	if len(data) == 0 {
		return geometry.Dimensions{}, "", ErrEmptyInput
	}
	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return geometry.Dimensions{}, "", fmt.Errorf("failed to read image header: %w", err)
	}
	return geometry.Dimensions{Width: cfg.Width, Height: cfg.Height}, name, nil
}

// Encode writes img in format f.
func Encode(img image.Image, f format.Format) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch f {
	case format.JPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality})
	case format.PNG:
		err = png.Encode(&buf, img)
	case format.GIF:
		err = gif.Encode(&buf, img, nil)
	case format.BMP:
		err = bmp.Encode(&buf, img)
	default:
		return nil, fmt.Errorf("%w: cannot encode %s", format.ErrUnsupportedFormat, f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s image: %w", f, err)
	}
	return buf.Bytes(), nil
}

// Size returns the dimensions of img.
func Size(img image.Image) geometry.Dimensions {
	b := img.Bounds()
	return geometry.Dimensions{Width: b.Dx(), Height: b.Dy()}
}

// Resample scales img to exactly d.
func Resample(img image.Image, d geometry.Dimensions) image.Image {
	return resize.Resize(uint(d.Width), uint(d.Height), img, resize.Lanczos3)
}

// Subregion copies the pixels of r (relative to img's origin) into a new image.
func Subregion(img image.Image, r geometry.CropRect) image.Image {
	origin := img.Bounds().Min
	dst := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	draw.Draw(dst, dst.Bounds(), img, image.Pt(origin.X+r.X, origin.Y+r.Y), draw.Src)
	return dst
}

// Fingerprint returns the perceptual hash of img.
func Fingerprint(img image.Image) (uint64, error) {
	h, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return 0, fmt.Errorf("failed to compute hash: %w", err)
	}
	return h.GetHash(), nil
}

// HammingDistance returns the number of differing bits of two fingerprints.
func HammingDistance(a, b uint64) int {
	d, err := goimagehash.NewImageHash(a, goimagehash.PHash).Distance(goimagehash.NewImageHash(b, goimagehash.PHash))
	if err != nil {
		return -1
	}
	return d
}

// Result is the outcome of a transform.
type Result struct {
	Data       []byte
	Format     format.Format
	Before     geometry.Dimensions
	After      geometry.Dimensions
	Crop       *geometry.CropRect
	Unchanged  bool // Data is the input, untouched
	SourceHash uint64
	ResultHash uint64
}

// ResizeLongSide scales the image so its longer side is longSide pixels.
func ResizeLongSide(data []byte, longSide int) (*Result, error) {
	return transform(data, func(src geometry.Dimensions) (geometry.Dimensions, error) {
		return geometry.PlanResizeToLongSide(src, longSide)
	})
}

// ResizeTo scales the image to width x height; a zero side keeps the aspect
// ratio.
func ResizeTo(data []byte, width, height int) (*Result, error) {
	return transform(data, func(src geometry.Dimensions) (geometry.Dimensions, error) {
		return geometry.PlanResizeExplicit(src, width, height)
	})
}

func transform(data []byte, plan func(geometry.Dimensions) (geometry.Dimensions, error)) (*Result, error) {
	img, f, err := Decode(data)
	if err != nil {
		return nil, err
	}
	src := Size(img)
	target, err := plan(src)
	if err != nil {
		return nil, err
	}

	out := Resample(img, target)
	return finish(data, img, out, f, src, nil)
}

// Crop cuts the largest centered region with the given width/height ratio.
// An image that already has that ratio is returned unchanged.
func Crop(data []byte, ratio float64) (*Result, error) {
	return cut(data, func(src geometry.Dimensions) (geometry.CropRect, error) {
		return geometry.PlanCenteredCrop(src, ratio)
	})
}

// Square cuts the largest centered square.
func Square(data []byte) (*Result, error) {
	return cut(data, geometry.PlanSquareCrop)
}

func cut(data []byte, plan func(geometry.Dimensions) (geometry.CropRect, error)) (*Result, error) {
	img, f, err := Decode(data)
	if err != nil {
		return nil, err
	}
	src := Size(img)
	rect, err := plan(src)
	if err != nil {
		return nil, err
	}

	if rect.Covers(src) {
		hash, err := Fingerprint(img)
		if err != nil {
			return nil, err
		}
		return &Result{
			Data:       data,
			Format:     f,
			Before:     src,
			After:      src,
			Crop:       &rect,
			Unchanged:  true,
			SourceHash: hash,
			ResultHash: hash,
		}, nil
	}

	return finish(data, img, Subregion(img, rect), f, src, &rect)
}

func finish(data []byte, img, out image.Image, f format.Format, src geometry.Dimensions, rect *geometry.CropRect) (*Result, error) {
	encoded, err := Encode(out, f)
	if err != nil {
		return nil, err
	}
	size := Size(out)
	if f == format.JPEG {
		if encoded, err = exifcodec.CarryOver(data, encoded, size.Width, size.Height); err != nil {
			return nil, fmt.Errorf("failed to carry over metadata: %w", err)
		}
	}

	srcHash, err := Fingerprint(img)
	if err != nil {
		return nil, err
	}
	outHash, err := Fingerprint(out)
	if err != nil {
		return nil, err
	}

	return &Result{
		Data:       encoded,
		Format:     f,
		Before:     src,
		After:      size,
		Crop:       rect,
		SourceHash: srcHash,
		ResultHash: outHash,
	}, nil
}
