// Package geometry computes target sizes and crop rectangles for resize and
// trim operations. Everything here is pure arithmetic; pixels are handled by
// the imaging package.
package geometry

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidDimensions is returned for non-positive sizes or aspect ratios.
var ErrInvalidDimensions = errors.New("invalid dimensions")

// Dimensions is a width/height pair in pixels.
type Dimensions struct {
	Width  int
	Height int
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// AspectRatio returns width/height.
func (d Dimensions) AspectRatio() float64 {
	return float64(d.Width) / float64(d.Height)
}

// CropRect is a region of a source image. A rect produced by PlanCenteredCrop
// always lies inside the source bounds.
type CropRect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Size returns the dimensions of the rectangle.
func (r CropRect) Size() Dimensions {
	return Dimensions{Width: r.Width, Height: r.Height}
}

// Covers reports whether r is exactly the full area of src.
func (r CropRect) Covers(src Dimensions) bool {
	return r.X == 0 && r.Y == 0 && r.Width == src.Width && r.Height == src.Height
}

func (r CropRect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

func validateSource(src Dimensions) error {
	if src.Width <= 0 || src.Height <= 0 {
		return fmt.Errorf("%w: source %s", ErrInvalidDimensions, src)
	}
	return nil
}

// PlanResizeToLongSide scales src so that its longer side equals longSide.
// Square images are treated like portrait ones (height is fixed).
func PlanResizeToLongSide(src Dimensions, longSide int) (Dimensions, error) {
	if err := validateSource(src); err != nil {
		return Dimensions{}, err
	}
	if longSide <= 0 {
		return Dimensions{}, fmt.Errorf("%w: long side %d", ErrInvalidDimensions, longSide)
	}

	if src.AspectRatio() > 1 {
		return PlanResizeExplicit(src, longSide, 0)
	}
	return PlanResizeExplicit(src, 0, longSide)
}

// PlanResizeExplicit returns the target size for a resize to width x height.
// A value <= 0 means "derive from the other side, keeping the source aspect
// ratio". When both are positive they are used as-is and the aspect ratio is
// not preserved.
func PlanResizeExplicit(src Dimensions, width, height int) (Dimensions, error) {
	if err := validateSource(src); err != nil {
		return Dimensions{}, err
	}

	switch {
	case width > 0 && height > 0:
		return Dimensions{Width: width, Height: height}, nil
	case width > 0:
		h := roundPositive(float64(width) * float64(src.Height) / float64(src.Width))
		return Dimensions{Width: width, Height: h}, nil
	case height > 0:
		w := roundPositive(float64(height) * float64(src.Width) / float64(src.Height))
		return Dimensions{Width: w, Height: height}, nil
	default:
		return Dimensions{}, fmt.Errorf("%w: width and height both unset", ErrInvalidDimensions)
	}
}

// PlanCenteredCrop returns the largest centered rectangle of src with the
// given width/height ratio. When the source already has that ratio the
// full-source rectangle is returned.
func PlanCenteredCrop(src Dimensions, ratio float64) (CropRect, error) {
	if err := validateSource(src); err != nil {
		return CropRect{}, err
	}
	if !(ratio > 0) || math.IsInf(ratio, 0) {
		return CropRect{}, fmt.Errorf("%w: aspect ratio %v", ErrInvalidDimensions, ratio)
	}

	full := CropRect{Width: src.Width, Height: src.Height}
	sourceRatio := src.AspectRatio()

	if sourceRatio == ratio {
		return full, nil
	}

	if sourceRatio > ratio {
		// Source is wider: keep the height, cut the sides.
		w := clamp(roundPositive(float64(src.Height)*ratio), src.Width)
		full.Width = w
		full.X = int(math.Round(float64(src.Width-w) / 2))
		return full, nil
	}

	// Source is taller: keep the width, cut top and bottom.
	h := clamp(roundPositive(float64(src.Width)/ratio), src.Height)
	full.Height = h
	full.Y = int(math.Round(float64(src.Height-h) / 2))
	return full, nil
}

// PlanSquareCrop is PlanCenteredCrop with a 1:1 ratio.
func PlanSquareCrop(src Dimensions) (CropRect, error) {
	return PlanCenteredCrop(src, 1)
}

// ParseAspectRatio accepts either a decimal ratio ("1.33") or a
// "width:height" pair ("4:3").
func ParseAspectRatio(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty aspect ratio", ErrInvalidDimensions)
	}

	var ratio float64
	if w, h, ok := strings.Cut(s, ":"); ok {
		fw, err := strconv.ParseFloat(strings.TrimSpace(w), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid aspect ratio %q: %w", s, err)
		}
		fh, err := strconv.ParseFloat(strings.TrimSpace(h), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid aspect ratio %q: %w", s, err)
		}
		if !(fw > 0) || !(fh > 0) {
			return 0, fmt.Errorf("%w: aspect ratio %q", ErrInvalidDimensions, s)
		}
		ratio = fw / fh
	} else {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid aspect ratio %q: %w", s, err)
		}
		ratio = f
	}

	if !(ratio > 0) || math.IsInf(ratio, 0) {
		return 0, fmt.Errorf("%w: aspect ratio %q", ErrInvalidDimensions, s)
	}
	return ratio, nil
}

// roundPositive rounds half away from zero with a floor of 1.
func roundPositive(v float64) int {
	n := int(math.Round(v))
	if n < 1 {
		return 1
	}
	return n
}

func clamp(v, max int) int {
	if v > max {
		return max
	}
	return v
}
