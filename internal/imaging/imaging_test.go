package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"golang.org/x/image/bmp"

	"photoutils/internal/exifcodec"
	"photoutils/internal/exifmeta"
	"photoutils/internal/format"
	"photoutils/internal/geometry"
)

func gradient(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 255 / w), uint8(y * 255 / h), 100, 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, gradient(w, h), nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, gradient(w, h)); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	var gifBuf, bmpBuf bytes.Buffer
	if err := gif.Encode(&gifBuf, gradient(8, 4), nil); err != nil {
		t.Fatal(err)
	}
	if err := bmp.Encode(&bmpBuf, gradient(8, 4)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		data []byte
		want format.Format
	}{
		{"jpeg", encodeJPEG(t, 8, 4), format.JPEG},
		{"png", encodePNG(t, 8, 4), format.PNG},
		{"gif", gifBuf.Bytes(), format.GIF},
		{"bmp", bmpBuf.Bytes(), format.BMP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, f, err := Decode(tt.data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if f != tt.want {
				t.Errorf("format = %v, want %v", f, tt.want)
			}
			if got := Size(img); got != (geometry.Dimensions{Width: 8, Height: 4}) {
				t.Errorf("size = %v, want 8x4", got)
			}
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	if _, _, err := Decode(nil); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("empty input: error = %v, want ErrEmptyInput", err)
	}
	if _, _, err := Decode([]byte("not an image")); !errors.Is(err, format.ErrUnsupportedFormat) {
		t.Errorf("garbage: error = %v, want ErrUnsupportedFormat", err)
	}
	if _, _, err := Decode([]byte{0xFF, 0xD8, 0x00}); err == nil {
		t.Error("truncated JPEG: expected decode error")
	}
}

func TestDecodeConfig(t *testing.T) {
	d, name, err := DecodeConfig(encodePNG(t, 30, 20))
	if err != nil {
		t.Fatalf("DecodeConfig failed: %v", err)
	}
	if d.Width != 30 || d.Height != 20 || name != "png" {
		t.Errorf("DecodeConfig = %v %q, want 30x20 png", d, name)
	}
}

func TestResizeLongSide(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		long   int
		expect geometry.Dimensions
	}{
		{"landscape", 160, 120, 80, geometry.Dimensions{Width: 80, Height: 60}},
		{"portrait", 120, 160, 80, geometry.Dimensions{Width: 60, Height: 80}},
		{"square", 100, 100, 50, geometry.Dimensions{Width: 50, Height: 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ResizeLongSide(encodeJPEG(t, tt.w, tt.h), tt.long)
			if err != nil {
				t.Fatalf("ResizeLongSide failed: %v", err)
			}
			if res.After != tt.expect {
				t.Errorf("After = %v, want %v", res.After, tt.expect)
			}
			img, f, err := Decode(res.Data)
			if err != nil {
				t.Fatalf("output does not decode: %v", err)
			}
			if f != format.JPEG {
				t.Errorf("output format = %v, want jpeg", f)
			}
			if Size(img) != tt.expect {
				t.Errorf("decoded size = %v, want %v", Size(img), tt.expect)
			}
		})
	}
}

func TestResizeTo_KeepsFormat(t *testing.T) {
	res, err := ResizeTo(encodePNG(t, 40, 20), 20, 0)
	if err != nil {
		t.Fatalf("ResizeTo failed: %v", err)
	}
	if res.Format != format.PNG || format.Identify(res.Data) != format.PNG {
		t.Errorf("format = %v, want png", res.Format)
	}
	if res.After != (geometry.Dimensions{Width: 20, Height: 10}) {
		t.Errorf("After = %v, want 20x10", res.After)
	}

	if _, err := ResizeTo(encodePNG(t, 40, 20), 0, 0); !errors.Is(err, geometry.ErrInvalidDimensions) {
		t.Errorf("error = %v, want ErrInvalidDimensions", err)
	}
}

func TestCrop(t *testing.T) {
	res, err := Crop(encodeJPEG(t, 192, 108), 4.0/3.0)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if res.Unchanged {
		t.Error("expected a crop")
	}
	if res.After != (geometry.Dimensions{Width: 144, Height: 108}) {
		t.Errorf("After = %v, want 144x108", res.After)
	}
	if res.Crop == nil || res.Crop.X != 24 || res.Crop.Y != 0 {
		t.Errorf("Crop = %v, want origin (24,0)", res.Crop)
	}
}

func TestCrop_Identity(t *testing.T) {
	data := encodeJPEG(t, 64, 64)
	res, err := Square(data)
	if err != nil {
		t.Fatalf("Square failed: %v", err)
	}
	if !res.Unchanged {
		t.Error("square input should be unchanged")
	}
	if !bytes.Equal(res.Data, data) {
		t.Error("identity crop must return the original bytes")
	}
	if res.SourceHash != res.ResultHash {
		t.Error("identity crop should keep the fingerprint")
	}
}

func TestSquare(t *testing.T) {
	res, err := Square(encodePNG(t, 30, 50))
	if err != nil {
		t.Fatalf("Square failed: %v", err)
	}
	if res.After != (geometry.Dimensions{Width: 30, Height: 30}) {
		t.Errorf("After = %v, want 30x30", res.After)
	}
	if res.Crop.Y != 10 {
		t.Errorf("Crop.Y = %d, want 10", res.Crop.Y)
	}
}

func TestResize_CarriesMetadata(t *testing.T) {
	tagged, _, err := exifcodec.Rewrite(encodeJPEG(t, 64, 48), []exifmeta.Edit{
		exifmeta.Set(exifmeta.TagMake, exifmeta.StringValue("FUJIFILM")),
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := ResizeLongSide(tagged, 32)
	if err != nil {
		t.Fatalf("ResizeLongSide failed: %v", err)
	}
	tags, err := exifcodec.Read(res.Data)
	if err != nil {
		t.Fatalf("metadata lost: %v", err)
	}
	v, ok, err := tags.Lookup(exifmeta.TagMake)
	if err != nil || !ok || v != "FUJIFILM" {
		t.Errorf("Make = %q (present %v, err %v), want FUJIFILM", v, ok, err)
	}
}

func TestFingerprint(t *testing.T) {
	a, err := Fingerprint(gradient(64, 64))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Fingerprint(Resample(gradient(64, 64), geometry.Dimensions{Width: 32, Height: 32}))
	if err != nil {
		t.Fatal(err)
	}
	if d := HammingDistance(a, b); d < 0 || d > 10 {
		t.Errorf("distance between scaled copies = %d, want small", d)
	}
	if HammingDistance(a, a) != 0 {
		t.Error("distance to self should be 0")
	}
}
