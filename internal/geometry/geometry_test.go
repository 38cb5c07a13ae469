package geometry

import (
	"errors"
	"math"
	"testing"
)

func TestPlanResizeToLongSide(t *testing.T) {
	tests := []struct {
		name     string
		src      Dimensions
		longSide int
		expected Dimensions
	}{
		{"landscape 4:3", Dimensions{1440, 1080}, 640, Dimensions{640, 480}},
		{"portrait 3:4", Dimensions{1080, 1440}, 640, Dimensions{480, 640}},
		{"landscape 16:9", Dimensions{1920, 1080}, 640, Dimensions{640, 360}},
		{"square", Dimensions{1000, 1000}, 640, Dimensions{640, 640}},
		{"upscale", Dimensions{320, 240}, 640, Dimensions{640, 480}},
		{"extreme panorama", Dimensions{10000, 10}, 100, Dimensions{100, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PlanResizeToLongSide(tt.src, tt.longSide)
			if err != nil {
				t.Fatalf("PlanResizeToLongSide failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("PlanResizeToLongSide(%s, %d) = %s, want %s", tt.src, tt.longSide, got, tt.expected)
			}
		})
	}
}

func TestPlanResizeExplicit(t *testing.T) {
	tests := []struct {
		name          string
		src           Dimensions
		width, height int
		expected      Dimensions
	}{
		{"both given, same ratio", Dimensions{1440, 1080}, 640, 480, Dimensions{640, 480}},
		{"both given, ratio ignored", Dimensions{1920, 1080}, 640, 480, Dimensions{640, 480}},
		{"both given, portrait source", Dimensions{1080, 1440}, 640, 480, Dimensions{640, 480}},
		{"width only", Dimensions{1920, 1080}, 640, 0, Dimensions{640, 360}},
		{"height only", Dimensions{1920, 1080}, 0, 360, Dimensions{640, 360}},
		{"negative treated as auto", Dimensions{1920, 1080}, 640, -1, Dimensions{640, 360}},
		{"rounds to nearest", Dimensions{1000, 3}, 500, 0, Dimensions{500, 2}},
		{"never below one", Dimensions{1000, 1}, 10, 0, Dimensions{10, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PlanResizeExplicit(tt.src, tt.width, tt.height)
			if err != nil {
				t.Fatalf("PlanResizeExplicit failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("PlanResizeExplicit(%s, %d, %d) = %s, want %s",
					tt.src, tt.width, tt.height, got, tt.expected)
			}
		})
	}
}

func TestPlanResize_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
	}{
		{"zero width source", func() error { _, err := PlanResizeToLongSide(Dimensions{0, 10}, 10); return err }},
		{"negative height source", func() error { _, err := PlanResizeExplicit(Dimensions{10, -1}, 5, 5); return err }},
		{"zero long side", func() error { _, err := PlanResizeToLongSide(Dimensions{10, 10}, 0); return err }},
		{"both auto", func() error { _, err := PlanResizeExplicit(Dimensions{10, 10}, 0, 0); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, ErrInvalidDimensions) {
				t.Errorf("error = %v, want ErrInvalidDimensions", err)
			}
		})
	}
}

func TestPlanCenteredCrop(t *testing.T) {
	tests := []struct {
		name     string
		src      Dimensions
		ratio    float64
		expected CropRect
	}{
		{"16:9 to 4:3", Dimensions{1920, 1080}, 4.0 / 3.0, CropRect{X: 240, Y: 0, Width: 1440, Height: 1080}},
		{"4:3 to 16:9", Dimensions{1440, 1080}, 16.0 / 9.0, CropRect{X: 0, Y: 135, Width: 1440, Height: 810}},
		{"16:9 to square", Dimensions{1920, 1080}, 1, CropRect{X: 420, Y: 0, Width: 1080, Height: 1080}},
		{"portrait to square", Dimensions{1080, 1440}, 1, CropRect{X: 0, Y: 180, Width: 1080, Height: 1080}},
		{"16:9 to 3:4", Dimensions{1920, 1080}, 0.75, CropRect{X: 555, Y: 0, Width: 810, Height: 1080}},
		{"identity 16:9", Dimensions{1920, 1080}, 16.0 / 9.0, CropRect{Width: 1920, Height: 1080}},
		{"identity 4:3", Dimensions{1440, 1080}, 4.0 / 3.0, CropRect{Width: 1440, Height: 1080}},
		{"identity square", Dimensions{500, 500}, 1, CropRect{Width: 500, Height: 500}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PlanCenteredCrop(tt.src, tt.ratio)
			if err != nil {
				t.Fatalf("PlanCenteredCrop failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("PlanCenteredCrop(%s, %v) = %+v, want %+v", tt.src, tt.ratio, got, tt.expected)
			}
			if got.X+got.Width > tt.src.Width || got.Y+got.Height > tt.src.Height {
				t.Errorf("crop %+v exceeds source %s", got, tt.src)
			}
		})
	}
}

func TestPlanCenteredCrop_Idempotent(t *testing.T) {
	src := Dimensions{1920, 1080}
	ratio := 4.0 / 3.0

	first, err := PlanCenteredCrop(src, ratio)
	if err != nil {
		t.Fatalf("PlanCenteredCrop failed: %v", err)
	}

	second, err := PlanCenteredCrop(first.Size(), ratio)
	if err != nil {
		t.Fatalf("PlanCenteredCrop failed: %v", err)
	}
	if !second.Covers(first.Size()) {
		t.Errorf("second crop = %+v, want full %s", second, first.Size())
	}
}

func TestPlanCenteredCrop_InvalidRatio(t *testing.T) {
	for _, ratio := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := PlanCenteredCrop(Dimensions{100, 100}, ratio); !errors.Is(err, ErrInvalidDimensions) {
			t.Errorf("PlanCenteredCrop(ratio=%v) error = %v, want ErrInvalidDimensions", ratio, err)
		}
	}
}

func TestPlanSquareCrop(t *testing.T) {
	got, err := PlanSquareCrop(Dimensions{300, 200})
	if err != nil {
		t.Fatalf("PlanSquareCrop failed: %v", err)
	}
	want := CropRect{X: 50, Y: 0, Width: 200, Height: 200}
	if got != want {
		t.Errorf("PlanSquareCrop = %+v, want %+v", got, want)
	}
}

func TestParseAspectRatio(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		wantErr  bool
	}{
		{"1", 1, false},
		{"1.33", 1.33, false},
		{"4:3", 4.0 / 3.0, false},
		{"16:9", 16.0 / 9.0, false},
		{" 3 : 4 ", 0.75, false},
		{"", 0, true},
		{"0", 0, true},
		{"-1.5", 0, true},
		{"4:0", 0, true},
		{"-4:-3", 0, true},
		{"-4:3", 0, true},
		{"0:3", 0, true},
		{"abc", 0, true},
		{"4:x", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAspectRatio(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseAspectRatio(%q) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAspectRatio(%q) failed: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("ParseAspectRatio(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}
