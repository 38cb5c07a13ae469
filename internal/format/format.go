package format

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned when no known signature matches the input.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Format is one of the image container formats the tools can process.
type Format int

const (
	Unknown Format = iota
	JPEG
	PNG
	GIF
	BMP
)

var formatNames = [...]string{
	Unknown: "",
	JPEG:    "jpeg",
	PNG:     "png",
	GIF:     "gif",
	BMP:     "bmp",
}

var contentTypes = [...]string{
	Unknown: "application/octet-stream",
	JPEG:    "image/jpeg",
	PNG:     "image/png",
	GIF:     "image/gif",
	BMP:     "image/bmp",
}

// Name returns the canonical lowercase name, also used as the encoder identifier.
func (f Format) Name() string {
	if f < 0 || int(f) >= len(formatNames) {
		return ""
	}
	return formatNames[f]
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f < 0 || int(f) >= len(contentTypes) {
		return contentTypes[Unknown]
	}
	return contentTypes[f]
}

func (f Format) String() string {
	if f == Unknown {
		return "unknown"
	}
	return f.Name()
}

// signature maps a magic-number prefix to a format.
type signature struct {
	magic  []byte
	format Format
}

// signatures is checked in order; the first match wins.
var signatures = []signature{
	{[]byte{0xFF, 0xD8}, JPEG},
	{[]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, PNG},
	{[]byte{0x47, 0x49, 0x46, 0x38, 0x37, 0x61}, GIF}, // GIF87a
	{[]byte{0x47, 0x49, 0x46, 0x38, 0x39, 0x61}, GIF}, // GIF89a
	{[]byte{0x42, 0x4D}, BMP},
}

// MaxSignatureLen is the number of leading bytes Identify may look at.
const MaxSignatureLen = 8

// Identify classifies data by its leading magic bytes. Input shorter than a
// signature simply does not match that signature; empty input yields Unknown.
func Identify(data []byte) Format {
	for _, sig := range signatures {
		if bytes.HasPrefix(data, sig.magic) {
			return sig.format
		}
	}
	return Unknown
}

// Require is Identify that reports Unknown as ErrUnsupportedFormat.
func Require(data []byte) (Format, error) {
	f := Identify(data)
	if f == Unknown {
		return Unknown, ErrUnsupportedFormat
	}
	return f, nil
}

// IsJPEGPath reports whether path has a .jpg or .jpeg extension (any case).
func IsJPEGPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return true
	default:
		return false
	}
}
