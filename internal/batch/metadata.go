package batch

import (
	"errors"
	"fmt"
	"os"

	"photoutils/internal/exifcodec"
	"photoutils/internal/exifmeta"
	"photoutils/internal/format"
	"photoutils/internal/geometry"
	"photoutils/internal/imaging"
)

// LoadMetadata reads the capture metadata of the file at path. Files without
// EXIF, including non-JPEG files, yield metadata with only the modification
// time set.
func (p *Processor) LoadMetadata(path string) (*exifmeta.CaptureMetadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return p.decodeMetadata(data, info)
}

func (p *Processor) decodeMetadata(data []byte, info os.FileInfo) (*exifmeta.CaptureMetadata, error) {
	var reader exifmeta.TagReader
	tags, err := exifcodec.Read(data)
	switch {
	case err == nil:
		reader = tags
	case errors.Is(err, exifcodec.ErrNoMetadata), errors.Is(err, exifcodec.ErrUnsupportedContainer):
	default:
		return nil, err
	}
	return exifmeta.Decode(reader, info.ModTime(), p.loc)
}

// FileInfo is what the info command shows about one file
type FileInfo struct {
	Path        string
	Size        int64
	Format      format.Format
	Codec       string // decoder name, also set for formats outside Format
	Dimensions  geometry.Dimensions
	Fingerprint uint64
	Metadata    *exifmeta.CaptureMetadata
	Tags        []Field // every decoded EXIF field
}

// Field is one decoded EXIF tag
type Field struct {
	Name  string
	Value string
}

// Inspect gathers format, size, fingerprint and metadata of the file at path
func (p *Processor) Inspect(path string) (*FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	fi := &FileInfo{
		Path:   path,
		Size:   info.Size(),
		Format: format.Identify(data),
	}

	dims, codec, err := imaging.DecodeConfig(data)
	if err != nil {
		return nil, err
	}
	fi.Dimensions = dims
	fi.Codec = codec

	if fi.Format != format.Unknown {
		img, _, err := imaging.Decode(data)
		if err != nil {
			return nil, err
		}
		if fi.Fingerprint, err = imaging.Fingerprint(img); err != nil {
			return nil, err
		}
	}

	if fi.Metadata, err = p.decodeMetadata(data, info); err != nil {
		// Show what can be shown even when a date tag is garbled.
		p.log.Warning("%s: %v", path, err)
		fi.Metadata = &exifmeta.CaptureMetadata{FileModified: info.ModTime()}
	}

	if tags, err := exifcodec.Read(data); err == nil {
		err := tags.Walk(func(name, value string) {
			fi.Tags = append(fi.Tags, Field{Name: name, Value: value})
		})
		if err != nil {
			p.log.Warning("%s: failed to list EXIF tags: %v", path, err)
		}
	}

	return fi, nil
}
