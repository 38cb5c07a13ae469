// Package exifcodec reads capture metadata out of JPEG files and rewrites
// EXIF tags without re-encoding pixel data.
//
// Reading goes through goexif. Writing re-serializes the TIFF structure of
// the APP1 segment: every field is carried over byte for byte and only the
// offsets are recomputed, so vendor MakerNote blocks that embed absolute
// offsets may lose their internal references.
package exifcodec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"photoutils/internal/exifmeta"
	"photoutils/internal/format"
)

var (
	// ErrNoMetadata is returned when a JPEG has no EXIF segment.
	ErrNoMetadata = errors.New("no EXIF metadata")

	// ErrUnsupportedContainer is returned for formats that cannot carry EXIF
	// in a way this package handles (anything but JPEG).
	ErrUnsupportedContainer = errors.New("unsupported metadata container")
)

var fieldNames = map[exifmeta.Tag]exif.FieldName{
	exifmeta.TagMake:               exif.Make,
	exifmeta.TagModel:              exif.Model,
	exifmeta.TagDateTimeOriginal:   exif.DateTimeOriginal,
	exifmeta.TagSubSecTimeOriginal: exif.SubSecTimeOriginal,
}

// Tags is the decoded EXIF of one file.
type Tags struct {
	x *exif.Exif
}

// Read decodes the EXIF of a JPEG image held in data.
func Read(data []byte) (*Tags, error) {
	if format.Identify(data) != format.JPEG {
		return nil, ErrUnsupportedContainer
	}
	segs, err := parseJPEGSegments(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JPEG: %w", err)
	}
	if findExifSegment(segs) < 0 {
		return nil, ErrNoMetadata
	}

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return nil, fmt.Errorf("failed to decode EXIF: %w", err)
	}
	return &Tags{x: x}, nil
}

// Lookup implements exifmeta.TagReader.
func (t *Tags) Lookup(tag exifmeta.Tag) (string, bool, error) {
	name, ok := fieldNames[tag]
	if !ok {
		return "", false, fmt.Errorf("%w: %s", exifmeta.ErrUnsupportedKind, tag)
	}
	field, err := t.x.Get(name)
	if err != nil {
		if exif.IsTagNotPresentError(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return tagText(field), true, nil
}

// Walk calls fn for every decoded field in tag order of the file.
func (t *Tags) Walk(fn func(name, value string)) error {
	return t.x.Walk(walkFunc(fn))
}

type walkFunc func(name, value string)

func (f walkFunc) Walk(name exif.FieldName, tag *tiff.Tag) error {
	f(string(name), tagText(tag))
	return nil
}

func tagText(tag *tiff.Tag) string {
	if tag.Format() == tiff.StringVal {
		if s, err := tag.StringVal(); err == nil {
			return s
		}
	}
	s := tag.String()
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return strings.TrimRight(s, "\x00")
}

// Rewrite applies edits to the EXIF of the JPEG in data and returns the new
// file contents. changed is false when the edits leave the tags as they were,
// in which case data is returned unchanged.
//
// A JPEG without EXIF gets a new segment if a tag has to be written.
func Rewrite(data []byte, edits []exifmeta.Edit) (out []byte, changed bool, err error) {
	if len(edits) == 0 {
		return data, false, nil
	}
	if format.Identify(data) != format.JPEG {
		return nil, false, ErrUnsupportedContainer
	}

	segs, err := parseJPEGSegments(data)
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse JPEG: %w", err)
	}

	idx := findExifSegment(segs)
	var blk *tiffBlock
	if idx >= 0 {
		blk, err = parseTIFF(segs[idx].data[len(exifHeader):])
		if err != nil {
			return nil, false, fmt.Errorf("failed to parse EXIF: %w", err)
		}
	} else {
		blk = &tiffBlock{order: binary.LittleEndian}
	}

	changed, err = blk.apply(edits)
	if err != nil {
		return nil, false, err
	}
	if !changed {
		return data, false, nil
	}

	body, err := blk.bytes()
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode EXIF: %w", err)
	}
	payload := append(append([]byte(nil), exifHeader...), body...)
	if len(payload) > maxSegmentPayload {
		return nil, false, fmt.Errorf("EXIF segment too large (%d bytes)", len(payload))
	}

	seg := jpegSegment{marker: markerAPP1, data: payload}
	if idx >= 0 {
		segs[idx] = seg
	} else {
		at := exifInsertIndex(segs)
		segs = append(segs[:at], append([]jpegSegment{seg}, segs[at:]...)...)
	}

	out, err = writeJPEGSegments(segs)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// apply performs the edits and reports whether anything changed.
func (blk *tiffBlock) apply(edits []exifmeta.Edit) (bool, error) {
	changed := false
	for _, e := range edits {
		if e.IsRemove() {
			d := blk.dir(e.Tag.IFD(), false)
			if d != nil && d.remove(e.Tag.ID()) {
				changed = true
			}
			continue
		}

		text, err := e.Value.Text()
		if err != nil {
			return false, fmt.Errorf("failed to encode %s: %w", e.Tag, err)
		}
		if d := blk.dir(e.Tag.IFD(), true); d.setASCII(e.Tag.ID(), text) {
			changed = true
		}
	}
	blk.pruneExifIFD()
	return changed, nil
}

// dir returns the directory for ifd, creating it (and IFD0) when create is set.
func (blk *tiffBlock) dir(ifd exifmeta.IFD, create bool) *directory {
	if len(blk.dirs) == 0 {
		if !create {
			return nil
		}
		blk.dirs = append(blk.dirs, &directory{})
	}
	root := blk.dirs[0]
	if ifd == exifmeta.IFD0 {
		return root
	}

	sub := root.subs[tagExifIFD]
	if sub == nil && create {
		if root.subs == nil {
			root.subs = make(map[uint16]*directory)
		}
		sub = &directory{}
		root.subs[tagExifIFD] = sub
	}
	return sub
}

func (blk *tiffBlock) pruneExifIFD() {
	if len(blk.dirs) == 0 {
		return
	}
	root := blk.dirs[0]
	if sub := root.subs[tagExifIFD]; sub != nil && sub.empty() {
		delete(root.subs, tagExifIFD)
	}
}

// CarryOver copies the EXIF segment of the JPEG src into the JPEG dst, which
// is typically a re-encoded version of src with the given pixel size. The
// thumbnail IFD is dropped and PixelXDimension/PixelYDimension are set to
// the new size. A missing segment in src, or a non-JPEG on either side,
// returns dst unchanged.
func CarryOver(src, dst []byte, width, height int) ([]byte, error) {
	if format.Identify(src) != format.JPEG || format.Identify(dst) != format.JPEG {
		return dst, nil
	}
	srcSegs, err := parseJPEGSegments(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source JPEG: %w", err)
	}
	i := findExifSegment(srcSegs)
	if i < 0 {
		return dst, nil
	}

	seg := srcSegs[i]
	// An EXIF block we cannot parse is carried over verbatim.
	if blk, err := parseTIFF(seg.data[len(exifHeader):]); err == nil {
		blk.resized(width, height)
		body, err := blk.bytes()
		if err != nil {
			return nil, fmt.Errorf("failed to encode EXIF: %w", err)
		}
		seg = jpegSegment{marker: markerAPP1, data: append(append([]byte(nil), exifHeader...), body...)}
	}

	dstSegs, err := parseJPEGSegments(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JPEG: %w", err)
	}
	if j := findExifSegment(dstSegs); j >= 0 {
		dstSegs[j] = seg
	} else {
		at := exifInsertIndex(dstSegs)
		dstSegs = append(dstSegs[:at], append([]jpegSegment{seg}, dstSegs[at:]...)...)
	}
	return writeJPEGSegments(dstSegs)
}

// resized updates the block for an image re-encoded at width x height: the
// thumbnail no longer matches and the recorded pixel size changes.
func (blk *tiffBlock) resized(width, height int) {
	if len(blk.dirs) > 1 {
		blk.dirs = blk.dirs[:1]
	}
	if len(blk.dirs) == 0 {
		return
	}
	sub := blk.dirs[0].subs[tagExifIFD]
	if sub == nil {
		return
	}
	if sub.find(tagPixelXDimension) >= 0 {
		sub.setLong(tagPixelXDimension, uint32(width), blk.order)
	}
	if sub.find(tagPixelYDimension) >= 0 {
		sub.setLong(tagPixelYDimension, uint32(height), blk.order)
	}
}
