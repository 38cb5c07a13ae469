package exifcodec

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
	markerAPP0 = 0xE0
	markerAPP1 = 0xE1
	markerTEM  = 0x01

	// markerScan holds the entropy-coded data that follows SOS, through EOI.
	markerScan = 0x00

	maxSegmentPayload = 0xFFFF - 2
)

var exifHeader = []byte("Exif\x00\x00")

type jpegSegment struct {
	marker byte
	data   []byte
}

// parseJPEGSegments splits a JPEG stream into its marker segments. Everything
// after the SOS header is kept verbatim as a single scan segment.
func parseJPEGSegments(data []byte) ([]jpegSegment, error) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, fmt.Errorf("not a JPEG stream")
	}
	segs := []jpegSegment{{marker: markerSOI}}

	i := 2
	for i < len(data) {
		if data[i] != 0xFF {
			return nil, fmt.Errorf("expected marker at offset %d, found %#x", i, data[i])
		}
		// Skip fill bytes.
		for i < len(data) && data[i] == 0xFF {
			i++
		}
		if i >= len(data) {
			return nil, fmt.Errorf("truncated marker at end of stream")
		}
		marker := data[i]
		i++

		switch {
		case marker == markerEOI:
			segs = append(segs, jpegSegment{marker: marker})
			return segs, nil
		case marker == markerTEM || (marker >= 0xD0 && marker <= 0xD7):
			segs = append(segs, jpegSegment{marker: marker})
			continue
		}

		if i+2 > len(data) {
			return nil, fmt.Errorf("truncated length of segment %#x", marker)
		}
		segLen := int(binary.BigEndian.Uint16(data[i:i+2])) - 2
		i += 2
		if segLen < 0 || i+segLen > len(data) {
			return nil, fmt.Errorf("segment %#x overruns stream", marker)
		}
		segs = append(segs, jpegSegment{marker: marker, data: append([]byte(nil), data[i:i+segLen]...)})
		i += segLen

		if marker == markerSOS {
			segs = append(segs, jpegSegment{marker: markerScan, data: append([]byte(nil), data[i:]...)})
			return segs, nil
		}
	}
	return segs, nil
}

func writeJPEGSegments(segs []jpegSegment) ([]byte, error) {
	var buf bytes.Buffer
	for _, seg := range segs {
		switch {
		case seg.marker == markerScan:
			buf.Write(seg.data)
		case seg.marker == markerSOI || seg.marker == markerEOI || seg.marker == markerTEM ||
			(seg.marker >= 0xD0 && seg.marker <= 0xD7):
			buf.Write([]byte{0xFF, seg.marker})
		default:
			if len(seg.data) > maxSegmentPayload {
				return nil, fmt.Errorf("segment %#x too large (%d bytes)", seg.marker, len(seg.data))
			}
			buf.Write([]byte{0xFF, seg.marker})
			binary.Write(&buf, binary.BigEndian, uint16(len(seg.data)+2))
			buf.Write(seg.data)
		}
	}
	return buf.Bytes(), nil
}

// findExifSegment returns the index of the APP1 segment carrying EXIF, or -1.
func findExifSegment(segs []jpegSegment) int {
	for i, seg := range segs {
		if seg.marker == markerAPP1 && bytes.HasPrefix(seg.data, exifHeader) {
			return i
		}
	}
	return -1
}

// exifInsertIndex is where a new EXIF segment goes: after SOI and any JFIF APP0.
func exifInsertIndex(segs []jpegSegment) int {
	i := 1
	for i < len(segs) && segs[i].marker == markerAPP0 {
		i++
	}
	return i
}
