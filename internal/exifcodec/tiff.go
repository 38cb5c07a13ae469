package exifcodec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
)

// TIFF field types used by this package.
const (
	typeASCII = 2
	typeLong  = 4
	typeIFD   = 13
)

// Tags that need their values rebuilt on write.
const (
	tagExifIFD      = 0x8769
	tagGPSIFD       = 0x8825
	tagInteropIFD   = 0xA005
	tagThumbOffset  = 0x0201
	tagThumbLength  = 0x0202
	tagStripOffsets = 0x0111

	tagPixelXDimension = 0xA002
	tagPixelYDimension = 0xA003
)

const maxDirDepth = 4

var errTruncatedTIFF = errors.New("truncated TIFF structure")

// typeSizes holds the byte size of each TIFF field type (index = type id).
var typeSizes = [...]int{0, 1, 1, 2, 4, 8, 1, 1, 2, 4, 8, 4, 8, 4}

func typeSize(typ uint16) int {
	if int(typ) >= len(typeSizes) {
		return 0
	}
	return typeSizes[typ]
}

func isPointerTag(tag uint16) bool {
	return tag == tagExifIFD || tag == tagGPSIFD || tag == tagInteropIFD
}

// entry is one IFD field. data holds the raw value bytes in the block's byte
// order, so fields are carried over without interpretation.
type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

type directory struct {
	entries   []entry
	subs      map[uint16]*directory
	thumbnail []byte
}

func (d *directory) find(tag uint16) int {
	for i, e := range d.entries {
		if e.tag == tag {
			return i
		}
	}
	return -1
}

// setASCII stores text as a NUL-terminated ASCII field. It reports whether
// the stored bytes changed.
func (d *directory) setASCII(tag uint16, text string) bool {
	data := append([]byte(text), 0)
	e := entry{tag: tag, typ: typeASCII, count: uint32(len(data)), data: data}
	if i := d.find(tag); i >= 0 {
		old := d.entries[i]
		if old.typ == e.typ && string(old.data) == string(e.data) {
			return false
		}
		d.entries[i] = e
		return true
	}
	d.entries = append(d.entries, e)
	return true
}

// setLong stores v as a single LONG field, replacing any existing value.
func (d *directory) setLong(tag uint16, v uint32, order binary.ByteOrder) {
	data := make([]byte, 4)
	order.PutUint32(data, v)
	e := entry{tag: tag, typ: typeLong, count: 1, data: data}
	if i := d.find(tag); i >= 0 {
		d.entries[i] = e
		return
	}
	d.entries = append(d.entries, e)
}

func (d *directory) remove(tag uint16) bool {
	i := d.find(tag)
	if i < 0 {
		return false
	}
	d.entries = append(d.entries[:i], d.entries[i+1:]...)
	return true
}

func (d *directory) empty() bool {
	return len(d.entries) == 0 && len(d.subs) == 0 && d.thumbnail == nil
}

// tiffBlock is a parsed TIFF structure as found in an EXIF APP1 segment:
// the IFD chain (IFD0 and the thumbnail IFD1) with their sub-IFDs.
type tiffBlock struct {
	order binary.ByteOrder
	dirs  []*directory
}

type tiffParser struct {
	b     []byte
	order binary.ByteOrder
	seen  map[uint32]bool
}

func (p *tiffParser) u16(off int) uint16 { return p.order.Uint16(p.b[off:]) }
func (p *tiffParser) u32(off int) uint32 { return p.order.Uint32(p.b[off:]) }

func parseTIFF(b []byte) (*tiffBlock, error) {
	if len(b) < 8 {
		return nil, errTruncatedTIFF
	}
	p := &tiffParser{b: b, seen: make(map[uint32]bool)}
	switch string(b[:2]) {
	case "II":
		p.order = binary.LittleEndian
	case "MM":
		p.order = binary.BigEndian
	default:
		return nil, fmt.Errorf("invalid TIFF byte order %q", b[:2])
	}
	if p.u16(2) != 42 {
		return nil, fmt.Errorf("invalid TIFF magic %d", p.u16(2))
	}

	blk := &tiffBlock{order: p.order}
	off := p.u32(4)
	// IFD0 and IFD1 are the only directories EXIF defines in the chain.
	for off != 0 && len(blk.dirs) < 2 {
		d, next, err := p.readDir(off, 0)
		if err != nil {
			return nil, err
		}
		blk.dirs = append(blk.dirs, d)
		off = next
	}

	// Strip-based thumbnails carry offsets we do not relocate; drop them.
	if len(blk.dirs) == 2 && blk.dirs[1].find(tagStripOffsets) >= 0 {
		blk.dirs = blk.dirs[:1]
	}
	return blk, nil
}

func (p *tiffParser) readDir(off uint32, depth int) (*directory, uint32, error) {
	if depth > maxDirDepth {
		return nil, 0, fmt.Errorf("IFD nesting too deep")
	}
	if p.seen[off] {
		return nil, 0, fmt.Errorf("IFD loop at offset %d", off)
	}
	p.seen[off] = true

	start := int(off)
	if start+2 > len(p.b) {
		return nil, 0, errTruncatedTIFF
	}
	n := int(p.u16(start))
	if start+2+12*n+4 > len(p.b) {
		return nil, 0, errTruncatedTIFF
	}

	d := &directory{}
	var thumbOff, thumbLen int = -1, -1

	for i := 0; i < n; i++ {
		pos := start + 2 + 12*i
		e := entry{tag: p.u16(pos), typ: p.u16(pos + 2), count: p.u32(pos + 4)}

		if typeSize(e.typ) == 0 || e.count > uint32(len(p.b)) {
			continue // unknown type, cannot be carried safely
		}
		size := typeSize(e.typ) * int(e.count)
		if size <= 4 {
			e.data = append([]byte(nil), p.b[pos+8:pos+8+size]...)
		} else {
			valOff := int(p.u32(pos + 8))
			if valOff < 0 || valOff+size > len(p.b) {
				return nil, 0, fmt.Errorf("value of tag %#04x out of bounds", e.tag)
			}
			e.data = append([]byte(nil), p.b[valOff:valOff+size]...)
		}

		if isPointerTag(e.tag) && (e.typ == typeLong || e.typ == typeIFD) && e.count == 1 {
			ptr := p.order.Uint32(e.data)
			if ptr == 0 {
				continue
			}
			sub, _, err := p.readDir(ptr, depth+1)
			if err != nil {
				return nil, 0, fmt.Errorf("failed to read sub-IFD %#04x: %w", e.tag, err)
			}
			if d.subs == nil {
				d.subs = make(map[uint16]*directory)
			}
			d.subs[e.tag] = sub
			continue
		}

		if (e.tag == tagThumbOffset || e.tag == tagThumbLength) && e.typ == typeLong && e.count == 1 {
			v := int(p.order.Uint32(e.data))
			if e.tag == tagThumbOffset {
				thumbOff = v
			} else {
				thumbLen = v
			}
			continue
		}

		d.entries = append(d.entries, e)
	}

	if thumbOff >= 0 && thumbLen > 0 && thumbOff+thumbLen <= len(p.b) {
		d.thumbnail = append([]byte(nil), p.b[thumbOff:thumbOff+thumbLen]...)
	}

	return d, p.u32(start + 2 + 12*n), nil
}

type tiffWriter struct {
	order binary.ByteOrder
	buf   []byte
}

func (w *tiffWriter) align() {
	if len(w.buf)%2 == 1 {
		w.buf = append(w.buf, 0)
	}
}

func (w *tiffWriter) offset() (uint32, error) {
	if uint64(len(w.buf)) > math.MaxUint32 {
		return 0, fmt.Errorf("TIFF block too large")
	}
	return uint32(len(w.buf)), nil
}

// bytes serializes the block with freshly computed offsets.
func (blk *tiffBlock) bytes() ([]byte, error) {
	w := &tiffWriter{order: blk.order, buf: make([]byte, 8)}
	if blk.order == binary.LittleEndian {
		copy(w.buf, "II")
	} else {
		copy(w.buf, "MM")
	}
	w.order.PutUint16(w.buf[2:], 42)

	nextPos := 4
	for _, d := range blk.dirs {
		off, pos, err := w.writeDir(d)
		if err != nil {
			return nil, err
		}
		w.order.PutUint32(w.buf[nextPos:], off)
		nextPos = pos
	}
	return w.buf, nil
}

// writeDir appends d, its out-of-line values, sub-IFDs and thumbnail. It
// returns the directory offset and the position of its next-IFD field.
func (w *tiffWriter) writeDir(d *directory) (uint32, int, error) {
	entries := append([]entry(nil), d.entries...)
	for tag := range d.subs {
		entries = append(entries, entry{tag: tag, typ: typeLong, count: 1, data: make([]byte, 4)})
	}
	if d.thumbnail != nil {
		length := make([]byte, 4)
		w.order.PutUint32(length, uint32(len(d.thumbnail)))
		entries = append(entries,
			entry{tag: tagThumbOffset, typ: typeLong, count: 1, data: make([]byte, 4)},
			entry{tag: tagThumbLength, typ: typeLong, count: 1, data: length})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	w.align()
	off, err := w.offset()
	if err != nil {
		return 0, 0, err
	}
	start := int(off)
	w.buf = append(w.buf, make([]byte, 2+12*len(entries)+4)...)
	w.order.PutUint16(w.buf[start:], uint16(len(entries)))

	valuePos := make(map[uint16]int, len(entries))
	for i, e := range entries {
		pos := start + 2 + 12*i
		w.order.PutUint16(w.buf[pos:], e.tag)
		w.order.PutUint16(w.buf[pos+2:], e.typ)
		w.order.PutUint32(w.buf[pos+4:], e.count)
		valuePos[e.tag] = pos + 8

		if len(e.data) <= 4 {
			copy(w.buf[pos+8:pos+12], e.data)
			continue
		}
		w.align()
		dataOff, err := w.offset()
		if err != nil {
			return 0, 0, err
		}
		w.buf = append(w.buf, e.data...)
		w.order.PutUint32(w.buf[pos+8:], dataOff)
	}
	nextPos := start + 2 + 12*len(entries)

	tags := make([]int, 0, len(d.subs))
	for tag := range d.subs {
		tags = append(tags, int(tag))
	}
	sort.Ints(tags)
	for _, tag := range tags {
		subOff, _, err := w.writeDir(d.subs[uint16(tag)])
		if err != nil {
			return 0, 0, err
		}
		w.order.PutUint32(w.buf[valuePos[uint16(tag)]:], subOff)
	}

	if d.thumbnail != nil {
		w.align()
		thumbOff, err := w.offset()
		if err != nil {
			return 0, 0, err
		}
		w.buf = append(w.buf, d.thumbnail...)
		w.order.PutUint32(w.buf[valuePos[tagThumbOffset]:], thumbOff)
	}

	return off, nextPos, nil
}
