package exifmeta

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrUnsupportedKind is returned when a value cannot be written to a tag.
var ErrUnsupportedKind = errors.New("unsupported tag value kind")

// DateLayout is the textual layout of EXIF date/time tags.
const DateLayout = "2006:01:02 15:04:05"

// IFD identifies which TIFF directory a tag lives in.
type IFD int

const (
	IFD0 IFD = iota
	ExifIFD
)

func (d IFD) String() string {
	switch d {
	case IFD0:
		return "IFD0"
	case ExifIFD:
		return "Exif"
	default:
		return fmt.Sprintf("IFD(%d)", int(d))
	}
}

// Tag is one of the metadata tags the tools read or write. All of them are
// ASCII tags; other TIFF types are out of reach on purpose.
type Tag int

const (
	TagMake Tag = iota
	TagModel
	TagDateTimeOriginal
	TagSubSecTimeOriginal
)

var tagInfo = [...]struct {
	name string
	id   uint16
	ifd  IFD
}{
	TagMake:               {"Make", 0x010F, IFD0},
	TagModel:              {"Model", 0x0110, IFD0},
	TagDateTimeOriginal:   {"DateTimeOriginal", 0x9003, ExifIFD},
	TagSubSecTimeOriginal: {"SubSecTimeOriginal", 0x9291, ExifIFD},
}

// Tags lists every supported tag.
var Tags = []Tag{TagMake, TagModel, TagDateTimeOriginal, TagSubSecTimeOriginal}

func (t Tag) valid() bool { return t >= 0 && int(t) < len(tagInfo) }

// Name is the EXIF field name, e.g. "DateTimeOriginal".
func (t Tag) Name() string {
	if !t.valid() {
		return fmt.Sprintf("Tag(%d)", int(t))
	}
	return tagInfo[t].name
}

// ID is the numeric TIFF tag id.
func (t Tag) ID() uint16 {
	if !t.valid() {
		return 0
	}
	return tagInfo[t].id
}

// IFD is the directory the tag belongs to.
func (t Tag) IFD() IFD {
	if !t.valid() {
		return IFD0
	}
	return tagInfo[t].ifd
}

func (t Tag) String() string { return t.Name() }

// ValueKind is the closed set of Go values that can be stored in an ASCII tag.
type ValueKind int

const (
	KindInvalid ValueKind = iota
	KindString
	KindInteger
	KindDate
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindDate:
		return "date"
	default:
		return "invalid"
	}
}

// Value is a tag value of one of the supported kinds.
type Value struct {
	kind ValueKind
	str  string
	num  int
	date time.Time
}

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// IntegerValue wraps an integer, written in plain decimal.
func IntegerValue(n int) Value { return Value{kind: KindInteger, num: n} }

// DateValue wraps a timestamp, written with DateLayout (whole seconds).
func DateValue(t time.Time) Value { return Value{kind: KindDate, date: t} }

// Kind returns the value kind.
func (v Value) Kind() ValueKind { return v.kind }

// Text renders the value as it is stored in an ASCII tag.
func (v Value) Text() (string, error) {
	switch v.kind {
	case KindString:
		return v.str, nil
	case KindInteger:
		return strconv.Itoa(v.num), nil
	case KindDate:
		return v.date.Format(DateLayout), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedKind, v.kind)
	}
}

func (v Value) String() string {
	s, err := v.Text()
	if err != nil {
		return "<" + v.kind.String() + ">"
	}
	return s
}

// Edit sets or removes a single tag. A nil Value removes the tag.
type Edit struct {
	Tag   Tag
	Value *Value
}

// Set returns an edit that writes v to tag.
func Set(tag Tag, v Value) Edit { return Edit{Tag: tag, Value: &v} }

// Remove returns an edit that deletes tag.
func Remove(tag Tag) Edit { return Edit{Tag: tag} }

// IsRemove reports whether the edit deletes its tag.
func (e Edit) IsRemove() bool { return e.Value == nil }

func (e Edit) String() string {
	if e.IsRemove() {
		return "-" + e.Tag.Name()
	}
	return e.Tag.Name() + "=" + e.Value.String()
}
