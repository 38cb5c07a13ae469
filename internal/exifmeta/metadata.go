// Package exifmeta models the capture-time slice of EXIF metadata: camera
// make and model, DateTimeOriginal with its sub-second companion tag, and the
// file modification time used when a photo carries no capture time.
package exifmeta

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedTag marks a tag that is present but cannot be parsed.
var ErrMalformedTag = errors.New("malformed metadata tag")

// MalformedTagError describes a tag whose value could not be parsed.
type MalformedTagError struct {
	Tag   Tag
	Value string
	Err   error
}

func (e *MalformedTagError) Error() string {
	return fmt.Sprintf("malformed %s tag %q: %v", e.Tag.Name(), e.Value, e.Err)
}

func (e *MalformedTagError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrMalformedTag) match.
func (e *MalformedTagError) Is(target error) bool { return target == ErrMalformedTag }

// TagReader gives access to the raw text of a file's metadata tags.
type TagReader interface {
	// Lookup returns the value of tag. ok is false when the tag is absent.
	Lookup(tag Tag) (value string, ok bool, err error)
}

// CaptureMetadata is the decoded metadata of one file. Optional fields are
// nil when the corresponding tag is absent. Values are never modified after
// Decode; changes are expressed as an Update.
//
// EXIF timestamps carry no zone. CaptureTime is the camera's wall clock
// held in time.UTC, so arithmetic on it never crosses a DST transition.
type CaptureMetadata struct {
	Make         *string
	Model        *string
	CaptureTime  *time.Time // wall clock in time.UTC, includes the sub-second part
	SubSecond    *int
	FileModified time.Time

	zone *time.Location // where FileModified is read as a wall clock
}

// EffectiveTime is the capture time, or the file modification time as a
// wall clock in the decode location when the file has none.
func (m CaptureMetadata) EffectiveTime() time.Time {
	if m.CaptureTime != nil {
		return *m.CaptureTime
	}
	return WallClock(m.FileModified, m.zone)
}

// WallClock returns the clock reading of t in loc (time.Local if nil),
// relabeled as time.UTC.
func WallClock(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// HasCaptureTime reports whether DateTimeOriginal was present.
func (m CaptureMetadata) HasCaptureTime() bool {
	return m.CaptureTime != nil
}

// ModelTag returns the camera model with spaces replaced by underscores, or
// "" when the model is unknown.
func (m CaptureMetadata) ModelTag() string {
	if m.Model == nil {
		return ""
	}
	return strings.ReplaceAll(*m.Model, " ", "_")
}

// Decode builds CaptureMetadata from r. A nil reader stands for a file
// without metadata. loc (time.Local if nil) only places fileModified on the
// wall clock; DateTimeOriginal is taken as written.
//
// Absent tags are not errors. Tags that are present but unparsable are
// reported as *MalformedTagError.
func Decode(r TagReader, fileModified time.Time, loc *time.Location) (*CaptureMetadata, error) {
	if loc == nil {
		loc = time.Local
	}
	m := &CaptureMetadata{FileModified: fileModified, zone: loc}
	if r == nil {
		return m, nil
	}

	var err error
	if m.Make, err = lookupString(r, TagMake); err != nil {
		return nil, err
	}
	if m.Model, err = lookupString(r, TagModel); err != nil {
		return nil, err
	}

	date, err := lookupString(r, TagDateTimeOriginal)
	if err != nil {
		return nil, err
	}
	if date != nil && *date != "" {
		t, err := time.Parse(DateLayout, *date)
		if err != nil {
			return nil, &MalformedTagError{Tag: TagDateTimeOriginal, Value: *date, Err: err}
		}
		m.CaptureTime = &t
	}

	sub, err := lookupString(r, TagSubSecTimeOriginal)
	if err != nil {
		return nil, err
	}
	if sub != nil && *sub != "" {
		n, err := strconv.Atoi(*sub)
		if err != nil {
			return nil, &MalformedTagError{Tag: TagSubSecTimeOriginal, Value: *sub, Err: err}
		}
		m.SubSecond = &n
	}

	if m.CaptureTime != nil && m.SubSecond != nil {
		t := WithMillisecond(*m.CaptureTime, *m.SubSecond)
		m.CaptureTime = &t
	}

	return m, nil
}

func lookupString(r TagReader, tag Tag) (*string, error) {
	v, ok, err := r.Lookup(tag)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", tag.Name(), err)
	}
	if !ok {
		return nil, nil
	}
	v = strings.TrimSpace(v)
	return &v, nil
}

// WithMillisecond replaces the sub-second part of t with ms milliseconds.
// Values outside 0-999 carry into the seconds field.
func WithMillisecond(t time.Time, ms int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(),
		ms*int(time.Millisecond), t.Location())
}

// Update is the list of tag edits needed to persist a metadata change.
type Update struct {
	Edits []Edit
}

// Empty reports whether the update would leave the file unchanged.
func (u Update) Empty() bool {
	return len(u.Edits) == 0
}

func (u Update) String() string {
	parts := make([]string, len(u.Edits))
	for i, e := range u.Edits {
		parts[i] = e.String()
	}
	return strings.Join(parts, " ")
}

// BuildUpdate returns the edits that set the capture time of current to
// captureTime with the given sub-second value.
//
// A nil captureTime removes DateTimeOriginal and SubSecTimeOriginal. A nil
// subSecond removes SubSecTimeOriginal. If the file already holds exactly
// these values the update is empty.
func BuildUpdate(current CaptureMetadata, captureTime *time.Time, subSecond *int) Update {
	if captureTime == nil {
		if current.CaptureTime == nil && current.SubSecond == nil {
			return Update{}
		}
		return Update{Edits: []Edit{
			Remove(TagDateTimeOriginal),
			Remove(TagSubSecTimeOriginal),
		}}
	}

	if current.CaptureTime != nil && sameSecond(*current.CaptureTime, *captureTime) && equalInt(current.SubSecond, subSecond) {
		return Update{}
	}

	edits := []Edit{Set(TagDateTimeOriginal, DateValue(*captureTime))}
	if subSecond == nil {
		edits = append(edits, Remove(TagSubSecTimeOriginal))
	} else {
		edits = append(edits, Set(TagSubSecTimeOriginal, IntegerValue(*subSecond)))
	}
	return Update{Edits: edits}
}

// OffsetSeconds converts a day/hour/minute/second offset into seconds.
func OffsetSeconds(days, hours, minutes, seconds int) int64 {
	return int64(days)*86400 + int64(hours)*3600 + int64(minutes)*60 + int64(seconds)
}

// Adjust shifts captureTime by deltaSeconds of wall-clock time. ok is false
// when there is no capture time to shift.
func Adjust(captureTime *time.Time, deltaSeconds int64) (adjusted time.Time, ok bool) {
	if captureTime == nil {
		return time.Time{}, false
	}
	t := WallClock(*captureTime, captureTime.Location())
	return t.Add(time.Duration(deltaSeconds) * time.Second), true
}

// AdjustUpdate shifts the capture time of current and returns the edit that
// persists it along with the new time. The sub-second tag is left as is.
// ok is false when current has no capture time. The update is empty when the
// shift does not change the stored value.
func AdjustUpdate(current CaptureMetadata, deltaSeconds int64) (u Update, adjusted time.Time, ok bool) {
	adjusted, ok = Adjust(current.CaptureTime, deltaSeconds)
	if !ok {
		return Update{}, time.Time{}, false
	}
	if sameSecond(adjusted, *current.CaptureTime) {
		return Update{}, adjusted, true
	}
	return Update{Edits: []Edit{Set(TagDateTimeOriginal, DateValue(adjusted))}}, adjusted, true
}

// ParseTimestampArg parses a "yyyyMMddHHmmss" or "yyyyMMddHHmmssSSS" string
// into a wall clock in time.UTC. The millisecond part is returned separately
// and is nil for the 14-digit form.
func ParseTimestampArg(s string) (time.Time, *int, error) {
	const layout = "20060102150405"

	switch len(s) {
	case len(layout):
		t, err := time.Parse(layout, s)
		if err != nil {
			return time.Time{}, nil, fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		return t, nil, nil
	case len(layout) + 3:
		t, err := time.Parse(layout, s[:len(layout)])
		if err != nil {
			return time.Time{}, nil, fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		ms, err := strconv.Atoi(s[len(layout):])
		if err != nil || ms < 0 {
			return time.Time{}, nil, fmt.Errorf("invalid milliseconds in timestamp %q", s)
		}
		return WithMillisecond(t, ms), &ms, nil
	default:
		return time.Time{}, nil, fmt.Errorf("invalid timestamp %q: want yyyyMMddHHmmss or yyyyMMddHHmmssSSS", s)
	}
}

// sameSecond compares wall clocks, ignoring the zone either value is in.
func sameSecond(a, b time.Time) bool {
	return a.Format(DateLayout) == b.Format(DateLayout)
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
