package exifmeta

import (
	"errors"
	"testing"
	"time"
	_ "time/tzdata"
)

// mapReader is a TagReader backed by a map.
type mapReader map[Tag]string

func (m mapReader) Lookup(tag Tag) (string, bool, error) {
	v, ok := m[tag]
	return v, ok, nil
}

type failingReader struct{}

func (failingReader) Lookup(Tag) (string, bool, error) {
	return "", false, errors.New("boom")
}

var modTime = time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

func intPtr(n int) *int { return &n }

func timePtr(t time.Time) *time.Time { return &t }

func TestDecode_Full(t *testing.T) {
	r := mapReader{
		TagMake:               "Apple",
		TagModel:              "iPhone 6 ",
		TagDateTimeOriginal:   "2015:10:29 11:08:57",
		TagSubSecTimeOriginal: "789",
	}

	m, err := Decode(r, modTime, time.UTC)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if m.Make == nil || *m.Make != "Apple" {
		t.Errorf("Make = %v, want Apple", m.Make)
	}
	if m.Model == nil || *m.Model != "iPhone 6" {
		t.Errorf("Model = %v, want trimmed iPhone 6", m.Model)
	}
	want := time.Date(2015, 10, 29, 11, 8, 57, 789*int(time.Millisecond), time.UTC)
	if m.CaptureTime == nil || !m.CaptureTime.Equal(want) {
		t.Errorf("CaptureTime = %v, want %v", m.CaptureTime, want)
	}
	if m.SubSecond == nil || *m.SubSecond != 789 {
		t.Errorf("SubSecond = %v, want 789", m.SubSecond)
	}
	if !m.FileModified.Equal(modTime) {
		t.Errorf("FileModified = %v, want %v", m.FileModified, modTime)
	}
	if got := m.ModelTag(); got != "iPhone_6" {
		t.Errorf("ModelTag() = %q, want iPhone_6", got)
	}
}

func TestDecode_NoSubSecond(t *testing.T) {
	m, err := Decode(mapReader{TagDateTimeOriginal: "2015:10:29 11:08:57"}, modTime, time.UTC)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if m.CaptureTime == nil {
		t.Fatal("CaptureTime should be set")
	}
	if ns := m.CaptureTime.Nanosecond(); ns != 0 {
		t.Errorf("Nanosecond = %d, want 0", ns)
	}
	if m.SubSecond != nil {
		t.Errorf("SubSecond = %v, want nil", *m.SubSecond)
	}
}

func TestDecode_AbsentTags(t *testing.T) {
	m, err := Decode(mapReader{}, modTime, time.UTC)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if m.Make != nil || m.Model != nil || m.CaptureTime != nil || m.SubSecond != nil {
		t.Errorf("expected all optional fields nil, got %+v", m)
	}
	if m.HasCaptureTime() {
		t.Error("HasCaptureTime should be false")
	}
	if !m.EffectiveTime().Equal(modTime) {
		t.Errorf("EffectiveTime = %v, want file modified time", m.EffectiveTime())
	}
	if m.ModelTag() != "" {
		t.Errorf("ModelTag = %q, want empty", m.ModelTag())
	}
}

func TestDecode_NilReader(t *testing.T) {
	m, err := Decode(nil, modTime, nil)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if m.CaptureTime != nil {
		t.Error("CaptureTime should be nil")
	}
	if !m.FileModified.Equal(modTime) {
		t.Error("FileModified should always be set")
	}
}

func TestDecode_EmptyStrings(t *testing.T) {
	r := mapReader{
		TagMake:               "   ",
		TagDateTimeOriginal:   "  ",
		TagSubSecTimeOriginal: "",
	}
	m, err := Decode(r, modTime, time.UTC)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if m.Make == nil || *m.Make != "" {
		t.Errorf("Make = %v, want present but empty", m.Make)
	}
	if m.CaptureTime != nil {
		t.Errorf("blank DateTimeOriginal should decode as absent, got %v", m.CaptureTime)
	}
	if m.SubSecond != nil {
		t.Errorf("blank SubSecTimeOriginal should decode as absent, got %v", *m.SubSecond)
	}
}

func TestDecode_SubSecondWithoutDate(t *testing.T) {
	m, err := Decode(mapReader{TagSubSecTimeOriginal: "42"}, modTime, time.UTC)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if m.CaptureTime != nil {
		t.Error("CaptureTime should be nil")
	}
	if m.SubSecond == nil || *m.SubSecond != 42 {
		t.Errorf("SubSecond = %v, want 42", m.SubSecond)
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		r    mapReader
		tag  Tag
	}{
		{"bad date", mapReader{TagDateTimeOriginal: "2015-10-29 11:08:57"}, TagDateTimeOriginal},
		{"zero date", mapReader{TagDateTimeOriginal: "0000:00:00 00:00:00"}, TagDateTimeOriginal},
		{"bad sub-second", mapReader{TagDateTimeOriginal: "2015:10:29 11:08:57", TagSubSecTimeOriginal: "7a"}, TagSubSecTimeOriginal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.r, modTime, time.UTC)
			if !errors.Is(err, ErrMalformedTag) {
				t.Fatalf("error = %v, want ErrMalformedTag", err)
			}
			var mte *MalformedTagError
			if !errors.As(err, &mte) {
				t.Fatalf("error should be *MalformedTagError, got %T", err)
			}
			if mte.Tag != tt.tag {
				t.Errorf("Tag = %v, want %v", mte.Tag, tt.tag)
			}
		})
	}
}

func TestDecode_ReaderError(t *testing.T) {
	_, err := Decode(failingReader{}, modTime, time.UTC)
	if err == nil {
		t.Fatal("expected error from failing reader")
	}
	if errors.Is(err, ErrMalformedTag) {
		t.Error("reader failure should not be reported as a malformed tag")
	}
}

func TestBuildUpdate(t *testing.T) {
	existing := time.Date(2015, 10, 29, 11, 8, 57, 789*int(time.Millisecond), time.UTC)
	current := CaptureMetadata{CaptureTime: &existing, SubSecond: intPtr(789), FileModified: modTime}
	newTime := time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		current   CaptureMetadata
		time      *time.Time
		subSecond *int
		expected  string
	}{
		{"set with sub-second", current, &newTime, intPtr(123), "DateTimeOriginal=2016:01:01 00:00:00 SubSecTimeOriginal=123"},
		{"set zero sub-second", current, &newTime, intPtr(0), "DateTimeOriginal=2016:01:01 00:00:00 SubSecTimeOriginal=0"},
		{"set clears sub-second", current, &newTime, nil, "DateTimeOriginal=2016:01:01 00:00:00 -SubSecTimeOriginal"},
		{"clear", current, nil, nil, "-DateTimeOriginal -SubSecTimeOriginal"},
		{"clear ignores sub-second", current, nil, intPtr(5), "-DateTimeOriginal -SubSecTimeOriginal"},
		{"unchanged", current, timePtr(existing), intPtr(789), ""},
		{"clear without tags", CaptureMetadata{FileModified: modTime}, nil, nil, ""},
		{"set on empty file", CaptureMetadata{FileModified: modTime}, &newTime, nil, "DateTimeOriginal=2016:01:01 00:00:00 -SubSecTimeOriginal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := BuildUpdate(tt.current, tt.time, tt.subSecond)
			if got := u.String(); got != tt.expected {
				t.Errorf("BuildUpdate = %q, want %q", got, tt.expected)
			}
			if u.Empty() != (tt.expected == "") {
				t.Errorf("Empty() = %v", u.Empty())
			}
		})
	}
}

func TestOffsetSeconds(t *testing.T) {
	tests := []struct {
		d, h, m, s int
		expected   int64
	}{
		{0, 0, 0, 0, 0},
		{1, 0, 0, 0, 86400},
		{0, 1, 0, 0, 3600},
		{0, 0, 1, 0, 60},
		{0, 0, 0, 1, 1},
		{1, 2, 3, 4, 93784},
		{-1, 0, 0, 30, -86370},
	}

	for _, tt := range tests {
		if got := OffsetSeconds(tt.d, tt.h, tt.m, tt.s); got != tt.expected {
			t.Errorf("OffsetSeconds(%d, %d, %d, %d) = %d, want %d", tt.d, tt.h, tt.m, tt.s, got, tt.expected)
		}
	}
}

func TestAdjust_RoundTrip(t *testing.T) {
	original := time.Date(2015, 10, 29, 11, 8, 57, 789*int(time.Millisecond), time.UTC)

	for _, delta := range []int64{1, 59, 3600, 86400 * 400, OffsetSeconds(1, 2, 3, 4)} {
		forward, ok := Adjust(&original, delta)
		if !ok {
			t.Fatal("Adjust should succeed")
		}
		back, ok := Adjust(&forward, -delta)
		if !ok {
			t.Fatal("Adjust should succeed")
		}
		if !back.Equal(original) {
			t.Errorf("round trip by %d = %v, want %v", delta, back, original)
		}
	}
}

func TestAdjust_NoCaptureTime(t *testing.T) {
	if _, ok := Adjust(nil, 60); ok {
		t.Error("Adjust(nil) should report nothing to adjust")
	}

	u, _, ok := AdjustUpdate(CaptureMetadata{FileModified: modTime}, 60)
	if ok {
		t.Error("AdjustUpdate should report nothing to adjust")
	}
	if !u.Empty() {
		t.Errorf("update should be empty, got %s", u)
	}
}

func TestAdjustUpdate(t *testing.T) {
	existing := time.Date(2015, 10, 29, 11, 8, 57, 789*int(time.Millisecond), time.UTC)
	current := CaptureMetadata{CaptureTime: &existing, SubSecond: intPtr(789)}

	u, adjusted, ok := AdjustUpdate(current, OffsetSeconds(0, 1, 0, 0))
	if !ok {
		t.Fatal("AdjustUpdate should succeed")
	}
	if got, want := u.String(), "DateTimeOriginal=2015:10:29 12:08:57"; got != want {
		t.Errorf("update = %q, want %q", got, want)
	}
	if adjusted.Nanosecond() != 789*int(time.Millisecond) {
		t.Errorf("sub-second part should be preserved, got %d", adjusted.Nanosecond())
	}

	u, _, ok = AdjustUpdate(current, 0)
	if !ok {
		t.Fatal("AdjustUpdate should succeed")
	}
	if !u.Empty() {
		t.Errorf("zero delta should give an empty update, got %s", u)
	}

	u, _, _ = AdjustUpdate(current, OffsetSeconds(0, 1, -60, 0))
	if !u.Empty() {
		t.Errorf("net-zero delta should give an empty update, got %s", u)
	}
}

func TestWallClock_AcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		date     string
		delta    int64
		expected string
	}{
		{"spring forward gap", "2015:03:08 02:30:00", 1, "2015:03:08 02:30:01"},
		{"into the gap", "2015:03:08 01:30:00", 3600, "2015:03:08 02:30:00"},
		{"fall back hour", "2015:11:01 01:30:00", 3600, "2015:11:01 02:30:00"},
		{"back across fall back", "2015:11:01 02:30:00", -3600, "2015:11:01 01:30:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode(mapReader{TagDateTimeOriginal: tt.date}, modTime, ny)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if got := m.CaptureTime.Format(DateLayout); got != tt.date {
				t.Errorf("decoded = %s, want %s", got, tt.date)
			}

			u, _, ok := AdjustUpdate(*m, tt.delta)
			if !ok {
				t.Fatal("AdjustUpdate should succeed")
			}
			if got, want := u.String(), "DateTimeOriginal="+tt.expected; got != want {
				t.Errorf("update = %q, want %q", got, want)
			}
		})
	}
}

func TestEffectiveTime_FileModifiedInZone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	modified := time.Date(2015, 3, 8, 7, 30, 0, 0, time.UTC) // 03:30 EDT

	m, err := Decode(nil, modified, ny)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := time.Date(2015, 3, 8, 3, 30, 0, 0, time.UTC)
	if got := m.EffectiveTime(); !got.Equal(want) {
		t.Errorf("EffectiveTime = %v, want %v", got, want)
	}
	if !m.FileModified.Equal(modified) {
		t.Errorf("FileModified = %v, want %v", m.FileModified, modified)
	}
}

func TestParseTimestampArg(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Time
		ms       *int
		wantErr  bool
	}{
		{"20151029110857", time.Date(2015, 10, 29, 11, 8, 57, 0, time.UTC), nil, false},
		{"20151029110857789", time.Date(2015, 10, 29, 11, 8, 57, 789*int(time.Millisecond), time.UTC), intPtr(789), false},
		{"20151029110857007", time.Date(2015, 10, 29, 11, 8, 57, 7*int(time.Millisecond), time.UTC), intPtr(7), false},
		{"2015102911085", time.Time{}, nil, true},
		{"20151329110857", time.Time{}, nil, true},
		{"2015102911085x789", time.Time{}, nil, true},
		{"20151029110857-01", time.Time{}, nil, true},
		{"", time.Time{}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ms, err := ParseTimestampArg(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseTimestampArg(%q) should fail", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimestampArg(%q) failed: %v", tt.input, err)
			}
			if !got.Equal(tt.expected) {
				t.Errorf("time = %v, want %v", got, tt.expected)
			}
			if !equalInt(ms, tt.ms) {
				t.Errorf("ms = %v, want %v", ms, tt.ms)
			}
		})
	}
}

func TestValueText(t *testing.T) {
	tests := []struct {
		name     string
		value    Value
		expected string
		wantErr  bool
	}{
		{"string", StringValue("Apple"), "Apple", false},
		{"integer", IntegerValue(789), "789", false},
		{"zero", IntegerValue(0), "0", false},
		{"date", DateValue(time.Date(2015, 10, 29, 11, 8, 57, 123, time.UTC)), "2015:10:29 11:08:57", false},
		{"invalid", Value{}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.value.Text()
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedKind) {
					t.Errorf("error = %v, want ErrUnsupportedKind", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Text failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Text() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTagInfo(t *testing.T) {
	tests := []struct {
		tag  Tag
		name string
		id   uint16
		ifd  IFD
	}{
		{TagMake, "Make", 0x010F, IFD0},
		{TagModel, "Model", 0x0110, IFD0},
		{TagDateTimeOriginal, "DateTimeOriginal", 0x9003, ExifIFD},
		{TagSubSecTimeOriginal, "SubSecTimeOriginal", 0x9291, ExifIFD},
	}

	for _, tt := range tests {
		if tt.tag.Name() != tt.name || tt.tag.ID() != tt.id || tt.tag.IFD() != tt.ifd {
			t.Errorf("tag %d = (%s, %#x, %s), want (%s, %#x, %s)",
				tt.tag, tt.tag.Name(), tt.tag.ID(), tt.tag.IFD(), tt.name, tt.id, tt.ifd)
		}
	}
}
