// Package naming generates timestamp-based file names for batch renames and
// resolves collisions with a linear counter probe.
package naming

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrExhausted is returned by NextAvailableLimit when every counter up to the
// limit is taken.
var ErrExhausted = errors.New("no free file name within counter limit")

// ExtensionCase controls how the file extension is cased.
type ExtensionCase int

const (
	ExtensionUnchanged ExtensionCase = iota
	ExtensionUpper
	ExtensionLower
)

func (c ExtensionCase) apply(ext string) string {
	if ext == "" {
		return ext
	}
	switch c {
	case ExtensionUpper:
		return strings.ToUpper(ext)
	case ExtensionLower:
		return strings.ToLower(ext)
	default:
		return ext
	}
}

const (
	timestampLayout = "20060102_150405"
	joiner          = "_"
)

// Request describes the name to generate.
type Request struct {
	Time          time.Time
	Milliseconds  bool   // append SSS to the timestamp
	Model         string // spaces become underscores
	Prefix        string
	Suffix        string
	Extension     string // including the leading dot, may be empty
	ExtensionCase ExtensionCase
	CounterWidth  int // digits of the zero-padded counter; 0 omits the first counter
}

// FormatTimestamp renders t as yyyyMMdd_HHmmss, or yyyyMMdd_HHmmssSSS when
// withMillis is set.
func FormatTimestamp(t time.Time, withMillis bool) string {
	s := t.Format(timestampLayout)
	if withMillis {
		s += fmt.Sprintf("%03d", t.Nanosecond()/int(time.Millisecond))
	}
	return s
}

// Candidate returns the name for the given counter value. Non-empty segments
// are joined with an underscore in the order prefix, timestamp, model,
// counter, suffix; the extension follows.
func (r Request) Candidate(counter int) string {
	segments := []string{
		r.Prefix,
		FormatTimestamp(r.Time, r.Milliseconds),
		strings.ReplaceAll(r.Model, " ", "_"),
		r.counter(counter),
		r.Suffix,
	}

	var b strings.Builder
	for _, s := range segments {
		if s == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(joiner)
		}
		b.WriteString(s)
	}
	b.WriteString(r.ExtensionCase.apply(r.Extension))
	return b.String()
}

func (r Request) counter(n int) string {
	if r.CounterWidth > 0 {
		return fmt.Sprintf("%0*d", r.CounterWidth, n)
	}
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// NextAvailable returns the first candidate, counting up from 0, for which
// exists reports false. It performs no I/O itself; there is no guarantee the
// name is still free when the caller uses it.
func NextAvailable(r Request, exists func(name string) bool) string {
	for counter := 0; ; counter++ {
		candidate := r.Candidate(counter)
		if !exists(candidate) {
			return candidate
		}
	}
}

// NextAvailableLimit is NextAvailable that gives up after counter exceeds max.
func NextAvailableLimit(r Request, exists func(name string) bool, max int) (string, error) {
	for counter := 0; counter <= max; counter++ {
		candidate := r.Candidate(counter)
		if !exists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s (limit %d)", ErrExhausted, r.Candidate(0), max)
}

// SplitExt splits a file name into its base and extension (with the dot).
// A leading dot does not start an extension, so ".profile" has none.
func SplitExt(filename string) (base, ext string) {
	name := filepath.Base(filename)
	i := strings.LastIndex(name, ".")
	if i <= 0 {
		return name, ""
	}
	return name[:i], name[i:]
}
