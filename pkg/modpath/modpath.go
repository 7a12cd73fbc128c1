// Package modpath provides fully-qualified module path handling.
//
// A module path is a sequence of segments joined by "::", e.g.
// "pkg::sub::leaf". The first segment is the crate name.
package modpath

import (
	"encoding/json"
	"strings"
)

// Delimiter separates path segments.
const Delimiter = "::"

// Path is a fully-qualified module path. The zero value is the empty path.
type Path struct {
	segments []string
}

// New builds a path from segments. Empty segments are dropped.
func New(segments ...string) Path {
	out := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			out = append(out, s)
		}
	}
	return Path{segments: out}
}

// Parse splits a "::"-delimited string into a path.
func Parse(s string) Path {
	if s == "" {
		return Path{}
	}
	return New(strings.Split(s, Delimiter)...)
}

// String returns the "::"-joined form.
func (p Path) String() string {
	return strings.Join(p.segments, Delimiter)
}

// Segments returns a copy of the segment sequence.
func (p Path) Segments() []string {
	out := make([]string, len(p.segments))
	copy(out, p.segments)
	return out
}

// Len returns the number of segments.
func (p Path) Len() int {
	return len(p.segments)
}

// IsZero reports whether the path has no segments.
func (p Path) IsZero() bool {
	return len(p.segments) == 0
}

// Crate returns the first segment, or "" for the empty path.
func (p Path) Crate() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[0]
}

// Parent returns the path with the final segment dropped.
func (p Path) Parent() Path {
	if len(p.segments) <= 1 {
		return Path{}
	}
	return New(p.segments[:len(p.segments)-1]...)
}

// Child returns the path extended by one segment.
func (p Path) Child(segment string) Path {
	segs := make([]string, 0, len(p.segments)+1)
	segs = append(segs, p.segments...)
	segs = append(segs, segment)
	return New(segs...)
}

// Equal reports segment-wise equality.
func (p Path) Equal(other Path) bool {
	if len(p.segments) != len(other.segments) {
		return false
	}
	for i, s := range p.segments {
		if s != other.segments[i] {
			return false
		}
	}
	return true
}

// Less orders paths lexicographically by their string form. Used wherever
// externally visible iteration order must be deterministic.
func (p Path) Less(other Path) bool {
	return p.String() < other.String()
}

// HasPrefix reports whether prefix is a leading subsequence of p.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix.segments) > len(p.segments) {
		return false
	}
	for i, s := range prefix.segments {
		if p.segments[i] != s {
			return false
		}
	}
	return true
}

// CommonPrefixLen returns the number of leading segments p and other share.
func (p Path) CommonPrefixLen(other Path) int {
	n := 0
	for n < len(p.segments) && n < len(other.segments) && p.segments[n] == other.segments[n] {
		n++
	}
	return n
}

// MarshalJSON encodes the path as its "::"-joined string form.
func (p Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes the "::"-joined string form.
func (p *Path) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*p = Parse(s)
	return nil
}

// Resolve rewrites the reserved self-referential prefixes of a raw target
// path relative to the module it occurs in: "crate::x" re-roots at the
// current crate, "self::x" at the current module, and each leading "super"
// pops one segment off the current module. Paths without a reserved prefix
// are parsed as written.
func Resolve(raw string, current Path) Path {
	raw = strings.TrimPrefix(raw, Delimiter)
	parts := strings.Split(raw, Delimiter)
	if len(parts) == 0 {
		return Path{}
	}

	switch parts[0] {
	case "crate":
		return New(append([]string{current.Crate()}, parts[1:]...)...)
	case "self":
		return New(append(current.Segments(), parts[1:]...)...)
	case "super":
		base := current
		for len(parts) > 0 && parts[0] == "super" {
			base = base.Parent()
			parts = parts[1:]
		}
		if base.IsZero() {
			base = New(current.Crate())
		}
		return New(append(base.Segments(), parts...)...)
	default:
		return New(parts...)
	}
}
