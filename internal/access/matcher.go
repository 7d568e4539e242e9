package access

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMalformedPattern is returned when a route pattern cannot be compiled.
var ErrMalformedPattern = errors.New("malformed route pattern")

// AnySegment is the anonymous parameter marker: it matches exactly one
// non-empty segment, like a named ":param".
const AnySegment = "*"

type segmentKind uint8

const (
	literalSegment segmentKind = iota
	paramSegment
)

type segment struct {
	kind segmentKind
	// value is the literal text, or the parameter name ("" for AnySegment).
	value string
}

// Pattern is a compiled route pattern such as "/branch/view/edit/:id".
//
//	"/user/create"           matches "/user/create" only
//	"/user/*"                matches "/user/create", not "/user" or "/user/a/b"
//	"/branch/view/edit/:id"  matches "/branch/view/edit/42", not "/branch/view/edit/"
//	"/"                      matches "", "/" and "/?tab=1"
//
// Segment counts must be equal; there is no prefix or recursive matching.
type Pattern struct {
	raw      string
	segments []segment
}

// CompilePattern parses raw into a Pattern.
func CompilePattern(raw string) (Pattern, error) {
	if !strings.HasPrefix(raw, "/") {
		return Pattern{}, fmt.Errorf("%w: %q must start with /", ErrMalformedPattern, raw)
	}
	if strings.ContainsAny(raw, "?#") {
		return Pattern{}, fmt.Errorf("%w: %q contains a query or fragment", ErrMalformedPattern, raw)
	}

	parts := splitSegments(raw)
	segments := make([]segment, 0, len(parts))
	names := make(map[string]struct{})
	for _, part := range parts {
		switch {
		case part == AnySegment:
			segments = append(segments, segment{kind: paramSegment})
		case strings.HasPrefix(part, ":"):
			name := part[1:]
			if name == "" {
				return Pattern{}, fmt.Errorf("%w: %q has an unnamed parameter", ErrMalformedPattern, raw)
			}
			if _, dup := names[name]; dup {
				return Pattern{}, fmt.Errorf("%w: %q repeats parameter %q", ErrMalformedPattern, raw, name)
			}
			names[name] = struct{}{}
			segments = append(segments, segment{kind: paramSegment, value: name})
		case strings.Contains(part, AnySegment):
			return Pattern{}, fmt.Errorf("%w: %q uses * inside a segment", ErrMalformedPattern, raw)
		case isDotSegment(part):
			return Pattern{}, fmt.Errorf("%w: %q contains a dot segment", ErrMalformedPattern, raw)
		default:
			segments = append(segments, segment{kind: literalSegment, value: part})
		}
	}
	return Pattern{raw: raw, segments: segments}, nil
}

// String returns the pattern as written.
func (p Pattern) String() string {
	return p.raw
}

// Match reports whether path is fully covered by the pattern.
func (p Pattern) Match(path string) bool {
	_, ok := p.match(path, false)
	return ok
}

// Params returns the named parameter values captured from path. Captures are
// informational only; authorization never depends on them.
func (p Pattern) Params(path string) (map[string]string, bool) {
	return p.match(path, true)
}

func (p Pattern) match(path string, capture bool) (map[string]string, bool) {
	if p.raw == "" {
		// Zero value: never compiled, never matches.
		return nil, false
	}
	parts, ok := normalizePath(path)
	if !ok || len(parts) != len(p.segments) {
		return nil, false
	}

	var params map[string]string
	if capture {
		params = make(map[string]string)
	}
	for i, seg := range p.segments {
		part := parts[i]
		switch seg.kind {
		case literalSegment:
			if part != seg.value {
				return nil, false
			}
		case paramSegment:
			if part == "" {
				return nil, false
			}
			if capture && seg.value != "" {
				params[seg.value] = part
			}
		}
	}
	return params, true
}

// Matches reports whether path matches pattern. Malformed patterns never match.
func Matches(path, pattern string) bool {
	compiled, err := CompilePattern(pattern)
	if err != nil {
		return false
	}
	return compiled.Match(path)
}

// MatchAny reports whether path matches any of patterns. It returns on the
// first match; pattern order does not affect the result.
func MatchAny(path string, patterns []string) bool {
	_, ok := firstMatch(path, patterns)
	return ok
}

func firstMatch(path string, patterns []string) (string, bool) {
	for _, pattern := range patterns {
		if Matches(path, pattern) {
			return pattern, true
		}
	}
	return "", false
}

// NormalizePath returns the canonical form of a request path: query and
// fragment removed, empty segments collapsed, no trailing slash. It reports
// false for paths containing dot segments, which never match anything.
func NormalizePath(path string) (string, bool) {
	parts, ok := normalizePath(path)
	if !ok {
		return "", false
	}
	return "/" + strings.Join(parts, "/"), true
}

func normalizePath(path string) ([]string, bool) {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	parts := splitSegments(path)
	for _, part := range parts {
		if isDotSegment(part) {
			return nil, false
		}
	}
	return parts, true
}

func splitSegments(s string) []string {
	fields := strings.Split(s, "/")
	parts := fields[:0]
	for _, field := range fields {
		if field != "" {
			parts = append(parts, field)
		}
	}
	return parts
}

// isDotSegment reports "." and ".." including their percent-encoded forms.
// The browser resolves these before rendering, so a path containing one does
// not name the route it appears to.
func isDotSegment(part string) bool {
	if part == "." || part == ".." {
		return true
	}
	if !strings.Contains(part, "%") {
		return false
	}
	decoded, err := url.PathUnescape(part)
	if err != nil {
		return true
	}
	return decoded == "." || decoded == ".."
}
