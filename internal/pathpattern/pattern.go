// Package pathpattern parses and matches the path patterns used for route registration.
//
// A pattern is a slash separated list of segments. Each segment is one of:
//
//   - a literal, e.g. "users"
//   - a named parameter, written ":id" or "{id}"
//   - a wildcard "*", matching exactly one segment, or any remainder when it is the last segment
//
// The single pattern "*" matches every path.
package pathpattern

import (
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
)

type segmentKind int

const (
	literalSegment segmentKind = iota
	paramSegment
	wildcardSegment
)

type segment struct {
	kind segmentKind
	s    string // literal text or parameter name
}

// Pattern is a compiled path pattern.
type Pattern struct {
	raw      string
	segs     []segment
	names    []string
	universe bool
	trailing bool // last segment is a wildcard that consumes the remainder
}

// ParsePattern compiles s into a pattern.
func ParsePattern(s string) (*Pattern, error) {
	if s == "" {
		return nil, errors.New("empty pattern")
	}

	p := &Pattern{raw: s}
	if s == "*" {
		p.universe = true
		return p, nil
	}

	if s[0] != '/' {
		return nil, errors.Newf("pattern %q must start with '/'", s)
	}

	seen := map[string]struct{}{}
	parts := splitPath(s)
	for i, part := range parts {
		var seg segment
		switch {
		case part == "*":
			seg = segment{kind: wildcardSegment}
			if i == len(parts)-1 {
				p.trailing = true
			}
		case strings.HasPrefix(part, ":"):
			seg = segment{kind: paramSegment, s: part[1:]}
		case strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}"):
			seg = segment{kind: paramSegment, s: part[1 : len(part)-1]}
		case strings.ContainsAny(part, "{}"):
			return nil, errors.Newf("pattern %q: malformed segment %q", s, part)
		default:
			seg = segment{kind: literalSegment, s: part}
		}

		if seg.kind == paramSegment {
			if seg.s == "" {
				return nil, errors.Newf("pattern %q: empty parameter name", s)
			}
			if _, dup := seen[seg.s]; dup {
				return nil, errors.Newf("pattern %q: duplicate parameter name %q", s, seg.s)
			}
			seen[seg.s] = struct{}{}
			p.names = append(p.names, seg.s)
		}

		p.segs = append(p.segs, seg)
	}

	return p, nil
}

// MustParse is like [ParsePattern] but panics on error.
func MustParse(s string) *Pattern {
	p, err := ParsePattern(s)
	if err != nil {
		panic("pathpattern: " + err.Error())
	}
	return p
}

// String returns the pattern as it was registered.
func (p *Pattern) String() string { return p.raw }

// ParamNames returns the parameter names in the order they appear.
func (p *Pattern) ParamNames() []string { return p.names }

// Match reports whether path matches the pattern and returns the extracted
// path parameters. The returned map is never nil on a match.
func (p *Pattern) Match(path string) (map[string]string, bool) {
	if p.universe {
		return map[string]string{}, true
	}

	parts := splitPath(path)
	params := make(map[string]string, len(p.names))

	for i, seg := range p.segs {
		if seg.kind == wildcardSegment && p.trailing && i == len(p.segs)-1 {
			return params, true
		}

		if i >= len(parts) {
			return nil, false
		}

		switch seg.kind {
		case literalSegment:
			if parts[i] != seg.s {
				return nil, false
			}
		case paramSegment:
			if parts[i] == "" {
				return nil, false
			}
			params[seg.s] = parts[i]
		case wildcardSegment:
			if parts[i] == "" {
				return nil, false
			}
		}
	}

	if len(parts) != len(p.segs) {
		return nil, false
	}

	return params, true
}

// Build substitutes vals into the parameters of p, in order.
func Build(p *Pattern, vals ...string) (string, error) {
	if p.universe || p.trailing {
		return "", errors.Newf("pattern %q contains a wildcard and cannot be built", p.raw)
	}

	if len(vals) < len(p.names) {
		return "", errors.Newf("not enough values for pattern %q: got %d, want %d", p.raw, len(vals), len(p.names))
	}

	if len(vals) > len(p.names) {
		return "", errors.Newf("too many values for pattern %q: got %d, want %d", p.raw, len(vals), len(p.names))
	}

	var sb strings.Builder
	var vi int
	for _, seg := range p.segs {
		sb.WriteByte('/')
		switch seg.kind {
		case literalSegment:
			sb.WriteString(seg.s)
		case paramSegment:
			sb.WriteString(url.PathEscape(vals[vi]))
			vi++
		case wildcardSegment:
			return "", errors.Newf("pattern %q contains a wildcard and cannot be built", p.raw)
		}
	}

	if sb.Len() == 0 {
		return "/", nil
	}

	return sb.String(), nil
}

// splitPath splits a path into its segments; "/" yields no segments.
func splitPath(path string) []string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
