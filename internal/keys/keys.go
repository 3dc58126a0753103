// Package keys implements the slash-delimited key parser and the
// wildcard filter used to query the in-memory cache.
//
// Patterns are matched segment by segment: a key matches only when it has
// the same number of segments as the pattern and every segment matches the
// corresponding pattern segment under glob semantics. "*" expands to ".*",
// every other regex metacharacter is escaped, and matching is
// case-insensitive. There is no recursive wildcard; "*" never crosses a
// segment boundary because segments are matched individually.
package keys

import (
	"regexp"
	"strings"
	"sync"
)

// Separator splits keys into segments.
const Separator = "/"

// Split returns the ordered segments of a key.
func Split(key string) []string {
	return strings.Split(key, Separator)
}

// Join assembles segments back into a key.
func Join(parts ...string) string {
	return strings.Join(parts, Separator)
}

// Prefix returns the key formed by the first n segments of key.
func Prefix(key string, n int) string {
	parts := Split(key)
	if n > len(parts) {
		n = len(parts)
	}
	return Join(parts[:n]...)
}

// compiled is a pattern translated to one matcher per segment.
type compiled struct {
	segments []*regexp.Regexp
}

// patterns caches compiled patterns; the engine filters with a small fixed
// set of pattern shapes on every rebuild, so compilation amortises to zero.
var patterns sync.Map // string -> *compiled

func compile(pattern string) *compiled {
	if c, ok := patterns.Load(pattern); ok {
		return c.(*compiled)
	}

	segs := Split(pattern)
	c := &compiled{segments: make([]*regexp.Regexp, len(segs))}
	for i, seg := range segs {
		c.segments[i] = regexp.MustCompile(globToRegexp(seg))
	}

	patterns.Store(pattern, c)
	return c
}

// globToRegexp translates one pattern segment to an anchored,
// case-insensitive regular expression. "*" expands to ".*"; everything
// else is taken literally.
func globToRegexp(segment string) string {
	var b strings.Builder
	b.WriteString("(?i)^")
	for _, r := range segment {
		if r == '*' {
			b.WriteString(".*")
		} else {
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return b.String()
}

func (c *compiled) match(key string) bool {
	segs := Split(key)
	if len(segs) != len(c.segments) {
		return false
	}
	for i, seg := range segs {
		if !c.segments[i].MatchString(seg) {
			return false
		}
	}
	return true
}

// Match reports whether key matches pattern.
func Match(key, pattern string) bool {
	return compile(pattern).match(key)
}

// Filter returns the entries of m whose keys match pattern.
func Filter(m map[string]string, pattern string) map[string]string {
	c := compile(pattern)
	out := make(map[string]string)
	for k, v := range m {
		if c.match(k) {
			out[k] = v
		}
	}
	return out
}
