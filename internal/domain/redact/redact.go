// Package redact masks sensitive values before they reach logs or notifications.
package redact

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"
)

const (
	placeholder = "*"

	// minTracked is the shortest value a Scrubber tracks. Shorter values
	// would mask unrelated fragments of ordinary text.
	minTracked = 4
)

// Mask keeps the first two runes of s and replaces the rest with "*".
// Strings of two runes or fewer are replaced entirely. The result always has
// the same rune count as s.
func Mask(s string) string {
	n := utf8.RuneCountInString(s)
	if n <= 2 {
		return strings.Repeat(placeholder, n)
	}
	runes := []rune(s)
	return string(runes[:2]) + strings.Repeat(placeholder, n-2)
}

// MaskID shows only the first and last two runes of a resource identifier.
// Identifiers of four runes or fewer are returned unchanged.
func MaskID(id string) string {
	n := utf8.RuneCountInString(id)
	if n <= 4 {
		return id
	}
	runes := []rune(id)
	return string(runes[:2]) + strings.Repeat(placeholder, n-4) + string(runes[n-2:])
}

// Abbreviate shows the first and last show runes of a token value joined by
// "...". Values of 2*show runes or fewer are returned unchanged.
func Abbreviate(value string, show int) string {
	n := utf8.RuneCountInString(value)
	if n <= show*2 {
		return value
	}
	runes := []rune(value)
	return string(runes[:show]) + "..." + string(runes[n-show:])
}

// Truncate cuts s to at most limit runes.
func Truncate(s string, limit int) string {
	if limit < 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

var keyValuePattern = regexp.MustCompile(`(?i)(username|password|command|identity|secret|cookie)[=:]\s*\S+`)

// Scrubber removes sensitive substrings from free text. Tracked values are
// replaced by their masked form; key=value pairs naming a credential field
// are replaced by "key=***".
type Scrubber struct {
	mu     sync.RWMutex
	values map[string]struct{}
}

// NewScrubber returns an empty Scrubber.
func NewScrubber() *Scrubber {
	return &Scrubber{values: make(map[string]struct{})}
}

// Track registers values that must never leave the process verbatim.
// Values shorter than four runes are ignored.
func (s *Scrubber) Track(values ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range values {
		if utf8.RuneCountInString(v) >= minTracked {
			s.values[v] = struct{}{}
		}
	}
}

// Scrub returns msg with every tracked value masked and credential
// key=value pairs replaced.
func (s *Scrubber) Scrub(msg string) string {
	out := keyValuePattern.ReplaceAllString(msg, "${1}=***")
	if s == nil {
		return out
	}

	s.mu.RLock()
	tracked := make([]string, 0, len(s.values))
	for v := range s.values {
		tracked = append(tracked, v)
	}
	s.mu.RUnlock()

	// Longest first so a value containing another is replaced whole.
	sort.Slice(tracked, func(i, j int) bool { return len(tracked[i]) > len(tracked[j]) })
	for _, v := range tracked {
		out = strings.ReplaceAll(out, v, Mask(v))
	}
	return out
}
