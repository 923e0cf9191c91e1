// Package naming builds shell-safe file names for ripped tracks from
// album metadata.
package naming

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FileName returns Artist-Album-NN-Title plus ext, with a CDn part
// before the track number when disc is non-zero. Empty parts are left
// out.
func FileName(artist, album string, disc, track int, title, ext string) string {
	parts := []string{Sanitize(artist), Sanitize(album)}
	if disc > 0 {
		parts = append(parts, fmt.Sprintf("CD%d", disc))
	}
	parts = append(parts, fmt.Sprintf("%02d", track), Sanitize(title))
	return join(parts) + ext
}

// CompilationFileName returns Compilation-NN-Artist-Title plus ext for
// various-artists albums.
func CompilationFileName(compilation string, disc, track int, artist, title, ext string) string {
	parts := []string{Sanitize(compilation)}
	if disc > 0 {
		parts = append(parts, fmt.Sprintf("CD%d", disc))
	}
	parts = append(parts, fmt.Sprintf("%02d", track), Sanitize(artist), Sanitize(title))
	return join(parts) + ext
}

func join(parts []string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "-")
}

// Sanitize reduces s to ASCII that needs no quoting in a shell. Accents
// are stripped, quotes removed, and runs of spaces, path separators and
// shell metacharacters become a single underscore.
func Sanitize(s string) string {
	s = toASCII(s)

	var b strings.Builder
	b.Grow(len(s))
	underscore := false
	for _, r := range s {
		switch r {
		case '\'', '"', '`':
		case ' ', '/', '\\', '$', '!', '*', '?', '[', ']', '(', ')',
			'{', '}', '<', '>', '|', '&', ';':
			if !underscore {
				b.WriteByte('_')
				underscore = true
			}
		default:
			b.WriteRune(r)
			underscore = r == '_'
		}
	}
	return strings.Trim(b.String(), "_")
}

// toASCII decomposes accented letters (ō to o) and drops anything still
// outside ASCII.
func toASCII(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	decomposed, _, err := transform.String(t, s)
	if err != nil {
		decomposed = s
	}
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, decomposed)
}
