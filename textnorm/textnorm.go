// Package textnorm cleans extracted page text and provides a folded view of
// raw text for whitespace- and case-insensitive search.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// extraction artifacts that never carry meaning
var artifacts = strings.NewReplacer(
	"\u00ad", "", // soft hyphen
	"\u200b", "", // zero width space
	"\ufeff", "", // byte order mark
	"\ufffd", "", // replacement character
	"\x00", "",
)

// Clean applies NFKC normalisation, strips extraction artifacts and collapses
// every whitespace run to a single space. The result has no leading or
// trailing whitespace.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(artifacts.Replace(s))
	return strings.Join(strings.Fields(s), " ")
}

// Span is a half-open byte range [Start, End) in the raw text.
type Span struct {
	Start int
	End   int
}

// Folded is a normalised, lower-cased, whitespace-collapsed view of a raw
// string that remembers where each folded rune came from.
type Folded struct {
	runes  []rune
	starts []int
	ends   []int
}

// Fold builds the folded view of raw. NFKC runs over each normalisation
// segment (a starter and its combining marks), so decomposed and composed
// forms fold alike; every folded rune maps to the raw span of its segment.
func Fold(raw string) *Folded {
	f := &Folded{}
	pending := false
	var spaceStart, spaceEnd int
	for i := 0; i < len(raw); {
		n := norm.NFKC.NextBoundaryInString(raw[i:], true)
		if n <= 0 {
			_, n = utf8.DecodeRuneInString(raw[i:])
		}
		start, end := i, i+n
		i = end

		seg := artifacts.Replace(raw[start:end])
		if seg == "" {
			continue
		}
		for _, r := range norm.NFKC.String(seg) {
			if unicode.IsSpace(r) {
				if len(f.runes) == 0 {
					continue
				}
				if !pending {
					spaceStart = start
				}
				pending = true
				spaceEnd = end
				continue
			}
			if pending {
				f.push(' ', spaceStart, spaceEnd)
				pending = false
			}
			f.push(unicode.ToLower(r), start, end)
		}
	}
	return f
}

func (f *Folded) push(r rune, start, end int) {
	f.runes = append(f.runes, r)
	f.starts = append(f.starts, start)
	f.ends = append(f.ends, end)
}

// String returns the folded text.
func (f *Folded) String() string {
	return string(f.runes)
}

// FindAll returns the raw byte spans of every non-overlapping occurrence of
// needle, compared after folding both sides.
func (f *Folded) FindAll(needle string) []Span {
	pat := FoldString(needle)
	if len(pat) == 0 || len(pat) > len(f.runes) {
		return nil
	}
	var spans []Span
	for i := 0; i+len(pat) <= len(f.runes); {
		if runesEqual(f.runes[i:i+len(pat)], pat) {
			spans = append(spans, Span{Start: f.starts[i], End: f.ends[i+len(pat)-1]})
			i += len(pat)
			continue
		}
		i++
	}
	return spans
}

// FoldString folds s the same way Fold does, without the offset bookkeeping.
func FoldString(s string) []rune {
	return []rune(Fold(s).String())
}

// Contains reports whether folded needle occurs in folded haystack.
func Contains(haystack, needle string) bool {
	return len(Fold(haystack).FindAll(needle)) > 0
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
