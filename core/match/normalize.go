package match

import (
	"strings"
	"unicode"
)

// offsetMap translates offsets in a normalized string back to offsets in the
// original string. Entry i holds the original byte offset that produced
// normalized byte i; one extra entry maps the end boundary.
type offsetMap struct {
	toOrig []int
}

func (m offsetMap) orig(normOff int) int {
	return m.toOrig[normOff]
}

// origEnd translates an exclusive end offset. The ellipsis fold expands one
// rune to three bytes, so an end landing inside the expansion snaps forward
// to cover the whole source rune; truncating it would mutate a partial rune.
func (m offsetMap) origEnd(normOff int) int {
	last := m.toOrig[normOff-1]
	for _, o := range m.toOrig[normOff:] {
		if o != last {
			return o
		}
	}
	return last
}

// typographicFold maps a rune to its canonical comparison form. Returns the
// replacement and whether a fold applies.
func typographicFold(r rune) (string, bool) {
	switch r {
	case '‘', '’', '‚', '‛', '′': // curly/low-9 single quotes, prime
		return "'", true
	case '“', '”', '„', '‟', '″': // curly/low-9 double quotes
		return `"`, true
	case '‐', '‑', '‒', '–', '—', '―': // hyphen/dash variants
		return "-", true
	case '•', '◦', '▪', '‣', '·', '⁃': // bullet glyph variants
		return "•", true
	case ' ', ' ', ' ': // non-breaking space variants
		return " ", true
	case '…':
		return "...", true
	}
	return "", false
}

// normalizeWithMap produces the comparison form of s per opts, with an offset
// map back to s. With no options set the text passes through unchanged (the
// map is still built, identity-valued).
func normalizeWithMap(s string, opts Options) (string, offsetMap) {
	var b strings.Builder
	b.Grow(len(s))
	toOrig := make([]int, 0, len(s)+1)

	for i, r := range s {
		out := string(r)
		if opts.Normalize {
			if folded, ok := typographicFold(r); ok {
				out = folded
			}
		}
		if opts.IgnoreCase {
			out = strings.Map(unicode.ToLower, out)
		}
		b.WriteString(out)
		for j := 0; j < len(out); j++ {
			toOrig = append(toOrig, i)
		}
	}
	toOrig = append(toOrig, len(s))
	return b.String(), offsetMap{toOrig: toOrig}
}
