package match

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	rederrors "github.com/FocuswithJustin/redline/core/errors"
	"github.com/FocuswithJustin/redline/core/flow"
)

type occKind uint8

const (
	occUnset occKind = iota
	occAll
	occFirst
	occLast
	occIndices
)

// Occurrence selects which of several matches an operation targets.
// Indices are 1-based. The zero Occurrence is "unspecified": a single match
// is accepted, more than one is ambiguous.
type Occurrence struct {
	kind    occKind
	indices []int
}

// All selects every match.
func All() Occurrence { return Occurrence{kind: occAll} }

// First selects the first match in document order.
func First() Occurrence { return Occurrence{kind: occFirst} }

// Last selects the last match in document order.
func Last() Occurrence { return Occurrence{kind: occLast} }

// At selects the i-th match, 1-based.
func At(i int) Occurrence { return Occurrence{kind: occIndices, indices: []int{i}} }

// AtEach selects several matches by 1-based index.
func AtEach(indices ...int) Occurrence {
	return Occurrence{kind: occIndices, indices: append([]int{}, indices...)}
}

// IsSet reports whether the occurrence was specified at all.
func (o Occurrence) IsSet() bool { return o.kind != occUnset }

// ParseOccurrence parses "all", "first", "last", a single 1-based index, or a
// comma-separated index list. An empty string yields the unset occurrence.
func ParseOccurrence(s string) (Occurrence, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return Occurrence{}, nil
	case "all":
		return All(), nil
	case "first":
		return First(), nil
	case "last":
		return Last(), nil
	}
	parts := strings.Split(s, ",")
	indices := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 1 {
			return Occurrence{}, fmt.Errorf("invalid occurrence %q: want all, first, last, or 1-based indices", s)
		}
		indices = append(indices, n)
	}
	return AtEach(indices...), nil
}

// String renders the occurrence for diagnostics.
func (o Occurrence) String() string {
	switch o.kind {
	case occUnset:
		return "unspecified"
	case occAll:
		return "all"
	case occFirst:
		return "first"
	case occLast:
		return "last"
	}
	parts := make([]string, len(o.indices))
	for i, n := range o.indices {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// SelectOccurrence applies the occurrence to matches. With the occurrence
// unset, more than one match is an ambiguity and each match's surrounding
// context is enumerated in the error. Matches are returned in document order.
func SelectOccurrence(f *flow.Flow, query string, matches []Match, occ Occurrence) ([]Match, error) {
	if len(matches) == 0 {
		return nil, nil
	}
	switch occ.kind {
	case occUnset:
		if len(matches) > 1 {
			contexts := make([]string, len(matches))
			for i, m := range matches {
				contexts[i] = f.Context(m.Span, 20)
			}
			return nil, &rederrors.AmbiguousError{Query: query, Contexts: contexts}
		}
		return matches, nil
	case occAll:
		return matches, nil
	case occFirst:
		return matches[:1], nil
	case occLast:
		return matches[len(matches)-1:], nil
	case occIndices:
		picked := map[int]bool{}
		for _, n := range occ.indices {
			if n < 1 || n > len(matches) {
				return nil, &rederrors.ValidationError{
					Field:   "occurrence",
					Message: fmt.Sprintf("index %d out of range: only %d match(es)", n, len(matches)),
				}
			}
			picked[n-1] = true
		}
		idx := make([]int, 0, len(picked))
		for n := range picked {
			idx = append(idx, n)
		}
		sort.Ints(idx)
		out := make([]Match, len(idx))
		for i, n := range idx {
			out[i] = matches[n]
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown occurrence kind %d", occ.kind)
}
