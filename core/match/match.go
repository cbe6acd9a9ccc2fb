// Package match finds literal, regex, and fuzzy occurrences of a query in a
// character flow, honoring typographic normalization and scope filtering.
package match

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/FocuswithJustin/redline/core/cache"
	"github.com/FocuswithJustin/redline/core/document"
	"github.com/FocuswithJustin/redline/core/flow"
	"github.com/FocuswithJustin/redline/core/scope"
)

// Mode selects the matching strategy.
type Mode uint8

const (
	// ModeLiteral matches the query as plain text.
	ModeLiteral Mode = iota
	// ModeRegex treats the query as a regular expression with capture groups.
	ModeRegex
	// ModeFuzzy finds approximate occurrences above a similarity threshold.
	ModeFuzzy
)

// FuzzyAlgorithm selects how fuzzy similarity is computed.
type FuzzyAlgorithm uint8

const (
	// FuzzyEditDistance scores by normalized Levenshtein similarity.
	FuzzyEditDistance FuzzyAlgorithm = iota
	// FuzzyTokenSet scores order-insensitively over the candidate's tokens.
	FuzzyTokenSet
	// FuzzySubstring scores the best same-length alignment inside the window.
	FuzzySubstring
)

// DefaultFuzzyThreshold applies when Options.FuzzyThreshold is unset.
const DefaultFuzzyThreshold = 0.8

// Options controls a Find call. The zero value is a case-sensitive literal
// search over the whole document with no normalization.
type Options struct {
	Mode       Mode
	IgnoreCase bool

	// Normalize folds typographic variants (curly quotes, en/em dashes,
	// bullet glyphs, non-breaking spaces) for comparison only; the original
	// text is always what gets mutated.
	Normalize bool

	FuzzyThreshold float64
	FuzzyAlgorithm FuzzyAlgorithm

	// Scope drops matches whose owning paragraph fails the predicate. The
	// match list still reflects full-document order.
	Scope *scope.Spec

	// Evaluator may carry a prebuilt scope evaluator for the flow's document;
	// one is constructed on demand when nil and Scope is set.
	Evaluator *scope.Evaluator
}

// Match is one located occurrence.
type Match struct {
	Span      flow.Span
	Text      string   // original (unnormalized) text covered by the span
	Groups    []string // regex capture groups (group 0 omitted)
	Score     float64  // fuzzy similarity, 1.0 for exact modes
	Paragraph document.NodeID
	Location  document.Location
}

// Result is the outcome of a Find: in-scope matches in document order, plus
// how many matches exist outside the scope (so "absent" and "excluded by
// scope" stay distinguishable).
type Result struct {
	Matches    []Match
	OutOfScope int
}

// Find locates query in the flow.
func Find(f *flow.Flow, query string, opts Options) (Result, error) {
	if query == "" {
		return Result{}, fmt.Errorf("empty query")
	}

	var spans []rawMatch
	var err error
	switch opts.Mode {
	case ModeLiteral:
		spans = findLiteral(f.Text(), query, opts)
	case ModeRegex:
		spans, err = findRegex(f.Text(), query, opts)
	case ModeFuzzy:
		spans, err = findFuzzy(f.Text(), query, opts)
	default:
		err = fmt.Errorf("unknown match mode %d", opts.Mode)
	}
	if err != nil {
		return Result{}, err
	}

	doc := f.Doc()
	ids, locs := doc.Paragraphs()
	locByPara := make(map[document.NodeID]document.Location, len(ids))
	for i, id := range ids {
		locByPara[id] = locs[i]
	}

	var ev *scope.Evaluator
	scoped := opts.Scope != nil && !opts.Scope.IsZero()
	if scoped {
		ev = opts.Evaluator
		if ev == nil {
			ev = scope.NewEvaluator(doc)
		}
	}

	var result Result
	for _, rm := range spans {
		para := f.ParagraphAt(rm.span.Start)
		m := Match{
			Span:      rm.span,
			Text:      f.Text()[rm.span.Start:rm.span.End],
			Groups:    rm.groups,
			Score:     rm.score,
			Paragraph: para,
			Location:  locByPara[para],
		}
		if scoped {
			ok, err := ev.Matches(opts.Scope, para)
			if err != nil {
				return Result{}, err
			}
			if !ok {
				result.OutOfScope++
				continue
			}
		}
		result.Matches = append(result.Matches, m)
	}
	return result, nil
}

// patterns caches compiled regular expressions; batch edits re-run the same
// query against every staged tree.
var patterns = cache.NewDefaultPatternCache()

type rawMatch struct {
	span   flow.Span
	groups []string
	score  float64
}

func findLiteral(text, query string, opts Options) []rawMatch {
	normText, backmap := normalizeWithMap(text, opts)
	normQuery, _ := normalizeWithMap(query, opts)
	if normQuery == "" {
		return nil
	}

	var out []rawMatch
	for from := 0; ; {
		i := strings.Index(normText[from:], normQuery)
		if i < 0 {
			break
		}
		start := from + i
		end := start + len(normQuery)
		out = append(out, rawMatch{
			span:  flow.Span{Start: backmap.orig(start), End: backmap.origEnd(end)},
			score: 1.0,
		})
		from = end
	}
	return out
}

func findRegex(text, query string, opts Options) ([]rawMatch, error) {
	pattern := query
	if opts.IgnoreCase {
		pattern = "(?i)" + pattern
	}
	re, ok := patterns.Get(pattern)
	if !ok {
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex %q: %w", query, err)
		}
		patterns.Put(pattern, re)
	}

	// Case folding is the regex engine's job; normalization still needs the
	// offset back-map.
	searchOpts := opts
	searchOpts.IgnoreCase = false
	normText, backmap := normalizeWithMap(text, searchOpts)

	var out []rawMatch
	for _, idx := range re.FindAllSubmatchIndex([]byte(normText), -1) {
		if idx[0] == idx[1] {
			continue // zero-width match has no text to mutate
		}
		rm := rawMatch{
			span:  flow.Span{Start: backmap.orig(idx[0]), End: backmap.origEnd(idx[1])},
			score: 1.0,
		}
		for g := 1; g*2 < len(idx); g++ {
			s, e := idx[g*2], idx[g*2+1]
			if s < 0 || s == e {
				rm.groups = append(rm.groups, "")
				continue
			}
			rm.groups = append(rm.groups, text[backmap.orig(s):backmap.origEnd(e)])
		}
		out = append(out, rm)
	}
	return out, nil
}
