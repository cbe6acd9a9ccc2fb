package match

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/FocuswithJustin/redline/core/flow"
)

type token struct {
	start, end int
	text       string
}

func tokenize(s string) []token {
	var out []token
	inTok := false
	start := 0
	for i, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if inTok {
				out = append(out, token{start: start, end: i, text: s[start:i]})
				inTok = false
			}
		} else if !inTok {
			start = i
			inTok = true
		}
	}
	if inTok {
		out = append(out, token{start: start, end: len(s), text: s[start:]})
	}
	return out
}

// findFuzzy slides token windows sized around the query's token count and
// keeps the best-scoring non-overlapping windows above the threshold.
func findFuzzy(text, query string, opts Options) ([]rawMatch, error) {
	threshold := opts.FuzzyThreshold
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	if threshold > 1 {
		return nil, fmt.Errorf("fuzzy threshold %v out of range (0,1]", threshold)
	}

	normText, backmap := normalizeWithMap(text, opts)
	normQuery, _ := normalizeWithMap(query, opts)
	toks := tokenize(normText)
	qToks := tokenize(normQuery)
	if len(toks) == 0 || len(qToks) == 0 {
		return nil, nil
	}

	sizes := []int{len(qToks)}
	if len(qToks) > 1 {
		sizes = append(sizes, len(qToks)-1)
	}
	sizes = append(sizes, len(qToks)+1)

	var candidates []rawMatch
	for _, size := range sizes {
		for i := 0; i+size <= len(toks); i++ {
			cand := normText[toks[i].start:toks[i+size-1].end]
			score, err := similarity(cand, normQuery, opts.FuzzyAlgorithm)
			if err != nil {
				return nil, err
			}
			if score < threshold {
				continue
			}
			candidates = append(candidates, rawMatch{
				span: flow.Span{
					Start: backmap.orig(toks[i].start),
					End:   backmap.origEnd(toks[i+size-1].end),
				},
				score: score,
			})
		}
	}

	// Keep the best-scoring window wherever candidates overlap.
	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].score != candidates[b].score {
			return candidates[a].score > candidates[b].score
		}
		return candidates[a].span.Start < candidates[b].span.Start
	})
	var kept []rawMatch
	for _, c := range candidates {
		overlaps := false
		for _, k := range kept {
			if c.span.Start < k.span.End && k.span.Start < c.span.End {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, c)
		}
	}
	sort.Slice(kept, func(a, b int) bool { return kept[a].span.Start < kept[b].span.Start })
	return kept, nil
}

func similarity(candidate, query string, algo FuzzyAlgorithm) (float64, error) {
	switch algo {
	case FuzzyEditDistance:
		s, err := edlib.StringsSimilarity(candidate, query, edlib.Levenshtein)
		return float64(s), err
	case FuzzyTokenSet:
		s, err := edlib.StringsSimilarity(sortedTokens(candidate), sortedTokens(query), edlib.SorensenDice)
		return float64(s), err
	case FuzzySubstring:
		if strings.Contains(candidate, query) {
			return 1.0, nil
		}
		s, err := edlib.StringsSimilarity(candidate, query, edlib.Lcs)
		return float64(s), err
	}
	return 0, fmt.Errorf("unknown fuzzy algorithm %d", algo)
}

// sortedTokens canonicalizes token order so "brown quick fox" and
// "quick brown fox" compare equal under the token-set algorithm.
func sortedTokens(s string) string {
	toks := tokenize(s)
	words := make([]string, 0, len(toks))
	seen := map[string]bool{}
	for _, t := range toks {
		if !seen[t.text] {
			seen[t.text] = true
			words = append(words, t.text)
		}
	}
	sort.Strings(words)
	return strings.Join(words, " ")
}
