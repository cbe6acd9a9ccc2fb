package docpack

import (
	"bytes"
	"fmt"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	rederrors "github.com/FocuswithJustin/redline/core/errors"
)

// Structural queries compile once; Validate runs after every serialization.
var (
	nestedWrapperQueries = func() map[string]*xpath.Expr {
		out := map[string]*xpath.Expr{}
		for _, tag := range []string{"ins", "del", "moveFrom", "moveTo"} {
			out[tag] = xpath.MustCompile(fmt.Sprintf("//w:%s//w:%s", tag, tag))
		}
		return out
	}()
	rangeStartQueries = map[string]*xpath.Expr{
		"moveFrom": xpath.MustCompile("//w:moveFromRangeStart"),
		"moveTo":   xpath.MustCompile("//w:moveToRangeStart"),
	}
	rangeEndQueries = map[string]*xpath.Expr{
		"moveFrom": xpath.MustCompile("//w:moveFromRangeEnd"),
		"moveTo":   xpath.MustCompile("//w:moveToRangeEnd"),
	}
	revisionIDQueries = []*xpath.Expr{
		xpath.MustCompile("//w:ins"),
		xpath.MustCompile("//w:del"),
		xpath.MustCompile("//w:moveFrom"),
		xpath.MustCompile("//w:moveTo"),
		xpath.MustCompile("//w:moveFromRangeStart"),
		xpath.MustCompile("//w:moveToRangeStart"),
	}
)

// Validate checks serialized document-part bytes for the structural
// guarantees every emitted document must hold: no same-kind wrapper nesting,
// no unpaired move-range markers, each move group tied to exactly one source
// and one destination range, and no duplicate revision IDs. The returned
// slice is empty for a clean document.
func Validate(data []byte) ([]string, error) {
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &rederrors.StorageError{Part: DocumentPart, Op: "validate", Message: err.Error()}
	}

	var violations []string

	for _, tag := range []string{"ins", "del", "moveFrom", "moveTo"} {
		if n := xmlquery.QuerySelector(root, nestedWrapperQueries[tag]); n != nil {
			violations = append(violations, fmt.Sprintf("w:%s nested inside w:%s", tag, tag))
		}
	}

	for _, side := range []string{"moveFrom", "moveTo"} {
		starts := idSet(root, rangeStartQueries[side])
		ends := idSet(root, rangeEndQueries[side])
		for id := range starts {
			if !ends[id] {
				violations = append(violations, fmt.Sprintf("w:%sRangeStart id %s has no end", side, id))
			}
		}
		for id := range ends {
			if !starts[id] {
				violations = append(violations, fmt.Sprintf("w:%sRangeEnd id %s has no start", side, id))
			}
		}
	}

	fromGroups := groupCounts(root, rangeStartQueries["moveFrom"])
	toGroups := groupCounts(root, rangeStartQueries["moveTo"])
	for name, n := range fromGroups {
		if n > 1 {
			violations = append(violations, fmt.Sprintf("move group %q has %d source ranges", name, n))
		}
		if toGroups[name] == 0 {
			violations = append(violations, fmt.Sprintf("move group %q has no destination range", name))
		}
	}
	for name, n := range toGroups {
		if n > 1 {
			violations = append(violations, fmt.Sprintf("move group %q has %d destination ranges", name, n))
		}
		if fromGroups[name] == 0 {
			violations = append(violations, fmt.Sprintf("move group %q has no source range", name))
		}
	}

	seen := map[string]bool{}
	for _, q := range revisionIDQueries {
		for _, n := range xmlquery.QuerySelectorAll(root, q) {
			id := attr(n, "id")
			if id == "" {
				continue
			}
			if seen[id] {
				violations = append(violations, fmt.Sprintf("revision id %s used more than once", id))
			}
			seen[id] = true
		}
	}

	return violations, nil
}

func idSet(root *xmlquery.Node, q *xpath.Expr) map[string]bool {
	out := map[string]bool{}
	for _, n := range xmlquery.QuerySelectorAll(root, q) {
		if id := attr(n, "id"); id != "" {
			out[id] = true
		}
	}
	return out
}

func groupCounts(root *xmlquery.Node, q *xpath.Expr) map[string]int {
	out := map[string]int{}
	for _, n := range xmlquery.QuerySelectorAll(root, q) {
		if name := attr(n, "name"); name != "" {
			out[name]++
		}
	}
	return out
}
