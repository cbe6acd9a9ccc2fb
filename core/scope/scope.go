// Package scope restricts which paragraphs are eligible for matching, via
// boolean predicates over a paragraph's content, style, and heading ancestry.
package scope

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/expr-lang/expr"

	"github.com/FocuswithJustin/redline/core/cache"
	"github.com/FocuswithJustin/redline/core/document"
	"github.com/FocuswithJustin/redline/core/flow"
)

// Paragraph is the view of one paragraph a predicate evaluates against.
type Paragraph struct {
	Index    int
	Text     string
	Style    string
	Headings []string // enclosing section headings, outermost first
	InTable  bool
}

// Section returns the innermost enclosing heading, or "".
func (p Paragraph) Section() string {
	if len(p.Headings) == 0 {
		return ""
	}
	return p.Headings[len(p.Headings)-1]
}

// Spec is a scope predicate. Every set field must hold for a paragraph to be
// in scope (implicit AND); the zero Spec matches everything.
type Spec struct {
	// Contains requires the paragraph's visible text to contain this string.
	Contains string
	// NotContains excludes paragraphs whose text contains this string.
	NotContains string
	// SectionHeading requires the paragraph to sit under the named heading.
	SectionHeading string
	// Style requires the paragraph's style name to match (case-insensitive).
	Style string
	// Expr is an expression evaluated against the paragraph environment
	// (text, style, index, headings, section, in_table); it must yield bool.
	Expr string
	// Predicate is an arbitrary caller-supplied test.
	Predicate func(Paragraph) bool
	// Refs restricts matching to these exact paragraph nodes.
	Refs []document.NodeID
}

// IsZero reports whether the spec imposes no restriction.
func (s *Spec) IsZero() bool {
	return s == nil || (s.Contains == "" && s.NotContains == "" && s.SectionHeading == "" &&
		s.Style == "" && s.Expr == "" && s.Predicate == nil && len(s.Refs) == 0)
}

// Describe renders the spec for diagnostics.
func (s *Spec) Describe() string {
	if s.IsZero() {
		return "document"
	}
	var parts []string
	if s.Contains != "" {
		parts = append(parts, fmt.Sprintf("contains:%q", s.Contains))
	}
	if s.NotContains != "" {
		parts = append(parts, fmt.Sprintf("not-contains:%q", s.NotContains))
	}
	if s.SectionHeading != "" {
		parts = append(parts, fmt.Sprintf("section:%q", s.SectionHeading))
	}
	if s.Style != "" {
		parts = append(parts, "style:"+s.Style)
	}
	if s.Expr != "" {
		parts = append(parts, "expr:"+s.Expr)
	}
	if s.Predicate != nil {
		parts = append(parts, "predicate")
	}
	if len(s.Refs) > 0 {
		parts = append(parts, fmt.Sprintf("refs(%d)", len(s.Refs)))
	}
	return strings.Join(parts, "+")
}

// Evaluator answers scope questions against one document snapshot. Paragraph
// text and heading chains are computed once at construction; rebuild the
// evaluator after mutating the tree.
type Evaluator struct {
	info map[document.NodeID]Paragraph
}

// programs caches compiled expression predicates across evaluators; an
// evaluator is rebuilt for every staged tree but expression sources repeat.
var programs = cache.NewDefaultProgramCache()

// NewEvaluator precomputes the paragraph environment for doc.
func NewEvaluator(doc *document.Document) *Evaluator {
	ids, locs := doc.Paragraphs()
	e := &Evaluator{
		info: make(map[document.NodeID]Paragraph, len(ids)),
	}

	type heading struct {
		level int
		text  string
	}
	var stack []heading

	for i, id := range ids {
		text := paragraphText(doc, id)
		style := doc.Node(id).Style

		if lvl, ok := headingLevel(style); ok {
			for len(stack) > 0 && stack[len(stack)-1].level >= lvl {
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, heading{level: lvl, text: strings.TrimSpace(text)})
		}

		headings := make([]string, len(stack))
		for j, h := range stack {
			headings[j] = h.text
		}
		e.info[id] = Paragraph{
			Index:    i,
			Text:     text,
			Style:    style,
			Headings: headings,
			InTable:  locs[i].InTable(),
		}
	}
	return e
}

func paragraphText(doc *document.Document, p document.NodeID) string {
	f := flow.Build(doc, flow.Options{Paragraphs: []document.NodeID{p}})
	return strings.TrimSuffix(f.Text(), "\n")
}

// headingLevel parses a heading style name ("Heading1", "heading 2", "Title")
// into an outline level.
func headingLevel(style string) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(style))
	if s == "title" {
		return 0, true
	}
	if !strings.HasPrefix(s, "heading") {
		return 0, false
	}
	rest := strings.TrimFunc(s[len("heading"):], unicode.IsSpace)
	if rest == "" {
		return 1, true
	}
	lvl, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return lvl, true
}

// Info returns the precomputed view of paragraph p.
func (e *Evaluator) Info(p document.NodeID) (Paragraph, bool) {
	para, ok := e.info[p]
	return para, ok
}

// Matches reports whether paragraph p satisfies spec.
func (e *Evaluator) Matches(spec *Spec, p document.NodeID) (bool, error) {
	if spec.IsZero() {
		return true, nil
	}
	para, ok := e.info[p]
	if !ok {
		return false, nil
	}

	if spec.Contains != "" && !strings.Contains(para.Text, spec.Contains) {
		return false, nil
	}
	if spec.NotContains != "" && strings.Contains(para.Text, spec.NotContains) {
		return false, nil
	}
	if spec.SectionHeading != "" {
		want := strings.TrimSpace(spec.SectionHeading)
		found := false
		for _, h := range para.Headings {
			if strings.EqualFold(h, want) {
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}
	if spec.Style != "" && !styleEqual(para.Style, spec.Style) {
		return false, nil
	}
	if len(spec.Refs) > 0 {
		found := false
		for _, r := range spec.Refs {
			if r == p {
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}
	if spec.Predicate != nil && !spec.Predicate(para) {
		return false, nil
	}
	if spec.Expr != "" {
		ok, err := e.evalExpr(spec.Expr, para)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// styleEqual compares style names ignoring case and interior spaces, so
// "Heading 1" and "Heading1" refer to the same style.
func styleEqual(a, b string) bool {
	norm := func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, " ", ""))
	}
	return norm(a) == norm(b)
}

func (e *Evaluator) evalExpr(src string, para Paragraph) (bool, error) {
	program, ok := programs.Get(src)
	if !ok {
		var err error
		program, err = expr.Compile(src, expr.Env(exprEnv(Paragraph{})), expr.AsBool())
		if err != nil {
			return false, fmt.Errorf("compiling scope expression %q: %w", src, err)
		}
		programs.Put(src, program)
	}
	out, err := expr.Run(program, exprEnv(para))
	if err != nil {
		return false, fmt.Errorf("evaluating scope expression %q: %w", src, err)
	}
	result, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("scope expression %q did not yield a boolean", src)
	}
	return result, nil
}

func exprEnv(para Paragraph) map[string]any {
	return map[string]any{
		"text":     para.Text,
		"style":    para.Style,
		"index":    para.Index,
		"headings": para.Headings,
		"section":  para.Section(),
		"in_table": para.InTable,
	}
}
