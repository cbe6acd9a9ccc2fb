// Package flow projects the ordered text-bearing nodes of a document into a
// single linear character sequence, and maps character spans back onto the
// nodes that carry them.
package flow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/FocuswithJustin/redline/core/document"
)

// Span is a half-open byte offset range within a flow.
type Span struct {
	Start int
	End   int
}

// Len returns the span's byte length.
func (s Span) Len() int { return s.End - s.Start }

// Segment records one text-bearing node's contribution to the flow.
type Segment struct {
	Node      document.NodeID
	Start     int // flow offset of the segment's first byte
	End       int // flow offset one past the segment's last byte
	Wrapper   document.NodeID // nearest enclosing revision wrapper, or Nil
	Paragraph document.NodeID
	IsMark    bool // segment is a paragraph mark (contributes "\n")
}

// Options controls flow construction.
type Options struct {
	// IncludeDeleted makes text inside active deletion wrappers (and deleted
	// paragraph marks) visible in the flow.
	IncludeDeleted bool

	// Paragraphs restricts the flow to the given paragraphs, in the order
	// given. Nil means every paragraph in document order.
	Paragraphs []document.NodeID
}

// Flow is the linear character projection of a document's paragraphs.
type Flow struct {
	doc      *document.Document
	text     string
	segments []Segment
}

// Build constructs a flow over doc's paragraphs.
func Build(doc *document.Document, opts Options) *Flow {
	paragraphs := opts.Paragraphs
	if paragraphs == nil {
		paragraphs, _ = doc.Paragraphs()
	}

	f := &Flow{doc: doc}
	var b strings.Builder

	var walk func(id, wrapper, para document.NodeID, hidden bool)
	walk = func(id, wrapper, para document.NodeID, hidden bool) {
		n := doc.Node(id)
		switch {
		case n.Kind == document.KindRun:
			if hidden || n.Text == "" {
				return
			}
			start := b.Len()
			b.WriteString(n.Text)
			f.segments = append(f.segments, Segment{
				Node: id, Start: start, End: b.Len(),
				Wrapper: wrapper, Paragraph: para,
			})
		case n.Kind == document.KindParagraphMark:
			if hidden || (n.MarkDeleted && !opts.IncludeDeleted) {
				return
			}
			start := b.Len()
			b.WriteString("\n")
			f.segments = append(f.segments, Segment{
				Node: id, Start: start, End: b.Len(),
				Wrapper: wrapper, Paragraph: para, IsMark: true,
			})
		case n.Kind.IsWrapper():
			childHidden := hidden || (n.Kind.IsDeletionLike() && !opts.IncludeDeleted)
			for _, c := range n.Children {
				walk(c, id, para, childHidden)
			}
		}
	}

	for _, p := range paragraphs {
		for _, c := range doc.Node(p).Children {
			walk(c, document.Nil, p, false)
		}
	}

	f.text = b.String()
	return f
}

// Text returns the concatenated visible text.
func (f *Flow) Text() string { return f.text }

// Doc returns the document the flow was built over.
func (f *Flow) Doc() *document.Document { return f.doc }

// Segments returns the flow's segments in offset order.
func (f *Flow) Segments() []Segment { return f.segments }

// ParagraphAt returns the paragraph owning the character at off, or the
// paragraph of the nearest following segment when off sits on a boundary.
// Returns Nil for an empty flow.
func (f *Flow) ParagraphAt(off int) document.NodeID {
	i := sort.Search(len(f.segments), func(i int) bool { return f.segments[i].End > off })
	if i == len(f.segments) {
		if len(f.segments) == 0 {
			return document.Nil
		}
		return f.segments[len(f.segments)-1].Paragraph
	}
	return f.segments[i].Paragraph
}

// Context returns a short excerpt surrounding the span, for diagnostics.
func (f *Flow) Context(span Span, radius int) string {
	start := span.Start - radius
	if start < 0 {
		start = 0
	}
	end := span.End + radius
	if end > len(f.text) {
		end = len(f.text)
	}
	excerpt := strings.ReplaceAll(f.text[start:end], "\n", "¶")
	prefix := ""
	if start > 0 {
		prefix = "..."
	}
	suffix := ""
	if end < len(f.text) {
		suffix = "..."
	}
	return prefix + excerpt + suffix
}

// RunSlice is the portion of one node covered by a span.
type RunSlice struct {
	Node       document.NodeID
	IntraStart int  // byte offset within the node's text
	IntraEnd   int
	IsPartial  bool // slice covers only part of the node's text
	IsMark     bool
	Wrapper    document.NodeID
	Paragraph  document.NodeID
}

// Text returns the sliced text from the node.
func (s RunSlice) Text(doc *document.Document) string {
	if s.IsMark {
		return "\n"
	}
	return doc.Node(s.Node).Text[s.IntraStart:s.IntraEnd]
}

// SliceGroup is a maximal run of adjacent slices sharing one wrapper context.
// A span may begin in plain content and end inside a wrapper, or cross two
// different wrappers; mutation treats each context independently instead of
// assuming one common parent.
type SliceGroup struct {
	Wrapper document.NodeID // Nil for plain (unwrapped) content
	Slices  []RunSlice
}

// Resolve decomposes span into node slices grouped by wrapper context.
func (f *Flow) Resolve(span Span) ([]SliceGroup, error) {
	if span.Start < 0 || span.End > len(f.text) || span.Start >= span.End {
		return nil, fmt.Errorf("span [%d,%d) out of range for flow of %d bytes",
			span.Start, span.End, len(f.text))
	}

	i := sort.Search(len(f.segments), func(i int) bool { return f.segments[i].End > span.Start })
	var groups []SliceGroup
	for ; i < len(f.segments) && f.segments[i].Start < span.End; i++ {
		seg := f.segments[i]
		lo := max(span.Start, seg.Start)
		hi := min(span.End, seg.End)
		slice := RunSlice{
			Node:       seg.Node,
			IntraStart: lo - seg.Start,
			IntraEnd:   hi - seg.Start,
			IsPartial:  lo > seg.Start || hi < seg.End,
			IsMark:     seg.IsMark,
			Wrapper:    seg.Wrapper,
			Paragraph:  seg.Paragraph,
		}
		if len(groups) > 0 && groups[len(groups)-1].Wrapper == seg.Wrapper {
			g := &groups[len(groups)-1]
			g.Slices = append(g.Slices, slice)
		} else {
			groups = append(groups, SliceGroup{Wrapper: seg.Wrapper, Slices: []RunSlice{slice}})
		}
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("span [%d,%d) covers no text-bearing node", span.Start, span.End)
	}
	return groups, nil
}

// Boundary identifies a position between characters as a node-relative
// insertion point.
type Boundary struct {
	Node      document.NodeID // node the position falls inside or in front of
	Intra     int             // byte offset within that node's text
	Paragraph document.NodeID
	Wrapper   document.NodeID
	AtEnd     bool // position is past the last segment

	// PrevNode/PrevWrapper describe the segment ending exactly at the
	// position, when the position sits on a segment junction. They let the
	// engine append into a same-author insertion wrapper that ends here.
	PrevNode    document.NodeID
	PrevWrapper document.NodeID
}

// BoundaryAt maps a flow offset to an insertion point. An offset on a segment
// boundary resolves to the start of the following segment, so inserted
// content lands outside a preceding wrapper rather than inside it.
func (f *Flow) BoundaryAt(off int) (Boundary, error) {
	if off < 0 || off > len(f.text) {
		return Boundary{}, fmt.Errorf("offset %d out of range for flow of %d bytes", off, len(f.text))
	}
	i := sort.Search(len(f.segments), func(i int) bool { return f.segments[i].End > off })
	if i == len(f.segments) {
		if len(f.segments) == 0 {
			return Boundary{}, fmt.Errorf("flow is empty")
		}
		last := f.segments[len(f.segments)-1]
		return Boundary{
			Node: last.Node, Intra: last.End - last.Start,
			Paragraph: last.Paragraph, Wrapper: last.Wrapper, AtEnd: true,
			PrevNode: last.Node, PrevWrapper: last.Wrapper,
		}, nil
	}
	seg := f.segments[i]
	b := Boundary{
		Node: seg.Node, Intra: off - seg.Start,
		Paragraph: seg.Paragraph, Wrapper: seg.Wrapper,
		PrevNode: document.Nil, PrevWrapper: document.Nil,
	}
	if off == seg.Start && i > 0 && f.segments[i-1].End == off {
		b.PrevNode = f.segments[i-1].Node
		b.PrevWrapper = f.segments[i-1].Wrapper
	}
	return b, nil
}
