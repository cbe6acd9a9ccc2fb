package engine

import (
	"time"

	"github.com/FocuswithJustin/redline/core/document"
)

// RevisionEntry describes one tracked-change element present in the tree.
type RevisionEntry struct {
	ID        int
	Kind      document.Kind
	Author    string
	Date      time.Time
	Text      string
	Paragraph int    // flattened paragraph index
	Group     string // move group name, move sides only
}

// Revisions lists every tracked change in document order: insertion,
// deletion, and move wrappers plus deleted paragraph marks. Move boundary
// markers are folded into their wrapper's entry via the group name.
func (s *Session) Revisions() []RevisionEntry {
	d := s.doc
	paras, _ := d.Paragraphs()

	var out []RevisionEntry
	for pi, p := range paras {
		group := ""
		var walk func(id document.NodeID)
		walk = func(id document.NodeID) {
			n := d.Node(id)
			switch {
			case n.Kind == document.KindMoveMarker:
				if n.Marker.Edge == document.EdgeStart {
					group = n.Marker.Group
				} else {
					group = ""
				}
			case n.Kind.IsWrapper():
				out = append(out, RevisionEntry{
					ID:        n.Rev.ID,
					Kind:      n.Kind,
					Author:    n.Rev.Author,
					Date:      n.Rev.Date,
					Text:      subtreeText(d, id),
					Paragraph: pi,
					Group:     group,
				})
				for _, c := range n.Children {
					walk(c) // nested opposite-kind wrappers get their own entry
				}
			case n.Kind == document.KindParagraphMark && n.MarkDeleted:
				out = append(out, RevisionEntry{
					ID:        n.Rev.ID,
					Kind:      document.KindParagraphMark,
					Author:    n.Rev.Author,
					Date:      n.Rev.Date,
					Paragraph: pi,
				})
			default:
				for _, c := range n.Children {
					walk(c)
				}
			}
		}
		for _, c := range append([]document.NodeID{}, d.Node(p).Children...) {
			walk(c)
		}
	}
	return out
}

func subtreeText(d *document.Document, id document.NodeID) string {
	n := d.Node(id)
	if n.Kind == document.KindRun {
		return n.Text
	}
	out := ""
	for _, c := range n.Children {
		out += subtreeText(d, c)
	}
	return out
}
