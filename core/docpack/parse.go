// Package docpack reads and writes the zip document container and converts
// the main document part between its XML form and the in-memory tree.
package docpack

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"

	"github.com/FocuswithJustin/redline/core/document"
	rederrors "github.com/FocuswithJustin/redline/core/errors"
)

// DocumentPart is the container part holding the document body.
const DocumentPart = "word/document.xml"

// ParseDocument converts the main document part's XML into a tree. Content
// the tree does not model (bookmarks, proofing marks, unknown block elements)
// is carried through as raw XML so serialization reproduces it.
func ParseDocument(data []byte) (*document.Document, error) {
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &rederrors.StorageError{Part: DocumentPart, Op: "parse", Message: err.Error()}
	}
	docEl := xmlquery.FindOne(root, "//w:document")
	if docEl == nil {
		return nil, &rederrors.StorageError{Part: DocumentPart, Op: "parse", Message: "no w:document element"}
	}
	body := xmlquery.FindOne(docEl, "w:body")
	if body == nil {
		return nil, &rederrors.StorageError{Part: DocumentPart, Op: "parse", Message: "no w:body element"}
	}

	d := document.New()
	d.RootAttrs = rootAttrText(data)

	p := &parser{d: d}
	for n := body.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != xmlquery.ElementNode {
			continue
		}
		switch n.Data {
		case "p":
			d.Body = append(d.Body, document.Block{
				Kind:      document.BlockParagraph,
				Paragraph: p.paragraph(n),
			})
		case "tbl":
			d.Body = append(d.Body, document.Block{
				Kind:  document.BlockTable,
				Table: p.table(n),
			})
		case "sectPr":
			d.BodyTrailer += n.OutputXML(true)
		default:
			d.Body = append(d.Body, document.Block{
				Kind: document.BlockRaw,
				Raw:  n.OutputXML(true),
			})
		}
	}
	return d, nil
}

// rootAttrText slices the root element's attribute text straight out of the
// source bytes; reconstructing namespace declarations from a parsed node is
// lossy.
func rootAttrText(data []byte) string {
	s := string(data)
	i := strings.Index(s, "<w:document")
	if i < 0 {
		return ""
	}
	rest := s[i+len("<w:document"):]
	j := strings.IndexByte(rest, '>')
	if j < 0 {
		return ""
	}
	return strings.TrimSuffix(rest[:j], "/")
}

type parser struct {
	d *document.Document
}

func (p *parser) paragraph(n *xmlquery.Node) document.NodeID {
	props, style, markDeleted, markRev := p.paragraphProps(n)
	para := p.d.NewParagraph(props, style)
	if markDeleted {
		mark := p.d.MarkOf(para)
		p.d.Node(mark).MarkDeleted = true
		p.d.Node(mark).Rev = markRev
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		if c.Data == "pPr" {
			continue
		}
		if id, ok := p.inline(c); ok {
			p.d.AppendChild(para, id)
		}
	}
	return para
}

// inline converts one paragraph-level child element. The second return is
// false for content that contributes nothing (empty nodes).
func (p *parser) inline(n *xmlquery.Node) (document.NodeID, bool) {
	switch n.Data {
	case "r":
		return p.run(n), true
	case "ins":
		return p.wrapper(n, document.KindInsertion), true
	case "del":
		return p.wrapper(n, document.KindDeletion), true
	case "moveFrom":
		return p.wrapper(n, document.KindMoveFrom), true
	case "moveTo":
		return p.wrapper(n, document.KindMoveTo), true
	case "moveFromRangeStart":
		return p.marker(n, document.SideFrom, document.EdgeStart), true
	case "moveFromRangeEnd":
		return p.marker(n, document.SideFrom, document.EdgeEnd), true
	case "moveToRangeStart":
		return p.marker(n, document.SideTo, document.EdgeStart), true
	case "moveToRangeEnd":
		return p.marker(n, document.SideTo, document.EdgeEnd), true
	default:
		raw := n.OutputXML(true)
		if raw == "" {
			return document.Nil, false
		}
		return p.d.Alloc(document.Node{Kind: document.KindRaw, Raw: raw}), true
	}
}

func (p *parser) wrapper(n *xmlquery.Node, kind document.Kind) document.NodeID {
	w := p.d.NewWrapper(kind, revisionAttrs(n))
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		if id, ok := p.inline(c); ok {
			p.d.AppendChild(w, id)
		}
	}
	return w
}

func (p *parser) marker(n *xmlquery.Node, side document.MarkerSide, edge document.MarkerEdge) document.NodeID {
	rev := revisionAttrs(n)
	m := document.Marker{
		Side:        side,
		Edge:        edge,
		ContainerID: rev.ID,
		Group:       attr(n, "name"),
	}
	rev.ID = 0 // the id attribute is the container ID, not a wrapper revision
	return p.d.NewMarker(m, rev)
}

func (p *parser) run(n *xmlquery.Node) document.NodeID {
	props := ""
	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		switch c.Data {
		case "rPr":
			props = innerXML(c)
		case "t", "delText":
			text.WriteString(c.InnerText())
		case "tab":
			text.WriteString("\t")
		case "br", "cr":
			text.WriteString("\n")
		}
	}
	return p.d.NewRun(text.String(), props)
}

// paragraphProps extracts the pPr block: the raw properties (minus any
// paragraph-mark deletion element, which the tree models as mark state), the
// style name, and whether the mark is tracked as deleted.
func (p *parser) paragraphProps(n *xmlquery.Node) (props, style string, markDeleted bool, markRev document.Revision) {
	pPr := xmlquery.FindOne(n, "w:pPr")
	if pPr == nil {
		return "", "", false, document.Revision{}
	}
	if st := xmlquery.FindOne(pPr, "w:pStyle"); st != nil {
		style = attr(st, "val")
	}
	if del := xmlquery.FindOne(pPr, "w:rPr/w:del"); del != nil {
		markDeleted = true
		markRev = revisionAttrs(del)
		detach(del)
	}
	props = innerXML(pPr)
	return props, style, markDeleted, markRev
}

func (p *parser) table(n *xmlquery.Node) *document.Table {
	t := &document.Table{}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		switch c.Data {
		case "tblPr":
			t.Props = innerXML(c)
		case "tr":
			t.Rows = append(t.Rows, p.tableRow(c))
		}
	}
	return t
}

func (p *parser) tableRow(n *xmlquery.Node) document.TableRow {
	row := document.TableRow{}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		switch c.Data {
		case "trPr":
			row.Props = innerXML(c)
		case "tc":
			row.Cells = append(row.Cells, p.tableCell(c))
		}
	}
	return row
}

func (p *parser) tableCell(n *xmlquery.Node) document.TableCell {
	cell := document.TableCell{}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		switch c.Data {
		case "tcPr":
			cell.Props = innerXML(c)
		case "p":
			cell.Blocks = append(cell.Blocks, document.Block{
				Kind:      document.BlockParagraph,
				Paragraph: p.paragraph(c),
			})
		case "tbl":
			cell.Blocks = append(cell.Blocks, document.Block{
				Kind:  document.BlockTable,
				Table: p.table(c),
			})
		default:
			cell.Blocks = append(cell.Blocks, document.Block{
				Kind: document.BlockRaw,
				Raw:  c.OutputXML(true),
			})
		}
	}
	return cell
}

func revisionAttrs(n *xmlquery.Node) document.Revision {
	rev := document.Revision{Author: attr(n, "author")}
	if id := attr(n, "id"); id != "" {
		rev.ID, _ = strconv.Atoi(id)
	}
	if date := attr(n, "date"); date != "" {
		if t, err := time.Parse(time.RFC3339, date); err == nil {
			rev.Date = t
		}
	}
	return rev
}

// attr returns the attribute with the given local name, ignoring the prefix.
func attr(n *xmlquery.Node, local string) string {
	for _, a := range n.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func innerXML(n *xmlquery.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(c.OutputXML(true))
	}
	return sb.String()
}

// detach unlinks n from its parent's child list.
func detach(n *xmlquery.Node) {
	if n.Parent == nil {
		return
	}
	if n.Parent.FirstChild == n {
		n.Parent.FirstChild = n.NextSibling
	}
	if n.Parent.LastChild == n {
		n.Parent.LastChild = n.PrevSibling
	}
	if n.PrevSibling != nil {
		n.PrevSibling.NextSibling = n.NextSibling
	}
	if n.NextSibling != nil {
		n.NextSibling.PrevSibling = n.PrevSibling
	}
	n.Parent, n.PrevSibling, n.NextSibling = nil, nil, nil
}
