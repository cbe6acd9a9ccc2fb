package docpack

import (
	"fmt"
	"strings"

	"github.com/FocuswithJustin/redline/core/document"
	"github.com/FocuswithJustin/redline/core/encoding"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

// defaultRootAttrs covers documents built in memory; parsed documents carry
// their original root attribute text instead.
const defaultRootAttrs = ` xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

const dateFormat = "2006-01-02T15:04:05Z07:00"

// SerializeDocument renders the tree back to document-part XML. All text and
// attribute values pass through the escaping helpers; raw nodes and trailers
// are emitted verbatim.
func SerializeDocument(d *document.Document) []byte {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString("<w:document")
	if d.RootAttrs != "" {
		sb.WriteString(d.RootAttrs)
	} else {
		sb.WriteString(defaultRootAttrs)
	}
	sb.WriteString("><w:body>")
	writeBlocks(&sb, d, d.Body)
	sb.WriteString(d.BodyTrailer)
	sb.WriteString("</w:body></w:document>")
	return []byte(sb.String())
}

func writeBlocks(sb *strings.Builder, d *document.Document, blocks []document.Block) {
	for _, b := range blocks {
		switch b.Kind {
		case document.BlockParagraph:
			writeParagraph(sb, d, b.Paragraph)
		case document.BlockTable:
			writeTable(sb, d, b.Table)
		case document.BlockRaw:
			sb.WriteString(b.Raw)
		}
	}
}

func writeParagraph(sb *strings.Builder, d *document.Document, p document.NodeID) {
	n := d.Node(p)
	sb.WriteString("<w:p>")

	mark := d.MarkOf(p)
	markDeleted := mark != document.Nil && d.Node(mark).MarkDeleted
	if n.ParaProps != "" || markDeleted {
		sb.WriteString("<w:pPr>")
		sb.WriteString(n.ParaProps)
		if markDeleted {
			sb.WriteString("<w:rPr>")
			writeRevTag(sb, "w:del", d.Node(mark).Rev, true)
			sb.WriteString("</w:rPr>")
		}
		sb.WriteString("</w:pPr>")
	}

	for _, c := range n.Children {
		writeInline(sb, d, c, false)
	}
	sb.WriteString("</w:p>")
}

func writeInline(sb *strings.Builder, d *document.Document, id document.NodeID, inDeletion bool) {
	n := d.Node(id)
	switch n.Kind {
	case document.KindRun:
		writeRun(sb, n, inDeletion)
	case document.KindInsertion:
		writeWrapper(sb, d, id, "w:ins", inDeletion)
	case document.KindDeletion:
		writeWrapper(sb, d, id, "w:del", true)
	case document.KindMoveFrom:
		writeWrapper(sb, d, id, "w:moveFrom", inDeletion)
	case document.KindMoveTo:
		writeWrapper(sb, d, id, "w:moveTo", inDeletion)
	case document.KindMoveMarker:
		writeMarker(sb, n)
	case document.KindParagraphMark:
		// State lives in pPr; the mark has no element of its own.
	case document.KindRaw:
		sb.WriteString(n.Raw)
	}
}

func writeWrapper(sb *strings.Builder, d *document.Document, id document.NodeID, tag string, inDeletion bool) {
	n := d.Node(id)
	writeRevTag(sb, tag, n.Rev, false)
	for _, c := range n.Children {
		writeInline(sb, d, c, inDeletion)
	}
	sb.WriteString("</")
	sb.WriteString(tag)
	sb.WriteString(">")
}

func writeRevTag(sb *strings.Builder, tag string, rev document.Revision, selfClose bool) {
	sb.WriteString("<")
	sb.WriteString(tag)
	fmt.Fprintf(sb, ` w:id="%d"`, rev.ID)
	if rev.Author != "" {
		fmt.Fprintf(sb, ` w:author="%s"`, encoding.EscapeXMLAttr(rev.Author))
	}
	if !rev.Date.IsZero() {
		fmt.Fprintf(sb, ` w:date="%s"`, rev.Date.UTC().Format(dateFormat))
	}
	if selfClose {
		sb.WriteString("/>")
	} else {
		sb.WriteString(">")
	}
}

func writeMarker(sb *strings.Builder, n *document.Node) {
	var tag string
	switch {
	case n.Marker.Side == document.SideFrom && n.Marker.Edge == document.EdgeStart:
		tag = "w:moveFromRangeStart"
	case n.Marker.Side == document.SideFrom:
		tag = "w:moveFromRangeEnd"
	case n.Marker.Edge == document.EdgeStart:
		tag = "w:moveToRangeStart"
	default:
		tag = "w:moveToRangeEnd"
	}
	sb.WriteString("<")
	sb.WriteString(tag)
	fmt.Fprintf(sb, ` w:id="%d"`, n.Marker.ContainerID)
	if n.Marker.Edge == document.EdgeStart {
		fmt.Fprintf(sb, ` w:name="%s"`, encoding.EscapeXMLAttr(n.Marker.Group))
		if n.Rev.Author != "" {
			fmt.Fprintf(sb, ` w:author="%s"`, encoding.EscapeXMLAttr(n.Rev.Author))
		}
		if !n.Rev.Date.IsZero() {
			fmt.Fprintf(sb, ` w:date="%s"`, n.Rev.Date.UTC().Format(dateFormat))
		}
	}
	sb.WriteString("/>")
}

// writeRun emits one run, splitting its text on tabs and line breaks. Inside
// a deletion the text element is w:delText; either way the element gets
// xml:space="preserve" when trimming would change the text.
func writeRun(sb *strings.Builder, n *document.Node, inDeletion bool) {
	sb.WriteString("<w:r>")
	if n.Props != "" {
		sb.WriteString("<w:rPr>")
		sb.WriteString(n.Props)
		sb.WriteString("</w:rPr>")
	}
	textTag := "w:t"
	if inDeletion {
		textTag = "w:delText"
	}
	rest := n.Text
	for len(rest) > 0 {
		i := strings.IndexAny(rest, "\t\n")
		if i < 0 {
			writeTextEl(sb, textTag, rest)
			break
		}
		if i > 0 {
			writeTextEl(sb, textTag, rest[:i])
		}
		if rest[i] == '\t' {
			sb.WriteString("<w:tab/>")
		} else {
			sb.WriteString("<w:br/>")
		}
		rest = rest[i+1:]
	}
	sb.WriteString("</w:r>")
}

func writeTextEl(sb *strings.Builder, tag, text string) {
	sb.WriteString("<")
	sb.WriteString(tag)
	if encoding.NeedsSpacePreserve(text) {
		sb.WriteString(` xml:space="preserve"`)
	}
	sb.WriteString(">")
	sb.WriteString(encoding.EscapeXMLText(text))
	sb.WriteString("</")
	sb.WriteString(tag)
	sb.WriteString(">")
}

func writeTable(sb *strings.Builder, d *document.Document, t *document.Table) {
	sb.WriteString("<w:tbl>")
	if t.Props != "" {
		sb.WriteString("<w:tblPr>")
		sb.WriteString(t.Props)
		sb.WriteString("</w:tblPr>")
	}
	for _, row := range t.Rows {
		sb.WriteString("<w:tr>")
		if row.Props != "" {
			sb.WriteString("<w:trPr>")
			sb.WriteString(row.Props)
			sb.WriteString("</w:trPr>")
		}
		for _, cell := range row.Cells {
			sb.WriteString("<w:tc>")
			if cell.Props != "" {
				sb.WriteString("<w:tcPr>")
				sb.WriteString(cell.Props)
				sb.WriteString("</w:tcPr>")
			}
			writeBlocks(sb, d, cell.Blocks)
			sb.WriteString("</w:tc>")
		}
		sb.WriteString("</w:tr>")
	}
	sb.WriteString("</w:tbl>")
}
