// Package document provides the in-memory tree model for a flow-structured
// document with a tracked-change overlay.
//
// All nodes live in a flat arena addressed by NodeID; parent/child links are
// index references. Splitting, cloning, and pruning are array operations, and
// a staged edit is a cloned arena that is simply dropped if its validation
// fails, so no dangling references are possible.
package document

import (
	"fmt"
	"time"
)

// NodeID is a stable index into a Document's node arena.
type NodeID int32

// Nil is the absent-node sentinel. Presence is always checked explicitly
// against Nil, never by truthiness of a handle.
const Nil NodeID = -1

// Kind discriminates the Node tagged variant.
type Kind uint8

const (
	// KindParagraph is a block-level container of inline nodes.
	KindParagraph Kind = iota
	// KindRun is the smallest text-bearing, formatting-homogeneous node.
	KindRun
	// KindInsertion is a tracked-insertion wrapper.
	KindInsertion
	// KindDeletion is a tracked-deletion wrapper.
	KindDeletion
	// KindMoveFrom is the deletion-flavored wrapper on a move's source side.
	KindMoveFrom
	// KindMoveTo is the insertion-flavored wrapper on a move's destination side.
	KindMoveTo
	// KindMoveMarker is a move-range boundary marker (start or end).
	KindMoveMarker
	// KindParagraphMark is a paragraph's terminating mark; always the last
	// child of its paragraph.
	KindParagraphMark
	// KindRaw is unmodeled inline XML carried through verbatim.
	KindRaw
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case KindParagraph:
		return "paragraph"
	case KindRun:
		return "run"
	case KindInsertion:
		return "insertion"
	case KindDeletion:
		return "deletion"
	case KindMoveFrom:
		return "moveFrom"
	case KindMoveTo:
		return "moveTo"
	case KindMoveMarker:
		return "moveMarker"
	case KindParagraphMark:
		return "paragraphMark"
	case KindRaw:
		return "raw"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsWrapper reports whether k is a revision wrapper kind.
func (k Kind) IsWrapper() bool {
	return k == KindInsertion || k == KindDeletion || k == KindMoveFrom || k == KindMoveTo
}

// IsDeletionLike reports whether content inside a wrapper of kind k is
// removed once the tracked state is resolved.
func (k Kind) IsDeletionLike() bool {
	return k == KindDeletion || k == KindMoveFrom
}

// IsInsertionLike reports whether content inside a wrapper of kind k is
// retained once the tracked state is resolved.
func (k Kind) IsInsertionLike() bool {
	return k == KindInsertion || k == KindMoveTo
}

// Revision is the attribution carried by wrappers, markers, and deleted
// paragraph marks. ID is document-unique.
type Revision struct {
	ID     int
	Author string
	Date   time.Time
}

// MarkerSide distinguishes a move's source and destination boundaries.
type MarkerSide uint8

const (
	// SideFrom bounds a move-source region.
	SideFrom MarkerSide = iota
	// SideTo bounds a move-destination region.
	SideTo
)

// MarkerEdge distinguishes a boundary pair's start and end.
type MarkerEdge uint8

const (
	// EdgeStart opens a move-bounded region.
	EdgeStart MarkerEdge = iota
	// EdgeEnd closes a move-bounded region.
	EdgeEnd
)

// Marker describes a move-range boundary. Start and end of one region share
// ContainerID; the source and destination regions of one move share Group.
type Marker struct {
	Side        MarkerSide
	Edge        MarkerEdge
	ContainerID int
	Group       string
}

// Node is one tagged variant in the arena. Which fields are meaningful
// depends on Kind; unused fields stay zero.
type Node struct {
	Kind   Kind
	Parent NodeID

	// Children is meaningful for paragraphs and wrappers.
	Children []NodeID

	// Text and Props (raw run-properties XML) apply to runs. Props is
	// carried verbatim so splitting a run preserves its formatting exactly.
	Text  string
	Props string

	// ParaProps is the paragraph's raw properties XML (style etc.); Style is
	// the style name extracted from it. Paragraphs only.
	ParaProps string
	Style     string

	// Rev attributes wrappers, markers, and deleted paragraph marks.
	Rev Revision

	// Marker applies to KindMoveMarker nodes.
	Marker Marker

	// MarkDeleted is set on a KindParagraphMark whose paragraph's terminating
	// mark is tracked as deleted; Rev then attributes the deletion.
	MarkDeleted bool

	// Raw is the verbatim XML of a KindRaw node.
	Raw string
}

// Document owns the node arena and the block-level body structure.
type Document struct {
	nodes []Node

	// Body is the ordered block stream of the document's single story.
	Body []Block

	// RootAttrs is the verbatim attribute text of the document's root
	// element, preserved for serialization.
	RootAttrs string

	// BodyTrailer is raw XML emitted after the last block (section
	// properties and similar), preserved verbatim.
	BodyTrailer string
}

// BlockKind discriminates block-level content.
type BlockKind uint8

const (
	// BlockParagraph wraps a single paragraph node.
	BlockParagraph BlockKind = iota
	// BlockTable wraps a table of cells of nested blocks.
	BlockTable
	// BlockRaw is unmodeled block XML carried through verbatim.
	BlockRaw
)

// Block is one block-level item in a body or table cell.
type Block struct {
	Kind      BlockKind
	Paragraph NodeID // valid when Kind == BlockParagraph
	Table     *Table // valid when Kind == BlockTable
	Raw       string // valid when Kind == BlockRaw
}

// Table is a grid of cells, each holding nested blocks.
type Table struct {
	Props string // raw table-properties XML
	Rows  []TableRow
}

// TableRow is one table row.
type TableRow struct {
	Props string
	Cells []TableCell
}

// TableCell holds block content inside a table.
type TableCell struct {
	Props  string
	Blocks []Block
}

// New creates an empty document.
func New() *Document {
	return &Document{}
}

// Alloc appends a node to the arena and returns its ID.
func (d *Document) Alloc(n Node) NodeID {
	d.nodes = append(d.nodes, n)
	return NodeID(len(d.nodes) - 1)
}

// Node returns a pointer to the node with the given ID. The pointer is only
// valid until the next Alloc.
func (d *Document) Node(id NodeID) *Node {
	return &d.nodes[id]
}

// Len returns the arena size, including detached nodes.
func (d *Document) Len() int {
	return len(d.nodes)
}

// NewParagraph allocates a paragraph with its terminating mark and appends
// nothing to the body; the caller decides placement.
func (d *Document) NewParagraph(props, style string) NodeID {
	p := d.Alloc(Node{Kind: KindParagraph, Parent: Nil, ParaProps: props, Style: style})
	mark := d.Alloc(Node{Kind: KindParagraphMark, Parent: p})
	d.nodes[p].Children = []NodeID{mark}
	return p
}

// NewRun allocates a detached run.
func (d *Document) NewRun(text, props string) NodeID {
	return d.Alloc(Node{Kind: KindRun, Parent: Nil, Text: text, Props: props})
}

// NewWrapper allocates a detached revision wrapper of the given kind.
func (d *Document) NewWrapper(kind Kind, rev Revision) NodeID {
	return d.Alloc(Node{Kind: kind, Parent: Nil, Rev: rev})
}

// NewMarker allocates a detached move boundary marker.
func (d *Document) NewMarker(m Marker, rev Revision) NodeID {
	return d.Alloc(Node{Kind: KindMoveMarker, Parent: Nil, Marker: m, Rev: rev})
}

// AppendChild attaches child as parent's last child, before the paragraph
// mark if parent is a paragraph.
func (d *Document) AppendChild(parent, child NodeID) {
	p := &d.nodes[parent]
	if p.Kind == KindParagraph && len(p.Children) > 0 &&
		d.nodes[p.Children[len(p.Children)-1]].Kind == KindParagraphMark {
		idx := len(p.Children) - 1
		p.Children = append(p.Children, 0)
		copy(p.Children[idx+1:], p.Children[idx:])
		p.Children[idx] = child
	} else {
		p.Children = append(p.Children, child)
	}
	d.nodes[child].Parent = parent
}

// ChildIndex returns child's position under parent, or -1.
func (d *Document) ChildIndex(parent, child NodeID) int {
	for i, c := range d.nodes[parent].Children {
		if c == child {
			return i
		}
	}
	return -1
}

// InsertChildren splices ids into parent's child list at index i.
func (d *Document) InsertChildren(parent NodeID, i int, ids ...NodeID) {
	p := &d.nodes[parent]
	p.Children = append(p.Children[:i], append(append([]NodeID{}, ids...), p.Children[i:]...)...)
	for _, id := range ids {
		d.nodes[id].Parent = parent
	}
}

// RemoveChild detaches the child at index i of parent.
func (d *Document) RemoveChild(parent NodeID, i int) {
	p := &d.nodes[parent]
	child := p.Children[i]
	p.Children = append(p.Children[:i], p.Children[i+1:]...)
	d.nodes[child].Parent = Nil
}

// ReplaceChild swaps the child at index i of parent for the given ids.
func (d *Document) ReplaceChild(parent NodeID, i int, ids ...NodeID) {
	d.RemoveChild(parent, i)
	d.InsertChildren(parent, i, ids...)
}

// NearestWrapper walks up from id and returns the closest enclosing revision
// wrapper, or Nil.
func (d *Document) NearestWrapper(id NodeID) NodeID {
	for cur := d.nodes[id].Parent; cur != Nil; cur = d.nodes[cur].Parent {
		if d.nodes[cur].Kind.IsWrapper() {
			return cur
		}
	}
	return Nil
}

// ParagraphOf walks up from id to the enclosing paragraph, or Nil.
func (d *Document) ParagraphOf(id NodeID) NodeID {
	for cur := id; cur != Nil; cur = d.nodes[cur].Parent {
		if d.nodes[cur].Kind == KindParagraph {
			return cur
		}
	}
	return Nil
}

// MarkOf returns the paragraph-mark child of paragraph p, or Nil.
func (d *Document) MarkOf(p NodeID) NodeID {
	ch := d.nodes[p].Children
	if len(ch) > 0 && d.nodes[ch[len(ch)-1]].Kind == KindParagraphMark {
		return ch[len(ch)-1]
	}
	return Nil
}

// Location identifies where a paragraph sits: its flattened index, and the
// table coordinate when the paragraph lives inside a table (Table == -1
// otherwise).
type Location struct {
	Index int
	Table int
	Row   int
	Cell  int
}

// InTable reports whether the location is inside a table.
func (l Location) InTable() bool { return l.Table >= 0 }

// Paragraphs returns all paragraph IDs in document order, with locations.
func (d *Document) Paragraphs() ([]NodeID, []Location) {
	var ids []NodeID
	var locs []Location
	table := 0
	var walk func(blocks []Block, loc Location)
	walk = func(blocks []Block, loc Location) {
		for _, b := range blocks {
			switch b.Kind {
			case BlockParagraph:
				l := loc
				l.Index = len(ids)
				ids = append(ids, b.Paragraph)
				locs = append(locs, l)
			case BlockTable:
				t := table
				table++
				for ri, row := range b.Table.Rows {
					for ci, cell := range row.Cells {
						walk(cell.Blocks, Location{Table: t, Row: ri, Cell: ci})
					}
				}
			}
		}
	}
	walk(d.Body, Location{Table: -1, Row: -1, Cell: -1})
	return ids, locs
}

// BlockIndexOf returns the position of paragraph p in the top-level body, or
// -1 when p lives inside a table or is detached.
func (d *Document) BlockIndexOf(p NodeID) int {
	for i, b := range d.Body {
		if b.Kind == BlockParagraph && b.Paragraph == p {
			return i
		}
	}
	return -1
}

// RemoveBlock removes the top-level body block at index i.
func (d *Document) RemoveBlock(i int) {
	d.Body = append(d.Body[:i], d.Body[i+1:]...)
}

// Clone deep-copies the document: arena, child lists, and block structure.
// A staged edit mutates the clone and the caller swaps it in on commit.
func (d *Document) Clone() *Document {
	c := &Document{
		nodes:       make([]Node, len(d.nodes)),
		RootAttrs:   d.RootAttrs,
		BodyTrailer: d.BodyTrailer,
	}
	copy(c.nodes, d.nodes)
	for i := range c.nodes {
		if d.nodes[i].Children != nil {
			c.nodes[i].Children = append([]NodeID{}, d.nodes[i].Children...)
		}
	}
	c.Body = cloneBlocks(d.Body)
	return c
}

func cloneBlocks(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	copy(out, blocks)
	for i, b := range blocks {
		if b.Kind == BlockTable {
			t := &Table{Props: b.Table.Props, Rows: make([]TableRow, len(b.Table.Rows))}
			for ri, row := range b.Table.Rows {
				t.Rows[ri] = TableRow{Props: row.Props, Cells: make([]TableCell, len(row.Cells))}
				for ci, cell := range row.Cells {
					t.Rows[ri].Cells[ci] = TableCell{Props: cell.Props, Blocks: cloneBlocks(cell.Blocks)}
				}
			}
			out[i].Table = t
		}
	}
	return out
}

// PruneEmptyWrappers removes wrappers that have no children left, walking
// every paragraph. A wrapper emptied by an edit must not survive the commit.
func (d *Document) PruneEmptyWrappers() {
	ids, _ := d.Paragraphs()
	for _, p := range ids {
		d.pruneIn(p)
	}
}

func (d *Document) pruneIn(parent NodeID) {
	// Snapshot the child list and walk it backwards so RemoveChild at index i
	// never disturbs the indices still to be visited.
	ch := append([]NodeID{}, d.nodes[parent].Children...)
	for i := len(ch) - 1; i >= 0; i-- {
		c := ch[i]
		if d.nodes[c].Kind.IsWrapper() {
			d.pruneIn(c)
			if len(d.nodes[c].Children) == 0 {
				d.RemoveChild(parent, i)
			}
		}
	}
}

// MaxRevisionID scans every revision-bearing node and returns the largest ID
// present, or 0 when none exist.
func (d *Document) MaxRevisionID() int {
	max := 0
	ids, _ := d.Paragraphs()
	var walk func(id NodeID)
	walk = func(id NodeID) {
		n := &d.nodes[id]
		if n.Kind.IsWrapper() || n.Kind == KindMoveMarker {
			if n.Rev.ID > max {
				max = n.Rev.ID
			}
			if n.Kind == KindMoveMarker && n.Marker.ContainerID > max {
				max = n.Marker.ContainerID
			}
		}
		if n.Kind == KindParagraphMark && n.MarkDeleted && n.Rev.ID > max {
			max = n.Rev.ID
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, p := range ids {
		walk(p)
	}
	return max
}
