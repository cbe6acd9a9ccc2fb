// Package revision provides tracked-change context classification and
// document-unique revision ID allocation.
package revision

import (
	"github.com/FocuswithJustin/redline/core/document"
)

// ContextKind classifies a node's nearest enclosing revision wrapper.
type ContextKind uint8

const (
	// ContextNone means the node sits outside any revision wrapper.
	ContextNone ContextKind = iota
	// ContextInsertion means the nearest wrapper is a tracked insertion.
	ContextInsertion
	// ContextDeletion means the nearest wrapper is a tracked deletion.
	ContextDeletion
	// ContextMoveFrom means the nearest wrapper is a move source.
	ContextMoveFrom
	// ContextMoveTo means the nearest wrapper is a move destination.
	ContextMoveTo
)

// Context describes where a node stands relative to the revision overlay.
type Context struct {
	Kind    ContextKind
	Author  string
	Wrapper document.NodeID // Nil when Kind == ContextNone
}

// IsActiveDeletion reports whether the node's content is already tracked as
// removed.
func (c Context) IsActiveDeletion() bool {
	return c.Kind == ContextDeletion || c.Kind == ContextMoveFrom
}

// Classifier answers wrapper-context questions against one document.
type Classifier struct {
	doc *document.Document
}

// NewClassifier creates a classifier over doc.
func NewClassifier(doc *document.Document) *Classifier {
	return &Classifier{doc: doc}
}

// Classify returns the revision context of the given node.
func (c *Classifier) Classify(id document.NodeID) Context {
	w := c.doc.NearestWrapper(id)
	return c.ClassifyWrapper(w)
}

// ClassifyWrapper returns the context a wrapper node establishes. Passing
// Nil yields ContextNone.
func (c *Classifier) ClassifyWrapper(w document.NodeID) Context {
	if w == document.Nil {
		return Context{Kind: ContextNone, Wrapper: document.Nil}
	}
	n := c.doc.Node(w)
	ctx := Context{Author: n.Rev.Author, Wrapper: w}
	switch n.Kind {
	case document.KindInsertion:
		ctx.Kind = ContextInsertion
	case document.KindDeletion:
		ctx.Kind = ContextDeletion
	case document.KindMoveFrom:
		ctx.Kind = ContextMoveFrom
	case document.KindMoveTo:
		ctx.Kind = ContextMoveTo
	default:
		ctx.Kind = ContextNone
		ctx.Wrapper = document.Nil
		ctx.Author = ""
	}
	return ctx
}

// CanExtendInsertion reports whether new content by author can be appended as
// a sibling inside the wrapper establishing ctx, with no new wrapper needed.
func (c *Classifier) CanExtendInsertion(ctx Context, author string) bool {
	return ctx.Kind == ContextInsertion && ctx.Author == author
}

// Allocator issues strictly increasing revision IDs, starting past the
// largest ID present in the document at session start. IDs are never reused,
// even when the operation that requested them is discarded.
type Allocator struct {
	next int
}

// NewAllocator scans doc once and returns an allocator whose first issued ID
// is maxID+1. The scan is a correctness requirement: an allocator that
// starts from zero mints duplicate IDs into any document that already
// carries revisions.
func NewAllocator(doc *document.Document) *Allocator {
	return &Allocator{next: doc.MaxRevisionID() + 1}
}

// Next returns the next unique revision ID.
func (a *Allocator) Next() int {
	id := a.next
	a.next++
	return id
}

// Peek returns the ID the next call to Next will return, without consuming it.
func (a *Allocator) Peek() int {
	return a.next
}
