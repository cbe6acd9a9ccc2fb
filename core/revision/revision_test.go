package revision

import (
	"testing"

	"github.com/FocuswithJustin/redline/core/document"
)

func TestClassify(t *testing.T) {
	d := document.New()
	p := d.NewParagraph("", "")
	d.Body = []document.Block{{Kind: document.BlockParagraph, Paragraph: p}}

	plain := d.NewRun("plain", "")
	d.AppendChild(p, plain)

	ins := d.NewWrapper(document.KindInsertion, document.Revision{ID: 1, Author: "Alice"})
	d.AppendChild(p, ins)
	inserted := d.NewRun("added", "")
	d.AppendChild(ins, inserted)

	del := d.NewWrapper(document.KindDeletion, document.Revision{ID: 2, Author: "Bob"})
	d.AppendChild(p, del)
	deleted := d.NewRun("removed", "")
	d.AppendChild(del, deleted)

	c := NewClassifier(d)

	tests := []struct {
		name       string
		node       document.NodeID
		wantKind   ContextKind
		wantAuthor string
	}{
		{"plain run", plain, ContextNone, ""},
		{"inserted run", inserted, ContextInsertion, "Alice"},
		{"deleted run", deleted, ContextDeletion, "Bob"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := c.Classify(tt.node)
			if ctx.Kind != tt.wantKind || ctx.Author != tt.wantAuthor {
				t.Errorf("Classify() = {%v %q}, want {%v %q}",
					ctx.Kind, ctx.Author, tt.wantKind, tt.wantAuthor)
			}
		})
	}

	if !c.Classify(deleted).IsActiveDeletion() {
		t.Error("deleted run should classify as active deletion")
	}
	if c.Classify(inserted).IsActiveDeletion() {
		t.Error("inserted run should not classify as active deletion")
	}
}

func TestCanExtendInsertion(t *testing.T) {
	d := document.New()
	p := d.NewParagraph("", "")
	ins := d.NewWrapper(document.KindInsertion, document.Revision{ID: 1, Author: "Alice"})
	d.AppendChild(p, ins)
	r := d.NewRun("x", "")
	d.AppendChild(ins, r)
	d.Body = []document.Block{{Kind: document.BlockParagraph, Paragraph: p}}

	c := NewClassifier(d)
	ctx := c.Classify(r)
	if !c.CanExtendInsertion(ctx, "Alice") {
		t.Error("same author should extend the existing insertion")
	}
	if c.CanExtendInsertion(ctx, "Bob") {
		t.Error("different author must get a fresh wrapper")
	}
}

func TestAllocatorScansExistingIDs(t *testing.T) {
	d := document.New()
	p := d.NewParagraph("", "")
	d.AppendChild(p, d.NewWrapper(document.KindInsertion, document.Revision{ID: 17}))
	d.Body = []document.Block{{Kind: document.BlockParagraph, Paragraph: p}}

	a := NewAllocator(d)
	if got := a.Next(); got != 18 {
		t.Errorf("first Next() = %d, want 18", got)
	}
	if got := a.Next(); got != 19 {
		t.Errorf("second Next() = %d, want 19", got)
	}
}

func TestAllocatorNeverReuses(t *testing.T) {
	d := document.New()
	p := d.NewParagraph("", "")
	d.Body = []document.Block{{Kind: document.BlockParagraph, Paragraph: p}}
	a := NewAllocator(d)

	seen := map[int]bool{}
	for i := 0; i < 100; i++ {
		id := a.Next()
		if seen[id] {
			t.Fatalf("id %d issued twice", id)
		}
		seen[id] = true
	}
}

func TestAllocatorEmptyDocument(t *testing.T) {
	a := NewAllocator(document.New())
	if got := a.Next(); got != 1 {
		t.Errorf("Next() on empty document = %d, want 1", got)
	}
}
